package gateway

import (
	"context"
	"fmt"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
)

// Ensure Midtrans implements Gateway
var _ Gateway = (*Midtrans)(nil)

// Midtrans implements Gateway against the Midtrans Core API.
type Midtrans struct {
	core coreapi.Client
}

// NewMidtrans creates a Midtrans gateway client. production selects the
// production environment; otherwise the sandbox is used.
func NewMidtrans(serverKey string, production bool) *Midtrans {
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}
	c := coreapi.Client{}
	c.New(serverKey, env)
	return &Midtrans{core: c}
}

// Charge initiates a QRIS or bank transfer payment.
func (m *Midtrans) Charge(_ context.Context, req *ChargeRequest) (*ChargeResult, error) {
	chargeReq := &coreapi.ChargeReq{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.OrderID,
			GrossAmt: req.Amount,
		},
		CustomerDetails: &midtrans.CustomerDetails{
			FName: req.CustomerName,
			Email: req.CustomerEmail,
		},
		Items: &[]midtrans.ItemDetails{{
			ID:    req.ItemID,
			Price: req.Amount,
			Qty:   1,
			Name:  req.ItemName,
		}},
		CustomExpiry: &coreapi.CustomExpiry{
			ExpiryDuration: req.ExpiryMinutes,
			Unit:           "minute",
		},
	}

	switch req.Method {
	case "bank_transfer":
		chargeReq.PaymentType = coreapi.PaymentTypeBankTransfer
		chargeReq.BankTransfer = &coreapi.BankTransferDetails{
			Bank: midtrans.Bank(req.Bank),
		}
	default:
		chargeReq.PaymentType = coreapi.PaymentTypeQris
		chargeReq.Qris = &coreapi.QrisDetails{Acquirer: "gopay"}
	}

	resp, err := m.core.ChargeTransaction(chargeReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChargeFailed, err)
	}

	result := &ChargeResult{
		TransactionID: resp.TransactionID,
		Raw:           chargeResponsePayload(resp),
	}

	// QRIS responses carry the QR code URL in the action list.
	if len(resp.Actions) > 0 {
		result.QRString = resp.Actions[0].URL
	}
	if len(resp.VaNumbers) > 0 {
		result.VANumber = resp.VaNumbers[0].VANumber
		result.Bank = resp.VaNumbers[0].Bank
	} else if resp.PermataVaNumber != "" {
		result.VANumber = resp.PermataVaNumber
		result.Bank = "permata"
	}

	return result, nil
}

// Status queries the transaction status for an order.
func (m *Midtrans) Status(_ context.Context, orderID string) (*StatusResult, error) {
	resp, err := m.core.CheckTransaction(orderID)
	if err != nil {
		return nil, fmt.Errorf("gateway status check failed: %v", err)
	}

	return &StatusResult{
		OrderID:           resp.OrderID,
		TransactionID:     resp.TransactionID,
		TransactionStatus: resp.TransactionStatus,
		FraudStatus:       resp.FraudStatus,
		Raw: map[string]any{
			"status_code":        resp.StatusCode,
			"status_message":     resp.StatusMessage,
			"order_id":           resp.OrderID,
			"transaction_id":     resp.TransactionID,
			"transaction_status": resp.TransactionStatus,
			"fraud_status":       resp.FraudStatus,
			"payment_type":       resp.PaymentType,
			"gross_amount":       resp.GrossAmount,
			"transaction_time":   resp.TransactionTime,
		},
	}, nil
}

func chargeResponsePayload(resp *coreapi.ChargeResponse) map[string]any {
	payload := map[string]any{
		"status_code":        resp.StatusCode,
		"status_message":     resp.StatusMessage,
		"order_id":           resp.OrderID,
		"transaction_id":     resp.TransactionID,
		"transaction_status": resp.TransactionStatus,
		"payment_type":       resp.PaymentType,
		"gross_amount":       resp.GrossAmount,
		"transaction_time":   resp.TransactionTime,
	}
	if resp.FraudStatus != "" {
		payload["fraud_status"] = resp.FraudStatus
	}
	if len(resp.Actions) > 0 {
		actions := make([]map[string]any, len(resp.Actions))
		for i, a := range resp.Actions {
			actions[i] = map[string]any{"name": a.Name, "method": a.Method, "url": a.URL}
		}
		payload["actions"] = actions
	}
	if len(resp.VaNumbers) > 0 {
		vas := make([]map[string]any, len(resp.VaNumbers))
		for i, va := range resp.VaNumbers {
			vas[i] = map[string]any{"bank": va.Bank, "va_number": va.VANumber}
		}
		payload["va_numbers"] = vas
	}
	return payload
}

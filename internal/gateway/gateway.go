// Package gateway talks to the payment gateway: outbound charge and
// status-check calls, plus webhook signature verification and order id
// generation.
package gateway

import (
	"context"
	"errors"
)

// ErrChargeFailed wraps gateway-side failures of the charge call. The caller
// surfaces the error but leaves the payment record pending for retry.
var ErrChargeFailed = errors.New("gateway charge failed")

// ChargeRequest describes an outbound charge.
type ChargeRequest struct {
	OrderID string
	// Amount is the gross amount in whole rupiah.
	Amount int64
	// Method is "qris" or "bank_transfer".
	Method string
	// Bank selects the virtual account bank for bank transfers (e.g. "bca").
	Bank string

	CustomerName  string
	CustomerEmail string

	// ItemID and ItemName describe the single line item (the trip).
	ItemID   string
	ItemName string

	// ExpiryMinutes is the payment window.
	ExpiryMinutes int
}

// ChargeResult is the normalized outcome of a charge call.
type ChargeResult struct {
	TransactionID string
	// QRString is the QR code URL for QRIS payments.
	QRString string
	// VANumber and Bank are set for bank transfer payments.
	VANumber string
	Bank     string
	// Raw is the gateway response payload, stored opaquely on the record.
	Raw map[string]any
}

// StatusResult is the normalized outcome of a transaction status query or an
// inbound notification.
type StatusResult struct {
	OrderID           string
	TransactionID     string
	TransactionStatus string
	FraudStatus       string
	// Raw is the gateway payload for merging into stored details.
	Raw map[string]any
}

// Gateway defines the outbound payment gateway operations.
type Gateway interface {
	// Charge initiates a payment and returns the gateway's references.
	Charge(ctx context.Context, req *ChargeRequest) (*ChargeResult, error)

	// Status queries the current transaction status for an order.
	Status(ctx context.Context, orderID string) (*StatusResult, error)
}

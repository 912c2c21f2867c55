package gateway

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
)

// Notification is the subset of an inbound gateway webhook payload the
// reconciliation flow consumes.
type Notification struct {
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	TransactionID     string `json:"transaction_id"`
}

// VerifySignature checks the webhook signature: the SHA-512 hex digest of
// orderID + statusCode + grossAmount + serverKey must equal the provided
// signature. Comparison is constant-time.
func VerifySignature(orderID, statusCode, grossAmount, signature, serverKey string) bool {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	expected := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

// Verify checks the notification's signature against the server key.
func (n *Notification) Verify(serverKey string) bool {
	return VerifySignature(n.OrderID, n.StatusCode, n.GrossAmount, n.SignatureKey, serverKey)
}

// Payload returns the notification as a map for merging into the stored
// gateway details.
func (n *Notification) Payload() map[string]any {
	return map[string]any{
		"order_id":           n.OrderID,
		"status_code":        n.StatusCode,
		"gross_amount":       n.GrossAmount,
		"transaction_status": n.TransactionStatus,
		"fraud_status":       n.FraudStatus,
		"transaction_id":     n.TransactionID,
	}
}

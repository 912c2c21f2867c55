package models

// PaymentMethod is how a savings contribution was paid.
type PaymentMethod string

const (
	MethodQris         PaymentMethod = "qris"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodManual       PaymentMethod = "manual"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodQris, MethodBankTransfer, MethodManual:
		return true
	}
	return false
}

// PaymentStatus is the reconciliation state of a savings payment.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
	PaymentExpired PaymentStatus = "expired"
)

// Terminal reports whether the status permits no further transitions.
// Once a payment is success, failed or expired it must never change again,
// regardless of later gateway notifications.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentSuccess || s == PaymentFailed || s == PaymentExpired
}

// Savings is a single member contribution towards the trip's savings goal.
type Savings struct {
	ID     string
	TripID string
	UserID string
	Amount float64

	Method PaymentMethod
	Status PaymentStatus

	// TransactionID is the gateway's transaction reference, set on success.
	TransactionID string

	// OrderID is the order reference sent to the payment gateway
	// (PREFIX-RANDOM4-TRIPSUFFIX6-UNIXTIME). Empty for manual payments.
	OrderID string

	// Details is the opaque gateway response payload, merged across charge
	// and notification responses.
	Details map[string]any

	Notes string

	// PaidAt is set when the payment reaches success; ExpiresAt is the
	// gateway payment window deadline. Both Unix timestamps, 0 when unset.
	PaidAt    int64
	ExpiresAt int64
	CreatedAt int64
}

// MergeDetails merges payload into the stored gateway details, keeping
// existing keys that the new payload does not override.
func (s *Savings) MergeDetails(payload map[string]any) {
	if len(payload) == 0 {
		return
	}
	if s.Details == nil {
		s.Details = make(map[string]any, len(payload))
	}
	for k, v := range payload {
		s.Details[k] = v
	}
}

// Contribution is the aggregated successful savings total for one member.
type Contribution struct {
	UserID string
	Total  float64
}

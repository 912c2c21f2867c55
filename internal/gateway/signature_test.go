package gateway

import (
	"crypto/sha512"
	"encoding/hex"
	"strings"
	"testing"
	"time"
)

func TestVerifySignature(t *testing.T) {
	const (
		serverKey = "S"
		orderID   = "O"
	)
	sum := sha512.Sum512([]byte(orderID + "200" + "10000" + serverKey))
	valid := hex.EncodeToString(sum[:])

	if !VerifySignature(orderID, "200", "10000", valid, serverKey) {
		t.Error("valid signature rejected")
	}

	cases := []struct {
		name      string
		signature string
	}{
		{"empty", ""},
		{"truncated", valid[:64]},
		{"wrong digest", strings.Repeat("a", 128)},
		{"uppercased", strings.ToUpper(valid)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if VerifySignature(orderID, "200", "10000", tc.signature, serverKey) {
				t.Error("invalid signature accepted")
			}
		})
	}

	// Any field change invalidates the signature.
	if VerifySignature(orderID, "201", "10000", valid, serverKey) {
		t.Error("signature accepted for different status code")
	}
	if VerifySignature(orderID, "200", "10000.00", valid, serverKey) {
		t.Error("signature accepted for different gross amount")
	}
}

func TestNotificationVerify(t *testing.T) {
	const serverKey = "secret"

	n := &Notification{
		OrderID:     "TRP-AB12-XYZ789-1735689600",
		StatusCode:  "200",
		GrossAmount: "150000.00",
	}
	sum := sha512.Sum512([]byte(n.OrderID + n.StatusCode + n.GrossAmount + serverKey))
	n.SignatureKey = hex.EncodeToString(sum[:])

	if !n.Verify(serverKey) {
		t.Error("valid notification rejected")
	}
	if n.Verify("other-key") {
		t.Error("notification accepted with wrong server key")
	}
}

func TestGenerateOrderID(t *testing.T) {
	now := time.Unix(1735689600, 0)
	tripID := "0194fdc2-fa2f-4cc0-81d3-ff12045b73c8"

	id, err := GenerateOrderID("TRP", tripID, now)
	if err != nil {
		t.Fatalf("GenerateOrderID failed: %v", err)
	}

	parts := strings.Split(id, "-")
	if len(parts) != 4 {
		t.Fatalf("order id %q has %d segments, want 4", id, len(parts))
	}
	if parts[0] != "TRP" {
		t.Errorf("prefix = %q, want TRP", parts[0])
	}
	if len(parts[1]) != 4 {
		t.Errorf("random segment %q, want 4 characters", parts[1])
	}
	if parts[2] != "5b73c8" {
		t.Errorf("trip suffix = %q, want 5b73c8", parts[2])
	}
	if parts[3] != "1735689600" {
		t.Errorf("timestamp = %q, want 1735689600", parts[3])
	}

	other, err := GenerateOrderID("TRP", tripID, now)
	if err != nil {
		t.Fatalf("GenerateOrderID failed: %v", err)
	}
	if other == id {
		t.Error("two order ids for the same trip and time collided")
	}
}

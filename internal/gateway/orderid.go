package gateway

import (
	"crypto/rand"
	"fmt"
	"time"
)

const orderIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateOrderID builds a gateway order reference of the form
// PREFIX-RANDOM4-TRIPSUFFIX6-UNIXTIME, e.g. TRP-X4K2-09ZQ3F-1735689600.
func GenerateOrderID(prefix, tripID string, now time.Time) (string, error) {
	random, err := randomToken(4)
	if err != nil {
		return "", fmt.Errorf("failed to generate order id: %w", err)
	}

	suffix := tripID
	if len(suffix) > 6 {
		suffix = suffix[len(suffix)-6:]
	}

	return fmt.Sprintf("%s-%s-%s-%d", prefix, random, suffix, now.Unix()), nil
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = orderIDAlphabet[int(b[i])%len(orderIDAlphabet)]
	}
	return string(b), nil
}

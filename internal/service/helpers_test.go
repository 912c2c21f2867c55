package service

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/adnfaris/tripdana/internal/gateway"
	"github.com/adnfaris/tripdana/internal/models"
	"github.com/adnfaris/tripdana/internal/storage"
	"github.com/adnfaris/tripdana/internal/storage/sqlite"
)

const testServerKey = "test-server-key"

// setupStore creates a SQLite store backed by a temp file.
func setupStore(t *testing.T) storage.Store {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "tripdana-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()

	store, err := sqlite.New(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to create store: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
		os.Remove(tmpFile.Name())
	})
	return store
}

var userSeq int

// seedUser registers a user directly in storage.
func seedUser(t *testing.T, store storage.Store, name string) *models.User {
	t.Helper()
	userSeq++
	u := models.NewUser(fmt.Sprintf("%s%d@example.com", name, userSeq), name, "hash")
	if err := store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("failed to seed user %s: %v", name, err)
	}
	return u
}

// seedTrip creates a trip with the first user as active admin and the rest
// as active members.
func seedTrip(t *testing.T, store storage.Store, admin *models.User, members ...*models.User) *models.Trip {
	t.Helper()
	ctx := context.Background()
	now := time.Now().Unix()

	code, err := randomJoinCode()
	if err != nil {
		t.Fatalf("failed to generate join code: %v", err)
	}

	trip := &models.Trip{
		ID:           models.NewID(),
		Name:         "Bali Trip",
		TargetAmount: 5_000_000,
		Status:       models.TripSaving,
		JoinCode:     code,
		CreatedBy:    admin.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := store.CreateTrip(ctx, trip); err != nil {
		t.Fatalf("failed to seed trip: %v", err)
	}

	users := append([]*models.User{admin}, members...)
	for i, u := range users {
		role := models.RoleMember
		if i == 0 {
			role = models.RoleAdmin
		}
		m := &models.TripMember{
			TripID:    trip.ID,
			UserID:    u.ID,
			Role:      role,
			Status:    models.MemberActive,
			JoinedAt:  now,
			CreatedAt: now,
		}
		if err := store.CreateMember(ctx, m); err != nil {
			t.Fatalf("failed to seed member: %v", err)
		}
	}
	return trip
}

// seedSavings inserts a successful contribution so the trip has a balance.
func seedSavings(t *testing.T, store storage.Store, trip *models.Trip, user *models.User, amount float64) *models.Savings {
	t.Helper()
	now := time.Now().Unix()
	sv := &models.Savings{
		ID:        models.NewID(),
		TripID:    trip.ID,
		UserID:    user.ID,
		Amount:    amount,
		Method:    models.MethodManual,
		Status:    models.PaymentSuccess,
		PaidAt:    now,
		CreatedAt: now,
	}
	if err := store.CreateSavings(context.Background(), sv); err != nil {
		t.Fatalf("failed to seed savings: %v", err)
	}
	return sv
}

// fakeGateway is a Gateway stub with scripted responses. chargeHook runs
// while the charge call is in flight, before the response is returned.
type fakeGateway struct {
	chargeErr    error
	chargeResult *gateway.ChargeResult
	statusResult *gateway.StatusResult
	chargeCalls  int
	chargeHook   func(req *gateway.ChargeRequest)
}

func (f *fakeGateway) Charge(_ context.Context, req *gateway.ChargeRequest) (*gateway.ChargeResult, error) {
	f.chargeCalls++
	if f.chargeHook != nil {
		f.chargeHook(req)
	}
	if f.chargeErr != nil {
		return nil, f.chargeErr
	}
	if f.chargeResult != nil {
		return f.chargeResult, nil
	}
	return &gateway.ChargeResult{
		TransactionID: "txn-" + req.OrderID,
		QRString:      "https://example.com/qr",
		Raw:           map[string]any{"transaction_status": "pending"},
	}, nil
}

func (f *fakeGateway) Status(_ context.Context, orderID string) (*gateway.StatusResult, error) {
	if f.statusResult != nil {
		return f.statusResult, nil
	}
	return &gateway.StatusResult{OrderID: orderID, TransactionStatus: "pending"}, nil
}

// recordBroadcaster captures published events for assertions.
type recordBroadcaster struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	TripID string
	Event  string
	Data   any
}

func (r *recordBroadcaster) Publish(tripID, event string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, publishedEvent{TripID: tripID, Event: event, Data: data})
}

// last returns the payload of the most recent event with the given name.
func (r *recordBroadcaster) last(event string) map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Event == event {
			if data, ok := r.events[i].Data.(map[string]any); ok {
				return data
			}
		}
	}
	return nil
}

func (r *recordBroadcaster) count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Event == event {
			n++
		}
	}
	return n
}

// signNotification computes the webhook signature the way the gateway does.
func signNotification(orderID, statusCode, grossAmount string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + testServerKey))
	return hex.EncodeToString(sum[:])
}

// notification builds a verified webhook payload for an order.
func notification(orderID, txStatus, fraudStatus string, amount float64) *gateway.Notification {
	gross := fmt.Sprintf("%.2f", amount)
	return &gateway.Notification{
		OrderID:           orderID,
		StatusCode:        "200",
		GrossAmount:       gross,
		SignatureKey:      signNotification(orderID, "200", gross),
		TransactionStatus: txStatus,
		FraudStatus:       fraudStatus,
		TransactionID:     "txn-" + orderID,
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/adnfaris/tripdana/internal/gateway"
	"github.com/adnfaris/tripdana/internal/metrics"
	"github.com/adnfaris/tripdana/internal/models"
	"github.com/adnfaris/tripdana/internal/realtime"
	"github.com/adnfaris/tripdana/internal/storage"
)

// ErrInvalidSignature is returned for webhook notifications whose signature
// does not verify against the server key.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// SavingsConfig carries the gateway settings the savings flow needs.
type SavingsConfig struct {
	// ServerKey signs and verifies gateway webhook notifications.
	ServerKey string
	// OrderPrefix is the leading segment of generated order ids.
	OrderPrefix string
	// ExpiryMinutes is the gateway payment window.
	ExpiryMinutes int
}

// SavingsService handles member contributions: creating payments through the
// gateway, reconciling their status from webhook notifications and status
// polls, and the manual cash flow.
type SavingsService struct {
	store storage.Store
	gw    gateway.Gateway
	hub   Broadcaster
	cfg   SavingsConfig
	now   func() time.Time
}

// NewSavingsService creates a SavingsService.
func NewSavingsService(store storage.Store, gw gateway.Gateway, hub Broadcaster, cfg SavingsConfig) *SavingsService {
	if cfg.OrderPrefix == "" {
		cfg.OrderPrefix = "TRP"
	}
	if cfg.ExpiryMinutes <= 0 {
		cfg.ExpiryMinutes = 24 * 60
	}
	return &SavingsService{store: store, gw: gw, hub: hub, cfg: cfg, now: time.Now}
}

// CreateSavingsInput is the caller-supplied part of a contribution.
type CreateSavingsInput struct {
	Amount float64
	Method models.PaymentMethod
	// Bank selects the virtual account bank for bank transfers.
	Bank  string
	Notes string
}

// Create records a contribution and, for gateway methods, initiates the
// charge. Manual payments by an admin are trusted and marked success
// immediately; manual payments reported by a regular member stay pending
// until an admin approves them. A failed charge call leaves the record
// pending so the member can retry or an admin can reconcile later.
func (s *SavingsService) Create(ctx context.Context, actor *models.User, tripID string, in CreateSavingsInput, meta RequestMeta) (*models.Savings, error) {
	if in.Amount <= 0 {
		return nil, validationErr("amount must be positive")
	}
	if !in.Method.Valid() {
		return nil, validationErr("unknown payment method %q", in.Method)
	}

	now := s.now()
	var (
		sv   *models.Savings
		trip *models.Trip
	)

	err := s.store.InTx(ctx, func(st storage.Store) error {
		member, err := activeMemberOf(ctx, st, tripID, actor.ID)
		if err != nil {
			return err
		}
		trip, err = st.GetTrip(ctx, tripID)
		if err != nil {
			return err
		}

		sv = &models.Savings{
			ID:        models.NewID(),
			TripID:    tripID,
			UserID:    actor.ID,
			Amount:    in.Amount,
			Method:    in.Method,
			Status:    models.PaymentPending,
			Notes:     in.Notes,
			CreatedAt: now.Unix(),
		}

		if in.Method == models.MethodManual {
			// Admins record cash directly; member-reported cash waits for
			// admin approval.
			if member.IsActiveAdmin() {
				sv.Status = models.PaymentSuccess
				sv.PaidAt = now.Unix()
			}
		} else {
			orderID, err := gateway.GenerateOrderID(s.cfg.OrderPrefix, tripID, now)
			if err != nil {
				return err
			}
			sv.OrderID = orderID
			sv.ExpiresAt = now.Add(time.Duration(s.cfg.ExpiryMinutes) * time.Minute).Unix()
		}

		if err := st.CreateSavings(ctx, sv); err != nil {
			return err
		}

		if sv.Status == models.PaymentSuccess {
			return appendAudit(ctx, st, s.paymentAudit(sv, actor, meta), now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if sv.Status == models.PaymentSuccess {
		s.publishPaymentUpdate(ctx, sv)
		slog.Info("Manual payment recorded",
			"savings_id", sv.ID, "trip_id", tripID, "amount", sv.Amount)
		return sv, nil
	}
	if sv.Method == models.MethodManual {
		slog.Info("Manual payment reported, awaiting approval",
			"savings_id", sv.ID, "trip_id", tripID, "amount", sv.Amount)
		return sv, nil
	}

	// The charge call happens outside the write transaction so a slow
	// gateway cannot hold the database lock.
	result, err := s.gw.Charge(ctx, &gateway.ChargeRequest{
		OrderID:       sv.OrderID,
		Amount:        int64(sv.Amount),
		Method:        string(sv.Method),
		Bank:          in.Bank,
		CustomerName:  actor.DisplayName,
		CustomerEmail: actor.Email,
		ItemID:        trip.ID,
		ItemName:      fmt.Sprintf("Savings for %s", trip.Name),
		ExpiryMinutes: s.cfg.ExpiryMinutes,
	})
	if err != nil {
		slog.Error("Charge failed, payment left pending",
			"savings_id", sv.ID, "order_id", sv.OrderID, "error", err)
		return nil, err
	}

	// The webhook can settle the order before the charge response lands, so
	// the charge result is merged into a fresh read and never touches the
	// status or paid_at.
	err = s.store.InTx(ctx, func(st storage.Store) error {
		fresh, err := st.GetSavings(ctx, sv.ID)
		if err != nil {
			return err
		}
		if fresh.Status == models.PaymentPending {
			if result.TransactionID != "" {
				fresh.TransactionID = result.TransactionID
			}
			fresh.MergeDetails(result.Raw)
			if err := st.UpdateSavings(ctx, fresh); err != nil {
				return err
			}
		}
		sv = fresh
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Payment initiated",
		"savings_id", sv.ID, "trip_id", tripID, "order_id", sv.OrderID,
		"method", sv.Method, "amount", sv.Amount)
	return sv, nil
}

// Approve marks a member-reported manual payment as received. Admin only.
func (s *SavingsService) Approve(ctx context.Context, actor *models.User, tripID, savingsID string, meta RequestMeta) (*models.Savings, error) {
	now := s.now()
	var sv *models.Savings

	err := s.store.InTx(ctx, func(st storage.Store) error {
		if _, err := activeAdminOf(ctx, st, tripID, actor.ID); err != nil {
			return err
		}

		var err error
		sv, err = s.tripSavings(ctx, st, tripID, savingsID)
		if err != nil {
			return err
		}
		if sv.Method != models.MethodManual {
			return validationErr("only manual payments can be approved")
		}
		if sv.Status.Terminal() {
			return ErrTerminalPayment
		}

		sv.Status = models.PaymentSuccess
		sv.PaidAt = now.Unix()
		if err := st.UpdateSavings(ctx, sv); err != nil {
			return err
		}
		return appendAudit(ctx, st, s.paymentAudit(sv, actor, meta), now)
	})
	if err != nil {
		return nil, err
	}

	s.publishPaymentUpdate(ctx, sv)
	slog.Info("Manual payment approved",
		"savings_id", sv.ID, "trip_id", tripID, "amount", sv.Amount)
	return sv, nil
}

// Get returns one contribution.
func (s *SavingsService) Get(ctx context.Context, actor *models.User, tripID, savingsID string) (*models.Savings, error) {
	if _, err := memberOf(ctx, s.store, tripID, actor.ID); err != nil {
		return nil, err
	}
	return s.tripSavings(ctx, s.store, tripID, savingsID)
}

// List returns a trip's contributions, newest first.
func (s *SavingsService) List(ctx context.Context, actor *models.User, tripID string) ([]*models.Savings, error) {
	if _, err := memberOf(ctx, s.store, tripID, actor.ID); err != nil {
		return nil, err
	}
	return s.store.ListSavings(ctx, tripID)
}

// Contributions returns each member's total of successful contributions.
func (s *SavingsService) Contributions(ctx context.Context, actor *models.User, tripID string) ([]models.Contribution, error) {
	if _, err := memberOf(ctx, s.store, tripID, actor.ID); err != nil {
		return nil, err
	}
	return s.store.ListContributions(ctx, tripID)
}

// HandleNotification reconciles a gateway webhook notification. The
// signature is verified first; replays against a settled payment are
// acknowledged without changing anything, so retried webhooks are idempotent.
func (s *SavingsService) HandleNotification(ctx context.Context, n *gateway.Notification) (*models.Savings, error) {
	if !n.Verify(s.cfg.ServerKey) {
		metrics.WebhookRejections.WithLabelValues("bad_signature").Inc()
		slog.Warn("Webhook signature mismatch", "order_id", n.OrderID)
		return nil, ErrInvalidSignature
	}

	now := s.now()
	var (
		sv      *models.Savings
		changed bool
	)

	err := s.store.InTx(ctx, func(st storage.Store) error {
		var err error
		sv, err = st.GetSavingsByOrderID(ctx, n.OrderID)
		if err != nil {
			return err
		}
		if sv.Status.Terminal() {
			// Settled. Acknowledge the replay, change nothing.
			return nil
		}

		if n.TransactionID != "" {
			sv.TransactionID = n.TransactionID
		}
		sv.MergeDetails(n.Payload())
		changed = applyGatewayStatus(sv, n.TransactionStatus, n.FraudStatus, now)

		if err := st.UpdateSavings(ctx, sv); err != nil {
			return err
		}
		if changed && sv.Status == models.PaymentSuccess {
			return appendAudit(ctx, st, s.paymentAudit(sv, nil, RequestMeta{}), now)
		}
		return nil
	})
	if errors.Is(err, storage.ErrNotFound) {
		metrics.WebhookRejections.WithLabelValues("unknown_order").Inc()
		slog.Warn("Webhook for unknown order", "order_id", n.OrderID)
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	if changed {
		metrics.PaymentTransitions.WithLabelValues(string(sv.Status)).Inc()
		s.publishPaymentUpdate(ctx, sv)
		slog.Info("Payment reconciled from webhook",
			"savings_id", sv.ID, "order_id", sv.OrderID, "status", sv.Status)
	}
	return sv, nil
}

// CheckStatus polls the gateway for the current transaction status and
// applies the same transition rules as webhook reconciliation. Terminal
// payments are returned as-is without a gateway call.
func (s *SavingsService) CheckStatus(ctx context.Context, actor *models.User, tripID, savingsID string) (*models.Savings, error) {
	if _, err := memberOf(ctx, s.store, tripID, actor.ID); err != nil {
		return nil, err
	}
	sv, err := s.tripSavings(ctx, s.store, tripID, savingsID)
	if err != nil {
		return nil, err
	}
	if sv.Status.Terminal() || sv.OrderID == "" {
		return sv, nil
	}

	result, err := s.gw.Status(ctx, sv.OrderID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var changed bool
	err = s.store.InTx(ctx, func(st storage.Store) error {
		sv, err = st.GetSavings(ctx, savingsID)
		if err != nil {
			return err
		}
		if sv.Status.Terminal() {
			return nil
		}

		if result.TransactionID != "" {
			sv.TransactionID = result.TransactionID
		}
		sv.MergeDetails(result.Raw)
		changed = applyGatewayStatus(sv, result.TransactionStatus, result.FraudStatus, now)

		if err := st.UpdateSavings(ctx, sv); err != nil {
			return err
		}
		if changed && sv.Status == models.PaymentSuccess {
			return appendAudit(ctx, st, s.paymentAudit(sv, actor, RequestMeta{}), now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		metrics.PaymentTransitions.WithLabelValues(string(sv.Status)).Inc()
		s.publishPaymentUpdate(ctx, sv)
		slog.Info("Payment reconciled from status poll",
			"savings_id", sv.ID, "order_id", sv.OrderID, "status", sv.Status)
	}
	return sv, nil
}

// tripSavings loads a contribution and verifies it belongs to the trip.
func (s *SavingsService) tripSavings(ctx context.Context, st storage.Store, tripID, savingsID string) (*models.Savings, error) {
	sv, err := st.GetSavings(ctx, savingsID)
	if err != nil {
		return nil, err
	}
	if sv.TripID != tripID {
		return nil, storage.ErrNotFound
	}
	return sv, nil
}

// applyGatewayStatus maps a gateway transaction status onto the payment and
// reports whether the status changed. The mapping:
//
//	capture, settlement  -> success (unless fraud_status is "challenge")
//	pending              -> pending
//	deny, cancel         -> failed
//	expire               -> expired
//
// Unknown statuses and challenged captures leave the payment untouched.
func applyGatewayStatus(sv *models.Savings, txStatus, fraudStatus string, now time.Time) bool {
	switch txStatus {
	case "capture", "settlement":
		if fraudStatus == "challenge" {
			return false
		}
		sv.Status = models.PaymentSuccess
		sv.PaidAt = now.Unix()
		return true
	case "deny", "cancel":
		sv.Status = models.PaymentFailed
		return true
	case "expire":
		sv.Status = models.PaymentExpired
		return true
	default:
		return false
	}
}

// paymentAudit builds the payment_received audit entry. actor is nil for
// webhook-driven transitions, attributing the entry to the paying member.
func (s *SavingsService) paymentAudit(sv *models.Savings, actor *models.User, meta RequestMeta) *models.AuditLog {
	userID := sv.UserID
	if actor != nil {
		userID = actor.ID
	}
	return &models.AuditLog{
		TripID:  sv.TripID,
		UserID:  userID,
		Action:  models.ActionPaymentReceived,
		Subject: models.AuditSubject{Kind: models.SubjectSavings, ID: sv.ID},
		NewValues: map[string]any{
			"amount": sv.Amount,
			"method": sv.Method,
		},
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
	}
}

// publishPaymentUpdate emits the payment.updated event with the trip's
// refreshed totals so clients can update progress bars without a second
// request.
func (s *SavingsService) publishPaymentUpdate(ctx context.Context, sv *models.Savings) {
	if s.hub == nil {
		return
	}
	payload := map[string]any{
		"savings_id": sv.ID,
		"user_id":    sv.UserID,
		"order_id":   sv.OrderID,
		"status":     sv.Status,
		"amount":     sv.Amount,
		"paid_at":    sv.PaidAt,
	}
	if trip, err := s.store.GetTrip(ctx, sv.TripID); err == nil {
		if totals, err := s.store.TripTotals(ctx, trip); err == nil {
			payload["total_savings"] = totals.TotalSavings
			payload["savings_progress"] = totals.SavingsProgress
		}
	}
	s.hub.Publish(sv.TripID, realtime.EventPaymentUpdated, payload)
}

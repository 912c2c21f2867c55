package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/adnfaris/tripdana/internal/models"
	"github.com/adnfaris/tripdana/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "tripdana-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().Unix()

	user := models.NewUser("alice@example.com", "Alice", "hash")
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	trip := &models.Trip{
		ID:           models.NewID(),
		Name:         "Komodo Trip",
		TargetAmount: 1_000_000,
		Status:       models.TripPlanning,
		JoinCode:     "KOMODO01",
		CreatedBy:    user.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := store.CreateTrip(ctx, trip); err != nil {
		t.Fatalf("CreateTrip failed: %v", err)
	}

	t.Run("GetUserByEmail", func(t *testing.T) {
		got, err := store.GetUserByEmail(ctx, "alice@example.com")
		if err != nil {
			t.Fatalf("GetUserByEmail failed: %v", err)
		}
		if got.ID != user.ID || got.DisplayName != "Alice" {
			t.Errorf("got %s/%s, want %s/Alice", got.ID, got.DisplayName, user.ID)
		}

		if _, err := store.GetUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("missing user = %v, want ErrNotFound", err)
		}
	})

	t.Run("GetTripByJoinCode", func(t *testing.T) {
		got, err := store.GetTripByJoinCode(ctx, "KOMODO01")
		if err != nil {
			t.Fatalf("GetTripByJoinCode failed: %v", err)
		}
		if got.ID != trip.ID {
			t.Errorf("got trip %s, want %s", got.ID, trip.ID)
		}
	})

	t.Run("duplicate join code rejected", func(t *testing.T) {
		dup := &models.Trip{
			ID:        models.NewID(),
			Name:      "Copycat",
			JoinCode:  "KOMODO01",
			Status:    models.TripPlanning,
			CreatedBy: user.ID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := store.CreateTrip(ctx, dup); err == nil {
			t.Error("expected unique constraint error")
		}
	})

	t.Run("member rows unique per trip and user", func(t *testing.T) {
		m := &models.TripMember{
			TripID:    trip.ID,
			UserID:    user.ID,
			Role:      models.RoleAdmin,
			Status:    models.MemberActive,
			JoinedAt:  now,
			CreatedAt: now,
		}
		if err := store.CreateMember(ctx, m); err != nil {
			t.Fatalf("CreateMember failed: %v", err)
		}
		if m.ID == 0 {
			t.Error("member ID not populated from insert")
		}

		dup := &models.TripMember{
			TripID: trip.ID, UserID: user.ID,
			Role: models.RoleMember, Status: models.MemberPending, CreatedAt: now,
		}
		if err := store.CreateMember(ctx, dup); err == nil {
			t.Error("expected unique constraint error for duplicate membership")
		}

		admins, err := store.CountActiveAdmins(ctx, trip.ID)
		if err != nil {
			t.Fatalf("CountActiveAdmins failed: %v", err)
		}
		if admins != 1 {
			t.Errorf("active admins = %d, want 1", admins)
		}
	})

	t.Run("savings round trip with details", func(t *testing.T) {
		sv := &models.Savings{
			ID:        models.NewID(),
			TripID:    trip.ID,
			UserID:    user.ID,
			Amount:    250_000,
			Method:    models.MethodQris,
			Status:    models.PaymentPending,
			OrderID:   "TRP-AB12-XYZ789-1735689600",
			Details:   map[string]any{"qr_string": "https://example.com/qr"},
			CreatedAt: now,
		}
		if err := store.CreateSavings(ctx, sv); err != nil {
			t.Fatalf("CreateSavings failed: %v", err)
		}

		got, err := store.GetSavingsByOrderID(ctx, sv.OrderID)
		if err != nil {
			t.Fatalf("GetSavingsByOrderID failed: %v", err)
		}
		if got.ID != sv.ID {
			t.Errorf("got %s, want %s", got.ID, sv.ID)
		}
		if got.Details["qr_string"] != "https://example.com/qr" {
			t.Errorf("details not round-tripped: %v", got.Details)
		}

		got.Status = models.PaymentSuccess
		got.PaidAt = now
		if err := store.UpdateSavings(ctx, got); err != nil {
			t.Fatalf("UpdateSavings failed: %v", err)
		}
	})

	t.Run("TripTotals aggregates successes and expenses", func(t *testing.T) {
		if err := store.CreateExpense(ctx, &models.Expense{
			ID:          models.NewID(),
			TripID:      trip.ID,
			SpentBy:     user.ID,
			Amount:      50_000,
			Description: "Port fees",
			SpentAt:     now,
			CreatedAt:   now,
		}); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}

		totals, err := store.TripTotals(ctx, trip)
		if err != nil {
			t.Fatalf("TripTotals failed: %v", err)
		}
		if totals.TotalSavings != 250_000 {
			t.Errorf("TotalSavings = %v, want 250000", totals.TotalSavings)
		}
		if totals.TotalExpenses != 50_000 {
			t.Errorf("TotalExpenses = %v, want 50000", totals.TotalExpenses)
		}
		if totals.RemainingBalance != 200_000 {
			t.Errorf("RemainingBalance = %v, want 200000", totals.RemainingBalance)
		}
		if totals.SavingsProgress != 25 {
			t.Errorf("SavingsProgress = %v, want 25", totals.SavingsProgress)
		}
	})

	t.Run("vote uniqueness per withdrawal and user", func(t *testing.T) {
		w := &models.Withdrawal{
			ID:             models.NewID(),
			TripID:         trip.ID,
			RequestedBy:    user.ID,
			Amount:         100_000,
			Reason:         "Harbor deposit",
			Status:         models.WithdrawalPending,
			VotesRequired:  1,
			VotesApprove:   1,
			VotingDeadline: now + 86400,
			CreatedAt:      now,
		}
		if err := store.CreateWithdrawal(ctx, w); err != nil {
			t.Fatalf("CreateWithdrawal failed: %v", err)
		}

		v := &models.WithdrawalVote{
			WithdrawalID: w.ID,
			UserID:       user.ID,
			Approved:     true,
			CreatedAt:    now,
		}
		if err := store.CreateVote(ctx, v); err != nil {
			t.Fatalf("CreateVote failed: %v", err)
		}
		if err := store.CreateVote(ctx, &models.WithdrawalVote{
			WithdrawalID: w.ID, UserID: user.ID, Approved: false, CreatedAt: now,
		}); err == nil {
			t.Error("expected unique constraint error for second vote")
		}

		got, err := store.GetVote(ctx, w.ID, user.ID)
		if err != nil {
			t.Fatalf("GetVote failed: %v", err)
		}
		if !got.Approved {
			t.Error("vote approval not round-tripped")
		}
	})

	t.Run("audit snapshots round trip", func(t *testing.T) {
		entry := &models.AuditLog{
			ID:     models.NewID(),
			TripID: trip.ID,
			UserID: user.ID,
			Action: models.ActionTripUpdated,
			Subject: models.AuditSubject{
				Kind: models.SubjectTrip,
				ID:   trip.ID,
			},
			OldValues: map[string]any{"name": "Komodo Trip"},
			NewValues: map[string]any{"name": "Komodo Expedition"},
			IPAddress: "10.1.2.3",
			UserAgent: "test-agent",
			CreatedAt: now,
		}
		if err := store.AppendAudit(ctx, entry); err != nil {
			t.Fatalf("AppendAudit failed: %v", err)
		}

		entries, err := store.ListAudit(ctx, trip.ID, 10)
		if err != nil {
			t.Fatalf("ListAudit failed: %v", err)
		}
		if len(entries) != 1 {
			t.Fatalf("len(entries) = %d, want 1", len(entries))
		}
		got := entries[0]
		if got.OldValues["name"] != "Komodo Trip" || got.NewValues["name"] != "Komodo Expedition" {
			t.Errorf("snapshots not round-tripped: %v -> %v", got.OldValues, got.NewValues)
		}
		if got.Subject.Kind != models.SubjectTrip {
			t.Errorf("Subject.Kind = %s, want trip", got.Subject.Kind)
		}
	})

	t.Run("UpdateTrip persists a new join code", func(t *testing.T) {
		trip.JoinCode = "KOMODO02"
		if err := store.UpdateTrip(ctx, trip); err != nil {
			t.Fatalf("UpdateTrip failed: %v", err)
		}
		if _, err := store.GetTripByJoinCode(ctx, "KOMODO02"); err != nil {
			t.Errorf("new join code not stored: %v", err)
		}
		if _, err := store.GetTripByJoinCode(ctx, "KOMODO01"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("old join code = %v, want ErrNotFound", err)
		}
	})

	t.Run("update of missing row returns ErrNotFound", func(t *testing.T) {
		ghost := &models.Trip{ID: models.NewID(), Name: "Ghost", Status: models.TripPlanning}
		if err := store.UpdateTrip(ctx, ghost); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("UpdateTrip missing = %v, want ErrNotFound", err)
		}
		if err := store.DeleteTrip(ctx, models.NewID()); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("DeleteTrip missing = %v, want ErrNotFound", err)
		}
	})
}

func TestInTxSerializesAndNests(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := models.NewUser("bob@example.com", "Bob", "hash")
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	// A nested InTx must reuse the outer transaction instead of deadlocking
	// on a second immediate lock.
	err := store.InTx(ctx, func(st storage.Store) error {
		return st.InTx(ctx, func(inner storage.Store) error {
			_, err := inner.GetUserByID(ctx, user.ID)
			return err
		})
	})
	if err != nil {
		t.Fatalf("nested InTx failed: %v", err)
	}

	// A failed fn rolls everything back.
	boom := errors.New("boom")
	tripID := models.NewID()
	err = store.InTx(ctx, func(st storage.Store) error {
		if err := st.CreateTrip(ctx, &models.Trip{
			ID: tripID, Name: "Doomed", Status: models.TripPlanning,
			JoinCode: "DOOMED00", CreatedBy: user.ID,
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx = %v, want boom", err)
	}
	if _, err := store.GetTrip(ctx, tripID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("rolled-back trip still visible: %v", err)
	}
}

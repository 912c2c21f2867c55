package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/adnfaris/tripdana/internal/models"
	"github.com/adnfaris/tripdana/internal/storage"
)

// ExpenseService records spending out of the trip's shared funds.
type ExpenseService struct {
	store storage.Store
	now   func() time.Time
}

// NewExpenseService creates an ExpenseService.
func NewExpenseService(store storage.Store) *ExpenseService {
	return &ExpenseService{store: store, now: time.Now}
}

// ExpenseInput is the caller-supplied part of an expense.
type ExpenseInput struct {
	Amount      float64
	Category    string
	Description string
	SpentAt     int64
}

// Create records an expense against the trip's funds.
func (s *ExpenseService) Create(ctx context.Context, actor *models.User, tripID string, in ExpenseInput, meta RequestMeta) (*models.Expense, error) {
	if in.Amount <= 0 {
		return nil, validationErr("amount must be positive")
	}
	if strings.TrimSpace(in.Description) == "" {
		return nil, validationErr("description is required")
	}

	now := s.now()
	if in.SpentAt == 0 {
		in.SpentAt = now.Unix()
	}

	e := &models.Expense{
		ID:          models.NewID(),
		TripID:      tripID,
		SpentBy:     actor.ID,
		Amount:      in.Amount,
		Category:    in.Category,
		Description: in.Description,
		SpentAt:     in.SpentAt,
		CreatedAt:   now.Unix(),
	}

	err := s.store.InTx(ctx, func(st storage.Store) error {
		if _, err := activeMemberOf(ctx, st, tripID, actor.ID); err != nil {
			return err
		}
		if err := st.CreateExpense(ctx, e); err != nil {
			return err
		}

		return appendAudit(ctx, st, &models.AuditLog{
			TripID:  tripID,
			UserID:  actor.ID,
			Action:  models.ActionExpenseRecorded,
			Subject: models.AuditSubject{Kind: models.SubjectExpense, ID: e.ID},
			NewValues: map[string]any{
				"amount":      e.Amount,
				"category":    e.Category,
				"description": e.Description,
			},
			IPAddress: meta.IP,
			UserAgent: meta.UserAgent,
		}, now)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Expense recorded", "expense_id", e.ID, "trip_id", tripID, "amount", e.Amount)
	return e, nil
}

// List returns a trip's expenses, newest first.
func (s *ExpenseService) List(ctx context.Context, actor *models.User, tripID string) ([]*models.Expense, error) {
	if _, err := memberOf(ctx, s.store, tripID, actor.ID); err != nil {
		return nil, err
	}
	return s.store.ListExpenses(ctx, tripID)
}

// Delete removes an expense. Admin only.
func (s *ExpenseService) Delete(ctx context.Context, actor *models.User, tripID, expenseID string) error {
	return s.store.InTx(ctx, func(st storage.Store) error {
		if _, err := activeAdminOf(ctx, st, tripID, actor.ID); err != nil {
			return err
		}
		e, err := st.GetExpense(ctx, expenseID)
		if err != nil {
			return err
		}
		if e.TripID != tripID {
			return storage.ErrNotFound
		}
		return st.DeleteExpense(ctx, expenseID)
	})
}

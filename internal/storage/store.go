// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/adnfaris/tripdana/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store defines the persistence operations used by the service layer.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the services.
type Store interface {
	// InTx runs fn against a store bound to a single write transaction.
	// All check-then-act sequences (vote tally then status transition,
	// admin count then membership change, webhook lookup then update) must
	// run inside InTx so concurrent requests cannot race past an invariant
	// check. Nested calls reuse the outer transaction.
	InTx(ctx context.Context, fn func(Store) error) error

	// Users
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)

	// Trips
	CreateTrip(ctx context.Context, trip *models.Trip) error
	GetTrip(ctx context.Context, id string) (*models.Trip, error)
	GetTripByJoinCode(ctx context.Context, code string) (*models.Trip, error)
	ListTripsForUser(ctx context.Context, userID string, status models.MemberStatus) ([]*models.Trip, error)
	UpdateTrip(ctx context.Context, trip *models.Trip) error
	DeleteTrip(ctx context.Context, id string) error
	// TripTotals aggregates successful savings and expenses for a trip.
	TripTotals(ctx context.Context, trip *models.Trip) (*models.TripTotals, error)

	// Members
	CreateMember(ctx context.Context, m *models.TripMember) error
	GetMember(ctx context.Context, tripID, userID string) (*models.TripMember, error)
	GetMemberByID(ctx context.Context, tripID string, id int64) (*models.TripMember, error)
	ListMembers(ctx context.Context, tripID string) ([]*models.TripMember, error)
	UpdateMember(ctx context.Context, m *models.TripMember) error
	DeleteMember(ctx context.Context, id int64) error
	CountMembers(ctx context.Context, tripID string, status models.MemberStatus) (int, error)
	CountActiveAdmins(ctx context.Context, tripID string) (int, error)

	// Savings
	CreateSavings(ctx context.Context, s *models.Savings) error
	GetSavings(ctx context.Context, id string) (*models.Savings, error)
	GetSavingsByOrderID(ctx context.Context, orderID string) (*models.Savings, error)
	ListSavings(ctx context.Context, tripID string) ([]*models.Savings, error)
	UpdateSavings(ctx context.Context, s *models.Savings) error
	ListContributions(ctx context.Context, tripID string) ([]models.Contribution, error)

	// Withdrawals and votes
	CreateWithdrawal(ctx context.Context, w *models.Withdrawal) error
	GetWithdrawal(ctx context.Context, id string) (*models.Withdrawal, error)
	ListWithdrawals(ctx context.Context, tripID string) ([]*models.Withdrawal, error)
	UpdateWithdrawal(ctx context.Context, w *models.Withdrawal) error
	CreateVote(ctx context.Context, v *models.WithdrawalVote) error
	GetVote(ctx context.Context, withdrawalID, userID string) (*models.WithdrawalVote, error)
	ListVotes(ctx context.Context, withdrawalID string) ([]*models.WithdrawalVote, error)

	// Expenses
	CreateExpense(ctx context.Context, e *models.Expense) error
	GetExpense(ctx context.Context, id string) (*models.Expense, error)
	ListExpenses(ctx context.Context, tripID string) ([]*models.Expense, error)
	DeleteExpense(ctx context.Context, id string) error

	// Destinations
	CreateDestination(ctx context.Context, d *models.Destination) error
	GetDestination(ctx context.Context, id string) (*models.Destination, error)
	ListDestinations(ctx context.Context, tripID string) ([]*models.Destination, error)
	UpdateDestination(ctx context.Context, d *models.Destination) error
	DeleteDestination(ctx context.Context, id string) error

	// Audit trail (append-only)
	AppendAudit(ctx context.Context, entry *models.AuditLog) error
	ListAudit(ctx context.Context, tripID string, limit int) ([]*models.AuditLog, error)

	// Close releases any resources held by the store.
	Close() error
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/adnfaris/tripdana/internal/models"
	"github.com/adnfaris/tripdana/internal/storage"
)

// CreateExpense persists a new expense.
func (s *SQLiteStore) CreateExpense(ctx context.Context, e *models.Expense) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO expenses (id, trip_id, spent_by, amount, category, description, spent_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.TripID, e.SpentBy, e.Amount, e.Category, e.Description, e.SpentAt, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create expense: %w", err)
	}
	return nil
}

// GetExpense retrieves an expense by ID.
func (s *SQLiteStore) GetExpense(ctx context.Context, id string) (*models.Expense, error) {
	e := &models.Expense{}
	err := s.q.QueryRowContext(ctx, `
		SELECT id, trip_id, spent_by, amount, category, description, spent_at, created_at
		FROM expenses WHERE id = ?`, id,
	).Scan(&e.ID, &e.TripID, &e.SpentBy, &e.Amount, &e.Category, &e.Description, &e.SpentAt, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return e, nil
}

// ListExpenses retrieves all expenses for a trip, newest first.
func (s *SQLiteStore) ListExpenses(ctx context.Context, tripID string) ([]*models.Expense, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, trip_id, spent_by, amount, category, description, spent_at, created_at
		FROM expenses WHERE trip_id = ? ORDER BY spent_at DESC, id DESC`, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*models.Expense
	for rows.Next() {
		e := &models.Expense{}
		if err := rows.Scan(&e.ID, &e.TripID, &e.SpentBy, &e.Amount, &e.Category, &e.Description, &e.SpentAt, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expenses: %w", err)
	}
	return expenses, nil
}

// DeleteExpense removes an expense.
func (s *SQLiteStore) DeleteExpense(ctx context.Context, id string) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	return requireRow(res)
}

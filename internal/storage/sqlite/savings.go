package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/adnfaris/tripdana/internal/models"
	"github.com/adnfaris/tripdana/internal/storage"
)

const savingsColumns = `id, trip_id, user_id, amount, payment_method, payment_status,
	transaction_id, order_id, details, notes, paid_at, expires_at, created_at`

// CreateSavings persists a new savings payment record.
func (s *SQLiteStore) CreateSavings(ctx context.Context, sv *models.Savings) error {
	details, err := marshalDetails(sv.Details)
	if err != nil {
		return err
	}
	_, err = s.q.ExecContext(ctx, `
		INSERT INTO savings (`+savingsColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sv.ID, sv.TripID, sv.UserID, sv.Amount, sv.Method, sv.Status,
		sv.TransactionID, sv.OrderID, details, sv.Notes, sv.PaidAt, sv.ExpiresAt, sv.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create savings: %w", err)
	}
	return nil
}

// GetSavings retrieves a savings record by ID.
func (s *SQLiteStore) GetSavings(ctx context.Context, id string) (*models.Savings, error) {
	return s.scanSavings(s.q.QueryRowContext(ctx,
		`SELECT `+savingsColumns+` FROM savings WHERE id = ?`, id))
}

// GetSavingsByOrderID retrieves a savings record by its gateway order reference.
func (s *SQLiteStore) GetSavingsByOrderID(ctx context.Context, orderID string) (*models.Savings, error) {
	return s.scanSavings(s.q.QueryRowContext(ctx,
		`SELECT `+savingsColumns+` FROM savings WHERE order_id = ?`, orderID))
}

func (s *SQLiteStore) scanSavings(row *sql.Row) (*models.Savings, error) {
	sv := &models.Savings{}
	var details string
	err := row.Scan(
		&sv.ID, &sv.TripID, &sv.UserID, &sv.Amount, &sv.Method, &sv.Status,
		&sv.TransactionID, &sv.OrderID, &details, &sv.Notes, &sv.PaidAt, &sv.ExpiresAt, &sv.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get savings: %w", err)
	}
	if err := unmarshalDetails(details, &sv.Details); err != nil {
		return nil, err
	}
	return sv, nil
}

// ListSavings retrieves all savings records for a trip, newest first.
func (s *SQLiteStore) ListSavings(ctx context.Context, tripID string) ([]*models.Savings, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+savingsColumns+` FROM savings WHERE trip_id = ? ORDER BY created_at DESC, id DESC`,
		tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to list savings: %w", err)
	}
	defer rows.Close()

	var list []*models.Savings
	for rows.Next() {
		sv := &models.Savings{}
		var details string
		if err := rows.Scan(
			&sv.ID, &sv.TripID, &sv.UserID, &sv.Amount, &sv.Method, &sv.Status,
			&sv.TransactionID, &sv.OrderID, &details, &sv.Notes, &sv.PaidAt, &sv.ExpiresAt, &sv.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan savings: %w", err)
		}
		if err := unmarshalDetails(details, &sv.Details); err != nil {
			return nil, err
		}
		list = append(list, sv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating savings: %w", err)
	}
	return list, nil
}

// UpdateSavings updates a savings record's reconciliation fields.
func (s *SQLiteStore) UpdateSavings(ctx context.Context, sv *models.Savings) error {
	details, err := marshalDetails(sv.Details)
	if err != nil {
		return err
	}
	res, err := s.q.ExecContext(ctx, `
		UPDATE savings SET payment_status = ?, transaction_id = ?, order_id = ?,
			details = ?, notes = ?, paid_at = ?, expires_at = ?
		WHERE id = ?`,
		sv.Status, sv.TransactionID, sv.OrderID, details, sv.Notes, sv.PaidAt, sv.ExpiresAt, sv.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update savings: %w", err)
	}
	return requireRow(res)
}

// ListContributions aggregates successful savings per member for a trip.
func (s *SQLiteStore) ListContributions(ctx context.Context, tripID string) ([]models.Contribution, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT user_id, SUM(amount) FROM savings
		WHERE trip_id = ? AND payment_status = ?
		GROUP BY user_id ORDER BY SUM(amount) DESC`,
		tripID, models.PaymentSuccess)
	if err != nil {
		return nil, fmt.Errorf("failed to list contributions: %w", err)
	}
	defer rows.Close()

	var contributions []models.Contribution
	for rows.Next() {
		var c models.Contribution
		if err := rows.Scan(&c.UserID, &c.Total); err != nil {
			return nil, fmt.Errorf("failed to scan contribution: %w", err)
		}
		contributions = append(contributions, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contributions: %w", err)
	}
	return contributions, nil
}

func marshalDetails(details map[string]any) (string, error) {
	if details == nil {
		return "{}", nil
	}
	b, err := json.Marshal(details)
	if err != nil {
		return "", fmt.Errorf("failed to marshal details: %w", err)
	}
	return string(b), nil
}

func unmarshalDetails(raw string, dst *map[string]any) error {
	if raw == "" || raw == "{}" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("failed to unmarshal details: %w", err)
	}
	return nil
}

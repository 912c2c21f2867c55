package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/adnfaris/tripdana/internal/models"
	"github.com/adnfaris/tripdana/internal/storage"
)

const tripColumns = `id, name, description, destination, start_date, end_date,
	target_amount, status, join_code, created_by, created_at, updated_at`

// CreateTrip persists a new trip.
func (s *SQLiteStore) CreateTrip(ctx context.Context, trip *models.Trip) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO trips (`+tripColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		trip.ID, trip.Name, trip.Description, trip.Destination,
		trip.StartDate, trip.EndDate, trip.TargetAmount, trip.Status,
		trip.JoinCode, trip.CreatedBy, trip.CreatedAt, trip.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create trip: %w", err)
	}
	return nil
}

// GetTrip retrieves a trip by ID.
func (s *SQLiteStore) GetTrip(ctx context.Context, id string) (*models.Trip, error) {
	return s.scanTrip(s.q.QueryRowContext(ctx,
		`SELECT `+tripColumns+` FROM trips WHERE id = ?`, id))
}

// GetTripByJoinCode retrieves a trip by its join code.
func (s *SQLiteStore) GetTripByJoinCode(ctx context.Context, code string) (*models.Trip, error) {
	return s.scanTrip(s.q.QueryRowContext(ctx,
		`SELECT `+tripColumns+` FROM trips WHERE join_code = ?`, code))
}

func (s *SQLiteStore) scanTrip(row *sql.Row) (*models.Trip, error) {
	trip := &models.Trip{}
	err := row.Scan(
		&trip.ID, &trip.Name, &trip.Description, &trip.Destination,
		&trip.StartDate, &trip.EndDate, &trip.TargetAmount, &trip.Status,
		&trip.JoinCode, &trip.CreatedBy, &trip.CreatedAt, &trip.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return trip, nil
}

// ListTripsForUser retrieves all trips where the user has a membership with
// the given status, newest first.
func (s *SQLiteStore) ListTripsForUser(ctx context.Context, userID string, status models.MemberStatus) ([]*models.Trip, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT t.id, t.name, t.description, t.destination, t.start_date, t.end_date,
			t.target_amount, t.status, t.join_code, t.created_by, t.created_at, t.updated_at
		FROM trips t
		JOIN trip_members m ON m.trip_id = t.id
		WHERE m.user_id = ? AND m.status = ?
		ORDER BY t.created_at DESC`, userID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}
	defer rows.Close()

	var trips []*models.Trip
	for rows.Next() {
		trip := &models.Trip{}
		if err := rows.Scan(
			&trip.ID, &trip.Name, &trip.Description, &trip.Destination,
			&trip.StartDate, &trip.EndDate, &trip.TargetAmount, &trip.Status,
			&trip.JoinCode, &trip.CreatedBy, &trip.CreatedAt, &trip.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan trip: %w", err)
		}
		trips = append(trips, trip)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trips: %w", err)
	}
	return trips, nil
}

// UpdateTrip updates an existing trip.
func (s *SQLiteStore) UpdateTrip(ctx context.Context, trip *models.Trip) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE trips SET name = ?, description = ?, destination = ?, start_date = ?,
			end_date = ?, target_amount = ?, status = ?, join_code = ?, updated_at = ?
		WHERE id = ?`,
		trip.Name, trip.Description, trip.Destination, trip.StartDate,
		trip.EndDate, trip.TargetAmount, trip.Status, trip.JoinCode, trip.UpdatedAt, trip.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update trip: %w", err)
	}
	return requireRow(res)
}

// DeleteTrip removes a trip and, via foreign keys, its dependent rows.
func (s *SQLiteStore) DeleteTrip(ctx context.Context, id string) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM trips WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete trip: %w", err)
	}
	return requireRow(res)
}

// TripTotals aggregates the trip's financials: successful savings, recorded
// expenses, remaining balance and progress towards the target.
func (s *SQLiteStore) TripTotals(ctx context.Context, trip *models.Trip) (*models.TripTotals, error) {
	totals := &models.TripTotals{}

	err := s.q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM savings
		WHERE trip_id = ? AND payment_status = ?`,
		trip.ID, models.PaymentSuccess,
	).Scan(&totals.TotalSavings)
	if err != nil {
		return nil, fmt.Errorf("failed to sum savings: %w", err)
	}

	err = s.q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM expenses WHERE trip_id = ?`,
		trip.ID,
	).Scan(&totals.TotalExpenses)
	if err != nil {
		return nil, fmt.Errorf("failed to sum expenses: %w", err)
	}

	totals.RemainingBalance = totals.TotalSavings - totals.TotalExpenses
	totals.SavingsProgress = trip.Progress(totals.TotalSavings)
	return totals, nil
}

// requireRow converts a zero-row update/delete into storage.ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/adnfaris/tripdana/internal/models"
	"github.com/adnfaris/tripdana/internal/storage"
)

const destinationColumns = `id, trip_id, name, description, location, location_url,
	visit_date, start_time, end_time, sort_order, estimated_cost, category, created_at`

// CreateDestination persists a new itinerary item.
func (s *SQLiteStore) CreateDestination(ctx context.Context, d *models.Destination) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO destinations (`+destinationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.TripID, d.Name, d.Description, d.Location, d.LocationURL,
		d.VisitDate, d.StartTime, d.EndTime, d.Order, d.EstimatedCost, d.Category, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}
	return nil
}

// GetDestination retrieves an itinerary item by ID.
func (s *SQLiteStore) GetDestination(ctx context.Context, id string) (*models.Destination, error) {
	d := &models.Destination{}
	err := s.q.QueryRowContext(ctx,
		`SELECT `+destinationColumns+` FROM destinations WHERE id = ?`, id,
	).Scan(
		&d.ID, &d.TripID, &d.Name, &d.Description, &d.Location, &d.LocationURL,
		&d.VisitDate, &d.StartTime, &d.EndTime, &d.Order, &d.EstimatedCost, &d.Category, &d.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get destination: %w", err)
	}
	return d, nil
}

// ListDestinations retrieves a trip's itinerary ordered by visit date then
// explicit order.
func (s *SQLiteStore) ListDestinations(ctx context.Context, tripID string) ([]*models.Destination, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+destinationColumns+` FROM destinations WHERE trip_id = ? ORDER BY visit_date, sort_order`,
		tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to list destinations: %w", err)
	}
	defer rows.Close()

	var destinations []*models.Destination
	for rows.Next() {
		d := &models.Destination{}
		if err := rows.Scan(
			&d.ID, &d.TripID, &d.Name, &d.Description, &d.Location, &d.LocationURL,
			&d.VisitDate, &d.StartTime, &d.EndTime, &d.Order, &d.EstimatedCost, &d.Category, &d.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan destination: %w", err)
		}
		destinations = append(destinations, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating destinations: %w", err)
	}
	return destinations, nil
}

// UpdateDestination updates an itinerary item.
func (s *SQLiteStore) UpdateDestination(ctx context.Context, d *models.Destination) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE destinations SET name = ?, description = ?, location = ?, location_url = ?,
			visit_date = ?, start_time = ?, end_time = ?, sort_order = ?, estimated_cost = ?, category = ?
		WHERE id = ?`,
		d.Name, d.Description, d.Location, d.LocationURL,
		d.VisitDate, d.StartTime, d.EndTime, d.Order, d.EstimatedCost, d.Category, d.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update destination: %w", err)
	}
	return requireRow(res)
}

// DeleteDestination removes an itinerary item.
func (s *SQLiteStore) DeleteDestination(ctx context.Context, id string) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM destinations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete destination: %w", err)
	}
	return requireRow(res)
}

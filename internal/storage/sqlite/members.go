package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/adnfaris/tripdana/internal/models"
	"github.com/adnfaris/tripdana/internal/storage"
)

const memberColumns = `id, trip_id, user_id, role, status, joined_at, created_at`

// CreateMember inserts a new trip membership row. The (trip, user) pair is
// unique; violating it surfaces the constraint error to the caller.
func (s *SQLiteStore) CreateMember(ctx context.Context, m *models.TripMember) error {
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO trip_members (trip_id, user_id, role, status, joined_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.TripID, m.UserID, m.Role, m.Status, m.JoinedAt, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create member: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read member id: %w", err)
	}
	m.ID = id
	return nil
}

// GetMember retrieves the membership row for a (trip, user) pair.
func (s *SQLiteStore) GetMember(ctx context.Context, tripID, userID string) (*models.TripMember, error) {
	return s.scanMember(s.q.QueryRowContext(ctx,
		`SELECT `+memberColumns+` FROM trip_members WHERE trip_id = ? AND user_id = ?`,
		tripID, userID))
}

// GetMemberByID retrieves a membership row by its id, scoped to a trip.
func (s *SQLiteStore) GetMemberByID(ctx context.Context, tripID string, id int64) (*models.TripMember, error) {
	return s.scanMember(s.q.QueryRowContext(ctx,
		`SELECT `+memberColumns+` FROM trip_members WHERE trip_id = ? AND id = ?`,
		tripID, id))
}

func (s *SQLiteStore) scanMember(row *sql.Row) (*models.TripMember, error) {
	m := &models.TripMember{}
	err := row.Scan(&m.ID, &m.TripID, &m.UserID, &m.Role, &m.Status, &m.JoinedAt, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return m, nil
}

// ListMembers retrieves all membership rows for a trip.
func (s *SQLiteStore) ListMembers(ctx context.Context, tripID string) ([]*models.TripMember, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+memberColumns+` FROM trip_members WHERE trip_id = ? ORDER BY id`, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*models.TripMember
	for rows.Next() {
		m := &models.TripMember{}
		if err := rows.Scan(&m.ID, &m.TripID, &m.UserID, &m.Role, &m.Status, &m.JoinedAt, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}
	return members, nil
}

// UpdateMember updates a membership row's role, status and joined_at.
func (s *SQLiteStore) UpdateMember(ctx context.Context, m *models.TripMember) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE trip_members SET role = ?, status = ?, joined_at = ? WHERE id = ?`,
		m.Role, m.Status, m.JoinedAt, m.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update member: %w", err)
	}
	return requireRow(res)
}

// DeleteMember removes a membership row (used for declined invitations).
func (s *SQLiteStore) DeleteMember(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM trip_members WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}
	return requireRow(res)
}

// CountMembers counts trip memberships with the given status.
func (s *SQLiteStore) CountMembers(ctx context.Context, tripID string, status models.MemberStatus) (int, error) {
	var n int
	err := s.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM trip_members WHERE trip_id = ? AND status = ?`,
		tripID, status,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}
	return n, nil
}

// CountActiveAdmins counts the trip's currently active admins. Callers that
// mutate membership must run this inside the same transaction as the mutation.
func (s *SQLiteStore) CountActiveAdmins(ctx context.Context, tripID string) (int, error) {
	var n int
	err := s.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM trip_members WHERE trip_id = ? AND role = ? AND status = ?`,
		tripID, models.RoleAdmin, models.MemberActive,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count admins: %w", err)
	}
	return n, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/adnfaris/tripdana/internal/models"
	"github.com/adnfaris/tripdana/internal/storage"
)

const withdrawalColumns = `id, trip_id, requested_by, amount, reason, description,
	status, votes_required, votes_approve, votes_reject, voting_deadline, processed_at, created_at`

// CreateWithdrawal persists a new withdrawal request.
func (s *SQLiteStore) CreateWithdrawal(ctx context.Context, w *models.Withdrawal) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO withdrawals (`+withdrawalColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.TripID, w.RequestedBy, w.Amount, w.Reason, w.Description,
		w.Status, w.VotesRequired, w.VotesApprove, w.VotesReject,
		w.VotingDeadline, w.ProcessedAt, w.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create withdrawal: %w", err)
	}
	return nil
}

// GetWithdrawal retrieves a withdrawal by ID.
func (s *SQLiteStore) GetWithdrawal(ctx context.Context, id string) (*models.Withdrawal, error) {
	w := &models.Withdrawal{}
	err := s.q.QueryRowContext(ctx,
		`SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = ?`, id,
	).Scan(
		&w.ID, &w.TripID, &w.RequestedBy, &w.Amount, &w.Reason, &w.Description,
		&w.Status, &w.VotesRequired, &w.VotesApprove, &w.VotesReject,
		&w.VotingDeadline, &w.ProcessedAt, &w.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get withdrawal: %w", err)
	}
	return w, nil
}

// ListWithdrawals retrieves all withdrawals for a trip, newest first.
func (s *SQLiteStore) ListWithdrawals(ctx context.Context, tripID string) ([]*models.Withdrawal, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+withdrawalColumns+` FROM withdrawals WHERE trip_id = ? ORDER BY created_at DESC, id DESC`,
		tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}
	defer rows.Close()

	var list []*models.Withdrawal
	for rows.Next() {
		w := &models.Withdrawal{}
		if err := rows.Scan(
			&w.ID, &w.TripID, &w.RequestedBy, &w.Amount, &w.Reason, &w.Description,
			&w.Status, &w.VotesRequired, &w.VotesApprove, &w.VotesReject,
			&w.VotingDeadline, &w.ProcessedAt, &w.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan withdrawal: %w", err)
		}
		list = append(list, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating withdrawals: %w", err)
	}
	return list, nil
}

// UpdateWithdrawal updates a withdrawal's vote counters and status.
func (s *SQLiteStore) UpdateWithdrawal(ctx context.Context, w *models.Withdrawal) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE withdrawals SET status = ?, votes_approve = ?, votes_reject = ?, processed_at = ?
		WHERE id = ?`,
		w.Status, w.VotesApprove, w.VotesReject, w.ProcessedAt, w.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update withdrawal: %w", err)
	}
	return requireRow(res)
}

// CreateVote persists a vote. The (withdrawal, user) pair is unique and votes
// are never updated afterwards.
func (s *SQLiteStore) CreateVote(ctx context.Context, v *models.WithdrawalVote) error {
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO withdrawal_votes (withdrawal_id, user_id, approved, comment, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		v.WithdrawalID, v.UserID, v.Approved, v.Comment, v.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create vote: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read vote id: %w", err)
	}
	v.ID = id
	return nil
}

// GetVote retrieves a user's vote on a withdrawal.
func (s *SQLiteStore) GetVote(ctx context.Context, withdrawalID, userID string) (*models.WithdrawalVote, error) {
	v := &models.WithdrawalVote{}
	err := s.q.QueryRowContext(ctx, `
		SELECT id, withdrawal_id, user_id, approved, comment, created_at
		FROM withdrawal_votes WHERE withdrawal_id = ? AND user_id = ?`,
		withdrawalID, userID,
	).Scan(&v.ID, &v.WithdrawalID, &v.UserID, &v.Approved, &v.Comment, &v.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vote: %w", err)
	}
	return v, nil
}

// ListVotes retrieves all votes for a withdrawal in cast order.
func (s *SQLiteStore) ListVotes(ctx context.Context, withdrawalID string) ([]*models.WithdrawalVote, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, withdrawal_id, user_id, approved, comment, created_at
		FROM withdrawal_votes WHERE withdrawal_id = ? ORDER BY id`,
		withdrawalID)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	defer rows.Close()

	var votes []*models.WithdrawalVote
	for rows.Next() {
		v := &models.WithdrawalVote{}
		if err := rows.Scan(&v.ID, &v.WithdrawalID, &v.UserID, &v.Approved, &v.Comment, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating votes: %w", err)
	}
	return votes, nil
}

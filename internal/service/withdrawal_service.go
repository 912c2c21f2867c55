package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/adnfaris/tripdana/internal/metrics"
	"github.com/adnfaris/tripdana/internal/models"
	"github.com/adnfaris/tripdana/internal/realtime"
	"github.com/adnfaris/tripdana/internal/storage"
)

const (
	// MinWithdrawalAmount is the smallest amount that can be requested.
	MinWithdrawalAmount = 10000

	minVotingDays = 1
	maxVotingDays = 7
)

// WithdrawalService implements the shared-fund withdrawal voting state
// machine. A request starts pending with a quorum frozen at creation; it is
// approved the moment approvals reach quorum and rejected lazily once the
// deadline passes without quorum. Terminal states never change.
type WithdrawalService struct {
	store storage.Store
	hub   Broadcaster
	now   func() time.Time
}

// NewWithdrawalService creates a WithdrawalService.
func NewWithdrawalService(store storage.Store, hub Broadcaster) *WithdrawalService {
	return &WithdrawalService{store: store, hub: hub, now: time.Now}
}

// CreateWithdrawalInput is the caller-supplied part of a withdrawal request.
type CreateWithdrawalInput struct {
	Amount      float64
	Reason      string
	Description string
	// VotingDays is the voting window length, 1 to 7 days.
	VotingDays int
}

// Create opens a withdrawal request. The requester must be an active admin;
// their approve vote is cast automatically, so a quorum of 1 approves the
// request immediately.
func (s *WithdrawalService) Create(ctx context.Context, actor *models.User, tripID string, in CreateWithdrawalInput, meta RequestMeta) (*models.Withdrawal, error) {
	if in.Amount < MinWithdrawalAmount {
		return nil, validationErr("amount must be at least %d", MinWithdrawalAmount)
	}
	if in.Reason == "" {
		return nil, validationErr("reason is required")
	}
	if in.VotingDays < minVotingDays || in.VotingDays > maxVotingDays {
		return nil, validationErr("voting window must be between %d and %d days", minVotingDays, maxVotingDays)
	}

	now := s.now()
	var w *models.Withdrawal

	err := s.store.InTx(ctx, func(st storage.Store) error {
		if _, err := activeAdminOf(ctx, st, tripID, actor.ID); err != nil {
			return err
		}

		trip, err := st.GetTrip(ctx, tripID)
		if err != nil {
			return err
		}
		totals, err := st.TripTotals(ctx, trip)
		if err != nil {
			return err
		}
		if in.Amount > totals.RemainingBalance {
			return ErrInsufficientBalance
		}

		activeCount, err := st.CountMembers(ctx, tripID, models.MemberActive)
		if err != nil {
			return err
		}

		w = &models.Withdrawal{
			ID:             models.NewID(),
			TripID:         tripID,
			RequestedBy:    actor.ID,
			Amount:         in.Amount,
			Reason:         in.Reason,
			Description:    in.Description,
			Status:         models.WithdrawalPending,
			VotesRequired:  (activeCount + 1) / 2, // ceil(active/2), frozen here
			VotesApprove:   1,                     // requester auto-approves
			VotesReject:    0,
			VotingDeadline: now.AddDate(0, 0, in.VotingDays).Unix(),
			CreatedAt:      now.Unix(),
		}
		s.evaluate(w, now)

		if err := st.CreateWithdrawal(ctx, w); err != nil {
			return err
		}
		if err := st.CreateVote(ctx, &models.WithdrawalVote{
			WithdrawalID: w.ID,
			UserID:       actor.ID,
			Approved:     true,
			Comment:      "Requested by me",
			CreatedAt:    now.Unix(),
		}); err != nil {
			return err
		}

		return appendAudit(ctx, st, &models.AuditLog{
			TripID:  tripID,
			UserID:  actor.ID,
			Action:  models.ActionWithdrawalRequested,
			Subject: models.AuditSubject{Kind: models.SubjectWithdrawal, ID: w.ID},
			NewValues: map[string]any{
				"amount":    w.Amount,
				"reason":    w.Reason,
				"requester": actor.DisplayName,
			},
			IPAddress: meta.IP,
			UserAgent: meta.UserAgent,
		}, now)
	})
	if err != nil {
		return nil, err
	}

	s.publishVoteUpdate(w)
	if w.Status != models.WithdrawalPending {
		metrics.WithdrawalOutcomes.WithLabelValues(string(w.Status)).Inc()
	}
	slog.Info("Withdrawal requested",
		"withdrawal_id", w.ID, "trip_id", tripID,
		"amount", w.Amount, "quorum", w.VotesRequired, "status", w.Status)
	return w, nil
}

// Vote casts an approve/reject vote on a pending withdrawal. It fails if
// voting is closed (not pending, or past the deadline) or the user already
// voted. The deadline is evaluated lazily here: a pending request past its
// deadline transitions to rejected before the closed-voting check.
func (s *WithdrawalService) Vote(ctx context.Context, actor *models.User, tripID, withdrawalID string, approved bool, comment string, meta RequestMeta) (*models.Withdrawal, error) {
	now := s.now()
	var (
		w       *models.Withdrawal
		outcome models.WithdrawalStatus
		closed  bool
	)

	err := s.store.InTx(ctx, func(st storage.Store) error {
		if _, err := activeMemberOf(ctx, st, tripID, actor.ID); err != nil {
			return err
		}

		var err error
		w, err = s.tripWithdrawal(ctx, st, tripID, withdrawalID)
		if err != nil {
			return err
		}

		// Lazy deadline rejection: touching an expired pending request
		// settles it before anything else happens. The settle must commit,
		// so the closed-voting error is reported after the transaction.
		if changed := s.evaluate(w, now); changed {
			if err := st.UpdateWithdrawal(ctx, w); err != nil {
				return err
			}
			outcome = w.Status
		}

		if !w.IsVotingOpen(now) {
			closed = true
			return nil
		}

		if _, err := st.GetVote(ctx, withdrawalID, actor.ID); err == nil {
			return ErrAlreadyVoted
		} else if !errors.Is(err, storage.ErrNotFound) {
			return err
		}

		if err := st.CreateVote(ctx, &models.WithdrawalVote{
			WithdrawalID: withdrawalID,
			UserID:       actor.ID,
			Approved:     approved,
			Comment:      comment,
			CreatedAt:    now.Unix(),
		}); err != nil {
			return err
		}

		if approved {
			w.VotesApprove++
		} else {
			w.VotesReject++
		}
		if s.evaluate(w, now) {
			outcome = w.Status
		}
		if err := st.UpdateWithdrawal(ctx, w); err != nil {
			return err
		}

		return appendAudit(ctx, st, &models.AuditLog{
			TripID:  tripID,
			UserID:  actor.ID,
			Action:  models.ActionVoteCast,
			Subject: models.AuditSubject{Kind: models.SubjectWithdrawal, ID: w.ID},
			NewValues: map[string]any{
				"voter":    actor.DisplayName,
				"approved": approved,
			},
			IPAddress: meta.IP,
			UserAgent: meta.UserAgent,
		}, now)
	})
	if err != nil {
		return nil, err
	}

	if outcome != "" {
		metrics.WithdrawalOutcomes.WithLabelValues(string(outcome)).Inc()
	}
	if closed {
		if outcome != "" {
			s.publishVoteUpdate(w)
		}
		return nil, ErrVotingClosed
	}

	s.publishVoteUpdate(w)
	slog.Info("Vote cast",
		"withdrawal_id", w.ID, "trip_id", tripID, "approved", approved,
		"tally", w.VotesApprove, "quorum", w.VotesRequired, "status", w.Status)
	return w, nil
}

// List returns a trip's withdrawals, newest first. Pending requests whose
// deadline has passed are settled to rejected as part of the read, so callers
// never see a stale pending state.
func (s *WithdrawalService) List(ctx context.Context, actor *models.User, tripID string) ([]*models.Withdrawal, error) {
	now := s.now()
	var list []*models.Withdrawal

	err := s.store.InTx(ctx, func(st storage.Store) error {
		if _, err := memberOf(ctx, st, tripID, actor.ID); err != nil {
			return err
		}

		var err error
		list, err = st.ListWithdrawals(ctx, tripID)
		if err != nil {
			return err
		}

		for _, w := range list {
			if s.evaluate(w, now) {
				if err := st.UpdateWithdrawal(ctx, w); err != nil {
					return err
				}
				metrics.WithdrawalOutcomes.WithLabelValues(string(w.Status)).Inc()
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// Votes returns all votes cast on a withdrawal.
func (s *WithdrawalService) Votes(ctx context.Context, actor *models.User, tripID, withdrawalID string) ([]*models.WithdrawalVote, error) {
	if _, err := memberOf(ctx, s.store, tripID, actor.ID); err != nil {
		return nil, err
	}
	if _, err := s.tripWithdrawal(ctx, s.store, tripID, withdrawalID); err != nil {
		return nil, err
	}
	return s.store.ListVotes(ctx, withdrawalID)
}

// Cancel withdraws a pending request. Only the requester may cancel.
func (s *WithdrawalService) Cancel(ctx context.Context, actor *models.User, tripID, withdrawalID string) (*models.Withdrawal, error) {
	now := s.now()
	var w *models.Withdrawal

	err := s.store.InTx(ctx, func(st storage.Store) error {
		if _, err := activeAdminOf(ctx, st, tripID, actor.ID); err != nil {
			return err
		}

		var err error
		w, err = s.tripWithdrawal(ctx, st, tripID, withdrawalID)
		if err != nil {
			return err
		}
		if w.RequestedBy != actor.ID {
			return ErrNotRequester
		}
		if w.Status != models.WithdrawalPending {
			return ErrWithdrawalNotOpen
		}

		w.Status = models.WithdrawalCancelled
		w.ProcessedAt = now.Unix()
		return st.UpdateWithdrawal(ctx, w)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Withdrawal cancelled", "withdrawal_id", w.ID, "trip_id", tripID)
	return w, nil
}

// Complete marks an approved withdrawal as completed after the funds have
// been transferred out.
func (s *WithdrawalService) Complete(ctx context.Context, actor *models.User, tripID, withdrawalID string, meta RequestMeta) (*models.Withdrawal, error) {
	now := s.now()
	var w *models.Withdrawal

	err := s.store.InTx(ctx, func(st storage.Store) error {
		if _, err := activeAdminOf(ctx, st, tripID, actor.ID); err != nil {
			return err
		}

		var err error
		w, err = s.tripWithdrawal(ctx, st, tripID, withdrawalID)
		if err != nil {
			return err
		}
		if w.Status != models.WithdrawalApproved {
			return ErrWithdrawalNotReady
		}

		w.Status = models.WithdrawalCompleted
		w.ProcessedAt = now.Unix()
		if err := st.UpdateWithdrawal(ctx, w); err != nil {
			return err
		}

		return appendAudit(ctx, st, &models.AuditLog{
			TripID:    tripID,
			UserID:    actor.ID,
			Action:    models.ActionWithdrawalCompleted,
			Subject:   models.AuditSubject{Kind: models.SubjectWithdrawal, ID: w.ID},
			NewValues: map[string]any{"amount": w.Amount},
			IPAddress: meta.IP,
			UserAgent: meta.UserAgent,
		}, now)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Withdrawal completed", "withdrawal_id", w.ID, "trip_id", tripID, "amount", w.Amount)
	return w, nil
}

// tripWithdrawal loads a withdrawal and verifies it belongs to the trip.
func (s *WithdrawalService) tripWithdrawal(ctx context.Context, st storage.Store, tripID, withdrawalID string) (*models.Withdrawal, error) {
	w, err := st.GetWithdrawal(ctx, withdrawalID)
	if err != nil {
		return nil, err
	}
	if w.TripID != tripID {
		return nil, storage.ErrNotFound
	}
	return w, nil
}

// evaluate applies the voting state machine to a withdrawal and reports
// whether the status changed. Quorum approval wins over the deadline: it is
// checked after every vote, so approval can land before the deadline, while
// rejection only happens once the deadline has passed without quorum.
func (s *WithdrawalService) evaluate(w *models.Withdrawal, now time.Time) bool {
	if w.Status != models.WithdrawalPending {
		return false
	}
	switch {
	case w.QuorumReached():
		w.Status = models.WithdrawalApproved
	case now.Unix() >= w.VotingDeadline:
		w.Status = models.WithdrawalRejected
	default:
		return false
	}
	w.ProcessedAt = now.Unix()
	return true
}

// publishVoteUpdate emits the withdrawal.vote event with the current tally.
func (s *WithdrawalService) publishVoteUpdate(w *models.Withdrawal) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(w.TripID, realtime.EventWithdrawalVote, map[string]any{
		"withdrawal_id":     w.ID,
		"status":            w.Status,
		"votes_approve":     w.VotesApprove,
		"votes_reject":      w.VotesReject,
		"votes_required":    w.VotesRequired,
		"approval_progress": w.ApprovalProgress(),
		"is_voting_open":    w.IsVotingOpen(s.now()),
	})
}

package models

import "time"

// WithdrawalStatus is the state of a shared-fund withdrawal request.
type WithdrawalStatus string

const (
	WithdrawalPending   WithdrawalStatus = "pending"
	WithdrawalApproved  WithdrawalStatus = "approved"
	WithdrawalRejected  WithdrawalStatus = "rejected"
	WithdrawalCompleted WithdrawalStatus = "completed"
	WithdrawalCancelled WithdrawalStatus = "cancelled"
)

// Withdrawal is a request to take money out of the trip's shared savings.
// It is approved by member vote: quorum is the majority of active members
// at creation time and is never recomputed afterwards.
type Withdrawal struct {
	ID          string
	TripID      string
	RequestedBy string
	Amount      float64
	Reason      string
	Description string

	Status WithdrawalStatus

	// VotesRequired is ceil(active members / 2) frozen at creation.
	VotesRequired int
	VotesApprove  int
	VotesReject   int

	// VotingDeadline is the Unix timestamp after which an undecided request
	// is rejected on next touch.
	VotingDeadline int64

	// ProcessedAt is set when the request leaves the pending state.
	ProcessedAt int64
	CreatedAt   int64
}

// IsVotingOpen reports whether new votes are accepted: the request must
// still be pending and the deadline must not have passed.
func (w *Withdrawal) IsVotingOpen(now time.Time) bool {
	return w.Status == WithdrawalPending && now.Unix() < w.VotingDeadline
}

// QuorumReached reports whether approvals meet the required quorum.
func (w *Withdrawal) QuorumReached() bool {
	return w.VotesApprove >= w.VotesRequired
}

// ApprovalProgress returns approvals as a percentage of quorum, capped at 100.
func (w *Withdrawal) ApprovalProgress() float64 {
	if w.VotesRequired <= 0 {
		return 0
	}
	p := float64(w.VotesApprove) / float64(w.VotesRequired) * 100
	if p > 100 {
		return 100
	}
	return p
}

// TotalVotes returns the number of votes cast so far.
func (w *Withdrawal) TotalVotes() int {
	return w.VotesApprove + w.VotesReject
}

// WithdrawalVote is one member's vote on a withdrawal. Votes are immutable
// once cast and unique per (withdrawal, user).
type WithdrawalVote struct {
	ID           int64
	WithdrawalID string
	UserID       string
	Approved     bool
	Comment      string
	CreatedAt    int64
}

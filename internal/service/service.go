// Package service implements the business logic on top of the storage layer:
// trip lifecycle, membership and the admin invariant, savings payments with
// gateway reconciliation, withdrawal voting, expenses, itinerary and the
// audit trail.
//
// Every operation takes the acting user explicitly; there is no ambient
// "current user". Operations that check an invariant before mutating run the
// whole sequence inside Store.InTx so concurrent requests serialize.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/adnfaris/tripdana/internal/models"
	"github.com/adnfaris/tripdana/internal/realtime"
	"github.com/adnfaris/tripdana/internal/storage"
)

// Recoverable domain errors surfaced to the caller with a specific message.
var (
	ErrNotMember           = errors.New("you are not a member of this trip")
	ErrNotActiveMember     = errors.New("you are not an active member of this trip")
	ErrNotAdmin            = errors.New("only a trip admin can perform this action")
	ErrValidation          = errors.New("validation failed")
	ErrVotingClosed        = errors.New("voting is closed")
	ErrAlreadyVoted        = errors.New("you have already voted on this withdrawal")
	ErrLastAdmin           = errors.New("a trip must keep at least one active admin")
	ErrAlreadyMember       = errors.New("user is already a member or has a pending invitation")
	ErrNotRequester        = errors.New("only the requester can cancel this withdrawal")
	ErrWithdrawalNotOpen   = errors.New("withdrawal is no longer pending")
	ErrWithdrawalNotReady  = errors.New("withdrawal has not been approved")
	ErrTerminalPayment     = errors.New("payment is already in a terminal state")
	ErrInsufficientBalance = errors.New("amount exceeds the trip's remaining balance")
	ErrJoinCodeNotFound    = errors.New("join code not found")
)

// Broadcaster pushes a domain event onto a trip's private realtime channel.
// Publishing is fire-and-forget; implementations must never block.
type Broadcaster interface {
	Publish(tripID, event string, data any)
}

// RequestMeta carries request attribution recorded in the audit trail.
type RequestMeta struct {
	IP        string
	UserAgent string
}

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// memberOf returns the caller's membership row, or ErrNotMember if the user
// has never been associated with the trip. Mirrors the original view policy:
// any membership row grants read access.
func memberOf(ctx context.Context, st storage.Store, tripID, userID string) (*models.TripMember, error) {
	m, err := st.GetMember(ctx, tripID, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotMember
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// activeMemberOf returns the caller's membership row and requires it to be
// active. Mutating operations use this.
func activeMemberOf(ctx context.Context, st storage.Store, tripID, userID string) (*models.TripMember, error) {
	m, err := memberOf(ctx, st, tripID, userID)
	if err != nil {
		return nil, err
	}
	if m.Status != models.MemberActive {
		return nil, ErrNotActiveMember
	}
	return m, nil
}

// activeAdminOf returns the caller's membership row and requires an active
// admin role.
func activeAdminOf(ctx context.Context, st storage.Store, tripID, userID string) (*models.TripMember, error) {
	m, err := activeMemberOf(ctx, st, tripID, userID)
	if err != nil {
		return nil, err
	}
	if m.Role != models.RoleAdmin {
		return nil, ErrNotAdmin
	}
	return m, nil
}

// publishMemberJoined emits the member.joined event with the new active
// member count so clients can update rosters without a second request.
func publishMemberJoined(ctx context.Context, st storage.Store, hub Broadcaster, tripID string, u *models.User) {
	if hub == nil {
		return
	}
	payload := map[string]any{
		"user_id":      u.ID,
		"display_name": u.DisplayName,
		"user_email":   u.Email,
	}
	if n, err := st.CountMembers(ctx, tripID, models.MemberActive); err == nil {
		payload["members_count"] = n
	}
	hub.Publish(tripID, realtime.EventMemberJoined, payload)
}

// appendAudit fills in the entry id and timestamp and appends it. It must be
// called with the transaction-scoped store when part of a mutation.
func appendAudit(ctx context.Context, st storage.Store, entry *models.AuditLog, now time.Time) error {
	entry.ID = models.NewID()
	entry.CreatedAt = now.Unix()
	if err := st.AppendAudit(ctx, entry); err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

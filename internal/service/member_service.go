package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/adnfaris/tripdana/internal/models"
	"github.com/adnfaris/tripdana/internal/storage"
)

// MemberService manages trip membership: email invitations, the
// accept/decline flow, role changes, removal and leaving. Every path that
// could drop an admin runs its count check and mutation in one transaction,
// so a trip can never end up without an active admin.
type MemberService struct {
	store storage.Store
	hub   Broadcaster
	now   func() time.Time
}

// NewMemberService creates a MemberService.
func NewMemberService(store storage.Store, hub Broadcaster) *MemberService {
	return &MemberService{store: store, hub: hub, now: time.Now}
}

// MemberView is a membership row joined with the user's public profile.
type MemberView struct {
	Member *models.TripMember
	User   *models.User
}

// List returns all membership rows for a trip with user details.
func (s *MemberService) List(ctx context.Context, actor *models.User, tripID string) ([]*MemberView, error) {
	if _, err := memberOf(ctx, s.store, tripID, actor.ID); err != nil {
		return nil, err
	}

	members, err := s.store.ListMembers(ctx, tripID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	users, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]*MemberView, 0, len(members))
	for _, m := range members {
		views = append(views, &MemberView{Member: m, User: users[m.UserID]})
	}
	return views, nil
}

// Invite creates a pending invitation for a registered user by email.
// Admin only.
func (s *MemberService) Invite(ctx context.Context, actor *models.User, tripID, email string, role models.MemberRole) (*models.TripMember, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, validationErr("email is required")
	}
	if role == "" {
		role = models.RoleMember
	}
	if !role.Valid() {
		return nil, validationErr("unknown role %q", role)
	}

	now := s.now()
	var member *models.TripMember

	err := s.store.InTx(ctx, func(st storage.Store) error {
		if _, err := activeAdminOf(ctx, st, tripID, actor.ID); err != nil {
			return err
		}

		invitee, err := st.GetUserByEmail(ctx, email)
		if errors.Is(err, storage.ErrNotFound) {
			return validationErr("no registered user with email %s", email)
		}
		if err != nil {
			return err
		}

		existing, err := st.GetMember(ctx, tripID, invitee.ID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			member = &models.TripMember{
				TripID:    tripID,
				UserID:    invitee.ID,
				Role:      role,
				Status:    models.MemberPending,
				CreatedAt: now.Unix(),
			}
			return st.CreateMember(ctx, member)
		case err != nil:
			return err
		case existing.Status == models.MemberLeft:
			existing.Role = role
			existing.Status = models.MemberPending
			existing.JoinedAt = 0
			member = existing
			return st.UpdateMember(ctx, existing)
		default:
			return ErrAlreadyMember
		}
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Member invited", "trip_id", tripID, "email", email, "role", role)
	return member, nil
}

// Accept turns the caller's pending invitation into an active membership.
func (s *MemberService) Accept(ctx context.Context, actor *models.User, tripID string, meta RequestMeta) (*models.TripMember, error) {
	now := s.now()
	var member *models.TripMember

	err := s.store.InTx(ctx, func(st storage.Store) error {
		var err error
		member, err = memberOf(ctx, st, tripID, actor.ID)
		if err != nil {
			return err
		}
		if member.Status != models.MemberPending {
			return validationErr("no pending invitation for this trip")
		}

		member.Status = models.MemberActive
		member.JoinedAt = now.Unix()
		if err := st.UpdateMember(ctx, member); err != nil {
			return err
		}

		return appendAudit(ctx, st, &models.AuditLog{
			TripID:  tripID,
			UserID:  actor.ID,
			Action:  models.ActionMemberJoined,
			Subject: models.AuditSubject{Kind: models.SubjectMember, ID: strconv.FormatInt(member.ID, 10)},
			NewValues: map[string]any{
				"member": actor.DisplayName,
				"via":    "invitation",
			},
			IPAddress: meta.IP,
			UserAgent: meta.UserAgent,
		}, now)
	})
	if err != nil {
		return nil, err
	}

	publishMemberJoined(ctx, s.store, s.hub, tripID, actor)
	slog.Info("Invitation accepted", "trip_id", tripID, "user_id", actor.ID)
	return member, nil
}

// Decline removes the caller's pending invitation.
func (s *MemberService) Decline(ctx context.Context, actor *models.User, tripID string) error {
	err := s.store.InTx(ctx, func(st storage.Store) error {
		member, err := memberOf(ctx, st, tripID, actor.ID)
		if err != nil {
			return err
		}
		if member.Status != models.MemberPending {
			return validationErr("no pending invitation for this trip")
		}
		return st.DeleteMember(ctx, member.ID)
	})
	if err != nil {
		return err
	}
	slog.Info("Invitation declined", "trip_id", tripID, "user_id", actor.ID)
	return nil
}

// UpdateRole changes a member's role. Admin only. Demoting the last active
// admin is refused.
func (s *MemberService) UpdateRole(ctx context.Context, actor *models.User, tripID string, memberID int64, role models.MemberRole) (*models.TripMember, error) {
	if !role.Valid() {
		return nil, validationErr("unknown role %q", role)
	}

	var member *models.TripMember
	err := s.store.InTx(ctx, func(st storage.Store) error {
		if _, err := activeAdminOf(ctx, st, tripID, actor.ID); err != nil {
			return err
		}

		var err error
		member, err = st.GetMemberByID(ctx, tripID, memberID)
		if err != nil {
			return err
		}
		if member.Role == role {
			return nil
		}

		if member.IsActiveAdmin() && role != models.RoleAdmin {
			if err := s.requireAnotherAdmin(ctx, st, tripID); err != nil {
				return err
			}
		}

		member.Role = role
		return st.UpdateMember(ctx, member)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Member role updated", "trip_id", tripID, "member_id", memberID, "role", role)
	return member, nil
}

// Remove marks a member as left on their behalf. Admin only. The row is kept
// so the member's contribution history survives and a later rejoin
// reactivates it. Removing the last active admin is refused.
func (s *MemberService) Remove(ctx context.Context, actor *models.User, tripID string, memberID int64, meta RequestMeta) error {
	now := s.now()

	err := s.store.InTx(ctx, func(st storage.Store) error {
		if _, err := activeAdminOf(ctx, st, tripID, actor.ID); err != nil {
			return err
		}

		member, err := st.GetMemberByID(ctx, tripID, memberID)
		if err != nil {
			return err
		}
		if member.Status == models.MemberLeft {
			return nil
		}
		if member.IsActiveAdmin() {
			if err := s.requireAnotherAdmin(ctx, st, tripID); err != nil {
				return err
			}
		}
		member.Status = models.MemberLeft
		if err := st.UpdateMember(ctx, member); err != nil {
			return err
		}

		return appendAudit(ctx, st, &models.AuditLog{
			TripID:    tripID,
			UserID:    actor.ID,
			Action:    models.ActionMemberLeft,
			Subject:   models.AuditSubject{Kind: models.SubjectMember, ID: strconv.FormatInt(member.ID, 10)},
			OldValues: map[string]any{"user_id": member.UserID, "role": member.Role},
			NewValues: map[string]any{"via": "removed"},
			IPAddress: meta.IP,
			UserAgent: meta.UserAgent,
		}, now)
	})
	if err != nil {
		return err
	}

	slog.Info("Member removed", "trip_id", tripID, "member_id", memberID)
	return nil
}

// Leave marks the caller's membership as left. The last active admin cannot
// leave; they must promote someone else first.
func (s *MemberService) Leave(ctx context.Context, actor *models.User, tripID string, meta RequestMeta) error {
	now := s.now()

	err := s.store.InTx(ctx, func(st storage.Store) error {
		member, err := activeMemberOf(ctx, st, tripID, actor.ID)
		if err != nil {
			return err
		}
		if member.IsActiveAdmin() {
			if err := s.requireAnotherAdmin(ctx, st, tripID); err != nil {
				return err
			}
		}

		member.Status = models.MemberLeft
		if err := st.UpdateMember(ctx, member); err != nil {
			return err
		}

		return appendAudit(ctx, st, &models.AuditLog{
			TripID:    tripID,
			UserID:    actor.ID,
			Action:    models.ActionMemberLeft,
			Subject:   models.AuditSubject{Kind: models.SubjectMember, ID: strconv.FormatInt(member.ID, 10)},
			NewValues: map[string]any{"member": actor.DisplayName, "via": "left"},
			IPAddress: meta.IP,
			UserAgent: meta.UserAgent,
		}, now)
	})
	if err != nil {
		return err
	}

	slog.Info("Member left", "trip_id", tripID, "user_id", actor.ID)
	return nil
}

// requireAnotherAdmin fails with ErrLastAdmin unless the trip has at least
// two active admins. Callers hold the write transaction, so the count cannot
// change underneath the guard.
func (s *MemberService) requireAnotherAdmin(ctx context.Context, st storage.Store, tripID string) error {
	admins, err := st.CountActiveAdmins(ctx, tripID)
	if err != nil {
		return err
	}
	if admins <= 1 {
		return ErrLastAdmin
	}
	return nil
}

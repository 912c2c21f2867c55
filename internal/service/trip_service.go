package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/adnfaris/tripdana/internal/models"
	"github.com/adnfaris/tripdana/internal/storage"
)

const (
	joinCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	joinCodeLength   = 8

	// joinCodeAttempts bounds retries when a generated code collides with
	// an existing trip.
	joinCodeAttempts = 5
)

// TripService manages the trip lifecycle and the join-code flow. The creator
// becomes the trip's first admin.
type TripService struct {
	store storage.Store
	hub   Broadcaster
	now   func() time.Time
}

// NewTripService creates a TripService.
func NewTripService(store storage.Store, hub Broadcaster) *TripService {
	return &TripService{store: store, hub: hub, now: time.Now}
}

// TripInput is the caller-supplied part of a trip.
type TripInput struct {
	Name         string
	Description  string
	Destination  string
	StartDate    int64
	EndDate      int64
	TargetAmount float64
	Status       models.TripStatus
}

// TripView is a trip together with its derived financial totals and the
// viewer's role.
type TripView struct {
	Trip   *models.Trip
	Totals *models.TripTotals
	Role   models.MemberRole
}

func validateTripInput(in TripInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return validationErr("name is required")
	}
	if in.TargetAmount < 0 {
		return validationErr("target amount cannot be negative")
	}
	if in.StartDate != 0 && in.EndDate != 0 && in.EndDate < in.StartDate {
		return validationErr("end date is before start date")
	}
	if in.Status != "" && !in.Status.Valid() {
		return validationErr("unknown trip status %q", in.Status)
	}
	return nil
}

// Create creates a trip with a fresh join code and adds the creator as an
// active admin.
func (s *TripService) Create(ctx context.Context, actor *models.User, in TripInput, meta RequestMeta) (*models.Trip, error) {
	if err := validateTripInput(in); err != nil {
		return nil, err
	}
	if in.Status == "" {
		in.Status = models.TripPlanning
	}

	now := s.now()
	trip := &models.Trip{
		ID:           models.NewID(),
		Name:         strings.TrimSpace(in.Name),
		Description:  in.Description,
		Destination:  in.Destination,
		StartDate:    in.StartDate,
		EndDate:      in.EndDate,
		TargetAmount: in.TargetAmount,
		Status:       in.Status,
		CreatedBy:    actor.ID,
		CreatedAt:    now.Unix(),
		UpdatedAt:    now.Unix(),
	}

	err := s.store.InTx(ctx, func(st storage.Store) error {
		code, err := s.freshJoinCode(ctx, st)
		if err != nil {
			return err
		}
		trip.JoinCode = code

		if err := st.CreateTrip(ctx, trip); err != nil {
			return err
		}
		if err := st.CreateMember(ctx, &models.TripMember{
			TripID:    trip.ID,
			UserID:    actor.ID,
			Role:      models.RoleAdmin,
			Status:    models.MemberActive,
			JoinedAt:  now.Unix(),
			CreatedAt: now.Unix(),
		}); err != nil {
			return err
		}

		return appendAudit(ctx, st, &models.AuditLog{
			TripID:  trip.ID,
			UserID:  actor.ID,
			Action:  models.ActionTripCreated,
			Subject: models.AuditSubject{Kind: models.SubjectTrip, ID: trip.ID},
			NewValues: map[string]any{
				"name":          trip.Name,
				"target_amount": trip.TargetAmount,
			},
			IPAddress: meta.IP,
			UserAgent: meta.UserAgent,
		}, now)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Trip created", "trip_id", trip.ID, "name", trip.Name, "created_by", actor.ID)
	return trip, nil
}

// Get returns a trip with its totals for a member.
func (s *TripService) Get(ctx context.Context, actor *models.User, tripID string) (*TripView, error) {
	member, err := memberOf(ctx, s.store, tripID, actor.ID)
	if err != nil {
		return nil, err
	}
	trip, err := s.store.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	totals, err := s.store.TripTotals(ctx, trip)
	if err != nil {
		return nil, err
	}
	return &TripView{Trip: trip, Totals: totals, Role: member.Role}, nil
}

// List returns the trips the user is an active member of.
func (s *TripService) List(ctx context.Context, actor *models.User) ([]*models.Trip, error) {
	return s.store.ListTripsForUser(ctx, actor.ID, models.MemberActive)
}

// Invitations returns the trips the user has a pending invitation to.
func (s *TripService) Invitations(ctx context.Context, actor *models.User) ([]*models.Trip, error) {
	return s.store.ListTripsForUser(ctx, actor.ID, models.MemberPending)
}

// Update modifies a trip's details. Admin only. The audit entry records
// before and after snapshots of the changed fields.
func (s *TripService) Update(ctx context.Context, actor *models.User, tripID string, in TripInput, meta RequestMeta) (*models.Trip, error) {
	if err := validateTripInput(in); err != nil {
		return nil, err
	}

	now := s.now()
	var trip *models.Trip

	err := s.store.InTx(ctx, func(st storage.Store) error {
		if _, err := activeAdminOf(ctx, st, tripID, actor.ID); err != nil {
			return err
		}

		var err error
		trip, err = st.GetTrip(ctx, tripID)
		if err != nil {
			return err
		}

		old := tripSnapshot(trip)
		trip.Name = strings.TrimSpace(in.Name)
		trip.Description = in.Description
		trip.Destination = in.Destination
		trip.StartDate = in.StartDate
		trip.EndDate = in.EndDate
		trip.TargetAmount = in.TargetAmount
		if in.Status != "" {
			trip.Status = in.Status
		}
		trip.UpdatedAt = now.Unix()

		if err := st.UpdateTrip(ctx, trip); err != nil {
			return err
		}

		return appendAudit(ctx, st, &models.AuditLog{
			TripID:    tripID,
			UserID:    actor.ID,
			Action:    models.ActionTripUpdated,
			Subject:   models.AuditSubject{Kind: models.SubjectTrip, ID: tripID},
			OldValues: old,
			NewValues: tripSnapshot(trip),
			IPAddress: meta.IP,
			UserAgent: meta.UserAgent,
		}, now)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Trip updated", "trip_id", tripID, "updated_by", actor.ID)
	return trip, nil
}

// Delete removes a trip and everything under it. Admin only.
func (s *TripService) Delete(ctx context.Context, actor *models.User, tripID string) error {
	err := s.store.InTx(ctx, func(st storage.Store) error {
		if _, err := activeAdminOf(ctx, st, tripID, actor.ID); err != nil {
			return err
		}
		return st.DeleteTrip(ctx, tripID)
	})
	if err != nil {
		return err
	}
	slog.Info("Trip deleted", "trip_id", tripID, "deleted_by", actor.ID)
	return nil
}

// JoinByCode redeems a join code. A user with no history joins as an active
// member, a user who previously left is reactivated, and an existing active
// or pending member gets ErrAlreadyMember.
func (s *TripService) JoinByCode(ctx context.Context, actor *models.User, code string, meta RequestMeta) (*models.Trip, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != joinCodeLength {
		return nil, validationErr("join code must be %d characters", joinCodeLength)
	}

	now := s.now()
	var trip *models.Trip

	err := s.store.InTx(ctx, func(st storage.Store) error {
		var err error
		trip, err = st.GetTripByJoinCode(ctx, code)
		if errors.Is(err, storage.ErrNotFound) {
			return ErrJoinCodeNotFound
		}
		if err != nil {
			return err
		}

		member, err := st.GetMember(ctx, trip.ID, actor.ID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			member = &models.TripMember{
				TripID:    trip.ID,
				UserID:    actor.ID,
				Role:      models.RoleMember,
				Status:    models.MemberActive,
				JoinedAt:  now.Unix(),
				CreatedAt: now.Unix(),
			}
			if err := st.CreateMember(ctx, member); err != nil {
				return err
			}
		case err != nil:
			return err
		case member.Status == models.MemberLeft:
			member.Status = models.MemberActive
			member.JoinedAt = now.Unix()
			if err := st.UpdateMember(ctx, member); err != nil {
				return err
			}
		default:
			return ErrAlreadyMember
		}

		return appendAudit(ctx, st, &models.AuditLog{
			TripID:  trip.ID,
			UserID:  actor.ID,
			Action:  models.ActionMemberJoined,
			Subject: models.AuditSubject{Kind: models.SubjectMember, ID: strconv.FormatInt(member.ID, 10)},
			NewValues: map[string]any{
				"member": actor.DisplayName,
				"via":    "join_code",
			},
			IPAddress: meta.IP,
			UserAgent: meta.UserAgent,
		}, now)
	})
	if err != nil {
		return nil, err
	}

	s.publishMemberJoined(ctx, trip.ID, actor)
	slog.Info("Member joined via code", "trip_id", trip.ID, "user_id", actor.ID)
	return trip, nil
}

// RegenerateJoinCode replaces the trip's join code, invalidating the old one.
// Admin only.
func (s *TripService) RegenerateJoinCode(ctx context.Context, actor *models.User, tripID string) (*models.Trip, error) {
	now := s.now()
	var trip *models.Trip

	err := s.store.InTx(ctx, func(st storage.Store) error {
		if _, err := activeAdminOf(ctx, st, tripID, actor.ID); err != nil {
			return err
		}

		var err error
		trip, err = st.GetTrip(ctx, tripID)
		if err != nil {
			return err
		}
		code, err := s.freshJoinCode(ctx, st)
		if err != nil {
			return err
		}
		trip.JoinCode = code
		trip.UpdatedAt = now.Unix()
		return st.UpdateTrip(ctx, trip)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Join code regenerated", "trip_id", tripID)
	return trip, nil
}

// freshJoinCode generates a join code not used by any existing trip.
func (s *TripService) freshJoinCode(ctx context.Context, st storage.Store) (string, error) {
	for i := 0; i < joinCodeAttempts; i++ {
		code, err := randomJoinCode()
		if err != nil {
			return "", err
		}
		_, err = st.GetTripByJoinCode(ctx, code)
		if errors.Is(err, storage.ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("failed to generate a unique join code after %d attempts", joinCodeAttempts)
}

func randomJoinCode() (string, error) {
	b := make([]byte, joinCodeLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate join code: %w", err)
	}
	for i := range b {
		b[i] = joinCodeAlphabet[int(b[i])%len(joinCodeAlphabet)]
	}
	return string(b), nil
}

func tripSnapshot(t *models.Trip) map[string]any {
	return map[string]any{
		"name":          t.Name,
		"description":   t.Description,
		"destination":   t.Destination,
		"start_date":    t.StartDate,
		"end_date":      t.EndDate,
		"target_amount": t.TargetAmount,
		"status":        t.Status,
	}
}

func (s *TripService) publishMemberJoined(ctx context.Context, tripID string, u *models.User) {
	publishMemberJoined(ctx, s.store, s.hub, tripID, u)
}

package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/adnfaris/tripdana/internal/models"
	"github.com/adnfaris/tripdana/internal/storage"
)

// DestinationService manages the trip itinerary. Any active member can edit
// the itinerary.
type DestinationService struct {
	store storage.Store
	now   func() time.Time
}

// NewDestinationService creates a DestinationService.
func NewDestinationService(store storage.Store) *DestinationService {
	return &DestinationService{store: store, now: time.Now}
}

// DestinationInput is the caller-supplied part of an itinerary item.
type DestinationInput struct {
	Name          string
	Description   string
	Location      string
	LocationURL   string
	VisitDate     int64
	StartTime     string
	EndTime       string
	Order         int
	EstimatedCost float64
	Category      string
}

func validateDestinationInput(in DestinationInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return validationErr("name is required")
	}
	if in.EstimatedCost < 0 {
		return validationErr("estimated cost cannot be negative")
	}
	return nil
}

// Create adds an itinerary item.
func (s *DestinationService) Create(ctx context.Context, actor *models.User, tripID string, in DestinationInput, meta RequestMeta) (*models.Destination, error) {
	if err := validateDestinationInput(in); err != nil {
		return nil, err
	}

	now := s.now()
	d := &models.Destination{
		ID:            models.NewID(),
		TripID:        tripID,
		Name:          strings.TrimSpace(in.Name),
		Description:   in.Description,
		Location:      in.Location,
		LocationURL:   in.LocationURL,
		VisitDate:     in.VisitDate,
		StartTime:     in.StartTime,
		EndTime:       in.EndTime,
		Order:         in.Order,
		EstimatedCost: in.EstimatedCost,
		Category:      in.Category,
		CreatedAt:     now.Unix(),
	}

	err := s.store.InTx(ctx, func(st storage.Store) error {
		if _, err := activeMemberOf(ctx, st, tripID, actor.ID); err != nil {
			return err
		}
		if err := st.CreateDestination(ctx, d); err != nil {
			return err
		}

		return appendAudit(ctx, st, &models.AuditLog{
			TripID:  tripID,
			UserID:  actor.ID,
			Action:  models.ActionDestinationAdded,
			Subject: models.AuditSubject{Kind: models.SubjectDestination, ID: d.ID},
			NewValues: map[string]any{
				"name":     d.Name,
				"location": d.Location,
			},
			IPAddress: meta.IP,
			UserAgent: meta.UserAgent,
		}, now)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Destination added", "destination_id", d.ID, "trip_id", tripID, "name", d.Name)
	return d, nil
}

// List returns a trip's itinerary ordered by visit date then sort order.
func (s *DestinationService) List(ctx context.Context, actor *models.User, tripID string) ([]*models.Destination, error) {
	if _, err := memberOf(ctx, s.store, tripID, actor.ID); err != nil {
		return nil, err
	}
	return s.store.ListDestinations(ctx, tripID)
}

// Update modifies an itinerary item.
func (s *DestinationService) Update(ctx context.Context, actor *models.User, tripID, destinationID string, in DestinationInput) (*models.Destination, error) {
	if err := validateDestinationInput(in); err != nil {
		return nil, err
	}

	var d *models.Destination
	err := s.store.InTx(ctx, func(st storage.Store) error {
		if _, err := activeMemberOf(ctx, st, tripID, actor.ID); err != nil {
			return err
		}

		var err error
		d, err = s.tripDestination(ctx, st, tripID, destinationID)
		if err != nil {
			return err
		}

		d.Name = strings.TrimSpace(in.Name)
		d.Description = in.Description
		d.Location = in.Location
		d.LocationURL = in.LocationURL
		d.VisitDate = in.VisitDate
		d.StartTime = in.StartTime
		d.EndTime = in.EndTime
		d.Order = in.Order
		d.EstimatedCost = in.EstimatedCost
		d.Category = in.Category
		return st.UpdateDestination(ctx, d)
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Delete removes an itinerary item.
func (s *DestinationService) Delete(ctx context.Context, actor *models.User, tripID, destinationID string) error {
	return s.store.InTx(ctx, func(st storage.Store) error {
		if _, err := activeMemberOf(ctx, st, tripID, actor.ID); err != nil {
			return err
		}
		if _, err := s.tripDestination(ctx, st, tripID, destinationID); err != nil {
			return err
		}
		return st.DeleteDestination(ctx, destinationID)
	})
}

func (s *DestinationService) tripDestination(ctx context.Context, st storage.Store, tripID, destinationID string) (*models.Destination, error) {
	d, err := st.GetDestination(ctx, destinationID)
	if err != nil {
		return nil, err
	}
	if d.TripID != tripID {
		return nil, storage.ErrNotFound
	}
	return d, nil
}

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/campushq/event-registration/models"
	"github.com/campushq/event-registration/repositories"
	"golang.org/x/sync/errgroup"
)

// EventSummary is one row of a coordinator's dashboard: occupancy plus the
// verification backlog for a single event.
type EventSummary struct {
	Event               models.Event `json:"event"`
	ConfirmedCount      int          `json:"confirmed_count"`
	PendingVerification int          `json:"pending_verification"`
	Remaining           int          `json:"remaining"`
}

// DashboardService builds read-only projections for coordinators. It has no
// concurrency concerns of its own; counts may be momentarily stale against the
// live counter.
type DashboardService struct {
	eventRepo repositories.EventRepository
	regRepo   repositories.RegistrationRepository
}

func NewDashboardService(eventRepo repositories.EventRepository, regRepo repositories.RegistrationRepository) *DashboardService {
	return &DashboardService{
		eventRepo: eventRepo,
		regRepo:   regRepo,
	}
}

// Summaries returns one summary per event created by the caller (or all
// events for an admin), loading the per-event counts in parallel.
func (s *DashboardService) Summaries(ctx context.Context, callerID int, callerRole models.UserRole) ([]EventSummary, error) {
	filter := repositories.ListEventsFilter{}
	if callerRole != models.RoleAdmin {
		filter.CreatedBy = &callerID
	}

	events, err := s.eventRepo.List(ctx, filter)
	if err != nil {
		if errors.Is(err, repositories.ErrUnavailable) {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, err
	}

	summaries := make([]EventSummary, len(events))
	g, gCtx := errgroup.WithContext(ctx)
	for i := range events {
		g.Go(func() error {
			event := events[i]
			confirmed, err := s.regRepo.CountByEventAndStatus(gCtx, event.ID, models.RegistrationConfirmed)
			if err != nil {
				return fmt.Errorf("failed to count confirmed registrations for event %d: %w", event.ID, err)
			}
			pending, err := s.regRepo.CountByEventAndStatus(gCtx, event.ID, models.RegistrationPending)
			if err != nil {
				return fmt.Errorf("failed to count pending registrations for event %d: %w", event.ID, err)
			}
			summaries[i] = EventSummary{
				Event:               event,
				ConfirmedCount:      confirmed,
				PendingVerification: pending,
				Remaining:           event.Remaining(),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}

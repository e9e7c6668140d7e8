package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/campushq/event-registration/live"
	"github.com/campushq/event-registration/models"
	"github.com/campushq/event-registration/repositories"
)

// DefaultRejectionReason is recorded when a reviewer rejects without a reason.
const DefaultRejectionReason = "payment verification failed"

// VerificationService drives the pending → {confirmed, rejected} state machine
// for paid registrations. Free registrations are confirmed at admission time
// and never enter this machine.
type VerificationService struct {
	eventRepo repositories.EventRepository
	regRepo   repositories.RegistrationRepository
	hub       *live.Hub
	logger    *slog.Logger
}

func NewVerificationService(
	eventRepo repositories.EventRepository,
	regRepo repositories.RegistrationRepository,
	hub *live.Hub,
	logger *slog.Logger,
) *VerificationService {
	return &VerificationService{
		eventRepo: eventRepo,
		regRepo:   regRepo,
		hub:       hub,
		logger:    logger,
	}
}

// Approve confirms a pending paid registration after its payment was verified.
//
// Pending registrations never pre-reserved capacity, so the slot is claimed
// here: if the event filled up meanwhile, the call fails with ErrEventFull and
// the registration stays pending for manual resolution — the reviewer can
// reject it, or retry after a cancellation frees a slot. It is deliberately
// not auto-rejected.
func (s *VerificationService) Approve(ctx context.Context, registrationID, reviewerID int, reviewerRole models.UserRole) (*models.Registration, error) {
	reg, event, err := s.loadForReview(ctx, registrationID, reviewerID, reviewerRole)
	if err != nil {
		return nil, err
	}
	if reg.Status != models.RegistrationPending {
		return nil, fmt.Errorf("%w: current status %q", ErrInvalidState, reg.Status)
	}

	granted, snap, err := s.eventRepo.TryReserve(ctx, event.ID)
	if err != nil {
		return nil, s.mapRepoError(err)
	}
	if !granted {
		return nil, ErrEventFull
	}

	reviewedAt := time.Now().UTC()
	if err := s.regRepo.Approve(ctx, registrationID, reviewerID, reviewedAt); err != nil {
		// The registration left pending between the read and the gated update
		// (a racing cancel). Give the slot back and report the state conflict.
		if _, relErr := s.eventRepo.Release(ctx, event.ID); relErr != nil {
			s.logger.ErrorContext(ctx, "failed to release slot after lost approve race",
				slog.Int("registration_id", registrationID), slog.Int("event_id", event.ID), slog.Any("error", relErr))
		}
		return nil, s.mapRepoError(err)
	}

	if s.hub != nil && snap != nil {
		s.hub.BroadcastOccupancy(*snap)
	}

	reg.Status = models.RegistrationConfirmed
	reg.PaymentStatus = models.PaymentVerified
	reg.ReviewerID = &reviewerID
	reg.ReviewedAt = &reviewedAt
	return reg, nil
}

// Reject declines a pending paid registration. It never touches the occupancy
// counter: a pending registration holds no slot.
func (s *VerificationService) Reject(ctx context.Context, registrationID, reviewerID int, reviewerRole models.UserRole, reason string) (*models.Registration, error) {
	reg, _, err := s.loadForReview(ctx, registrationID, reviewerID, reviewerRole)
	if err != nil {
		return nil, err
	}
	if reg.Status != models.RegistrationPending {
		return nil, fmt.Errorf("%w: current status %q", ErrInvalidState, reg.Status)
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultRejectionReason
	}

	reviewedAt := time.Now().UTC()
	if err := s.regRepo.Reject(ctx, registrationID, reviewerID, reviewedAt, reason); err != nil {
		return nil, s.mapRepoError(err)
	}

	reg.Status = models.RegistrationRejected
	reg.PaymentStatus = models.PaymentRejected
	reg.ReviewerID = &reviewerID
	reg.ReviewedAt = &reviewedAt
	reg.RejectionReason = &reason
	return reg, nil
}

func (s *VerificationService) loadForReview(ctx context.Context, registrationID, reviewerID int, reviewerRole models.UserRole) (*models.Registration, *models.Event, error) {
	reg, err := s.regRepo.FindByID(ctx, registrationID)
	if err != nil {
		return nil, nil, s.mapRepoError(err)
	}
	event, err := s.eventRepo.GetByID(ctx, reg.EventID)
	if err != nil {
		return nil, nil, s.mapRepoError(err)
	}
	if event.CreatedBy != reviewerID && reviewerRole != models.RoleAdmin {
		return nil, nil, ErrForbidden
	}
	return reg, event, nil
}

func (s *VerificationService) mapRepoError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrEventNotFound):
		return ErrEventNotFound
	case errors.Is(err, repositories.ErrRegistrationNotFound):
		return ErrRegistrationNotFound
	case errors.Is(err, repositories.ErrRegistrationInvalidTransition):
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	case errors.Is(err, repositories.ErrUnavailable):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	default:
		return err
	}
}

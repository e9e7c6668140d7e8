package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/campushq/event-registration/live"
	"github.com/campushq/event-registration/models"
	"github.com/campushq/event-registration/repositories"
	"github.com/campushq/event-registration/storage"
	"github.com/google/uuid"
)

// RegistrationService orchestrates admission, persistence and capacity
// mutation. Capacity moves only through the event repository's atomic
// TryReserve/Release, never via read-then-write across calls.
type RegistrationService struct {
	eventRepo repositories.EventRepository
	regRepo   repositories.RegistrationRepository
	uploader  storage.FileUploader
	hub       *live.Hub
	logger    *slog.Logger
}

func NewRegistrationService(
	eventRepo repositories.EventRepository,
	regRepo repositories.RegistrationRepository,
	uploader storage.FileUploader,
	hub *live.Hub,
	logger *slog.Logger,
) *RegistrationService {
	return &RegistrationService{
		eventRepo: eventRepo,
		regRepo:   regRepo,
		uploader:  uploader,
		hub:       hub,
		logger:    logger,
	}
}

// Register admits a registration attempt for userID on eventID.
//
// Free events confirm immediately: the capacity slot is reserved first and the
// whole call fails with ErrEventFull when the last slot was lost to a
// concurrent registrant, persisting nothing. Paid events persist a pending
// registration without touching the counter; any number of pending paid
// registrations may exist at full capacity and compete for slots only when a
// reviewer approves them.
func (s *RegistrationService) Register(ctx context.Context, eventID, userID int, req RegistrationRequest) (*models.Registration, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, s.mapRepoError(err)
	}

	existing, err := s.regRepo.FindActiveByEventAndUser(ctx, eventID, userID)
	if err != nil && !errors.Is(err, repositories.ErrRegistrationNotFound) {
		return nil, s.mapRepoError(err)
	}

	decision, err := EvaluateAdmission(event, existing, req)
	if err != nil {
		return nil, err
	}

	reg := &models.Registration{
		EventID:              eventID,
		UserID:               userID,
		TeamName:             req.TeamName,
		TeamMembers:          req.TeamMembers,
		CustomFieldResponses: req.CustomFieldResponses,
		PaymentMode:          decision.PaymentMode,
		PaymentStatus:        decision.PaymentStatus,
		Status:               decision.Status,
	}
	if !event.IsFree() {
		reg.PaymentAmount = event.EntryFee
		reg.TransactionRef = req.TransactionRef
		reg.ProofKey = req.ProofKey
	}

	if !decision.RequiresReservation() {
		if err := s.regRepo.Create(ctx, reg); err != nil {
			return nil, s.mapRepoError(err)
		}
		return reg, nil
	}

	granted, snap, err := s.eventRepo.TryReserve(ctx, eventID)
	if err != nil {
		return nil, s.mapRepoError(err)
	}
	if !granted {
		return nil, ErrEventFull
	}

	if err := s.regRepo.Create(ctx, reg); err != nil {
		// The slot was reserved for a registration that will not exist.
		s.compensateRelease(ctx, eventID)
		return nil, s.mapRepoError(err)
	}

	s.broadcast(snap)
	return reg, nil
}

// Cancel moves a non-terminal registration owned by userID to cancelled.
// The state transition commits first and is the single source of truth for
// "slot already released": a retry or a second cancel sees ErrInvalidState and
// never reaches the release, so capacity cannot be given back twice.
func (s *RegistrationService) Cancel(ctx context.Context, registrationID, userID int) error {
	previous, eventID, err := s.regRepo.Cancel(ctx, registrationID, userID)
	if err != nil {
		return s.mapRepoError(err)
	}

	if previous == models.RegistrationConfirmed {
		snap, err := s.eventRepo.Release(ctx, eventID)
		if err != nil {
			// The registration is already cancelled; the counter is reconciled
			// against confirmed registrations, so log and surface the failure.
			s.logError(ctx, "failed to release capacity after cancellation",
				slog.Int("registration_id", registrationID), slog.Int("event_id", eventID), slog.Any("error", err))
			return s.mapRepoError(err)
		}
		s.broadcast(snap)
	}
	return nil
}

// ListForParticipant returns the caller's registrations, newest first, with
// the related event attached for display.
func (s *RegistrationService) ListForParticipant(ctx context.Context, userID int) ([]models.Registration, error) {
	regs, err := s.regRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, s.mapRepoError(err)
	}

	events := make(map[int]*models.Event)
	for i := range regs {
		event, ok := events[regs[i].EventID]
		if !ok {
			event, err = s.eventRepo.GetByID(ctx, regs[i].EventID)
			if err != nil {
				if errors.Is(err, repositories.ErrEventNotFound) {
					continue
				}
				return nil, s.mapRepoError(err)
			}
			populateEventImageURL(event, s.uploader)
			events[regs[i].EventID] = event
		}
		regs[i].Event = event
		s.populateProofURL(&regs[i])
	}
	return regs, nil
}

// ListForEvent returns an event's registrations for its coordinator (or an
// admin), optionally filtered by lifecycle status.
func (s *RegistrationService) ListForEvent(ctx context.Context, eventID, callerID int, callerRole models.UserRole, statusFilter *models.RegistrationStatus) ([]models.Registration, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, s.mapRepoError(err)
	}
	if event.CreatedBy != callerID && callerRole != models.RoleAdmin {
		return nil, ErrForbidden
	}

	regs, err := s.regRepo.ListByEvent(ctx, eventID, statusFilter)
	if err != nil {
		return nil, s.mapRepoError(err)
	}
	for i := range regs {
		s.populateProofURL(&regs[i])
	}
	return regs, nil
}

// AttachPaymentProof stores the uploaded proof artifact and records its opaque
// key on the caller's pending registration. The blob itself never enters the
// registration record.
func (s *RegistrationService) AttachPaymentProof(ctx context.Context, registrationID, userID int, contentType string, body io.Reader) (*models.Registration, error) {
	reg, err := s.regRepo.FindByID(ctx, registrationID)
	if err != nil {
		return nil, s.mapRepoError(err)
	}
	if reg.UserID != userID {
		return nil, ErrForbidden
	}
	if reg.Status != models.RegistrationPending {
		return nil, fmt.Errorf("%w: proof can only be attached while pending", ErrInvalidState)
	}

	ext, err := GetExtensionFromContentType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	key := fmt.Sprintf("payment-proofs/%d/%s%s", reg.EventID, uuid.NewString(), ext)

	result, err := s.uploader.Upload(ctx, key, contentType, body)
	if err != nil {
		return nil, fmt.Errorf("failed to upload payment proof: %w", err)
	}

	if err := s.regRepo.UpdateProofKey(ctx, registrationID, userID, result.Key); err != nil {
		if delErr := s.uploader.Delete(ctx, result.Key); delErr != nil {
			s.logError(ctx, "failed to delete orphaned proof object",
				slog.String("key", result.Key), slog.Any("error", delErr))
		}
		return nil, s.mapRepoError(err)
	}

	reg.ProofKey = &result.Key
	s.populateProofURL(reg)
	return reg, nil
}

func (s *RegistrationService) compensateRelease(ctx context.Context, eventID int) {
	if _, err := s.eventRepo.Release(ctx, eventID); err != nil {
		s.logError(ctx, "failed to release reserved slot after insert failure",
			slog.Int("event_id", eventID), slog.Any("error", err))
	}
}

func (s *RegistrationService) broadcast(snap *models.CapacitySnapshot) {
	if s.hub != nil && snap != nil {
		s.hub.BroadcastOccupancy(*snap)
	}
}

func (s *RegistrationService) populateProofURL(reg *models.Registration) {
	if reg.ProofKey != nil && *reg.ProofKey != "" && s.uploader != nil {
		if url := s.uploader.GetPublicURL(*reg.ProofKey); url != "" {
			reg.ProofURL = &url
		}
	}
}

func (s *RegistrationService) logError(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.ErrorContext(ctx, msg, args...)
	}
}

// mapRepoError translates repository sentinels into the service taxonomy.
func (s *RegistrationService) mapRepoError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrEventNotFound):
		return ErrEventNotFound
	case errors.Is(err, repositories.ErrRegistrationNotFound):
		return ErrRegistrationNotFound
	case errors.Is(err, repositories.ErrRegistrationConflict):
		return ErrAlreadyRegistered
	case errors.Is(err, repositories.ErrRegistrationInvalidTransition):
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	case errors.Is(err, repositories.ErrUnavailable):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	default:
		return err
	}
}

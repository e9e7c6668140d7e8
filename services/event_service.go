package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/campushq/event-registration/models"
	"github.com/campushq/event-registration/repositories"
	"github.com/campushq/event-registration/storage"
	"github.com/google/uuid"
)

// EventService is the event catalog: coordinators manage their events here.
// It never mutates current_registrations; occupancy belongs to the
// registration flow exclusively.
type EventService struct {
	eventRepo repositories.EventRepository
	uploader  storage.FileUploader
	logger    *slog.Logger
}

func NewEventService(eventRepo repositories.EventRepository, uploader storage.FileUploader, logger *slog.Logger) *EventService {
	return &EventService{
		eventRepo: eventRepo,
		uploader:  uploader,
		logger:    logger,
	}
}

func (s *EventService) Create(ctx context.Context, creatorID int, event *models.Event) (*models.Event, error) {
	if err := validateEvent(event); err != nil {
		return nil, err
	}
	event.CreatedBy = creatorID
	event.Status = models.EventStatusUpcoming

	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, s.mapRepoError(err)
	}
	return event, nil
}

func (s *EventService) GetByID(ctx context.Context, id int) (*models.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err)
	}
	populateEventImageURL(event, s.uploader)
	return event, nil
}

func (s *EventService) List(ctx context.Context, filter repositories.ListEventsFilter) ([]models.Event, error) {
	events, err := s.eventRepo.List(ctx, filter)
	if err != nil {
		return nil, s.mapRepoError(err)
	}
	for i := range events {
		populateEventImageURL(&events[i], s.uploader)
	}
	return events, nil
}

// Update rewrites the editable fields of an event owned by the caller.
//
// Shrinking max_capacity below current_registrations is allowed: already
// confirmed registrations are grandfathered and never auto-cancelled, future
// admission is simply blocked until cancellations bring the count back under
// the new limit.
func (s *EventService) Update(ctx context.Context, eventID, callerID int, callerRole models.UserRole, updated *models.Event) (*models.Event, error) {
	event, err := s.authorizeOwner(ctx, eventID, callerID, callerRole)
	if err != nil {
		return nil, err
	}

	if err := validateEvent(updated); err != nil {
		return nil, err
	}

	event.Title = updated.Title
	event.Description = updated.Description
	event.Date = updated.Date
	event.Venue = updated.Venue
	event.Category = updated.Category
	event.TeamSizeMin = updated.TeamSizeMin
	event.TeamSizeMax = updated.TeamSizeMax
	event.EntryFee = updated.EntryFee
	event.UPIID = updated.UPIID
	event.UPIName = updated.UPIName
	event.AcceptsOnlinePayment = updated.AcceptsOnlinePayment
	event.AcceptsOfflinePayment = updated.AcceptsOfflinePayment
	event.CustomFields = updated.CustomFields
	event.MaxCapacity = updated.MaxCapacity

	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, s.mapRepoError(err)
	}
	populateEventImageURL(event, s.uploader)
	return event, nil
}

func (s *EventService) UpdateStatus(ctx context.Context, eventID, callerID int, callerRole models.UserRole, next models.EventStatus) (*models.Event, error) {
	event, err := s.authorizeOwner(ctx, eventID, callerID, callerRole)
	if err != nil {
		return nil, err
	}

	switch next {
	case models.EventStatusUpcoming, models.EventStatusOngoing, models.EventStatusCompleted, models.EventStatusCancelled:
	default:
		return nil, fmt.Errorf("%w: %q", ErrEventInvalidStatus, next)
	}
	if !isValidEventStatusTransition(event.Status, next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrEventInvalidTransition, event.Status, next)
	}

	if err := s.eventRepo.UpdateStatus(ctx, eventID, next); err != nil {
		return nil, s.mapRepoError(err)
	}
	event.Status = next
	return event, nil
}

func (s *EventService) Delete(ctx context.Context, eventID, callerID int, callerRole models.UserRole) error {
	event, err := s.authorizeOwner(ctx, eventID, callerID, callerRole)
	if err != nil {
		return err
	}

	if err := s.eventRepo.Delete(ctx, eventID); err != nil {
		return s.mapRepoError(err)
	}

	if event.ImageKey != nil && *event.ImageKey != "" && s.uploader != nil {
		if err := s.uploader.Delete(ctx, *event.ImageKey); err != nil {
			s.logger.WarnContext(ctx, "failed to delete event image",
				slog.Int("event_id", eventID), slog.String("key", *event.ImageKey), slog.Any("error", err))
		}
	}
	return nil
}

// UploadImage replaces the event's display image and returns the updated event.
func (s *EventService) UploadImage(ctx context.Context, eventID, callerID int, callerRole models.UserRole, contentType string, body io.Reader) (*models.Event, error) {
	event, err := s.authorizeOwner(ctx, eventID, callerID, callerRole)
	if err != nil {
		return nil, err
	}

	ext, err := GetExtensionFromContentType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	key := fmt.Sprintf("event-images/%d/%s%s", eventID, uuid.NewString(), ext)

	result, err := s.uploader.Upload(ctx, key, contentType, body)
	if err != nil {
		return nil, fmt.Errorf("failed to upload event image: %w", err)
	}

	oldKey := event.ImageKey
	if err := s.eventRepo.UpdateImageKey(ctx, eventID, &result.Key); err != nil {
		if delErr := s.uploader.Delete(ctx, result.Key); delErr != nil {
			s.logger.WarnContext(ctx, "failed to delete orphaned event image",
				slog.String("key", result.Key), slog.Any("error", delErr))
		}
		return nil, s.mapRepoError(err)
	}

	if oldKey != nil && *oldKey != "" {
		if err := s.uploader.Delete(ctx, *oldKey); err != nil {
			s.logger.WarnContext(ctx, "failed to delete previous event image",
				slog.String("key", *oldKey), slog.Any("error", err))
		}
	}

	event.ImageKey = &result.Key
	populateEventImageURL(event, s.uploader)
	return event, nil
}

func (s *EventService) authorizeOwner(ctx context.Context, eventID, callerID int, callerRole models.UserRole) (*models.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, s.mapRepoError(err)
	}
	if event.CreatedBy != callerID && callerRole != models.RoleAdmin {
		return nil, ErrForbidden
	}
	return event, nil
}

func validateEvent(e *models.Event) error {
	e.Title = strings.TrimSpace(e.Title)
	if e.Title == "" {
		return ErrEventTitleRequired
	}
	if e.MaxCapacity < 0 {
		return ErrEventInvalidCapacity
	}
	if e.TeamSizeMin < 1 || e.TeamSizeMax < e.TeamSizeMin {
		return ErrEventInvalidTeamSize
	}
	if e.EntryFee < 0 {
		return ErrEventInvalidFee
	}
	if e.EntryFee > 0 && !e.AcceptsOnlinePayment && !e.AcceptsOfflinePayment {
		return ErrEventNoPaymentMode
	}
	if e.Category == "" {
		e.Category = models.CategoryOther
	}
	for _, field := range e.CustomFields {
		if strings.TrimSpace(field.FieldName) == "" {
			return fmt.Errorf("%w: custom field name is required", ErrValidationFailed)
		}
		if field.FieldType == models.FieldTypeSelect && len(field.Options) == 0 {
			return fmt.Errorf("%w: custom field %q needs options", ErrValidationFailed, field.FieldName)
		}
	}
	return nil
}

func isValidEventStatusTransition(current, next models.EventStatus) bool {
	if current == next {
		return true
	}
	allowed := map[models.EventStatus][]models.EventStatus{
		models.EventStatusUpcoming:  {models.EventStatusOngoing, models.EventStatusCancelled},
		models.EventStatusOngoing:   {models.EventStatusCompleted, models.EventStatusCancelled},
		models.EventStatusCompleted: {},
		models.EventStatusCancelled: {},
	}
	for _, status := range allowed[current] {
		if next == status {
			return true
		}
	}
	return false
}

func (s *EventService) mapRepoError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrEventNotFound):
		return ErrEventNotFound
	case errors.Is(err, repositories.ErrUnavailable):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	default:
		return err
	}
}

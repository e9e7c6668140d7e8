package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Admission and lifecycle errors
	ErrEventNotOpen             = errors.New("event is not open for registration")
	ErrAlreadyRegistered        = errors.New("already registered for this event")
	ErrTeamSizeInvalid          = errors.New("team size is outside the allowed range")
	ErrPaymentModeNotAccepted   = errors.New("payment mode is not accepted for this event")
	ErrPaymentDetailsIncomplete = errors.New("transaction reference and payment proof are required for online payment")
	ErrEventFull                = errors.New("event has reached maximum capacity")
	ErrInvalidState             = errors.New("registration is not in a state that allows this action")

	// Validation
	ErrValidationFailed = errors.New("validation failed")

	// Authentication / authorization
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email address is already in use")
	ErrForbidden          = errors.New("operation not allowed for the current user")

	// Entity-specific not-found (give more context than the generic ErrNotFound)
	ErrEventNotFound        = errors.New("event not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrUserNotFound         = errors.New("user not found")

	// Transient store failure, safe to retry
	ErrUnavailable = errors.New("service temporarily unavailable, retry later")

	// Event management
	ErrEventInvalidCapacity   = errors.New("event max capacity must not be negative")
	ErrEventInvalidTeamSize   = errors.New("event team size bounds must be positive and min must not exceed max")
	ErrEventInvalidFee        = errors.New("event entry fee must not be negative")
	ErrEventInvalidStatus     = errors.New("invalid event status provided")
	ErrEventInvalidTransition = errors.New("invalid event status transition")
	ErrEventTitleRequired     = errors.New("event title is required")
	ErrEventNoPaymentMode     = errors.New("a paid event must accept at least one payment mode")
)

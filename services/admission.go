package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/campushq/event-registration/models"
)

// RegistrationRequest carries everything a participant submits with a
// registration attempt. ProofKey is the opaque reference of an already
// uploaded payment proof, never the artifact itself.
type RegistrationRequest struct {
	TeamName             *string             `json:"team_name,omitempty"`
	TeamMembers          []models.TeamMember `json:"team_members,omitempty"`
	CustomFieldResponses map[string]string   `json:"custom_field_responses,omitempty"`
	PaymentMode          models.PaymentMode  `json:"payment_mode,omitempty"`
	TransactionRef       *string             `json:"transaction_ref,omitempty"`
	ProofKey             *string             `json:"proof_key,omitempty"`
}

func (r RegistrationRequest) TeamSize() int {
	return 1 + len(r.TeamMembers)
}

// AdmissionDecision is the outcome of evaluating a registration attempt.
// It fixes the initial lifecycle state of the registration: free events are
// confirmed immediately (and must reserve capacity right away), paid events
// start pending and compete for capacity only at verification time.
type AdmissionDecision struct {
	Status        models.RegistrationStatus
	PaymentStatus models.PaymentStatus
	PaymentMode   models.PaymentMode
}

// RequiresReservation reports whether the register call itself must reserve a
// capacity slot before persisting.
func (d AdmissionDecision) RequiresReservation() bool {
	return d.Status == models.RegistrationConfirmed
}

// EvaluateAdmission is the pure admission check. It is capacity-agnostic:
// occupancy is decided separately by the atomic reserve on the event store.
// Checks run in order and short-circuit on the first failure; a rejected
// request must cause no mutation anywhere.
func EvaluateAdmission(event *models.Event, existing *models.Registration, req RegistrationRequest) (AdmissionDecision, error) {
	if event.Status != models.EventStatusUpcoming {
		return AdmissionDecision{}, ErrEventNotOpen
	}

	// Advisory pre-check. Авторитетна частичная уникальность в хранилище.
	if existing != nil && existing.IsActive() {
		return AdmissionDecision{}, ErrAlreadyRegistered
	}

	size := req.TeamSize()
	if size < event.TeamSizeMin || size > event.TeamSizeMax {
		return AdmissionDecision{}, fmt.Errorf("%w: team size must be between %d and %d, got %d",
			ErrTeamSizeInvalid, event.TeamSizeMin, event.TeamSizeMax, size)
	}

	if err := validateCustomFieldResponses(event.CustomFields, req.CustomFieldResponses); err != nil {
		return AdmissionDecision{}, err
	}

	if event.IsFree() {
		return AdmissionDecision{
			Status:        models.RegistrationConfirmed,
			PaymentStatus: models.PaymentNotRequired,
			PaymentMode:   models.PaymentModeNone,
		}, nil
	}

	switch req.PaymentMode {
	case models.PaymentModeOnline:
		if !event.AcceptsOnlinePayment {
			return AdmissionDecision{}, fmt.Errorf("%w: online", ErrPaymentModeNotAccepted)
		}
		if req.TransactionRef == nil || strings.TrimSpace(*req.TransactionRef) == "" ||
			req.ProofKey == nil || strings.TrimSpace(*req.ProofKey) == "" {
			return AdmissionDecision{}, ErrPaymentDetailsIncomplete
		}
	case models.PaymentModeOffline:
		if !event.AcceptsOfflinePayment {
			return AdmissionDecision{}, fmt.Errorf("%w: offline", ErrPaymentModeNotAccepted)
		}
	default:
		return AdmissionDecision{}, fmt.Errorf("%w: %q", ErrPaymentModeNotAccepted, req.PaymentMode)
	}

	return AdmissionDecision{
		Status:        models.RegistrationPending,
		PaymentStatus: models.PaymentPending,
		PaymentMode:   req.PaymentMode,
	}, nil
}

// validateCustomFieldResponses checks submitted responses against the event's
// declared custom-field schema. Unknown response keys are rejected so that a
// loosely shaped request body cannot smuggle arbitrary data past admission.
func validateCustomFieldResponses(schema []models.CustomField, responses map[string]string) error {
	byName := make(map[string]models.CustomField, len(schema))
	for _, field := range schema {
		byName[field.FieldName] = field
	}

	for name := range responses {
		if _, ok := byName[name]; !ok {
			return fmt.Errorf("%w: unknown custom field %q", ErrValidationFailed, name)
		}
	}

	for _, field := range schema {
		value := strings.TrimSpace(responses[field.FieldName])
		if value == "" {
			if field.Required {
				return fmt.Errorf("%w: custom field %q is required", ErrValidationFailed, field.FieldName)
			}
			continue
		}
		if err := validateFieldValue(field, value); err != nil {
			return err
		}
	}
	return nil
}

func validateFieldValue(field models.CustomField, value string) error {
	switch field.FieldType {
	case models.FieldTypeNumber:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return fmt.Errorf("%w: custom field %q must be a number", ErrValidationFailed, field.FieldName)
		}
	case models.FieldTypeEmail:
		at := strings.Index(value, "@")
		if at <= 0 || at == len(value)-1 || !strings.Contains(value[at:], ".") {
			return fmt.Errorf("%w: custom field %q must be a valid email address", ErrValidationFailed, field.FieldName)
		}
	case models.FieldTypeSelect:
		for _, option := range field.Options {
			if value == option {
				return nil
			}
		}
		return fmt.Errorf("%w: custom field %q must be one of the declared options", ErrValidationFailed, field.FieldName)
	case models.FieldTypeText, models.FieldTypeTel, models.FieldTypeTextarea:
		// free-form
	default:
		return fmt.Errorf("%w: custom field %q has unsupported type %q", ErrValidationFailed, field.FieldName, field.FieldType)
	}
	return nil
}

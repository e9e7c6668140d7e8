package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/campushq/event-registration/models"
)

func strPtr(s string) *string { return &s }

func upcomingEvent() *models.Event {
	return &models.Event{
		ID:          1,
		Title:       "Hack Night",
		Date:        time.Now().Add(48 * time.Hour),
		Category:    models.CategoryTechnical,
		TeamSizeMin: 1,
		TeamSizeMax: 1,
		MaxCapacity: 100,
		Status:      models.EventStatusUpcoming,
		CreatedBy:   10,
	}
}

func paidEvent() *models.Event {
	e := upcomingEvent()
	e.EntryFee = 5000
	e.AcceptsOnlinePayment = true
	e.AcceptsOfflinePayment = true
	e.UPIID = strPtr("club@upi")
	e.UPIName = strPtr("Tech Club")
	return e
}

func TestEvaluateAdmission_FreeEventConfirmsImmediately(t *testing.T) {
	decision, err := EvaluateAdmission(upcomingEvent(), nil, RegistrationRequest{})
	require.NoError(t, err)
	require.Equal(t, models.RegistrationConfirmed, decision.Status)
	require.Equal(t, models.PaymentNotRequired, decision.PaymentStatus)
	require.Equal(t, models.PaymentModeNone, decision.PaymentMode)
	require.True(t, decision.RequiresReservation(), "free registrations must reserve a slot at register time")
}

func TestEvaluateAdmission_PaidEventStartsPending(t *testing.T) {
	req := RegistrationRequest{PaymentMode: models.PaymentModeOffline}
	decision, err := EvaluateAdmission(paidEvent(), nil, req)
	require.NoError(t, err)
	require.Equal(t, models.RegistrationPending, decision.Status)
	require.Equal(t, models.PaymentPending, decision.PaymentStatus)
	require.Equal(t, models.PaymentModeOffline, decision.PaymentMode)
	require.False(t, decision.RequiresReservation(), "pending registrations must not hold a slot")
}

func TestEvaluateAdmission_EventNotOpen(t *testing.T) {
	for _, status := range []models.EventStatus{
		models.EventStatusOngoing,
		models.EventStatusCompleted,
		models.EventStatusCancelled,
	} {
		event := upcomingEvent()
		event.Status = status
		_, err := EvaluateAdmission(event, nil, RegistrationRequest{})
		require.ErrorIs(t, err, ErrEventNotOpen, "status %s must not admit registrations", status)
	}
}

func TestEvaluateAdmission_ActiveDuplicateRejected(t *testing.T) {
	existing := &models.Registration{EventID: 1, UserID: 2, Status: models.RegistrationPending}
	_, err := EvaluateAdmission(upcomingEvent(), existing, RegistrationRequest{})
	require.ErrorIs(t, err, ErrAlreadyRegistered)

	existing.Status = models.RegistrationConfirmed
	_, err = EvaluateAdmission(upcomingEvent(), existing, RegistrationRequest{})
	require.ErrorIs(t, err, ErrAlreadyRegistered)
}

func TestEvaluateAdmission_TerminalRegistrationDoesNotBlock(t *testing.T) {
	for _, status := range []models.RegistrationStatus{
		models.RegistrationCancelled,
		models.RegistrationRejected,
	} {
		existing := &models.Registration{EventID: 1, UserID: 2, Status: status}
		_, err := EvaluateAdmission(upcomingEvent(), existing, RegistrationRequest{})
		require.NoError(t, err, "a %s registration must allow re-registering", status)
	}
}

func TestEvaluateAdmission_TeamSizeBounds(t *testing.T) {
	event := upcomingEvent()
	event.TeamSizeMin = 2
	event.TeamSizeMax = 4

	member := models.TeamMember{Name: "Alex", Email: "alex@example.com"}

	tests := []struct {
		name    string
		members []models.TeamMember
		wantErr bool
	}{
		{"solo below minimum", nil, true},
		{"at minimum", []models.TeamMember{member}, false},
		{"at maximum", []models.TeamMember{member, member, member}, false},
		{"above maximum", []models.TeamMember{member, member, member, member}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EvaluateAdmission(event, nil, RegistrationRequest{TeamMembers: tt.members})
			if tt.wantErr {
				require.ErrorIs(t, err, ErrTeamSizeInvalid)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestEvaluateAdmission_PaymentModes(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.Event)
		req     RegistrationRequest
		wantErr error
	}{
		{
			name: "online with complete details",
			req: RegistrationRequest{
				PaymentMode:    models.PaymentModeOnline,
				TransactionRef: strPtr("TXN123"),
				ProofKey:       strPtr("payment-proofs/1/abc.png"),
			},
		},
		{
			name:    "online without transaction ref",
			req:     RegistrationRequest{PaymentMode: models.PaymentModeOnline, ProofKey: strPtr("k")},
			wantErr: ErrPaymentDetailsIncomplete,
		},
		{
			name:    "online without proof",
			req:     RegistrationRequest{PaymentMode: models.PaymentModeOnline, TransactionRef: strPtr("TXN123")},
			wantErr: ErrPaymentDetailsIncomplete,
		},
		{
			name:    "online when event only accepts offline",
			mutate:  func(e *models.Event) { e.AcceptsOnlinePayment = false },
			req:     RegistrationRequest{PaymentMode: models.PaymentModeOnline, TransactionRef: strPtr("t"), ProofKey: strPtr("k")},
			wantErr: ErrPaymentModeNotAccepted,
		},
		{
			name: "offline needs no details",
			req:  RegistrationRequest{PaymentMode: models.PaymentModeOffline},
		},
		{
			name:    "offline when event only accepts online",
			mutate:  func(e *models.Event) { e.AcceptsOfflinePayment = false },
			req:     RegistrationRequest{PaymentMode: models.PaymentModeOffline},
			wantErr: ErrPaymentModeNotAccepted,
		},
		{
			name:    "missing mode on paid event",
			req:     RegistrationRequest{},
			wantErr: ErrPaymentModeNotAccepted,
		},
		{
			name:    "none mode on paid event",
			req:     RegistrationRequest{PaymentMode: models.PaymentModeNone},
			wantErr: ErrPaymentModeNotAccepted,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := paidEvent()
			if tt.mutate != nil {
				tt.mutate(event)
			}
			_, err := EvaluateAdmission(event, nil, tt.req)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestEvaluateAdmission_CustomFields(t *testing.T) {
	event := upcomingEvent()
	event.CustomFields = []models.CustomField{
		{FieldName: "roll_number", FieldType: models.FieldTypeText, Required: true},
		{FieldName: "experience_years", FieldType: models.FieldTypeNumber},
		{FieldName: "contact_email", FieldType: models.FieldTypeEmail},
		{FieldName: "tshirt_size", FieldType: models.FieldTypeSelect, Options: []string{"S", "M", "L"}},
	}

	tests := []struct {
		name      string
		responses map[string]string
		wantErr   bool
	}{
		{
			name:      "valid full submission",
			responses: map[string]string{"roll_number": "CS21B001", "experience_years": "2", "contact_email": "me@uni.edu", "tshirt_size": "M"},
		},
		{
			name:      "optional fields omitted",
			responses: map[string]string{"roll_number": "CS21B001"},
		},
		{
			name:      "required field missing",
			responses: map[string]string{"tshirt_size": "M"},
			wantErr:   true,
		},
		{
			name:      "required field blank",
			responses: map[string]string{"roll_number": "   "},
			wantErr:   true,
		},
		{
			name:      "unknown field rejected",
			responses: map[string]string{"roll_number": "CS21B001", "favorite_color": "blue"},
			wantErr:   true,
		},
		{
			name:      "number field not numeric",
			responses: map[string]string{"roll_number": "CS21B001", "experience_years": "two"},
			wantErr:   true,
		},
		{
			name:      "email field malformed",
			responses: map[string]string{"roll_number": "CS21B001", "contact_email": "not-an-email"},
			wantErr:   true,
		},
		{
			name:      "select value outside options",
			responses: map[string]string{"roll_number": "CS21B001", "tshirt_size": "XXL"},
			wantErr:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EvaluateAdmission(event, nil, RegistrationRequest{CustomFieldResponses: tt.responses})
			if tt.wantErr {
				require.ErrorIs(t, err, ErrValidationFailed)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

package models

import "time"

// PaymentMode соответствует ENUM payment_mode в БД.
type PaymentMode string

const (
	PaymentModeOnline  PaymentMode = "online"
	PaymentModeOffline PaymentMode = "offline"
	PaymentModeNone    PaymentMode = "none"
)

type PaymentStatus string

const (
	PaymentNotRequired PaymentStatus = "not_required"
	PaymentPending     PaymentStatus = "pending"
	PaymentVerified    PaymentStatus = "verified"
	PaymentRejected    PaymentStatus = "rejected"
)

type RegistrationStatus string

const (
	RegistrationPending   RegistrationStatus = "pending"
	RegistrationConfirmed RegistrationStatus = "confirmed"
	RegistrationRejected  RegistrationStatus = "rejected"
	RegistrationCancelled RegistrationStatus = "cancelled"
)

// TeamMember is one teammate the registrant signs up alongside themselves.
// The list is stored as a JSONB column on the registration row.
type TeamMember struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type Registration struct {
	ID                   int                `json:"id"`
	EventID              int                `json:"event_id"`
	UserID               int                `json:"user_id"`
	TeamName             *string            `json:"team_name,omitempty"`
	TeamMembers          []TeamMember       `json:"team_members,omitempty"`
	CustomFieldResponses map[string]string  `json:"custom_field_responses,omitempty"`
	PaymentMode          PaymentMode        `json:"payment_mode"`
	PaymentStatus        PaymentStatus      `json:"payment_status"`
	PaymentAmount        int64              `json:"payment_amount"`
	TransactionRef       *string            `json:"transaction_ref,omitempty"`
	ProofKey             *string            `json:"-"`
	ProofURL             *string            `json:"proof_url,omitempty"`
	Status               RegistrationStatus `json:"registration_status"`
	ReviewerID           *int               `json:"reviewer_id,omitempty"`
	ReviewedAt           *time.Time         `json:"reviewed_at,omitempty"`
	RejectionReason      *string            `json:"rejection_reason,omitempty"`
	CreatedAt            time.Time          `json:"created_at"`

	// Optional related entities, not mapped directly.
	Event *Event `json:"event,omitempty"`
	User  *User  `json:"user,omitempty"`
}

// TeamSize counts the registrant plus every listed teammate.
func (r *Registration) TeamSize() int {
	return 1 + len(r.TeamMembers)
}

// CountedTowardCapacity reports whether this registration holds a slot in its
// event's occupancy counter. Holds exactly when the registration is confirmed.
func (r *Registration) CountedTowardCapacity() bool {
	return r.Status == RegistrationConfirmed
}

// IsActive reports whether the registration occupies the one-per-(event,user)
// slot: pending and confirmed registrations block a new attempt, terminal
// rejected/cancelled ones do not.
func (r *Registration) IsActive() bool {
	return r.Status == RegistrationPending || r.Status == RegistrationConfirmed
}

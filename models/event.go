package models

import "time"

// EventStatus represents event lifecycle statuses, matching the ENUM in the database.
type EventStatus string

const (
	EventStatusUpcoming  EventStatus = "upcoming"
	EventStatusOngoing   EventStatus = "ongoing"
	EventStatusCompleted EventStatus = "completed"
	EventStatusCancelled EventStatus = "cancelled"
)

type EventCategory string

const (
	CategoryTechnical EventCategory = "technical"
	CategoryCultural  EventCategory = "cultural"
	CategorySports    EventCategory = "sports"
	CategoryWorkshop  EventCategory = "workshop"
	CategorySeminar   EventCategory = "seminar"
	CategoryOther     EventCategory = "other"
)

// CustomFieldType enumerates the input types an event's registration form may declare.
type CustomFieldType string

const (
	FieldTypeText     CustomFieldType = "text"
	FieldTypeNumber   CustomFieldType = "number"
	FieldTypeEmail    CustomFieldType = "email"
	FieldTypeTel      CustomFieldType = "tel"
	FieldTypeSelect   CustomFieldType = "select"
	FieldTypeTextarea CustomFieldType = "textarea"
)

// CustomField describes one extra form field an organizer requires from registrants.
// The whole schema is stored as a JSONB column on the event row.
type CustomField struct {
	FieldName string          `json:"field_name"`
	FieldType CustomFieldType `json:"field_type"`
	Required  bool            `json:"required"`
	Options   []string        `json:"options,omitempty"`
}

// Event представляет мероприятие с ограниченной вместимостью.
// CurrentRegistrations is mutated only through EventRepository.TryReserve/Release.
type Event struct {
	ID                    int           `json:"id"`
	Title                 string        `json:"title"`
	Description           *string       `json:"description,omitempty"`
	Date                  time.Time     `json:"date"`
	Venue                 *string       `json:"venue,omitempty"`
	Category              EventCategory `json:"category"`
	TeamSizeMin           int           `json:"team_size_min"`
	TeamSizeMax           int           `json:"team_size_max"`
	EntryFee              int64         `json:"entry_fee"` // smallest currency unit
	UPIID                 *string       `json:"upi_id,omitempty"`
	UPIName               *string       `json:"upi_name,omitempty"`
	AcceptsOnlinePayment  bool          `json:"accepts_online_payment"`
	AcceptsOfflinePayment bool          `json:"accepts_offline_payment"`
	CustomFields          []CustomField `json:"custom_fields,omitempty"`
	MaxCapacity           int           `json:"max_capacity"`
	CurrentRegistrations  int           `json:"current_registrations"`
	Status                EventStatus   `json:"status"`
	ImageKey              *string       `json:"-"`
	ImageURL              *string       `json:"image_url,omitempty"`
	CreatedBy             int           `json:"created_by"`
	CreatedAt             time.Time     `json:"created_at"`
}

// IsFree reports whether registrations for the event skip payment verification.
func (e *Event) IsFree() bool {
	return e.EntryFee == 0
}

func (e *Event) Remaining() int {
	if e.CurrentRegistrations >= e.MaxCapacity {
		return 0
	}
	return e.MaxCapacity - e.CurrentRegistrations
}

// CapacitySnapshot is the occupancy state of one event as observed by a single
// atomic reserve/release, and the payload broadcast to live subscribers.
type CapacitySnapshot struct {
	EventID              int `json:"event_id"`
	CurrentRegistrations int `json:"current_registrations"`
	MaxCapacity          int `json:"max_capacity"`
}

package models

import "time"

const (
	EventStatusDraft    = "draft"
	EventStatusPending  = "pending"
	EventStatusApproved = "approved"
	EventStatusRejected = "rejected"
)

var eventTransitions = map[string][]string{
	EventStatusDraft:    {EventStatusPending},
	EventStatusPending:  {EventStatusApproved, EventStatusRejected},
	EventStatusRejected: {EventStatusPending},
}

type Event struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	OrganizerID     uint      `gorm:"not null;index" json:"organizer_id"`
	Organizer       *User     `gorm:"foreignKey:OrganizerID" json:"organizer,omitempty"`
	Title           string    `gorm:"type:varchar(255);not null" json:"title"`
	Description     string    `gorm:"type:text" json:"description"`
	Category        string    `gorm:"type:varchar(100);index" json:"category"`
	Venue           string    `gorm:"type:varchar(255)" json:"venue"`
	StartDate       time.Time `gorm:"not null;index" json:"start_date"`
	EndDate         time.Time `gorm:"not null" json:"end_date"`
	Capacity        int       `gorm:"not null;default:0" json:"capacity"`
	Price           float64   `gorm:"type:decimal(10,2);not null;default:0.00" json:"price"`
	Status          string    `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	RejectionReason string    `gorm:"type:text" json:"rejection_reason,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	RegisteredCount int64 `gorm:"-" json:"registered_count"`
	SeatsLeft       int64 `gorm:"-" json:"seats_left"`
}

// CanTransition reports whether the moderation lifecycle allows moving to next.
func (e *Event) CanTransition(next string) bool {
	for _, s := range eventTransitions[e.Status] {
		if s == next {
			return true
		}
	}
	return false
}

// Editable is true while the organizer may still change the event.
func (e *Event) Editable() bool {
	return e.Status == EventStatusDraft || e.Status == EventStatusRejected
}

func (e *Event) IsFree() bool {
	return e.Price <= 0
}

// SetSeats fills the derived registration counters. Capacity 0 means unlimited.
func (e *Event) SetSeats(registered int64) {
	e.RegisteredCount = registered
	if e.Capacity <= 0 {
		e.SeatsLeft = -1
		return
	}
	left := int64(e.Capacity) - registered
	if left < 0 {
		left = 0
	}
	e.SeatsLeft = left
}

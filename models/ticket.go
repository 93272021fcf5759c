package models

import (
	"fmt"
	"time"
)

const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusCancelled = "cancelled"
)

// Ticket links a user to an event registration.
type Ticket struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	UserID        uint       `gorm:"not null;index" json:"user_id"`
	User          *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	EventID       uint       `gorm:"not null;index" json:"event_id"`
	Event         *Event     `gorm:"foreignKey:EventID" json:"event,omitempty"`
	TicketCode    string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"ticket_code"`
	PaymentStatus string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"payment_status"`
	AmountPaid    float64    `gorm:"type:decimal(10,2);not null;default:0.00" json:"amount_paid"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	RemindedAt    *time.Time `json:"reminded_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// GenerateTicketCode builds the printable code once the row has an ID.
func (t *Ticket) GenerateTicketCode(suffix string) string {
	return fmt.Sprintf("EMS-%d-%d-%s", t.EventID, t.UserID, suffix)
}

func (t *Ticket) IsActive() bool {
	return t.PaymentStatus != PaymentStatusCancelled
}

package models

import (
	"time"
)

const (
	NotificationSystem                = "system"
	NotificationEventReminder         = "event_reminder"
	NotificationPaymentCompleted      = "payment_completed"
	NotificationEventApproved         = "event_approved"
	NotificationEventRejected         = "event_rejected"
	NotificationNewRegistration       = "new_registration"
	NotificationRegistrationCancelled = "registration_cancelled"
	NotificationTicketExpired         = "ticket_expired"
)

// NotificationTypes lists every type accepted as a listing filter.
var NotificationTypes = []string{
	NotificationSystem,
	NotificationEventReminder,
	NotificationPaymentCompleted,
	NotificationEventApproved,
	NotificationEventRejected,
	NotificationNewRegistration,
	NotificationRegistrationCancelled,
	NotificationTicketExpired,
}

// Notification always belongs to exactly one user. ReadAt is non-nil iff IsRead.
type Notification struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	UserID         uint       `gorm:"not null;index:idx_notifications_user_read" json:"user_id"`
	User           *User      `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Title          string     `gorm:"type:varchar(255);not null" json:"title"`
	Message        string     `gorm:"type:text;not null" json:"message"`
	Type           string     `gorm:"type:varchar(50);not null;default:'system';index" json:"type"`
	RelatedEventID *uint      `gorm:"index" json:"related_event_id,omitempty"`
	IsRead         bool       `gorm:"not null;default:false;index:idx_notifications_user_read" json:"is_read"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	CreatedAt      time.Time  `gorm:"not null;index" json:"created_at"`
}

func IsNotificationType(t string) bool {
	for _, known := range NotificationTypes {
		if known == t {
			return true
		}
	}
	return false
}

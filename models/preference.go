package models

import "time"

// UserPreferences is upserted as a single row per user. Columns have no
// database defaults so that zero values persist as written.
type UserPreferences struct {
	ID                 uint      `gorm:"primaryKey" json:"-"`
	UserID             uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	EmailNotifications bool      `gorm:"not null" json:"email_notifications"`
	SMSNotifications   bool      `gorm:"not null" json:"sms_notifications"`
	PushNotifications  bool      `gorm:"not null" json:"push_notifications"`
	EventReminders     bool      `gorm:"not null" json:"event_reminders"`
	MarketingEmails    bool      `gorm:"not null" json:"marketing_emails"`
	ProfileVisibility  string    `gorm:"type:varchar(20);not null" json:"profile_visibility"`
	ShowEmail          bool      `gorm:"not null" json:"show_email"`
	ShowPhone          bool      `gorm:"not null" json:"show_phone"`
	Theme              string    `gorm:"type:varchar(10);not null" json:"theme"`
	Language           string    `gorm:"type:varchar(10);not null" json:"language"`
	Timezone           string    `gorm:"type:varchar(64);not null" json:"timezone"`
	DateFormat         string    `gorm:"type:varchar(20);not null" json:"date_format"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// DefaultPreferences returns the settings a user has before saving any.
func DefaultPreferences(userID uint) UserPreferences {
	return UserPreferences{
		UserID:             userID,
		EmailNotifications: true,
		PushNotifications:  true,
		EventReminders:     true,
		ProfileVisibility:  "public",
		Theme:              "light",
		Language:           "en",
		Timezone:           "UTC",
		DateFormat:         "Y-m-d",
	}
}

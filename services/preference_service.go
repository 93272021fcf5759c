package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/yeremiapane/campus-ems/models"
	"gorm.io/gorm"
)

// PreferencesInput is the full settings form. Booleans absent from the request
// are saved as false, matching unchecked checkboxes.
type PreferencesInput struct {
	EmailNotifications bool   `json:"email_notifications"`
	SMSNotifications   bool   `json:"sms_notifications"`
	PushNotifications  bool   `json:"push_notifications"`
	EventReminders     bool   `json:"event_reminders"`
	MarketingEmails    bool   `json:"marketing_emails"`
	ProfileVisibility  string `json:"profile_visibility" validate:"required,oneof=public private friends"`
	ShowEmail          bool   `json:"show_email"`
	ShowPhone          bool   `json:"show_phone"`
	Theme              string `json:"theme" validate:"required,oneof=light dark auto"`
	Language           string `json:"language" validate:"required,min=2,max=10"`
	Timezone           string `json:"timezone" validate:"required,timezone"`
	DateFormat         string `json:"date_format" validate:"required,oneof=Y-m-d d/m/Y m/d/Y d-m-Y"`
}

type PreferenceService struct {
	db *gorm.DB
}

func NewPreferenceService(db *gorm.DB) *PreferenceService {
	return &PreferenceService{db: db}
}

// Get returns the stored preferences, or the defaults when none were saved yet.
func (s *PreferenceService) Get(ctx context.Context, userID uint) (models.UserPreferences, error) {
	var prefs models.UserPreferences
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&prefs).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.DefaultPreferences(userID), nil
	}
	if err != nil {
		return models.UserPreferences{}, fmt.Errorf("load preferences: %w", err)
	}
	return prefs, nil
}

// Save upserts the single preferences row of userID.
func (s *PreferenceService) Save(ctx context.Context, userID uint, in PreferencesInput) (models.UserPreferences, error) {
	if err := validateStruct(in); err != nil {
		return models.UserPreferences{}, err
	}

	var saved models.UserPreferences
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.UserPreferences
		err := tx.Where("user_id = ?", userID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			saved = in.apply(models.UserPreferences{UserID: userID})
			return tx.Create(&saved).Error
		case err != nil:
			return err
		}

		saved = in.apply(existing)
		return tx.Model(&existing).Updates(map[string]interface{}{
			"email_notifications": saved.EmailNotifications,
			"sms_notifications":   saved.SMSNotifications,
			"push_notifications":  saved.PushNotifications,
			"event_reminders":     saved.EventReminders,
			"marketing_emails":    saved.MarketingEmails,
			"profile_visibility":  saved.ProfileVisibility,
			"show_email":          saved.ShowEmail,
			"show_phone":          saved.ShowPhone,
			"theme":               saved.Theme,
			"language":            saved.Language,
			"timezone":            saved.Timezone,
			"date_format":         saved.DateFormat,
		}).Error
	})
	if err != nil {
		return models.UserPreferences{}, fmt.Errorf("save preferences: %w", err)
	}
	return saved, nil
}

func (in PreferencesInput) apply(p models.UserPreferences) models.UserPreferences {
	p.EmailNotifications = in.EmailNotifications
	p.SMSNotifications = in.SMSNotifications
	p.PushNotifications = in.PushNotifications
	p.EventReminders = in.EventReminders
	p.MarketingEmails = in.MarketingEmails
	p.ProfileVisibility = in.ProfileVisibility
	p.ShowEmail = in.ShowEmail
	p.ShowPhone = in.ShowPhone
	p.Theme = in.Theme
	p.Language = in.Language
	p.Timezone = in.Timezone
	p.DateFormat = in.DateFormat
	return p
}

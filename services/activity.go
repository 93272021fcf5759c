package services

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/campus-ems/models"
	"github.com/yeremiapane/campus-ems/utils"
	"gorm.io/gorm"
)

const (
	ActivityLogin           = "login"
	ActivityLogout          = "logout"
	ActivityRegister        = "register"
	ActivityProfileUpdate   = "profile_update"
	ActivityPasswordChange  = "password_change"
	ActivitySettingsUpdate  = "settings_update"
	ActivityEventRegister   = "event_register"
	ActivityTicketPaid      = "ticket_paid"
	ActivityTicketCancelled = "ticket_cancelled"
	ActivityEventCreated    = "event_created"
	ActivityEventSubmitted  = "event_submitted"
	ActivityEventModerated  = "event_moderated"
	ActivityDataExport      = "data_export"
	ActivityVerified        = "email_verified"
)

// ActivityLogger records user actions. Failures are logged and never block
// the action being recorded.
type ActivityLogger struct {
	db *gorm.DB
}

func NewActivityLogger(db *gorm.DB) *ActivityLogger {
	return &ActivityLogger{db: db}
}

func (a *ActivityLogger) Log(ctx context.Context, userID uint, action, description, ip string) {
	entry := models.ActivityLog{
		UserID:      userID,
		Action:      action,
		Description: description,
		IPAddress:   ip,
	}
	if err := a.db.WithContext(ctx).Create(&entry).Error; err != nil {
		utils.ErrorLogger.WithFields(logrus.Fields{
			"user_id": userID,
			"action":  action,
		}).Errorf("Failed to record activity: %v", err)
	}
}

func (a *ActivityLogger) Recent(ctx context.Context, userID uint, limit int) ([]models.ActivityLog, error) {
	logs := make([]models.ActivityLog, 0)
	err := a.db.WithContext(ctx).
		Scopes(OwnedBy(userID)).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

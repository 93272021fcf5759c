package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/campus-ems/mailer"
	"github.com/yeremiapane/campus-ems/models"
	"github.com/yeremiapane/campus-ems/realtime"
	"github.com/yeremiapane/campus-ems/utils"
	"gorm.io/gorm"
)

// Publisher pushes realtime messages to a user's open connections.
type Publisher interface {
	Publish(userID uint, msg realtime.Message)
}

type NotificationPage struct {
	Notifications []models.Notification `json:"notifications"`
	Total         int64                 `json:"total"`
	Page          int                   `json:"page"`
	PerPage       int                   `json:"per_page"`
	HasMore       bool                  `json:"has_more"`
	UnreadCount   int64                 `json:"unread_count"`
}

type NotifyInput struct {
	UserID         uint
	Type           string
	Title          string
	Message        string
	RelatedEventID *uint
}

type NotificationService struct {
	db        *gorm.DB
	prefs     *PreferenceService
	mailer    mailer.Sender
	publisher Publisher
	now       func() time.Time
}

func NewNotificationService(db *gorm.DB, prefs *PreferenceService, sender mailer.Sender, publisher Publisher) *NotificationService {
	return &NotificationService{
		db:        db,
		prefs:     prefs,
		mailer:    sender,
		publisher: publisher,
		now:       time.Now,
	}
}

// List returns one page of the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID uint, filter string, page int) (*NotificationPage, error) {
	if !ValidNotificationFilter(filter) {
		return nil, ErrInvalidFilter
	}
	if page < 1 {
		page = 1
	}

	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&models.Notification{}).
		Scopes(OwnedBy(userID), NotificationFilter(filter)).
		Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count notifications: %w", err)
	}

	notifications := make([]models.Notification, 0)
	if err := db.Scopes(OwnedBy(userID), NotificationFilter(filter), Paginate(page, NotificationsPerPage)).
		Order("created_at DESC").
		Order("id DESC").
		Find(&notifications).Error; err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	unread, err := s.UnreadCount(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &NotificationPage{
		Notifications: notifications,
		Total:         total,
		Page:          page,
		PerPage:       NotificationsPerPage,
		HasMore:       hasMore(page, NotificationsPerPage, total),
		UnreadCount:   unread,
	}, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Scopes(OwnedBy(userID), NotificationFilter("unread")).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

// MarkRead flags one notification as read. Marking an already read row keeps
// its original read_at.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID uint) error {
	db := s.db.WithContext(ctx)

	res := db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ? AND is_read = ?", notificationID, userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": s.now()})
	if res.Error != nil {
		return fmt.Errorf("mark read: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		s.pushUnreadCount(ctx, userID)
		return nil
	}

	var exists int64
	if err := db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Count(&exists).Error; err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if exists == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": s.now()})
	if res.Error != nil {
		return 0, fmt.Errorf("mark all read: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		s.pushUnreadCount(ctx, userID)
	}
	return res.RowsAffected, nil
}

func (s *NotificationService) Delete(ctx context.Context, userID, notificationID uint) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Delete(&models.Notification{})
	if res.Error != nil {
		return fmt.Errorf("delete notification: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	s.pushUnreadCount(ctx, userID)
	return nil
}

func (s *NotificationService) DeleteAllRead(ctx context.Context, userID uint) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND is_read = ?", userID, true).
		Delete(&models.Notification{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete read notifications: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Notify stores a notification and fans it out to the channels the user has
// enabled. It returns nil without error when the user opted out of the type.
func (s *NotificationService) Notify(ctx context.Context, in NotifyInput) (*models.Notification, error) {
	if in.Type == "" {
		in.Type = models.NotificationSystem
	}

	prefs, err := s.prefs.Get(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if in.Type == models.NotificationEventReminder && !prefs.EventReminders {
		return nil, nil
	}

	n := models.Notification{
		UserID:         in.UserID,
		Title:          in.Title,
		Message:        in.Message,
		Type:           in.Type,
		RelatedEventID: in.RelatedEventID,
		CreatedAt:      s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}

	if prefs.EmailNotifications {
		s.sendEmail(ctx, n)
	}
	if prefs.PushNotifications {
		s.publish(n.UserID, realtime.Message{Event: realtime.EventNotificationCreated, Data: n})
		s.pushUnreadCount(ctx, n.UserID)
	}
	return &n, nil
}

// Broadcast sends a system notice to every user, or only those with role.
func (s *NotificationService) Broadcast(ctx context.Context, role, title, message string) (int64, error) {
	query := s.db.WithContext(ctx).Model(&models.User{})
	if role != "" {
		query = query.Where("role = ?", role)
	}

	var userIDs []uint
	if err := query.Pluck("id", &userIDs).Error; err != nil {
		return 0, fmt.Errorf("load recipients: %w", err)
	}
	if len(userIDs) == 0 {
		return 0, nil
	}

	now := s.now()
	rows := make([]models.Notification, 0, len(userIDs))
	for _, id := range userIDs {
		rows = append(rows, models.Notification{
			UserID:    id,
			Title:     title,
			Message:   message,
			Type:      models.NotificationSystem,
			CreatedAt: now,
		})
	}
	if err := s.db.WithContext(ctx).CreateInBatches(&rows, 100).Error; err != nil {
		return 0, fmt.Errorf("broadcast: %w", err)
	}

	for i := range rows {
		s.publish(rows[i].UserID, realtime.Message{Event: realtime.EventNotificationCreated, Data: rows[i]})
	}
	return int64(len(rows)), nil
}

// PurgeRead removes read notifications whose read_at is older than cutoff.
func (s *NotificationService) PurgeRead(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("is_read = ? AND read_at < ?", true, cutoff).
		Delete(&models.Notification{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge read notifications: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *NotificationService) sendEmail(ctx context.Context, n models.Notification) {
	if s.mailer == nil {
		return
	}

	var user models.User
	if err := s.db.WithContext(ctx).Select("id", "email").First(&user, n.UserID).Error; err != nil {
		utils.ErrorLogger.WithField("user_id", n.UserID).Errorf("Notification email skipped: %v", err)
		return
	}

	err := s.mailer.Send(mailer.Email{
		To:      user.Email,
		Subject: "[EMS] " + n.Title,
		Body:    n.Message,
	})
	if err != nil {
		utils.ErrorLogger.WithFields(logrus.Fields{
			"user_id":         n.UserID,
			"notification_id": n.ID,
		}).Errorf("Notification email failed: %v", err)
	}
}

func (s *NotificationService) pushUnreadCount(ctx context.Context, userID uint) {
	if s.publisher == nil {
		return
	}
	count, err := s.UnreadCount(ctx, userID)
	if err != nil {
		utils.ErrorLogger.WithField("user_id", userID).Errorf("Unread count push skipped: %v", err)
		return
	}
	s.publisher.Publish(userID, realtime.Message{Event: realtime.EventUnreadCount, Data: count})
}

func (s *NotificationService) publish(userID uint, msg realtime.Message) {
	if s.publisher != nil {
		s.publisher.Publish(userID, msg)
	}
}

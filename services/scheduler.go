package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/campus-ems/models"
	"github.com/yeremiapane/campus-ems/utils"
	"gorm.io/gorm"
)

// Scheduler runs periodic housekeeping: event reminders, expiry of unpaid
// tickets, retention of read notifications and the token blacklist.
type Scheduler struct {
	DB             *gorm.DB
	Notifications  *NotificationService
	Tickets        *TicketService
	StopChan       chan struct{}
	Interval       time.Duration
	ReminderWindow time.Duration
	ReadRetention  time.Duration
	now            func() time.Time
}

func NewScheduler(db *gorm.DB, notifications *NotificationService, tickets *TicketService) *Scheduler {
	return &Scheduler{
		DB:             db,
		Notifications:  notifications,
		Tickets:        tickets,
		StopChan:       make(chan struct{}),
		Interval:       time.Minute,
		ReminderWindow: 24 * time.Hour,
		ReadRetention:  90 * 24 * time.Hour,
		now:            time.Now,
	}
}

func (s *Scheduler) Start() {
	go func() {
		ticker := time.NewTicker(s.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.RunOnce(context.Background())
			case <-s.StopChan:
				return
			}
		}
	}()
	utils.InfoLogger.WithField("interval", s.Interval.String()).Info("Scheduler started")
}

func (s *Scheduler) Stop() {
	close(s.StopChan)
}

// RunOnce performs a single pass of every job. Job failures are logged and do
// not stop the remaining jobs.
func (s *Scheduler) RunOnce(ctx context.Context) {
	now := s.now()

	if sent, err := s.SendEventReminders(ctx, now); err != nil {
		utils.ErrorLogger.Errorf("Error sending event reminders: %v", err)
	} else if sent > 0 {
		utils.InfoLogger.WithField("count", sent).Info("Event reminders sent")
	}

	if _, err := s.Tickets.ExpirePending(ctx, now); err != nil {
		utils.ErrorLogger.Errorf("Error expiring tickets: %v", err)
	}

	if s.ReadRetention > 0 {
		purged, err := s.Notifications.PurgeRead(ctx, now.Add(-s.ReadRetention))
		if err != nil {
			utils.ErrorLogger.Errorf("Error purging notifications: %v", err)
		} else if purged > 0 {
			utils.InfoLogger.WithField("count", purged).Info("Old read notifications purged")
		}
	}

	if removed := utils.CleanupBlacklist(); removed > 0 {
		utils.InfoLogger.WithField("count", removed).Info("Expired tokens removed from blacklist")
	}
}

// SendEventReminders notifies holders of completed tickets for approved events
// starting within the reminder window. The ticket is stamped with reminded_at
// once handled, so each user gets at most one reminder per event even after
// the notification itself is deleted. Opted-out users are stamped too.
func (s *Scheduler) SendEventReminders(ctx context.Context, now time.Time) (int, error) {
	type due struct {
		TicketID uint
		UserID   uint
		EventID  uint
		Title    string
		Venue    string
		Start    time.Time
	}

	var rows []due
	err := s.DB.WithContext(ctx).
		Table("tickets").
		Select("tickets.id AS ticket_id, tickets.user_id, events.id AS event_id, events.title, events.venue, events.start_date AS start").
		Joins("JOIN events ON events.id = tickets.event_id").
		Where("tickets.payment_status = ?", models.PaymentStatusCompleted).
		Where("tickets.reminded_at IS NULL").
		Where("events.status = ?", models.EventStatusApproved).
		Where("events.start_date > ? AND events.start_date <= ?", now, now.Add(s.ReminderWindow)).
		Scan(&rows).Error
	if err != nil {
		return 0, fmt.Errorf("load due reminders: %w", err)
	}

	sent := 0
	for _, r := range rows {
		log := utils.ErrorLogger.WithFields(logrus.Fields{
			"user_id":  r.UserID,
			"event_id": r.EventID,
		})

		// Claim the ticket first so a concurrent pass cannot send twice.
		claim := s.DB.WithContext(ctx).Model(&models.Ticket{}).
			Where("id = ? AND reminded_at IS NULL", r.TicketID).
			Update("reminded_at", now)
		if claim.Error != nil {
			log.Errorf("Reminder claim failed: %v", claim.Error)
			continue
		}
		if claim.RowsAffected == 0 {
			continue
		}

		eventID := r.EventID
		n, err := s.Notifications.Notify(ctx, NotifyInput{
			UserID:         r.UserID,
			Type:           models.NotificationEventReminder,
			Title:          "Upcoming event: " + r.Title,
			Message:        fmt.Sprintf("%s starts %s at %s.", r.Title, r.Start.Format("Mon 02 Jan 15:04"), r.Venue),
			RelatedEventID: &eventID,
		})
		if err != nil {
			log.Errorf("Reminder failed: %v", err)
			// release the claim so the next tick retries
			if rerr := s.DB.WithContext(ctx).Model(&models.Ticket{}).
				Where("id = ?", r.TicketID).
				Update("reminded_at", nil).Error; rerr != nil {
				log.Errorf("Reminder release failed: %v", rerr)
			}
			continue
		}
		if n != nil {
			sent++
		}
	}
	return sent, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/campus-ems/models"
	"github.com/yeremiapane/campus-ems/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TicketMetrics counts ticket lifecycle changes since start.
type TicketMetrics struct {
	Registrations int64 `json:"registrations"`
	Payments      int64 `json:"payments"`
	Cancellations int64 `json:"cancellations"`
	Expirations   int64 `json:"expirations"`
}

// TicketService handles registration, payment and cancellation of tickets.
type TicketService struct {
	db            *gorm.DB
	notifications *NotificationService
	activity      *ActivityLogger
	hold          time.Duration
	now           func() time.Time

	mutex   sync.Mutex
	metrics TicketMetrics
}

func NewTicketService(db *gorm.DB, notifications *NotificationService, activity *ActivityLogger, hold time.Duration) *TicketService {
	if hold <= 0 {
		hold = 30 * time.Minute
	}
	return &TicketService{
		db:            db,
		notifications: notifications,
		activity:      activity,
		hold:          hold,
		now:           time.Now,
	}
}

// Register reserves a seat. Free events complete at once; paid events hold
// the seat as pending until paid or expired.
func (s *TicketService) Register(ctx context.Context, userID, eventID uint, ip string) (*models.Ticket, error) {
	now := s.now()
	var ticket models.Ticket
	var event models.Event

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx
		if tx.Dialector.Name() == "mysql" {
			query = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := query.First(&event, eventID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEventNotFound
			}
			return fmt.Errorf("load event: %w", err)
		}
		if event.Status != models.EventStatusApproved || !event.EndDate.After(now) {
			return ErrEventClosed
		}

		var mine int64
		if err := tx.Model(&models.Ticket{}).
			Where("user_id = ? AND event_id = ? AND payment_status <> ?", userID, eventID, models.PaymentStatusCancelled).
			Count(&mine).Error; err != nil {
			return fmt.Errorf("check registration: %w", err)
		}
		if mine > 0 {
			return ErrAlreadyRegistered
		}

		if event.Capacity > 0 {
			var taken int64
			if err := tx.Model(&models.Ticket{}).
				Where("event_id = ? AND payment_status <> ?", eventID, models.PaymentStatusCancelled).
				Count(&taken).Error; err != nil {
				return fmt.Errorf("count seats: %w", err)
			}
			if taken >= int64(event.Capacity) {
				return ErrEventFull
			}
		}

		ticket = models.Ticket{UserID: userID, EventID: eventID}
		if event.IsFree() {
			ticket.PaymentStatus = models.PaymentStatusCompleted
			ticket.PaidAt = &now
		} else {
			expires := now.Add(s.hold)
			ticket.PaymentStatus = models.PaymentStatusPending
			ticket.ExpiresAt = &expires
		}
		ticket.TicketCode = ticket.GenerateTicketCode(strings.ToUpper(uuid.NewString()[:8]))

		if err := tx.Create(&ticket).Error; err != nil {
			return fmt.Errorf("create ticket: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.count(func(m *TicketMetrics) { m.Registrations++ })
	s.activity.Log(ctx, userID, ActivityEventRegister, "Registered for "+event.Title, ip)
	s.notify(ctx, NotifyInput{
		UserID:         event.OrganizerID,
		Type:           models.NotificationNewRegistration,
		Title:          "New registration",
		Message:        fmt.Sprintf("Someone registered for %q.", event.Title),
		RelatedEventID: &event.ID,
	})
	if ticket.PaymentStatus == models.PaymentStatusCompleted {
		s.notify(ctx, NotifyInput{
			UserID:         userID,
			Type:           models.NotificationPaymentCompleted,
			Title:          "Registration confirmed",
			Message:        fmt.Sprintf("You are registered for %q. Ticket code: %s", event.Title, ticket.TicketCode),
			RelatedEventID: &event.ID,
		})
	}

	ticket.Event = &event
	return &ticket, nil
}

// CompletePayment settles a pending ticket at the event's current price.
func (s *TicketService) CompletePayment(ctx context.Context, userID, ticketID uint, ip string) (*models.Ticket, error) {
	now := s.now()

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("begin transaction: %w", tx.Error)
	}

	var ticket models.Ticket
	if err := tx.Preload("Event").Where("id = ? AND user_id = ?", ticketID, userID).First(&ticket).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to find ticket: %w", err)
	}
	if ticket.PaymentStatus != models.PaymentStatusPending ||
		(ticket.ExpiresAt != nil && now.After(*ticket.ExpiresAt)) {
		tx.Rollback()
		return nil, ErrTicketState
	}

	res := tx.Model(&models.Ticket{}).
		Where("id = ? AND payment_status = ?", ticket.ID, models.PaymentStatusPending).
		Updates(map[string]interface{}{
			"payment_status": models.PaymentStatusCompleted,
			"amount_paid":    ticket.Event.Price,
			"paid_at":        now,
			"expires_at":     nil,
		})
	if res.Error != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update ticket: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		return nil, ErrTicketState
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	ticket.PaymentStatus = models.PaymentStatusCompleted
	ticket.AmountPaid = ticket.Event.Price
	ticket.PaidAt = &now
	ticket.ExpiresAt = nil

	s.count(func(m *TicketMetrics) { m.Payments++ })
	s.activity.Log(ctx, userID, ActivityTicketPaid, fmt.Sprintf("Paid %s for %s", utils.FormatPrice(ticket.AmountPaid), ticket.Event.Title), ip)
	s.notify(ctx, NotifyInput{
		UserID:         userID,
		Type:           models.NotificationPaymentCompleted,
		Title:          "Payment received",
		Message:        fmt.Sprintf("Payment of %s received for %q. Ticket code: %s", utils.FormatPrice(ticket.AmountPaid), ticket.Event.Title, ticket.TicketCode),
		RelatedEventID: &ticket.EventID,
	})
	return &ticket, nil
}

// Cancel releases the seat of a ticket whose event has not started.
func (s *TicketService) Cancel(ctx context.Context, userID, ticketID uint, ip string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := s.db.WithContext(ctx).Preload("Event").Where("id = ? AND user_id = ?", ticketID, userID).First(&ticket).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load ticket: %w", err)
	}
	if !ticket.IsActive() || !ticket.Event.StartDate.After(s.now()) {
		return nil, ErrTicketState
	}

	res := s.db.WithContext(ctx).Model(&models.Ticket{}).
		Where("id = ? AND payment_status = ?", ticket.ID, ticket.PaymentStatus).
		Updates(map[string]interface{}{"payment_status": models.PaymentStatusCancelled, "expires_at": nil})
	if res.Error != nil {
		return nil, fmt.Errorf("cancel ticket: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrTicketState
	}
	ticket.PaymentStatus = models.PaymentStatusCancelled
	ticket.ExpiresAt = nil

	s.count(func(m *TicketMetrics) { m.Cancellations++ })
	s.activity.Log(ctx, userID, ActivityTicketCancelled, "Cancelled registration for "+ticket.Event.Title, ip)
	s.notify(ctx, NotifyInput{
		UserID:         ticket.Event.OrganizerID,
		Type:           models.NotificationRegistrationCancelled,
		Title:          "Registration cancelled",
		Message:        fmt.Sprintf("A registration for %q was cancelled.", ticket.Event.Title),
		RelatedEventID: &ticket.EventID,
	})
	return &ticket, nil
}

// ExpirePending cancels pending tickets whose hold ran out before now.
func (s *TicketService) ExpirePending(ctx context.Context, now time.Time) (int, error) {
	tickets := make([]models.Ticket, 0)
	err := s.db.WithContext(ctx).
		Preload("Event").
		Where("payment_status = ? AND expires_at IS NOT NULL AND expires_at < ?", models.PaymentStatusPending, now).
		Find(&tickets).Error
	if err != nil {
		return 0, fmt.Errorf("load expired tickets: %w", err)
	}

	expired := 0
	for _, ticket := range tickets {
		res := s.db.WithContext(ctx).Model(&models.Ticket{}).
			Where("id = ? AND payment_status = ?", ticket.ID, models.PaymentStatusPending).
			Updates(map[string]interface{}{"payment_status": models.PaymentStatusCancelled, "expires_at": nil})
		if res.Error != nil {
			utils.ErrorLogger.WithField("ticket_id", ticket.ID).Errorf("Error expiring ticket: %v", res.Error)
			continue
		}
		if res.RowsAffected == 0 {
			continue
		}
		expired++

		title := "your event"
		if ticket.Event != nil {
			title = fmt.Sprintf("%q", ticket.Event.Title)
		}
		s.notify(ctx, NotifyInput{
			UserID:         ticket.UserID,
			Type:           models.NotificationTicketExpired,
			Title:          "Reservation expired",
			Message:        fmt.Sprintf("Your unpaid reservation for %s has expired and the seat was released.", title),
			RelatedEventID: &ticket.EventID,
		})
		utils.InfoLogger.WithFields(logrus.Fields{
			"ticket_id": ticket.ID,
			"user_id":   ticket.UserID,
		}).Info("Ticket reservation expired")
	}

	s.count(func(m *TicketMetrics) { m.Expirations += int64(expired) })
	return expired, nil
}

func (s *TicketService) Metrics() TicketMetrics {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.metrics
}

func (s *TicketService) count(fn func(*TicketMetrics)) {
	s.mutex.Lock()
	fn(&s.metrics)
	s.mutex.Unlock()
}

func (s *TicketService) notify(ctx context.Context, in NotifyInput) {
	if _, err := s.notifications.Notify(ctx, in); err != nil {
		utils.ErrorLogger.WithField("user_id", in.UserID).Errorf("Notification %s failed: %v", in.Type, err)
	}
}

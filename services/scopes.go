package services

import (
	"math"
	"strings"
	"time"

	"github.com/yeremiapane/campus-ems/models"
	"gorm.io/gorm"
)

const (
	NotificationsPerPage = 20
	EventsPerPage        = 12
	TicketsPerPage       = 10
)

// Scope is a composable query fragment. Every value is bound as a parameter.
type Scope = func(*gorm.DB) *gorm.DB

func Paginate(page, perPage int) Scope {
	page = clampPage(page, perPage)
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset((page - 1) * perPage).Limit(perPage)
	}
}

// clampPage keeps (page-1)*perPage and page*perPage within int. Pages past
// the cap are far beyond any row count, so they still come back empty.
func clampPage(page, perPage int) int {
	if page < 1 {
		return 1
	}
	if perPage > 0 && page > math.MaxInt/perPage {
		return math.MaxInt / perPage
	}
	return page
}

func OwnedBy(userID uint) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ?", userID)
	}
}

// ValidNotificationFilter accepts all, unread, read, or a notification type.
func ValidNotificationFilter(filter string) bool {
	switch filter {
	case "", "all", "unread", "read":
		return true
	}
	return models.IsNotificationType(filter)
}

func NotificationFilter(filter string) Scope {
	return func(db *gorm.DB) *gorm.DB {
		switch filter {
		case "", "all":
			return db
		case "unread":
			return db.Where("is_read = ?", false)
		case "read":
			return db.Where("is_read = ?", true)
		default:
			return db.Where("type = ?", filter)
		}
	}
}

func ApprovedEvents() Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("events.status = ?", models.EventStatusApproved)
	}
}

func EventSearch(term string) Scope {
	term = strings.TrimSpace(term)
	return func(db *gorm.DB) *gorm.DB {
		if term == "" {
			return db
		}
		like := "%" + term + "%"
		return db.Where("(events.title LIKE ? OR events.description LIKE ? OR events.venue LIKE ?)", like, like, like)
	}
}

func EventCategory(category string) Scope {
	return func(db *gorm.DB) *gorm.DB {
		if category == "" || category == "all" {
			return db
		}
		return db.Where("events.category = ?", category)
	}
}

// EventDateWindow filters by start date. The empty window hides events that
// have already ended.
func EventDateWindow(window string, now time.Time) Scope {
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return func(db *gorm.DB) *gorm.DB {
		switch window {
		case "today":
			return db.Where("events.start_date >= ? AND events.start_date < ?", startOfDay, startOfDay.AddDate(0, 0, 1))
		case "week":
			return db.Where("events.start_date >= ? AND events.start_date < ?", now, now.AddDate(0, 0, 7))
		case "month":
			return db.Where("events.start_date >= ? AND events.start_date < ?", now, now.AddDate(0, 1, 0))
		case "upcoming":
			return db.Where("events.start_date >= ?", now)
		case "past":
			return db.Where("events.end_date < ?", now)
		case "all":
			return db
		default:
			return db.Where("events.end_date >= ?", now)
		}
	}
}

const activeTicketCount = "(SELECT COUNT(*) FROM tickets WHERE tickets.event_id = events.id AND tickets.payment_status <> 'cancelled')"

func EventSort(sort string) Scope {
	return func(db *gorm.DB) *gorm.DB {
		switch sort {
		case "date_desc":
			return db.Order("events.start_date DESC")
		case "price_low":
			return db.Order("events.price ASC").Order("events.start_date ASC")
		case "price_high":
			return db.Order("events.price DESC").Order("events.start_date ASC")
		case "popular":
			return db.Order(activeTicketCount + " DESC").Order("events.start_date ASC")
		case "title":
			return db.Order("events.title ASC")
		default:
			return db.Order("events.start_date ASC").Order("events.id ASC")
		}
	}
}

func TicketStatus(status string) Scope {
	return func(db *gorm.DB) *gorm.DB {
		switch status {
		case models.PaymentStatusPending, models.PaymentStatusCompleted, models.PaymentStatusCancelled:
			return db.Where("tickets.payment_status = ?", status)
		default:
			return db
		}
	}
}

// TicketTime expects events to be joined.
func TicketTime(window string, now time.Time) Scope {
	return func(db *gorm.DB) *gorm.DB {
		switch window {
		case "upcoming":
			return db.Where("events.start_date >= ?", now)
		case "past":
			return db.Where("events.end_date < ?", now)
		case "ongoing":
			return db.Where("events.start_date <= ? AND events.end_date >= ?", now, now)
		default:
			return db
		}
	}
}

func hasMore(page, perPage int, total int64) bool {
	page = clampPage(page, perPage)
	return int64(page)*int64(perPage) < total
}

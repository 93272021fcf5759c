package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yeremiapane/campus-ems/models"
	"github.com/yeremiapane/campus-ems/utils"
	"gorm.io/gorm"
)

type BrowseQuery struct {
	Category string `form:"category"`
	Search   string `form:"search"`
	Date     string `form:"date"`
	Sort     string `form:"sort"`
	Page     int    `form:"page"`
	UserID   uint   `form:"-"`
}

type EventPage struct {
	Events  []models.Event `json:"events"`
	Total   int64          `json:"total"`
	Page    int            `json:"page"`
	PerPage int            `json:"per_page"`
	HasMore bool           `json:"has_more"`
}

type TicketPage struct {
	Tickets []models.Ticket `json:"tickets"`
	Total   int64           `json:"total"`
	Page    int             `json:"page"`
	PerPage int             `json:"per_page"`
	HasMore bool            `json:"has_more"`
}

type EventInput struct {
	Title       string    `json:"title" binding:"required,max=255"`
	Description string    `json:"description"`
	Category    string    `json:"category" binding:"required,max=100"`
	Venue       string    `json:"venue" binding:"required,max=255"`
	StartDate   time.Time `json:"start_date" binding:"required"`
	EndDate     time.Time `json:"end_date" binding:"required"`
	Capacity    int       `json:"capacity" binding:"min=0"`
	Price       float64   `json:"price" binding:"min=0"`
}

type PlatformStats struct {
	Users   map[string]int64 `json:"users"`
	Events  map[string]int64 `json:"events"`
	Tickets map[string]int64 `json:"tickets"`
	Revenue float64          `json:"revenue"`
}

type EventService struct {
	db            *gorm.DB
	notifications *NotificationService
	activity      *ActivityLogger
	now           func() time.Time
}

func NewEventService(db *gorm.DB, notifications *NotificationService, activity *ActivityLogger) *EventService {
	return &EventService{db: db, notifications: notifications, activity: activity, now: time.Now}
}

// Browse lists approved events for the public catalogue.
func (s *EventService) Browse(ctx context.Context, q BrowseQuery) (*EventPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	now := s.now()
	filters := []Scope{ApprovedEvents(), EventCategory(q.Category), EventSearch(q.Search), EventDateWindow(q.Date, now)}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Event{}).Scopes(filters...).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}

	events := make([]models.Event, 0)
	if err := s.db.WithContext(ctx).
		Scopes(filters...).
		Scopes(EventSort(q.Sort), Paginate(q.Page, EventsPerPage)).
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("browse events: %w", err)
	}
	if err := s.attachSeatCounts(ctx, events); err != nil {
		return nil, err
	}

	if q.UserID != 0 && strings.TrimSpace(q.Search) != "" {
		s.recordSearch(ctx, q, total)
	}

	return &EventPage{
		Events:  events,
		Total:   total,
		Page:    q.Page,
		PerPage: EventsPerPage,
		HasMore: hasMore(q.Page, EventsPerPage, total),
	}, nil
}

// Get returns an approved event.
func (s *EventService) Get(ctx context.Context, eventID uint) (*models.Event, error) {
	var event models.Event
	err := s.db.WithContext(ctx).Scopes(ApprovedEvents()).First(&event, eventID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load event: %w", err)
	}

	events := []models.Event{event}
	if err := s.attachSeatCounts(ctx, events); err != nil {
		return nil, err
	}
	return &events[0], nil
}

func (s *EventService) Categories(ctx context.Context) ([]string, error) {
	categories := make([]string, 0)
	err := s.db.WithContext(ctx).Model(&models.Event{}).
		Scopes(ApprovedEvents()).
		Where("category <> ''").
		Distinct().
		Order("category ASC").
		Pluck("category", &categories).Error
	return categories, err
}

// MyEvents lists the user's registrations. status filters payment status,
// window is upcoming, ongoing, past or all.
func (s *EventService) MyEvents(ctx context.Context, userID uint, status, window string, page int) (*TicketPage, error) {
	if page < 1 {
		page = 1
	}
	now := s.now()
	filters := []Scope{
		func(db *gorm.DB) *gorm.DB {
			return db.Joins("JOIN events ON events.id = tickets.event_id").Where("tickets.user_id = ?", userID)
		},
		TicketStatus(status),
		TicketTime(window, now),
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Ticket{}).Scopes(filters...).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count tickets: %w", err)
	}

	tickets := make([]models.Ticket, 0)
	if err := s.db.WithContext(ctx).
		Select("tickets.*").
		Scopes(filters...).
		Preload("Event").
		Order("events.start_date ASC").
		Order("tickets.id ASC").
		Scopes(Paginate(page, TicketsPerPage)).
		Find(&tickets).Error; err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}

	return &TicketPage{
		Tickets: tickets,
		Total:   total,
		Page:    page,
		PerPage: TicketsPerPage,
		HasMore: hasMore(page, TicketsPerPage, total),
	}, nil
}

func (s *EventService) Create(ctx context.Context, organizerID uint, in EventInput, ip string) (*models.Event, error) {
	if err := validateEventInput(in); err != nil {
		return nil, err
	}

	event := models.Event{OrganizerID: organizerID, Status: models.EventStatusDraft}
	in.apply(&event)
	if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	s.activity.Log(ctx, organizerID, ActivityEventCreated, "Created event "+event.Title, ip)
	return &event, nil
}

func (s *EventService) Update(ctx context.Context, organizerID, eventID uint, in EventInput) (*models.Event, error) {
	if err := validateEventInput(in); err != nil {
		return nil, err
	}

	event, err := s.owned(ctx, organizerID, eventID)
	if err != nil {
		return nil, err
	}
	if !event.Editable() {
		return nil, ErrEventNotEditable
	}

	in.apply(event)
	err = s.db.WithContext(ctx).Model(event).Updates(map[string]interface{}{
		"title":       event.Title,
		"description": event.Description,
		"category":    event.Category,
		"venue":       event.Venue,
		"start_date":  event.StartDate,
		"end_date":    event.EndDate,
		"capacity":    event.Capacity,
		"price":       event.Price,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return event, nil
}

// Submit sends a draft or rejected event to moderation.
func (s *EventService) Submit(ctx context.Context, organizerID, eventID uint, ip string) (*models.Event, error) {
	event, err := s.owned(ctx, organizerID, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, event, models.EventStatusPending, ""); err != nil {
		return nil, err
	}

	s.activity.Log(ctx, organizerID, ActivityEventSubmitted, "Submitted event "+event.Title, ip)
	return event, nil
}

func (s *EventService) ListOwned(ctx context.Context, organizerID uint, status string) ([]models.Event, error) {
	events := make([]models.Event, 0)
	query := s.db.WithContext(ctx).Where("organizer_id = ?", organizerID)
	if status != "" && status != "all" {
		query = query.Where("status = ?", status)
	}
	if err := query.Order("start_date DESC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("list organizer events: %w", err)
	}
	if err := s.attachSeatCounts(ctx, events); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *EventService) Attendees(ctx context.Context, organizerID, eventID uint) ([]models.Ticket, error) {
	if _, err := s.owned(ctx, organizerID, eventID); err != nil {
		return nil, err
	}

	tickets := make([]models.Ticket, 0)
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("event_id = ? AND payment_status <> ?", eventID, models.PaymentStatusCancelled).
		Order("created_at ASC").
		Find(&tickets).Error
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	return tickets, nil
}

func (s *EventService) Pending(ctx context.Context) ([]models.Event, error) {
	events := make([]models.Event, 0)
	err := s.db.WithContext(ctx).
		Preload("Organizer").
		Where("status = ?", models.EventStatusPending).
		Order("created_at ASC").
		Find(&events).Error
	return events, err
}

func (s *EventService) Approve(ctx context.Context, adminID, eventID uint, ip string) (*models.Event, error) {
	event, err := s.find(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, event, models.EventStatusApproved, ""); err != nil {
		return nil, err
	}

	s.activity.Log(ctx, adminID, ActivityEventModerated, fmt.Sprintf("Approved event #%d", event.ID), ip)
	s.notify(ctx, NotifyInput{
		UserID:         event.OrganizerID,
		Type:           models.NotificationEventApproved,
		Title:          "Event approved",
		Message:        fmt.Sprintf("Your event %q has been approved and is now visible to students.", event.Title),
		RelatedEventID: &event.ID,
	})
	return event, nil
}

func (s *EventService) Reject(ctx context.Context, adminID, eventID uint, reason, ip string) (*models.Event, error) {
	event, err := s.find(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, event, models.EventStatusRejected, reason); err != nil {
		return nil, err
	}

	s.activity.Log(ctx, adminID, ActivityEventModerated, fmt.Sprintf("Rejected event #%d", event.ID), ip)
	msg := fmt.Sprintf("Your event %q was not approved.", event.Title)
	if reason != "" {
		msg += " Reason: " + reason
	}
	s.notify(ctx, NotifyInput{
		UserID:         event.OrganizerID,
		Type:           models.NotificationEventRejected,
		Title:          "Event rejected",
		Message:        msg,
		RelatedEventID: &event.ID,
	})
	return event, nil
}

func (s *EventService) Stats(ctx context.Context) (*PlatformStats, error) {
	stats := &PlatformStats{
		Users:   map[string]int64{},
		Events:  map[string]int64{},
		Tickets: map[string]int64{},
	}

	groups := []struct {
		model  interface{}
		column string
		into   map[string]int64
	}{
		{&models.User{}, "role", stats.Users},
		{&models.Event{}, "status", stats.Events},
		{&models.Ticket{}, "payment_status", stats.Tickets},
	}
	for _, g := range groups {
		var rows []struct {
			Key   string
			Total int64
		}
		err := s.db.WithContext(ctx).Model(g.model).
			Select(g.column + " AS `key`, COUNT(*) AS total").
			Group(g.column).
			Scan(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("stats by %s: %w", g.column, err)
		}
		for _, r := range rows {
			g.into[r.Key] = r.Total
		}
	}

	err := s.db.WithContext(ctx).Model(&models.Ticket{}).
		Where("payment_status = ?", models.PaymentStatusCompleted).
		Select("COALESCE(SUM(amount_paid), 0)").
		Row().Scan(&stats.Revenue)
	if err != nil {
		return nil, fmt.Errorf("stats revenue: %w", err)
	}
	return stats, nil
}

func (s *EventService) transition(ctx context.Context, event *models.Event, next, reason string) error {
	if !event.CanTransition(next) {
		return ErrInvalidTransition
	}

	res := s.db.WithContext(ctx).Model(&models.Event{}).
		Where("id = ? AND status = ?", event.ID, event.Status).
		Updates(map[string]interface{}{"status": next, "rejection_reason": reason})
	if res.Error != nil {
		return fmt.Errorf("update event status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrInvalidTransition
	}

	event.Status = next
	event.RejectionReason = reason
	return nil
}

func (s *EventService) find(ctx context.Context, eventID uint) (*models.Event, error) {
	var event models.Event
	err := s.db.WithContext(ctx).First(&event, eventID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load event: %w", err)
	}
	return &event, nil
}

func (s *EventService) owned(ctx context.Context, organizerID, eventID uint) (*models.Event, error) {
	event, err := s.find(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.OrganizerID != organizerID {
		return nil, ErrEventNotFound
	}
	return event, nil
}

func (s *EventService) attachSeatCounts(ctx context.Context, events []models.Event) error {
	if len(events) == 0 {
		return nil
	}
	ids := make([]uint, len(events))
	for i := range events {
		ids[i] = events[i].ID
	}

	var rows []struct {
		EventID uint
		Total   int64
	}
	err := s.db.WithContext(ctx).Model(&models.Ticket{}).
		Select("event_id, COUNT(*) AS total").
		Where("event_id IN ? AND payment_status <> ?", ids, models.PaymentStatusCancelled).
		Group("event_id").
		Scan(&rows).Error
	if err != nil {
		return fmt.Errorf("count registrations: %w", err)
	}

	counts := make(map[uint]int64, len(rows))
	for _, r := range rows {
		counts[r.EventID] = r.Total
	}
	for i := range events {
		events[i].SetSeats(counts[events[i].ID])
	}
	return nil
}

func (s *EventService) recordSearch(ctx context.Context, q BrowseQuery, total int64) {
	entry := models.SearchHistory{
		UserID:      q.UserID,
		Query:       strings.TrimSpace(q.Search),
		Filters:     fmt.Sprintf("category=%s;date=%s;sort=%s", q.Category, q.Date, q.Sort),
		ResultCount: total,
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		utils.ErrorLogger.WithField("user_id", q.UserID).Errorf("Failed to record search: %v", err)
	}
}

func (s *EventService) notify(ctx context.Context, in NotifyInput) {
	if _, err := s.notifications.Notify(ctx, in); err != nil {
		utils.ErrorLogger.WithField("user_id", in.UserID).Errorf("Notification %s failed: %v", in.Type, err)
	}
}

func validateEventInput(in EventInput) error {
	if !in.EndDate.After(in.StartDate) {
		return &ValidationError{Fields: map[string]string{"end_date": "must be after start_date"}}
	}
	return nil
}

func (in EventInput) apply(e *models.Event) {
	e.Title = strings.TrimSpace(in.Title)
	e.Description = in.Description
	e.Category = strings.TrimSpace(in.Category)
	e.Venue = in.Venue
	e.StartDate = in.StartDate
	e.EndDate = in.EndDate
	e.Capacity = in.Capacity
	e.Price = in.Price
}

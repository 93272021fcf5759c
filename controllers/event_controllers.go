package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/campus-ems/middlewares"
	"github.com/yeremiapane/campus-ems/services"
	"github.com/yeremiapane/campus-ems/utils"
)

// EventController serves the student facing pages: browsing, registration
// and the user's own tickets.
type EventController struct {
	Events  *services.EventService
	Tickets *services.TicketService
}

func NewEventController(events *services.EventService, tickets *services.TicketService) *EventController {
	return &EventController{Events: events, Tickets: tickets}
}

func (ec *EventController) Browse(c *gin.Context) {
	var q services.BrowseQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	q.UserID = middlewares.CurrentUserID(c)

	ctx := c.Request.Context()
	page, err := ec.Events.Browse(ctx, q)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	categories, err := ec.Events.Categories(ctx)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.RespondPage(c, "browse_events.html", "Events", gin.H{
		"page":       page,
		"query":      q,
		"categories": categories,
	})
}

func (ec *EventController) Categories(c *gin.Context) {
	categories, err := ec.Events.Categories(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Categories", categories)
}

func (ec *EventController) Show(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	event, err := ec.Events.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondPage(c, "event_detail.html", "Event", gin.H{"event": event})
}

func (ec *EventController) MyEvents(c *gin.Context) {
	status := c.DefaultQuery("status", "all")
	window := c.DefaultQuery("time", "upcoming")

	page, err := ec.Events.MyEvents(c.Request.Context(), middlewares.CurrentUserID(c), status, window, queryPage(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.RespondPage(c, "my_events.html", "My events", gin.H{
		"page":   page,
		"status": status,
		"time":   window,
	})
}

func (ec *EventController) Register(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	ticket, err := ec.Tickets.Register(c.Request.Context(), middlewares.CurrentUserID(c), id, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Registered", ticket)
}

func (ec *EventController) Pay(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	ticket, err := ec.Tickets.CompletePayment(c.Request.Context(), middlewares.CurrentUserID(c), id, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment completed", ticket)
}

func (ec *EventController) Cancel(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	ticket, err := ec.Tickets.Cancel(c.Request.Context(), middlewares.CurrentUserID(c), id, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Registration cancelled", ticket)
}

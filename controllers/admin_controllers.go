package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/campus-ems/middlewares"
	"github.com/yeremiapane/campus-ems/models"
	"github.com/yeremiapane/campus-ems/services"
	"github.com/yeremiapane/campus-ems/utils"
)

type AdminController struct {
	Events        *services.EventService
	Tickets       *services.TicketService
	Notifications *services.NotificationService
}

func NewAdminController(events *services.EventService, tickets *services.TicketService, notifications *services.NotificationService) *AdminController {
	return &AdminController{Events: events, Tickets: tickets, Notifications: notifications}
}

// GetDashboardStats returns platform counters for the admin dashboard.
func (ac *AdminController) GetDashboardStats(c *gin.Context) {
	stats, err := ac.Events.Stats(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Dashboard stats", gin.H{
		"platform": stats,
		"revenue":  utils.FormatPrice(stats.Revenue),
		"tickets":  ac.Tickets.Metrics(),
	})
}

func (ac *AdminController) PendingEvents(c *gin.Context) {
	events, err := ac.Events.Pending(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Events awaiting review", events)
}

func (ac *AdminController) ApproveEvent(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	event, err := ac.Events.Approve(c.Request.Context(), middlewares.CurrentUserID(c), id, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Event approved", event)
}

func (ac *AdminController) RejectEvent(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason" binding:"max=1000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	event, err := ac.Events.Reject(c.Request.Context(), middlewares.CurrentUserID(c), id, req.Reason, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Event rejected", event)
}

// Broadcast sends a system notification to every user or to one role.
func (ac *AdminController) Broadcast(c *gin.Context) {
	var req struct {
		Role    string `json:"role" binding:"omitempty,oneof=user organizer admin"`
		Title   string `json:"title" binding:"required,max=255"`
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	sent, err := ac.Notifications.Broadcast(c.Request.Context(), req.Role, req.Title, req.Message)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	target := req.Role
	if target == "" {
		target = "all"
	}
	utils.InfoLogger.WithField("role", target).Infof("Broadcast %q sent to %d users", req.Title, sent)
	utils.RespondJSON(c, http.StatusCreated, "Broadcast sent", gin.H{"recipients": sent, "type": models.NotificationSystem})
}

package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/campus-ems/middlewares"
	"github.com/yeremiapane/campus-ems/services"
	"github.com/yeremiapane/campus-ems/utils"
)

type OrganizerController struct {
	Events *services.EventService
}

func NewOrganizerController(events *services.EventService) *OrganizerController {
	return &OrganizerController{Events: events}
}

func (oc *OrganizerController) List(c *gin.Context) {
	events, err := oc.Events.ListOwned(c.Request.Context(), middlewares.CurrentUserID(c), c.DefaultQuery("status", "all"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Your events", events)
}

func (oc *OrganizerController) Create(c *gin.Context) {
	var req services.EventInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	event, err := oc.Events.Create(c.Request.Context(), middlewares.CurrentUserID(c), req, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Event created", event)
}

func (oc *OrganizerController) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.EventInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	event, err := oc.Events.Update(c.Request.Context(), middlewares.CurrentUserID(c), id, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Event updated", event)
}

func (oc *OrganizerController) Submit(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	event, err := oc.Events.Submit(c.Request.Context(), middlewares.CurrentUserID(c), id, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Event submitted for review", event)
}

func (oc *OrganizerController) Attendees(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	tickets, err := oc.Events.Attendees(c.Request.Context(), middlewares.CurrentUserID(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Attendees", tickets)
}

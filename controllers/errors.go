package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/campus-ems/middlewares"
	"github.com/yeremiapane/campus-ems/services"
	"github.com/yeremiapane/campus-ems/utils"
)

const genericFailure = "Something went wrong. Please try again later."

var (
	errNotFound     = []error{services.ErrNotificationNotFound, services.ErrEventNotFound, services.ErrTicketNotFound, services.ErrUserNotFound}
	errBadRequest   = []error{services.ErrInvalidPassword, services.ErrInvalidConfirmation, services.ErrInvalidFilter, services.ErrInvalidAction, services.ErrInvalidRole, services.ErrVerificationInvalid, services.ErrUnknownCategory}
	errConflict     = []error{services.ErrEmailTaken, services.ErrAlreadyRegistered, services.ErrEventFull, services.ErrEventClosed, services.ErrInvalidTransition, services.ErrEventNotEditable, services.ErrTicketState, services.ErrAlreadyVerified}
	errUnauthorized = []error{services.ErrInvalidCredentials}
)

// respondServiceError maps service errors to status codes. Anything unknown
// is logged and answered with a generic message.
func respondServiceError(c *gin.Context, err error) {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, utils.JSONResponse{
			Success: false,
			Message: verr.Error(),
			Data:    gin.H{"errors": verr.Fields},
		})
		return
	}

	for _, group := range []struct {
		code int
		errs []error
	}{
		{http.StatusNotFound, errNotFound},
		{http.StatusBadRequest, errBadRequest},
		{http.StatusConflict, errConflict},
		{http.StatusUnauthorized, errUnauthorized},
	} {
		for _, target := range group.errs {
			if errors.Is(err, target) {
				utils.RespondError(c, group.code, err)
				return
			}
		}
	}

	utils.ErrorLogger.WithFields(logrus.Fields{
		"request_id": c.GetString("request_id"),
		"user_id":    middlewares.CurrentUserID(c),
		"path":       c.Request.URL.Path,
	}).Errorf("Request failed: %v", err)
	utils.RespondError(c, http.StatusInternalServerError, errors.New(genericFailure))
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid "+name))
		return 0, false
	}
	return uint(id), true
}

func queryPage(c *gin.Context) int {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

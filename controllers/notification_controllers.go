package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/campus-ems/middlewares"
	"github.com/yeremiapane/campus-ems/models"
	"github.com/yeremiapane/campus-ems/services"
	"github.com/yeremiapane/campus-ems/utils"
)

const (
	ActionMarkRead         = "mark_read"
	ActionMarkAllRead      = "mark_all_read"
	ActionDelete           = "delete"
	ActionDeleteAllRead    = "delete_all_read"
	ActionGetNotifications = "get_notifications"
)

type NotificationController struct {
	Notifications *services.NotificationService
}

func NewNotificationController(notifications *services.NotificationService) *NotificationController {
	return &NotificationController{Notifications: notifications}
}

// Page renders the notification centre.
func (nc *NotificationController) Page(c *gin.Context) {
	filter := c.DefaultQuery("filter", "all")
	page, err := nc.Notifications.List(c.Request.Context(), middlewares.CurrentUserID(c), filter, queryPage(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.RespondPage(c, "notifications.html", "Notifications", gin.H{
		"page":    page,
		"filter":  filter,
		"filters": append([]string{"all", "unread", "read"}, models.NotificationTypes...),
	})
}

type notificationAction struct {
	Action         string `json:"action" form:"action" binding:"required"`
	NotificationID uint   `json:"notification_id" form:"notification_id"`
	Filter         string `json:"filter" form:"filter"`
	Page           int    `json:"page" form:"page"`
}

// Action dispatches the notification centre's POST actions.
func (nc *NotificationController) Action(c *gin.Context) {
	var req notificationAction
	if err := c.ShouldBind(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	ctx := c.Request.Context()
	userID := middlewares.CurrentUserID(c)

	switch req.Action {
	case ActionGetNotifications:
		page, err := nc.Notifications.List(ctx, userID, req.Filter, req.Page)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		utils.RespondJSON(c, http.StatusOK, "Notifications retrieved", page)
		return

	case ActionMarkRead, ActionDelete:
		if req.NotificationID == 0 {
			utils.RespondError(c, http.StatusBadRequest, errors.New("notification_id is required"))
			return
		}
		var err error
		message := "Notification marked as read"
		if req.Action == ActionMarkRead {
			err = nc.Notifications.MarkRead(ctx, userID, req.NotificationID)
		} else {
			err = nc.Notifications.Delete(ctx, userID, req.NotificationID)
			message = "Notification deleted"
		}
		if err != nil {
			respondServiceError(c, err)
			return
		}
		nc.respondWithUnread(c, message, gin.H{})

	case ActionMarkAllRead:
		n, err := nc.Notifications.MarkAllRead(ctx, userID)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		nc.respondWithUnread(c, "All notifications marked as read", gin.H{"updated": n})

	case ActionDeleteAllRead:
		n, err := nc.Notifications.DeleteAllRead(ctx, userID)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		nc.respondWithUnread(c, "Read notifications deleted", gin.H{"deleted": n})

	default:
		respondServiceError(c, services.ErrInvalidAction)
	}
}

func (nc *NotificationController) UnreadCount(c *gin.Context) {
	count, err := nc.Notifications.UnreadCount(c.Request.Context(), middlewares.CurrentUserID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Unread count", gin.H{"unread_count": count})
}

func (nc *NotificationController) respondWithUnread(c *gin.Context, message string, data gin.H) {
	count, err := nc.Notifications.UnreadCount(c.Request.Context(), middlewares.CurrentUserID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	data["unread_count"] = count
	utils.RespondJSON(c, http.StatusOK, message, data)
}

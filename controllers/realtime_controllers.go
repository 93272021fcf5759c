package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yeremiapane/campus-ems/middlewares"
	"github.com/yeremiapane/campus-ems/realtime"
)

type RealtimeController struct {
	Hub      *realtime.Hub
	upgrader websocket.Upgrader
}

// NewRealtimeController accepts upgrades from allowedOrigin, or any origin
// when it is "*".
func NewRealtimeController(hub *realtime.Hub, allowedOrigin string) *RealtimeController {
	return &RealtimeController{
		Hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowedOrigin == "*" || origin == "" || origin == allowedOrigin || origin == "http://"+r.Host || origin == "https://"+r.Host
			},
		},
	}
}

// Connect upgrades to a websocket that receives the user's notification events.
func (rc *RealtimeController) Connect(c *gin.Context) {
	userID := middlewares.CurrentUserID(c)
	if userID == 0 {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	ws, err := rc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	rc.Hub.Register(userID, ws)

	// Clients only listen; reading detects the disconnect.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	rc.Hub.Unregister(userID, ws)
}

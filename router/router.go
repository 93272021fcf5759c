package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/campus-ems/controllers"
	"github.com/yeremiapane/campus-ems/middlewares"
	"github.com/yeremiapane/campus-ems/models"
	"github.com/yeremiapane/campus-ems/realtime"
	"github.com/yeremiapane/campus-ems/services"
	"github.com/yeremiapane/campus-ems/templates"
	"github.com/yeremiapane/campus-ems/utils"
	"golang.org/x/time/rate"
)

// Deps carries everything the HTTP layer needs.
type Deps struct {
	Users         *services.UserService
	Events        *services.EventService
	Tickets       *services.TicketService
	Notifications *services.NotificationService
	Preferences   *services.PreferenceService
	Accounts      *services.AccountService
	Activity      *services.ActivityLogger
	Hub           *realtime.Hub

	CORSOrigin    string
	RateLimit     rate.Limit
	RateBurst     int
	SecureCookies bool
}

func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()

	tmpl, err := templates.Load()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to parse templates: %v", err)
	}
	r.SetHTMLTemplate(tmpl)
	r.StaticFS("/static", http.FS(templates.Static()))

	limiter := middlewares.NewRateLimiter(d.RateLimit, d.RateBurst)

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(d.CORSOrigin))
	r.Use(limiter.RateLimit())

	userCtrl := controllers.NewUserController(d.Users, d.Activity, d.Notifications)
	userCtrl.SecureCookies = d.SecureCookies
	accountCtrl := controllers.NewAccountController(d.Accounts, d.Preferences, d.Users, d.Activity)
	notificationCtrl := controllers.NewNotificationController(d.Notifications)
	eventCtrl := controllers.NewEventController(d.Events, d.Tickets)
	organizerCtrl := controllers.NewOrganizerController(d.Events)
	adminCtrl := controllers.NewAdminController(d.Events, d.Tickets, d.Notifications)
	realtimeCtrl := controllers.NewRealtimeController(d.Hub, d.CORSOrigin)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/events")
	})

	public := r.Group("/")
	public.Use(middlewares.NewStrictRateLimiter())
	{
		public.POST("/register", userCtrl.Register)
		public.POST("/login", userCtrl.Login)
	}

	browse := r.Group("/")
	browse.Use(middlewares.OptionalAuth())
	{
		browse.GET("/events", eventCtrl.Browse)
		browse.GET("/events/:id", eventCtrl.Show)
		browse.GET("/categories", eventCtrl.Categories)
	}

	// ----------------------------------------------------------------
	//                      AUTHENTICATED ROUTES
	// ----------------------------------------------------------------
	auth := r.Group("/")
	auth.Use(middlewares.AuthMiddleware())
	{
		auth.POST("/logout", userCtrl.Logout)
		auth.GET("/profile", userCtrl.Profile)
		auth.PUT("/profile", userCtrl.UpdateProfile)
		auth.PUT("/profile/password", userCtrl.ChangePassword)
		auth.POST("/verify/request", userCtrl.RequestVerification)
		auth.POST("/verify/confirm", userCtrl.ConfirmVerification)

		auth.GET("/settings", accountCtrl.Settings)
		auth.GET("/settings/preferences", accountCtrl.GetPreferences)
		auth.PUT("/settings/preferences", accountCtrl.SavePreferences)
		auth.POST("/account/delete", accountCtrl.DeleteAccount)
		auth.GET("/account/export", accountCtrl.Export)
		auth.POST("/account/export", accountCtrl.Export)

		auth.GET("/notifications", notificationCtrl.Page)
		auth.POST("/notifications", notificationCtrl.Action)
		auth.GET("/notifications/unread-count", notificationCtrl.UnreadCount)
		auth.GET("/ws/notifications", realtimeCtrl.Connect)

		auth.GET("/my-events", eventCtrl.MyEvents)
		auth.POST("/events/:id/register", eventCtrl.Register)
		auth.POST("/tickets/:id/pay", eventCtrl.Pay)
		auth.POST("/tickets/:id/cancel", eventCtrl.Cancel)
	}

	organizer := r.Group("/organizer")
	organizer.Use(middlewares.AuthMiddleware(), middlewares.RequireRole(models.RoleOrganizer))
	{
		organizer.GET("/events", organizerCtrl.List)
		organizer.POST("/events", organizerCtrl.Create)
		organizer.PUT("/events/:id", organizerCtrl.Update)
		organizer.POST("/events/:id/submit", organizerCtrl.Submit)
		organizer.GET("/events/:id/attendees", organizerCtrl.Attendees)
	}

	admin := r.Group("/admin")
	admin.Use(middlewares.AuthMiddleware(), middlewares.RequireRole(models.RoleAdmin))
	{
		admin.GET("/stats", adminCtrl.GetDashboardStats)
		admin.GET("/events/pending", adminCtrl.PendingEvents)
		admin.POST("/events/:id/approve", adminCtrl.ApproveEvent)
		admin.POST("/events/:id/reject", adminCtrl.RejectEvent)
		admin.POST("/notifications/broadcast", adminCtrl.Broadcast)
	}

	return r
}

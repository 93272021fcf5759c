package main

import (
	"log"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/yeremiapane/campus-ems/config"
	"github.com/yeremiapane/campus-ems/database"
	"github.com/yeremiapane/campus-ems/mailer"
	"github.com/yeremiapane/campus-ems/realtime"
	"github.com/yeremiapane/campus-ems/router"
	"github.com/yeremiapane/campus-ems/services"
	"github.com/yeremiapane/campus-ems/utils"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

func main() {
	// Load .env before anything reads the environment
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or error loading: %v", err)
	}

	cfg := config.Load()
	utils.InitLoggerWithLevel(cfg.LogLevel, cfg.GinMode != gin.ReleaseMode)

	if cfg.JWTSecret == "" {
		utils.ErrorLogger.Fatal("JWT_SECRET must be set")
	}
	utils.ConfigureJWT(cfg.JWTSecret, cfg.JWTTTL)

	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}

	sender := mailer.New(mailer.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	})
	app := newApp(cfg, db, sender)
	app.scheduler.Start()
	defer app.scheduler.Stop()

	r := app.router
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		utils.ErrorLogger.Printf("Failed to set trusted proxies: %v", err)
	}

	utils.InfoLogger.Printf("Listening on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		utils.ErrorLogger.Fatal(err)
	}
}

type application struct {
	router    *gin.Engine
	scheduler *services.Scheduler
}

// newApp wires services, the scheduler and the HTTP router around db.
func newApp(cfg *config.Config, db *gorm.DB, sender mailer.Sender) *application {
	hub := realtime.NewHub()

	activity := services.NewActivityLogger(db)
	prefs := services.NewPreferenceService(db)
	notifications := services.NewNotificationService(db, prefs, sender, hub)
	users := services.NewUserService(db, sender, activity)
	events := services.NewEventService(db, notifications, activity)
	tickets := services.NewTicketService(db, notifications, activity, cfg.TicketHold)
	accounts := services.NewAccountService(db, activity, cfg.ExportTempDir)

	scheduler := services.NewScheduler(db, notifications, tickets)
	scheduler.Interval = cfg.SchedulerInterval
	scheduler.ReadRetention = cfg.ReadRetention

	r := router.SetupRouter(router.Deps{
		Users:         users,
		Events:        events,
		Tickets:       tickets,
		Notifications: notifications,
		Preferences:   prefs,
		Accounts:      accounts,
		Activity:      activity,
		Hub:           hub,
		CORSOrigin:    cfg.CORSOrigin,
		RateLimit:     rate.Limit(cfg.RateLimitPerSecond),
		RateBurst:     cfg.RateLimitBurst,
		SecureCookies: cfg.SecureCookies,
	})
	return &application{router: r, scheduler: scheduler}
}

package database

import (
	"github.com/yeremiapane/campus-ems/models"
	"github.com/yeremiapane/campus-ems/utils"
	"gorm.io/gorm"
)

// Models is the full schema in dependency order.
var Models = []interface{}{
	&models.User{},
	&models.Event{},
	&models.Ticket{},
	&models.Notification{},
	&models.UserPreferences{},
	&models.ActivityLog{},
	&models.SearchHistory{},
}

// mysqlStatements are applied after AutoMigrate on MySQL only. Failures are
// logged and skipped so a re-run against an existing schema is harmless.
var mysqlStatements = []string{
	`CREATE INDEX idx_notifications_user_created ON notifications (user_id, created_at)`,
	`CREATE INDEX idx_tickets_event_status ON tickets (event_id, payment_status)`,
	`ALTER TABLE notifications ADD CONSTRAINT chk_notifications_read_at
		CHECK ((is_read = 0 AND read_at IS NULL) OR (is_read = 1 AND read_at IS NOT NULL))`,
	`ALTER TABLE events ADD CONSTRAINT chk_events_status
		CHECK (status IN ('draft','pending','approved','rejected'))`,
	`ALTER TABLE tickets ADD CONSTRAINT chk_tickets_payment_status
		CHECK (payment_status IN ('pending','completed','cancelled'))`,
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models...); err != nil {
		return err
	}
	utils.InfoLogger.Println("AutoMigrate completed.")

	if db.Dialector.Name() != "mysql" {
		return nil
	}

	for _, stmt := range mysqlStatements {
		if err := db.Exec(stmt).Error; err != nil {
			utils.InfoLogger.Debugf("Skipping schema statement: %v", err)
			continue
		}
		utils.InfoLogger.Printf("Applied schema statement")
	}

	var constraints []struct {
		ConstraintName string
		TableName      string
	}
	db.Raw(`
		SELECT CONSTRAINT_NAME AS constraint_name, TABLE_NAME AS table_name
		FROM information_schema.table_constraints
		WHERE CONSTRAINT_SCHEMA = DATABASE() AND CONSTRAINT_TYPE = 'CHECK'
	`).Scan(&constraints)

	for _, c := range constraints {
		utils.InfoLogger.Printf("Check constraint verified: %s on %s", c.ConstraintName, c.TableName)
	}

	return nil
}

package services

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/campus-ems/models"
	"github.com/yeremiapane/campus-ems/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DeleteConfirmation must be typed verbatim to delete an account.
const DeleteConfirmation = "DELETE"

// ExportCategories lists every category the export understands, in document order.
var ExportCategories = []string{
	"profile",
	"tickets",
	"events",
	"notifications",
	"preferences",
	"activity",
	"search_history",
}

// DeletionReport holds deleted row counts per table.
type DeletionReport map[string]int64

// ExportArchive is a finished zip on disk. Callers must call Cleanup once the
// file has been sent.
type ExportArchive struct {
	Path     string
	FileName string
	dir      string
}

func (a *ExportArchive) Cleanup() {
	if a == nil || a.dir == "" {
		return
	}
	if err := os.RemoveAll(a.dir); err != nil {
		utils.ErrorLogger.WithField("dir", a.dir).Errorf("Export cleanup failed: %v", err)
	}
}

type AccountService struct {
	db       *gorm.DB
	activity *ActivityLogger
	tempRoot string
	now      func() time.Time
}

func NewAccountService(db *gorm.DB, activity *ActivityLogger, tempRoot string) *AccountService {
	return &AccountService{db: db, activity: activity, tempRoot: tempRoot, now: time.Now}
}

// Delete removes the user and everything they own in one transaction.
func (s *AccountService) Delete(ctx context.Context, userID uint, password, confirmation string) (DeletionReport, error) {
	if confirmation != DeleteConfirmation {
		return nil, ErrInvalidConfirmation
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, ErrInvalidPassword
	}

	report := DeletionReport{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if user.IsOrganizer() {
			var eventIDs []uint
			if err := tx.Model(&models.Event{}).Where("organizer_id = ?", userID).Pluck("id", &eventIDs).Error; err != nil {
				return fmt.Errorf("load owned events: %w", err)
			}
			if len(eventIDs) > 0 {
				res := tx.Where("event_id IN ?", eventIDs).Delete(&models.Ticket{})
				if res.Error != nil {
					return fmt.Errorf("delete event tickets: %w", res.Error)
				}
				report["event_tickets"] = res.RowsAffected

				// Other users keep their notifications but lose the link.
				if err := tx.Model(&models.Notification{}).
					Where("related_event_id IN ?", eventIDs).
					Update("related_event_id", nil).Error; err != nil {
					return fmt.Errorf("unlink notifications: %w", err)
				}

				res = tx.Where("id IN ?", eventIDs).Delete(&models.Event{})
				if res.Error != nil {
					return fmt.Errorf("delete events: %w", res.Error)
				}
				report["events"] = res.RowsAffected
			}
		}

		owned := []struct {
			name  string
			model interface{}
		}{
			{"tickets", &models.Ticket{}},
			{"notifications", &models.Notification{}},
			{"activity_logs", &models.ActivityLog{}},
			{"user_preferences", &models.UserPreferences{}},
			{"search_histories", &models.SearchHistory{}},
		}
		for _, o := range owned {
			res := tx.Where("user_id = ?", userID).Delete(o.model)
			if res.Error != nil {
				return fmt.Errorf("delete %s: %w", o.name, res.Error)
			}
			report[o.name] = res.RowsAffected
		}

		res := tx.Delete(&models.User{}, userID)
		if res.Error != nil {
			return fmt.Errorf("delete user: %w", res.Error)
		}
		report["users"] = res.RowsAffected
		return nil
	})
	if err != nil {
		utils.ErrorLogger.WithField("user_id", userID).Errorf("Account deletion rolled back: %v", err)
		return nil, err
	}

	fields := logrus.Fields{"user_id": userID}
	for table, n := range report {
		fields[table] = n
	}
	utils.InfoLogger.WithFields(fields).Info("Account deleted")
	return report, nil
}

// Export builds a zip holding user_data.json and README.txt. An empty
// category list exports everything.
func (s *AccountService) Export(ctx context.Context, userID uint, categories []string, ip string) (*ExportArchive, error) {
	categories, err := normalizeCategories(categories)
	if err != nil {
		return nil, err
	}

	now := s.now()
	doc := map[string]interface{}{
		"export_info": map[string]interface{}{
			"user_id":      userID,
			"generated_at": now.Format(time.RFC3339),
			"categories":   categories,
		},
	}
	for _, category := range categories {
		data, err := s.collect(ctx, userID, category)
		if err != nil {
			return nil, err
		}
		doc[category] = data
	}

	root := s.tempRoot
	if root == "" {
		root = os.TempDir()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("prepare export root: %w", err)
	}
	dir, err := os.MkdirTemp(root, "ems-export-"+uuid.NewString()+"-")
	if err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	archive := &ExportArchive{
		FileName: fmt.Sprintf("EMS_UserData_%d_%s.zip", userID, now.Format("2006-01-02")),
		dir:      dir,
	}
	archive.Path = filepath.Join(dir, archive.FileName)

	if err := writeExport(archive.Path, doc, categories, now); err != nil {
		archive.Cleanup()
		return nil, err
	}

	s.activity.Log(ctx, userID, ActivityDataExport, "Exported "+strings.Join(categories, ", "), ip)
	return archive, nil
}

func (s *AccountService) collect(ctx context.Context, userID uint, category string) (interface{}, error) {
	db := s.db.WithContext(ctx)
	switch category {
	case "profile":
		var user models.User
		if err := db.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, fmt.Errorf("export profile: %w", err)
		}
		return user, nil
	case "tickets":
		tickets := make([]models.Ticket, 0)
		err := db.Preload("Event").Where("user_id = ?", userID).Order("created_at ASC").Find(&tickets).Error
		return tickets, wrapExport(category, err)
	case "events":
		events := make([]models.Event, 0)
		err := db.Where("organizer_id = ?", userID).Order("start_date ASC").Find(&events).Error
		return events, wrapExport(category, err)
	case "notifications":
		notifications := make([]models.Notification, 0)
		err := db.Where("user_id = ?", userID).Order("created_at DESC").Find(&notifications).Error
		return notifications, wrapExport(category, err)
	case "preferences":
		prefs := make([]models.UserPreferences, 0)
		err := db.Where("user_id = ?", userID).Find(&prefs).Error
		return prefs, wrapExport(category, err)
	case "activity":
		logs := make([]models.ActivityLog, 0)
		err := db.Where("user_id = ?", userID).Order("created_at DESC").Find(&logs).Error
		return logs, wrapExport(category, err)
	case "search_history":
		history := make([]models.SearchHistory, 0)
		err := db.Where("user_id = ?", userID).Order("created_at DESC").Find(&history).Error
		return history, wrapExport(category, err)
	}
	return nil, ErrUnknownCategory
}

func wrapExport(category string, err error) error {
	if err != nil {
		return fmt.Errorf("export %s: %w", category, err)
	}
	return nil
}

func normalizeCategories(requested []string) ([]string, error) {
	if len(requested) == 0 {
		return append([]string(nil), ExportCategories...), nil
	}

	order := make(map[string]int, len(ExportCategories))
	for i, c := range ExportCategories {
		order[c] = i
	}

	seen := make(map[string]bool)
	out := make([]string, 0, len(requested))
	for _, c := range requested {
		c = strings.TrimSpace(c)
		if _, ok := order[c]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, c)
		}
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return order[out[i]] < order[out[j]] })
	return out, nil
}

func writeExport(path string, doc map[string]interface{}, categories []string, now time.Time) error {
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode export: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create zip: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	files := []struct {
		name string
		body []byte
	}{
		{"user_data.json", payload},
		{"README.txt", []byte(exportReadme(categories, now))},
	}
	for _, file := range files {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: file.name, Method: zip.Deflate, Modified: now})
		if err != nil {
			return fmt.Errorf("add %s: %w", file.name, err)
		}
		if _, err := io.WriteString(w, string(file.body)); err != nil {
			return fmt.Errorf("write %s: %w", file.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish zip: %w", err)
	}
	return nil
}

func exportReadme(categories []string, now time.Time) string {
	var b strings.Builder
	b.WriteString("EMS - Personal Data Export\n")
	b.WriteString("==========================\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", now.Format("2006-01-02 15:04:05 MST"))
	b.WriteString("user_data.json contains the following sections:\n")
	for _, c := range categories {
		fmt.Fprintf(&b, "  - %s\n", c)
	}
	b.WriteString("\nexport_info describes when and for whom the file was produced.\n")
	b.WriteString("Dates are RFC 3339 timestamps. Passwords and verification codes are never exported.\n")
	return b.String()
}

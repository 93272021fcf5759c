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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/campus-ems/models"
	"gorm.io/gorm"
)

type cascadeFixture struct {
	organizer models.User
	student   models.User
	ownEvent  models.Event
	other     models.Event
	studentN  models.Notification
}

func seedCascade(t *testing.T, ts *testServices) cascadeFixture {
	t.Helper()
	ctx := context.Background()
	f := cascadeFixture{
		organizer: seedUser(t, ts.db, "org@campus.edu", models.RoleOrganizer),
		student:   seedUser(t, ts.db, "bob@campus.edu", models.RoleUser),
	}
	another := seedUser(t, ts.db, "org2@campus.edu", models.RoleOrganizer)

	start := time.Now().Add(72 * time.Hour)
	f.ownEvent = seedEvent(t, ts.db, f.organizer.ID, "Go Workshop", models.EventStatusApproved, start, 0, 0)
	f.other = seedEvent(t, ts.db, another.ID, "Hackathon", models.EventStatusApproved, start, 0, 0)

	seedTicket(t, ts.db, f.student.ID, f.ownEvent.ID, models.PaymentStatusCompleted)
	seedTicket(t, ts.db, f.organizer.ID, f.other.ID, models.PaymentStatusCompleted)

	f.studentN = seedNotification(t, ts.db, f.student.ID, "about the workshop", models.NotificationSystem, false, time.Now())
	require.NoError(t, ts.db.Model(&f.studentN).Update("related_event_id", f.ownEvent.ID).Error)

	seedNotification(t, ts.db, f.organizer.ID, "org note", models.NotificationSystem, true, time.Now())
	ts.activity.Log(ctx, f.organizer.ID, ActivityLogin, "Signed in", "127.0.0.1")
	_, err := ts.prefs.Save(ctx, f.organizer.ID, validPreferences())
	require.NoError(t, err)
	require.NoError(t, ts.db.Create(&models.SearchHistory{UserID: f.organizer.ID, Query: "robots"}).Error)
	return f
}

func TestDeleteRequiresConfirmationAndPassword(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	alice := seedUser(t, ts.db, "alice@campus.edu", models.RoleUser)

	_, err := ts.accounts.Delete(ctx, alice.ID, testPassword, "delete")
	assert.ErrorIs(t, err, ErrInvalidConfirmation)

	_, err = ts.accounts.Delete(ctx, alice.ID, "wrong-password", DeleteConfirmation)
	assert.ErrorIs(t, err, ErrInvalidPassword)

	_, err = ts.accounts.Delete(ctx, 9999, testPassword, DeleteConfirmation)
	assert.ErrorIs(t, err, ErrUserNotFound)

	assert.Equal(t, int64(1), countRows(t, ts.db, &models.User{}, "id = ?", alice.ID))
}

func TestDeleteCascadeRemovesEverythingOwned(t *testing.T) {
	ts := newTestServices(t)
	f := seedCascade(t, ts)

	report, err := ts.accounts.Delete(context.Background(), f.organizer.ID, testPassword, DeleteConfirmation)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report["users"])
	assert.Equal(t, int64(1), report["events"])
	assert.Equal(t, int64(1), report["event_tickets"])

	id := f.organizer.ID
	assert.Zero(t, countRows(t, ts.db, &models.User{}, "id = ?", id))
	assert.Zero(t, countRows(t, ts.db, &models.Ticket{}, "user_id = ?", id))
	assert.Zero(t, countRows(t, ts.db, &models.Notification{}, "user_id = ?", id))
	assert.Zero(t, countRows(t, ts.db, &models.ActivityLog{}, "user_id = ?", id))
	assert.Zero(t, countRows(t, ts.db, &models.UserPreferences{}, "user_id = ?", id))
	assert.Zero(t, countRows(t, ts.db, &models.SearchHistory{}, "user_id = ?", id))
	assert.Zero(t, countRows(t, ts.db, &models.Event{}, "organizer_id = ?", id))
	assert.Zero(t, countRows(t, ts.db, &models.Ticket{}, "event_id = ?", f.ownEvent.ID))

	assert.Equal(t, int64(1), countRows(t, ts.db, &models.User{}, "id = ?", f.student.ID))
	assert.Equal(t, int64(1), countRows(t, ts.db, &models.Event{}, "id = ?", f.other.ID))

	var kept models.Notification
	require.NoError(t, ts.db.First(&kept, f.studentN.ID).Error)
	assert.Nil(t, kept.RelatedEventID)
}

func TestDeleteCascadeRollsBackOnFailure(t *testing.T) {
	ts := newTestServices(t)
	f := seedCascade(t, ts)

	err := ts.db.Callback().Delete().Before("gorm:delete").Register("test:fail_search_history", func(db *gorm.DB) {
		if db.Statement.Table == "search_histories" {
			db.AddError(errors.New("disk full"))
		}
	})
	require.NoError(t, err)

	count := func() map[string]int64 {
		return map[string]int64{
			"users":         countRows(t, ts.db, &models.User{}, "1 = 1"),
			"events":        countRows(t, ts.db, &models.Event{}, "1 = 1"),
			"tickets":       countRows(t, ts.db, &models.Ticket{}, "1 = 1"),
			"notifications": countRows(t, ts.db, &models.Notification{}, "1 = 1"),
			"linked":        countRows(t, ts.db, &models.Notification{}, "related_event_id IS NOT NULL"),
			"activity":      countRows(t, ts.db, &models.ActivityLog{}, "1 = 1"),
			"preferences":   countRows(t, ts.db, &models.UserPreferences{}, "1 = 1"),
			"searches":      countRows(t, ts.db, &models.SearchHistory{}, "1 = 1"),
		}
	}
	before := count()

	_, err = ts.accounts.Delete(context.Background(), f.organizer.ID, testPassword, DeleteConfirmation)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	assert.Equal(t, before, count())
}

func TestExportWritesZip(t *testing.T) {
	ts := newTestServices(t)
	f := seedCascade(t, ts)

	archive, err := ts.accounts.Export(context.Background(), f.organizer.ID, nil, "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("EMS_UserData_%d_%s.zip", f.organizer.ID, time.Now().Format("2006-01-02")), archive.FileName)
	assert.Equal(t, archive.FileName, filepath.Base(archive.Path))

	zr, err := zip.OpenReader(archive.Path)
	require.NoError(t, err)

	files := map[string][]byte{}
	for _, file := range zr.File {
		rc, err := file.Open()
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		files[file.Name] = body
	}
	zr.Close()

	require.Contains(t, files, "user_data.json")
	require.Contains(t, files, "README.txt")
	assert.Contains(t, string(files["README.txt"]), "search_history")

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(files["user_data.json"], &doc))
	for _, c := range ExportCategories {
		assert.Contains(t, doc, c)
	}
	assert.Contains(t, doc, "export_info")
	assert.NotContains(t, string(files["user_data.json"]), "$2a$")

	var tickets []models.Ticket
	require.NoError(t, json.Unmarshal(doc["tickets"], &tickets))
	require.Len(t, tickets, 1)
	require.NotNil(t, tickets[0].Event)
	assert.Equal(t, "Hackathon", tickets[0].Event.Title)

	archive.Cleanup()
	_, err = os.Stat(filepath.Dir(archive.Path))
	assert.True(t, os.IsNotExist(err))
}

func TestExportSelectedCategories(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	alice := seedUser(t, ts.db, "alice@campus.edu", models.RoleUser)

	archive, err := ts.accounts.Export(ctx, alice.ID, []string{"notifications", "profile", "profile"}, "")
	require.NoError(t, err)
	defer archive.Cleanup()

	zr, err := zip.OpenReader(archive.Path)
	require.NoError(t, err)
	defer zr.Close()

	var doc map[string]json.RawMessage
	for _, file := range zr.File {
		if file.Name != "user_data.json" {
			continue
		}
		rc, err := file.Open()
		require.NoError(t, err)
		require.NoError(t, json.NewDecoder(rc).Decode(&doc))
		rc.Close()
	}
	assert.Len(t, doc, 3)
	assert.Contains(t, doc, "profile")
	assert.Contains(t, doc, "notifications")
	assert.Equal(t, "[]", string(doc["notifications"]))

	var info struct {
		Categories []string `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(doc["export_info"], &info))
	assert.Equal(t, []string{"profile", "notifications"}, info.Categories)

	_, err = ts.accounts.Export(ctx, alice.ID, []string{"passwords"}, "")
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

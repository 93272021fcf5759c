package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/campus-ems/models"
	"github.com/yeremiapane/campus-ems/realtime"
)

func TestListPaginatesNewestFirst(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	alice := seedUser(t, ts.db, "alice@campus.edu", models.RoleUser)
	bob := seedUser(t, ts.db, "bob@campus.edu", models.RoleUser)

	base := time.Now().Add(-48 * time.Hour)
	for i := 0; i < 45; i++ {
		seedNotification(t, ts.db, alice.ID, fmt.Sprintf("n-%02d", i), models.NotificationSystem, false, base.Add(time.Duration(i)*time.Minute))
	}
	seedNotification(t, ts.db, bob.ID, "bob-only", models.NotificationSystem, false, base)

	page1, err := ts.notifications.List(ctx, alice.ID, "all", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(45), page1.Total)
	assert.Len(t, page1.Notifications, 20)
	assert.Equal(t, "n-44", page1.Notifications[0].Title)
	assert.True(t, page1.HasMore)

	page2, err := ts.notifications.List(ctx, alice.ID, "all", 2)
	require.NoError(t, err)
	require.Len(t, page2.Notifications, 20)
	assert.Equal(t, "n-24", page2.Notifications[0].Title)
	assert.Equal(t, "n-05", page2.Notifications[19].Title)
	assert.True(t, page2.HasMore)

	page3, err := ts.notifications.List(ctx, alice.ID, "all", 3)
	require.NoError(t, err)
	assert.Len(t, page3.Notifications, 5)
	assert.False(t, page3.HasMore)

	for _, n := range append(page1.Notifications, page2.Notifications...) {
		assert.Equal(t, alice.ID, n.UserID)
	}
}

func TestListHasMoreFalseAtExactBoundary(t *testing.T) {
	ts := newTestServices(t)
	alice := seedUser(t, ts.db, "alice@campus.edu", models.RoleUser)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 40; i++ {
		seedNotification(t, ts.db, alice.ID, fmt.Sprintf("n-%02d", i), models.NotificationSystem, false, base.Add(time.Duration(i)*time.Second))
	}

	page, err := ts.notifications.List(context.Background(), alice.ID, "", 2)
	require.NoError(t, err)
	assert.Len(t, page.Notifications, 20)
	assert.False(t, page.HasMore)
}

func TestListHugePageIsEmpty(t *testing.T) {
	ts := newTestServices(t)
	alice := seedUser(t, ts.db, "alice@campus.edu", models.RoleUser)
	for i := 0; i < 3; i++ {
		seedNotification(t, ts.db, alice.ID, fmt.Sprintf("n-%d", i), models.NotificationSystem, false, time.Now())
	}

	page, err := ts.notifications.List(context.Background(), alice.ID, "all", 1<<62)
	require.NoError(t, err)
	assert.Empty(t, page.Notifications)
	assert.False(t, page.HasMore)
	assert.EqualValues(t, 3, page.Total)
}

func TestListFilters(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	alice := seedUser(t, ts.db, "alice@campus.edu", models.RoleUser)

	now := time.Now()
	seedNotification(t, ts.db, alice.ID, "unread system", models.NotificationSystem, false, now.Add(-3*time.Minute))
	seedNotification(t, ts.db, alice.ID, "read system", models.NotificationSystem, true, now.Add(-2*time.Minute))
	seedNotification(t, ts.db, alice.ID, "unread reminder", models.NotificationEventReminder, false, now.Add(-time.Minute))

	unread, err := ts.notifications.List(ctx, alice.ID, "unread", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread.Total)
	assert.Equal(t, int64(2), unread.UnreadCount)
	for _, n := range unread.Notifications {
		assert.False(t, n.IsRead)
		assert.Nil(t, n.ReadAt)
	}

	read, err := ts.notifications.List(ctx, alice.ID, "read", 1)
	require.NoError(t, err)
	require.Len(t, read.Notifications, 1)
	assert.True(t, read.Notifications[0].IsRead)

	reminders, err := ts.notifications.List(ctx, alice.ID, models.NotificationEventReminder, 1)
	require.NoError(t, err)
	require.Len(t, reminders.Notifications, 1)
	assert.Equal(t, "unread reminder", reminders.Notifications[0].Title)

	_, err = ts.notifications.List(ctx, alice.ID, "starred", 1)
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestListEmptyIsNotAnError(t *testing.T) {
	ts := newTestServices(t)
	alice := seedUser(t, ts.db, "alice@campus.edu", models.RoleUser)

	page, err := ts.notifications.List(context.Background(), alice.ID, "all", 1)
	require.NoError(t, err)
	assert.NotNil(t, page.Notifications)
	assert.Empty(t, page.Notifications)
	assert.False(t, page.HasMore)
}

func TestMarkReadIsIdempotent(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	alice := seedUser(t, ts.db, "alice@campus.edu", models.RoleUser)
	n := seedNotification(t, ts.db, alice.ID, "hello", models.NotificationSystem, false, time.Now())

	require.NoError(t, ts.notifications.MarkRead(ctx, alice.ID, n.ID))

	var first models.Notification
	require.NoError(t, ts.db.First(&first, n.ID).Error)
	assert.True(t, first.IsRead)
	require.NotNil(t, first.ReadAt)

	require.NoError(t, ts.notifications.MarkRead(ctx, alice.ID, n.ID))

	var second models.Notification
	require.NoError(t, ts.db.First(&second, n.ID).Error)
	assert.True(t, second.IsRead)
	require.NotNil(t, second.ReadAt)
	assert.True(t, first.ReadAt.Equal(*second.ReadAt))

	msgs := ts.publisher.For(alice.ID)
	require.Len(t, msgs, 1)
	assert.Equal(t, realtime.EventUnreadCount, msgs[0].Event)
}

func TestMarkReadOtherUsersNotification(t *testing.T) {
	ts := newTestServices(t)
	alice := seedUser(t, ts.db, "alice@campus.edu", models.RoleUser)
	bob := seedUser(t, ts.db, "bob@campus.edu", models.RoleUser)
	n := seedNotification(t, ts.db, bob.ID, "private", models.NotificationSystem, false, time.Now())

	err := ts.notifications.MarkRead(context.Background(), alice.ID, n.ID)
	assert.ErrorIs(t, err, ErrNotificationNotFound)

	var stored models.Notification
	require.NoError(t, ts.db.First(&stored, n.ID).Error)
	assert.False(t, stored.IsRead)
}

func TestMarkAllRead(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	alice := seedUser(t, ts.db, "alice@campus.edu", models.RoleUser)
	bob := seedUser(t, ts.db, "bob@campus.edu", models.RoleUser)

	now := time.Now()
	seedNotification(t, ts.db, alice.ID, "a1", models.NotificationSystem, false, now)
	seedNotification(t, ts.db, alice.ID, "a2", models.NotificationSystem, false, now)
	seedNotification(t, ts.db, alice.ID, "a3", models.NotificationSystem, true, now)
	seedNotification(t, ts.db, bob.ID, "b1", models.NotificationSystem, false, now)

	updated, err := ts.notifications.MarkAllRead(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	unread, err := ts.notifications.UnreadCount(ctx, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, unread)
	assert.Zero(t, countRows(t, ts.db, &models.Notification{}, "user_id = ? AND read_at IS NULL", alice.ID))

	bobUnread, err := ts.notifications.UnreadCount(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), bobUnread)

	again, err := ts.notifications.MarkAllRead(ctx, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, again)
}

func TestDeleteAllReadOnlyTouchesOwner(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	alice := seedUser(t, ts.db, "alice@campus.edu", models.RoleUser)
	bob := seedUser(t, ts.db, "bob@campus.edu", models.RoleUser)

	now := time.Now()
	seedNotification(t, ts.db, alice.ID, "a-read-1", models.NotificationSystem, true, now)
	seedNotification(t, ts.db, alice.ID, "a-read-2", models.NotificationSystem, true, now)
	keep := seedNotification(t, ts.db, alice.ID, "a-unread", models.NotificationSystem, false, now)
	seedNotification(t, ts.db, bob.ID, "b-read", models.NotificationSystem, true, now)

	deleted, err := ts.notifications.DeleteAllRead(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	assert.Equal(t, int64(1), countRows(t, ts.db, &models.Notification{}, "user_id = ?", alice.ID))
	assert.Equal(t, int64(1), countRows(t, ts.db, &models.Notification{}, "id = ?", keep.ID))
	assert.Equal(t, int64(1), countRows(t, ts.db, &models.Notification{}, "user_id = ? AND is_read = ?", bob.ID, true))
}

func TestDeleteNotification(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	alice := seedUser(t, ts.db, "alice@campus.edu", models.RoleUser)
	bob := seedUser(t, ts.db, "bob@campus.edu", models.RoleUser)
	mine := seedNotification(t, ts.db, alice.ID, "mine", models.NotificationSystem, false, time.Now())
	theirs := seedNotification(t, ts.db, bob.ID, "theirs", models.NotificationSystem, false, time.Now())

	require.NoError(t, ts.notifications.Delete(ctx, alice.ID, mine.ID))
	assert.ErrorIs(t, ts.notifications.Delete(ctx, alice.ID, mine.ID), ErrNotificationNotFound)
	assert.ErrorIs(t, ts.notifications.Delete(ctx, alice.ID, theirs.ID), ErrNotificationNotFound)
	assert.Equal(t, int64(1), countRows(t, ts.db, &models.Notification{}, "id = ?", theirs.ID))
}

func TestNotifyHonoursPreferences(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	alice := seedUser(t, ts.db, "alice@campus.edu", models.RoleUser)

	in := validPreferences()
	in.EmailNotifications = true
	in.PushNotifications = false
	in.EventReminders = false
	_, err := ts.prefs.Save(ctx, alice.ID, in)
	require.NoError(t, err)

	skipped, err := ts.notifications.Notify(ctx, NotifyInput{
		UserID: alice.ID,
		Type:   models.NotificationEventReminder,
		Title:  "Starts soon",
	})
	require.NoError(t, err)
	assert.Nil(t, skipped)
	assert.Zero(t, countRows(t, ts.db, &models.Notification{}, "user_id = ?", alice.ID))

	n, err := ts.notifications.Notify(ctx, NotifyInput{
		UserID:  alice.ID,
		Title:   "Maintenance",
		Message: "Tonight at 22:00",
	})
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, models.NotificationSystem, n.Type)
	assert.False(t, n.IsRead)

	mails := ts.mail.Messages()
	require.Len(t, mails, 1)
	assert.Equal(t, "alice@campus.edu", mails[0].To)
	assert.Contains(t, mails[0].Subject, "Maintenance")
	assert.Empty(t, ts.publisher.For(alice.ID))
}

func TestNotifyPushesWithDefaultPreferences(t *testing.T) {
	ts := newTestServices(t)
	alice := seedUser(t, ts.db, "alice@campus.edu", models.RoleUser)

	_, err := ts.notifications.Notify(context.Background(), NotifyInput{UserID: alice.ID, Title: "Hi"})
	require.NoError(t, err)

	msgs := ts.publisher.For(alice.ID)
	require.Len(t, msgs, 2)
	assert.Equal(t, realtime.EventNotificationCreated, msgs[0].Event)
	assert.Equal(t, realtime.EventUnreadCount, msgs[1].Event)
	assert.Equal(t, int64(1), msgs[1].Data)
}

func TestBroadcastByRole(t *testing.T) {
	ts := newTestServices(t)
	seedUser(t, ts.db, "alice@campus.edu", models.RoleUser)
	org := seedUser(t, ts.db, "org@campus.edu", models.RoleOrganizer)

	sent, err := ts.notifications.Broadcast(context.Background(), models.RoleOrganizer, "Deadline", "Submit by Friday")
	require.NoError(t, err)
	assert.Equal(t, int64(1), sent)
	assert.Equal(t, int64(1), countRows(t, ts.db, &models.Notification{}, "user_id = ?", org.ID))

	all, err := ts.notifications.Broadcast(context.Background(), "", "Welcome", "New term")
	require.NoError(t, err)
	assert.Equal(t, int64(2), all)
}

func TestPurgeRead(t *testing.T) {
	ts := newTestServices(t)
	alice := seedUser(t, ts.db, "alice@campus.edu", models.RoleUser)

	now := time.Now()
	seedNotification(t, ts.db, alice.ID, "old", models.NotificationSystem, true, now.Add(-100*24*time.Hour))
	seedNotification(t, ts.db, alice.ID, "recent", models.NotificationSystem, true, now.Add(-time.Hour))
	seedNotification(t, ts.db, alice.ID, "old unread", models.NotificationSystem, false, now.Add(-100*24*time.Hour))

	purged, err := ts.notifications.PurgeRead(context.Background(), now.Add(-90*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
	assert.Equal(t, int64(2), countRows(t, ts.db, &models.Notification{}, "user_id = ?", alice.ID))
}

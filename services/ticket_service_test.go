package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/campus-ems/models"
)

func TestRegisterFreeEventCompletesImmediately(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	org := seedUser(t, ts.db, "org@campus.edu", models.RoleOrganizer)
	alice := seedUser(t, ts.db, "alice@campus.edu", models.RoleUser)
	event := seedEvent(t, ts.db, org.ID, "Open Lecture", models.EventStatusApproved, time.Now().Add(48*time.Hour), 0, 0)

	ticket, err := ts.tickets.Register(ctx, alice.ID, event.ID, "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, ticket.PaymentStatus)
	assert.NotNil(t, ticket.PaidAt)
	assert.Nil(t, ticket.ExpiresAt)
	assert.Contains(t, ticket.TicketCode, "EMS-")

	_, err = ts.tickets.Register(ctx, alice.ID, event.ID, "")
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	assert.Equal(t, int64(1), countRows(t, ts.db, &models.Notification{}, "user_id = ? AND type = ?", org.ID, models.NotificationNewRegistration))
	assert.Equal(t, int64(1), countRows(t, ts.db, &models.Notification{}, "user_id = ? AND type = ?", alice.ID, models.NotificationPaymentCompleted))
	assert.Equal(t, int64(1), ts.tickets.Metrics().Registrations)
}

func TestRegisterRejectsClosedAndFullEvents(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	org := seedUser(t, ts.db, "org@campus.edu", models.RoleOrganizer)
	alice := seedUser(t, ts.db, "alice@campus.edu", models.RoleUser)
	bob := seedUser(t, ts.db, "bob@campus.edu", models.RoleUser)

	now := time.Now()
	draft := seedEvent(t, ts.db, org.ID, "Draft", models.EventStatusDraft, now.Add(time.Hour), 0, 0)
	ended := seedEvent(t, ts.db, org.ID, "Ended", models.EventStatusApproved, now.Add(-5*time.Hour), 0, 0)
	tiny := seedEvent(t, ts.db, org.ID, "Tiny", models.EventStatusApproved, now.Add(time.Hour), 0, 1)

	_, err := ts.tickets.Register(ctx, alice.ID, draft.ID, "")
	assert.ErrorIs(t, err, ErrEventClosed)
	_, err = ts.tickets.Register(ctx, alice.ID, ended.ID, "")
	assert.ErrorIs(t, err, ErrEventClosed)
	_, err = ts.tickets.Register(ctx, alice.ID, 9999, "")
	assert.ErrorIs(t, err, ErrEventNotFound)

	_, err = ts.tickets.Register(ctx, alice.ID, tiny.ID, "")
	require.NoError(t, err)
	_, err = ts.tickets.Register(ctx, bob.ID, tiny.ID, "")
	assert.ErrorIs(t, err, ErrEventFull)
}

func TestPaidTicketLifecycle(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	org := seedUser(t, ts.db, "org@campus.edu", models.RoleOrganizer)
	alice := seedUser(t, ts.db, "alice@campus.edu", models.RoleUser)
	event := seedEvent(t, ts.db, org.ID, "Gala Dinner", models.EventStatusApproved, time.Now().Add(72*time.Hour), 150.5, 0)

	ticket, err := ts.tickets.Register(ctx, alice.ID, event.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, ticket.PaymentStatus)
	require.NotNil(t, ticket.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), *ticket.ExpiresAt, time.Minute)

	paid, err := ts.tickets.CompletePayment(ctx, alice.ID, ticket.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, paid.PaymentStatus)
	assert.InDelta(t, 150.5, paid.AmountPaid, 0.001)

	var stored models.Ticket
	require.NoError(t, ts.db.First(&stored, ticket.ID).Error)
	assert.Equal(t, models.PaymentStatusCompleted, stored.PaymentStatus)
	assert.NotNil(t, stored.PaidAt)
	assert.Nil(t, stored.ExpiresAt)

	_, err = ts.tickets.CompletePayment(ctx, alice.ID, ticket.ID, "")
	assert.ErrorIs(t, err, ErrTicketState)

	var receipt models.Notification
	require.NoError(t, ts.db.Where("user_id = ? AND type = ?", alice.ID, models.NotificationPaymentCompleted).First(&receipt).Error)
	assert.Contains(t, receipt.Message, "150.50")

	cancelled, err := ts.tickets.Cancel(ctx, alice.ID, ticket.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCancelled, cancelled.PaymentStatus)
	assert.Equal(t, int64(1), countRows(t, ts.db, &models.Notification{}, "user_id = ? AND type = ?", org.ID, models.NotificationRegistrationCancelled))

	_, err = ts.tickets.Cancel(ctx, alice.ID, ticket.ID, "")
	assert.ErrorIs(t, err, ErrTicketState)

	again, err := ts.tickets.Register(ctx, alice.ID, event.ID, "")
	require.NoError(t, err)
	assert.NotEqual(t, ticket.ID, again.ID)
}

func TestTicketsAreScopedToOwner(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	org := seedUser(t, ts.db, "org@campus.edu", models.RoleOrganizer)
	alice := seedUser(t, ts.db, "alice@campus.edu", models.RoleUser)
	bob := seedUser(t, ts.db, "bob@campus.edu", models.RoleUser)
	event := seedEvent(t, ts.db, org.ID, "Paid", models.EventStatusApproved, time.Now().Add(time.Hour), 10, 0)
	ticket := seedTicket(t, ts.db, alice.ID, event.ID, models.PaymentStatusPending)

	_, err := ts.tickets.CompletePayment(ctx, bob.ID, ticket.ID, "")
	assert.ErrorIs(t, err, ErrTicketNotFound)
	_, err = ts.tickets.Cancel(ctx, bob.ID, ticket.ID, "")
	assert.ErrorIs(t, err, ErrTicketNotFound)
}

func TestExpirePendingReleasesSeats(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	org := seedUser(t, ts.db, "org@campus.edu", models.RoleOrganizer)
	alice := seedUser(t, ts.db, "alice@campus.edu", models.RoleUser)
	event := seedEvent(t, ts.db, org.ID, "Paid", models.EventStatusApproved, time.Now().Add(72*time.Hour), 10, 1)

	ticket, err := ts.tickets.Register(ctx, alice.ID, event.ID, "")
	require.NoError(t, err)

	expired, err := ts.tickets.ExpirePending(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, expired)

	expired, err = ts.tickets.ExpirePending(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	var stored models.Ticket
	require.NoError(t, ts.db.First(&stored, ticket.ID).Error)
	assert.Equal(t, models.PaymentStatusCancelled, stored.PaymentStatus)
	assert.Equal(t, int64(1), countRows(t, ts.db, &models.Notification{}, "user_id = ? AND type = ?", alice.ID, models.NotificationTicketExpired))
	assert.Equal(t, int64(1), ts.tickets.Metrics().Expirations)

	got, err := ts.events.Get(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.SeatsLeft)
}

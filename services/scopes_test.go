package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasMore(t *testing.T) {
	cases := []struct {
		page  int
		total int64
		want  bool
	}{
		{1, 0, false},
		{1, 20, false},
		{1, 21, true},
		{2, 40, false},
		{2, 41, true},
		{0, 25, true},
		{1 << 62, 3, false},
		{1 << 62, 1 << 40, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, hasMore(c.page, NotificationsPerPage, c.total), "page=%d total=%d", c.page, c.total)
	}
}

func TestClampPage(t *testing.T) {
	assert.Equal(t, 1, clampPage(-5, NotificationsPerPage))
	assert.Equal(t, 3, clampPage(3, NotificationsPerPage))
	assert.Equal(t, math.MaxInt/NotificationsPerPage, clampPage(1<<62, NotificationsPerPage))
}

func TestValidNotificationFilter(t *testing.T) {
	for _, f := range []string{"", "all", "unread", "read", "event_reminder", "ticket_expired"} {
		assert.True(t, ValidNotificationFilter(f), f)
	}
	for _, f := range []string{"READ", "1 OR 1=1", "starred"} {
		assert.False(t, ValidNotificationFilter(f), f)
	}
}

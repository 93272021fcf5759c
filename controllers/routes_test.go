package controllers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouteSurface(t *testing.T) {
	app := newTestApp(t)

	registered := map[string]bool{}
	for _, r := range app.router.Routes() {
		registered[r.Method+" "+r.Path] = true
	}

	for _, route := range []string{
		http.MethodGet + " /events/:id",
		http.MethodGet + " /categories",
		http.MethodPost + " /events/:id/register",
		http.MethodPost + " /tickets/:id/pay",
		http.MethodPost + " /tickets/:id/cancel",
		http.MethodPut + " /organizer/events/:id",
		http.MethodPost + " /organizer/events/:id/submit",
		http.MethodGet + " /organizer/events/:id/attendees",
		http.MethodPost + " /admin/events/:id/approve",
		http.MethodPost + " /admin/events/:id/reject",
		http.MethodGet + " /settings",
		http.MethodGet + " /ws/notifications",
	} {
		assert.True(t, registered[route], route)
	}
}

package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailTaken           = errors.New("email is already registered")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrInvalidPassword      = errors.New("password is incorrect")
	ErrInvalidConfirmation  = errors.New(`confirmation text must be "DELETE"`)
	ErrInvalidRole          = errors.New("role not allowed")
	ErrVerificationInvalid  = errors.New("verification code is invalid or expired")
	ErrAlreadyVerified      = errors.New("account is already verified")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrInvalidFilter        = errors.New("unknown notification filter")
	ErrInvalidAction        = errors.New("unknown action")
	ErrEventNotFound        = errors.New("event not found")
	ErrEventNotEditable     = errors.New("event can no longer be edited")
	ErrInvalidTransition    = errors.New("event status change not allowed")
	ErrEventClosed          = errors.New("event is not open for registration")
	ErrEventFull            = errors.New("event is full")
	ErrAlreadyRegistered    = errors.New("already registered for this event")
	ErrTicketNotFound       = errors.New("ticket not found")
	ErrTicketState          = errors.New("ticket cannot change to that state")
	ErrUnknownCategory      = errors.New("unknown export category")
)

// ValidationError carries per-field messages keyed by the JSON field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

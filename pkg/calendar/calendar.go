package calendar

import (
	"context"
	"time"
)

// EventType names the letter register an event was derived from.
type EventType string

const (
	IncomingEvent EventType = "incoming"
	OutgoingEvent EventType = "outgoing"
)

// Event is a read-only projection of an invitation letter. It is never stored.
type Event struct {
	Id           int
	Title        string
	Date         time.Time
	Location     string
	Type         EventType
	LetterNumber string
	Description  string
}

// Range bounds event dates. Both ends are inclusive; a zero value leaves that
// end open.
type Range struct {
	Start time.Time
	End   time.Time
}

func (r Range) Contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && t.After(r.End) {
		return false
	}
	return true
}

// InvitationSource lists the calendar events of one letter register.
type InvitationSource interface {
	Type() EventType
	ListInvitations(ctx context.Context, r Range) ([]Event, error)
}

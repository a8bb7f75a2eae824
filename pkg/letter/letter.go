package letter

import (
	"errors"
	"fmt"
	"time"
)

var ErrLetterNotFound = errors.New("letter not found")
var ErrInvalidLetter = errors.New("invalid letter")
var ErrUnknownType = errors.New("unknown letter type")

// Type tells which register a letter belongs to.
type Type string

const (
	Incoming Type = "incoming"
	Outgoing Type = "outgoing"
)

// Types lists every register in retrieval order.
var Types = []Type{Incoming, Outgoing}

func ParseType(s string) (Type, error) {
	switch Type(s) {
	case Incoming:
		return Incoming, nil
	case Outgoing:
		return Outgoing, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
}

type Letter struct {
	Id           int
	Type         Type
	LetterNumber string
	Subject      string
	// Correspondent is the sender of an incoming letter or the recipient of an outgoing one.
	Correspondent string
	LetterDate    *time.Time
	// Note is only stored for outgoing letters.
	Note          string
	IsInvitation  bool
	EventDate     *time.Time
	EventTime     string
	EventLocation string
	EventHandled  bool
	CreatedAt     time.Time
}

// HasEvent reports whether the letter describes a dated event.
func (l Letter) HasEvent() bool {
	return l.IsInvitation && l.EventDate != nil
}

func (l Letter) Validate() error {
	if _, err := ParseType(string(l.Type)); err != nil {
		return err
	}
	if l.Subject == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidLetter)
	}
	if l.LetterNumber == "" {
		return fmt.Errorf("%w: letter number is required", ErrInvalidLetter)
	}
	if l.IsInvitation && l.EventDate == nil {
		return fmt.Errorf("%w: an invitation requires an event date", ErrInvalidLetter)
	}
	if l.Type == Incoming && l.Note != "" {
		return fmt.Errorf("%w: notes are only kept for outgoing letters", ErrInvalidLetter)
	}
	return nil
}

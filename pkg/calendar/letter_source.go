package calendar

import (
	"context"

	"github.com/letterbox/letterbox/pkg/letter"
)

type LetterSource struct {
	repo       letter.Repository
	letterType letter.Type
}

func NewLetterSource(repo letter.Repository, letterType letter.Type) *LetterSource {
	return &LetterSource{repo: repo, letterType: letterType}
}

// NewLetterSources returns one source per letter register, incoming first.
func NewLetterSources(repo letter.Repository) []InvitationSource {
	sources := make([]InvitationSource, 0, len(letter.Types))
	for _, t := range letter.Types {
		sources = append(sources, NewLetterSource(repo, t))
	}
	return sources
}

func (s *LetterSource) Type() EventType {
	return EventType(s.letterType)
}

func (s *LetterSource) ListInvitations(ctx context.Context, r Range) ([]Event, error) {
	letters, err := s.repo.FindInvitations(ctx, s.letterType, r.Start, r.End)
	if err != nil {
		return nil, err
	}
	events := make([]Event, 0, len(letters))
	for _, l := range letters {
		if e, ok := FromLetter(l); ok {
			events = append(events, e)
		}
	}
	return events, nil
}

// FromLetter projects an invitation letter onto an Event. Letters without the
// invitation flag or without an event date yield no event.
func FromLetter(l letter.Letter) (Event, bool) {
	if !l.HasEvent() {
		return Event{}, false
	}
	return Event{
		Id:           l.Id,
		Title:        l.Subject,
		Date:         *l.EventDate,
		Location:     l.EventLocation,
		Type:         EventType(l.Type),
		LetterNumber: l.LetterNumber,
		Description:  l.Note,
	}, true
}

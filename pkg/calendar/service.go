package calendar

import (
	"context"
	"fmt"
	"sort"

	"github.com/letterbox/letterbox/internal/utils"
)

const DefaultUpcomingLimit = 5

type Service struct {
	sources      []InvitationSource
	clock        utils.Clock
	defaultLimit int
}

func NewService(sources []InvitationSource, clock utils.Clock, defaultLimit int) *Service {
	if defaultLimit <= 0 {
		defaultLimit = DefaultUpcomingLimit
	}
	return &Service{sources: sources, clock: clock, defaultLimit: defaultLimit}
}

// GetEvents collects the events of every source within r. The result is not
// ordered. A failing source fails the whole call.
func (s *Service) GetEvents(ctx context.Context, r Range) ([]Event, error) {
	var events []Event
	for _, source := range s.sources {
		found, err := source.ListInvitations(ctx, r)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s invitations: %w", source.Type(), err)
		}
		events = append(events, found...)
	}
	if events == nil {
		events = []Event{}
	}
	return events, nil
}

// GetUpcoming returns at most limit events dated now or later, nearest first.
// Events on the same instant keep source order (incoming before outgoing).
func (s *Service) GetUpcoming(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	events, err := s.GetEvents(ctx, Range{Start: s.clock.Now()})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Date.Before(events[j].Date)
	})
	if len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/letterbox/letterbox/internal/dedup"
	"github.com/letterbox/letterbox/internal/utils"
	"github.com/letterbox/letterbox/pkg/calendar"
	"github.com/letterbox/letterbox/pkg/letter"
	"github.com/letterbox/letterbox/pkg/notification"
	log "github.com/sirupsen/logrus"
)

const (
	UpcomingEventsJobName     = "upcoming-events"
	OverdueInvitationsJobName = "overdue-invitations"
	WeeklySummaryJobName      = "weekly-summary"

	WeeklySummaryTitle = "Weekly Summary"

	eventDateLayout = "2006-01-02 15:04"
)

// EventSource is the part of the calendar the upcoming reminder reads.
type EventSource interface {
	GetEvents(ctx context.Context, rng calendar.Range) ([]calendar.Event, error)
}

type UpcomingEventsJob struct {
	spec          string
	windowDays    int
	events        EventSource
	notifications notification.Service
	guard         dedup.Guard
	clock         utils.Clock
}

func NewUpcomingEventsJob(spec string, windowDays int, events EventSource, notifications notification.Service, guard dedup.Guard, clock utils.Clock) *UpcomingEventsJob {
	if windowDays <= 0 {
		windowDays = 3
	}
	return &UpcomingEventsJob{
		spec:          spec,
		windowDays:    windowDays,
		events:        events,
		notifications: notifications,
		guard:         guard,
		clock:         clock,
	}
}

func (j *UpcomingEventsJob) Name() string { return UpcomingEventsJobName }
func (j *UpcomingEventsJob) Spec() string { return j.spec }

// Run writes one reminder per invitation in the next windowDays days.
func (j *UpcomingEventsJob) Run(ctx context.Context) error {
	now := j.clock.Now()
	events, err := j.events.GetEvents(ctx, calendar.Range{Start: now, End: now.AddDate(0, 0, j.windowDays)})
	if err != nil {
		return fmt.Errorf("failed to load upcoming events: %w", err)
	}

	created := 0
	for _, e := range events {
		key := fmt.Sprintf("upcoming:%s:%d", e.Type, e.Id)
		if !j.guard.Acquire(ctx, key) {
			continue
		}
		message := fmt.Sprintf("%s letter %s: event on %s", e.Type, e.LetterNumber, e.Date.Format(eventDateLayout))
		if e.Location != "" {
			message += " at " + e.Location
		}
		if _, err := j.notifications.Create(ctx, "Upcoming event: "+e.Title, message, notification.Info); err != nil {
			j.guard.Release(ctx, key)
			return fmt.Errorf("failed to write reminder for %s event %d: %w", e.Type, e.Id, err)
		}
		log.Infof("Upcoming event reminder: %q on %s (%s letter %d)", e.Title, e.Date.Format(eventDateLayout), e.Type, e.Id)
		created++
	}
	log.Debugf("Upcoming events check: %d events in window, %d reminders written", len(events), created)
	return nil
}

type OverdueInvitationsJob struct {
	spec          string
	letters       letter.Repository
	notifications notification.Service
	guard         dedup.Guard
	clock         utils.Clock
}

func NewOverdueInvitationsJob(spec string, letters letter.Repository, notifications notification.Service, guard dedup.Guard, clock utils.Clock) *OverdueInvitationsJob {
	return &OverdueInvitationsJob{
		spec:          spec,
		letters:       letters,
		notifications: notifications,
		guard:         guard,
		clock:         clock,
	}
}

func (j *OverdueInvitationsJob) Name() string { return OverdueInvitationsJobName }
func (j *OverdueInvitationsJob) Spec() string { return j.spec }

// Run flags every past, unhandled invitation of both registers.
func (j *OverdueInvitationsJob) Run(ctx context.Context) error {
	now := j.clock.Now()
	for _, letterType := range letter.Types {
		overdue, err := j.letters.FindOverdueInvitations(ctx, letterType, now)
		if err != nil {
			return fmt.Errorf("failed to load overdue %s invitations: %w", letterType, err)
		}
		for _, l := range overdue {
			key := fmt.Sprintf("overdue:%s:%d", letterType, l.Id)
			if !j.guard.Acquire(ctx, key) {
				continue
			}
			message := fmt.Sprintf("%s letter %s: event on %s has passed and is not marked handled",
				letterType, l.LetterNumber, l.EventDate.Format(eventDateLayout))
			if _, err := j.notifications.Create(ctx, "Overdue invitation: "+l.Subject, message, notification.Warning); err != nil {
				j.guard.Release(ctx, key)
				return fmt.Errorf("failed to write overdue notice for %s letter %d: %w", letterType, l.Id, err)
			}
			log.Warnf("Overdue invitation: %q (%s letter %d) was due %s", l.Subject, letterType, l.Id, l.EventDate.Format(eventDateLayout))
		}
	}
	return nil
}

type WeeklySummaryJob struct {
	spec          string
	letters       letter.Repository
	notifications notification.Service
	clock         utils.Clock
}

func NewWeeklySummaryJob(spec string, letters letter.Repository, notifications notification.Service, clock utils.Clock) *WeeklySummaryJob {
	return &WeeklySummaryJob{spec: spec, letters: letters, notifications: notifications, clock: clock}
}

func (j *WeeklySummaryJob) Name() string { return WeeklySummaryJobName }
func (j *WeeklySummaryJob) Spec() string { return j.spec }

func WeeklySummaryMessage(incoming, outgoing int) string {
	return fmt.Sprintf("This week: %d incoming letters, %d outgoing letters processed.", incoming, outgoing)
}

// Run counts letters created in [now-7d, now] and writes one summary.
func (j *WeeklySummaryJob) Run(ctx context.Context) error {
	now := j.clock.Now()
	from := now.Add(-7 * 24 * time.Hour)

	incoming, err := j.letters.CountCreatedBetween(ctx, letter.Incoming, from, now)
	if err != nil {
		return fmt.Errorf("failed to count incoming letters: %w", err)
	}
	outgoing, err := j.letters.CountCreatedBetween(ctx, letter.Outgoing, from, now)
	if err != nil {
		return fmt.Errorf("failed to count outgoing letters: %w", err)
	}

	message := WeeklySummaryMessage(incoming, outgoing)
	if _, err := j.notifications.Create(ctx, WeeklySummaryTitle, message, notification.Info); err != nil {
		return fmt.Errorf("failed to write weekly summary: %w", err)
	}
	log.Info(message)
	return nil
}

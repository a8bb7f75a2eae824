package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/letterbox/letterbox/internal/event_bus"
	"github.com/letterbox/letterbox/internal/utils"
	"github.com/letterbox/letterbox/pkg/calendar"
	"github.com/letterbox/letterbox/pkg/letter"
	"github.com/letterbox/letterbox/pkg/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2023, time.December, 15, 8, 0, 0, 0, time.UTC)

// onceGuard remembers keys forever.
type onceGuard struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newOnceGuard() *onceGuard {
	return &onceGuard{seen: map[string]bool{}}
}

func (g *onceGuard) Acquire(_ context.Context, key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.seen[key] {
		return false
	}
	g.seen[key] = true
	return true
}

func (g *onceGuard) Release(_ context.Context, key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.seen, key)
}

type fixture struct {
	letters       *letter.RepositoryStub
	notifications *notification.RepositoryStub
	service       *notification.ServiceImpl
	calendar      *calendar.Service
	guard         *onceGuard
	clock         *utils.MockClock
}

func setup(t *testing.T) fixture {
	clock := &utils.MockClock{FixedNow: now}
	letters := letter.NewRepositoryStub()
	notifications := notification.NewRepositoryStub()
	return fixture{
		letters:       letters,
		notifications: notifications,
		service:       notification.NewService(notifications, event_bus.NewEventBus(), clock),
		calendar:      calendar.NewService(calendar.NewLetterSources(letters), clock, 5),
		guard:         newOnceGuard(),
		clock:         clock,
	}
}

func invitation(letterType letter.Type, subject string, date time.Time) letter.Letter {
	return letter.Letter{
		Type:          letterType,
		LetterNumber:  subject + "/2023",
		Subject:       subject,
		IsInvitation:  true,
		EventDate:     &date,
		EventLocation: "Hall A",
	}
}

func store(t *testing.T, repo *letter.RepositoryStub, letters ...letter.Letter) {
	for _, l := range letters {
		_, err := repo.Store(context.Background(), l)
		require.NoError(t, err)
	}
}

func TestUpcomingEventsJob(t *testing.T) {
	t.Run("writes one reminder per event in the window", func(t *testing.T) {
		f := setup(t)
		store(t, f.letters,
			invitation(letter.Incoming, "tomorrow", now.Add(24*time.Hour)),
			invitation(letter.Outgoing, "in three days", now.AddDate(0, 0, 3)),
			invitation(letter.Outgoing, "next week", now.AddDate(0, 0, 7)),
			invitation(letter.Incoming, "yesterday", now.Add(-24*time.Hour)),
			letter.Letter{Type: letter.Incoming, LetterNumber: "x", Subject: "plain letter"},
		)
		job := NewUpcomingEventsJob("0 8 * * *", 3, f.calendar, f.service, f.guard, f.clock)

		require.NoError(t, job.Run(context.Background()))

		written := f.notifications.All()
		require.Len(t, written, 2)
		titles := []string{written[0].Title, written[1].Title}
		assert.ElementsMatch(t, []string{"Upcoming event: tomorrow", "Upcoming event: in three days"}, titles)
		for _, n := range written {
			assert.Equal(t, notification.Info, n.Type)
			assert.Contains(t, n.Message, "Hall A")
		}
	})

	t.Run("does not repeat reminders on the next run", func(t *testing.T) {
		f := setup(t)
		store(t, f.letters, invitation(letter.Incoming, "tomorrow", now.Add(24*time.Hour)))
		job := NewUpcomingEventsJob("0 8 * * *", 3, f.calendar, f.service, f.guard, f.clock)

		require.NoError(t, job.Run(context.Background()))
		f.clock.Advance(time.Hour)
		require.NoError(t, job.Run(context.Background()))

		assert.Len(t, f.notifications.All(), 1)
	})

	t.Run("distinguishes registers with the same id", func(t *testing.T) {
		f := setup(t)
		store(t, f.letters,
			invitation(letter.Incoming, "in", now.Add(time.Hour)),
			invitation(letter.Outgoing, "out", now.Add(time.Hour)),
		)
		job := NewUpcomingEventsJob("0 8 * * *", 3, f.calendar, f.service, f.guard, f.clock)

		require.NoError(t, job.Run(context.Background()))

		assert.Len(t, f.notifications.All(), 2)
	})

	t.Run("retries reminders whose write failed", func(t *testing.T) {
		f := setup(t)
		store(t, f.letters,
			invitation(letter.Incoming, "a", now.Add(time.Hour)),
			invitation(letter.Incoming, "b", now.Add(2*time.Hour)),
		)
		job := NewUpcomingEventsJob("0 8 * * *", 3, f.calendar, f.service, f.guard, f.clock)
		f.notifications.FailWith(errors.New("disk full"))

		require.Error(t, job.Run(context.Background()))
		f.notifications.FailWith(nil)
		require.NoError(t, job.Run(context.Background()))

		written := f.notifications.All()
		require.Len(t, written, 2)
		assert.ElementsMatch(t, []string{"Upcoming event: a", "Upcoming event: b"}, []string{written[0].Title, written[1].Title})
	})

	t.Run("fails when letters cannot be read", func(t *testing.T) {
		f := setup(t)
		failure := errors.New("connection refused")
		f.letters.FailWith(failure)
		job := NewUpcomingEventsJob("0 8 * * *", 3, f.calendar, f.service, f.guard, f.clock)

		err := job.Run(context.Background())

		assert.ErrorIs(t, err, failure)
		assert.Empty(t, f.notifications.All())
	})

	t.Run("defaults the window", func(t *testing.T) {
		job := NewUpcomingEventsJob("0 8 * * *", 0, nil, nil, nil, nil)

		assert.Equal(t, 3, job.windowDays)
		assert.Equal(t, UpcomingEventsJobName, job.Name())
		assert.Equal(t, "0 8 * * *", job.Spec())
	})
}

func TestOverdueInvitationsJob(t *testing.T) {
	t.Run("flags past unhandled invitations of both registers", func(t *testing.T) {
		f := setup(t)
		store(t, f.letters,
			invitation(letter.Incoming, "missed meeting", now.Add(-48*time.Hour)),
			invitation(letter.Outgoing, "missed ceremony", now.Add(-time.Hour)),
			invitation(letter.Incoming, "future", now.Add(time.Hour)),
		)
		handled := invitation(letter.Outgoing, "handled", now.Add(-time.Hour))
		handled.EventHandled = true
		store(t, f.letters, handled)
		job := NewOverdueInvitationsJob("0 18 * * *", f.letters, f.service, f.guard, f.clock)

		require.NoError(t, job.Run(context.Background()))

		written := f.notifications.All()
		require.Len(t, written, 2)
		assert.Equal(t, "Overdue invitation: missed meeting", written[0].Title)
		assert.Equal(t, "Overdue invitation: missed ceremony", written[1].Title)
		assert.Equal(t, notification.Warning, written[0].Type)
	})

	t.Run("is deduplicated across runs", func(t *testing.T) {
		f := setup(t)
		store(t, f.letters, invitation(letter.Incoming, "missed", now.Add(-time.Hour)))
		job := NewOverdueInvitationsJob("0 18 * * *", f.letters, f.service, f.guard, f.clock)

		require.NoError(t, job.Run(context.Background()))
		require.NoError(t, job.Run(context.Background()))

		assert.Len(t, f.notifications.All(), 1)
	})

	t.Run("returns notification storage errors", func(t *testing.T) {
		f := setup(t)
		store(t, f.letters, invitation(letter.Incoming, "missed", now.Add(-time.Hour)))
		failure := errors.New("disk full")
		f.notifications.FailWith(failure)
		job := NewOverdueInvitationsJob("0 18 * * *", f.letters, f.service, f.guard, f.clock)

		assert.ErrorIs(t, job.Run(context.Background()), failure)
	})

	t.Run("writes the notice on the run after a failed write", func(t *testing.T) {
		f := setup(t)
		store(t, f.letters, invitation(letter.Outgoing, "missed", now.Add(-time.Hour)))
		job := NewOverdueInvitationsJob("0 18 * * *", f.letters, f.service, f.guard, f.clock)
		f.notifications.FailWith(errors.New("disk full"))

		require.Error(t, job.Run(context.Background()))
		f.notifications.FailWith(nil)
		require.NoError(t, job.Run(context.Background()))

		written := f.notifications.All()
		require.Len(t, written, 1)
		assert.Equal(t, "Overdue invitation: missed", written[0].Title)
	})
}

func TestWeeklySummaryJob(t *testing.T) {
	t.Run("counts the trailing seven days inclusively", func(t *testing.T) {
		f := setup(t)
		weekAgo := now.Add(-7 * 24 * time.Hour)
		store(t, f.letters,
			letter.Letter{Type: letter.Incoming, LetterNumber: "1", Subject: "boundary", CreatedAt: weekAgo},
			letter.Letter{Type: letter.Incoming, LetterNumber: "2", Subject: "inside", CreatedAt: now.Add(-time.Hour)},
			letter.Letter{Type: letter.Incoming, LetterNumber: "3", Subject: "too old", CreatedAt: weekAgo.Add(-time.Second)},
			letter.Letter{Type: letter.Outgoing, LetterNumber: "4", Subject: "now", CreatedAt: now},
		)
		job := NewWeeklySummaryJob("0 9 * * 1", f.letters, f.service, f.clock)

		require.NoError(t, job.Run(context.Background()))

		written := f.notifications.All()
		require.Len(t, written, 1)
		assert.Equal(t, "Weekly Summary", written[0].Title)
		assert.Equal(t, "This week: 2 incoming letters, 1 outgoing letters processed.", written[0].Message)
		assert.Equal(t, notification.Info, written[0].Type)
	})

	t.Run("writes zero counts", func(t *testing.T) {
		f := setup(t)
		job := NewWeeklySummaryJob("0 9 * * 1", f.letters, f.service, f.clock)

		require.NoError(t, job.Run(context.Background()))

		assert.Equal(t, "This week: 0 incoming letters, 0 outgoing letters processed.", f.notifications.All()[0].Message)
	})

	t.Run("writes nothing when counting fails", func(t *testing.T) {
		f := setup(t)
		f.letters.FailWith(errors.New("timeout"))
		job := NewWeeklySummaryJob("0 9 * * 1", f.letters, f.service, f.clock)

		assert.Error(t, job.Run(context.Background()))
		assert.Empty(t, f.notifications.All())
	})
}

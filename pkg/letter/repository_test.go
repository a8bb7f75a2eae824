package letter

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/letterbox/letterbox/internal/test_utils"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var pgContainer *postgres.PostgresContainer
var openDb func() *pgxpool.Pool

func TestMain(m *testing.M) {
	pgContainer, openDb = test_utils.TestWithDB()
	code := m.Run()
	if err := testcontainers.TerminateContainer(pgContainer); err != nil {
		log.Errorf("failed to terminate container: %s", err)
	}
	os.Exit(code)
}

func setupTestRepository(t *testing.T) (context.Context, Repository) {
	ctx := context.Background()
	db := openDb()
	repository := NewRepository(db)
	t.Cleanup(func() {
		db.Close()
		err := pgContainer.Restore(ctx)
		require.NoError(t, err)
	})
	return ctx, repository
}

func at(day int, hour int) *time.Time {
	t := time.Date(2023, time.December, day, hour, 0, 0, 0, time.UTC)
	return &t
}

func storeAll(t *testing.T, ctx context.Context, repo Repository, letters ...Letter) []Letter {
	stored := make([]Letter, 0, len(letters))
	for _, l := range letters {
		s, err := repo.Store(ctx, l)
		require.NoError(t, err)
		stored = append(stored, s)
	}
	return stored
}

func TestRepositoryImpl_StoreAndGet(t *testing.T) {
	t.Run("should round trip an outgoing invitation", func(t *testing.T) {
		// given
		ctx, repo := setupTestRepository(t)
		letterDate := time.Date(2023, time.December, 1, 0, 0, 0, 0, time.UTC)

		// when
		stored, err := repo.Store(ctx, Letter{
			Type:          Outgoing,
			LetterNumber:  "005/OUT/XII/2023",
			Subject:       "Coordination meeting",
			Correspondent: "City council",
			LetterDate:    &letterDate,
			Note:          "RSVP by phone",
			IsInvitation:  true,
			EventDate:     at(16, 9),
			EventTime:     "09:00",
			EventLocation: "Room 2",
		})

		// then
		require.NoError(t, err)
		require.NotZero(t, stored.Id)
		fetched, err := repo.Get(ctx, Outgoing, stored.Id)
		require.NoError(t, err)
		assert.Equal(t, "RSVP by phone", fetched.Note)
		assert.Equal(t, "City council", fetched.Correspondent)
		assert.True(t, fetched.EventDate.Equal(*at(16, 9)))
		assert.False(t, fetched.CreatedAt.IsZero())
		assert.False(t, fetched.EventHandled)
	})

	t.Run("should keep incoming and outgoing registers apart", func(t *testing.T) {
		// given
		ctx, repo := setupTestRepository(t)
		in := storeAll(t, ctx, repo, Letter{Type: Incoming, LetterNumber: "1", Subject: "in"})[0]

		// when
		_, err := repo.Get(ctx, Outgoing, in.Id)

		// then
		assert.ErrorIs(t, err, ErrLetterNotFound)
	})
}

func TestRepositoryImpl_FindInvitations(t *testing.T) {
	// given
	ctx, repo := setupTestRepository(t)
	storeAll(t, ctx, repo,
		Letter{Type: Incoming, LetterNumber: "1", Subject: "late", IsInvitation: true, EventDate: at(20, 10)},
		Letter{Type: Incoming, LetterNumber: "2", Subject: "early", IsInvitation: true, EventDate: at(10, 10)},
		Letter{Type: Incoming, LetterNumber: "3", Subject: "edge", IsInvitation: true, EventDate: at(15, 0)},
		Letter{Type: Incoming, LetterNumber: "4", Subject: "not an invitation", EventDate: at(15, 12)},
		Letter{Type: Outgoing, LetterNumber: "5", Subject: "outgoing", IsInvitation: true, EventDate: at(15, 12)},
	)

	t.Run("should return every invitation when unbounded", func(t *testing.T) {
		found, err := repo.FindInvitations(ctx, Incoming, time.Time{}, time.Time{})

		require.NoError(t, err)
		require.Len(t, found, 3)
		assert.Equal(t, "early", found[0].Subject)
		assert.Equal(t, "edge", found[1].Subject)
		assert.Equal(t, "late", found[2].Subject)
	})

	t.Run("should treat both bounds as inclusive", func(t *testing.T) {
		found, err := repo.FindInvitations(ctx, Incoming, *at(15, 0), *at(20, 10))

		require.NoError(t, err)
		require.Len(t, found, 2)
		assert.Equal(t, "edge", found[0].Subject)
		assert.Equal(t, "late", found[1].Subject)
	})

	t.Run("should support an open end", func(t *testing.T) {
		found, err := repo.FindInvitations(ctx, Outgoing, *at(15, 0), time.Time{})

		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "", found[0].Note)
	})
}

func TestRepositoryImpl_FindOverdueInvitations(t *testing.T) {
	// given
	ctx, repo := setupTestRepository(t)
	stored := storeAll(t, ctx, repo,
		Letter{Type: Incoming, LetterNumber: "1", Subject: "past", IsInvitation: true, EventDate: at(1, 9)},
		Letter{Type: Incoming, LetterNumber: "2", Subject: "past handled", IsInvitation: true, EventDate: at(2, 9)},
		Letter{Type: Incoming, LetterNumber: "3", Subject: "future", IsInvitation: true, EventDate: at(30, 9)},
	)
	require.NoError(t, repo.MarkHandled(ctx, Incoming, stored[1].Id, true))

	// when
	found, err := repo.FindOverdueInvitations(ctx, Incoming, *at(15, 0))

	// then
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "past", found[0].Subject)
}

func TestRepositoryImpl_CountCreatedBetween(t *testing.T) {
	// given
	ctx, repo := setupTestRepository(t)
	storeAll(t, ctx, repo,
		Letter{Type: Outgoing, LetterNumber: "1", Subject: "a", CreatedAt: *at(8, 0)},
		Letter{Type: Outgoing, LetterNumber: "2", Subject: "b", CreatedAt: *at(10, 0)},
		Letter{Type: Outgoing, LetterNumber: "3", Subject: "c", CreatedAt: *at(15, 0)},
		Letter{Type: Outgoing, LetterNumber: "4", Subject: "d", CreatedAt: *at(16, 0)},
		Letter{Type: Incoming, LetterNumber: "5", Subject: "e", CreatedAt: *at(10, 0)},
	)

	// when
	count, err := repo.CountCreatedBetween(ctx, Outgoing, *at(8, 0), *at(15, 0))

	// then
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestRepositoryImpl_DeleteAndMarkHandled_NotFound(t *testing.T) {
	ctx, repo := setupTestRepository(t)

	assert.ErrorIs(t, repo.Delete(ctx, Incoming, 404), ErrLetterNotFound)
	assert.ErrorIs(t, repo.MarkHandled(ctx, Outgoing, 404, true), ErrLetterNotFound)
}

func TestRepositoryImpl_List(t *testing.T) {
	// given
	ctx, repo := setupTestRepository(t)
	storeAll(t, ctx, repo,
		Letter{Type: Incoming, LetterNumber: "1", Subject: "oldest", CreatedAt: *at(1, 0)},
		Letter{Type: Incoming, LetterNumber: "2", Subject: "middle", CreatedAt: *at(2, 0)},
		Letter{Type: Incoming, LetterNumber: "3", Subject: "newest", CreatedAt: *at(3, 0)},
	)

	// when
	page, err := repo.List(ctx, Incoming, 2, 1)

	// then
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "middle", page[0].Subject)
	assert.Equal(t, "oldest", page[1].Subject)
}

func TestRepositoryImpl_ListAll(t *testing.T) {
	// given
	ctx, repo := setupTestRepository(t)
	storeAll(t, ctx, repo,
		Letter{Type: Incoming, LetterNumber: "1", Subject: "oldest", CreatedAt: *at(1, 0)},
		Letter{Type: Incoming, LetterNumber: "2", Subject: "tie low id", CreatedAt: *at(2, 0)},
		Letter{Type: Incoming, LetterNumber: "3", Subject: "tie high id", CreatedAt: *at(2, 0)},
		Letter{Type: Outgoing, LetterNumber: "4", Subject: "other register", CreatedAt: *at(3, 0)},
	)

	// when
	all, err := repo.ListAll(ctx, Incoming)

	// then
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "tie high id", all[0].Subject)
	assert.Equal(t, "tie low id", all[1].Subject)
	assert.Equal(t, "oldest", all[2].Subject)
}

package letter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

type Repository interface {
	Store(ctx context.Context, letter Letter) (Letter, error)
	Get(ctx context.Context, letterType Type, id int) (Letter, error)
	List(ctx context.Context, letterType Type, limit int, offset int) ([]Letter, error)
	ListAll(ctx context.Context, letterType Type) ([]Letter, error)
	Delete(ctx context.Context, letterType Type, id int) error
	MarkHandled(ctx context.Context, letterType Type, id int, handled bool) error
	// FindInvitations returns invitation letters with an event date in [from, to].
	// A zero from or to leaves that side of the range open.
	FindInvitations(ctx context.Context, letterType Type, from, to time.Time) ([]Letter, error)
	// FindOverdueInvitations returns unhandled invitations whose event date is before the given time.
	FindOverdueInvitations(ctx context.Context, letterType Type, before time.Time) ([]Letter, error)
	// CountCreatedBetween counts letters with created_at in [from, to].
	CountCreatedBetween(ctx context.Context, letterType Type, from, to time.Time) (int, error)
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

func tableOf(letterType Type) (string, error) {
	switch letterType {
	case Incoming:
		return "incoming_letter", nil
	case Outgoing:
		return "outgoing_letter", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownType, letterType)
}

// selectColumns keeps the column order scanLetter expects. Incoming letters
// have no note column.
func selectColumns(letterType Type) string {
	note := "note"
	if letterType == Incoming {
		note = "''::text"
	}
	return `id, letter_number, subject, correspondent, letter_date, ` + note + `,
			is_invitation, event_date, event_time, event_location, event_handled, created_at`
}

func scanLetter(row pgx.Row, letterType Type) (Letter, error) {
	l := Letter{Type: letterType}
	err := row.Scan(
		&l.Id,
		&l.LetterNumber,
		&l.Subject,
		&l.Correspondent,
		&l.LetterDate,
		&l.Note,
		&l.IsInvitation,
		&l.EventDate,
		&l.EventTime,
		&l.EventLocation,
		&l.EventHandled,
		&l.CreatedAt,
	)
	return l, err
}

func (r *RepositoryImpl) queryLetters(ctx context.Context, letterType Type, query string, args ...any) ([]Letter, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		err := fmt.Errorf("could not query %s letters: %w", letterType, err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	letters := make([]Letter, 0, 10)
	for rows.Next() {
		l, err := scanLetter(rows, letterType)
		if err != nil {
			err := fmt.Errorf("could not scan row: %w", err)
			log.Error(err)
			return nil, err
		}
		letters = append(letters, l)
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating over rows: %w", err)
		log.Error(err)
		return nil, err
	}
	return letters, nil
}

func (r *RepositoryImpl) Store(ctx context.Context, letter Letter) (Letter, error) {
	table, err := tableOf(letter.Type)
	if err != nil {
		return Letter{}, err
	}

	columns := []string{"letter_number", "subject", "correspondent", "letter_date",
		"is_invitation", "event_date", "event_time", "event_location"}
	args := []any{letter.LetterNumber, letter.Subject, letter.Correspondent, letter.LetterDate,
		letter.IsInvitation, letter.EventDate, letter.EventTime, letter.EventLocation}
	if letter.Type == Outgoing {
		columns = append(columns, "note")
		args = append(args, letter.Note)
	}
	if !letter.CreatedAt.IsZero() {
		columns = append(columns, "created_at")
		args = append(args, letter.CreatedAt)
	}

	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) RETURNING %s`,
		table, strings.Join(columns, ", "), strings.Join(placeholders, ", "), selectColumns(letter.Type))

	stored, err := scanLetter(r.db.QueryRow(ctx, query, args...), letter.Type)
	if err != nil {
		err := fmt.Errorf("could not store %s letter: %w", letter.Type, err)
		log.Error(err)
		return Letter{}, err
	}
	return stored, nil
}

func (r *RepositoryImpl) Get(ctx context.Context, letterType Type, id int) (Letter, error) {
	table, err := tableOf(letterType)
	if err != nil {
		return Letter{}, err
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, selectColumns(letterType), table)

	l, err := scanLetter(r.db.QueryRow(ctx, query, id), letterType)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Letter{}, ErrLetterNotFound
		}
		err := fmt.Errorf("could not get %s letter %d: %w", letterType, id, err)
		log.Error(err)
		return Letter{}, err
	}
	return l, nil
}

func (r *RepositoryImpl) List(ctx context.Context, letterType Type, limit int, offset int) ([]Letter, error) {
	table, err := tableOf(letterType)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`,
		selectColumns(letterType), table)
	return r.queryLetters(ctx, letterType, query, limit, offset)
}

// ListAll returns the whole register in List order.
func (r *RepositoryImpl) ListAll(ctx context.Context, letterType Type) ([]Letter, error) {
	table, err := tableOf(letterType)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY created_at DESC, id DESC`, selectColumns(letterType), table)
	return r.queryLetters(ctx, letterType, query)
}

func (r *RepositoryImpl) Delete(ctx context.Context, letterType Type, id int) error {
	table, err := tableOf(letterType)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table), id)
	if err != nil {
		err := fmt.Errorf("could not delete %s letter %d: %w", letterType, id, err)
		log.Error(err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLetterNotFound
	}
	return nil
}

func (r *RepositoryImpl) MarkHandled(ctx context.Context, letterType Type, id int, handled bool) error {
	table, err := tableOf(letterType)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, fmt.Sprintf(`UPDATE %s SET event_handled = $1 WHERE id = $2`, table), handled, id)
	if err != nil {
		err := fmt.Errorf("could not update %s letter %d: %w", letterType, id, err)
		log.Error(err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLetterNotFound
	}
	return nil
}

func (r *RepositoryImpl) FindInvitations(ctx context.Context, letterType Type, from, to time.Time) ([]Letter, error) {
	table, err := tableOf(letterType)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE is_invitation AND event_date IS NOT NULL`, selectColumns(letterType), table)
	var args []any
	if !from.IsZero() {
		args = append(args, from)
		query += fmt.Sprintf(" AND event_date >= $%d", len(args))
	}
	if !to.IsZero() {
		args = append(args, to)
		query += fmt.Sprintf(" AND event_date <= $%d", len(args))
	}
	query += " ORDER BY event_date, id"

	return r.queryLetters(ctx, letterType, query, args...)
}

func (r *RepositoryImpl) FindOverdueInvitations(ctx context.Context, letterType Type, before time.Time) ([]Letter, error) {
	table, err := tableOf(letterType)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM %s
			WHERE is_invitation
			  AND event_date IS NOT NULL
			  AND event_date < $1
			  AND NOT event_handled
			ORDER BY event_date, id`, selectColumns(letterType), table)
	return r.queryLetters(ctx, letterType, query, before)
}

func (r *RepositoryImpl) CountCreatedBetween(ctx context.Context, letterType Type, from, to time.Time) (int, error) {
	table, err := tableOf(letterType)
	if err != nil {
		return 0, err
	}
	var count int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE created_at >= $1 AND created_at <= $2`, table)
	if err := r.db.QueryRow(ctx, query, from, to).Scan(&count); err != nil {
		err := fmt.Errorf("could not count %s letters: %w", letterType, err)
		log.Error(err)
		return 0, err
	}
	return count, nil
}

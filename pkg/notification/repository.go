package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

type Repository interface {
	Store(ctx context.Context, n Notification) (Notification, error)
	// List returns notifications newest first. limit <= 0 means no limit.
	List(ctx context.Context, onlyUnread bool, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, id int) error
	MarkAllRead(ctx context.Context) (int, error)
	Delete(ctx context.Context, id int) error
	CountUnread(ctx context.Context) (int, error)
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

const columns = `id, title, message, type, is_read, created_at`

func scanNotification(row pgx.Row) (Notification, error) {
	var n Notification
	err := row.Scan(&n.Id, &n.Title, &n.Message, &n.Type, &n.IsRead, &n.CreatedAt)
	return n, err
}

func (r *RepositoryImpl) Store(ctx context.Context, n Notification) (Notification, error) {
	query := `INSERT INTO notification (title, message, type, is_read, created_at)
			  VALUES ($1, $2, $3, $4, COALESCE($5, NOW()))
			  RETURNING ` + columns

	var createdAt any
	if !n.CreatedAt.IsZero() {
		createdAt = n.CreatedAt
	}
	stored, err := scanNotification(r.db.QueryRow(ctx, query, n.Title, n.Message, n.Type, n.IsRead, createdAt))
	if err != nil {
		err := fmt.Errorf("could not store notification: %w", err)
		log.Error(err)
		return Notification{}, err
	}
	return stored, nil
}

func (r *RepositoryImpl) List(ctx context.Context, onlyUnread bool, limit int) ([]Notification, error) {
	query := `SELECT ` + columns + ` FROM notification`
	if onlyUnread {
		query += ` WHERE NOT is_read`
	}
	query += ` ORDER BY created_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		err := fmt.Errorf("could not query notifications: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	result := make([]Notification, 0, 10)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			err := fmt.Errorf("could not scan row: %w", err)
			log.Error(err)
			return nil, err
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating over rows: %w", err)
		log.Error(err)
		return nil, err
	}
	return result, nil
}

func (r *RepositoryImpl) MarkRead(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx, `UPDATE notification SET is_read = TRUE WHERE id = $1`, id)
	if err != nil {
		err := fmt.Errorf("could not mark notification %d read: %w", id, err)
		log.Error(err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *RepositoryImpl) MarkAllRead(ctx context.Context) (int, error) {
	tag, err := r.db.Exec(ctx, `UPDATE notification SET is_read = TRUE WHERE NOT is_read`)
	if err != nil {
		err := fmt.Errorf("could not mark notifications read: %w", err)
		log.Error(err)
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *RepositoryImpl) Delete(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM notification WHERE id = $1`, id)
	if err != nil {
		err := fmt.Errorf("could not delete notification %d: %w", id, err)
		log.Error(err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *RepositoryImpl) CountUnread(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM notification WHERE NOT is_read`).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		err := fmt.Errorf("could not count unread notifications: %w", err)
		log.Error(err)
		return 0, err
	}
	return count, nil
}

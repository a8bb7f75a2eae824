package notification

import (
	"context"
	"fmt"

	"github.com/letterbox/letterbox/internal/event_bus"
	"github.com/letterbox/letterbox/internal/utils"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

type Service interface {
	Create(ctx context.Context, title string, message string, notificationType Type) (Notification, error)
	List(ctx context.Context, onlyUnread bool, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, id int) error
	MarkAllRead(ctx context.Context) (int, error)
	Delete(ctx context.Context, id int) error
	CountUnread(ctx context.Context) (int, error)
}

type ServiceImpl struct {
	repo     Repository
	eventBus *event_bus.EventBus
	clock    utils.Clock
}

func NewService(repo Repository, eventBus *event_bus.EventBus, clock utils.Clock) *ServiceImpl {
	return &ServiceImpl{repo: repo, eventBus: eventBus, clock: clock}
}

func (s *ServiceImpl) Create(ctx context.Context, title string, message string, notificationType Type) (Notification, error) {
	if title == "" {
		return Notification{}, fmt.Errorf("%w: title is required", ErrInvalidNotification)
	}
	if !notificationType.Valid() {
		return Notification{}, fmt.Errorf("%w: unknown type %q", ErrInvalidNotification, notificationType)
	}

	stored, err := s.repo.Store(ctx, Notification{
		Title:     title,
		Message:   message,
		Type:      notificationType,
		CreatedAt: s.clock.Now(),
	})
	if err != nil {
		return Notification{}, fmt.Errorf("failed to store notification: %w", err)
	}

	err = s.eventBus.Publish(event_bus.NewEvent(ctx, event_bus.NotificationCreatedType, event_bus.NotificationCreated{
		Id:        stored.Id,
		Title:     stored.Title,
		Type:      string(stored.Type),
		CreatedAt: stored.CreatedAt,
	}))
	if err != nil {
		log.Warnf("notification %d created but event not fully processed: %v", stored.Id, err)
	}
	return stored, nil
}

func (s *ServiceImpl) List(ctx context.Context, onlyUnread bool, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return s.repo.List(ctx, onlyUnread, limit)
}

func (s *ServiceImpl) MarkRead(ctx context.Context, id int) error {
	return s.repo.MarkRead(ctx, id)
}

func (s *ServiceImpl) MarkAllRead(ctx context.Context) (int, error) {
	updated, err := s.repo.MarkAllRead(ctx)
	if err != nil {
		return 0, err
	}
	log.Debugf("Marked %d notifications as read", updated)
	return updated, nil
}

func (s *ServiceImpl) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}

func (s *ServiceImpl) CountUnread(ctx context.Context) (int, error) {
	return s.repo.CountUnread(ctx)
}

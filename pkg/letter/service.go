package letter

import (
	"context"
	"fmt"

	"github.com/letterbox/letterbox/internal/event_bus"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type Service interface {
	Create(ctx context.Context, letter Letter) (Letter, error)
	Get(ctx context.Context, letterType Type, id int) (Letter, error)
	List(ctx context.Context, letterType Type, limit int, offset int) ([]Letter, error)
	ListAll(ctx context.Context, letterType Type) ([]Letter, error)
	Delete(ctx context.Context, letterType Type, id int) error
	SetHandled(ctx context.Context, letterType Type, id int, handled bool) error
}

type ServiceImpl struct {
	repo     Repository
	eventBus *event_bus.EventBus
}

func NewService(repo Repository, eventBus *event_bus.EventBus) *ServiceImpl {
	return &ServiceImpl{repo: repo, eventBus: eventBus}
}

func (s *ServiceImpl) Create(ctx context.Context, letter Letter) (Letter, error) {
	if err := letter.Validate(); err != nil {
		return Letter{}, err
	}
	if !letter.IsInvitation {
		letter.EventDate = nil
		letter.EventTime = ""
		letter.EventLocation = ""
	}
	stored, err := s.repo.Store(ctx, letter)
	if err != nil {
		return Letter{}, fmt.Errorf("failed to store letter: %w", err)
	}
	log.Debugf("Stored %s letter %d (%s)", stored.Type, stored.Id, stored.LetterNumber)
	return stored, nil
}

func (s *ServiceImpl) Get(ctx context.Context, letterType Type, id int) (Letter, error) {
	return s.repo.Get(ctx, letterType, id)
}

func (s *ServiceImpl) List(ctx context.Context, letterType Type, limit int, offset int) ([]Letter, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, letterType, limit, offset)
}

// ListAll returns the whole register without paging, for export.
func (s *ServiceImpl) ListAll(ctx context.Context, letterType Type) ([]Letter, error) {
	return s.repo.ListAll(ctx, letterType)
}

func (s *ServiceImpl) Delete(ctx context.Context, letterType Type, id int) error {
	return s.repo.Delete(ctx, letterType, id)
}

// SetHandled flags an invitation as dealt with so the overdue check skips it.
func (s *ServiceImpl) SetHandled(ctx context.Context, letterType Type, id int, handled bool) error {
	l, err := s.repo.Get(ctx, letterType, id)
	if err != nil {
		return err
	}
	if !l.IsInvitation {
		return fmt.Errorf("%w: letter %d is not an invitation", ErrInvalidLetter, id)
	}
	if err := s.repo.MarkHandled(ctx, letterType, id, handled); err != nil {
		return err
	}

	err = s.eventBus.Publish(event_bus.NewEvent(ctx, event_bus.LetterHandledType, event_bus.LetterHandled{
		LetterType: string(letterType),
		LetterId:   id,
		Handled:    handled,
	}))
	if err != nil {
		log.Warnf("letter handled event for %s letter %d not fully processed: %v", letterType, id, err)
	}
	return nil
}

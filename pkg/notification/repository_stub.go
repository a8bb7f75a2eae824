package notification

import (
	"context"
	"sort"
	"sync"
	"time"
)

// RepositoryStub is an in-memory Repository for service and job tests.
type RepositoryStub struct {
	mu            sync.Mutex
	notifications map[int]Notification
	nextId        int
	err           error
}

func NewRepositoryStub() *RepositoryStub {
	s := &RepositoryStub{}
	s.Reset()
	return s
}

func (s *RepositoryStub) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = make(map[int]Notification)
	s.nextId = 1
	s.err = nil
}

func (s *RepositoryStub) FailWith(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// All returns every stored notification in insertion order.
func (s *RepositoryStub) All() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		result = append(result, n)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Id < result[j].Id })
	return result
}

func (s *RepositoryStub) Store(ctx context.Context, n Notification) (Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return Notification{}, s.err
	}
	n.Id = s.nextId
	s.nextId++
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	s.notifications[n.Id] = n
	return n, nil
}

func (s *RepositoryStub) List(ctx context.Context, onlyUnread bool, limit int) ([]Notification, error) {
	s.mu.Lock()
	if s.err != nil {
		s.mu.Unlock()
		return nil, s.err
	}
	s.mu.Unlock()

	all := s.All()
	result := make([]Notification, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if onlyUnread && all[i].IsRead {
			continue
		}
		result = append(result, all[i])
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

func (s *RepositoryStub) MarkRead(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	n, ok := s.notifications[id]
	if !ok {
		return ErrNotificationNotFound
	}
	n.IsRead = true
	s.notifications[id] = n
	return nil
}

func (s *RepositoryStub) MarkAllRead(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	updated := 0
	for id, n := range s.notifications {
		if !n.IsRead {
			n.IsRead = true
			s.notifications[id] = n
			updated++
		}
	}
	return updated, nil
}

func (s *RepositoryStub) Delete(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if _, ok := s.notifications[id]; !ok {
		return ErrNotificationNotFound
	}
	delete(s.notifications, id)
	return nil
}

func (s *RepositoryStub) CountUnread(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	count := 0
	for _, n := range s.notifications {
		if !n.IsRead {
			count++
		}
	}
	return count, nil
}

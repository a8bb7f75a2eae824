package letter

import (
	"context"
	"sort"
	"sync"
	"time"
)

// RepositoryStub is an in-memory Repository for service tests.
type RepositoryStub struct {
	mu      sync.RWMutex
	letters map[Type]map[int]Letter
	nextId  map[Type]int
	err     error
	now     func() time.Time
}

func NewRepositoryStub() *RepositoryStub {
	s := &RepositoryStub{now: time.Now}
	s.Reset()
	return s
}

func (s *RepositoryStub) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.letters = map[Type]map[int]Letter{Incoming: {}, Outgoing: {}}
	s.nextId = map[Type]int{Incoming: 1, Outgoing: 1}
	s.err = nil
}

// FailWith makes every following call return err until Reset or FailWith(nil).
func (s *RepositoryStub) FailWith(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *RepositoryStub) Store(ctx context.Context, letter Letter) (Letter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return Letter{}, s.err
	}
	if _, err := tableOf(letter.Type); err != nil {
		return Letter{}, err
	}
	letter.Id = s.nextId[letter.Type]
	s.nextId[letter.Type]++
	if letter.CreatedAt.IsZero() {
		letter.CreatedAt = s.now()
	}
	s.letters[letter.Type][letter.Id] = letter
	return letter, nil
}

func (s *RepositoryStub) Get(ctx context.Context, letterType Type, id int) (Letter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return Letter{}, s.err
	}
	l, ok := s.letters[letterType][id]
	if !ok {
		return Letter{}, ErrLetterNotFound
	}
	return l, nil
}

func (s *RepositoryStub) List(ctx context.Context, letterType Type, limit int, offset int) ([]Letter, error) {
	all, err := s.ListAll(ctx, letterType)
	if err != nil {
		return nil, err
	}
	if offset >= len(all) {
		return []Letter{}, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (s *RepositoryStub) ListAll(ctx context.Context, letterType Type) ([]Letter, error) {
	all, err := s.filter(letterType, func(Letter) bool { return true })
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].Id > all[j].Id
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return all, nil
}

func (s *RepositoryStub) Delete(ctx context.Context, letterType Type, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if _, ok := s.letters[letterType][id]; !ok {
		return ErrLetterNotFound
	}
	delete(s.letters[letterType], id)
	return nil
}

func (s *RepositoryStub) MarkHandled(ctx context.Context, letterType Type, id int, handled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	l, ok := s.letters[letterType][id]
	if !ok {
		return ErrLetterNotFound
	}
	l.EventHandled = handled
	s.letters[letterType][id] = l
	return nil
}

func (s *RepositoryStub) FindInvitations(ctx context.Context, letterType Type, from, to time.Time) ([]Letter, error) {
	found, err := s.filter(letterType, func(l Letter) bool {
		if !l.IsInvitation || l.EventDate == nil {
			return false
		}
		if !from.IsZero() && l.EventDate.Before(from) {
			return false
		}
		if !to.IsZero() && l.EventDate.After(to) {
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	sortByEventDate(found)
	return found, nil
}

func (s *RepositoryStub) FindOverdueInvitations(ctx context.Context, letterType Type, before time.Time) ([]Letter, error) {
	found, err := s.filter(letterType, func(l Letter) bool {
		return l.IsInvitation && l.EventDate != nil && l.EventDate.Before(before) && !l.EventHandled
	})
	if err != nil {
		return nil, err
	}
	sortByEventDate(found)
	return found, nil
}

func (s *RepositoryStub) CountCreatedBetween(ctx context.Context, letterType Type, from, to time.Time) (int, error) {
	found, err := s.filter(letterType, func(l Letter) bool {
		return !l.CreatedAt.Before(from) && !l.CreatedAt.After(to)
	})
	if err != nil {
		return 0, err
	}
	return len(found), nil
}

func (s *RepositoryStub) filter(letterType Type, keep func(Letter) bool) ([]Letter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}
	if _, err := tableOf(letterType); err != nil {
		return nil, err
	}
	result := make([]Letter, 0, len(s.letters[letterType]))
	for _, l := range s.letters[letterType] {
		if keep(l) {
			result = append(result, l)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Id < result[j].Id })
	return result, nil
}

func sortByEventDate(letters []Letter) {
	sort.SliceStable(letters, func(i, j int) bool {
		return letters[i].EventDate.Before(*letters[j].EventDate)
	})
}

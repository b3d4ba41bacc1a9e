package auth

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store. Session mutations for one principal
// are serialized on that principal's mutex.
type MemoryStore struct {
	mu          sync.RWMutex
	principals  map[string]*Principal
	byEmail     map[string]string
	locks       sync.Map
	maxSessions int
	now         func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store holding at most maxSessions
// sessions per principal.
func NewMemoryStore(maxSessions int) *MemoryStore {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	return &MemoryStore{
		principals:  make(map[string]*Principal),
		byEmail:     make(map[string]string),
		maxSessions: maxSessions,
		now:         time.Now,
	}
}

func (s *MemoryStore) lockFor(id string) *sync.Mutex {
	l, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	return l.(*sync.Mutex)
}

func (s *MemoryStore) Create(_ context.Context, principal *Principal) (*Principal, error) {
	if principal == nil || principal.ID == "" {
		return nil, NewValidationError("principal id is required", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	email := NormalizeEmail(principal.Email)
	if _, ok := s.byEmail[email]; ok {
		return nil, NewDuplicateAccountError()
	}
	if _, ok := s.principals[principal.ID]; ok {
		return nil, NewDuplicateAccountError()
	}

	now := s.now()
	stored := principal.Clone()
	stored.Email = email
	stored.Sessions = nil
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	s.principals[stored.ID] = stored
	s.byEmail[email] = stored.ID

	return stored.Clone(), nil
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (*Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.principals[id]
	if !ok {
		return nil, ErrPrincipalNotFound
	}
	return p.Clone(), nil
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, ErrPrincipalNotFound
	}
	return s.principals[id].Clone(), nil
}

func (s *MemoryStore) MarkEmailVerified(_ context.Context, id string) (bool, error) {
	var changed bool
	err := s.update(id, func(p *Principal) error {
		if p.EmailVerified {
			return nil
		}
		p.EmailVerified = true
		changed = true
		return nil
	})
	return changed, err
}

func (s *MemoryStore) TrackLogin(_ context.Context, id string, at time.Time) error {
	return s.update(id, func(p *Principal) error {
		at := at
		p.LastLoginAt = &at
		return nil
	})
}

func (s *MemoryStore) ReplacePassword(_ context.Context, id, passwordHash string) ([]SessionEntry, error) {
	var cleared []SessionEntry
	err := s.update(id, func(p *Principal) error {
		p.PasswordHash = passwordHash
		cleared = p.Sessions
		p.Sessions = nil
		return nil
	})
	return cleared, err
}

func (s *MemoryStore) AddSession(_ context.Context, principalID string, entry SessionEntry) ([]SessionEntry, error) {
	var evicted []SessionEntry
	err := s.update(principalID, func(p *Principal) error {
		p.Sessions, evicted = appendSession(p.Sessions, entry, s.maxSessions)
		return nil
	})
	return evicted, err
}

func (s *MemoryStore) RemoveSession(_ context.Context, principalID, tokenHash string) (bool, error) {
	var found bool
	err := s.update(principalID, func(p *Principal) error {
		p.Sessions, _, found = removeSession(p.Sessions, tokenHash)
		return nil
	})
	return found, err
}

func (s *MemoryStore) RotateSession(_ context.Context, principalID, oldHash string, next SessionEntry) ([]SessionEntry, error) {
	var evicted []SessionEntry
	err := s.update(principalID, func(p *Principal) error {
		sessions, ev, err := rotateSession(p.Sessions, oldHash, next, s.maxSessions, s.now())
		if err != nil {
			return err
		}
		p.Sessions, evicted = sessions, ev
		return nil
	})
	return evicted, err
}

func (s *MemoryStore) ClearSessions(_ context.Context, principalID string) ([]SessionEntry, error) {
	var cleared []SessionEntry
	err := s.update(principalID, func(p *Principal) error {
		cleared = p.Sessions
		p.Sessions = nil
		return nil
	})
	return cleared, err
}

func (s *MemoryStore) ListSessions(_ context.Context, principalID string) ([]SessionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.principals[principalID]
	if !ok {
		return nil, ErrPrincipalNotFound
	}
	return append([]SessionEntry(nil), p.Sessions...), nil
}

// update runs fn on a copy of the principal under the principal lock and
// publishes the copy only when fn succeeds.
func (s *MemoryStore) update(id string, fn func(p *Principal) error) error {
	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()

	s.mu.RLock()
	current, ok := s.principals[id]
	s.mu.RUnlock()
	if !ok {
		return ErrPrincipalNotFound
	}

	next := current.Clone()
	if err := fn(next); err != nil {
		return err
	}
	next.UpdatedAt = s.now()

	s.mu.Lock()
	s.principals[id] = next
	s.mu.Unlock()
	return nil
}

package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"storysmith.app/refinery/internal/model"
)

// memorySessionStore is the development and test fallback when no database
// is configured. Snapshots are deep-copied through JSON on the way in and
// out so callers can never alias stored state.
type memorySessionStore struct {
	mu       sync.RWMutex
	sessions map[int64]model.Session
}

func NewMemorySessionStore() SessionStore {
	return &memorySessionStore{sessions: make(map[int64]model.Session)}
}

func (s *memorySessionStore) Save(_ context.Context, snapshot model.Session) error {
	cp, err := copySession(snapshot)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[snapshot.ID] = cp
	return nil
}

func (s *memorySessionStore) Get(_ context.Context, id int64) (*model.Session, error) {
	s.mu.RLock()
	snapshot, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	cp, err := copySession(snapshot)
	if err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *memorySessionStore) List(_ context.Context) ([]model.Session, error) {
	s.mu.RLock()
	sessions := make([]model.Session, 0, len(s.sessions))
	for _, snapshot := range s.sessions {
		cp, err := copySession(snapshot)
		if err != nil {
			s.mu.RUnlock()
			return nil, err
		}
		sessions = append(sessions, cp)
	}
	s.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

func (s *memorySessionStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

func copySession(snapshot model.Session) (model.Session, error) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return model.Session{}, err
	}
	var cp model.Session
	if err := json.Unmarshal(payload, &cp); err != nil {
		return model.Session{}, err
	}
	return cp, nil
}

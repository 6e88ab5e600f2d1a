// Package store persists review sessions as whole snapshots. The session is
// the aggregate; it is saved on request after every mutating operation and
// loaded back in one piece, so the store needs no per-entity queries.
package store

import (
	"context"
	"errors"

	"storysmith.app/refinery/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// SessionStore defines the contract for session snapshot access
type SessionStore interface {
	Save(ctx context.Context, snapshot model.Session) error
	Get(ctx context.Context, id int64) (*model.Session, error)
	List(ctx context.Context) ([]model.Session, error)
	Delete(ctx context.Context, id int64) error
}

// Stores bundles the store implementations behind one factory, selected at
// startup: postgres when a database is configured, in-memory otherwise.
type Stores struct {
	sessions SessionStore
}

func NewStores(sessions SessionStore) *Stores {
	return &Stores{sessions: sessions}
}

func (s *Stores) Sessions() SessionStore {
	return s.sessions
}

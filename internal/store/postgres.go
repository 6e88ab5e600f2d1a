package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"storysmith.app/refinery/core/db"
	"storysmith.app/refinery/internal/model"
)

// postgresSessionStore keeps one JSONB snapshot row per session. Snapshots
// are replaced wholesale on save; the append-only guarantees live in the
// session layer, not in the schema.
type postgresSessionStore struct {
	db *db.DB
}

func NewPostgresSessionStore(database *db.DB) SessionStore {
	return &postgresSessionStore{db: database}
}

func (s *postgresSessionStore) Save(ctx context.Context, snapshot model.Session) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshaling session snapshot: %w", err)
	}

	_, err = s.db.Pool().Exec(ctx, `
		INSERT INTO sessions (id, snapshot, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET snapshot = $2, updated_at = $4`,
		snapshot.ID, payload, snapshot.CreatedAt, snapshot.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving session %d: %w", snapshot.ID, err)
	}
	return nil
}

func (s *postgresSessionStore) Get(ctx context.Context, id int64) (*model.Session, error) {
	var payload []byte
	err := s.db.Pool().QueryRow(ctx,
		`SELECT snapshot FROM sessions WHERE id = $1`, id,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading session %d: %w", id, err)
	}

	var snapshot model.Session
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshaling session %d: %w", id, err)
	}
	return &snapshot, nil
}

func (s *postgresSessionStore) List(ctx context.Context) ([]model.Session, error) {
	rows, err := s.db.Pool().Query(ctx,
		`SELECT snapshot FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		var snapshot model.Session
		if err := json.Unmarshal(payload, &snapshot); err != nil {
			return nil, fmt.Errorf("unmarshaling session row: %w", err)
		}
		sessions = append(sessions, snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return sessions, nil
}

func (s *postgresSessionStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.db.Pool().Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting session %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/karimsalem/askbridge/internal/db"
	"github.com/karimsalem/askbridge/internal/registry"
)

// Store persists conversation sessions and their turn logs. The
// orchestrator reads only a rolling window of recent turns; the full log
// stays in the database for the UI.
type Store struct {
	db *db.DB
}

// NewStore creates a session store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// CreateSession creates a new session and returns it.
func (s *Store) CreateSession(ctx context.Context, userID string) (*Session, error) {
	if userID == "" {
		userID = "anonymous"
	}
	sess := Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		sess.ID, sess.UserID, sess.CreatedAt, sess.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting session: %w", err)
	}
	return &sess, nil
}

// GetSession retrieves a session by id. Returns nil if it does not exist.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	var sess Session
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, updated_at FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.UserID, &sess.CreatedAt, &sess.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	return &sess, nil
}

// AppendTurn appends a turn to the session log, creating the session row
// if the caller supplied an id the store has not seen yet.
func (s *Store) AppendTurn(ctx context.Context, t Turn) (*Turn, error) {
	if t.SessionID == "" {
		return nil, fmt.Errorf("appending turn: session id is required")
	}
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now().UTC()
	}

	systems, err := json.Marshal(systemStrings(t.SystemsUsed))
	if err != nil {
		return nil, fmt.Errorf("marshalling systems: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, created_at, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
		t.SessionID, t.Timestamp, t.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("upserting session: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO turns (id, session_id, text, is_user, systems_used, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.SessionID, t.Text, boolToInt(t.IsUser), string(systems), t.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting turn: %w", err)
	}
	return &t, nil
}

// Window returns the most recent n turns of the session, oldest first.
// This is the only view of history the router and synthesizer ever see.
func (s *Store) Window(ctx context.Context, sessionID string, n int) ([]Turn, error) {
	if n <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, text, is_user, systems_used, created_at
		 FROM turns WHERE session_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`,
		sessionID, n,
	)
	if err != nil {
		return nil, fmt.Errorf("querying turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		var isUser int
		var systems string
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Text, &isUser, &systems, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		t.IsUser = isUser != 0
		t.SystemsUsed = parseSystems(systems)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating turns: %w", err)
	}

	// Reverse into chronological order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// Trim returns the last n entries of an in-memory history, oldest first.
// Used when the caller supplies conversation_history explicitly instead of
// relying on the store.
func Trim(history []Turn, n int) []Turn {
	if n <= 0 || len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

func systemStrings(ids []registry.SystemID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func parseSystems(raw string) []registry.SystemID {
	var strs []string
	if err := json.Unmarshal([]byte(raw), &strs); err != nil || len(strs) == 0 {
		return nil
	}
	ids := make([]registry.SystemID, len(strs))
	for i, s := range strs {
		ids[i] = registry.SystemID(s)
	}
	return ids
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

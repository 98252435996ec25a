package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/karimsalem/askbridge/internal/db"
	"github.com/karimsalem/askbridge/internal/registry"
)

// Store persists query audit entries.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Log inserts a new audit entry. If entry.ID is empty a UUID is generated.
func (s *Store) Log(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	routed, err := marshalIDs(entry.Routed)
	if err != nil {
		return err
	}
	used, err := marshalIDs(entry.SystemsUsed)
	if err != nil {
		return err
	}
	failed, err := marshalIDs(entry.SystemsFailed)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO query_audit (
			id, session_id, query, routed, systems_used, systems_failed,
			forced, degraded, duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.SessionID,
		entry.Query,
		routed,
		used,
		failed,
		boolToInt(entry.Forced),
		boolToInt(entry.Degraded),
		entry.Duration.Milliseconds(),
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}
	return nil
}

// Recent returns the most recent n entries, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		n = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, query, routed, systems_used, systems_failed,
		       forced, degraded, duration_ms, created_at
		FROM query_audit ORDER BY created_at DESC, id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("querying audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var routed, used, failed string
		var forced, degraded int
		var durationMS int64
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Query, &routed, &used, &failed,
			&forced, &degraded, &durationMS, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		e.Routed = unmarshalIDs(routed)
		e.SystemsUsed = unmarshalIDs(used)
		e.SystemsFailed = unmarshalIDs(failed)
		e.Forced = forced != 0
		e.Degraded = degraded != 0
		e.Duration = time.Duration(durationMS) * time.Millisecond
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// FailureCounts returns how many times each system failed across the
// recorded history.
func (s *Store) FailureCounts(ctx context.Context) (map[registry.SystemID]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT systems_failed FROM query_audit WHERE systems_failed != '[]'`)
	if err != nil {
		return nil, fmt.Errorf("querying failures: %w", err)
	}
	defer rows.Close()

	counts := make(map[registry.SystemID]int)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scanning failures: %w", err)
		}
		for _, id := range unmarshalIDs(raw) {
			counts[id]++
		}
	}
	return counts, rows.Err()
}

func marshalIDs(ids []registry.SystemID) (string, error) {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = string(id)
	}
	raw, err := json.Marshal(strs)
	if err != nil {
		return "", fmt.Errorf("marshalling system ids: %w", err)
	}
	return string(raw), nil
}

func unmarshalIDs(raw string) []registry.SystemID {
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

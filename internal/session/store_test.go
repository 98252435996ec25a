package session

import (
	"context"
	"testing"
	"time"

	"github.com/karimsalem/askbridge/internal/db"
	"github.com/karimsalem/askbridge/internal/registry"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func TestCreateAndGetSession(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, "alice")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if sess.ID == "" {
		t.Fatal("session id is empty")
	}

	got, err := store.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got == nil {
		t.Fatal("GetSession returned nil")
	}
	if got.UserID != "alice" {
		t.Errorf("UserID = %q, want alice", got.UserID)
	}
}

func TestGetSessionMissingReturnsNil(t *testing.T) {
	store := setupStore(t)

	got, err := store.GetSession(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got != nil {
		t.Fatalf("got %+v, want nil", got)
	}
}

func TestAppendTurnCreatesSessionImplicitly(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	turn, err := store.AppendTurn(ctx, Turn{
		SessionID: "client-chosen-id",
		Text:      "what changed in the auth service?",
		IsUser:    true,
	})
	if err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}
	if turn.ID == "" {
		t.Error("turn id was not assigned")
	}

	sess, err := store.GetSession(ctx, "client-chosen-id")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if sess == nil {
		t.Fatal("session row was not created")
	}
}

func TestAppendTurnRequiresSessionID(t *testing.T) {
	store := setupStore(t)

	if _, err := store.AppendTurn(context.Background(), Turn{Text: "hi"}); err == nil {
		t.Fatal("AppendTurn without session id should fail")
	}
}

func TestWindowReturnsRecentTurnsChronologically(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	base := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	texts := []string{"first", "second", "third", "fourth"}
	for i, text := range texts {
		_, err := store.AppendTurn(ctx, Turn{
			SessionID: "s1",
			Text:      text,
			IsUser:    i%2 == 0,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("AppendTurn(%s): %v", text, err)
		}
	}

	turns, err := store.Window(ctx, "s1", 3)
	if err != nil {
		t.Fatalf("Window: %v", err)
	}
	if len(turns) != 3 {
		t.Fatalf("len = %d, want 3", len(turns))
	}
	for i, want := range []string{"second", "third", "fourth"} {
		if turns[i].Text != want {
			t.Errorf("turns[%d].Text = %q, want %q", i, turns[i].Text, want)
		}
	}
}

func TestWindowRoundTripsSystemsUsed(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	_, err := store.AppendTurn(ctx, Turn{
		SessionID:   "s2",
		Text:        "answer",
		SystemsUsed: []registry.SystemID{registry.SystemJira, registry.SystemConfluence},
	})
	if err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}

	turns, err := store.Window(ctx, "s2", 5)
	if err != nil {
		t.Fatalf("Window: %v", err)
	}
	if len(turns) != 1 {
		t.Fatalf("len = %d, want 1", len(turns))
	}
	used := turns[0].SystemsUsed
	if len(used) != 2 || used[0] != registry.SystemJira || used[1] != registry.SystemConfluence {
		t.Errorf("SystemsUsed = %v", used)
	}
}

func TestWindowZeroIsEmpty(t *testing.T) {
	store := setupStore(t)

	turns, err := store.Window(context.Background(), "s1", 0)
	if err != nil {
		t.Fatalf("Window: %v", err)
	}
	if turns != nil {
		t.Fatalf("turns = %v, want nil", turns)
	}
}

func TestTrim(t *testing.T) {
	history := []Turn{{Text: "a"}, {Text: "b"}, {Text: "c"}}

	got := Trim(history, 2)
	if len(got) != 2 || got[0].Text != "b" || got[1].Text != "c" {
		t.Fatalf("Trim = %+v", got)
	}

	if got := Trim(history, 10); len(got) != 3 {
		t.Fatalf("Trim beyond length = %d entries, want 3", len(got))
	}
}

package persistence

import (
	"context"
	"testing"

	"github.com/ngoclaw/agentcore/internal/eventlog"
	"github.com/ngoclaw/agentcore/internal/session"
)

func newTestDB(t *testing.T) *SessionStore {
	t.Helper()
	db, err := OpenDB(":memory:")
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	return NewSessionStore(db)
}

func TestSaveAndLoadRoundTrips(t *testing.T) {
	store := newTestDB(t)
	ctx := context.Background()

	snap := eventlog.Snapshot{
		SessionID: "s1",
		Messages:  []*session.Message{session.NewUserMessage("u1", "hi", nil)},
		Depth:     0,
	}
	if err := store.Save(ctx, snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded == nil || len(loaded.Messages) != 1 || loaded.Messages[0].Text != "hi" {
		t.Fatalf("unexpected loaded snapshot: %+v", loaded)
	}
}

func TestLoadMissingReturnsNil(t *testing.T) {
	store := newTestDB(t)
	loaded, err := store.Load(context.Background(), "absent")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded != nil {
		t.Fatalf("expected nil for missing session, got %+v", loaded)
	}
}

func TestSaveUpsertsAndListOrdersByRecency(t *testing.T) {
	store := newTestDB(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		if err := store.Save(ctx, eventlog.Snapshot{SessionID: id}); err != nil {
			t.Fatalf("Save %s: %v", id, err)
		}
	}
	// Re-save "a" so it becomes the most recently updated.
	if err := store.Save(ctx, eventlog.Snapshot{SessionID: "a", Messages: []*session.Message{session.NewUserMessage("u1", "x", nil)}}); err != nil {
		t.Fatalf("re-save a: %v", err)
	}

	ids, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ids) != 2 || ids[0] != "a" {
		t.Fatalf("expected [a b], got %v", ids)
	}

	loaded, err := store.Load(ctx, "a")
	if err != nil || loaded == nil || len(loaded.Messages) != 1 {
		t.Fatalf("expected upsert to replace message list, got %+v, %v", loaded, err)
	}
}

func TestDeleteRemovesRecord(t *testing.T) {
	store := newTestDB(t)
	ctx := context.Background()
	if err := store.Save(ctx, eventlog.Snapshot{SessionID: "s1"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	loaded, err := store.Load(ctx, "s1")
	if err != nil || loaded != nil {
		t.Fatalf("expected nil after delete, got %+v, %v", loaded, err)
	}
}

package eventlog

import (
	"os"
	"testing"

	"github.com/ngoclaw/agentcore/internal/agent"
	"github.com/ngoclaw/agentcore/internal/session"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir, err := os.MkdirTemp("", "eventlog-test")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	s, err := NewStore(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestRejectsUnsafeSessionID(t *testing.T) {
	s := newTestStore(t)
	if err := s.AppendEvent("../escape", agent.TokenEvent("x")); err == nil {
		t.Fatal("expected error for path-traversal session id")
	}
	if err := s.AppendEvent("a/b", agent.TokenEvent("x")); err == nil {
		t.Fatal("expected error for session id containing a separator")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := newTestStore(t)
	msgs := []*session.Message{session.NewUserMessage("m1", "hi", nil)}
	snap := Snapshot{SessionID: "s1", Messages: msgs}
	if err := s.WriteSnapshot(snap); err != nil {
		t.Fatal(err)
	}
	got, err := s.ReadSnapshot("s1")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got.Messages) != 1 || got.Messages[0].Text != "hi" {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
}

func TestReplayEventsSkipsMalformedLines(t *testing.T) {
	s := newTestStore(t)
	if err := s.AppendEvent("s1", agent.TokenEvent("a")); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendEvent("s1", agent.TokenEvent("b")); err != nil {
		t.Fatal(err)
	}
	s.Close()

	f, err := os.OpenFile(s.logPath("s1"), os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("{not json\n")
	f.Close()

	events, err := s.ReplayEvents("s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 well-formed events, got %d", len(events))
	}
	if events[0].Content != "a" || events[1].Content != "b" {
		t.Fatalf("unexpected replay order: %+v", events)
	}
}

func TestReplayNonexistentSessionReturnsEmpty(t *testing.T) {
	s := newTestStore(t)
	events, err := s.ReplayEvents("never-existed")
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
}

package session

import (
	"testing"
)

func TestAppendMessageGrowsHistoryInOrder(t *testing.T) {
	s := New("s1")
	s.AppendMessage(NewUserMessage("m1", "hi", nil))
	s.AppendMessage(NewAssistantMessage("m2", "hello", nil))
	msgs := s.Messages()
	if len(msgs) != 2 || msgs[0].ID != "m1" || msgs[1].ID != "m2" {
		t.Fatalf("unexpected message order: %+v", msgs)
	}
}

func TestLastNClampsToHistoryLength(t *testing.T) {
	s := New("s1")
	s.AppendMessage(NewUserMessage("m1", "a", nil))
	s.AppendMessage(NewUserMessage("m2", "b", nil))
	if got := s.LastN(10); len(got) != 2 {
		t.Errorf("expected all 2 messages when n exceeds length, got %d", len(got))
	}
	if got := s.LastN(1); len(got) != 1 || got[0].ID != "m2" {
		t.Errorf("expected last message only, got %+v", got)
	}
}

func TestNewSubSessionTracksParentAndDepth(t *testing.T) {
	parent := New("parent")
	child := NewSubSession("child", parent)
	if child.ParentID() != "parent" {
		t.Errorf("expected parent ID to be set, got %q", child.ParentID())
	}
	if child.Depth() != 1 {
		t.Errorf("expected depth 1, got %d", child.Depth())
	}
}

func TestForkSharesPrefixAndDivergesAfter(t *testing.T) {
	s := New("s1")
	s.AppendMessage(NewUserMessage("m1", "a", nil))
	s.AppendMessage(NewUserMessage("m2", "b", nil))

	fork, err := s.Fork("fork1", "m1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fork.Len() != 1 {
		t.Fatalf("expected fork to include only the prefix up to m1, got %d messages", fork.Len())
	}

	fork.AppendMessage(NewUserMessage("m3", "c", nil))
	if s.Len() != 2 {
		t.Errorf("expected original session untouched by fork append, got %d messages", s.Len())
	}
}

func TestForkFailsWhenForkPointMissing(t *testing.T) {
	s := New("s1")
	s.AppendMessage(NewUserMessage("m1", "a", nil))
	if _, err := s.Fork("fork1", "ghost"); err == nil {
		t.Fatal("expected error for a nonexistent fork point")
	}
}

func TestReplaceTailFromTruncatesAtID(t *testing.T) {
	s := New("s1")
	s.AppendMessage(NewUserMessage("m1", "a", nil))
	s.AppendMessage(NewUserMessage("m2", "b", nil))
	s.AppendMessage(NewUserMessage("m3", "c", nil))

	if err := s.ReplaceTailFrom("m2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected only m1 to remain, got %d messages", s.Len())
	}
}

func TestReplaceTailFromFailsWhenIDMissing(t *testing.T) {
	s := New("s1")
	s.AppendMessage(NewUserMessage("m1", "a", nil))
	if err := s.ReplaceTailFrom("ghost"); err == nil {
		t.Fatal("expected error for a nonexistent replace point")
	}
}

func TestValidateNoOrphanToolResultsAcceptsMatchedCall(t *testing.T) {
	s := New("s1")
	s.AppendMessage(NewAssistantMessage("m1", "", []ToolCall{{ID: "call1", Name: "read_file"}}))
	s.AppendMessage(NewToolResultMessage("m2", "call1", "ok", true))
	if err := s.ValidateNoOrphanToolResults(); err != nil {
		t.Errorf("unexpected error for a matched tool result: %v", err)
	}
}

func TestValidateNoOrphanToolResultsRejectsUnmatchedCall(t *testing.T) {
	s := New("s1")
	s.AppendMessage(NewToolResultMessage("m1", "ghost-call", "ok", true))
	if err := s.ValidateNoOrphanToolResults(); err == nil {
		t.Error("expected error for an orphan tool result")
	}
}

func TestHasToolCallsOnlyTrueForAssistantWithCalls(t *testing.T) {
	withCalls := NewAssistantMessage("m1", "", []ToolCall{{ID: "c1", Name: "read_file"}})
	if !withCalls.HasToolCalls() {
		t.Error("expected HasToolCalls true for assistant message with tool calls")
	}
	noCalls := NewAssistantMessage("m2", "hi", nil)
	if noCalls.HasToolCalls() {
		t.Error("expected HasToolCalls false for assistant message without tool calls")
	}
	user := NewUserMessage("m3", "hi", nil)
	if user.HasToolCalls() {
		t.Error("expected HasToolCalls false for a user message")
	}
}

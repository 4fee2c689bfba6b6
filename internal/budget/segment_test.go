package budget

import (
	"testing"

	"github.com/ngoclaw/agentcore/internal/session"
)

// === Segment ===

func TestSegment_UserAndTextOnlyAssistant(t *testing.T) {
	msgs := []*session.Message{
		session.NewUserMessage("u1", "hello", nil),
		session.NewAssistantMessage("a1", "hi there", nil),
	}
	cycles := Segment(msgs)
	if len(cycles) != 2 {
		t.Fatalf("expected 2 cycles, got %d", len(cycles))
	}
	for i, c := range cycles {
		if !c.Complete {
			t.Errorf("cycle %d should be complete", i)
		}
		if len(c.Messages) != 1 {
			t.Errorf("cycle %d should have exactly 1 message, got %d", i, len(c.Messages))
		}
	}
}

func TestSegment_CompleteToolCycleWithConcludingText(t *testing.T) {
	msgs := []*session.Message{
		session.NewUserMessage("u1", "read the file", nil),
		session.NewAssistantMessage("a1", "", []session.ToolCall{{ID: "c1", Name: "read_file", Arguments: `{"path":"x"}`}}),
		session.NewToolResultMessage("t1", "c1", "file contents", true),
		session.NewAssistantMessage("a2", "done, here's what I found", nil),
	}
	cycles := Segment(msgs)
	if len(cycles) != 2 {
		t.Fatalf("expected 2 cycles (user, tool-turn), got %d", len(cycles))
	}
	toolCycle := cycles[1]
	if !toolCycle.Complete {
		t.Error("expected tool cycle to be complete")
	}
	if len(toolCycle.Messages) != 3 {
		t.Errorf("expected assistant+tool+concluding-assistant grouped into one cycle, got %d messages", len(toolCycle.Messages))
	}
}

func TestSegment_IncompleteCycleMissingToolResult(t *testing.T) {
	msgs := []*session.Message{
		session.NewAssistantMessage("a1", "", []session.ToolCall{
			{ID: "c1", Name: "read_file", Arguments: "{}"},
			{ID: "c2", Name: "write_file", Arguments: "{}"},
		}),
		session.NewToolResultMessage("t1", "c1", "ok", true),
	}
	cycles := Segment(msgs)
	if len(cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d", len(cycles))
	}
	if cycles[0].Complete {
		t.Error("cycle missing a tool result should be incomplete")
	}
	if len(cycles[0].Messages) != 2 {
		t.Errorf("expected both assistant and the one present tool result in the cycle, got %d", len(cycles[0].Messages))
	}
}

func TestSegment_OrphanToolResultIsItsOwnIncompleteCycle(t *testing.T) {
	msgs := []*session.Message{
		session.NewToolResultMessage("t1", "dangling", "result", true),
	}
	cycles := Segment(msgs)
	if len(cycles) != 1 || cycles[0].Complete {
		t.Fatalf("expected 1 incomplete cycle for orphan tool result, got %+v", cycles)
	}
}

func TestFlatten_PreservesOrder(t *testing.T) {
	msgs := []*session.Message{
		session.NewUserMessage("u1", "a", nil),
		session.NewAssistantMessage("a1", "b", nil),
	}
	cycles := Segment(msgs)
	flat := Flatten(cycles)
	if len(flat) != 2 || flat[0].ID != "u1" || flat[1].ID != "a1" {
		t.Errorf("Flatten did not preserve order: %+v", flat)
	}
}

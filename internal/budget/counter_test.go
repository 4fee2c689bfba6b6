package budget

import (
	"testing"

	"github.com/ngoclaw/agentcore/internal/session"
)

// === DefaultCounter ===

func TestDefaultCounter_CountText(t *testing.T) {
	c := NewDefaultCounter()
	if got := c.CountText(""); got != 0 {
		t.Errorf("expected 0 tokens for empty text, got %d", got)
	}
	if got := c.CountText("abcd"); got != 1 {
		t.Errorf("expected 1 token for 4 chars, got %d", got)
	}
	if got := c.CountText("abcde"); got != 2 {
		t.Errorf("expected 2 tokens for 5 chars (ceil), got %d", got)
	}
}

func TestDefaultCounter_CountMessage_IncludesOverheadAndToolArgs(t *testing.T) {
	c := NewDefaultCounter()
	m := session.NewAssistantMessage("a1", "abcd", []session.ToolCall{
		{ID: "t1", Name: "read_file", Arguments: "abcdefgh"},
	})
	got := c.CountMessage(m)
	want := c.CountText("abcd") + c.Overhead + c.CountText("abcdefgh")
	if got != want {
		t.Errorf("CountMessage = %d, want %d", got, want)
	}
}

func TestCountAll_SumsAcrossMessages(t *testing.T) {
	c := NewDefaultCounter()
	msgs := []*session.Message{
		session.NewUserMessage("u1", "abcd", nil),
		session.NewUserMessage("u2", "abcd", nil),
	}
	if got := CountAll(c, msgs); got != 2*(1+c.Overhead) {
		t.Errorf("CountAll = %d, want %d", got, 2*(1+c.Overhead))
	}
}

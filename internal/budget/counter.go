// Package budget implements the token counter, model-window registry, and
// context preparation pipeline (spec §4.2).
package budget

import (
	"github.com/ngoclaw/agentcore/internal/session"
)

// Counter estimates token usage for a message. The engine exposes it as a
// replaceable interface so a precise per-model tokenizer can be substituted;
// DefaultCounter is the heuristic fallback.
type Counter interface {
	CountMessage(m *session.Message) int
	CountText(s string) int
}

// OverheadPerMessage is the fixed per-message token tax the heuristic
// counter adds on top of content length, grounded on the teacher's
// ContextGuard.estimateTokens per-message formatting overhead.
const OverheadPerMessage = 4

// DefaultCounter implements the heuristic estimator from spec §4.2:
// ceil(len(text)/4) + overhead_per_message + sum(len(tool_call.arguments)/4).
type DefaultCounter struct {
	CharsPerToken int // default 4
	Overhead      int // default OverheadPerMessage
}

// NewDefaultCounter returns a counter using the spec's default ratios.
func NewDefaultCounter() *DefaultCounter {
	return &DefaultCounter{CharsPerToken: 4, Overhead: OverheadPerMessage}
}

func (c *DefaultCounter) charsPerToken() int {
	if c.CharsPerToken <= 0 {
		return 4
	}
	return c.CharsPerToken
}

func (c *DefaultCounter) CountText(s string) int {
	n := len([]rune(s))
	cpt := c.charsPerToken()
	return (n + cpt - 1) / cpt
}

func (c *DefaultCounter) CountMessage(m *session.Message) int {
	total := c.CountText(m.Text) + c.Overhead
	for _, tc := range m.ToolCalls {
		total += c.CountText(tc.Arguments)
	}
	return total
}

// CountAll sums CountMessage over a slice of messages.
func CountAll(counter Counter, msgs []*session.Message) int {
	total := 0
	for _, m := range msgs {
		total += counter.CountMessage(m)
	}
	return total
}

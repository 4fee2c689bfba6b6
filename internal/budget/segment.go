package budget

import "github.com/ngoclaw/agentcore/internal/session"

// Cycle is an atomic conversational unit (spec §4.3, GLOSSARY): a user
// message, a tool-free assistant message, or an assistant-with-tool-calls
// turn together with all of its matched tool results and an optional
// concluding assistant text message.
type Cycle struct {
	Messages []*session.Message
	// Complete is false when the assistant's tool calls are missing one or
	// more matching tool results — such a cycle must never be placed behind
	// the summarization cursor (spec §4.3).
	Complete bool
}

// Segment groups a tail of non-system messages into atomic cycles. System
// messages are not cycles; callers should strip them before segmenting and
// always keep them unconditionally at the front of the prepared list.
func Segment(messages []*session.Message) []Cycle {
	var cycles []Cycle
	i := 0
	for i < len(messages) {
		m := messages[i]
		switch m.Role {
		case session.RoleSystem:
			// Not part of cycle accounting; skip defensively.
			i++
		case session.RoleUser:
			cycles = append(cycles, Cycle{Messages: []*session.Message{m}, Complete: true})
			i++
		case session.RoleAssistant:
			if !m.HasToolCalls() {
				cycles = append(cycles, Cycle{Messages: []*session.Message{m}, Complete: true})
				i++
				continue
			}
			needed := make(map[string]bool, len(m.ToolCalls))
			for _, tc := range m.ToolCalls {
				needed[tc.ID] = true
			}
			cycleMsgs := []*session.Message{m}
			j := i + 1
			matched := make(map[string]bool)
			for j < len(messages) && messages[j].Role == session.RoleTool && needed[messages[j].CallID] {
				cycleMsgs = append(cycleMsgs, messages[j])
				matched[messages[j].CallID] = true
				j++
			}
			complete := len(matched) == len(needed)
			// Optional concluding assistant text message.
			if complete && j < len(messages) && messages[j].Role == session.RoleAssistant && !messages[j].HasToolCalls() {
				cycleMsgs = append(cycleMsgs, messages[j])
				j++
			}
			cycles = append(cycles, Cycle{Messages: cycleMsgs, Complete: complete})
			i = j
		case session.RoleTool:
			// An orphan tool result with no preceding assistant call in this
			// window (e.g. the assistant fell outside the tail already
			// summarized). Treat it as its own incomplete cycle so it is
			// never silently dropped or split.
			cycles = append(cycles, Cycle{Messages: []*session.Message{m}, Complete: false})
			i++
		}
	}
	return cycles
}

// Flatten concatenates the messages of a set of cycles back into one slice,
// preserving order.
func Flatten(cycles []Cycle) []*session.Message {
	var out []*session.Message
	for _, c := range cycles {
		out = append(out, c.Messages...)
	}
	return out
}

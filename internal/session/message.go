package session

import "time"

// Role discriminates the tagged variants of Message (spec §3).
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is the model's request to invoke a tool. Arguments is kept as a
// raw JSON string — never eagerly parsed — so that streamed reassembly and
// provider round-tripping preserve exact framing; validation happens lazily
// when the tool executor dispatches the call.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Message is the tagged variant described in spec §3. Only the fields
// relevant to Role are populated; use the constructors below rather than
// building a Message by hand so invalid combinations can't be produced.
type Message struct {
	ID         string
	Role       Role
	Text       string
	Metadata   map[string]any
	ToolCalls  []ToolCall // Assistant only
	CallID     string     // Tool only: the ToolCall.ID this result answers
	Success    bool       // Tool only
	CreatedAt  time.Time
}

// NewSystemMessage builds the (at most one, always-first) system message.
func NewSystemMessage(id, text string) *Message {
	return &Message{ID: id, Role: RoleSystem, Text: text, CreatedAt: time.Now()}
}

// NewUserMessage builds a user turn, optionally carrying metadata.
func NewUserMessage(id, text string, metadata map[string]any) *Message {
	return &Message{ID: id, Role: RoleUser, Text: text, Metadata: metadata, CreatedAt: time.Now()}
}

// NewAssistantMessage builds an assistant turn. Either text, toolCalls, or
// both may be non-empty — a turn with no text and no tool calls is
// meaningless and callers should not construct one.
func NewAssistantMessage(id, text string, toolCalls []ToolCall) *Message {
	return &Message{ID: id, Role: RoleAssistant, Text: text, ToolCalls: toolCalls, CreatedAt: time.Now()}
}

// NewToolResultMessage builds the observation paired 1:1 with an earlier
// Assistant tool call, matched by callID.
func NewToolResultMessage(id, callID, resultText string, success bool) *Message {
	return &Message{ID: id, Role: RoleTool, CallID: callID, Text: resultText, Success: success, CreatedAt: time.Now()}
}

// HasToolCalls reports whether this is an assistant turn that requested
// tool invocations.
func (m *Message) HasToolCalls() bool {
	return m.Role == RoleAssistant && len(m.ToolCalls) > 0
}

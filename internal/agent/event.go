package agent

import "time"

// EventType discriminates the externally observable AgentEvent variants
// (spec §3). The JSONL event log (internal/eventlog) flattens each
// variant's fields alongside this discriminator.
type EventType string

const (
	EventToken             EventType = "token"
	EventToolStart         EventType = "tool_start"
	EventToolComplete      EventType = "tool_complete"
	EventToolError         EventType = "tool_error"
	EventNeedClarification EventType = "need_clarification"
	EventApprovalRequired  EventType = "approval_required"
	EventTodoListUpdated   EventType = "todo_list_updated"
	EventComplete          EventType = "complete"
	EventError             EventType = "error"
)

// Usage reports token accounting for a completed turn.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Event is the tagged AgentEvent described in spec §3: append-only,
// replayable, one Type populating the matching fields below.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	// Token
	Content string `json:"content,omitempty"`

	// ToolStart / ToolComplete / ToolError / ApprovalRequired
	ToolCallID string `json:"tool_call_id,omitempty"`
	ToolName   string `json:"tool_name,omitempty"`
	ToolArgs   string `json:"tool_args,omitempty"`
	ToolResult string `json:"tool_result,omitempty"`

	// NeedClarification
	Question string   `json:"question,omitempty"`
	Options  []string `json:"options,omitempty"`

	// TodoListUpdated
	TodoRendered string `json:"todo_rendered,omitempty"`

	// Complete
	Usage *Usage `json:"usage,omitempty"`

	// Error
	Message string `json:"message,omitempty"`
}

func now() time.Time { return time.Now() }

func TokenEvent(content string) Event {
	return Event{Type: EventToken, Timestamp: now(), Content: content}
}

func ToolStartEvent(id, name, args string) Event {
	return Event{Type: EventToolStart, Timestamp: now(), ToolCallID: id, ToolName: name, ToolArgs: args}
}

func ToolCompleteEvent(id, result string) Event {
	return Event{Type: EventToolComplete, Timestamp: now(), ToolCallID: id, ToolResult: result}
}

func ToolErrorEvent(id, errMsg string) Event {
	return Event{Type: EventToolError, Timestamp: now(), ToolCallID: id, Message: errMsg}
}

func NeedClarificationEvent(question string, options []string) Event {
	return Event{Type: EventNeedClarification, Timestamp: now(), Question: question, Options: options}
}

func ApprovalRequiredEvent(id, name, args string) Event {
	return Event{Type: EventApprovalRequired, Timestamp: now(), ToolCallID: id, ToolName: name, ToolArgs: args}
}

func TodoListUpdatedEvent(rendered string) Event {
	return Event{Type: EventTodoListUpdated, Timestamp: now(), TodoRendered: rendered}
}

func CompleteEvent(usage Usage) Event {
	return Event{Type: EventComplete, Timestamp: now(), Usage: &usage}
}

func ErrorEvent(msg string) Event {
	return Event{Type: EventError, Timestamp: now(), Message: msg}
}

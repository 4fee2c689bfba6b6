package openai

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/ngoclaw/agentcore/internal/protocol"
	"github.com/ngoclaw/agentcore/internal/session"
	"github.com/ngoclaw/agentcore/internal/streaming"
)

func TestBuildRequestBodyRoundTripsToolCall(t *testing.T) {
	req := protocol.Request{
		Model: "gpt-4o",
		Messages: []*session.Message{
			session.NewUserMessage("u1", "read the file", nil),
			session.NewAssistantMessage("a1", "", []session.ToolCall{
				{ID: "call_1", Name: "read_file", Arguments: `{"path":"/tmp/x"}`},
			}),
			session.NewToolResultMessage("t1", "call_1", "X", true),
		},
	}

	body, err := Adapter{}.BuildRequestBody(req)
	if err != nil {
		t.Fatalf("BuildRequestBody: %v", err)
	}

	var wire wireRequest
	if err := json.Unmarshal(body, &wire); err != nil {
		t.Fatalf("unmarshal wire body: %v", err)
	}
	if len(wire.Messages) != 3 {
		t.Fatalf("expected 3 wire messages, got %d", len(wire.Messages))
	}
	assistant := wire.Messages[1]
	if len(assistant.ToolCalls) != 1 || assistant.ToolCalls[0].ID != "call_1" {
		t.Fatalf("tool call id not preserved: %+v", assistant.ToolCalls)
	}
	if assistant.ToolCalls[0].Function.Arguments != `{"path":"/tmp/x"}` {
		t.Fatalf("arguments not preserved byte-for-byte: %q", assistant.ToolCalls[0].Function.Arguments)
	}
	toolMsg := wire.Messages[2]
	if toolMsg.ToolCallID != "call_1" {
		t.Fatalf("tool_call_id not preserved: %q", toolMsg.ToolCallID)
	}
}

func TestParseEventHandlesDoneSentinel(t *testing.T) {
	p := eventParser{}
	ev, err := p.ParseEvent(streaming.SSEEvent{Data: "[DONE]"})
	if err != nil || !ev.Done {
		t.Fatalf("expected Done=true, nil err; got %+v, %v", ev, err)
	}
}

func TestParseEventExtractsTextAndToolCalls(t *testing.T) {
	p := eventParser{}
	data := `{"choices":[{"delta":{"content":"hi","tool_calls":[{"index":0,"id":"c1","function":{"name":"f","arguments":"{}"}}]}}]}`
	ev, err := p.ParseEvent(streaming.SSEEvent{Data: data})
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if ev.Text != "hi" {
		t.Fatalf("expected text hi, got %q", ev.Text)
	}
	if len(ev.ToolCalls) != 1 || ev.ToolCalls[0].ID != "c1" {
		t.Fatalf("unexpected tool calls: %+v", ev.ToolCalls)
	}
	if !strings.Contains(ev.ToolCalls[0].ArgumentsPartial, "{}") {
		t.Fatalf("unexpected arguments: %q", ev.ToolCalls[0].ArgumentsPartial)
	}
}

// Package anthropic implements the Anthropic Messages API spoke (spec
// §4.5, §6): POST {base}/messages; streaming content blocks with
// text_delta, input_json_delta, block start/stop events. Grounded on
// internal/infrastructure/llm/anthropic/{provider,sse,types}.go.
package anthropic

import (
	"encoding/json"

	"github.com/ngoclaw/agentcore/internal/protocol"
	"github.com/ngoclaw/agentcore/internal/session"
	"github.com/ngoclaw/agentcore/internal/streaming"
	"github.com/ngoclaw/agentcore/pkg/apperr"
)

func init() {
	protocol.Register(Adapter{})
}

type Adapter struct{}

func (Adapter) Name() string { return "anthropic" }

func (Adapter) Endpoint(baseURL, _ string) string {
	return trimSlash(baseURL) + "/messages"
}

func (Adapter) Headers(apiKey string) map[string]string {
	return map[string]string{
		"x-api-key":         apiKey,
		"anthropic-version": "2023-06-01",
		"content-type":      "application/json",
	}
}

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

// --- wire types ---

type contentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
}

type wireMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type wireTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type wireRequest struct {
	Model       string        `json:"model"`
	System      string        `json:"system,omitempty"`
	Messages    []wireMessage `json:"messages"`
	Tools       []wireTool    `json:"tools,omitempty"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature,omitempty"`
	Stream      bool          `json:"stream"`
}

// BuildRequestBody collapses tool calls/results into Anthropic's
// tool_use/tool_result content blocks (spec §4.5). The system message(s)
// in the hub model become the top-level "system" field rather than a
// message, per Anthropic's wire shape.
func (Adapter) BuildRequestBody(req protocol.Request) ([]byte, error) {
	wire := wireRequest{
		Model:       req.Model,
		Stream:      true,
		MaxTokens:   req.MaxOutputTokens,
		Temperature: req.Temperature,
	}
	if wire.MaxTokens == 0 {
		wire.MaxTokens = 4096
	}

	var systemParts []string
	for _, m := range req.Messages {
		switch m.Role {
		case session.RoleSystem:
			systemParts = append(systemParts, m.Text)
		case session.RoleUser:
			wire.Messages = append(wire.Messages, wireMessage{
				Role:    "user",
				Content: []contentBlock{{Type: "text", Text: m.Text}},
			})
		case session.RoleAssistant:
			var blocks []contentBlock
			if m.Text != "" {
				blocks = append(blocks, contentBlock{Type: "text", Text: m.Text})
			}
			for _, tc := range m.ToolCalls {
				input := json.RawMessage(tc.Arguments)
				if len(input) == 0 {
					input = json.RawMessage("{}")
				}
				blocks = append(blocks, contentBlock{Type: "tool_use", ID: tc.ID, Name: tc.Name, Input: input})
			}
			wire.Messages = append(wire.Messages, wireMessage{Role: "assistant", Content: blocks})
		case session.RoleTool:
			// Anthropic requires tool_result blocks inside a user message.
			wire.Messages = append(wire.Messages, wireMessage{
				Role:    "user",
				Content: []contentBlock{{Type: "tool_result", ToolUseID: m.CallID, Content: m.Text}},
			})
		default:
			return nil, apperr.New(apperr.CodeConversion, "unknown message role: "+string(m.Role))
		}
	}
	if len(systemParts) > 0 {
		wire.System = joinNonEmpty(systemParts)
	}

	for _, t := range req.Tools {
		wire.Tools = append(wire.Tools, wireTool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.Parameters,
		})
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeConversion, "marshal anthropic request", err)
	}
	return body, nil
}

func joinNonEmpty(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "\n\n"
		}
		out += p
	}
	return out
}

// --- streaming ---

type streamEvent struct {
	Type         string `json:"type"`
	Index        int    `json:"index"`
	ContentBlock *struct {
		Type string `json:"type"`
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"content_block"`
	Delta *struct {
		Type        string `json:"type"`
		Text        string `json:"text"`
		PartialJSON string `json:"partial_json"`
		StopReason  string `json:"stop_reason"`
	} `json:"delta"`
	Usage *struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// eventParser tracks content-block index → whether it's a tool_use block,
// since Anthropic's delta events don't repeat the block type.
type eventParser struct {
	toolBlocks map[int]bool
}

func (Adapter) NewEventParser() streaming.EventParser {
	return &eventParser{toolBlocks: make(map[int]bool)}
}

func (p *eventParser) ParseEvent(ev streaming.SSEEvent) (streaming.ParsedEvent, error) {
	var out streaming.ParsedEvent
	switch ev.Event {
	case "content_block_start":
		var se streamEvent
		if err := json.Unmarshal([]byte(ev.Data), &se); err != nil {
			return out, apperr.Wrap(apperr.CodeStream, "malformed anthropic content_block_start", err)
		}
		if se.ContentBlock != nil && se.ContentBlock.Type == "tool_use" {
			p.toolBlocks[se.Index] = true
			out.ToolCalls = append(out.ToolCalls, streaming.ToolCallDelta{
				Index: se.Index,
				ID:    se.ContentBlock.ID,
				Name:  se.ContentBlock.Name,
			})
		}
	case "content_block_delta":
		var se streamEvent
		if err := json.Unmarshal([]byte(ev.Data), &se); err != nil {
			return out, apperr.Wrap(apperr.CodeStream, "malformed anthropic content_block_delta", err)
		}
		if se.Delta == nil {
			break
		}
		switch se.Delta.Type {
		case "text_delta":
			out.Text = se.Delta.Text
		case "input_json_delta":
			out.ToolCalls = append(out.ToolCalls, streaming.ToolCallDelta{
				Index:            se.Index,
				ArgumentsPartial: se.Delta.PartialJSON,
			})
		}
	case "message_delta":
		var se streamEvent
		if err := json.Unmarshal([]byte(ev.Data), &se); err != nil {
			return out, apperr.Wrap(apperr.CodeStream, "malformed anthropic message_delta", err)
		}
		if se.Usage != nil {
			out.Usage = &streaming.Usage{
				PromptTokens:     se.Usage.InputTokens,
				CompletionTokens: se.Usage.OutputTokens,
				TotalTokens:      se.Usage.InputTokens + se.Usage.OutputTokens,
			}
		}
	case "message_stop":
		out.Done = true
	}
	return out, nil
}

// Package openai implements the OpenAI-compatible spoke (spec §4.5, §6):
// POST {base}/chat/completions with {model, messages, tools?, stream:true},
// SSE body of JSON deltas, final "data: [DONE]". Grounded on
// internal/infrastructure/llm/openai/{provider,sse,types}.go, generalized
// from one LLMMessage/LLMResponse shape into pure session.Message
// converters separated from HTTP transport.
package openai

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

// Adapter is the OpenAI-compatible spoke. It is also reused verbatim by
// the Copilot spoke (SPEC_FULL §10), since Copilot's chat wire format is
// OpenAI-compatible; only auth differs.
type Adapter struct{}

func (Adapter) Name() string { return "openai" }

func (Adapter) Endpoint(baseURL, _ string) string {
	return trimSlash(baseURL) + "/chat/completions"
}

func (Adapter) Headers(apiKey string) map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + apiKey,
		"Content-Type":  "application/json",
	}
}

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

// --- wire types (OpenAI chat.completions) ---

type wireMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type wireToolCall struct {
	Index    int              `json:"index,omitempty"`
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function wireToolCallFunc `json:"function"`
}

type wireToolCallFunc struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type wireTool struct {
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type wireRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	Tools       []wireTool    `json:"tools,omitempty"`
	Stream      bool          `json:"stream"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

// BuildRequestBody collapses Assistant+Tool pairs into OpenAI's chosen
// shape: tool_calls on the assistant message, role=tool messages carrying
// tool_call_id for the matched results (spec §4.5).
func (Adapter) BuildRequestBody(req protocol.Request) ([]byte, error) {
	wire := wireRequest{
		Model:       req.Model,
		Stream:      true,
		MaxTokens:   req.MaxOutputTokens,
		Temperature: req.Temperature,
	}
	for _, m := range req.Messages {
		switch m.Role {
		case session.RoleSystem:
			wire.Messages = append(wire.Messages, wireMessage{Role: "system", Content: m.Text})
		case session.RoleUser:
			wire.Messages = append(wire.Messages, wireMessage{Role: "user", Content: m.Text})
		case session.RoleAssistant:
			wm := wireMessage{Role: "assistant", Content: m.Text}
			for _, tc := range m.ToolCalls {
				wm.ToolCalls = append(wm.ToolCalls, wireToolCall{
					ID:   tc.ID,
					Type: "function",
					Function: wireToolCallFunc{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				})
			}
			wire.Messages = append(wire.Messages, wm)
		case session.RoleTool:
			wire.Messages = append(wire.Messages, wireMessage{
				Role:       "tool",
				Content:    m.Text,
				ToolCallID: m.CallID,
			})
		default:
			return nil, apperr.New(apperr.CodeConversion, "unknown message role: "+string(m.Role))
		}
	}
	for _, t := range req.Tools {
		wire.Tools = append(wire.Tools, wireTool{
			Type: "function",
			Function: wireFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	body, err := json.Marshal(wire)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeConversion, "marshal openai request", err)
	}
	return body, nil
}

// --- streaming ---

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content   string         `json:"content"`
			ToolCalls []wireToolCall `json:"tool_calls"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type eventParser struct{}

func (Adapter) NewEventParser() streaming.EventParser { return eventParser{} }

func (eventParser) ParseEvent(ev streaming.SSEEvent) (streaming.ParsedEvent, error) {
	if ev.Data == "[DONE]" {
		return streaming.ParsedEvent{Done: true}, nil
	}
	var chunk streamChunk
	if err := json.Unmarshal([]byte(ev.Data), &chunk); err != nil {
		return streaming.ParsedEvent{}, apperr.Wrap(apperr.CodeStream, "malformed openai sse chunk", err)
	}
	var out streaming.ParsedEvent
	if chunk.Usage != nil {
		out.Usage = &streaming.Usage{
			PromptTokens:     chunk.Usage.PromptTokens,
			CompletionTokens: chunk.Usage.CompletionTokens,
			TotalTokens:      chunk.Usage.TotalTokens,
		}
	}
	if len(chunk.Choices) == 0 {
		return out, nil
	}
	choice := chunk.Choices[0]
	out.Text = choice.Delta.Content
	for _, tc := range choice.Delta.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, streaming.ToolCallDelta{
			Index:            tc.Index,
			ID:               tc.ID,
			Name:             tc.Function.Name,
			ArgumentsPartial: tc.Function.Arguments,
		})
	}
	if choice.FinishReason != nil {
		out.Done = true
	}
	return out, nil
}

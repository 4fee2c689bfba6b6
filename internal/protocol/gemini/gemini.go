// Package gemini implements the Gemini spoke (spec §4.5, §6): POST
// {base}/models/{model}:streamGenerateContent; contents[],
// systemInstruction, tools.functionDeclarations. Grounded on
// internal/infrastructure/llm/gemini/{provider,sse,types}.go.
package gemini

import (
	"encoding/json"
	"fmt"

	"github.com/ngoclaw/agentcore/internal/protocol"
	"github.com/ngoclaw/agentcore/internal/session"
	"github.com/ngoclaw/agentcore/internal/streaming"
	"github.com/ngoclaw/agentcore/pkg/apperr"
)

func init() {
	protocol.Register(Adapter{})
}

type Adapter struct{}

func (Adapter) Name() string { return "gemini" }

func (Adapter) Endpoint(baseURL, model string) string {
	return trimSlash(baseURL) + "/models/" + model + ":streamGenerateContent?alt=sse"
}

func (Adapter) Headers(apiKey string) map[string]string {
	return map[string]string{
		"x-goog-api-key": apiKey,
		"content-type":   "application/json",
	}
}

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

// --- wire types ---

type part struct {
	Text             string            `json:"text,omitempty"`
	FunctionCall     *functionCall     `json:"functionCall,omitempty"`
	FunctionResponse *functionResponse `json:"functionResponse,omitempty"`
}

type functionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

type functionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type toolDeclaration struct {
	FunctionDeclarations []functionDeclaration `json:"functionDeclarations"`
}

type functionDeclaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type wireRequest struct {
	Contents          []content          `json:"contents"`
	Tools             []toolDeclaration  `json:"tools,omitempty"`
	SystemInstruction *content           `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig  `json:"generationConfig,omitempty"`
}

// BuildRequestBody maps tool calls to functionCall parts on a "model" turn
// and tool results to functionResponse parts on a "user" turn (spec §4.5).
// Call ids have no analogue in Gemini's wire format: on the way out a tool
// result's function name is looked up from its call id among the session's
// earlier tool calls, and on the way back in ParseEvent assigns synthetic
// "gemini-call-N" ids, since Gemini never streams back an id of its own.
func (Adapter) BuildRequestBody(req protocol.Request) ([]byte, error) {
	wire := wireRequest{}
	gc := &generationConfig{Temperature: req.Temperature, MaxOutputTokens: req.MaxOutputTokens}
	wire.GenerationConfig = gc

	// Gemini's wire format carries no call id; recover the function name a
	// RoleTool message answers by looking up the call it matches among the
	// assistant turns already in req.Messages (spec §4.5: call_id round-trip
	// must never be lost even when a spoke's wire shape has no such field).
	nameByCallID := make(map[string]string)
	for _, m := range req.Messages {
		if m.Role == session.RoleAssistant {
			for _, tc := range m.ToolCalls {
				nameByCallID[tc.ID] = tc.Name
			}
		}
	}

	var systemParts []part
	for _, m := range req.Messages {
		switch m.Role {
		case session.RoleSystem:
			systemParts = append(systemParts, part{Text: m.Text})
		case session.RoleUser:
			wire.Contents = append(wire.Contents, content{Role: "user", Parts: []part{{Text: m.Text}}})
		case session.RoleAssistant:
			var parts []part
			if m.Text != "" {
				parts = append(parts, part{Text: m.Text})
			}
			for _, tc := range m.ToolCalls {
				var args map[string]any
				if tc.Arguments != "" {
					if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
						return nil, apperr.Wrap(apperr.CodeConversion, "tool call arguments not an object", err)
					}
				}
				parts = append(parts, part{FunctionCall: &functionCall{Name: tc.Name, Args: args}})
			}
			wire.Contents = append(wire.Contents, content{Role: "model", Parts: parts})
		case session.RoleTool:
			name := nameByCallID[m.CallID]
			if name == "" {
				name = m.CallID
			}
			wire.Contents = append(wire.Contents, content{
				Role:  "user",
				Parts: []part{{FunctionResponse: &functionResponse{Name: name, Response: map[string]any{"result": m.Text}}}},
			})
		default:
			return nil, apperr.New(apperr.CodeConversion, "unknown message role: "+string(m.Role))
		}
	}
	if len(systemParts) > 0 {
		wire.SystemInstruction = &content{Parts: systemParts}
	}
	for _, t := range req.Tools {
		wire.Tools = append(wire.Tools, toolDeclaration{FunctionDeclarations: []functionDeclaration{{
			Name: t.Name, Description: t.Description, Parameters: t.Parameters,
		}}})
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeConversion, "marshal gemini request", err)
	}
	return body, nil
}

// --- streaming ---

type streamCandidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

type streamChunk struct {
	Candidates    []streamCandidate `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// eventParser assigns a synthetic index/id to each functionCall part,
// since Gemini sends complete call objects rather than an indexed partial
// stream the way OpenAI/Anthropic do; feeding the whole JSON blob through
// the same Accumulator as a single "partial" still produces a correct
// final ToolCall.
type eventParser struct {
	nextIndex int
}

func (Adapter) NewEventParser() streaming.EventParser { return &eventParser{} }

func (p *eventParser) ParseEvent(ev streaming.SSEEvent) (streaming.ParsedEvent, error) {
	var out streaming.ParsedEvent
	var chunk streamChunk
	if err := json.Unmarshal([]byte(ev.Data), &chunk); err != nil {
		return out, apperr.Wrap(apperr.CodeStream, "malformed gemini sse chunk", err)
	}
	if chunk.UsageMetadata != nil {
		out.Usage = &streaming.Usage{
			PromptTokens:     chunk.UsageMetadata.PromptTokenCount,
			CompletionTokens: chunk.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      chunk.UsageMetadata.TotalTokenCount,
		}
	}
	if len(chunk.Candidates) == 0 {
		return out, nil
	}
	cand := chunk.Candidates[0]
	for _, part := range cand.Content.Parts {
		if part.Text != "" {
			out.Text += part.Text
		}
		if part.FunctionCall != nil {
			args, err := json.Marshal(part.FunctionCall.Args)
			if err != nil {
				return out, apperr.Wrap(apperr.CodeConversion, "marshal gemini function call args", err)
			}
			idx := p.nextIndex
			p.nextIndex++
			out.ToolCalls = append(out.ToolCalls, streaming.ToolCallDelta{
				Index:            idx,
				ID:               fmt.Sprintf("gemini-call-%d", idx),
				Name:             part.FunctionCall.Name,
				ArgumentsPartial: string(args),
			})
		}
	}
	if cand.FinishReason != "" {
		out.Done = true
	}
	return out, nil
}

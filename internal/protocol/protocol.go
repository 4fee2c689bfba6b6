// Package protocol implements the hub-and-spoke conversion between the
// internal session.Message model and the three provider wire protocols
// (spec §4.5): OpenAI-compatible, Anthropic, and Gemini, plus a Copilot
// spoke that reuses OpenAI's wire shape (SPEC_FULL §10).
//
// The internal model is the hub; session.Message/session.ToolCall never
// change across spokes. Each spoke owns the "to-provider" request encoding
// and the "from-provider" streaming.EventParser that the generic
// internal/streaming.Ingest function drives.
package protocol

import (
	"sync"

	"github.com/ngoclaw/agentcore/internal/session"
	"github.com/ngoclaw/agentcore/internal/streaming"
	"github.com/ngoclaw/agentcore/internal/tool"
	"github.com/ngoclaw/agentcore/pkg/apperr"
)

// Request is everything a spoke needs to build a provider call.
type Request struct {
	Model           string
	Messages        []*session.Message
	Tools           []tool.Definition
	MaxOutputTokens int
	Temperature     float64
}

// Adapter is the per-provider spoke (spec §4.5).
type Adapter interface {
	// Name identifies the spoke, e.g. "openai", "anthropic", "gemini".
	Name() string

	// BuildRequestBody converts the hub request into the provider's wire
	// JSON body, collapsing Assistant+Tool pairs into that provider's
	// chosen shape. Returns UnsupportedFeature if req uses a construct the
	// provider cannot express, Conversion on structural mismatches.
	BuildRequestBody(req Request) ([]byte, error)

	// Endpoint returns the full streaming URL for one call.
	Endpoint(baseURL, model string) string

	// Headers returns the HTTP headers a streaming request needs, given an
	// API key (provider-specific: Authorization, x-api-key, etc).
	Headers(apiKey string) map[string]string

	// NewEventParser returns a fresh streaming.EventParser for one
	// in-flight call; parsers are not safe to share across concurrent
	// streams since they may hold call-scoped lookahead state.
	NewEventParser() streaming.EventParser
}

var (
	mu       sync.RWMutex
	adapters = map[string]Adapter{}
)

// Register installs an Adapter under its Name(), called from each spoke
// package's init(), mirroring the teacher's llm.RegisterFactory pattern.
func Register(a Adapter) {
	mu.Lock()
	defer mu.Unlock()
	adapters[a.Name()] = a
}

// Get resolves a registered Adapter by name.
func Get(name string) (Adapter, error) {
	mu.RLock()
	defer mu.RUnlock()
	a, ok := adapters[name]
	if !ok {
		return nil, apperr.New(apperr.CodeUnsupportedFeature, "unknown provider: "+name)
	}
	return a, nil
}

package streaming

import (
	"context"
	"io"

	"github.com/ngoclaw/agentcore/internal/session"
)

// ChunkKind discriminates the unified LLMChunk stream the ingestor emits
// (spec §4.6): Token(s) | ToolCalls([ToolCall]) | Done | Error.
type ChunkKind int

const (
	ChunkToken ChunkKind = iota
	ChunkToolCalls
	ChunkDone
	ChunkError
)

// Usage reports token accounting as surfaced by the provider on the
// terminal stream chunk, if any.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// LLMChunk is one unit of the ingestor's output stream.
type LLMChunk struct {
	Kind      ChunkKind
	Token     string
	ToolCalls []session.ToolCall
	Err       error
	// Usage carries token accounting when the provider reports it on the
	// terminal chunk; zero value if unavailable.
	Usage Usage
}

// ParsedEvent is what an adapter's spoke-specific parser extracts from one
// raw SSEEvent: any text delta, any tool-call fragments, and whether this
// event marks the end of the turn.
type ParsedEvent struct {
	Text      string
	ToolCalls []ToolCallDelta
	Usage     *Usage
	Done      bool
}

// EventParser is the adapter-supplied spoke: given one framed SSE event,
// extract its meaning. internal/protocol's three adapters each implement
// this against their own wire shapes (spec §4.5).
type EventParser interface {
	ParseEvent(ev SSEEvent) (ParsedEvent, error)
}

// Ingest drives the hub half of spec §4.6: frame r as SSE, hand each event
// to parser, accumulate tool-call deltas, and emit a unified LLMChunk
// stream on out. Ingest returns (and closes nothing) once the stream ends,
// an unrecoverable parse error occurs, or ctx is cancelled — in which case
// it emits a final ChunkError carrying ctx.Err() before returning, per
// spec §4.6's "On transport failure mid-stream emits StreamError".
func Ingest(ctx context.Context, r io.Reader, parser EventParser, out chan<- LLMChunk) {
	acc := NewAccumulator()
	var usage Usage

	err := ScanSSE(r, func(ev SSEEvent) (bool, error) {
		select {
		case <-ctx.Done():
			return true, ctx.Err()
		default:
		}

		parsed, err := parser.ParseEvent(ev)
		if err != nil {
			return true, err
		}
		if parsed.Text != "" {
			out <- LLMChunk{Kind: ChunkToken, Token: parsed.Text}
		}
		for _, d := range parsed.ToolCalls {
			acc.Add(d)
		}
		if parsed.Usage != nil {
			usage = *parsed.Usage
		}
		if parsed.Done {
			return true, nil
		}
		return false, nil
	})

	if err != nil {
		out <- LLMChunk{Kind: ChunkError, Err: err}
		return
	}
	if !acc.Empty() {
		out <- LLMChunk{Kind: ChunkToolCalls, ToolCalls: acc.Finalize()}
	}
	out <- LLMChunk{Kind: ChunkDone, Usage: usage}
}

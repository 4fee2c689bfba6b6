package streaming

import (
	"sort"
	"strings"

	"github.com/ngoclaw/agentcore/internal/session"
)

// ToolCallDelta is one indexed, partial fragment of a streamed tool call
// (spec §4.5, Design Notes: "chunks arrive with any subset of
// {id, name, arguments_partial}; model as an indexed map with late-binding
// concatenation").
type ToolCallDelta struct {
	Index            int
	ID               string // set once, first non-empty value wins
	Name             string // set once, first non-empty value wins
	ArgumentsPartial string // concatenated in arrival order
}

type entry struct {
	id   strings.Builder
	name strings.Builder
	args strings.Builder
	seen bool
}

// Accumulator reassembles indexed ToolCallDelta fragments into complete
// ToolCall records, emitted only once the caller signals Done (spec §4.6).
// Reassembly is associative: feeding arguments_partial in any byte-aligned
// split yields the same final JSON string, since concatenation is the only
// operation performed on it.
type Accumulator struct {
	entries map[int]*entry
	order   []int
}

func NewAccumulator() *Accumulator {
	return &Accumulator{entries: make(map[int]*entry)}
}

// Add folds one delta into the accumulator. id/name are "late-binding":
// once set from a non-empty value they are never overwritten, since
// providers only send them on the first chunk for an index.
func (a *Accumulator) Add(d ToolCallDelta) {
	e, ok := a.entries[d.Index]
	if !ok {
		e = &entry{}
		a.entries[d.Index] = e
		a.order = append(a.order, d.Index)
	}
	if !e.seen {
		e.seen = true
	}
	if d.ID != "" && e.id.Len() == 0 {
		e.id.WriteString(d.ID)
	}
	if d.Name != "" && e.name.Len() == 0 {
		e.name.WriteString(d.Name)
	}
	if d.ArgumentsPartial != "" {
		e.args.WriteString(d.ArgumentsPartial)
	}
}

// Finalize emits fully formed ToolCall records in index order (spec §4.5).
// Called once at the stream's Done boundary; the accumulator is left empty
// afterward so it can be reused for the next assistant turn.
func (a *Accumulator) Finalize() []session.ToolCall {
	if len(a.entries) == 0 {
		return nil
	}
	sort.Ints(a.order)
	out := make([]session.ToolCall, 0, len(a.order))
	for _, idx := range a.order {
		e := a.entries[idx]
		out = append(out, session.ToolCall{
			ID:        e.id.String(),
			Name:      e.name.String(),
			Arguments: e.args.String(),
		})
	}
	a.entries = make(map[int]*entry)
	a.order = nil
	return out
}

// Empty reports whether any tool-call fragments have been accumulated.
func (a *Accumulator) Empty() bool {
	return len(a.entries) == 0
}

package budget

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ngoclaw/agentcore/internal/session"
)

func newSummaryID() string {
	return "summary-" + uuid.NewString()
}

// Summarizer condenses a run of completed cycles into a single synthetic
// system-ish message that replaces them in the prepared context (spec §4.4).
// The engine never summarizes an incomplete cycle; callers are responsible
// for only passing cycles with Complete == true.
type Summarizer interface {
	Summarize(ctx context.Context, cycles []Cycle) (*session.Message, error)
}

// LLMCaller is the minimal surface a chat completion provider needs to
// expose for summarization; the adapters in internal/protocol satisfy it
// through a thin wrapper so this package never imports a concrete provider.
type LLMCaller interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// SummarizePrompt is the instruction sent to the LLM when condensing
// history. It is deliberately generic: it names no product, no model.
const SummarizePrompt = "Summarize the following conversation excerpt into a short paragraph " +
	"that preserves any facts, decisions, file paths, and outstanding work a continuation " +
	"would need. Do not include meta-commentary about summarizing."

// DefaultMaxSummaryChars bounds how long a single summary message is
// allowed to be (spec §4.4). A summary that comes back longer than this is
// fed back into the summarizer as its own one-cycle input rather than kept
// verbatim, so a run of history never expands the context it was supposed
// to shrink.
const DefaultMaxSummaryChars = 2000

// maxSummaryRecursionDepth bounds the re-summarization in case a
// summarizer can never converge on a short-enough output (a misbehaving
// LLM echoing its input back, for instance); past this depth the output is
// truncated instead of recursed on again.
const maxSummaryRecursionDepth = 3

// boundSummary enforces maxChars on msg, recursing through resummarize (the
// same summarizer, invoked on its own prior output as a synthetic one-cycle
// input) until it fits or maxSummaryRecursionDepth is reached, at which
// point it truncates.
func boundSummary(ctx context.Context, resummarize func(context.Context, []Cycle, int) (*session.Message, error), msg *session.Message, maxChars, depth int) (*session.Message, error) {
	if maxChars <= 0 {
		maxChars = DefaultMaxSummaryChars
	}
	runes := []rune(msg.Text)
	if len(runes) <= maxChars {
		return msg, nil
	}
	if depth >= maxSummaryRecursionDepth {
		msg.Text = string(runes[:maxChars])
		return msg, nil
	}
	wrapped := []Cycle{{Messages: []*session.Message{msg}, Complete: true}}
	return resummarize(ctx, wrapped, depth+1)
}

// LLMSummarizer calls out to a chat model to produce the condensed message.
// If the call fails, callers should fall back to SimpleSummarizer rather
// than aborting context preparation (spec §4.4: summarization failure must
// never block the turn).
type LLMSummarizer struct {
	Caller LLMCaller

	// MaxSummaryChars overrides DefaultMaxSummaryChars.
	MaxSummaryChars int
}

func NewLLMSummarizer(caller LLMCaller) *LLMSummarizer {
	return &LLMSummarizer{Caller: caller, MaxSummaryChars: DefaultMaxSummaryChars}
}

func (s *LLMSummarizer) maxChars() int {
	if s.MaxSummaryChars > 0 {
		return s.MaxSummaryChars
	}
	return DefaultMaxSummaryChars
}

func (s *LLMSummarizer) Summarize(ctx context.Context, cycles []Cycle) (*session.Message, error) {
	return s.summarize(ctx, cycles, 0)
}

func (s *LLMSummarizer) summarize(ctx context.Context, cycles []Cycle, depth int) (*session.Message, error) {
	transcript := renderTranscript(cycles)
	text, err := s.Caller.Complete(ctx, SummarizePrompt, transcript)
	if err != nil {
		return nil, err
	}
	msg := session.NewSystemMessage(newSummaryID(), strings.TrimSpace(text))
	return boundSummary(ctx, s.summarize, msg, s.maxChars(), depth)
}

// SimpleSummarizer is the deterministic, LLM-free fallback: it produces a
// compact structural digest (message counts, roles, tool names used) rather
// than prose. It always succeeds, which is what makes it a safe fallback.
type SimpleSummarizer struct {
	// MaxSummaryChars overrides DefaultMaxSummaryChars.
	MaxSummaryChars int
}

func NewSimpleSummarizer() *SimpleSummarizer {
	return &SimpleSummarizer{MaxSummaryChars: DefaultMaxSummaryChars}
}

func (s *SimpleSummarizer) maxChars() int {
	if s.MaxSummaryChars > 0 {
		return s.MaxSummaryChars
	}
	return DefaultMaxSummaryChars
}

func (s *SimpleSummarizer) Summarize(ctx context.Context, cycles []Cycle) (*session.Message, error) {
	return s.summarize(ctx, cycles, 0)
}

func (s *SimpleSummarizer) summarize(ctx context.Context, cycles []Cycle, depth int) (*session.Message, error) {
	var userCount, assistantCount, toolCount int
	toolNames := make(map[string]bool)
	for _, c := range cycles {
		for _, m := range c.Messages {
			switch m.Role {
			case session.RoleUser:
				userCount++
			case session.RoleAssistant:
				assistantCount++
				for _, tc := range m.ToolCalls {
					toolNames[tc.Name] = true
				}
			case session.RoleTool:
				toolCount++
			}
		}
	}
	names := make([]string, 0, len(toolNames))
	for n := range toolNames {
		names = append(names, n)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[earlier history summarized: %d user message(s), %d assistant message(s), %d tool result(s)",
		userCount, assistantCount, toolCount)
	if len(names) > 0 {
		fmt.Fprintf(&b, ", tools used: %s", strings.Join(names, ", "))
	}
	b.WriteString("]")
	msg := session.NewSystemMessage(newSummaryID(), b.String())
	return boundSummary(ctx, s.summarize, msg, s.maxChars(), depth)
}

func renderTranscript(cycles []Cycle) string {
	var b strings.Builder
	for _, c := range cycles {
		for _, m := range c.Messages {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Text)
			for _, tc := range m.ToolCalls {
				fmt.Fprintf(&b, "  tool_call %s(%s)\n", tc.Name, tc.Arguments)
			}
		}
	}
	return b.String()
}

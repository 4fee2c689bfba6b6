package budget

import (
	"context"
	"fmt"

	"github.com/ngoclaw/agentcore/internal/session"
	"github.com/ngoclaw/agentcore/pkg/apperr"
)

// DefaultSummaryTriggerRatio is the fraction of a model's input budget at
// which the preparer starts summarizing history, used when a
// ContextPreparer is built without an explicit ratio (spec §6's
// summary_trigger_ratio option defaults to this value too).
const DefaultSummaryTriggerRatio = 0.6

// MinRecentCycles is the number of most-recent cycles that are never
// candidates for summarization or dropping, regardless of budget pressure —
// the engine always keeps at least this much verbatim recent context.
const MinRecentCycles = 2

// TokenUsageBreakdown reports the outcome of one Prepare call.
type TokenUsageBreakdown struct {
	Model          string
	Budget         int
	SystemTokens   int
	HistoryTokens  int
	TotalTokens    int
	WarnThreshold  bool
	HardThreshold  bool
	CyclesReplaced int
	CyclesDropped  int
}

func (u TokenUsageBreakdown) Ratio() float64 {
	if u.Budget <= 0 {
		return 1
	}
	return float64(u.TotalTokens) / float64(u.Budget)
}

// ContextPreparer implements the preparation algorithm of spec §4.2: count,
// compare against the model's input budget, summarize oldest complete
// cycles under pressure, drop oldest non-summarized cycles if summarizing
// alone isn't enough, and fail with BudgetExceeded if even that can't bring
// the turn under budget.
type ContextPreparer struct {
	Counter    Counter
	Registry   *Registry
	Summarizer Summarizer

	// SummaryTriggerRatio overrides DefaultSummaryTriggerRatio, wired from
	// internal/config.Config.SummaryTriggerRatio (spec §6) by the caller
	// that constructs this preparer.
	SummaryTriggerRatio float64
}

func NewContextPreparer(counter Counter, registry *Registry, summarizer Summarizer) *ContextPreparer {
	return &ContextPreparer{Counter: counter, Registry: registry, Summarizer: summarizer}
}

func (p *ContextPreparer) triggerRatio() float64 {
	if p.SummaryTriggerRatio > 0 {
		return p.SummaryTriggerRatio
	}
	return DefaultSummaryTriggerRatio
}

// Prepare returns the message list to actually send to the model: the
// system message(s) unconditionally, followed by as much history as fits,
// with older complete cycles condensed into summaries, and then dropped
// outright, as needed. It never splits an incomplete cycle, and it never
// touches any of the last MinRecentCycles cycles. If the turn still does
// not fit the model's input budget after both steps, it fails with
// apperr.BudgetExceeded rather than silently returning an over-budget list.
func (p *ContextPreparer) Prepare(ctx context.Context, model string, messages []*session.Message) ([]*session.Message, TokenUsageBreakdown, error) {
	var system []*session.Message
	var rest []*session.Message
	for _, m := range messages {
		if m.Role == session.RoleSystem {
			system = append(system, m)
		} else {
			rest = append(rest, m)
		}
	}

	limits := p.Registry.Resolve(model)
	budget := limits.InputBudget()
	threshold := p.triggerRatio() * float64(budget)

	cycles := Segment(rest)

	usage := func() TokenUsageBreakdown {
		sysTok := CountAll(p.Counter, system)
		histTok := CountAll(p.Counter, Flatten(cycles))
		total := sysTok + histTok
		return TokenUsageBreakdown{
			Model:         model,
			Budget:        budget,
			SystemTokens:  sysTok,
			HistoryTokens: histTok,
			TotalTokens:   total,
		}
	}
	applyThresholds := func(u *TokenUsageBreakdown) {
		u.WarnThreshold = budget > 0 && float64(u.TotalTokens) >= threshold*0.8
		u.HardThreshold = budget > 0 && float64(u.TotalTokens) >= threshold
	}

	u := usage()
	applyThresholds(&u)
	if !u.HardThreshold {
		return append(append([]*session.Message{}, system...), Flatten(cycles)...), u, nil
	}

	replaced := 0
	for u.HardThreshold && len(cycles) > MinRecentCycles {
		// Find the longest run of complete cycles at the front, up to but
		// not including the protected recent tail.
		frontEnd := 0
		limit := len(cycles) - MinRecentCycles
		for frontEnd < limit && cycles[frontEnd].Complete {
			frontEnd++
		}
		if frontEnd < 2 {
			// Either the oldest cycle in range is incomplete (frontEnd == 0,
			// can't summarize in isolation without splitting a tool-call
			// group), or there is only one cycle left to fold (frontEnd == 1,
			// summarizing it in place would replace one cycle with another
			// and never converge). Either way, stop and let the drop step
			// handle the remaining pressure.
			break
		}

		summary, err := p.Summarizer.Summarize(ctx, cycles[:frontEnd])
		if err != nil {
			fallback := NewSimpleSummarizer()
			summary, err = fallback.Summarize(ctx, cycles[:frontEnd])
			if err != nil {
				return nil, u, err
			}
		}
		summaryCycle := Cycle{Messages: []*session.Message{summary}, Complete: true}
		cycles = append([]Cycle{summaryCycle}, cycles[frontEnd:]...)
		replaced++

		u = usage()
		applyThresholds(&u)
	}

	// Step 4: summarization alone didn't bring the turn under budget — the
	// oldest cycle in range was incomplete, or budget pressure persists
	// even after every eligible run of cycles was folded into a summary.
	// Drop whole complete cycles outright, oldest first, rather than ship an
	// over-budget request. Incomplete cycles are skipped in place (dropping
	// one would discard an unmatched tool call with no result, which is
	// indistinguishable from corrupting the transcript) rather than halting
	// the whole step, so a stray orphaned cycle doesn't block cleanup of the
	// complete cycles around it.
	dropped := 0
	for u.HardThreshold && len(cycles) > MinRecentCycles {
		limit := len(cycles) - MinRecentCycles
		victim := -1
		for i := 0; i < limit; i++ {
			if cycles[i].Complete {
				victim = i
				break
			}
		}
		if victim == -1 {
			break
		}
		cycles = append(cycles[:victim], cycles[victim+1:]...)
		dropped++

		u = usage()
		applyThresholds(&u)
	}
	u.CyclesReplaced = replaced
	u.CyclesDropped = dropped

	// The trigger ratio governs when to start compacting, but the only
	// failure that actually matters is the real input budget (spec §8's
	// testable property is sum(tokens) <= input_budget, not the ratio).
	// Summarizing and dropping can legitimately stop above the trigger
	// threshold — that just means the turn still runs a little hot — as
	// long as it's under budget.
	if u.TotalTokens > budget {
		// Even the protected recent tail (or the newest cycle alone) does
		// not fit the model's input budget; there is nothing left to
		// compact without violating the no-split invariant.
		return nil, u, apperr.BudgetExceeded(fmt.Sprintf(
			"prepared context (%d tokens) exceeds input budget (%d) for model %s after summarizing and dropping history",
			u.TotalTokens, budget, model))
	}

	return append(append([]*session.Message{}, system...), Flatten(cycles)...), u, nil
}

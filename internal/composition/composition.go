// Package composition implements Wait(mode, subs...), the parallel
// sub-session fan-out named as an Open Question in spec.md §9 (resolved in
// SPEC_FULL.md §4). Grounded on original_source's
// crates/agent-core/src/composition/parallel.rs ParallelWait enum
// (All/Any/N), carried into the teacher's goroutine-and-channel style of
// internal/domain/service/agent_loop.go's parallel tool execution.
package composition

import (
	"context"

	"go.uber.org/zap"

	"github.com/ngoclaw/agentcore/pkg/apperr"
	"github.com/ngoclaw/agentcore/pkg/safego"
)

// Kind selects how many branches Wait must see complete before returning.
type Kind string

const (
	All Kind = "all"
	Any Kind = "any"
	N   Kind = "n"
)

// Mode pairs a Kind with the count N requires.
type Mode struct {
	Kind Kind
	N    int
}

func WaitAll() Mode    { return Mode{Kind: All} }
func WaitAny() Mode    { return Mode{Kind: Any} }
func WaitN(n int) Mode { return Mode{Kind: N, N: n} }

// Branch is one unit of parallel work, typically a sub-session's turn
// (session.NewSubSession plus an agent.Loop.Run drained to completion).
// It receives a context scoped to its own lifetime, derived from the
// context passed to Wait and cancelled when that branch's slot in cancels
// is invoked or the parent context ends.
type Branch func(ctx context.Context) (any, error)

// BranchResult is one branch's outcome, tagged with its original index so
// callers can correlate it back to the Branch that produced it.
type BranchResult struct {
	Index int
	Value any
	Err   error
}

// Result is what Wait returns: the branches that completed before the mode
// was satisfied, and a cancel func per branch (index-aligned with the
// branches Wait was given) so the caller can explicitly cancel stragglers.
// Wait itself never cancels a branch on the caller's behalf — per
// SPEC_FULL.md §4's decision, Any/N do not auto-cancel siblings, matching
// spec.md's general rule that cancellation is always explicit.
type Result struct {
	Completed []BranchResult
	Cancel    []context.CancelFunc
}

// Wait runs every branch concurrently and blocks until mode is satisfied:
// All waits for every branch, Any returns as soon as one branch completes,
// N returns as soon as mode.N branches have completed. The returned
// Result.Cancel lets the caller cancel branches still running past that
// point; Wait does not do so itself.
func Wait(ctx context.Context, logger *zap.Logger, mode Mode, branches ...Branch) (Result, error) {
	if len(branches) == 0 {
		return Result{}, apperr.InvalidArguments("composition: no branches given")
	}

	need := len(branches)
	switch mode.Kind {
	case All:
		need = len(branches)
	case Any:
		need = 1
	case N:
		if mode.N <= 0 || mode.N > len(branches) {
			return Result{}, apperr.InvalidArguments("composition: N out of range")
		}
		need = mode.N
	default:
		return Result{}, apperr.InvalidArguments("composition: unknown mode kind " + string(mode.Kind))
	}

	cancels := make([]context.CancelFunc, len(branches))
	done := make(chan BranchResult, len(branches))
	for i, b := range branches {
		branchCtx, cancel := context.WithCancel(ctx)
		cancels[i] = cancel
		idx, run := i, b
		safego.Go(logger, "composition-branch", func() {
			v, err := run(branchCtx)
			done <- BranchResult{Index: idx, Value: v, Err: err}
		})
	}

	completed := make([]BranchResult, 0, need)
	for len(completed) < need {
		select {
		case r := <-done:
			completed = append(completed, r)
		case <-ctx.Done():
			return Result{Completed: completed, Cancel: cancels}, apperr.Cancelled("composition: wait cancelled")
		}
	}
	return Result{Completed: completed, Cancel: cancels}, nil
}

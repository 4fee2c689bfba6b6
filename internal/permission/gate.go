// Package permission implements the approval policy gating tool execution
// (spec §4.8), generalized from the teacher's single boolean AskMode
// (internal/domain/tool.Policy/PolicyEnforcer) into the spec's four modes:
// Manual, AutoApprove, Whitelist, and AutoLoop.
package permission

import (
	"sync"

	"github.com/ngoclaw/agentcore/internal/tool"
)

// Decision is the gate's verdict for one call.
type Decision int

const (
	// Approved: the executor should run the call immediately.
	Approved Decision = iota
	// Suspended: the call must wait for an external approve/deny decision
	// before it runs (spec §4.8: surfaces as NeedClarification/approval).
	Suspended
	// Denied: the call is rejected outright (AutoLoop budget exhausted
	// forces manual approval instead of denial, per spec; true denial only
	// happens when a human resolves a Suspended call with "deny").
	Denied
)

// Mode is the policy family selected at the process level (spec §4.8).
type Mode int

const (
	ModeManual Mode = iota
	ModeAutoApprove
	ModeWhitelist
	ModeAutoLoop
)

// Policy is the process-level approval configuration.
type Policy struct {
	Mode Mode

	// Whitelist: names that auto-approve under ModeWhitelist.
	Whitelist map[string]bool

	// AutoLoop bounds.
	MaxDepth int
	MaxTools int
}

func NewManual() *Policy      { return &Policy{Mode: ModeManual} }
func NewAutoApprove() *Policy { return &Policy{Mode: ModeAutoApprove} }

func NewWhitelist(names ...string) *Policy {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return &Policy{Mode: ModeWhitelist, Whitelist: set}
}

func NewAutoLoop(maxDepth, maxTools int) *Policy {
	return &Policy{Mode: ModeAutoLoop, MaxDepth: maxDepth, MaxTools: maxTools}
}

// Gate applies a Policy to individual tool calls, tracking the running
// invocation count an AutoLoop policy is bounded by; the recursion depth is
// passed in by the caller on each Evaluate. One Gate instance is scoped to
// one runner/session; the count resets when a new runner is created for
// that session.
type Gate struct {
	mu          sync.Mutex
	policy      *Policy
	toolsCalled int
}

func NewGate(policy *Policy) *Gate {
	if policy == nil {
		policy = NewManual()
	}
	return &Gate{policy: policy}
}

// Evaluate decides what should happen to one call, given the tool's Kind
// (for SafeKinds short-circuiting) and the current recursion depth of the
// turn/round the call was emitted in.
func (g *Gate) Evaluate(t tool.Tool, depth int) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	if tool.SafeKinds[t.Kind()] {
		return Approved
	}

	switch g.policy.Mode {
	case ModeAutoApprove:
		return Approved

	case ModeWhitelist:
		if g.policy.Whitelist[t.Name()] {
			return Approved
		}
		return Suspended

	case ModeAutoLoop:
		if depth > g.policy.MaxDepth || g.toolsCalled >= g.policy.MaxTools {
			// Exceeding either bound forces manual approval (spec §4.8),
			// not denial — the model may still proceed with a human's OK.
			return Suspended
		}
		g.toolsCalled++
		return Approved

	default: // ModeManual
		return Suspended
	}
}

// ToolsCalled reports the running AutoLoop invocation count.
func (g *Gate) ToolsCalled() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.toolsCalled
}

// Reset clears the AutoLoop invocation counter, used when a runner starts a
// fresh turn sequence (e.g. a new top-level user message).
func (g *Gate) Reset() {
	g.mu.Lock()
	g.toolsCalled = 0
	g.mu.Unlock()
}

// DeniedResult is the synthetic failed ToolResult fed back to the model
// when a human resolves a suspended call with "deny" (spec §4.8).
func DeniedResult() *tool.Result {
	return &tool.Result{Success: false, Output: "denied", Error: "denied"}
}

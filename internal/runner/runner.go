// Package runner implements the per-session runner and runner registry
// described in spec §5 and named in the GLOSSARY: each session has exactly
// one active runner owning a cancellation token and a status, and the
// registry serializes overlapping requests to the same session id.
// Grounded on the teacher's internal/domain/service.StateMachine (status
// transitions, RWMutex discipline) generalized from "one process-wide
// agent run" to "one runner per session id".
package runner

import (
	"context"
	"sync"
	"time"

	"github.com/ngoclaw/agentcore/pkg/apperr"
)

// Status is the runner's lifecycle state (GLOSSARY: Runner).
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// GracePeriod bounds how long cancellation has to propagate before the
// runner is expected to reach StatusCancelled (spec §5, §8 scenario 6).
const GracePeriod = 500 * time.Millisecond

// Runner owns one session's cancellation token and status for the duration
// of a turn (or a chain of turns, for AutoLoop policies that keep going
// without new user input).
type Runner struct {
	mu        sync.RWMutex
	sessionID string
	status    Status
	cancel    context.CancelFunc
	round     int
}

// New creates a Runner bound to ctx's cancellation; cancel() — typically
// context.WithCancel's returned func — is stored so Cancel can be called
// independently of the context's own deadline.
func New(sessionID string, cancel context.CancelFunc) *Runner {
	return &Runner{sessionID: sessionID, status: StatusRunning, cancel: cancel}
}

func (r *Runner) SessionID() string { return r.sessionID }

func (r *Runner) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

func (r *Runner) Round() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.round
}

func (r *Runner) IncrementRound() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.round++
	return r.round
}

// setTerminal transitions to a terminal status exactly once; later calls
// are no-ops so a cancel racing a normal completion can't flip the final
// status back.
func (r *Runner) setTerminal(s Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status == StatusRunning {
		r.status = s
	}
}

// Complete marks the runner finished normally.
func (r *Runner) Complete() { r.setTerminal(StatusCompleted) }

// Fail marks the runner finished with an unrecoverable turn error.
func (r *Runner) Fail() { r.setTerminal(StatusFailed) }

// Cancel propagates cancellation to the provider stream, in-flight tools,
// and the storage writer (all of which must observe ctx.Done()), and
// transitions the runner to StatusCancelled. After cancellation, resuming
// the same session id requires the registry to create a new Runner.
func (r *Runner) Cancel() {
	r.setTerminal(StatusCancelled)
	if r.cancel != nil {
		r.cancel()
	}
}

// Registry maps session id to the single active Runner for that session,
// serializing overlapping requests (spec §5).
type Registry struct {
	mu      sync.RWMutex
	runners map[string]*Runner
}

func NewRegistry() *Registry {
	return &Registry{runners: make(map[string]*Runner)}
}

// Start creates and registers a new Runner for sessionID, or fails with
// AlreadyRunning if one is already active (not yet terminal).
func (reg *Registry) Start(sessionID string, cancel context.CancelFunc) (*Runner, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if existing, ok := reg.runners[sessionID]; ok && existing.Status() == StatusRunning {
		return nil, apperr.AlreadyRunning(sessionID)
	}
	r := New(sessionID, cancel)
	reg.runners[sessionID] = r
	return r, nil
}

// Get returns the current runner for a session, if any.
func (reg *Registry) Get(sessionID string) (*Runner, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.runners[sessionID]
	return r, ok
}

// Remove drops a session's runner entry entirely, e.g. after the caller
// has observed its terminal status and no longer needs it retained.
func (reg *Registry) Remove(sessionID string) {
	reg.mu.Lock()
	delete(reg.runners, sessionID)
	reg.mu.Unlock()
}

// CancelSession cancels the active runner for a session, if any, and
// reports whether one was found.
func (reg *Registry) CancelSession(sessionID string) bool {
	reg.mu.RLock()
	r, ok := reg.runners[sessionID]
	reg.mu.RUnlock()
	if !ok {
		return false
	}
	r.Cancel()
	return true
}

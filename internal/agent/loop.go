// Package agent implements the turn scheduler (spec §4.10): the state
// machine that ties the context preparer, protocol adapters, stream
// ingestor, tool executor, permission gate, and todo subsystem together
// into one session's turn. Directly grounded on the teacher's
// internal/domain/service/agent_loop.go (AgentLoop.Run/runLoop): kept the
// event-channel-returning Run signature, the step/round counter, and the
// panic-safe goroutine wrapper, generalized from one fixed LLM client to
// the three-protocol adapter model and the spec's explicit Prepare/Request/
// Stream/Decide/ToolCycle/Suspended states.
package agent

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ngoclaw/agentcore/internal/budget"
	"github.com/ngoclaw/agentcore/internal/eventlog"
	"github.com/ngoclaw/agentcore/internal/permission"
	"github.com/ngoclaw/agentcore/internal/protocol"
	"github.com/ngoclaw/agentcore/internal/runner"
	"github.com/ngoclaw/agentcore/internal/session"
	"github.com/ngoclaw/agentcore/internal/todo"
	"github.com/ngoclaw/agentcore/internal/tool"
	"github.com/ngoclaw/agentcore/pkg/apperr"
)

// Config holds the per-turn limits spec §4.10/§6 names.
type Config struct {
	Model           string
	MaxRounds       int
	TurnTimeout     time.Duration
	MaxOutputTokens int
	Temperature     float64
}

// DefaultConfig returns spec §4.10's stated defaults.
func DefaultConfig(model string) Config {
	return Config{
		Model:       model,
		MaxRounds:   50,
		TurnTimeout: 300 * time.Second,
	}
}

// ApprovalFunc resolves a Suspended tool call, blocking until a human (or
// whatever surface the host wires in) approves or denies it — the "awaiting
// permission resolution" suspension point of spec §5. A nil ApprovalFunc
// denies everything, the fail-safe default.
type ApprovalFunc func(ctx context.Context, sessionID string, call session.ToolCall) bool

// Loop is one session's turn scheduler. Fields are wired together by the
// caller (cmd/agentcore); the loop itself holds no global state.
type Loop struct {
	Session  *session.Session
	Preparer *budget.ContextPreparer
	Adapter  protocol.Adapter
	Tools    tool.Registry
	Executor *tool.Executor
	Gate     *permission.Gate
	Todos    *todo.Store
	Runner   *runner.Runner
	EventLog *eventlog.Store

	HTTPClient *http.Client
	BaseURL    string
	APIKey     string
	Config     Config

	Approve ApprovalFunc
	Logger  *zap.Logger
}

func newID(prefix string) string { return prefix + "-" + uuid.NewString() }

// Run drives one user message to completion (or a terminal error/round
// limit), returning a channel of Event the caller streams to its own
// consumer (CLI, TUI, HTTP/SSE bridge). The channel is closed when the
// turn ends, mirroring the teacher's Run returning a receive-only
// entity.AgentEvent channel.
func (l *Loop) Run(ctx context.Context, userText string) <-chan Event {
	events := make(chan Event, 64)

	go func() {
		defer close(events)
		defer func() {
			if r := recover(); r != nil {
				if l.Logger != nil {
					l.Logger.Error("agent loop panicked", zap.Any("panic", r))
				}
				l.emit(events, ErrorEvent(fmt.Sprintf("internal error: %v", r)))
			}
		}()

		turnCtx := ctx
		if l.Config.TurnTimeout > 0 {
			var cancel context.CancelFunc
			turnCtx, cancel = context.WithTimeout(ctx, l.Config.TurnTimeout)
			defer cancel()
		}

		l.Session.AppendMessage(session.NewUserMessage(newID("msg"), userText, nil))
		l.runRounds(turnCtx, events)
	}()

	return events
}

func (l *Loop) emit(events chan<- Event, ev Event) {
	events <- ev
	if l.EventLog != nil {
		if err := l.EventLog.AppendEvent(l.Session.ID(), ev); err != nil && l.Logger != nil {
			// Event-append failures are warnings, not fatal to the turn (spec §4.11).
			l.Logger.Warn("event log append failed", zap.Error(err))
		}
	}
}

func (l *Loop) maxRounds() int {
	if l.Config.MaxRounds > 0 {
		return l.Config.MaxRounds
	}
	return 50
}

// runRounds implements the Prepare→Request→Stream→Decide→ToolCycle loop of
// spec §4.10. It returns once the turn reaches Complete, a terminal Error,
// or ctx is cancelled.
func (l *Loop) runRounds(ctx context.Context, events chan<- Event) {
	for round := 1; ; round++ {
		if err := ctx.Err(); err != nil {
			// Cancellation is terminal and not itself an error to the
			// caller that requested it (spec §5); emit nothing further and
			// leave the on-disk snapshot at its pre-turn state.
			return
		}
		if round > l.maxRounds() {
			l.emit(events, ErrorEvent("round limit"))
			return
		}
		if l.Runner != nil {
			l.Runner.IncrementRound()
		}

		// --- Prepare ---
		prepared, _, err := l.Preparer.Prepare(ctx, l.Config.Model, l.Session.Messages())
		if err != nil {
			l.emit(events, ErrorEvent("context preparation failed: "+err.Error()))
			return
		}
		prepared = l.injectTodoFragment(prepared)

		req := protocol.Request{
			Model:           l.Config.Model,
			Messages:        prepared,
			Tools:           l.Tools.List(),
			MaxOutputTokens: l.Config.MaxOutputTokens,
			Temperature:     l.Config.Temperature,
		}

		// --- Request + Stream ---
		result, err := l.streamTurn(ctx, req, func(tok string) {
			l.emit(events, TokenEvent(tok))
		})
		if err != nil {
			if apperr.Is(err, apperr.CodeCancelled) || ctx.Err() != nil {
				return
			}
			l.emit(events, ErrorEvent(err.Error()))
			return
		}

		// --- Decide ---
		if len(result.ToolCalls) == 0 {
			l.Session.AppendMessage(session.NewAssistantMessage(newID("msg"), result.Text, nil))
			l.finalize(events, result.Usage)
			return
		}

		assistantMsg := session.NewAssistantMessage(newID("msg"), result.Text, result.ToolCalls)
		l.Session.AppendMessage(assistantMsg)

		// --- ToolCycle (with Suspended sub-state) ---
		if !l.runToolCycle(ctx, events, round, result.ToolCalls) {
			return
		}
		// Loop control: fall through to the next round's Prepare.
	}
}

// runToolCycle executes every tool call the model emitted this round,
// consulting the Permission Gate first, and appends results to the session
// in the model's original call order regardless of completion order (spec
// §4.10 step 5, §5 ordering guarantees). It returns false if the turn
// should stop (cancellation).
func (l *Loop) runToolCycle(ctx context.Context, events chan<- Event, round int, calls []session.ToolCall) bool {
	toExecute := make([]session.ToolCall, 0, len(calls))
	execIndex := make([]int, 0, len(calls))
	results := make([]tool.CallResult, len(calls))

	for i, call := range calls {
		if ctx.Err() != nil {
			return false
		}
		t, ok := l.Tools.Get(call.Name)
		if !ok {
			results[i] = tool.CallResult{Call: call, Err: apperr.New(apperr.CodeNotFound, "unknown tool: "+call.Name)}
			continue
		}

		decision := l.Gate.Evaluate(t, round)
		if decision == permission.Suspended {
			l.emit(events, ApprovalRequiredEvent(call.ID, call.Name, call.Arguments))
			approve := l.Approve
			approved := false
			if approve != nil {
				approved = approve(ctx, l.Session.ID(), call)
			}
			if !approved {
				results[i] = tool.CallResult{Call: call, Result: permission.DeniedResult()}
				continue
			}
			decision = permission.Approved
		}
		if decision != permission.Approved {
			results[i] = tool.CallResult{Call: call, Result: permission.DeniedResult()}
			continue
		}

		l.emit(events, ToolStartEvent(call.ID, call.Name, call.Arguments))
		toExecute = append(toExecute, call)
		execIndex = append(execIndex, i)
	}

	if len(toExecute) > 0 {
		execResults := l.Executor.ExecuteAll(ctx, toExecute)
		for j, r := range execResults {
			results[execIndex[j]] = r
		}
	}

	for i, call := range calls {
		r := results[i]
		msg := r.ToMessage(newID("msg"))
		l.Session.AppendMessage(msg)
		if r.Err != nil {
			l.emit(events, ToolErrorEvent(call.ID, r.Err.Error()))
		} else {
			l.emit(events, ToolCompleteEvent(call.ID, r.Result.DisplayOrOutput()))
		}
	}
	return true
}

// injectTodoFragment appends the session's rendered todo list, if any, to
// the prepared message list as a trailing system-role message, so it rides
// along with this request without being persisted into the session itself
// (spec §4.10 step 1: "inject the current todo fragment").
func (l *Loop) injectTodoFragment(prepared []*session.Message) []*session.Message {
	if l.Todos == nil {
		return prepared
	}
	rendered := l.Todos.Render(l.Session.ID())
	if rendered == "" {
		return prepared
	}
	out := make([]*session.Message, 0, len(prepared)+1)
	out = append(out, prepared...)
	out = append(out, session.NewSystemMessage(newID("todo"), rendered))
	return out
}

func (l *Loop) finalize(events chan<- Event, usage Usage) {
	if l.EventLog != nil {
		snap := eventlog.Snapshot{
			SessionID: l.Session.ID(),
			Messages:  l.Session.Messages(),
			ParentID:  l.Session.ParentID(),
			Depth:     l.Session.Depth(),
		}
		if err := l.EventLog.WriteSnapshot(snap); err != nil {
			// Snapshot write failure is fatal to the turn (spec §4.11): the
			// caller must never see Complete for a turn whose result wasn't
			// durably recorded, so the write happens before anything is
			// emitted, and a failure here surfaces as Error instead.
			if l.Logger != nil {
				l.Logger.Error("snapshot write failed", zap.Error(err))
			}
			l.emit(events, ErrorEvent("snapshot write failed: "+err.Error()))
			if l.Runner != nil {
				l.Runner.Fail()
			}
			return
		}
	}
	l.emit(events, CompleteEvent(usage))
	if l.Runner != nil {
		l.Runner.Complete()
	}
}

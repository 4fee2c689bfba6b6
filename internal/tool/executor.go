package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ngoclaw/agentcore/internal/session"
	"github.com/ngoclaw/agentcore/pkg/apperr"
)

// CallResult pairs a tool call with its outcome, keeping the call's original
// index so parallel execution can be reassembled in request order.
type CallResult struct {
	Call     session.ToolCall
	Result   *Result
	Err      error
	Duration time.Duration
}

// Executor validates arguments, dispatches to the registered Tool, and runs
// independent calls from one assistant turn concurrently under a bounded
// semaphore (spec §4.7: "tool calls within one assistant turn that do not
// depend on each other execute in parallel; results are reassembled in the
// model's original call order").
type Executor struct {
	Registry       Registry
	MaxParallel    int
	ToolTimeout    time.Duration
	MaxOutputChars int
	Logger         *zap.Logger
}

// DefaultToolTimeout is the per-invocation timeout applied when the caller
// doesn't override it (spec §4.10, §6's tool_timeout_secs: u32 (60)).
const DefaultToolTimeout = 60 * time.Second

func NewExecutor(registry Registry, logger *zap.Logger) *Executor {
	return &Executor{
		Registry:       registry,
		MaxParallel:    4,
		ToolTimeout:    DefaultToolTimeout,
		MaxOutputChars: 20_000,
		Logger:         logger,
	}
}

// ExecuteOne dispatches a single tool call: parses its raw JSON arguments,
// validates required parameters against the tool's schema, and executes it
// under ToolTimeout.
func (e *Executor) ExecuteOne(ctx context.Context, call session.ToolCall) (*Result, error) {
	t, ok := e.Registry.Get(call.Name)
	if !ok {
		return nil, apperr.New(apperr.CodeNotFound, "unknown tool: "+call.Name)
	}

	args := map[string]any{}
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return nil, apperr.Wrap(apperr.CodeInvalidArguments, "tool arguments are not valid JSON", err)
		}
	}
	if err := validateRequired(t.Schema(), args); err != nil {
		return nil, err
	}

	callCtx := ctx
	if e.ToolTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.ToolTimeout)
		defer cancel()
	}

	result, err := t.Execute(callCtx, args)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeToolExecution, "tool "+call.Name+" failed", err)
	}
	if result != nil {
		result.Output = truncate(result.Output, e.MaxOutputChars)
	}
	return result, nil
}

// ExecuteAll runs every call concurrently, bounded by MaxParallel, and
// returns results in the same order the calls were given in.
func (e *Executor) ExecuteAll(ctx context.Context, calls []session.ToolCall) []CallResult {
	results := make([]CallResult, len(calls))
	if len(calls) == 0 {
		return results
	}

	max := e.MaxParallel
	if max <= 0 {
		max = 1
	}
	sem := make(chan struct{}, max)
	var wg sync.WaitGroup

	for i, call := range calls {
		wg.Add(1)
		go func(idx int, c session.ToolCall) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[idx] = CallResult{Call: c, Err: ctx.Err()}
				return
			}

			start := time.Now()
			res, err := e.ExecuteOne(ctx, c)
			results[idx] = CallResult{Call: c, Result: res, Err: err, Duration: time.Since(start)}
			if err != nil && e.Logger != nil {
				e.Logger.Warn("tool execution failed", zap.String("tool", c.Name), zap.Error(err))
			}
		}(i, call)
	}
	wg.Wait()
	return results
}

// ToMessage converts a CallResult into the Tool message appended to the
// session, formatting execution errors as a failed-tool observation rather
// than propagating the Go error to the model.
func (r CallResult) ToMessage(id string) *session.Message {
	if r.Err != nil {
		return session.NewToolResultMessage(id, r.Call.ID, fmt.Sprintf("tool %s failed: %v", r.Call.Name, r.Err), false)
	}
	text := r.Result.DisplayOrOutput()
	return session.NewToolResultMessage(id, r.Call.ID, text, r.Result.Success)
}

func validateRequired(schema map[string]any, args map[string]any) error {
	if schema == nil {
		return nil
	}
	raw, ok := schema["required"]
	if !ok {
		return nil
	}
	required, ok := raw.([]string)
	if !ok {
		if list, ok2 := raw.([]any); ok2 {
			for _, v := range list {
				if name, ok3 := v.(string); ok3 {
					if _, present := args[name]; !present {
						return apperr.InvalidArguments("missing required argument: " + name)
					}
				}
			}
		}
		return nil
	}
	for _, name := range required {
		if _, present := args[name]; !present {
			return apperr.InvalidArguments("missing required argument: " + name)
		}
	}
	return nil
}

func truncate(s string, max int) string {
	if max <= 0 || len([]rune(s)) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max]) + fmt.Sprintf("\n...[truncated, %d characters omitted]", len(r)-max)
}

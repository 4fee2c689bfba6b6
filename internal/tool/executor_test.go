package tool

import (
	"context"
	"testing"
	"time"

	"github.com/ngoclaw/agentcore/internal/session"
)

// === fakeTool ===

type fakeTool struct {
	name    string
	kind    Kind
	schema  map[string]any
	delay   time.Duration
	result  *Result
	err     error
	callLog *[]string
}

func (f *fakeTool) Name() string             { return f.name }
func (f *fakeTool) Description() string      { return "fake" }
func (f *fakeTool) Kind() Kind               { return f.kind }
func (f *fakeTool) Schema() map[string]any   { return f.schema }
func (f *fakeTool) Execute(ctx context.Context, args map[string]any) (*Result, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.callLog != nil {
		*f.callLog = append(*f.callLog, f.name)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newExecutorWithTools(t *testing.T, tools ...Tool) *Executor {
	t.Helper()
	reg := NewInMemoryRegistry()
	for _, tl := range tools {
		if err := reg.Register(tl); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	return NewExecutor(reg, nil)
}

func TestExecuteOne_UnknownToolReturnsNotFound(t *testing.T) {
	e := newExecutorWithTools(t)
	_, err := e.ExecuteOne(context.Background(), session.ToolCall{ID: "c1", Name: "missing", Arguments: "{}"})
	if err == nil {
		t.Fatal("expected error for unknown tool")
	}
}

func TestExecuteOne_MissingRequiredArgument(t *testing.T) {
	e := newExecutorWithTools(t, &fakeTool{
		name:   "read_file",
		kind:   KindRead,
		schema: map[string]any{"required": []string{"path"}},
		result: &Result{Output: "ok", Success: true},
	})
	_, err := e.ExecuteOne(context.Background(), session.ToolCall{ID: "c1", Name: "read_file", Arguments: "{}"})
	if err == nil {
		t.Fatal("expected missing-argument error")
	}
}

func TestExecuteOne_InvalidJSONArguments(t *testing.T) {
	e := newExecutorWithTools(t, &fakeTool{name: "t", result: &Result{Success: true}})
	_, err := e.ExecuteOne(context.Background(), session.ToolCall{ID: "c1", Name: "t", Arguments: "not json"})
	if err == nil {
		t.Fatal("expected JSON parse error")
	}
}

func TestExecuteOne_Success(t *testing.T) {
	e := newExecutorWithTools(t, &fakeTool{
		name:   "read_file",
		schema: map[string]any{"required": []string{"path"}},
		result: &Result{Output: "file contents", Success: true},
	})
	res, err := e.ExecuteOne(context.Background(), session.ToolCall{ID: "c1", Name: "read_file", Arguments: `{"path":"a.go"}`})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Output != "file contents" {
		t.Errorf("unexpected output: %q", res.Output)
	}
}

func TestExecuteAll_PreservesOriginalOrderUnderConcurrency(t *testing.T) {
	var log []string
	slow := &fakeTool{name: "slow", delay: 30 * time.Millisecond, result: &Result{Output: "slow-done", Success: true}, callLog: &log}
	fast := &fakeTool{name: "fast", result: &Result{Output: "fast-done", Success: true}, callLog: &log}
	e := newExecutorWithTools(t, slow, fast)
	e.MaxParallel = 4

	calls := []session.ToolCall{
		{ID: "c1", Name: "slow", Arguments: "{}"},
		{ID: "c2", Name: "fast", Arguments: "{}"},
	}
	results := e.ExecuteAll(context.Background(), calls)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Call.ID != "c1" || results[1].Call.ID != "c2" {
		t.Errorf("results out of request order: %+v", results)
	}
	if results[0].Result.Output != "slow-done" || results[1].Result.Output != "fast-done" {
		t.Errorf("unexpected outputs: %+v", results)
	}
}

func TestExecuteAll_ContextCancelledMidFlight(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := newExecutorWithTools(t, &fakeTool{name: "t", delay: time.Second, result: &Result{Success: true}})
	results := e.ExecuteAll(ctx, []session.ToolCall{{ID: "c1", Name: "t", Arguments: "{}"}})
	if results[0].Err == nil {
		t.Error("expected cancellation error")
	}
}

func TestCallResult_ToMessage_FormatsFailureWithoutPanicking(t *testing.T) {
	r := CallResult{Call: session.ToolCall{ID: "c1", Name: "t"}, Err: context.DeadlineExceeded}
	msg := r.ToMessage("m1")
	if msg.Role != session.RoleTool || msg.Success {
		t.Errorf("expected failed tool message, got %+v", msg)
	}
}

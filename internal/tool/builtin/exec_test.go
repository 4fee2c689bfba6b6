package builtin

import (
	"context"
	"strings"
	"testing"
)

func TestExecuteCommandToolRunsEcho(t *testing.T) {
	ws := newTestWorkspace(t)
	res, err := NewExecuteCommandTool(ws).Execute(context.Background(), map[string]any{"command": "echo hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success || strings.TrimSpace(res.Output) != "hi" {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestExecuteCommandToolReportsNonZeroExit(t *testing.T) {
	ws := newTestWorkspace(t)
	res, err := NewExecuteCommandTool(ws).Execute(context.Background(), map[string]any{"command": "exit 3"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Error("expected Success=false for nonzero exit")
	}
	if res.Metadata["exit_code"] != 3 {
		t.Errorf("expected exit_code=3, got %+v", res.Metadata)
	}
}

func TestSleepToolZeroSecondsReturnsImmediately(t *testing.T) {
	tool := &SleepTool{MaxSeconds: 0}
	res, err := tool.Execute(context.Background(), map[string]any{"seconds": float64(0)})
	if err != nil || !res.Success {
		t.Fatalf("unexpected: %v %+v", err, res)
	}
	if res.Output != "slept 0s" {
		t.Errorf("expected immediate return for 0 seconds, got %q", res.Output)
	}
}

func TestSleepToolHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := NewSleepTool().Execute(ctx, map[string]any{"seconds": float64(5)})
	if err == nil {
		t.Fatal("expected context error")
	}
	if res.Success {
		t.Error("expected Success=false when cancelled")
	}
}

func TestTerminalSessionToolCombinesStreams(t *testing.T) {
	ws := newTestWorkspace(t)
	res, err := NewTerminalSessionTool(ws).Execute(context.Background(), map[string]any{"command": "echo out; echo err 1>&2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success || !strings.Contains(res.Output, "out") || !strings.Contains(res.Output, "err") {
		t.Errorf("expected combined stdout/stderr, got %+v", res)
	}
}

package builtin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func recordingSpawn(t *testing.T, calls *int) SpawnFunc {
	t.Helper()
	return func(_ context.Context, task, systemPrompt string, maxRounds int) (SubAgentOutcome, error) {
		*calls++
		return SubAgentOutcome{
			Text:      "did: " + task,
			Rounds:    maxRounds,
			ToolsUsed: []string{"read_file"},
		}, nil
	}
}

func TestSubAgentToolRunsTaskAndFormatsResult(t *testing.T) {
	calls := 0
	tool := NewSubAgentTool(recordingSpawn(t, &calls), 10)

	res, err := tool.Execute(context.Background(), map[string]any{"task": "audit the repo"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if calls != 1 {
		t.Fatalf("expected Spawn to be called once, got %d", calls)
	}
	if !strings.Contains(res.Output, "did: audit the repo") {
		t.Errorf("expected output to contain the sub-agent's answer, got %q", res.Output)
	}
	if !strings.Contains(res.Output, "=== Sub-Agent Result ===") {
		t.Errorf("expected the teacher-style result banner, got %q", res.Output)
	}
}

func TestSubAgentToolRequiresTask(t *testing.T) {
	tool := NewSubAgentTool(recordingSpawn(t, new(int)), 10)
	res, err := tool.Execute(context.Background(), map[string]any{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Error("expected failure when task is missing")
	}
}

func TestSubAgentToolRefusesPastDepthLimit(t *testing.T) {
	calls := 0
	tool := NewSubAgentTool(recordingSpawn(t, &calls), 10)
	ctx := context.WithValue(context.Background(), depthKey{}, maxSubAgentDepth)

	res, err := tool.Execute(ctx, map[string]any{"task": "go deeper"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Error("expected failure past the nesting depth limit")
	}
	if calls != 0 {
		t.Error("expected Spawn not to be called once the depth limit is hit")
	}
}

func TestSubAgentToolPropagatesSpawnFailure(t *testing.T) {
	spawn := func(context.Context, string, string, int) (SubAgentOutcome, error) {
		return SubAgentOutcome{}, errors.New("provider unreachable")
	}
	tool := NewSubAgentTool(spawn, 10)

	res, err := tool.Execute(context.Background(), map[string]any{"task": "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success || res.Error == "" {
		t.Fatalf("expected a failed result carrying the spawn error, got %+v", res)
	}
}

func TestSubAgentToolClampsExcessiveMaxSteps(t *testing.T) {
	var gotMaxRounds int
	spawn := func(_ context.Context, _, _ string, maxRounds int) (SubAgentOutcome, error) {
		gotMaxRounds = maxRounds
		return SubAgentOutcome{Text: "ok"}, nil
	}
	tool := NewSubAgentTool(spawn, 10)

	if _, err := tool.Execute(context.Background(), map[string]any{"task": "x", "max_steps": float64(1000)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotMaxRounds != 20 {
		t.Errorf("expected max_steps clamped to 2x default (20), got %d", gotMaxRounds)
	}
}

func TestMultiSpawnToolWaitsForAllByDefault(t *testing.T) {
	calls := 0
	tool := NewMultiSpawnTool(recordingSpawn(t, &calls), nil, 10)

	res, err := tool.Execute(context.Background(), map[string]any{
		"tasks": []any{"task one", "task two", "task three"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if calls != 3 {
		t.Fatalf("expected every branch spawned, got %d calls", calls)
	}
	if completed := res.Metadata["completed"]; completed != 3 {
		t.Errorf("expected 3 completed branches, got %v", completed)
	}
}

func TestMultiSpawnToolAnyModeReturnsEarly(t *testing.T) {
	spawn := func(ctx context.Context, task, _ string, _ int) (SubAgentOutcome, error) {
		if task == "slow" {
			<-ctx.Done() // only unblocks once the fast branch satisfies "any" and its own ctx is cancelled
			return SubAgentOutcome{}, ctx.Err()
		}
		return SubAgentOutcome{Text: "fast done"}, nil
	}
	tool := NewMultiSpawnTool(spawn, nil, 10)

	res, err := tool.Execute(context.Background(), map[string]any{
		"tasks": []any{"fast", "slow"},
		"mode":  "any",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success once one branch completes, got %+v", res)
	}
	if res.Metadata["completed"] != 1 {
		t.Errorf("expected exactly 1 completed branch under any mode, got %v", res.Metadata["completed"])
	}
}

func TestMultiSpawnToolRejectsInvalidN(t *testing.T) {
	tool := NewMultiSpawnTool(recordingSpawn(t, new(int)), nil, 10)
	res, err := tool.Execute(context.Background(), map[string]any{
		"tasks": []any{"a", "b"},
		"mode":  "n",
		"n":     float64(5),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Error("expected failure when n exceeds the task count")
	}
}

func TestMultiSpawnToolRequiresNonEmptyTasks(t *testing.T) {
	tool := NewMultiSpawnTool(recordingSpawn(t, new(int)), nil, 10)
	res, err := tool.Execute(context.Background(), map[string]any{"tasks": []any{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Error("expected failure for an empty tasks array")
	}
}

func TestMultiSpawnToolRefusesPastDepthLimit(t *testing.T) {
	calls := 0
	tool := NewMultiSpawnTool(recordingSpawn(t, &calls), nil, 10)
	ctx := context.WithValue(context.Background(), depthKey{}, maxSubAgentDepth)

	res, err := tool.Execute(ctx, map[string]any{"tasks": []any{"x"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success || calls != 0 {
		t.Errorf("expected refusal with no spawns past the depth limit, got success=%v calls=%d", res.Success, calls)
	}
}

func TestMultiSpawnToolReportsPartialFailures(t *testing.T) {
	spawn := func(_ context.Context, task, _ string, _ int) (SubAgentOutcome, error) {
		if task == "bad" {
			return SubAgentOutcome{}, fmt.Errorf("boom")
		}
		return SubAgentOutcome{Text: "ok"}, nil
	}
	tool := NewMultiSpawnTool(spawn, nil, 10)

	res, err := tool.Execute(context.Background(), map[string]any{"tasks": []any{"good", "bad"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Error("expected overall failure when any branch under all-mode errors")
	}
	if res.Metadata["failed"] != 1 {
		t.Errorf("expected 1 failed branch recorded, got %v", res.Metadata["failed"])
	}
}

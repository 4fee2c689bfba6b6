package builtin

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ngoclaw/agentcore/internal/composition"
	"github.com/ngoclaw/agentcore/internal/tool"
)

// depthKey tracks sub-agent nesting depth through ctx, mirroring the
// teacher's subagent_tool.go depthKey pattern.
type depthKey struct{}

// maxSubAgentDepth bounds how deep spawn_agent/spawn_agents can nest before
// refusing to spawn further, the same two-level cap the teacher enforces.
const maxSubAgentDepth = 2

// SubAgentOutcome is one completed sub-agent run, reported back up to the
// tool that spawned it.
type SubAgentOutcome struct {
	Text      string
	Rounds    int
	ToolsUsed []string
}

// SpawnFunc runs one sub-session's agent.Loop to completion against an
// isolated session.NewSubSession and returns its final answer plus basic
// usage metadata. Implemented by cmd/agentcore, which owns the provider
// adapter, tool registry, and budget wiring a nested loop needs — this
// package only knows how to ask for one.
type SpawnFunc func(ctx context.Context, task, systemPrompt string, maxRounds int) (SubAgentOutcome, error)

// SubAgentTool delegates a single sub-task to an independent agent sharing
// the same tool surface (spec §4's sub-session fan-out).
type SubAgentTool struct {
	Spawn            SpawnFunc
	DefaultMaxRounds int
}

func NewSubAgentTool(spawn SpawnFunc, defaultMaxRounds int) *SubAgentTool {
	if defaultMaxRounds <= 0 {
		defaultMaxRounds = 25
	}
	return &SubAgentTool{Spawn: spawn, DefaultMaxRounds: defaultMaxRounds}
}

func (t *SubAgentTool) Name() string    { return "spawn_agent" }
func (t *SubAgentTool) Kind() tool.Kind { return tool.KindExecute }

func (t *SubAgentTool) Description() string {
	return "Delegate a sub-task to an independent agent with access to all the same tools. " +
		"Use this for a complex sub-task that benefits from focused, isolated execution. " +
		"The sub-agent runs its own loop and returns its final answer."
}

func (t *SubAgentTool) Schema() map[string]any {
	return schema(map[string]any{
		"task":          strProp("a clear description of the sub-task for the agent to complete"),
		"system_prompt": strProp("optional system prompt giving the sub-agent a specific role or context"),
		"max_steps":     intProp(fmt.Sprintf("maximum reasoning rounds for the sub-agent (default: %d)", t.DefaultMaxRounds)),
	}, "task")
}

func (t *SubAgentTool) Execute(ctx context.Context, args map[string]any) (*tool.Result, error) {
	task := argStr(args, "task")
	if task == "" {
		return &tool.Result{Success: false, Error: "task is required"}, nil
	}
	depth, _ := ctx.Value(depthKey{}).(int)
	if depth >= maxSubAgentDepth {
		return &tool.Result{Success: false, Error: "sub-agent nesting depth limit reached"}, nil
	}

	maxRounds := clampMaxRounds(args, t.DefaultMaxRounds)
	subCtx := context.WithValue(ctx, depthKey{}, depth+1)

	outcome, err := t.Spawn(subCtx, task, argStr(args, "system_prompt"), maxRounds)
	if err != nil {
		return &tool.Result{Success: false, Error: err.Error()}, nil
	}
	return &tool.Result{
		Output:  formatSubAgentResult(outcome),
		Success: true,
		Metadata: map[string]any{
			"rounds":     outcome.Rounds,
			"tools_used": outcome.ToolsUsed,
		},
	}, nil
}

// MultiSpawnTool fans multiple sub-tasks out over composition.Wait, letting
// the caller ask for every branch (all), the first to finish (any), or the
// first N — the parallel sub-session composition modes SPEC_FULL.md resolves
// spec.md §9's open question with.
type MultiSpawnTool struct {
	Spawn            SpawnFunc
	Logger           *zap.Logger
	DefaultMaxRounds int
}

func NewMultiSpawnTool(spawn SpawnFunc, logger *zap.Logger, defaultMaxRounds int) *MultiSpawnTool {
	if defaultMaxRounds <= 0 {
		defaultMaxRounds = 25
	}
	return &MultiSpawnTool{Spawn: spawn, Logger: logger, DefaultMaxRounds: defaultMaxRounds}
}

func (t *MultiSpawnTool) Name() string    { return "spawn_agents" }
func (t *MultiSpawnTool) Kind() tool.Kind { return tool.KindExecute }

func (t *MultiSpawnTool) Description() string {
	return "Delegate several independent sub-tasks to separate agents running concurrently, " +
		"waiting for either all of them, the first one, or the first N to finish. " +
		"Use this to parallelize research or exploration across unrelated sub-tasks."
}

func (t *MultiSpawnTool) Schema() map[string]any {
	return schema(map[string]any{
		"tasks":         map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "one description per sub-task to run concurrently"},
		"mode":          strProp("all | any | n — which branches to wait for before returning (default: all)"),
		"n":             intProp("branch count to wait for when mode is \"n\""),
		"system_prompt": strProp("optional system prompt applied to every sub-agent"),
		"max_steps":     intProp(fmt.Sprintf("maximum reasoning rounds per sub-agent (default: %d)", t.DefaultMaxRounds)),
	}, "tasks")
}

func (t *MultiSpawnTool) Execute(ctx context.Context, args map[string]any) (*tool.Result, error) {
	rawTasks, _ := args["tasks"].([]any)
	if len(rawTasks) == 0 {
		return &tool.Result{Success: false, Error: "tasks must be a non-empty array"}, nil
	}
	depth, _ := ctx.Value(depthKey{}).(int)
	if depth >= maxSubAgentDepth {
		return &tool.Result{Success: false, Error: "sub-agent nesting depth limit reached"}, nil
	}

	mode, err := modeFromArgs(args, len(rawTasks))
	if err != nil {
		return &tool.Result{Success: false, Error: err.Error()}, nil
	}

	systemPrompt := argStr(args, "system_prompt")
	maxRounds := clampMaxRounds(args, t.DefaultMaxRounds)
	subCtx := context.WithValue(ctx, depthKey{}, depth+1)

	branches := make([]composition.Branch, 0, len(rawTasks))
	for _, raw := range rawTasks {
		task, _ := raw.(string)
		branches = append(branches, func(bctx context.Context) (any, error) {
			return t.Spawn(bctx, task, systemPrompt, maxRounds)
		})
	}

	result, err := composition.Wait(subCtx, t.Logger, mode, branches...)
	cancelStragglers(result)
	if err != nil {
		return &tool.Result{Success: false, Error: err.Error()}, nil
	}
	return formatFanOutResult(result, len(branches)), nil
}

// cancelStragglers cancels every branch that did not finish before mode was
// satisfied. composition.Wait deliberately leaves this to the caller (spec's
// explicit-cancellation rule); left uncalled, an any/n fan-out would leave
// its losing branches running for as long as the tool call's own context
// stays open instead of stopping the moment this tool returns.
func cancelStragglers(result composition.Result) {
	done := make(map[int]bool, len(result.Completed))
	for _, c := range result.Completed {
		done[c.Index] = true
	}
	for i, cancel := range result.Cancel {
		if !done[i] {
			cancel()
		}
	}
}

func modeFromArgs(args map[string]any, taskCount int) (composition.Mode, error) {
	switch argStr(args, "mode") {
	case "", "all":
		return composition.WaitAll(), nil
	case "any":
		return composition.WaitAny(), nil
	case "n":
		n := argInt(args, "n", taskCount)
		if n <= 0 || n > taskCount {
			return composition.Mode{}, fmt.Errorf("n must be between 1 and %d", taskCount)
		}
		return composition.WaitN(n), nil
	default:
		return composition.Mode{}, fmt.Errorf("mode must be one of all, any, n")
	}
}

func clampMaxRounds(args map[string]any, def int) int {
	maxRounds := argInt(args, "max_steps", def)
	if maxRounds > def*2 {
		maxRounds = def * 2
	}
	if maxRounds <= 0 {
		maxRounds = def
	}
	return maxRounds
}

func formatSubAgentResult(outcome SubAgentOutcome) string {
	var b strings.Builder
	b.WriteString("=== Sub-Agent Result ===\n\n")
	b.WriteString(outcome.Text)
	b.WriteString("\n\n--- Execution Summary ---\n")
	fmt.Fprintf(&b, "Rounds: %d\n", outcome.Rounds)
	if len(outcome.ToolsUsed) > 0 {
		fmt.Fprintf(&b, "Tools used: %s\n", strings.Join(outcome.ToolsUsed, ", "))
	}
	return b.String()
}

func formatFanOutResult(result composition.Result, total int) *tool.Result {
	var b strings.Builder
	b.WriteString("=== Sub-Agent Fan-Out Result ===\n\n")
	failed := 0
	for _, c := range result.Completed {
		fmt.Fprintf(&b, "--- task %d ---\n", c.Index)
		if c.Err != nil {
			failed++
			fmt.Fprintf(&b, "error: %v\n\n", c.Err)
			continue
		}
		if outcome, ok := c.Value.(SubAgentOutcome); ok {
			b.WriteString(formatSubAgentResult(outcome))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "completed %d/%d branch(es) requested, %d still waiting\n",
		len(result.Completed), total, total-len(result.Completed))

	return &tool.Result{
		Output:  b.String(),
		Success: failed == 0,
		Metadata: map[string]any{
			"completed": len(result.Completed),
			"failed":    failed,
			"total":     total,
		},
	}
}

package builtin

import (
	"context"
	"fmt"
	"time"

	"github.com/ngoclaw/agentcore/internal/tool"
	"github.com/ngoclaw/agentcore/internal/workspace"
)

// ExecuteCommandTool runs a shell command in the workspace, timeout-bounded.
type ExecuteCommandTool struct{ ws *workspace.Workspace }

func NewExecuteCommandTool(ws *workspace.Workspace) *ExecuteCommandTool {
	return &ExecuteCommandTool{ws: ws}
}

func (t *ExecuteCommandTool) Name() string { return "execute_command" }
func (t *ExecuteCommandTool) Description() string {
	return "Execute a shell command in the workspace directory. Commands run under a timeout " +
		"and are killed if they exceed it; avoid interactive or long-running commands."
}
func (t *ExecuteCommandTool) Kind() tool.Kind { return tool.KindExecute }
func (t *ExecuteCommandTool) Schema() map[string]any {
	return schema(map[string]any{
		"command": strProp("the shell command to run"),
	}, "command")
}

func (t *ExecuteCommandTool) Execute(ctx context.Context, args map[string]any) (*tool.Result, error) {
	command := argStr(args, "command")
	result, err := t.ws.ExecuteShell(ctx, command)
	if err != nil && result == nil {
		return &tool.Result{Success: false, Error: err.Error()}, nil
	}
	out := result.Stdout
	if result.Stderr != "" {
		out += "\n[stderr]\n" + result.Stderr
	}
	success := result.ExitCode == 0 && !result.Killed
	meta := map[string]any{"exit_code": result.ExitCode, "duration": result.Duration.String(), "killed": result.Killed}
	if !success {
		errText := fmt.Sprintf("exit code %d", result.ExitCode)
		if result.Killed {
			errText = "command timed out"
		}
		return &tool.Result{Output: out, Success: false, Error: errText, Metadata: meta}, nil
	}
	return &tool.Result{Output: out, Success: true, Metadata: meta}, nil
}

// SleepTool pauses execution for a bounded duration, honoring cancellation.
type SleepTool struct{ MaxSeconds int }

func NewSleepTool() *SleepTool { return &SleepTool{MaxSeconds: 30} }

func (t *SleepTool) Name() string        { return "sleep" }
func (t *SleepTool) Description() string { return "Pause for a number of seconds before continuing." }
func (t *SleepTool) Kind() tool.Kind     { return tool.KindThink }
func (t *SleepTool) Schema() map[string]any {
	return schema(map[string]any{"seconds": intProp("how long to sleep, capped at MaxSeconds")}, "seconds")
}

func (t *SleepTool) Execute(ctx context.Context, args map[string]any) (*tool.Result, error) {
	secs := argInt(args, "seconds", 1)
	max := t.MaxSeconds
	if max <= 0 {
		max = 30
	}
	if secs > max {
		secs = max
	}
	if secs < 0 {
		secs = 0
	}
	select {
	case <-time.After(time.Duration(secs) * time.Second):
		return &tool.Result{Output: fmt.Sprintf("slept %ds", secs), Success: true}, nil
	case <-ctx.Done():
		return &tool.Result{Output: "sleep cancelled", Success: false}, ctx.Err()
	}
}

// TerminalSessionTool runs one command in the workspace and returns its
// stdout followed by its stderr as a single output. Each call is
// independent: no session id is reported and no shell state carries over
// between calls, and the two streams are concatenated, not interleaved.
type TerminalSessionTool struct{ ws *workspace.Workspace }

func NewTerminalSessionTool(ws *workspace.Workspace) *TerminalSessionTool {
	return &TerminalSessionTool{ws: ws}
}

func (t *TerminalSessionTool) Name() string { return "terminal_session" }
func (t *TerminalSessionTool) Description() string {
	return "Run a command as part of an ongoing terminal-style session in the workspace."
}
func (t *TerminalSessionTool) Kind() tool.Kind { return tool.KindExecute }
func (t *TerminalSessionTool) Schema() map[string]any {
	return schema(map[string]any{"command": strProp("command to run")}, "command")
}

func (t *TerminalSessionTool) Execute(ctx context.Context, args map[string]any) (*tool.Result, error) {
	result, err := t.ws.ExecuteShell(ctx, argStr(args, "command"))
	if err != nil && result == nil {
		return &tool.Result{Success: false, Error: err.Error()}, nil
	}
	combined := result.Stdout + result.Stderr
	return &tool.Result{Output: combined, Success: result.ExitCode == 0 && !result.Killed}, nil
}

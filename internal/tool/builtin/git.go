package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/ngoclaw/agentcore/internal/tool"
	"github.com/ngoclaw/agentcore/internal/workspace"
)

// GitStatusTool reports `git status --short --branch` for the workspace.
type GitStatusTool struct{ ws *workspace.Workspace }

func NewGitStatusTool(ws *workspace.Workspace) *GitStatusTool { return &GitStatusTool{ws: ws} }

func (t *GitStatusTool) Name() string          { return "git_status" }
func (t *GitStatusTool) Description() string   { return "Show the working tree status of the git repository." }
func (t *GitStatusTool) Kind() tool.Kind       { return tool.KindRead }
func (t *GitStatusTool) Schema() map[string]any { return schema(map[string]any{}) }

func (t *GitStatusTool) Execute(ctx context.Context, _ map[string]any) (*tool.Result, error) {
	res, err := t.ws.ExecuteShell(ctx, "git status --short --branch")
	if err != nil && res == nil {
		return &tool.Result{Success: false, Error: err.Error()}, nil
	}
	return &tool.Result{Output: res.Stdout, Success: res.ExitCode == 0, Error: res.Stderr}, nil
}

// GitDiffTool reports `git diff`, optionally scoped to one path.
type GitDiffTool struct{ ws *workspace.Workspace }

func NewGitDiffTool(ws *workspace.Workspace) *GitDiffTool { return &GitDiffTool{ws: ws} }

func (t *GitDiffTool) Name() string        { return "git_diff" }
func (t *GitDiffTool) Description() string { return "Show the unstaged diff, optionally for one path." }
func (t *GitDiffTool) Kind() tool.Kind     { return tool.KindRead }
func (t *GitDiffTool) Schema() map[string]any {
	return schema(map[string]any{"path": strProp("limit the diff to this path (optional)")})
}

func (t *GitDiffTool) Execute(ctx context.Context, args map[string]any) (*tool.Result, error) {
	cmd := "git diff"
	if p := argStr(args, "path"); p != "" {
		cmd += " -- " + shellQuote(p)
	}
	res, err := t.ws.ExecuteShell(ctx, cmd)
	if err != nil && res == nil {
		return &tool.Result{Success: false, Error: err.Error()}, nil
	}
	return &tool.Result{Output: res.Stdout, Success: res.ExitCode == 0, Error: res.Stderr}, nil
}

// GitWriteTool stages and commits the current tree with a given message, the
// only mutating git operation exposed to the model.
type GitWriteTool struct{ ws *workspace.Workspace }

func NewGitWriteTool(ws *workspace.Workspace) *GitWriteTool { return &GitWriteTool{ws: ws} }

func (t *GitWriteTool) Name() string        { return "git_commit" }
func (t *GitWriteTool) Description() string { return "Stage all changes and create a commit." }
func (t *GitWriteTool) Kind() tool.Kind     { return tool.KindEdit }
func (t *GitWriteTool) Schema() map[string]any {
	return schema(map[string]any{"message": strProp("commit message")}, "message")
}

func (t *GitWriteTool) Execute(ctx context.Context, args map[string]any) (*tool.Result, error) {
	msg := argStr(args, "message")
	if msg == "" {
		return &tool.Result{Success: false, Error: "message is required"}, nil
	}
	if _, err := t.ws.ExecuteShell(ctx, "git add -A"); err != nil {
		return &tool.Result{Success: false, Error: err.Error()}, nil
	}
	res, err := t.ws.ExecuteShell(ctx, fmt.Sprintf("git commit -m %s", shellQuote(msg)))
	if err != nil && res == nil {
		return &tool.Result{Success: false, Error: err.Error()}, nil
	}
	return &tool.Result{Output: res.Stdout, Success: res.ExitCode == 0, Error: res.Stderr}, nil
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

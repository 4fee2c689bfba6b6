package builtin

import (
	"context"

	"github.com/ngoclaw/agentcore/internal/tool"
	"github.com/ngoclaw/agentcore/internal/workspace"
)

// SetWorkspaceTool changes the session's current working directory (spec
// §4.7). Future relative-path tool calls resolve against the new directory.
type SetWorkspaceTool struct{ ws *workspace.Workspace }

func NewSetWorkspaceTool(ws *workspace.Workspace) *SetWorkspaceTool { return &SetWorkspaceTool{ws: ws} }

func (t *SetWorkspaceTool) Name() string        { return "set_workspace" }
func (t *SetWorkspaceTool) Description() string { return "Change the current working directory for subsequent tool calls." }
func (t *SetWorkspaceTool) Kind() tool.Kind     { return tool.KindEdit }
func (t *SetWorkspaceTool) Schema() map[string]any {
	return schema(map[string]any{"path": strProp("directory to switch into")}, "path")
}

func (t *SetWorkspaceTool) Execute(_ context.Context, args map[string]any) (*tool.Result, error) {
	path := argStr(args, "path")
	if err := t.ws.SetDir(path); err != nil {
		return &tool.Result{Success: false, Error: err.Error()}, nil
	}
	return &tool.Result{Output: t.ws.Dir(), Success: true}, nil
}

// GetCurrentDirTool reports the workspace's current working directory.
type GetCurrentDirTool struct{ ws *workspace.Workspace }

func NewGetCurrentDirTool(ws *workspace.Workspace) *GetCurrentDirTool { return &GetCurrentDirTool{ws: ws} }

func (t *GetCurrentDirTool) Name() string        { return "get_current_dir" }
func (t *GetCurrentDirTool) Description() string { return "Report the current working directory." }
func (t *GetCurrentDirTool) Kind() tool.Kind     { return tool.KindRead }
func (t *GetCurrentDirTool) Schema() map[string]any {
	return schema(map[string]any{})
}

func (t *GetCurrentDirTool) Execute(_ context.Context, _ map[string]any) (*tool.Result, error) {
	return &tool.Result{Output: t.ws.Dir(), Success: true}, nil
}

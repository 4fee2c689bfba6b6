package builtin

import (
	"context"
	"fmt"
	"os"

	"github.com/ngoclaw/agentcore/internal/tool"
	"github.com/ngoclaw/agentcore/internal/workspace"
)

// ApplyPatchTool applies a unified diff patch to one or more files under the
// workspace, grounded on the teacher's ApplyPatchTool
// (internal/infrastructure/tool/advanced_tools.go), reusing the "patch"
// binary via the workspace's shell runner. The patch body is written to a
// temp file and piped in rather than interpolated into the shell command, to
// avoid the quoting/injection hazard of the teacher's echo-based version.
type ApplyPatchTool struct{ ws *workspace.Workspace }

func NewApplyPatchTool(ws *workspace.Workspace) *ApplyPatchTool { return &ApplyPatchTool{ws: ws} }

func (t *ApplyPatchTool) Name() string { return "apply_patch" }
func (t *ApplyPatchTool) Description() string {
	return `Apply a unified diff patch to one or more files. Use standard unified diff format:
--- a/path/to/file
+++ b/path/to/file
@@ -line,count +line,count @@
 context line
-removed line
+added line`
}
func (t *ApplyPatchTool) Kind() tool.Kind { return tool.KindEdit }
func (t *ApplyPatchTool) Schema() map[string]any {
	return schema(map[string]any{"patch": strProp("the unified diff patch to apply")}, "patch")
}

func (t *ApplyPatchTool) Execute(ctx context.Context, args map[string]any) (*tool.Result, error) {
	patch := argStr(args, "patch")
	if patch == "" {
		return &tool.Result{Success: false, Error: "patch is required"}, nil
	}

	tmp, err := os.CreateTemp("", "agentcore-patch-*.diff")
	if err != nil {
		return &tool.Result{Success: false, Error: err.Error()}, nil
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(patch); err != nil {
		tmp.Close()
		return &tool.Result{Success: false, Error: err.Error()}, nil
	}
	tmp.Close()

	cmd := fmt.Sprintf("patch -p1 --no-backup-if-mismatch < %q", tmp.Name())
	result, err := t.ws.ExecuteShell(ctx, cmd)
	if err != nil {
		stderr := ""
		if result != nil {
			stderr = result.Stderr
		}
		return &tool.Result{Success: false, Error: fmt.Sprintf("patch failed: %s (%v)", stderr, err)}, nil
	}
	return &tool.Result{Output: result.Stdout, Success: result.ExitCode == 0, Error: result.Stderr}, nil
}

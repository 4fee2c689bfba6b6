package builtin

import (
	"context"
	"os"
	"strings"
	"testing"
)

func TestGitStatusAndCommitRoundTrip(t *testing.T) {
	ws := newTestWorkspace(t)

	for _, cmd := range []string{
		"git init",
		"git config user.email test@example.com",
		"git config user.name test",
	} {
		if res, err := ws.ExecuteShell(context.Background(), cmd); err != nil || res.ExitCode != 0 {
			t.Fatalf("setup %q failed: %v %+v", cmd, err, res)
		}
	}

	if err := os.WriteFile(ws.Resolve("a.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	status, err := NewGitStatusTool(ws).Execute(context.Background(), map[string]any{})
	if err != nil || !status.Success {
		t.Fatalf("git_status failed: %v %+v", err, status)
	}
	if !strings.Contains(status.Output, "a.txt") {
		t.Errorf("expected untracked a.txt in status, got %q", status.Output)
	}

	commit, err := NewGitWriteTool(ws).Execute(context.Background(), map[string]any{"message": "add a.txt"})
	if err != nil || !commit.Success {
		t.Fatalf("git_commit failed: %v %+v", err, commit)
	}

	status, err = NewGitStatusTool(ws).Execute(context.Background(), map[string]any{})
	if err != nil || !status.Success {
		t.Fatalf("git_status after commit failed: %v %+v", err, status)
	}
	if strings.Contains(status.Output, "a.txt") {
		t.Errorf("expected clean tree after commit, got %q", status.Output)
	}
}

func TestGitWriteRequiresMessage(t *testing.T) {
	ws := newTestWorkspace(t)
	res, err := NewGitWriteTool(ws).Execute(context.Background(), map[string]any{"message": ""})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Error("expected failure for empty commit message")
	}
}

func TestGitDiffScopedToPath(t *testing.T) {
	ws := newTestWorkspace(t)
	for _, cmd := range []string{
		"git init",
		"git config user.email test@example.com",
		"git config user.name test",
	} {
		ws.ExecuteShell(context.Background(), cmd)
	}
	os.WriteFile(ws.Resolve("a.txt"), []byte("one\n"), 0o644)
	ws.ExecuteShell(context.Background(), "git add -A && git commit -m init")
	os.WriteFile(ws.Resolve("a.txt"), []byte("two\n"), 0o644)

	res, err := NewGitDiffTool(ws).Execute(context.Background(), map[string]any{"path": "a.txt"})
	if err != nil || !res.Success {
		t.Fatalf("git_diff failed: %v %+v", err, res)
	}
	if !strings.Contains(res.Output, "-one") || !strings.Contains(res.Output, "+two") {
		t.Errorf("expected diff hunk in output, got %q", res.Output)
	}
}

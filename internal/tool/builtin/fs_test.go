package builtin

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/ngoclaw/agentcore/internal/workspace"
)

func newTestWorkspace(t *testing.T) *workspace.Workspace {
	t.Helper()
	dir := t.TempDir()
	ws, err := workspace.New(dir, workspace.DefaultConfig())
	if err != nil {
		t.Fatalf("workspace.New: %v", err)
	}
	return ws
}

func TestWriteThenReadFileRoundTrips(t *testing.T) {
	ws := newTestWorkspace(t)
	write := NewWriteFileTool(ws)
	res, err := write.Execute(context.Background(), map[string]any{"path": "a.txt", "content": "hello\nworld\n"})
	if err != nil || !res.Success {
		t.Fatalf("write failed: %v %+v", err, res)
	}

	read := NewReadFileTool(ws)
	res, err = read.Execute(context.Background(), map[string]any{"path": "a.txt"})
	if err != nil || !res.Success {
		t.Fatalf("read failed: %v %+v", err, res)
	}
	if res.Output != "hello\nworld\n" {
		t.Errorf("unexpected content: %q", res.Output)
	}
}

func TestReadFileLineRange(t *testing.T) {
	ws := newTestWorkspace(t)
	NewWriteFileTool(ws).Execute(context.Background(), map[string]any{"path": "a.txt", "content": "one\ntwo\nthree\n"})

	res, err := NewReadFileTool(ws).Execute(context.Background(), map[string]any{"path": "a.txt", "start_line": float64(2), "end_line": float64(2)})
	if err != nil || !res.Success {
		t.Fatalf("read failed: %v %+v", err, res)
	}
	if res.Output != "two" {
		t.Errorf("expected just line 2, got %q", res.Output)
	}
}

func TestReadFileMissingReturnsFailureResult(t *testing.T) {
	ws := newTestWorkspace(t)
	res, err := NewReadFileTool(ws).Execute(context.Background(), map[string]any{"path": "missing.txt"})
	if err != nil {
		t.Fatalf("expected tool error surfaced via Result, not err: %v", err)
	}
	if res.Success {
		t.Error("expected Success=false for a missing file")
	}
}

func TestAppendFileCreatesThenAppends(t *testing.T) {
	ws := newTestWorkspace(t)
	append1 := NewAppendFileTool(ws)
	if _, err := append1.Execute(context.Background(), map[string]any{"path": "log.txt", "content": "a"}); err != nil {
		t.Fatalf("append 1: %v", err)
	}
	if _, err := append1.Execute(context.Background(), map[string]any{"path": "log.txt", "content": "b"}); err != nil {
		t.Fatalf("append 2: %v", err)
	}
	data, err := os.ReadFile(ws.Resolve("log.txt"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "ab" {
		t.Errorf("expected concatenated appends, got %q", data)
	}
}

func TestFileExistsReportsBoth(t *testing.T) {
	ws := newTestWorkspace(t)
	tool := NewFileExistsTool(ws)

	res, _ := tool.Execute(context.Background(), map[string]any{"path": "nope.txt"})
	if res.Metadata["exists"] != false {
		t.Errorf("expected exists=false, got %+v", res.Metadata)
	}

	os.WriteFile(ws.Resolve("yep.txt"), []byte("x"), 0o644)
	res, _ = tool.Execute(context.Background(), map[string]any{"path": "yep.txt"})
	if res.Metadata["exists"] != true {
		t.Errorf("expected exists=true, got %+v", res.Metadata)
	}
}

func TestListDirListsEntriesWithDirSuffix(t *testing.T) {
	ws := newTestWorkspace(t)
	os.Mkdir(ws.Resolve("sub"), 0o755)
	os.WriteFile(ws.Resolve("file.txt"), []byte("x"), 0o644)

	res, err := NewListDirTool(ws).Execute(context.Background(), map[string]any{})
	if err != nil || !res.Success {
		t.Fatalf("list failed: %v %+v", err, res)
	}
	if !strings.Contains(res.Output, "sub/") || !strings.Contains(res.Output, "file.txt") {
		t.Errorf("unexpected listing: %q", res.Output)
	}
}

func TestGlobMatchesPattern(t *testing.T) {
	ws := newTestWorkspace(t)
	os.WriteFile(ws.Resolve("a.go"), []byte("x"), 0o644)
	os.WriteFile(ws.Resolve("b.txt"), []byte("x"), 0o644)

	res, err := NewGlobTool(ws).Execute(context.Background(), map[string]any{"pattern": "*.go"})
	if err != nil || !res.Success {
		t.Fatalf("glob failed: %v %+v", err, res)
	}
	if !strings.Contains(res.Output, "a.go") || strings.Contains(res.Output, "b.txt") {
		t.Errorf("unexpected glob result: %q", res.Output)
	}
}

func TestGrepFileFindsMatchingLinesWithNumbers(t *testing.T) {
	ws := newTestWorkspace(t)
	os.WriteFile(ws.Resolve("a.txt"), []byte("alpha\nneedle here\nbeta\n"), 0o644)

	res, err := NewGrepFileTool(ws).Execute(context.Background(), map[string]any{"path": "a.txt", "needle": "needle"})
	if err != nil || !res.Success {
		t.Fatalf("grep failed: %v %+v", err, res)
	}
	if res.Output != "2: needle here\n" {
		t.Errorf("unexpected grep output: %q", res.Output)
	}
}

func TestGrepProjectSkipsVCSDirs(t *testing.T) {
	ws := newTestWorkspace(t)
	os.MkdirAll(ws.Resolve(".git"), 0o755)
	os.WriteFile(ws.Resolve(".git/ignored.txt"), []byte("needle"), 0o644)
	os.WriteFile(ws.Resolve("visible.txt"), []byte("needle"), 0o644)

	res, err := NewGrepProjectTool(ws).Execute(context.Background(), map[string]any{"needle": "needle"})
	if err != nil || !res.Success {
		t.Fatalf("grep project failed: %v %+v", err, res)
	}
	if strings.Contains(res.Output, ".git") {
		t.Errorf("expected .git to be skipped, got %q", res.Output)
	}
	if !strings.Contains(res.Output, "visible.txt") {
		t.Errorf("expected visible.txt match, got %q", res.Output)
	}
}

func TestGetFileInfoReportsSize(t *testing.T) {
	ws := newTestWorkspace(t)
	os.WriteFile(ws.Resolve("sized.txt"), []byte("12345"), 0o644)

	res, err := NewGetFileInfoTool(ws).Execute(context.Background(), map[string]any{"path": "sized.txt"})
	if err != nil || !res.Success {
		t.Fatalf("get_file_info failed: %v %+v", err, res)
	}
	if res.Metadata["size"] != int64(5) {
		t.Errorf("expected size=5, got %+v", res.Metadata["size"])
	}
}

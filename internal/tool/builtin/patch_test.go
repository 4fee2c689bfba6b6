package builtin

import (
	"context"
	"os"
	"testing"
)

func TestApplyPatchToolAppliesUnifiedDiff(t *testing.T) {
	ws := newTestWorkspace(t)
	if err := os.WriteFile(ws.Resolve("a.txt"), []byte("one\ntwo\nthree\n"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	patch := "--- a/a.txt\n" +
		"+++ b/a.txt\n" +
		"@@ -1,3 +1,3 @@\n" +
		" one\n" +
		"-two\n" +
		"+TWO\n" +
		" three\n"

	res, err := NewApplyPatchTool(ws).Execute(context.Background(), map[string]any{"patch": patch})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected patch to apply, got %+v", res)
	}

	data, err := os.ReadFile(ws.Resolve("a.txt"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "one\nTWO\nthree\n" {
		t.Errorf("unexpected content after patch: %q", data)
	}
}

func TestApplyPatchToolRequiresBody(t *testing.T) {
	ws := newTestWorkspace(t)
	res, err := NewApplyPatchTool(ws).Execute(context.Background(), map[string]any{"patch": ""})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Error("expected failure for empty patch body")
	}
}

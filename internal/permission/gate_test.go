package permission

import (
	"context"
	"testing"

	"github.com/ngoclaw/agentcore/internal/tool"
)

type fakeTool struct {
	name string
	kind tool.Kind
}

func (f fakeTool) Name() string          { return f.name }
func (f fakeTool) Description() string   { return "" }
func (f fakeTool) Kind() tool.Kind       { return f.kind }
func (f fakeTool) Schema() map[string]any { return nil }
func (f fakeTool) Execute(context.Context, map[string]any) (*tool.Result, error) {
	return nil, nil
}

func TestManualSuspendsMutators(t *testing.T) {
	g := NewGate(NewManual())
	if d := g.Evaluate(fakeTool{"execute_command", tool.KindExecute}, 0); d != Suspended {
		t.Fatalf("expected Suspended, got %v", d)
	}
	if d := g.Evaluate(fakeTool{"read_file", tool.KindRead}, 0); d != Approved {
		t.Fatalf("expected Approved for safe kind, got %v", d)
	}
}

func TestWhitelistOnlyApprovesListed(t *testing.T) {
	g := NewGate(NewWhitelist("read_file"))
	if d := g.Evaluate(fakeTool{"execute_command", tool.KindExecute}, 0); d != Suspended {
		t.Fatalf("expected Suspended for non-whitelisted, got %v", d)
	}
}

func TestAutoLoopBoundsForceManual(t *testing.T) {
	g := NewGate(NewAutoLoop(2, 1))
	if d := g.Evaluate(fakeTool{"execute_command", tool.KindExecute}, 0); d != Approved {
		t.Fatalf("expected first call approved, got %v", d)
	}
	if d := g.Evaluate(fakeTool{"execute_command", tool.KindExecute}, 0); d != Suspended {
		t.Fatalf("expected second call suspended after exhausting MaxTools, got %v", d)
	}
}

func TestAutoLoopDepthBound(t *testing.T) {
	g := NewGate(NewAutoLoop(1, 100))
	if d := g.Evaluate(fakeTool{"execute_command", tool.KindExecute}, 5); d != Suspended {
		t.Fatalf("expected Suspended beyond max depth, got %v", d)
	}
}

func TestAutoApproveAlwaysApproves(t *testing.T) {
	g := NewGate(NewAutoApprove())
	if d := g.Evaluate(fakeTool{"execute_command", tool.KindExecute}, 0); d != Approved {
		t.Fatalf("expected Approved, got %v", d)
	}
}

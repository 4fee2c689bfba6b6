package streaming

import "testing"

func TestAccumulatorAssociativeSplits(t *testing.T) {
	full := `{"path":"/a","content":"hi"}`
	splits := [][]string{
		{full},
		{`{"pa`, `th":"/a"`, `,"content":"hi"}`},
		{`{`, `"`, `p`, `a`, `t`, `h`, `"`, `:`, `"`, `/`, `a`, `"`, `,`, `"`, `content`, `"`, `:`, `"`, `hi`, `"`, `}`},
	}
	for _, parts := range splits {
		a := NewAccumulator()
		a.Add(ToolCallDelta{Index: 0, ID: "call_1", Name: "write_file"})
		for _, p := range parts {
			a.Add(ToolCallDelta{Index: 0, ArgumentsPartial: p})
		}
		calls := a.Finalize()
		if len(calls) != 1 {
			t.Fatalf("expected 1 call, got %d", len(calls))
		}
		if calls[0].Arguments != full {
			t.Fatalf("expected %q, got %q", full, calls[0].Arguments)
		}
		if calls[0].ID != "call_1" || calls[0].Name != "write_file" {
			t.Fatalf("unexpected id/name: %+v", calls[0])
		}
	}
}

func TestAccumulatorPreservesIndexOrder(t *testing.T) {
	a := NewAccumulator()
	a.Add(ToolCallDelta{Index: 2, ID: "c", Name: "third"})
	a.Add(ToolCallDelta{Index: 0, ID: "a", Name: "first"})
	a.Add(ToolCallDelta{Index: 1, ID: "b", Name: "second"})
	calls := a.Finalize()
	if len(calls) != 3 || calls[0].Name != "first" || calls[1].Name != "second" || calls[2].Name != "third" {
		t.Fatalf("unexpected order: %+v", calls)
	}
}

func TestAccumulatorLateBindingIDAndName(t *testing.T) {
	a := NewAccumulator()
	a.Add(ToolCallDelta{Index: 0, ArgumentsPartial: "{}"})
	a.Add(ToolCallDelta{Index: 0, ID: "call_1"})
	a.Add(ToolCallDelta{Index: 0, Name: "read_file"})
	calls := a.Finalize()
	if calls[0].ID != "call_1" || calls[0].Name != "read_file" {
		t.Fatalf("unexpected late-bound call: %+v", calls[0])
	}
}

func TestAccumulatorEmptyAfterFinalize(t *testing.T) {
	a := NewAccumulator()
	a.Add(ToolCallDelta{Index: 0, ID: "x"})
	a.Finalize()
	if !a.Empty() {
		t.Fatal("expected accumulator to be empty after Finalize")
	}
}

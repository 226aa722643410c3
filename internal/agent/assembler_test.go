package agent

import (
	"reflect"
	"testing"

	"github.com/caretforge/caretforge/pkg/models"
)

func TestAssemblerPartitionInvariance(t *testing.T) {
	// Two fragmentations of the same logical call must assemble identically.
	coarse := []models.ToolCallDelta{
		{Index: 0, ID: "call_1", Name: "grep_search", Arguments: `{"pattern":"todo"}`},
	}
	fine := []models.ToolCallDelta{
		{Index: 0, ID: "call_1", Name: "grep_"},
		{Index: 0, Name: "search", Arguments: `{"pat`},
		{Index: 0, Arguments: `tern":"todo"}`},
	}

	assemble := func(deltas []models.ToolCallDelta) []models.ToolCall {
		a := newToolCallAssembler()
		for _, d := range deltas {
			a.Add(d)
		}
		return a.Assembled()
	}

	got1, got2 := assemble(coarse), assemble(fine)
	if !reflect.DeepEqual(got1, got2) {
		t.Fatalf("partition changed result: %+v vs %+v", got1, got2)
	}
	want := []models.ToolCall{{ID: "call_1", Name: "grep_search", Arguments: `{"pattern":"todo"}`}}
	if !reflect.DeepEqual(got1, want) {
		t.Fatalf("assembled = %+v, want %+v", got1, want)
	}
}

func TestAssemblerFirstNonEmptyIDWins(t *testing.T) {
	a := newToolCallAssembler()
	a.Add(models.ToolCallDelta{Index: 0, Name: "read_file"})
	a.Add(models.ToolCallDelta{Index: 0, ID: "first"})
	a.Add(models.ToolCallDelta{Index: 0, ID: "second", Arguments: "{}"})

	got := a.Assembled()
	if len(got) != 1 || got[0].ID != "first" {
		t.Fatalf("assembled = %+v", got)
	}
}

func TestAssemblerInterleavedCallsKeepFirstSeenOrder(t *testing.T) {
	a := newToolCallAssembler()
	a.Add(models.ToolCallDelta{Index: 2, ID: "b", Name: "second"})
	a.Add(models.ToolCallDelta{Index: 0, ID: "a", Name: "fir"})
	a.Add(models.ToolCallDelta{Index: 2, Arguments: `{"n":2}`})
	a.Add(models.ToolCallDelta{Index: 0, Name: "st", Arguments: `{"n":1}`})

	got := a.Assembled()
	if len(got) != 2 {
		t.Fatalf("assembled %d calls", len(got))
	}
	if got[0].Name != "second" || got[1].Name != "first" {
		t.Fatalf("order = [%s, %s], want first-seen", got[0].Name, got[1].Name)
	}
	if got[1].Arguments != `{"n":1}` {
		t.Fatalf("arguments = %q", got[1].Arguments)
	}
}

func TestAssemblerDropsNamelessFragments(t *testing.T) {
	a := newToolCallAssembler()
	a.Add(models.ToolCallDelta{Index: 0, ID: "ghost", Arguments: `{"x":1}`})
	a.Add(models.ToolCallDelta{Index: 1, ID: "real", Name: "glob_find", Arguments: `{}`})

	got := a.Assembled()
	if len(got) != 1 || got[0].ID != "real" {
		t.Fatalf("assembled = %+v", got)
	}
}

func TestAssemblerEmpty(t *testing.T) {
	a := newToolCallAssembler()
	if got := a.Assembled(); len(got) != 0 {
		t.Fatalf("assembled = %+v", got)
	}
}

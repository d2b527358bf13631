package ir

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPortString(t *testing.T) {
	if got := (Port{Cell: "r", Pin: "out"}).String(); got != "r.out" {
		t.Errorf("port string = %q, want r.out", got)
	}
	if got := Wire("a_go").String(); got != "a_go" {
		t.Errorf("wire string = %q, want a_go", got)
	}
}

func TestLatencyString(t *testing.T) {
	cases := map[string]Latency{
		"dynamic":   DynamicLatency,
		"static(3)": StaticLatency(3),
		"comb":      CombLatency,
	}
	for want, l := range cases {
		if got := l.String(); got != want {
			t.Errorf("latency %v = %q, want %q", l, got, want)
		}
	}
}

func TestCatalogOrder(t *testing.T) {
	cat := NewCatalog()
	cat.AddGroup(&Group{Name: "b"})
	cat.AddGroup(&Group{Name: "a"})
	cat.AddGroup(&Group{Name: "b", Latency: CombLatency})

	var order []string
	for _, g := range cat.Groups() {
		order = append(order, g.Name)
	}
	if diff := cmp.Diff([]string{"b", "a"}, order); diff != "" {
		t.Errorf("registration order (-want +got):\n%s", diff)
	}

	g, ok := cat.Lookup("b")
	if !ok || g.Latency != CombLatency {
		t.Error("re-registration did not replace the entry")
	}
	if diff := cmp.Diff([]string{"a", "b"}, cat.GroupNames()); diff != "" {
		t.Errorf("sorted names (-want +got):\n%s", diff)
	}
}

func TestGroupHoleWires(t *testing.T) {
	g := &Group{Name: "incr"}
	if g.GoWire() != "incr_go" || g.DoneWire() != "incr_done" {
		t.Errorf("hole wires = %q/%q", g.GoWire(), g.DoneWire())
	}
}

func TestFSMWidth(t *testing.T) {
	prog := &Program{Name: "p"}
	cases := map[uint32]int{1: 1, 2: 1, 3: 2, 4: 2, 5: 3, 8: 3, 9: 4}
	for states, want := range cases {
		f := prog.AddFSM("f", states)
		if f.Width != want {
			t.Errorf("width for %d states = %d, want %d", states, f.Width, want)
		}
	}
}

func TestDumpDeterministic(t *testing.T) {
	build := func() string {
		prog := &Program{Name: "p"}
		prog.AddWire("b_go")
		prog.AddWire("a_go")
		fsm := prog.AddFSM("seq", 2)
		fsm.AddTransition(0, ReadWire("a_done"), 1)
		prog.Assign(Wire("a_go"), State("seq", 0), ConstExpr(1))
		var sb strings.Builder
		Dump(prog, &sb)
		return sb.String()
	}
	first, second := build(), build()
	if first != second {
		t.Errorf("dump not deterministic:\n%s\nvs\n%s", first, second)
	}
	if !strings.Contains(first, "0 -> 1 when a_done") {
		t.Errorf("dump missing transition row:\n%s", first)
	}
}

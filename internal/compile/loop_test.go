package compile_test

import (
	"testing"

	"fsmc/internal/compile"
	"fsmc/internal/ir"
	"fsmc/internal/sim"
)

// countdownFixture builds the canonical counted loop: a register idx, an
// adder incrementing it, and a comparator idx < bound feeding the condition.
func countdownFixture(bound uint64) *fixture {
	f := newFixture()
	f.reg("idx", 32)
	f.cat.AddCell(&ir.Cell{Name: "add", Prim: "std_add", Width: 32})
	f.cat.AddCell(&ir.Cell{Name: "lt", Prim: "std_lt", Width: 32})

	f.cat.AddGroup(&ir.Group{
		Name:    "incr",
		Latency: ir.DynamicLatency,
		Assigns: []ir.Assign{
			{Dest: ir.Port{Cell: "add", Pin: "left"}, Guard: ir.True, Src: ir.PortExpr(ir.Port{Cell: "idx", Pin: "out"})},
			{Dest: ir.Port{Cell: "add", Pin: "right"}, Guard: ir.True, Src: ir.ConstExpr(1)},
			{Dest: ir.Port{Cell: "idx", Pin: "in"}, Guard: ir.True, Src: ir.PortExpr(ir.Port{Cell: "add", Pin: "out"})},
			{Dest: ir.Port{Cell: "idx", Pin: "write_en"}, Guard: ir.True, Src: ir.ConstExpr(1)},
			{Dest: ir.Wire("incr_done"), Guard: ir.True, Src: ir.PortExpr(ir.Port{Cell: "idx", Pin: "done"})},
		},
	})
	f.cat.AddGroup(&ir.Group{
		Name:    "cmp",
		Latency: ir.CombLatency,
		Assigns: []ir.Assign{
			{Dest: ir.Port{Cell: "lt", Pin: "left"}, Guard: ir.True, Src: ir.PortExpr(ir.Port{Cell: "idx", Pin: "out"})},
			{Dest: ir.Port{Cell: "lt", Pin: "right"}, Guard: ir.True, Src: ir.ConstExpr(bound)},
		},
	})
	return f
}

func idxValue(t *testing.T, m *sim.Machine) uint64 {
	t.Helper()
	return m.PortValue(ir.Port{Cell: "idx", Pin: "out"})
}

func TestWhileOnPort(t *testing.T) {
	f := newFixture()
	f.reg("flag", 1)
	f.reg("r", 32)

	f.cat.AddGroup(&ir.Group{
		Name:    "raise",
		Latency: ir.DynamicLatency,
		Assigns: []ir.Assign{
			{Dest: ir.Port{Cell: "flag", Pin: "in"}, Guard: ir.True, Src: ir.ConstExpr(1)},
			{Dest: ir.Port{Cell: "flag", Pin: "write_en"}, Guard: ir.True, Src: ir.ConstExpr(1)},
			{Dest: ir.Wire("raise_done"), Guard: ir.True, Src: ir.PortExpr(ir.Port{Cell: "flag", Pin: "done"})},
		},
	})
	f.cat.AddGroup(&ir.Group{
		Name:    "lower",
		Latency: ir.DynamicLatency,
		Assigns: []ir.Assign{
			{Dest: ir.Port{Cell: "flag", Pin: "in"}, Guard: ir.True, Src: ir.ConstExpr(0)},
			{Dest: ir.Port{Cell: "flag", Pin: "write_en"}, Guard: ir.True, Src: ir.ConstExpr(1)},
			{Dest: ir.Wire("lower_done"), Guard: ir.True, Src: ir.PortExpr(ir.Port{Cell: "flag", Pin: "done"})},
		},
	})
	f.writeGroup("store", "r", 5)

	t.Run("single cycle body", func(t *testing.T) {
		ctrl := &ir.Seq{Children: []ir.Control{
			&ir.Enable{Group: "raise"},
			&ir.While{
				CondPort: ir.Port{Cell: "flag", Pin: "out"},
				Body:     &ir.Enable{Group: "lower"},
			},
		}}
		_, done := compileRun(t, f.cat, ctrl, compile.Options{})
		if done != 3 {
			t.Errorf("done at cycle %d, want 3 (raise, one iteration, exit check)", done)
		}
	})

	t.Run("multi cycle body survives condition flip", func(t *testing.T) {
		ctrl := &ir.Seq{Children: []ir.Control{
			&ir.Enable{Group: "raise"},
			&ir.While{
				CondPort: ir.Port{Cell: "flag", Pin: "out"},
				Body: &ir.Seq{Children: []ir.Control{
					&ir.Enable{Group: "store"},
					&ir.Enable{Group: "lower"},
				}},
			},
		}}
		m, done := compileRun(t, f.cat, ctrl, compile.Options{})
		if done != 4 {
			t.Errorf("done at cycle %d, want 4 (the iteration runs to completion)", done)
		}
		settleAfterRun(t, m)
		if got := m.PortValue(ir.Port{Cell: "r", Pin: "out"}); got != 5 {
			t.Errorf("r = %d, want 5", got)
		}
	})
}

func TestWhileNaiveCombCondition(t *testing.T) {
	f := countdownFixture(3)

	ctrl := &ir.While{
		CondPort:  ir.Port{Cell: "lt", Pin: "out"},
		CondGroup: "cmp",
		Body:      &ir.Enable{Group: "incr"},
	}

	// Each iteration pays an evaluation cycle: eval, body, eval, body,
	// eval, body, final eval = 7 cycles for three iterations.
	m, done := compileRun(t, f.cat, ctrl, compile.Options{})
	if done != 7 {
		t.Errorf("done at cycle %d, want 7", done)
	}
	settleAfterRun(t, m)
	if got := idxValue(t, m); got != 3 {
		t.Errorf("idx = %d, want 3", got)
	}
}

func TestWhileEarlyReset(t *testing.T) {
	f := countdownFixture(3)

	ctrl := &ir.While{
		CondPort:  ir.Port{Cell: "lt", Pin: "out"},
		CondGroup: "cmp",
		Body:      &ir.Enable{Group: "incr"},
	}

	// First iteration costs the entry evaluation plus the body; every later
	// iteration costs exactly the body. The hoisted evaluation reads the
	// register before the iteration's write commits, so the loop observes
	// each idx value one iteration late and runs once more than the naive
	// scheme.
	m, done := compileRun(t, f.cat, ctrl, compile.Options{EarlyReset: true})
	if done != 5 {
		t.Errorf("done at cycle %d, want 5", done)
	}
	settleAfterRun(t, m)
	if got := idxValue(t, m); got != 4 {
		t.Errorf("idx = %d, want 4", got)
	}
}

func TestWhileEarlyResetZeroIterations(t *testing.T) {
	f := countdownFixture(0)

	ctrl := &ir.While{
		CondPort:  ir.Port{Cell: "lt", Pin: "out"},
		CondGroup: "cmp",
		Body:      &ir.Enable{Group: "incr"},
	}

	m, done := compileRun(t, f.cat, ctrl, compile.Options{EarlyReset: true})
	if done != 1 {
		t.Errorf("done at cycle %d, want 1", done)
	}
	settleAfterRun(t, m)
	if got := idxValue(t, m); got != 0 {
		t.Errorf("idx = %d, want 0", got)
	}
}

func TestRepeatCountsBodyCompletions(t *testing.T) {
	f := countdownFixture(3)

	ctrl := &ir.Repeat{Count: 3, Body: &ir.Enable{Group: "incr"}}
	m, done := compileRun(t, f.cat, ctrl, compile.Options{})
	if done != 3 {
		t.Errorf("done at cycle %d, want 3", done)
	}
	settleAfterRun(t, m)
	if got := idxValue(t, m); got != 3 {
		t.Errorf("idx = %d, want 3", got)
	}
}

func TestRepeatZeroIsEmpty(t *testing.T) {
	f := countdownFixture(3)

	ctrl := &ir.Repeat{Count: 0, Body: &ir.Enable{Group: "incr"}}
	m, done := compileRun(t, f.cat, ctrl, compile.Options{})
	if done != 1 {
		t.Errorf("done at cycle %d, want 1", done)
	}
	settleAfterRun(t, m)
	if got := idxValue(t, m); got != 0 {
		t.Errorf("idx = %d, want 0", got)
	}
}

func TestRepeatRestartsBetweenRuns(t *testing.T) {
	f := countdownFixture(3)

	prog, err := compile.Compile(f.cat, &ir.Repeat{Count: 2, Body: &ir.Enable{Group: "incr"}}, compile.Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	m, err := sim.New(prog)
	if err != nil {
		t.Fatalf("sim.New: %v", err)
	}

	if done, err := m.Run(16); err != nil || done != 2 {
		t.Fatalf("first run: done=%d err=%v, want 2", done, err)
	}
	// The counter cleared itself on the done cycle; a second handshake must
	// repeat the full count.
	if done, err := m.Run(16); err != nil || done != 2 {
		t.Fatalf("second run: done=%d err=%v, want 2", done, err)
	}
	settleAfterRun(t, m)
	if got := idxValue(t, m); got != 4 {
		t.Errorf("idx = %d after two runs, want 4", got)
	}
}

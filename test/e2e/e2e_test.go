package e2e

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"fsmc/internal/compile"
	"fsmc/internal/diag"
	"fsmc/internal/frontend"
	"fsmc/internal/sim"
	"fsmc/internal/validate"
)

// runProgram drives the full pipeline the CLI uses: load, validate, compile,
// prove exclusivity, simulate to the done pulse.
func runProgram(t *testing.T, name string, opts compile.Options) int {
	t.Helper()
	path := filepath.Join(name, "prog.fsm")
	rep := diag.NewReporter(io.Discard, "text")

	f, err := frontend.Load(context.Background(), path, rep)
	if err != nil {
		t.Fatalf("load %s: %v", path, err)
	}
	if err := validate.CheckProgram(f.Catalog, f.Control, rep); err != nil {
		t.Fatalf("validate %s: %v", path, err)
	}
	prog, err := compile.Compile(f.Catalog, f.Control, opts)
	if err != nil {
		t.Fatalf("compile %s: %v", path, err)
	}
	if err := validate.CheckExclusive(prog); err != nil {
		t.Fatalf("exclusivity %s: %v", path, err)
	}
	m, err := sim.New(prog)
	if err != nil {
		t.Fatalf("sim %s: %v", path, err)
	}
	done, err := m.Run(256)
	if err != nil {
		t.Fatalf("run %s: %v", path, err)
	}
	return done
}

func TestProgramsRunToCompletion(t *testing.T) {
	cases := []struct {
		name     string
		opts     compile.Options
		wantDone int
	}{
		{name: "pipeline", wantDone: 4},
		{name: "branch", wantDone: 2},
		{name: "static_wave", wantDone: 3},
		{name: "counted_loop", wantDone: 7},
		{name: "counted_loop", opts: compile.Options{EarlyReset: true}, wantDone: 5},
	}
	for _, tc := range cases {
		tc := tc
		label := tc.name
		if tc.opts.EarlyReset {
			label += "/early-reset"
		}
		t.Run(label, func(t *testing.T) {
			t.Parallel()
			if done := runProgram(t, tc.name, tc.opts); done != tc.wantDone {
				t.Errorf("%s finished at cycle %d, want %d", tc.name, done, tc.wantDone)
			}
		})
	}
}

func TestPromotionDoesNotChangeTiming(t *testing.T) {
	for _, name := range []string{"pipeline", "static_wave"} {
		name := name
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			plain := runProgram(t, name, compile.Options{})
			promoted := runProgram(t, name, compile.Options{PromoteStatic: true})
			if plain != promoted {
				t.Errorf("%s: done cycles differ, plain %d vs promoted %d", name, plain, promoted)
			}
		})
	}
}

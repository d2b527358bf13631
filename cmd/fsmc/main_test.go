package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const twoStepSrc = `
cell "r" {
  prim = "std_reg"
  width = 32
}
cell "s" {
  prim = "std_reg"
  width = 32
}

group "write_r" {
  assign {
    dest = "r.in"
    src = "1"
  }
  assign {
    dest = "r.write_en"
    src = "1"
  }
  done = "r.done"
}

group "write_s" {
  assign {
    dest = "s.in"
    src = "2"
  }
  assign {
    dest = "s.write_en"
    src = "1"
  }
  done = "s.done"
}

control {
  seq {
    enable { group = "write_r" }
    enable { group = "write_s" }
  }
}
`

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestRunCompileDumpsProgram(t *testing.T) {
	path := writeFixture(t, "two_step.fsm", twoStepSrc)

	var out strings.Builder
	if err := run([]string{"compile", path}, &out); err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	for _, want := range []string{"program main", "fsm", "write_r_go", "write_s_go"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestRunCompileToFile(t *testing.T) {
	path := writeFixture(t, "two_step.fsm", twoStepSrc)
	outPath := filepath.Join(t.TempDir(), "prog.txt")

	var out strings.Builder
	if err := run([]string{"compile", "-o", outPath, path}, &out); err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(data), "program main") {
		t.Errorf("output file missing program header:\n%s", data)
	}
}

func TestRunSimReportsDoneCycle(t *testing.T) {
	path := writeFixture(t, "two_step.fsm", twoStepSrc)

	var out strings.Builder
	if err := run([]string{"sim", path}, &out); err != nil {
		t.Fatalf("sim failed: %v", err)
	}
	if !strings.Contains(out.String(), "done at cycle 2") {
		t.Errorf("sim output = %q, want done at cycle 2", out.String())
	}
}

func TestRunSimTrace(t *testing.T) {
	path := writeFixture(t, "two_step.fsm", twoStepSrc)

	var out strings.Builder
	if err := run([]string{"sim", "-trace", path}, &out); err != nil {
		t.Fatalf("sim failed: %v", err)
	}
	if !strings.Contains(out.String(), "cycle 1:") {
		t.Errorf("trace output missing per-cycle lines:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "done at cycle 2") {
		t.Errorf("trace output missing done line:\n%s", out.String())
	}
}

func TestRunLintCatchesMissingGroup(t *testing.T) {
	path := writeFixture(t, "bad.fsm", `
control {
  enable { group = "nowhere" }
}
`)
	var out strings.Builder
	if err := run([]string{"lint", path}, &out); err == nil {
		t.Fatal("lint succeeded, want error")
	}
}

func TestRunLintAcceptsValidProgram(t *testing.T) {
	path := writeFixture(t, "two_step.fsm", twoStepSrc)

	var out strings.Builder
	if err := run([]string{"lint", path}, &out); err != nil {
		t.Fatalf("lint failed: %v", err)
	}
}

func TestRunUnknownCommand(t *testing.T) {
	var out strings.Builder
	err := run([]string{"frobnicate"}, &out)
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("err = %v, want unknown command", err)
	}
}

func TestRunMissingInput(t *testing.T) {
	var out strings.Builder
	if err := run([]string{"compile"}, &out); err == nil {
		t.Fatal("compile with no input succeeded, want error")
	}
}

package ir

import (
	"fmt"
	"io"
	"sort"
)

// Dump writes a deterministic human-readable rendering of the compiled
// program. The emission stage consumes the Program structure directly; this
// rendering exists for the CLI and for test comparisons.
func Dump(prog *Program, w io.Writer) {
	if prog == nil {
		fmt.Fprintln(w, "<nil program>")
		return
	}
	fmt.Fprintf(w, "program %s\n", prog.Name)
	fmt.Fprintf(w, "  go=%s done=%s reset=%s\n", prog.Go, prog.Done, prog.Reset)
	dumpCells(prog, w)
	dumpRegs(prog, w)
	dumpWires(prog, w)
	dumpFSMs(prog, w)
	dumpAssigns(prog, w)
}

func dumpCells(prog *Program, w io.Writer) {
	if len(prog.Cells) == 0 {
		return
	}
	fmt.Fprintln(w, "  cells:")
	for _, cell := range prog.Cells {
		fmt.Fprintf(w, "    %-10s %s width=%d param=%d\n", cell.Name, cell.Prim, cell.Width, cell.Param)
	}
}

func dumpRegs(prog *Program, w io.Writer) {
	if len(prog.Regs) == 0 {
		return
	}
	fmt.Fprintln(w, "  regs:")
	for _, reg := range prog.Regs {
		fmt.Fprintf(w, "    %-10s %db\n", reg.Name, reg.Width)
	}
}

func dumpWires(prog *Program, w io.Writer) {
	if len(prog.Wires) == 0 {
		return
	}
	names := append([]string(nil), prog.Wires...)
	sort.Strings(names)
	fmt.Fprintln(w, "  wires:")
	for _, name := range names {
		fmt.Fprintf(w, "    %s\n", name)
	}
}

func dumpFSMs(prog *Program, w io.Writer) {
	for _, fsm := range prog.FSMs {
		fmt.Fprintf(w, "  fsm %s states=%d width=%d\n", fsm.Name, fsm.States, fsm.Width)
		for _, tr := range fsm.Transitions {
			fmt.Fprintf(w, "    %d -> %d when %s\n", tr.From, tr.Next, tr.Guard)
		}
	}
}

func dumpAssigns(prog *Program, w io.Writer) {
	if len(prog.Assigns) == 0 {
		return
	}
	fmt.Fprintln(w, "  assigns:")
	for _, a := range prog.Assigns {
		fmt.Fprintf(w, "    %s = %s when %s\n", a.Dest, a.Src, a.Guard)
	}
}

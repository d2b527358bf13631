package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"fsmc/internal/backend"
	"fsmc/internal/compile"
	"fsmc/internal/ctxlog"
	"fsmc/internal/diag"
	"fsmc/internal/frontend"
	"fsmc/internal/ir"
	"fsmc/internal/sim"
	"fsmc/internal/validate"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		printGlobalUsage()
		return fmt.Errorf("missing command")
	}

	switch args[0] {
	case "compile":
		return runCompile(args[1:], stdout)
	case "sim":
		return runSim(args[1:], stdout)
	case "lint":
		return runLint(args[1:])
	default:
		printGlobalUsage()
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func printGlobalUsage() {
	fmt.Fprintf(os.Stderr, "fsmc control compiler\n\n")
	fmt.Fprintf(os.Stderr, "Usage:\n")
	fmt.Fprintf(os.Stderr, "  fsmc <command> [options] file.fsm\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  compile    Lower a control program to a flat guarded-assignment program\n")
	fmt.Fprintf(os.Stderr, "  sim        Compile and run the cycle-accurate simulator\n")
	fmt.Fprintf(os.Stderr, "  lint       Run validation-only checks\n")
}

func runCompile(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("compile", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	output := fs.String("o", "", "output file path (stdout when omitted)")
	top := fs.String("top", "main", "name of the compiled program")
	promote := fs.Bool("promote-static", false, "promote every fully static subtree to counter-based FSMs")
	earlyReset := fs.Bool("early-reset", false, "enable the early-reset while optimization")
	diagFormat := fs.String("diag-format", "text", "diagnostic output format (text|json)")
	verbose := fs.Bool("v", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("compile requires exactly one control program file")
	}

	prog, err := compilePipeline(fs.Arg(0), *diagFormat, *verbose, compile.Options{
		TopName:       *top,
		PromoteStatic: *promote,
		EarlyReset:    *earlyReset,
	})
	if err != nil {
		return err
	}

	if *output == "" || *output == "-" {
		return (backend.Text{}).Emit(stdout, prog)
	}
	return backend.WriteFile(backend.Text{}, prog, *output)
}

func runSim(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("sim", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	cycles := fs.Int("cycles", 1024, "maximum clock cycles before the run is declared stuck")
	trace := fs.Bool("trace", false, "print FSM states and done each cycle")
	top := fs.String("top", "main", "name of the compiled program")
	promote := fs.Bool("promote-static", false, "promote every fully static subtree to counter-based FSMs")
	earlyReset := fs.Bool("early-reset", false, "enable the early-reset while optimization")
	diagFormat := fs.String("diag-format", "text", "diagnostic output format (text|json)")
	verbose := fs.Bool("v", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("sim requires exactly one control program file")
	}
	if *cycles <= 0 {
		return fmt.Errorf("sim requires -cycles > 0 (got %d)", *cycles)
	}

	prog, err := compilePipeline(fs.Arg(0), *diagFormat, *verbose, compile.Options{
		TopName:       *top,
		PromoteStatic: *promote,
		EarlyReset:    *earlyReset,
	})
	if err != nil {
		return err
	}

	m, err := sim.New(prog)
	if err != nil {
		return err
	}

	if !*trace {
		done, err := m.Run(*cycles)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "done at cycle %d\n", done)
		return nil
	}

	fsmNames := make([]string, 0, len(prog.FSMs))
	for _, f := range prog.FSMs {
		fsmNames = append(fsmNames, f.Name)
	}
	sort.Strings(fsmNames)

	m.SetInput(prog.Go, 1)
	for c := 1; c <= *cycles; c++ {
		if err := m.Step(); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "cycle %d:", c)
		for _, name := range fsmNames {
			fmt.Fprintf(stdout, " %s=%d", name, m.FSMState(name))
		}
		fmt.Fprintf(stdout, " done=%d\n", m.PortValue(prog.Done))
		if m.PortValue(prog.Done) != 0 {
			m.SetInput(prog.Go, 0)
			fmt.Fprintf(stdout, "done at cycle %d\n", c)
			return nil
		}
	}
	return fmt.Errorf("sim: no done pulse within %d cycles", *cycles)
}

func runLint(args []string) error {
	fs := flag.NewFlagSet("lint", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	diagFormat := fs.String("diag-format", "text", "diagnostic output format (text|json)")
	verbose := fs.Bool("v", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("lint requires exactly one control program file")
	}

	ctx, rep := prepareContext(*diagFormat, *verbose)
	f, err := frontend.Load(ctx, fs.Arg(0), rep)
	if err != nil {
		return err
	}
	return validate.CheckProgram(f.Catalog, f.Control, rep)
}

// compilePipeline runs load, pre-compile validation, compilation and the
// post-compile exclusivity check.
func compilePipeline(path, diagFormat string, verbose bool, opts compile.Options) (*ir.Program, error) {
	ctx, rep := prepareContext(diagFormat, verbose)

	f, err := frontend.Load(ctx, path, rep)
	if err != nil {
		return nil, err
	}
	if err := validate.CheckProgram(f.Catalog, f.Control, rep); err != nil {
		return nil, err
	}
	prog, err := compile.Compile(f.Catalog, f.Control, opts)
	if err != nil {
		return nil, err
	}
	if err := validate.CheckExclusive(prog); err != nil {
		return nil, err
	}
	return prog, nil
}

func prepareContext(diagFormat string, verbose bool) (context.Context, *diag.Reporter) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	ctx := ctxlog.WithLogger(context.Background(), logger)
	return ctx, diag.NewReporter(os.Stderr, diagFormat)
}

// Package backend writes compiled programs to their output artifacts. The
// flat program structure is the emission contract: every consumer sees only
// cells, registers, wires, FSM transition tables and guarded assignments.
package backend

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"fsmc/internal/ir"
)

// Emitter renders one compiled program to a writer.
type Emitter interface {
	Emit(w io.Writer, prog *ir.Program) error
}

// Text is the canonical deterministic text emitter.
type Text struct{}

// Emit writes the canonical text rendering of prog.
func (Text) Emit(w io.Writer, prog *ir.Program) error {
	if prog == nil {
		return fmt.Errorf("backend: program is nil")
	}
	ir.Dump(prog, w)
	return nil
}

// WriteFile emits prog to outputPath, creating parent directories as needed.
// An empty path or "-" writes to stdout.
func WriteFile(e Emitter, prog *ir.Program, outputPath string) error {
	if outputPath == "" || outputPath == "-" {
		return e.Emit(os.Stdout, prog)
	}
	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("backend: create output dir: %w", err)
		}
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("backend: create output file: %w", err)
	}
	defer f.Close()
	if err := e.Emit(f, prog); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("backend: flush output file: %w", err)
	}
	return nil
}

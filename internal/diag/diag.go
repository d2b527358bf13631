// Package diag collects and formats position-carrying diagnostics.
package diag

import (
	"encoding/json"
	"fmt"
	"io"
)

// Loc is a source position inside a control-program file.
type Loc struct {
	Filename string
	Line     int
	Col      int
}

func (l Loc) String() string {
	if l.Filename == "" && l.Line == 0 {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", l.Filename, l.Line, l.Col)
}

// Item is a single reported diagnostic.
type Item struct {
	Loc      Loc    `json:"-"`
	Filename string `json:"file"`
	Line     int    `json:"line"`
	Col      int    `json:"col"`
	Msg      string `json:"message"`
}

// Reporter accumulates diagnostics and writes them in the configured format
// ("text" or "json").
type Reporter struct {
	w      io.Writer
	format string
	items  []Item
}

// NewReporter returns a reporter writing to w. Unknown formats fall back to
// text.
func NewReporter(w io.Writer, format string) *Reporter {
	if format != "json" {
		format = "text"
	}
	return &Reporter{w: w, format: format}
}

// Error records and emits one diagnostic.
func (r *Reporter) Error(loc Loc, msg string) {
	item := Item{Loc: loc, Filename: loc.Filename, Line: loc.Line, Col: loc.Col, Msg: msg}
	r.items = append(r.items, item)
	switch r.format {
	case "json":
		enc := json.NewEncoder(r.w)
		_ = enc.Encode(item)
	default:
		fmt.Fprintf(r.w, "%s: error: %s\n", loc, msg)
	}
}

// Errorf records a formatted diagnostic.
func (r *Reporter) Errorf(loc Loc, format string, args ...any) {
	r.Error(loc, fmt.Sprintf(format, args...))
}

// HasErrors reports whether any diagnostic has been recorded.
func (r *Reporter) HasErrors() bool {
	return len(r.items) > 0
}

// Count returns the number of recorded diagnostics.
func (r *Reporter) Count() int {
	return len(r.items)
}

// Items returns the recorded diagnostics in report order.
func (r *Reporter) Items() []Item {
	return r.items
}

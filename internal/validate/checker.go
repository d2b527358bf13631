// Package validate checks control programs before compilation and proves
// guard exclusivity on compiled programs.
package validate

import (
	"fsmc/internal/compile"
	"fsmc/internal/diag"
	"fsmc/internal/ir"
)

// CheckProgram validates a control tree against its catalog: every
// referenced group and cell must exist, dynamic and static groups must drive
// their done wires, and combinational groups may only appear in condition
// position. Problems are reported through the reporter; the returned error
// carries the kind of the first problem found.
func CheckProgram(cat *ir.Catalog, ctrl ir.Control, reporter *diag.Reporter) error {
	c := &checker{cat: cat, reporter: reporter}
	c.checkGroups()
	ir.WalkControl(ctrl, c.checkNode)
	if c.count == 0 {
		return nil
	}
	return compile.Errorf(c.firstKind, "validation failed with %d issue(s)", c.count)
}

type checker struct {
	cat      *ir.Catalog
	reporter *diag.Reporter

	count     int
	firstKind compile.ErrorKind
}

func (c *checker) checkGroups() {
	for _, group := range c.cat.Groups() {
		drivesDone := false
		doneWire := ir.Wire(group.DoneWire())
		for _, a := range group.Assigns {
			if a.Dest == doneWire {
				drivesDone = true
			}
		}
		switch group.Latency.Kind {
		case ir.Combinational:
			if drivesDone {
				c.error(compile.MissingDone, diag.Loc{},
					"combinational group %q must not drive a done wire", group.Name)
			}
		default:
			if !drivesDone {
				c.error(compile.MissingDone, diag.Loc{},
					"group %q declares %s latency but never drives %s", group.Name, group.Latency, group.DoneWire())
			}
		}
	}
}

func (c *checker) checkNode(node ir.Control) {
	loc := node.Info().Source
	switch t := node.(type) {
	case *ir.Enable:
		group, ok := c.cat.Lookup(t.Group)
		if !ok {
			c.error(compile.UnknownGroup, loc, "control enables undeclared group %q", t.Group)
			return
		}
		if group.Latency.Kind == ir.Combinational {
			c.error(compile.MissingDone, loc,
				"combinational group %q cannot be enabled as a statement", t.Group)
		}
	case *ir.If:
		c.checkCondition(loc, t.CondPort, t.CondGroup)
	case *ir.While:
		c.checkCondition(loc, t.CondPort, t.CondGroup)
	case *ir.Invoke:
		if _, ok := c.cat.Cell(t.Cell); !ok {
			c.error(compile.UnknownGroup, loc, "invoke references undeclared cell %q", t.Cell)
		}
	}
}

func (c *checker) checkCondition(loc diag.Loc, port ir.Port, condGroup string) {
	if port.IsZero() {
		c.error(compile.UnknownGroup, loc, "condition is missing a port")
	}
	if condGroup == "" {
		return
	}
	group, ok := c.cat.Lookup(condGroup)
	if !ok {
		c.error(compile.UnknownGroup, loc, "condition references undeclared group %q", condGroup)
		return
	}
	if group.Latency.Kind != ir.Combinational {
		c.error(compile.MissingDone, loc,
			"condition group %q must be combinational, got %s latency", condGroup, group.Latency)
	}
}

func (c *checker) error(kind compile.ErrorKind, loc diag.Loc, format string, args ...any) {
	if c.count == 0 {
		c.firstKind = kind
	}
	c.count++
	if c.reporter != nil {
		c.reporter.Errorf(loc, format, args...)
	}
}

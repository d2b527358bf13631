// Package compile lowers a control tree over a group catalog into a flat
// synchronous circuit: guarded assignments plus the finite-state machines
// that drive them.
package compile

import (
	"fmt"

	"fsmc/internal/ir"
	"fsmc/internal/passes"
)

// Options configures the compilation.
type Options struct {
	// TopName names the compiled program. Defaults to "main".
	TopName string
	// PromoteStatic replaces done-driven scheduling with free-running
	// counters for every subtree whose total latency is known at compile
	// time. Nodes marked static in the source are promoted regardless.
	PromoteStatic bool
	// EarlyReset hoists loop condition evaluation into the final body cycle
	// and reuses the latched result, removing the per-iteration settle
	// state of comb-group conditions.
	EarlyReset bool
}

// Compile lowers ctrl against cat and returns the flat program. The catalog
// and tree are read-only; all referenced groups must exist (the validate
// package reports richer diagnostics for malformed inputs, Compile returns
// typed errors).
func Compile(cat *ir.Catalog, ctrl ir.Control, opts Options) (*ir.Program, error) {
	name := opts.TopName
	if name == "" {
		name = "main"
	}
	prog := &ir.Program{Name: name, Cells: append([]*ir.Cell(nil), cat.Cells()...)}

	c := &compiler{
		cat:    cat,
		prog:   prog,
		opts:   opts,
		spans:  passes.StaticSpans(cat, ctrl),
		counts: make(map[string]int),
		groups: make(map[string]bool),
	}

	prog.Go = prog.AddWire("go")
	prog.Done = prog.AddWire("done")
	prog.Reset = prog.AddWire("reset")

	root, err := c.compile(ctrl)
	if err != nil {
		return nil, err
	}
	c.assign(root.goW, ir.ReadPort(prog.Go))
	c.assign(prog.Done, ir.ReadPort(root.doneW))
	return prog, nil
}

type compiler struct {
	cat    *ir.Catalog
	prog   *ir.Program
	opts   Options
	spans  map[ir.Control]uint32
	counts map[string]int
	groups map[string]bool
}

// scope is a compiled control node: the parent drives goW, the node drives
// doneW combinationally during its final active cycle.
type scope struct {
	goW   ir.Port
	doneW ir.Port
}

func (c *compiler) compile(node ir.Control) (scope, error) {
	if node == nil {
		node = &ir.Empty{}
	}
	if total, ok := c.spans[node]; ok && (c.opts.PromoteStatic || node.Info().Static) {
		return c.compileStatic(node, total)
	}
	if node.Info().Static {
		return scope{}, Errorf(LatencyMismatch,
			"static compilation requested at %s but the subtree contains dynamic latency", node.Info().Source)
	}

	switch t := node.(type) {
	case *ir.Enable:
		return c.compileEnable(t)
	case *ir.Seq:
		return c.compileSeq(t)
	case *ir.Par:
		return c.compilePar(t)
	case *ir.If:
		return c.compileIf(t)
	case *ir.While:
		return c.compileWhile(t)
	case *ir.Repeat:
		return c.compileRepeat(t)
	case *ir.Invoke:
		return c.compileInvoke(t)
	case *ir.Empty:
		return c.compileEmpty()
	default:
		return scope{}, fmt.Errorf("compile: unhandled control node %T", node)
	}
}

func (c *compiler) compileEnable(node *ir.Enable) (scope, error) {
	group, ok := c.cat.Lookup(node.Group)
	if !ok {
		return scope{}, Errorf(UnknownGroup, "control enables undeclared group %q", node.Group)
	}
	if group.Latency.Kind == ir.Combinational {
		return scope{}, Errorf(MissingDone,
			"combinational group %q cannot be enabled as a statement; use it as a condition", node.Group)
	}
	sc := c.newScope("enable_" + group.Name)
	c.ensureGroup(group)
	active := ir.ReadPort(sc.goW)
	c.assign(ir.Wire(group.GoWire()), active)
	c.assign(sc.doneW, ir.And(active, ir.ReadWire(group.DoneWire())))
	return sc, nil
}

func (c *compiler) compileInvoke(node *ir.Invoke) (scope, error) {
	if _, ok := c.cat.Cell(node.Cell); !ok {
		return scope{}, Errorf(UnknownGroup, "invoke references undeclared cell %q", node.Cell)
	}
	sc := c.newScope("invoke_" + node.Cell)
	active := ir.ReadPort(sc.goW)
	c.prog.Assign(ir.Port{Cell: node.Cell, Pin: "go"}, active, ir.ConstExpr(1))
	for _, binding := range node.Bindings {
		c.prog.Assign(ir.Port{Cell: node.Cell, Pin: binding.Pin}, active, binding.Src)
	}
	done := ir.ReadPort(ir.Port{Cell: node.Cell, Pin: "done"})
	c.assign(sc.doneW, ir.And(active, done))
	return sc, nil
}

func (c *compiler) compileEmpty() (scope, error) {
	sc := c.newScope("empty")
	c.assign(sc.doneW, ir.ReadPort(sc.goW))
	return sc, nil
}

// ensureGroup flattens the group's assignments exactly once, conjoining
// every internal guard with the group's go hole. Multiple enable sites then
// share the flattened body and contend only on the go wire.
func (c *compiler) ensureGroup(group *ir.Group) {
	if c.groups[group.Name] {
		return
	}
	c.groups[group.Name] = true
	c.prog.AddWire(group.GoWire())
	if group.Latency.Kind != ir.Combinational {
		c.prog.AddWire(group.DoneWire())
	}
	active := ir.ReadWire(group.GoWire())
	for _, a := range group.Assigns {
		c.prog.Assign(a.Dest, ir.And(active, a.Guard), a.Src)
	}
}

// newScope allocates the go and done wires for one compiled node.
func (c *compiler) newScope(prefix string) scope {
	name := c.fresh(prefix)
	return scope{
		goW:   c.prog.AddWire(name + "_go"),
		doneW: c.prog.AddWire(name + "_done"),
	}
}

func (c *compiler) fresh(prefix string) string {
	n := c.counts[prefix]
	c.counts[prefix] = n + 1
	if n == 0 {
		return prefix
	}
	return fmt.Sprintf("%s%d", prefix, n)
}

// assign drives a 1-bit destination high under the guard.
func (c *compiler) assign(dest ir.Port, guard ir.Guard) {
	c.prog.Assign(dest, guard, ir.ConstExpr(1))
}

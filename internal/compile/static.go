package compile

import (
	"fmt"

	"fsmc/internal/ir"
)

// compileStatic lowers a subtree whose total duration is known at compile
// time. One free-running state register counts the cycles: every transition
// is unconditional while the scope is enabled, so no leaf done signal feeds
// back into the scheduler. Each leaf group's go is driven from the state
// range covering its slot, and the subtree's done is simply the final state.
func (c *compiler) compileStatic(node ir.Control, total uint32) (scope, error) {
	if total == 0 {
		return c.compileEmpty()
	}
	sc := c.newScope("static")
	fsm := c.prog.AddFSM(c.fresh("fsm"), total)
	active := ir.ReadPort(sc.goW)

	for s := uint32(0); s < total; s++ {
		next := s + 1
		if next == total {
			next = 0
		}
		fsm.AddTransition(s, ir.And(active, ir.State(fsm.Name, s)), next)
	}

	consumed, err := c.scheduleStatic(node, fsm, active, 0)
	if err != nil {
		return scope{}, err
	}
	if consumed != total {
		return scope{}, fmt.Errorf("compile: static schedule covered %d of %d cycles", consumed, total)
	}

	c.assign(sc.doneW, ir.And(active, ir.State(fsm.Name, total-1)))
	return sc, nil
}

// scheduleStatic places node at the given cycle offset and returns the
// cycles it occupies.
func (c *compiler) scheduleStatic(node ir.Control, fsm *ir.FSM, active ir.Guard, off uint32) (uint32, error) {
	span, ok := c.spans[node]
	if !ok {
		return 0, Errorf(LatencyMismatch,
			"static promotion reached a dynamic node at %s", node.Info().Source)
	}
	switch t := node.(type) {
	case *ir.Enable:
		group, ok := c.cat.Lookup(t.Group)
		if !ok {
			return 0, Errorf(UnknownGroup, "control enables undeclared group %q", t.Group)
		}
		c.ensureGroup(group)
		slot := ir.And(active, ir.StateRange(fsm.Name, off, off+span))
		c.assign(ir.Wire(group.GoWire()), slot)
		return span, nil
	case *ir.Seq:
		cursor := off
		for _, child := range t.Children {
			n, err := c.scheduleStatic(child, fsm, active, cursor)
			if err != nil {
				return 0, err
			}
			cursor += n
		}
		return span, nil
	case *ir.Par:
		for _, child := range t.Children {
			if _, err := c.scheduleStatic(child, fsm, active, off); err != nil {
				return 0, err
			}
		}
		return span, nil
	case *ir.Repeat:
		body := span / t.Count
		cursor := off
		for i := uint32(0); i < t.Count; i++ {
			if _, err := c.scheduleStatic(t.Body, fsm, active, cursor); err != nil {
				return 0, err
			}
			cursor += body
		}
		return span, nil
	default:
		return 0, Errorf(LatencyMismatch,
			"control node %T at %s cannot be scheduled statically", node, node.Info().Source)
	}
}

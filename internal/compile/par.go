package compile

import "fsmc/internal/ir"

// compilePar enables every child simultaneously and joins on the completion
// of all of them. A child's done is a one-cycle pulse, so each child gets a
// completion latch that captures the pulse and holds it until the join
// fires; the aggregate done is computed combinationally every cycle and the
// latches are cleared synchronously on the join cycle, ready for re-entry.
func (c *compiler) compilePar(node *ir.Par) (scope, error) {
	sc := c.newScope("par")
	if len(node.Children) == 0 {
		c.assign(sc.doneW, ir.ReadPort(sc.goW))
		return sc, nil
	}

	active := ir.ReadPort(sc.goW)

	children := make([]scope, len(node.Children))
	latches := make([]ir.RegDecl, len(node.Children))
	for i, child := range node.Children {
		cs, err := c.compile(child)
		if err != nil {
			return scope{}, err
		}
		children[i] = cs
		latches[i] = c.prog.AddReg(c.fresh("pdone"), 1)
	}

	// Aggregate join: every child has either pulsed done this cycle or
	// latched a completion from an earlier cycle.
	joined := ir.True
	for i := range children {
		finished := ir.Or(ir.ReadPort(children[i].doneW), ir.ReadPort(latches[i].Out()))
		joined = ir.And(joined, finished)
	}
	join := ir.And(active, joined)
	c.assign(sc.doneW, join)

	for i := range children {
		latched := ir.ReadPort(latches[i].Out())
		c.assign(children[i].goW, ir.And(active, ir.Not(latched)))

		// Set when the child's done pulses before the join; on the join
		// cycle the latch clears instead (in defaults to zero).
		set := ir.AndAll(active, ir.ReadPort(children[i].doneW), ir.Not(join))
		c.assign(latches[i].In(), set)
		c.assign(latches[i].En(), ir.Or(set, join))
	}
	return sc, nil
}

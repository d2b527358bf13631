package compile

import "fsmc/internal/ir"

// compileSeq allocates one FSM state per child and advances on each child's
// done. Children are compiled strictly left to right; compound children keep
// their sequencing in their own FSMs, so the parent needs exactly one state
// for each of them.
func (c *compiler) compileSeq(node *ir.Seq) (scope, error) {
	sc := c.newScope("seq")
	if len(node.Children) == 0 {
		c.assign(sc.doneW, ir.ReadPort(sc.goW))
		return sc, nil
	}

	fsm := c.prog.AddFSM(c.fresh("fsm"), uint32(len(node.Children)))
	active := ir.ReadPort(sc.goW)

	for i, child := range node.Children {
		cs, err := c.compile(child)
		if err != nil {
			return scope{}, err
		}
		inState := ir.And(active, ir.State(fsm.Name, uint32(i)))
		c.assign(cs.goW, inState)

		childDone := ir.And(inState, ir.ReadPort(cs.doneW))
		last := i == len(node.Children)-1
		next := uint32(i + 1)
		if last {
			next = 0
			c.assign(sc.doneW, childDone)
		}
		fsm.AddTransition(uint32(i), childDone, next)
	}
	return sc, nil
}

package compile

import "fsmc/internal/ir"

// compileIf branches on a 1-bit condition port.
//
// A direct port condition costs no extra cycles: the branch gos and the done
// mux are gated combinationally, and the port must stay stable while the
// taken branch executes. A comb-group condition buys stability instead: a
// dedicated evaluation state enables the group, the settled value is
// captured in a condition register, and the branch runs against the
// register, at a cost of one cycle per evaluation.
func (c *compiler) compileIf(node *ir.If) (scope, error) {
	if node.CondGroup == "" {
		return c.compileIfPort(node)
	}
	return c.compileIfComb(node)
}

func (c *compiler) compileIfPort(node *ir.If) (scope, error) {
	sc := c.newScope("if")
	thenScope, err := c.compile(node.Then)
	if err != nil {
		return scope{}, err
	}
	elseScope, err := c.compile(node.Else)
	if err != nil {
		return scope{}, err
	}

	active := ir.ReadPort(sc.goW)
	cond := ir.ReadPort(node.CondPort)

	c.assign(thenScope.goW, ir.And(active, cond))
	c.assign(elseScope.goW, ir.And(active, ir.Not(cond)))

	done := ir.Or(
		ir.AndAll(active, cond, ir.ReadPort(thenScope.doneW)),
		ir.AndAll(active, ir.Not(cond), ir.ReadPort(elseScope.doneW)),
	)
	c.assign(sc.doneW, done)
	return sc, nil
}

func (c *compiler) compileIfComb(node *ir.If) (scope, error) {
	group, err := c.condGroup(node.CondGroup)
	if err != nil {
		return scope{}, err
	}
	sc := c.newScope("if")
	thenScope, err := c.compile(node.Then)
	if err != nil {
		return scope{}, err
	}
	elseScope, err := c.compile(node.Else)
	if err != nil {
		return scope{}, err
	}

	fsm := c.prog.AddFSM(c.fresh("fsm"), 2)
	condReg := c.prog.AddReg(c.fresh("cond"), 1)

	active := ir.ReadPort(sc.goW)
	evaluating := ir.And(active, ir.State(fsm.Name, 0))
	branching := ir.And(active, ir.State(fsm.Name, 1))

	// State 0: enable the comb group and capture the settled condition.
	c.ensureGroup(group)
	c.assign(ir.Wire(group.GoWire()), evaluating)
	c.assign(condReg.In(), ir.And(evaluating, ir.ReadPort(node.CondPort)))
	c.assign(condReg.En(), evaluating)
	fsm.AddTransition(0, evaluating, 1)

	// State 1: run the branch selected by the captured value.
	taken := ir.ReadPort(condReg.Out())
	c.assign(thenScope.goW, ir.And(branching, taken))
	c.assign(elseScope.goW, ir.And(branching, ir.Not(taken)))

	done := ir.Or(
		ir.AndAll(branching, taken, ir.ReadPort(thenScope.doneW)),
		ir.AndAll(branching, ir.Not(taken), ir.ReadPort(elseScope.doneW)),
	)
	c.assign(sc.doneW, done)
	fsm.AddTransition(1, done, 0)
	return sc, nil
}

// condGroup resolves a condition group and checks it is combinational.
func (c *compiler) condGroup(name string) (*ir.Group, error) {
	group, ok := c.cat.Lookup(name)
	if !ok {
		return nil, Errorf(UnknownGroup, "condition references undeclared group %q", name)
	}
	if group.Latency.Kind != ir.Combinational {
		return nil, Errorf(MissingDone,
			"condition group %q must be combinational, got %s latency", name, group.Latency)
	}
	return group, nil
}

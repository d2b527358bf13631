package compile

import "fsmc/internal/ir"

// compileWhile lowers a loop. A direct port condition costs no scheduling
// overhead; a comb-group condition pays one evaluation cycle per iteration
// unless the early-reset optimization is enabled.
func (c *compiler) compileWhile(node *ir.While) (scope, error) {
	if node.CondGroup == "" {
		return c.compileWhilePort(node)
	}
	if c.opts.EarlyReset {
		return c.compileWhileEarlyReset(node)
	}
	return c.compileWhileNaive(node)
}

// compileWhilePort re-runs the body while the condition port reads true. The
// body's own FSM restarts whenever its go stays asserted, so no loop FSM is
// needed; a one-bit running latch keeps the body enabled across a
// mid-iteration condition change so an iteration is never truncated.
func (c *compiler) compileWhilePort(node *ir.While) (scope, error) {
	sc := c.newScope("while")
	body, err := c.compile(node.Body)
	if err != nil {
		return scope{}, err
	}

	running := c.prog.AddReg(c.fresh("wrun"), 1)
	active := ir.ReadPort(sc.goW)
	cond := ir.ReadPort(node.CondPort)
	midIteration := ir.ReadPort(running.Out())
	bodyDone := ir.ReadPort(body.doneW)

	c.assign(body.goW, ir.And(active, ir.Or(cond, midIteration)))

	// The latch marks a multi-cycle iteration in flight; single-cycle
	// iterations set and clear in the same decision and leave it idle.
	set := ir.AndAll(active, cond, ir.Not(midIteration), ir.Not(bodyDone))
	clear := ir.And(active, bodyDone)
	c.assign(running.In(), set)
	c.assign(running.En(), ir.Or(set, clear))

	c.assign(sc.doneW, ir.AndAll(active, ir.Not(cond), ir.Not(midIteration)))
	return sc, nil
}

// compileWhileNaive spends a dedicated state per iteration enabling the comb
// group and letting its result settle before branching.
func (c *compiler) compileWhileNaive(node *ir.While) (scope, error) {
	group, err := c.condGroup(node.CondGroup)
	if err != nil {
		return scope{}, err
	}
	sc := c.newScope("while")
	body, err := c.compile(node.Body)
	if err != nil {
		return scope{}, err
	}

	fsm := c.prog.AddFSM(c.fresh("fsm"), 2)
	active := ir.ReadPort(sc.goW)
	evaluating := ir.And(active, ir.State(fsm.Name, 0))
	inBody := ir.And(active, ir.State(fsm.Name, 1))
	cond := ir.ReadPort(node.CondPort)

	c.ensureGroup(group)
	c.assign(ir.Wire(group.GoWire()), evaluating)

	fsm.AddTransition(0, ir.And(evaluating, cond), 1)
	c.assign(body.goW, inBody)
	fsm.AddTransition(1, ir.And(inBody, ir.ReadPort(body.doneW)), 0)

	c.assign(sc.doneW, ir.And(evaluating, ir.Not(cond)))
	return sc, nil
}

// compileWhileEarlyReset hoists the comb group's enable into the body's
// final cycle and latches the result, so steady-state iterations branch
// straight from body to body without revisiting the evaluation state. The
// condition register holds the hoisted value and the validity register marks
// it usable for a decision made later in the evaluation state (re-entry);
// it is invalidated when consumed. The hoisted evaluation reads the state
// the loop body has not yet committed on that cycle; condition groups used
// with this optimization must tolerate that contract.
func (c *compiler) compileWhileEarlyReset(node *ir.While) (scope, error) {
	group, err := c.condGroup(node.CondGroup)
	if err != nil {
		return scope{}, err
	}
	sc := c.newScope("while")
	body, err := c.compile(node.Body)
	if err != nil {
		return scope{}, err
	}

	fsm := c.prog.AddFSM(c.fresh("fsm"), 2)
	condReg := c.prog.AddReg(c.fresh("cond"), 1)
	condValid := c.prog.AddReg(c.fresh("cvalid"), 1)

	active := ir.ReadPort(sc.goW)
	entry := ir.And(active, ir.State(fsm.Name, 0))
	inBody := ir.And(active, ir.State(fsm.Name, 1))
	cond := ir.ReadPort(node.CondPort)
	reusable := ir.ReadPort(condValid.Out())
	reused := ir.ReadPort(condReg.Out())
	bodyDone := ir.ReadPort(body.doneW)

	c.assign(body.goW, inBody)

	// The comb group runs on first entry (no valid latched value) and again
	// during each iteration's final cycle, one cycle ahead of the decision
	// it feeds.
	hoist := ir.And(inBody, bodyDone)
	evaluating := ir.Or(ir.And(entry, ir.Not(reusable)), hoist)
	c.ensureGroup(group)
	c.assign(ir.Wire(group.GoWire()), evaluating)

	// Entry decision: reuse the latched value when it is valid, otherwise
	// the freshly evaluated port.
	decision := ir.Or(ir.And(reusable, reused), ir.And(ir.Not(reusable), cond))
	fsm.AddTransition(0, ir.And(entry, decision), 1)

	// Steady state: branch straight from the body's final cycle.
	fsm.AddTransition(1, ir.And(hoist, cond), 1)
	fsm.AddTransition(1, ir.And(hoist, ir.Not(cond)), 0)

	exit := ir.Or(
		ir.And(entry, ir.Not(decision)),
		ir.And(hoist, ir.Not(cond)),
	)
	c.assign(sc.doneW, exit)

	c.assign(condReg.In(), ir.And(evaluating, cond))
	c.assign(condReg.En(), evaluating)

	// Valid while a hoisted value is outstanding; cleared when the loop
	// completes or when an entry decision consumes it.
	c.assign(condValid.In(), ir.And(evaluating, ir.Not(exit)))
	c.assign(condValid.En(), ir.Or(evaluating, ir.And(entry, reusable)))
	return sc, nil
}

// compileRepeat counts body completions in a counter cell; the body's own
// FSM restarts between iterations, so no extra states are spent.
func (c *compiler) compileRepeat(node *ir.Repeat) (scope, error) {
	if node.Count == 0 {
		return c.compileEmpty()
	}
	sc := c.newScope("repeat")
	body, err := c.compile(node.Body)
	if err != nil {
		return scope{}, err
	}

	counter := &ir.Cell{
		Name:  c.fresh("ridx"),
		Prim:  "std_counter",
		Width: widthFor(node.Count),
		Param: uint64(node.Count),
	}
	c.prog.Cells = append(c.prog.Cells, counter)

	active := ir.ReadPort(sc.goW)
	lastIter := ir.ReadPort(ir.Port{Cell: counter.Name, Pin: "last"})
	bodyDone := ir.ReadPort(body.doneW)

	c.assign(body.goW, active)

	done := ir.AndAll(active, lastIter, bodyDone)
	c.assign(sc.doneW, done)
	c.assign(ir.Port{Cell: counter.Name, Pin: "en"}, ir.AndAll(active, bodyDone, ir.Not(lastIter)))
	c.assign(ir.Port{Cell: counter.Name, Pin: "clr"}, done)
	return sc, nil
}

func widthFor(states uint32) int {
	if states <= 1 {
		return 1
	}
	bits := 0
	for n := states - 1; n > 0; n >>= 1 {
		bits++
	}
	return bits
}

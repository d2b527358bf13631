package ir

// Transition is one row of an FSM transition table: while the register holds
// From and the guard is true, the register advances to Next on the clock
// edge. At most one transition per state may be enabled in any cycle.
type Transition struct {
	From  uint32
	Guard Guard
	Next  uint32
}

// FSM is the synthesized state register for one control scope. States are a
// dense range starting at 0; state 0 is the idle/entry state, and completion
// is a predicate over the last state(s) rather than a separate state, so the
// machine restarts immediately when re-enabled.
type FSM struct {
	Name        string
	Width       int
	States      uint32
	Transitions []Transition
}

// AddTransition appends a transition row.
func (f *FSM) AddTransition(from uint32, guard Guard, next uint32) {
	f.Transitions = append(f.Transitions, Transition{From: from, Guard: guard, Next: next})
}

// RegDecl declares a compiler-allocated register: completion latches,
// condition latches and iteration counters. A register named r is written
// through the ports r.in and r.en and read through r.out; a synchronous
// reset clears it to zero.
type RegDecl struct {
	Name  string
	Width int
}

// In returns the register's data input port.
func (r RegDecl) In() Port { return Port{Cell: r.Name, Pin: "in"} }

// En returns the register's write-enable port.
func (r RegDecl) En() Port { return Port{Cell: r.Name, Pin: "en"} }

// Out returns the register's output port.
func (r RegDecl) Out() Port { return Port{Cell: r.Name, Pin: "out"} }

// Program is the flat compiled circuit: the output contract handed to the
// RTL emission stage. It consists of guarded assignments, FSM declarations
// with explicit transition tables, register and wire declarations, and the
// top-level go/done/reset handshake ports.
type Program struct {
	Name    string
	Cells   []*Cell
	Regs    []RegDecl
	Wires   []string
	FSMs    []*FSM
	Assigns []Assign

	Go    Port
	Done  Port
	Reset Port
}

// AddWire declares a 1-bit wire and returns its port.
func (p *Program) AddWire(name string) Port {
	p.Wires = append(p.Wires, name)
	return Wire(name)
}

// AddReg declares a register.
func (p *Program) AddReg(name string, width int) RegDecl {
	r := RegDecl{Name: name, Width: width}
	p.Regs = append(p.Regs, r)
	return r
}

// AddFSM declares an FSM with the given number of states.
func (p *Program) AddFSM(name string, states uint32) *FSM {
	f := &FSM{Name: name, States: states, Width: bitsFor(states)}
	p.FSMs = append(p.FSMs, f)
	return f
}

// Assign appends a guarded assignment.
func (p *Program) Assign(dest Port, guard Guard, src Expr) {
	p.Assigns = append(p.Assigns, Assign{Dest: dest, Guard: guard, Src: src})
}

// AssignsTo returns every assignment driving the given port.
func (p *Program) AssignsTo(dest Port) []Assign {
	var out []Assign
	for _, a := range p.Assigns {
		if a.Dest == dest {
			out = append(out, a)
		}
	}
	return out
}

// FSMByName returns the named FSM declaration.
func (p *Program) FSMByName(name string) *FSM {
	for _, f := range p.FSMs {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func bitsFor(states uint32) int {
	if states <= 1 {
		return 1
	}
	bits := 0
	for n := states - 1; n > 0; n >>= 1 {
		bits++
	}
	return bits
}

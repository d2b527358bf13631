// Package sim interprets compiled programs cycle by cycle: combinational
// settling of the guarded assignments followed by a synchronous clock edge
// committing FSM transitions, register writes and primitive state. It exists
// so compiled circuits can be executed and checked without an external
// simulator.
package sim

import (
	"github.com/pkg/errors"

	"fsmc/internal/ir"
)

// Machine simulates one compiled program.
type Machine struct {
	prog   *ir.Program
	prims  map[string]*prim
	regs   map[string]regState
	fsms   map[string]uint32
	inputs map[ir.Port]uint64
	vals   map[ir.Port]uint64
	cycle  int
}

type regState struct {
	value uint64
	width int
}

// New builds a machine for the program. Unknown primitive kinds are an
// error.
func New(prog *ir.Program) (*Machine, error) {
	if prog == nil {
		return nil, errors.New("sim: nil program")
	}
	m := &Machine{
		prog:   prog,
		prims:  make(map[string]*prim),
		regs:   make(map[string]regState),
		fsms:   make(map[string]uint32),
		inputs: make(map[ir.Port]uint64),
		vals:   make(map[ir.Port]uint64),
	}
	for _, cell := range prog.Cells {
		p, err := newPrim(cell)
		if err != nil {
			return nil, err
		}
		m.prims[cell.Name] = p
	}
	for _, reg := range prog.Regs {
		width := reg.Width
		if width <= 0 {
			width = 1
		}
		m.regs[reg.Name] = regState{width: width}
	}
	for _, fsm := range prog.FSMs {
		m.fsms[fsm.Name] = 0
	}
	return m, nil
}

// Reset synchronously returns every FSM to state 0 and clears every register
// and primitive, mirroring the circuit's reset input.
func (m *Machine) Reset() {
	for name := range m.fsms {
		m.fsms[name] = 0
	}
	for name, reg := range m.regs {
		reg.value = 0
		m.regs[name] = reg
	}
	for _, p := range m.prims {
		p.reset()
	}
	m.vals = make(map[ir.Port]uint64)
	m.cycle = 0
}

// SetInput drives an externally owned port (the top-level go) for the
// following cycles.
func (m *Machine) SetInput(port ir.Port, value uint64) {
	m.inputs[port] = value
}

// Cycle returns the number of completed cycles since reset.
func (m *Machine) Cycle() int {
	return m.cycle
}

// PortValue returns a port's value as settled in the last completed cycle.
func (m *Machine) PortValue(port ir.Port) uint64 {
	return m.vals[port]
}

// FSMState returns the current state of the named FSM register.
func (m *Machine) FSMState(name string) uint32 {
	return m.fsms[name]
}

// RegValue returns the committed value of a compiler-allocated register.
func (m *Machine) RegValue(name string) uint64 {
	return m.regs[name].value
}

// Step simulates one clock cycle: settle the combinational network, then
// commit the edge. After Step returns, PortValue reflects the cycle that
// just elapsed.
func (m *Machine) Step() error {
	vals, err := m.settle()
	if err != nil {
		return errors.Wrapf(err, "cycle %d", m.cycle+1)
	}
	m.vals = vals
	if err := m.commit(vals); err != nil {
		return errors.Wrapf(err, "cycle %d", m.cycle+1)
	}
	m.cycle++
	return nil
}

// Run drives the top-level handshake: go is held high until done pulses,
// then released. The returned cycle is 1-based.
func (m *Machine) Run(maxCycles int) (int, error) {
	m.SetInput(m.prog.Go, 1)
	for c := 1; c <= maxCycles; c++ {
		if err := m.Step(); err != nil {
			return 0, err
		}
		if m.PortValue(m.prog.Done) != 0 {
			m.SetInput(m.prog.Go, 0)
			return c, nil
		}
	}
	return 0, errors.Errorf("sim: no done pulse within %d cycles", maxCycles)
}

// settle evaluates assignments and primitive combinational outputs until a
// fixpoint. Two active drivers on one destination, or a network that does
// not converge, are simulation assertions.
func (m *Machine) settle() (map[ir.Port]uint64, error) {
	vals := make(map[ir.Port]uint64, len(m.vals))
	for port, v := range m.inputs {
		vals[port] = v
	}
	for name, reg := range m.regs {
		vals[ir.Port{Cell: name, Pin: "out"}] = reg.value
	}

	read := func(p ir.Port) uint64 { return vals[p] }
	state := func(fsm string) uint32 { return m.fsms[fsm] }
	guardTrue := func(g ir.Guard) bool {
		return g.Eval(state, func(p ir.Port) bool { return vals[p] != 0 })
	}

	evalPass := func() bool {
		changed := false
		driven := make(map[ir.Port]bool, len(m.prog.Assigns))

		for _, a := range m.prog.Assigns {
			if !guardTrue(a.Guard) {
				continue
			}
			driven[a.Dest] = true
			var v uint64
			if a.Src.Const {
				v = a.Src.Value
			} else {
				v = read(a.Src.Port)
			}
			if vals[a.Dest] != v {
				vals[a.Dest] = v
				changed = true
			}
		}
		// Destinations with no active driver fall back to zero.
		for _, a := range m.prog.Assigns {
			if !driven[a.Dest] && vals[a.Dest] != 0 {
				vals[a.Dest] = 0
				changed = true
			}
		}

		for _, cell := range m.prog.Cells {
			if m.prims[cell.Name].evalComb(vals) {
				changed = true
			}
		}
		return changed
	}

	maxPasses := len(m.prog.Assigns) + len(m.prog.Cells) + 8
	for pass := 0; pass < maxPasses; pass++ {
		if evalPass() {
			continue
		}
		// Converged; the multi-driver assertion is checked against the
		// settled values only, transient passes do not count.
		active := make(map[ir.Port]int, len(m.prog.Assigns))
		for i, a := range m.prog.Assigns {
			if !guardTrue(a.Guard) {
				continue
			}
			if prev, ok := active[a.Dest]; ok {
				return nil, errors.Errorf(
					"multiple drivers on %s: assignments %d and %d active together", a.Dest, prev, i)
			}
			active[a.Dest] = i
		}
		return vals, nil
	}
	return nil, errors.New("combinational network did not converge")
}

// commit applies the clock edge using the settled values.
func (m *Machine) commit(vals map[ir.Port]uint64) error {
	if vals[m.prog.Reset] != 0 {
		for name := range m.fsms {
			m.fsms[name] = 0
		}
		for name, reg := range m.regs {
			reg.value = 0
			m.regs[name] = reg
		}
		for _, p := range m.prims {
			p.reset()
		}
		return nil
	}

	state := func(fsm string) uint32 { return m.fsms[fsm] }
	port := func(p ir.Port) bool { return vals[p] != 0 }

	for _, fsm := range m.prog.FSMs {
		cur := m.fsms[fsm.Name]
		taken := -1
		for i, tr := range fsm.Transitions {
			if tr.From != cur || !tr.Guard.Eval(state, port) {
				continue
			}
			if taken >= 0 {
				return errors.Errorf("fsm %s: transitions %d and %d enabled together in state %d",
					fsm.Name, taken, i, cur)
			}
			taken = i
		}
		if taken >= 0 {
			m.fsms[fsm.Name] = fsm.Transitions[taken].Next
		}
	}

	for name, reg := range m.regs {
		if vals[ir.Port{Cell: name, Pin: "en"}] != 0 {
			reg.value = vals[ir.Port{Cell: name, Pin: "in"}] & mask(reg.width)
			m.regs[name] = reg
		}
	}

	for _, cell := range m.prog.Cells {
		m.prims[cell.Name].commit(vals)
	}
	return nil
}

func mask(width int) uint64 {
	if width <= 0 || width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(width)) - 1
}

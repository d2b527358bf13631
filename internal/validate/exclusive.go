package validate

import (
	"sort"

	"fsmc/internal/compile"
	"fsmc/internal/ir"
)

// enumerationLimit bounds the assignments tried when proving a guard pair
// disjoint. Compiler-generated guards stay far below it; hitting the limit
// fails closed.
const enumerationLimit = 1 << 20

// CheckExclusive proves that for every destination port, at most one of its
// guards can be true in any cycle. Intermediate wires (scope and group
// go/done holes) are substituted by the disjunction of their drivers so the
// proof bottoms out in FSM states, register outputs and primitive pins;
// those atoms are then enumerated exhaustively. An unprovable or violated
// pair is a NonExclusiveGuard error.
func CheckExclusive(prog *ir.Program) error {
	x := newExpander(prog)

	byDest := make(map[ir.Port][]ir.Guard)
	var order []ir.Port
	for _, a := range prog.Assigns {
		if _, ok := byDest[a.Dest]; !ok {
			order = append(order, a.Dest)
		}
		byDest[a.Dest] = append(byDest[a.Dest], a.Guard)
	}

	for _, dest := range order {
		guards := byDest[dest]
		if len(guards) < 2 {
			continue
		}
		expanded := make([]ir.Guard, len(guards))
		for i, g := range guards {
			eg, ok := x.expand(g)
			if !ok {
				return compile.Errorf(compile.NonExclusiveGuard,
					"could not resolve driver %d of %s", i, dest)
			}
			expanded[i] = eg
		}
		for i := 0; i < len(expanded); i++ {
			for j := i + 1; j < len(expanded); j++ {
				ok, proven := disjoint(expanded[i], expanded[j])
				if !proven {
					return compile.Errorf(compile.NonExclusiveGuard,
						"could not prove exclusivity of drivers %d and %d of %s", i, j, dest)
				}
				if !ok {
					return compile.Errorf(compile.NonExclusiveGuard,
						"port %s has overlapping guards %s and %s", dest, guards[i], guards[j])
				}
			}
		}
	}
	return nil
}

// expander substitutes 1-bit wires by their driver guards. A wire driven
// only by constant-one assignments reads true exactly when some driver's
// guard holds; wires with no driver at all (the external handshake inputs)
// stay atoms.
type expander struct {
	drivers map[ir.Port][]ir.Assign
	memo    map[ir.Port]ir.Guard
	visit   map[ir.Port]bool
}

func newExpander(prog *ir.Program) *expander {
	x := &expander{
		drivers: make(map[ir.Port][]ir.Assign),
		memo:    make(map[ir.Port]ir.Guard),
		visit:   make(map[ir.Port]bool),
	}
	for _, name := range prog.Wires {
		x.drivers[ir.Wire(name)] = nil
	}
	for _, a := range prog.Assigns {
		if a.Dest.Cell == "" {
			x.drivers[a.Dest] = append(x.drivers[a.Dest], a)
		}
	}
	return x
}

func (x *expander) expand(g ir.Guard) (ir.Guard, bool) {
	switch t := g.(type) {
	case ir.PortG:
		return x.expandPort(t.Port)
	case ir.AndG:
		l, ok := x.expand(t.L)
		if !ok {
			return nil, false
		}
		r, ok := x.expand(t.R)
		if !ok {
			return nil, false
		}
		return ir.And(l, r), true
	case ir.OrG:
		l, ok := x.expand(t.L)
		if !ok {
			return nil, false
		}
		r, ok := x.expand(t.R)
		if !ok {
			return nil, false
		}
		return ir.Or(l, r), true
	case ir.NotG:
		inner, ok := x.expand(t.G)
		if !ok {
			return nil, false
		}
		return ir.Not(inner), true
	default:
		return g, true
	}
}

func (x *expander) expandPort(p ir.Port) (ir.Guard, bool) {
	if p.Cell != "" {
		return ir.ReadPort(p), true
	}
	drivers, isWire := x.drivers[p]
	if !isWire || len(drivers) == 0 {
		return ir.ReadPort(p), true
	}
	if g, ok := x.memo[p]; ok {
		return g, true
	}
	if x.visit[p] {
		// combinational cycle; fail closed
		return nil, false
	}
	x.visit[p] = true
	defer func() { x.visit[p] = false }()

	result := ir.False
	for _, a := range drivers {
		if !a.Src.Const || a.Src.Value == 0 {
			// non-constant source; leave the wire opaque
			return ir.ReadPort(p), true
		}
		g, ok := x.expand(a.Guard)
		if !ok {
			return nil, false
		}
		result = ir.Or(result, g)
	}
	x.memo[p] = result
	return result, true
}

// disjoint reports whether a AND b is unsatisfiable. The second result is
// false when the atom space was too large to enumerate.
func disjoint(a, b ir.Guard) (unsat bool, proven bool) {
	both := ir.And(a, b)
	if c, ok := both.(ir.ConstG); ok {
		return !c.V, true
	}

	fsms, ports := atoms(both)

	combos := uint64(1)
	for _, f := range fsms {
		combos *= uint64(len(f.candidates))
		if combos > enumerationLimit {
			return false, false
		}
	}
	for range ports {
		combos *= 2
		if combos > enumerationLimit {
			return false, false
		}
	}

	states := make(map[string]uint32, len(fsms))
	values := make(map[ir.Port]bool, len(ports))
	var sat func(idx int) bool
	sat = func(idx int) bool {
		if idx < len(fsms) {
			f := fsms[idx]
			for _, s := range f.candidates {
				states[f.name] = s
				if sat(idx + 1) {
					return true
				}
			}
			return false
		}
		p := idx - len(fsms)
		if p < len(ports) {
			for _, v := range []bool{false, true} {
				values[ports[p]] = v
				if sat(idx + 1) {
					return true
				}
			}
			return false
		}
		return both.Eval(
			func(fsm string) uint32 { return states[fsm] },
			func(port ir.Port) bool { return values[port] },
		)
	}
	return !sat(0), true
}

type fsmAtoms struct {
	name       string
	candidates []uint32
}

// atoms collects the FSM state atoms and port atoms of a guard tree. Each
// FSM's candidate list is the states its atoms mention plus one state
// distinct from all of them, standing in for every other value.
func atoms(g ir.Guard) ([]fsmAtoms, []ir.Port) {
	fsmStates := make(map[string]map[uint32]bool)
	portSet := make(map[ir.Port]bool)
	ir.WalkGuard(g, func(n ir.Guard) {
		switch t := n.(type) {
		case ir.StateEq:
			if fsmStates[t.FSM] == nil {
				fsmStates[t.FSM] = make(map[uint32]bool)
			}
			fsmStates[t.FSM][t.State] = true
		case ir.PortG:
			portSet[t.Port] = true
		}
	})

	fsms := make([]fsmAtoms, 0, len(fsmStates))
	for name, set := range fsmStates {
		var candidates []uint32
		var max uint32
		for s := range set {
			candidates = append(candidates, s)
			if s > max {
				max = s
			}
		}
		sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })
		candidates = append(candidates, max+1)
		fsms = append(fsms, fsmAtoms{name: name, candidates: candidates})
	}
	sort.Slice(fsms, func(i, j int) bool { return fsms[i].name < fsms[j].name })

	ports := make([]ir.Port, 0, len(portSet))
	for p := range portSet {
		ports = append(ports, p)
	}
	sort.Slice(ports, func(i, j int) bool {
		if ports[i].Cell != ports[j].Cell {
			return ports[i].Cell < ports[j].Cell
		}
		return ports[i].Pin < ports[j].Pin
	})
	return fsms, ports
}

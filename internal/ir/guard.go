package ir

// Guard is a boolean predicate gating one assignment. Guards are immutable
// value trees compared structurally, never mutated in place, so the
// exclusivity checker can reason about them.
type Guard interface {
	isGuard()
	// Equal reports structural equality.
	Equal(Guard) bool
	// Eval evaluates the guard against a snapshot of FSM states and port
	// values.
	Eval(state func(fsm string) uint32, port func(Port) bool) bool
	String() string
}

// StateEq is true while the named FSM register holds the given state.
type StateEq struct {
	FSM   string
	State uint32
}

// PortG is true while the referenced 1-bit port reads nonzero.
type PortG struct {
	Port Port
}

// AndG is the conjunction of two guards.
type AndG struct {
	L, R Guard
}

// OrG is the disjunction of two guards.
type OrG struct {
	L, R Guard
}

// NotG is the negation of a guard.
type NotG struct {
	G Guard
}

// ConstG is a constant guard.
type ConstG struct {
	V bool
}

// True and False are the constant guards.
var (
	True  Guard = ConstG{V: true}
	False Guard = ConstG{V: false}
)

func (StateEq) isGuard() {}
func (PortG) isGuard()   {}
func (AndG) isGuard()    {}
func (OrG) isGuard()     {}
func (NotG) isGuard()    {}
func (ConstG) isGuard()  {}

// State returns a guard asserting the FSM is in the given state.
func State(fsm string, state uint32) Guard {
	return StateEq{FSM: fsm, State: state}
}

// StateRange returns a guard asserting the FSM state lies in [lo, hi).
// A free-running FSM guarded this way acts as a counter comparison.
func StateRange(fsm string, lo, hi uint32) Guard {
	if lo >= hi {
		return False
	}
	g := State(fsm, lo)
	for s := lo + 1; s < hi; s++ {
		g = Or(g, State(fsm, s))
	}
	return g
}

// ReadPort returns a guard reading the given 1-bit port.
func ReadPort(p Port) Guard {
	return PortG{Port: p}
}

// ReadWire returns a guard reading the named wire.
func ReadWire(name string) Guard {
	return PortG{Port: Wire(name)}
}

// And returns the conjunction of a and b, folding constants and conflicting
// state atoms.
func And(a, b Guard) Guard {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if ca, ok := a.(ConstG); ok {
		if !ca.V {
			return False
		}
		return b
	}
	if cb, ok := b.(ConstG); ok {
		if !cb.V {
			return False
		}
		return a
	}
	if sa, ok := a.(StateEq); ok {
		if sb, ok := b.(StateEq); ok && sa.FSM == sb.FSM {
			if sa.State == sb.State {
				return a
			}
			return False
		}
	}
	if a.Equal(b) {
		return a
	}
	return AndG{L: a, R: b}
}

// AndAll folds And over all guards.
func AndAll(gs ...Guard) Guard {
	out := True
	for _, g := range gs {
		out = And(out, g)
	}
	return out
}

// Or returns the disjunction of a and b, folding constants.
func Or(a, b Guard) Guard {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if ca, ok := a.(ConstG); ok {
		if ca.V {
			return True
		}
		return b
	}
	if cb, ok := b.(ConstG); ok {
		if cb.V {
			return True
		}
		return a
	}
	if a.Equal(b) {
		return a
	}
	return OrG{L: a, R: b}
}

// Not returns the negation of g, folding constants and double negation.
func Not(g Guard) Guard {
	switch t := g.(type) {
	case ConstG:
		return ConstG{V: !t.V}
	case NotG:
		return t.G
	}
	return NotG{G: g}
}

func (g StateEq) Equal(o Guard) bool {
	t, ok := o.(StateEq)
	return ok && g == t
}

func (g PortG) Equal(o Guard) bool {
	t, ok := o.(PortG)
	return ok && g == t
}

func (g AndG) Equal(o Guard) bool {
	t, ok := o.(AndG)
	return ok && g.L.Equal(t.L) && g.R.Equal(t.R)
}

func (g OrG) Equal(o Guard) bool {
	t, ok := o.(OrG)
	return ok && g.L.Equal(t.L) && g.R.Equal(t.R)
}

func (g NotG) Equal(o Guard) bool {
	t, ok := o.(NotG)
	return ok && g.G.Equal(t.G)
}

func (g ConstG) Equal(o Guard) bool {
	t, ok := o.(ConstG)
	return ok && g == t
}

func (g StateEq) Eval(state func(string) uint32, port func(Port) bool) bool {
	return state(g.FSM) == g.State
}

func (g PortG) Eval(state func(string) uint32, port func(Port) bool) bool {
	return port(g.Port)
}

func (g AndG) Eval(state func(string) uint32, port func(Port) bool) bool {
	return g.L.Eval(state, port) && g.R.Eval(state, port)
}

func (g OrG) Eval(state func(string) uint32, port func(Port) bool) bool {
	return g.L.Eval(state, port) || g.R.Eval(state, port)
}

func (g NotG) Eval(state func(string) uint32, port func(Port) bool) bool {
	return !g.G.Eval(state, port)
}

func (g ConstG) Eval(state func(string) uint32, port func(Port) bool) bool {
	return g.V
}

func (g StateEq) String() string {
	return g.FSM + " == " + formatUint(uint64(g.State))
}

func (g PortG) String() string { return g.Port.String() }

func (g AndG) String() string {
	return "(" + g.L.String() + " & " + g.R.String() + ")"
}

func (g OrG) String() string {
	return "(" + g.L.String() + " | " + g.R.String() + ")"
}

func (g NotG) String() string { return "!" + g.G.String() }

func (g ConstG) String() string {
	if g.V {
		return "1"
	}
	return "0"
}

// WalkGuard calls fn for every node in the guard tree.
func WalkGuard(g Guard, fn func(Guard)) {
	if g == nil {
		return
	}
	fn(g)
	switch t := g.(type) {
	case AndG:
		WalkGuard(t.L, fn)
		WalkGuard(t.R, fn)
	case OrG:
		WalkGuard(t.L, fn)
		WalkGuard(t.R, fn)
	case NotG:
		WalkGuard(t.G, fn)
	}
}

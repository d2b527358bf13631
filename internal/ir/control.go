package ir

import "fsmc/internal/diag"

// NodeInfo carries the attributes shared by every control operator. Static
// requests counter-based compilation for the subtree; Source points back at
// the control program for diagnostics.
type NodeInfo struct {
	Static bool
	Source diag.Loc
}

// Info exposes the shared attributes through the Control interface.
func (n *NodeInfo) Info() *NodeInfo { return n }

// Control is the closed union of control operators. Trees are built once by
// the frontend and consumed read-only by the compiler; nodes hold no
// back-references.
type Control interface {
	isControl()
	Info() *NodeInfo
}

// Enable runs a single group to completion.
type Enable struct {
	NodeInfo
	Group string
}

// Seq runs its children one after another in program order.
type Seq struct {
	NodeInfo
	Children []Control
}

// Par runs its children simultaneously and joins on the completion of all of
// them. Child order carries no semantics.
type Par struct {
	NodeInfo
	Children []Control
}

// If branches on a 1-bit condition port, optionally computed by a
// combinational group that must be enabled while the port is read.
type If struct {
	NodeInfo
	CondPort  Port
	CondGroup string
	Then      Control
	Else      Control
}

// While repeats its body as long as the condition port reads true. CondGroup
// has the same role as in If.
type While struct {
	NodeInfo
	CondPort  Port
	CondGroup string
	Body      Control
}

// Repeat runs its body a fixed number of times.
type Repeat struct {
	NodeInfo
	Count uint32
	Body  Control
}

// Binding connects a value to an invoked cell's input pin for the duration
// of the invocation.
type Binding struct {
	Pin string
	Src Expr
}

// Invoke runs a sub-component through its go/done handshake, holding the
// given port bindings while it executes.
type Invoke struct {
	NodeInfo
	Cell     string
	Bindings []Binding
}

// Empty completes immediately.
type Empty struct {
	NodeInfo
}

func (*Enable) isControl() {}
func (*Seq) isControl()    {}
func (*Par) isControl()    {}
func (*If) isControl()     {}
func (*While) isControl()  {}
func (*Repeat) isControl() {}
func (*Invoke) isControl() {}
func (*Empty) isControl()  {}

// WalkControl calls fn for node and every descendant, parents first.
func WalkControl(node Control, fn func(Control)) {
	if node == nil {
		return
	}
	fn(node)
	switch t := node.(type) {
	case *Seq:
		for _, child := range t.Children {
			WalkControl(child, fn)
		}
	case *Par:
		for _, child := range t.Children {
			WalkControl(child, fn)
		}
	case *If:
		WalkControl(t.Then, fn)
		WalkControl(t.Else, fn)
	case *While:
		WalkControl(t.Body, fn)
	case *Repeat:
		WalkControl(t.Body, fn)
	}
}

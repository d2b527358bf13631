package ir

import "sort"

// Port references a primitive cell pin, or a bare wire when Cell is empty.
type Port struct {
	Cell string
	Pin  string
}

// Wire returns a Port naming a bare wire.
func Wire(name string) Port {
	return Port{Pin: name}
}

func (p Port) String() string {
	if p.Cell == "" {
		return p.Pin
	}
	return p.Cell + "." + p.Pin
}

// IsZero reports whether the port is unset.
func (p Port) IsZero() bool {
	return p.Cell == "" && p.Pin == ""
}

// Expr is an assignment source: a port read or a constant value.
type Expr struct {
	Port  Port
	Value uint64
	Const bool
}

// ConstExpr returns a constant-valued source expression.
func ConstExpr(v uint64) Expr {
	return Expr{Value: v, Const: true}
}

// PortExpr returns a port-read source expression.
func PortExpr(p Port) Expr {
	return Expr{Port: p}
}

func (e Expr) String() string {
	if e.Const {
		return formatUint(e.Value)
	}
	return e.Port.String()
}

// Assign is one guarded signal assignment. The source drives the destination
// only in cycles where the guard evaluates true.
type Assign struct {
	Dest  Port
	Guard Guard
	Src   Expr
}

// LatencyKind classifies how long a group takes to complete.
type LatencyKind int

const (
	// Dynamic groups signal completion through their done wire; the cycle
	// count is unknown at compile time.
	Dynamic LatencyKind = iota
	// Static groups complete in a compile-time-known number of cycles.
	Static
	// Combinational groups are valid in the same cycle they are enabled and
	// have no done wire.
	Combinational
)

// Latency is a group's latency classification.
type Latency struct {
	Kind   LatencyKind
	Cycles uint32
}

// DynamicLatency is the default classification.
var DynamicLatency = Latency{Kind: Dynamic}

// StaticLatency returns a static classification of n cycles.
func StaticLatency(n uint32) Latency {
	return Latency{Kind: Static, Cycles: n}
}

// CombLatency is the combinational classification.
var CombLatency = Latency{Kind: Combinational}

func (l Latency) String() string {
	switch l.Kind {
	case Static:
		return "static(" + formatUint(uint64(l.Cycles)) + ")"
	case Combinational:
		return "comb"
	default:
		return "dynamic"
	}
}

// Group is a named set of guarded assignments with a go/done handshake and a
// latency classification. Groups are built by the frontend and are read-only
// to the compiler.
type Group struct {
	Name    string
	Latency Latency
	Assigns []Assign
}

// GoWire is the name of the group's implicit go hole wire.
func (g *Group) GoWire() string { return g.Name + "_go" }

// DoneWire is the name of the group's implicit done hole wire.
func (g *Group) DoneWire() string { return g.Name + "_done" }

// Cell is a primitive component instance. Primitive internals are opaque;
// only the pin contract (go/done/latency for sequential primitives) is known.
type Cell struct {
	Name  string
	Prim  string
	Width int
	Param uint64
}

// Catalog indexes the groups and cells available to a control program. It is
// owned by the frontend for the lifetime of a compilation.
type Catalog struct {
	groups map[string]*Group
	cells  map[string]*Cell

	groupOrder []string
	cellOrder  []string
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		groups: make(map[string]*Group),
		cells:  make(map[string]*Cell),
	}
}

// AddGroup registers a group. Re-registering a name replaces the previous
// entry but keeps its position.
func (c *Catalog) AddGroup(g *Group) {
	if _, ok := c.groups[g.Name]; !ok {
		c.groupOrder = append(c.groupOrder, g.Name)
	}
	c.groups[g.Name] = g
}

// AddCell registers a primitive cell instance.
func (c *Catalog) AddCell(cell *Cell) {
	if _, ok := c.cells[cell.Name]; !ok {
		c.cellOrder = append(c.cellOrder, cell.Name)
	}
	c.cells[cell.Name] = cell
}

// Lookup returns the named group.
func (c *Catalog) Lookup(name string) (*Group, bool) {
	g, ok := c.groups[name]
	return g, ok
}

// Cell returns the named primitive instance.
func (c *Catalog) Cell(name string) (*Cell, bool) {
	cell, ok := c.cells[name]
	return cell, ok
}

// Groups returns all groups in registration order.
func (c *Catalog) Groups() []*Group {
	out := make([]*Group, 0, len(c.groupOrder))
	for _, name := range c.groupOrder {
		out = append(out, c.groups[name])
	}
	return out
}

// Cells returns all cells in registration order.
func (c *Catalog) Cells() []*Cell {
	out := make([]*Cell, 0, len(c.cellOrder))
	for _, name := range c.cellOrder {
		out = append(out, c.cells[name])
	}
	return out
}

// GroupNames returns all group names sorted.
func (c *Catalog) GroupNames() []string {
	names := make([]string, 0, len(c.groups))
	for name := range c.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func formatUint(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

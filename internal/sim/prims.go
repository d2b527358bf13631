package sim

import (
	"github.com/pkg/errors"

	"fsmc/internal/ir"
)

// prim is the simulation model of one primitive cell. Primitive internals
// are opaque to the compiler; these models implement just the pin contract
// the fixtures rely on.
type prim struct {
	cell  *ir.Cell
	state uint64
}

func newPrim(cell *ir.Cell) (*prim, error) {
	switch cell.Prim {
	case "std_reg", "std_delay", "std_counter", "std_add", "std_sub",
		"std_lt", "std_eq", "std_const", "std_wire":
	default:
		return nil, errors.Errorf("sim: cell %s uses unknown primitive %q", cell.Name, cell.Prim)
	}
	if cell.Prim == "std_delay" && cell.Param == 0 {
		return nil, errors.Errorf("sim: delay cell %s needs a positive cycle count", cell.Name)
	}
	return &prim{cell: cell}, nil
}

func (p *prim) reset() {
	p.state = 0
}

func (p *prim) pin(name string) ir.Port {
	return ir.Port{Cell: p.cell.Name, Pin: name}
}

func (p *prim) width() int {
	if p.cell.Width <= 0 {
		return 1
	}
	return p.cell.Width
}

// evalComb recomputes the cell's combinational outputs from the current pin
// values and reports whether anything changed.
func (p *prim) evalComb(vals map[ir.Port]uint64) bool {
	w := mask(p.width())
	set := func(pin string, v uint64) bool {
		port := p.pin(pin)
		if vals[port] == v {
			return false
		}
		vals[port] = v
		return true
	}
	b := func(v bool) uint64 {
		if v {
			return 1
		}
		return 0
	}

	switch p.cell.Prim {
	case "std_reg":
		changed := set("out", p.state)
		// done tracks write_en: the write commits on the upcoming edge, so
		// the group completes within its single active cycle.
		return set("done", b(vals[p.pin("write_en")] != 0)) || changed
	case "std_delay":
		active := vals[p.pin("go")] != 0
		return set("done", b(active && p.state == p.cell.Param-1))
	case "std_counter":
		changed := set("out", p.state)
		return set("last", b(p.state == p.cell.Param-1)) || changed
	case "std_add":
		return set("out", (vals[p.pin("left")]+vals[p.pin("right")])&w)
	case "std_sub":
		return set("out", (vals[p.pin("left")]-vals[p.pin("right")])&w)
	case "std_lt":
		return set("out", b(vals[p.pin("left")] < vals[p.pin("right")]))
	case "std_eq":
		return set("out", b(vals[p.pin("left")] == vals[p.pin("right")]))
	case "std_const":
		return set("out", p.cell.Param&w)
	case "std_wire":
		return set("out", vals[p.pin("in")]&w)
	}
	return false
}

// commit applies the clock edge to the cell's internal state.
func (p *prim) commit(vals map[ir.Port]uint64) {
	switch p.cell.Prim {
	case "std_reg":
		if vals[p.pin("write_en")] != 0 {
			p.state = vals[p.pin("in")] & mask(p.width())
		}
	case "std_delay":
		switch {
		case vals[p.pin("go")] == 0:
			p.state = 0
		case vals[p.pin("done")] != 0:
			p.state = 0
		default:
			p.state++
		}
	case "std_counter":
		switch {
		case vals[p.pin("clr")] != 0:
			p.state = 0
		case vals[p.pin("en")] != 0:
			p.state = (p.state + 1) & mask(p.width())
		}
	}
}

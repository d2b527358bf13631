// Package passes holds analyses over control trees that run before the
// compiler proper.
package passes

import "fsmc/internal/ir"

// StaticSpans computes, for every control node whose total duration is a
// compile-time constant, that duration in cycles. A node appears in the
// result only when its whole subtree is made of Enable leaves with
// Static(n>=1) latency composed with Seq, Par and Repeat(count>=1); any
// Dynamic or Combinational leaf, conditional, loop, invoke or empty node
// keeps the subtree out of the map.
func StaticSpans(cat *ir.Catalog, root ir.Control) map[ir.Control]uint32 {
	spans := make(map[ir.Control]uint32)
	span(cat, root, spans)
	return spans
}

// Span returns the static duration of one node, if it has one.
func Span(cat *ir.Catalog, node ir.Control) (uint32, bool) {
	spans := StaticSpans(cat, node)
	total, ok := spans[node]
	return total, ok
}

func span(cat *ir.Catalog, node ir.Control, spans map[ir.Control]uint32) (uint32, bool) {
	switch t := node.(type) {
	case *ir.Enable:
		group, ok := cat.Lookup(t.Group)
		if !ok || group.Latency.Kind != ir.Static || group.Latency.Cycles == 0 {
			return 0, false
		}
		spans[node] = group.Latency.Cycles
		return group.Latency.Cycles, true
	case *ir.Seq:
		if len(t.Children) == 0 {
			return 0, false
		}
		var total uint32
		ok := true
		for _, child := range t.Children {
			n, childOK := span(cat, child, spans)
			if !childOK {
				ok = false
				continue
			}
			total += n
		}
		if !ok {
			return 0, false
		}
		spans[node] = total
		return total, true
	case *ir.Par:
		if len(t.Children) == 0 {
			return 0, false
		}
		var max uint32
		ok := true
		for _, child := range t.Children {
			n, childOK := span(cat, child, spans)
			if !childOK {
				ok = false
				continue
			}
			if n > max {
				max = n
			}
		}
		if !ok {
			return 0, false
		}
		spans[node] = max
		return max, true
	case *ir.Repeat:
		if t.Count == 0 {
			return 0, false
		}
		n, ok := span(cat, t.Body, spans)
		if !ok {
			return 0, false
		}
		total := n * t.Count
		spans[node] = total
		return total, true
	default:
		// Conditionals, loops, invokes and empty nodes stay dynamic. Their
		// descendants may still be promotable on their own.
		switch t := node.(type) {
		case *ir.If:
			span(cat, t.Then, spans)
			span(cat, t.Else, spans)
		case *ir.While:
			span(cat, t.Body, spans)
		}
		return 0, false
	}
}

// Package frontend loads control programs from HCL source files into the
// catalog and control tree consumed by the compiler.
package frontend

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"

	"fsmc/internal/ctxlog"
	"fsmc/internal/diag"
	"fsmc/internal/ir"
)

// File is a loaded control program.
type File struct {
	Catalog *ir.Catalog
	Control ir.Control
}

// Load parses the control program at path. Parse and schema errors are
// reported through rep; the returned error summarizes them.
func Load(ctx context.Context, path string, rep *diag.Reporter) (*File, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading control program: %w", err)
	}
	return LoadSource(ctx, path, src, rep)
}

// LoadSource parses a control program from an in-memory buffer. The filename
// is used only for diagnostics.
func LoadSource(ctx context.Context, filename string, src []byte, rep *diag.Reporter) (*File, error) {
	log := ctxlog.FromContext(ctx)

	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(src, filename)
	if reportDiags(rep, diags) {
		return nil, fmt.Errorf("parsing %s: %d error(s)", filename, rep.Count())
	}

	var fs fileSchema
	if reportDiags(rep, gohcl.DecodeBody(hclFile.Body, nil, &fs)) {
		return nil, fmt.Errorf("decoding %s: %d error(s)", filename, rep.Count())
	}

	ld := &loader{rep: rep, filename: filename}
	cat := ir.NewCatalog()
	for _, c := range fs.Cells {
		cat.AddCell(&ir.Cell{Name: c.Name, Prim: c.Prim, Width: c.Width, Param: c.Param})
	}
	for _, g := range fs.Groups {
		cat.AddGroup(ld.buildGroup(g))
	}

	var ctrl ir.Control
	if fs.Control != nil {
		ctrl = ld.buildControl(fs.Control.Body)
	}
	if rep.HasErrors() {
		return nil, fmt.Errorf("loading %s: %d error(s)", filename, rep.Count())
	}
	if ctrl == nil {
		ctrl = &ir.Empty{}
	}

	log.Debug("loaded control program",
		"file", filename,
		"cells", len(fs.Cells),
		"groups", len(fs.Groups))
	return &File{Catalog: cat, Control: ctrl}, nil
}

type loader struct {
	rep      *diag.Reporter
	filename string
}

func (ld *loader) buildGroup(gs *groupSchema) *ir.Group {
	g := &ir.Group{Name: gs.Name, Latency: ld.latencyOf(gs)}
	for _, as := range gs.Assigns {
		dest, ok := ld.parsePort(as.Dest)
		if !ok {
			continue
		}
		src, ok := ld.parseExpr(as.Src)
		if !ok {
			continue
		}
		guard, ok := ld.parseGuard(as.Guard)
		if !ok {
			continue
		}
		g.Assigns = append(g.Assigns, ir.Assign{Dest: dest, Guard: guard, Src: src})
	}
	if gs.Done != "" {
		src, ok := ld.parseExpr(gs.Done)
		if ok {
			g.Assigns = append(g.Assigns, ir.Assign{
				Dest:  ir.Wire(g.DoneWire()),
				Guard: ir.True,
				Src:   src,
			})
		}
	}
	return g
}

func (ld *loader) latencyOf(gs *groupSchema) ir.Latency {
	switch gs.Latency {
	case "", "dynamic":
		if gs.Cycles > 0 {
			return ir.StaticLatency(gs.Cycles)
		}
		return ir.DynamicLatency
	case "static":
		if gs.Cycles == 0 {
			ld.errorf(diag.Loc{Filename: ld.filename}, "group %q: static latency requires cycles >= 1", gs.Name)
			return ir.DynamicLatency
		}
		return ir.StaticLatency(gs.Cycles)
	case "comb":
		return ir.CombLatency
	default:
		ld.errorf(diag.Loc{Filename: ld.filename}, "group %q: unknown latency %q (want dynamic, static, or comb)", gs.Name, gs.Latency)
		return ir.DynamicLatency
	}
}

// buildControl decodes the ordered child blocks of a control body into one
// node. Zero children is Empty, one is that node, more wrap in a Seq so the
// top-level control block reads like a sequence.
func (ld *loader) buildControl(body hcl.Body) ir.Control {
	children := ld.buildChildren(body)
	switch len(children) {
	case 0:
		return nil
	case 1:
		return children[0]
	default:
		seq := &ir.Seq{Children: children}
		seq.Source = ld.bodyLoc(body)
		return seq
	}
}

// buildChildren walks the syntax body directly because gohcl buckets blocks
// by type and loses the interleaved order a Seq depends on.
func (ld *loader) buildChildren(body hcl.Body) []ir.Control {
	syn, ok := body.(*hclsyntax.Body)
	if !ok {
		ld.errorf(ld.bodyLoc(body), "control blocks require native HCL syntax")
		return nil
	}
	var out []ir.Control
	for _, block := range syn.Blocks {
		if node := ld.buildNode(block); node != nil {
			out = append(out, node)
		}
	}
	return out
}

func (ld *loader) buildNode(block *hclsyntax.Block) ir.Control {
	loc := ld.rangeLoc(block.DefRange())
	switch block.Type {
	case "enable":
		ld.checkAttrs(block, "group", "static")
		group, ok := ld.attrString(block, "group", true)
		if !ok {
			return nil
		}
		n := &ir.Enable{Group: group}
		n.Static = ld.attrBool(block, "static")
		n.Source = loc
		return n

	case "seq", "par":
		ld.checkAttrs(block, "static")
		children := ld.buildChildren(block.Body)
		if block.Type == "seq" {
			n := &ir.Seq{Children: children}
			n.Static = ld.attrBool(block, "static")
			n.Source = loc
			return n
		}
		n := &ir.Par{Children: children}
		n.Static = ld.attrBool(block, "static")
		n.Source = loc
		return n

	case "if":
		ld.checkAttrs(block, "port", "group")
		port, ok := ld.condPort(block)
		if !ok {
			return nil
		}
		group, _ := ld.attrString(block, "group", false)
		n := &ir.If{CondPort: port, CondGroup: group}
		n.Source = loc
		n.Then = ld.branch(block, "then")
		n.Else = ld.branch(block, "else")
		if n.Then == nil {
			ld.errorf(loc, "if: missing then branch")
			return nil
		}
		return n

	case "while":
		ld.checkAttrs(block, "port", "group")
		port, ok := ld.condPort(block)
		if !ok {
			return nil
		}
		group, _ := ld.attrString(block, "group", false)
		body := ld.branch(block, "body")
		if body == nil {
			ld.errorf(loc, "while: missing body")
			return nil
		}
		n := &ir.While{CondPort: port, CondGroup: group, Body: body}
		n.Source = loc
		return n

	case "repeat":
		ld.checkAttrs(block, "count", "static")
		count, ok := ld.attrUint(block, "count")
		if !ok {
			return nil
		}
		body := ld.branch(block, "body")
		if body == nil {
			ld.errorf(loc, "repeat: missing body")
			return nil
		}
		n := &ir.Repeat{Count: count, Body: body}
		n.Static = ld.attrBool(block, "static")
		n.Source = loc
		return n

	case "invoke":
		ld.checkAttrs(block, "cell")
		cell, ok := ld.attrString(block, "cell", true)
		if !ok {
			return nil
		}
		n := &ir.Invoke{Cell: cell}
		n.Source = loc
		for _, inner := range block.Body.Blocks {
			if inner.Type != "bind" {
				ld.errorf(ld.rangeLoc(inner.DefRange()), "invoke: unexpected block %q (want bind)", inner.Type)
				continue
			}
			ld.checkAttrs(inner, "pin", "src")
			pin, okPin := ld.attrString(inner, "pin", true)
			srcStr, okSrc := ld.attrString(inner, "src", true)
			if !okPin || !okSrc {
				continue
			}
			src, ok := ld.parseExpr(srcStr)
			if !ok {
				continue
			}
			n.Bindings = append(n.Bindings, ir.Binding{Pin: pin, Src: src})
		}
		return n

	case "empty":
		n := &ir.Empty{}
		n.Source = loc
		return n

	default:
		ld.errorf(loc, "unknown control operator %q", block.Type)
		return nil
	}
}

// branch finds the named single sub-block (then, else, body) and decodes its
// children as one node.
func (ld *loader) branch(block *hclsyntax.Block, name string) ir.Control {
	for _, inner := range block.Body.Blocks {
		if inner.Type != name {
			continue
		}
		node := ld.buildControl(inner.Body)
		if node == nil {
			node = &ir.Empty{NodeInfo: ir.NodeInfo{Source: ld.rangeLoc(inner.DefRange())}}
		}
		return node
	}
	return nil
}

func (ld *loader) condPort(block *hclsyntax.Block) (ir.Port, bool) {
	s, ok := ld.attrString(block, "port", true)
	if !ok {
		return ir.Port{}, false
	}
	return ld.parsePort(s)
}

// parsePort parses "cell.pin" or a bare wire name.
func (ld *loader) parsePort(s string) (ir.Port, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		ld.errorf(diag.Loc{Filename: ld.filename}, "empty port reference")
		return ir.Port{}, false
	}
	parts := strings.SplitN(s, ".", 2)
	if len(parts) == 1 {
		return ir.Wire(parts[0]), true
	}
	if parts[0] == "" || parts[1] == "" || strings.Contains(parts[1], ".") {
		ld.errorf(diag.Loc{Filename: ld.filename}, "malformed port reference %q (want cell.pin or wire)", s)
		return ir.Port{}, false
	}
	return ir.Port{Cell: parts[0], Pin: parts[1]}, true
}

// parseExpr parses an assignment source: a decimal or 0x-prefixed constant,
// or a port reference.
func (ld *loader) parseExpr(s string) (ir.Expr, bool) {
	s = strings.TrimSpace(s)
	if s != "" && (s[0] >= '0' && s[0] <= '9') {
		v, err := strconv.ParseUint(s, 0, 64)
		if err != nil {
			ld.errorf(diag.Loc{Filename: ld.filename}, "malformed constant %q: %v", s, err)
			return ir.Expr{}, false
		}
		return ir.ConstExpr(v), true
	}
	p, ok := ld.parsePort(s)
	if !ok {
		return ir.Expr{}, false
	}
	return ir.PortExpr(p), true
}

// parseGuard parses an optional guard: empty means always, a port reference
// reads the port, and a leading ! negates it.
func (ld *loader) parseGuard(s string) (ir.Guard, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ir.True, true
	}
	negate := false
	if strings.HasPrefix(s, "!") {
		negate = true
		s = strings.TrimSpace(s[1:])
	}
	p, ok := ld.parsePort(s)
	if !ok {
		return nil, false
	}
	g := ir.ReadPort(p)
	if negate {
		g = ir.Not(g)
	}
	return g, true
}

// checkAttrs reports attributes outside the allowed set for a control block.
func (ld *loader) checkAttrs(block *hclsyntax.Block, allowed ...string) {
	for name, attr := range block.Body.Attributes {
		found := false
		for _, a := range allowed {
			if name == a {
				found = true
				break
			}
		}
		if !found {
			ld.errorf(ld.rangeLoc(attr.SrcRange), "%s: unexpected attribute %q", block.Type, name)
		}
	}
}

func (ld *loader) attrString(block *hclsyntax.Block, name string, required bool) (string, bool) {
	attr, ok := block.Body.Attributes[name]
	if !ok {
		if required {
			ld.errorf(ld.rangeLoc(block.DefRange()), "%s: missing required attribute %q", block.Type, name)
		}
		return "", !required
	}
	v, ok := ld.evalAttr(attr, cty.String)
	if !ok {
		return "", false
	}
	return v.AsString(), true
}

func (ld *loader) attrUint(block *hclsyntax.Block, name string) (uint32, bool) {
	attr, ok := block.Body.Attributes[name]
	if !ok {
		ld.errorf(ld.rangeLoc(block.DefRange()), "%s: missing required attribute %q", block.Type, name)
		return 0, false
	}
	v, ok := ld.evalAttr(attr, cty.Number)
	if !ok {
		return 0, false
	}
	var n uint32
	if err := gocty.FromCtyValue(v, &n); err != nil {
		ld.errorf(ld.rangeLoc(attr.SrcRange), "%s: attribute %q: %v", block.Type, name, err)
		return 0, false
	}
	return n, true
}

func (ld *loader) attrBool(block *hclsyntax.Block, name string) bool {
	attr, ok := block.Body.Attributes[name]
	if !ok {
		return false
	}
	v, ok := ld.evalAttr(attr, cty.Bool)
	if !ok {
		return false
	}
	return v.True()
}

func (ld *loader) evalAttr(attr *hclsyntax.Attribute, want cty.Type) (cty.Value, bool) {
	v, diags := attr.Expr.Value(nil)
	if reportDiags(ld.rep, diags) {
		return cty.NilVal, false
	}
	v, err := convert.Convert(v, want)
	if err != nil {
		ld.errorf(ld.rangeLoc(attr.SrcRange), "attribute %q: %v", attr.Name, err)
		return cty.NilVal, false
	}
	return v, true
}

func (ld *loader) errorf(loc diag.Loc, format string, args ...any) {
	ld.rep.Errorf(loc, format, args...)
}

func (ld *loader) rangeLoc(rng hcl.Range) diag.Loc {
	return diag.Loc{Filename: rng.Filename, Line: rng.Start.Line, Col: rng.Start.Column}
}

func (ld *loader) bodyLoc(body hcl.Body) diag.Loc {
	rng := body.MissingItemRange()
	return diag.Loc{Filename: rng.Filename, Line: rng.Start.Line, Col: rng.Start.Column}
}

func reportDiags(rep *diag.Reporter, diags hcl.Diagnostics) bool {
	for _, d := range diags {
		loc := diag.Loc{}
		if d.Subject != nil {
			loc = diag.Loc{Filename: d.Subject.Filename, Line: d.Subject.Start.Line, Col: d.Subject.Start.Column}
		}
		msg := d.Summary
		if d.Detail != "" {
			msg += ": " + d.Detail
		}
		rep.Error(loc, msg)
	}
	return diags.HasErrors()
}

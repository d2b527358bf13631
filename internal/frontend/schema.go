package frontend

import "github.com/hashicorp/hcl/v2"

// cellSchema is a `cell "name" { ... }` block: one primitive instance.
type cellSchema struct {
	Name  string `hcl:"name,label"`
	Prim  string `hcl:"prim"`
	Width int    `hcl:"width,optional"`
	Param uint64 `hcl:"param,optional"`
}

// assignSchema is one guarded assignment inside a group.
type assignSchema struct {
	Dest  string `hcl:"dest"`
	Src   string `hcl:"src"`
	Guard string `hcl:"guard,optional"`
}

// groupSchema is a `group "name" { ... }` block. Done is sugar for an
// assignment driving the group's done wire from the given port.
type groupSchema struct {
	Name    string          `hcl:"name,label"`
	Latency string          `hcl:"latency,optional"`
	Cycles  uint32          `hcl:"cycles,optional"`
	Done    string          `hcl:"done,optional"`
	Assigns []*assignSchema `hcl:"assign,block"`
}

// controlSchema captures the control block body for the ordered walk; gohcl
// cannot preserve the interleaved order of heterogeneous child blocks, so
// the tree itself is decoded from the syntax body.
type controlSchema struct {
	Body hcl.Body `hcl:",remain"`
}

// fileSchema is the top level of a control-program file.
type fileSchema struct {
	Cells   []*cellSchema  `hcl:"cell,block"`
	Groups  []*groupSchema `hcl:"group,block"`
	Control *controlSchema `hcl:"control,block"`
}

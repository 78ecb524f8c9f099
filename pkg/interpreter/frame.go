package interpreter

import (
	"slices"

	"regvm/pkg/bytecode"
)

// Frame represents a function call frame.
type Frame struct {
	FuncName  string         // function name for this frame
	PC        int            // program counter (index into Memory)
	Memory    []int32        // code executed by this frame, never written
	Registers []int32        // private register file
	Constants []string       // constant pool, shared with the caller up to its length
	Functions *FunctionTable // functions visible to this frame
	Index     bytecode.Index // pre-resolved blocks of Memory
}

// child creates the frame running fn on behalf of f. The callee gets a copy of
// the registers and read-only views of the constants and functions: anything
// it appends or declares stays local to it.
func (f *Frame) child(fn *Function) *Frame {
	n := len(f.Constants)

	return &Frame{
		FuncName:  fn.Name,
		Memory:    fn.Body,
		Registers: slices.Clone(f.Registers),
		Constants: f.Constants[:n:n],
		Functions: newFunctionTable(f.Functions),
		Index:     fn.Index,
	}
}

// Function is a declared function body
type Function struct {
	Name   string
	Body   []int32
	Index  bytecode.Index
	Closed bool // false if the declaration was unterminated
}

// FunctionTable maps names to functions. Lookups fall through to the
// parent table, declarations only touch the table itself.
type FunctionTable struct {
	parent  *FunctionTable
	entries map[string]*Function
}

func newFunctionTable(parent *FunctionTable) *FunctionTable {
	return &FunctionTable{parent: parent}
}

// Lookup finds the function bound to name
func (t *FunctionTable) Lookup(name string) (*Function, bool) {
	for cur := t; cur != nil; cur = cur.parent {
		if fn, ok := cur.entries[name]; ok {
			return fn, true
		}
	}

	return nil, false
}

// Declare binds fn under its name, replacing any previous binding
func (t *FunctionTable) Declare(fn *Function) {
	if t.entries == nil {
		t.entries = make(map[string]*Function)
	}

	t.entries[fn.Name] = fn
}

// Names returns the sorted names of every visible function
func (t *FunctionTable) Names() []string {
	seen := make(map[string]struct{})
	for cur := t; cur != nil; cur = cur.parent {
		for name := range cur.entries {
			seen[name] = struct{}{}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

package ir

import (
	"fmt"

	"github.com/sasha-s/go-deadlock"
)

// Instruction is a single SSA operation. Output is nil for opcodes that
// produce no value (control-flow terminators, mstore, sstore, log, ...).
type Instruction struct {
	Opcode   Opcode
	Operands []Operand
	Output   *Variable

	Parent *BasicBlock

	// Diagnostic attribution, populated by the parser/builder and consumed
	// by CompilerPanic reporting.
	AstSource string
	ErrorMsg  string
	Annotation string

	// liveOut is a per-instruction live-out slot. The liveness analysis
	// keeps its own per-block sets and does not fill it; per-instruction
	// liveness comes from Liveness.LiveAfter.
	liveOut *OrderedSet[Variable]
}

// NewInstruction builds an instruction not yet attached to any block.
func NewInstruction(op Opcode, operands ...Operand) *Instruction {
	return &Instruction{Opcode: op, Operands: operands}
}

func (i *Instruction) String() string {
	var out string
	if i.Output != nil {
		out = i.Output.String() + " = "
	}
	out += string(i.Opcode)
	for _, op := range i.Operands {
		out += " " + op.String()
	}
	return out
}

// IsTerminator / IsVolatile / IsCFGAltering forward to the opcode table.
func (i *Instruction) IsTerminator() bool   { return i.Opcode.IsTerminator() }
func (i *Instruction) IsVolatile() bool     { return i.Opcode.IsVolatile() }
func (i *Instruction) IsCFGAltering() bool  { return i.Opcode.IsCFGAltering() }

// LabelOperands returns the Label operands of a CFG-altering instruction,
// in the order they determine successor edges.
func (i *Instruction) LabelOperands() []Label {
	var labels []Label
	for _, op := range i.Operands {
		if l, ok := op.(Label); ok {
			labels = append(labels, l)
		}
	}
	return labels
}

// VarOperands returns the Variable operands referenced by this instruction
// (i.e. its uses, not its output).
func (i *Instruction) VarOperands() []Variable {
	var vars []Variable
	for _, op := range i.Operands {
		if v, ok := op.(Variable); ok {
			vars = append(vars, v)
		}
	}
	return vars
}

// BasicBlock is a maximal straight-line instruction sequence ending in
// exactly one terminator (if reachable). CfgIn/CfgOut are maintained by the
// CFG analysis, not by this struct directly; they're cached here for O(1)
// access once computed since nearly every pass needs them.
type BasicBlock struct {
	Label        string
	Instructions []*Instruction
	Parent       *Function

	CfgIn  *OrderedSet[string]
	CfgOut *OrderedSet[string]
}

// NewBasicBlock creates an empty block with the given label.
func NewBasicBlock(label string) *BasicBlock {
	return &BasicBlock{
		Label:        label,
		CfgIn:        NewOrderedSet[string](),
		CfgOut:       NewOrderedSet[string](),
	}
}

// Terminator returns the block's last instruction if it is a terminator,
// else nil. A well-formed, reachable block always has one.
func (b *BasicBlock) Terminator() *Instruction {
	if len(b.Instructions) == 0 {
		return nil
	}
	last := b.Instructions[len(b.Instructions)-1]
	if last.IsTerminator() {
		return last
	}
	return nil
}

// Phis returns the leading phi instructions of the block (spec.md requires
// all phis to precede non-phi instructions).
func (b *BasicBlock) Phis() []*Instruction {
	var out []*Instruction
	for _, inst := range b.Instructions {
		if inst.Opcode != OpPhi {
			break
		}
		out = append(out, inst)
	}
	return out
}

// AppendInstruction adds inst to the end of the block and sets its parent.
func (b *BasicBlock) AppendInstruction(inst *Instruction) {
	inst.Parent = b
	b.Instructions = append(b.Instructions, inst)
}

// InsertPhi inserts a phi instruction after any existing phis but before the
// first non-phi instruction, preserving the phi-prefix invariant.
func (b *BasicBlock) InsertPhi(inst *Instruction) {
	inst.Parent = b
	idx := len(b.Phis())
	b.Instructions = append(b.Instructions[:idx], append([]*Instruction{inst}, b.Instructions[idx:]...)...)
}

func (b *BasicBlock) String() string {
	s := b.Label + ":"
	for _, inst := range b.Instructions {
		s += "\n    " + inst.String()
	}
	return s
}

// Function is one SSA-form procedure: an entry block plus zero or more
// additional blocks, all reachable from the entry by construction (CFG
// simplification removes the rest).
type Function struct {
	Name    string
	Entry   string
	Blocks  []*BasicBlock // insertion order; entry is Blocks[0] by convention
	blockOf map[string]*BasicBlock

	NumArgs int

	varCounter int
	labelCounter map[string]int
}

// NewFunction creates a function with a single empty entry block.
func NewFunction(name, entryLabel string) *Function {
	f := &Function{
		Name:         name,
		Entry:        entryLabel,
		blockOf:      make(map[string]*BasicBlock),
		labelCounter: make(map[string]int),
	}
	entry := NewBasicBlock(entryLabel)
	f.AddBlock(entry)
	return f
}

// AddBlock appends a new block, indexing it by label.
func (f *Function) AddBlock(b *BasicBlock) {
	b.Parent = f
	f.Blocks = append(f.Blocks, b)
	f.blockOf[b.Label] = b
}

// GetBlock looks up a block by label.
func (f *Function) GetBlock(label string) (*BasicBlock, bool) {
	b, ok := f.blockOf[label]
	return b, ok
}

// EntryBlock returns the function's entry block.
func (f *Function) EntryBlock() *BasicBlock {
	b, _ := f.GetBlock(f.Entry)
	return b
}

// RemoveBlock deletes a block from the function's block list and index.
func (f *Function) RemoveBlock(label string) {
	delete(f.blockOf, label)
	for i, b := range f.Blocks {
		if b.Label == label {
			f.Blocks = append(f.Blocks[:i], f.Blocks[i+1:]...)
			return
		}
	}
}

// GetNextVariable allocates a fresh SSA variable with a monotonically
// increasing version, named after the hint (or "var" if empty).
func (f *Function) GetNextVariable(hint string) Variable {
	if hint == "" {
		hint = "var"
	}
	f.varCounter++
	return Variable{Name: hint, Version: f.varCounter}
}

// GetNextLabel mints a fresh block label derived from base, appending a
// numeric suffix on collision so repeated calls with the same base (e.g.
// during CFG splitting) stay unique and deterministic.
func (f *Function) GetNextLabel(base string) string {
	if _, exists := f.blockOf[base]; !exists {
		return base
	}
	for {
		f.labelCounter[base]++
		candidate := fmt.Sprintf("%s%d", base, f.labelCounter[base])
		if _, exists := f.blockOf[candidate]; !exists {
			return candidate
		}
	}
}

// Copy returns a deep copy of the function, safe to mutate independently
// (used when a pass wants to snapshot a function before a risky rewrite,
// e.g. the inliner's callee-at-each-call-site duplication).
func (f *Function) Copy() *Function {
	cp := &Function{
		Name:         f.Name,
		Entry:        f.Entry,
		blockOf:      make(map[string]*BasicBlock),
		varCounter:   f.varCounter,
		labelCounter: make(map[string]int),
		NumArgs:      f.NumArgs,
	}
	for k, v := range f.labelCounter {
		cp.labelCounter[k] = v
	}
	for _, b := range f.Blocks {
		nb := NewBasicBlock(b.Label)
		for _, inst := range b.Instructions {
			ni := &Instruction{
				Opcode:     inst.Opcode,
				Operands:   append([]Operand(nil), inst.Operands...),
				AstSource:  inst.AstSource,
				ErrorMsg:   inst.ErrorMsg,
				Annotation: inst.Annotation,
			}
			if inst.Output != nil {
				out := *inst.Output
				ni.Output = &out
			}
			nb.AppendInstruction(ni)
		}
		cp.AddBlock(nb)
	}
	return cp
}

func (f *Function) String() string {
	s := "function " + f.Name + " {"
	for _, b := range f.Blocks {
		s += "\n" + b.String()
	}
	s += "\n}"
	return s
}

// Context owns every function in a compilation unit plus the shared data
// segment and global label namespace. Passes operate on one Function at a
// time but consult Context for cross-function facts (the call graph,
// constant data, deterministic fresh labels shared across parallel
// compilation of sibling functions).
type Context struct {
	Functions     []*Function
	functionOf    map[string]*Function
	EntryFunction string

	// DataSegment holds named constant byte blobs (e.g. runtime code,
	// string/bytes literals) addressable by dload/dloadbytes before
	// LowerDload runs.
	DataSegment map[string][]byte

	globalLabelCounter int

	// mu guards globalLabelCounter and DataSegment against concurrent
	// access from Driver.CompileParallel's per-function goroutines; every
	// other Context field is touched only during sequential setup/inlining.
	mu deadlock.Mutex
}

// NewContext creates an empty compilation unit.
func NewContext() *Context {
	return &Context{
		functionOf:  make(map[string]*Function),
		DataSegment: make(map[string][]byte),
	}
}

// AddFunction registers fn, indexed by name.
func (c *Context) AddFunction(fn *Function) {
	c.Functions = append(c.Functions, fn)
	c.functionOf[fn.Name] = fn
}

// GetFunction looks up a function by name.
func (c *Context) GetFunction(name string) (*Function, bool) {
	fn, ok := c.functionOf[name]
	return fn, ok
}

// RemoveFunction deletes a function (used by the inliner once every call
// site to a single-call-site callee has been inlined away).
func (c *Context) RemoveFunction(name string) {
	delete(c.functionOf, name)
	for i, fn := range c.Functions {
		if fn.Name == name {
			c.Functions = append(c.Functions[:i], c.Functions[i+1:]...)
			return
		}
	}
}

// FreshGlobalLabel mints a label unique across the whole context, used when
// a pass (e.g. the inliner) must rename a callee's blocks to avoid
// colliding with the caller's.
func (c *Context) FreshGlobalLabel(prefix string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.globalLabelCounter++
	return fmt.Sprintf("%s_%d", prefix, c.globalLabelCounter)
}

// SetDataSegment records a named constant blob under lock, safe to call
// from concurrently compiling functions.
func (c *Context) SetDataSegment(name string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.DataSegment[name] = data
}

package passes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"venom/internal/ir"
	"venom/internal/ir/analysis"
)

func TestAssignEliminationReplacesUsesAndRemoves(t *testing.T) {
	fn := ir.NewFunction("f", "entry")
	entry := fn.EntryBlock()

	v1 := fn.GetNextVariable("v1")
	entry.AppendInstruction(&ir.Instruction{Opcode: ir.OpAdd, Operands: []ir.Operand{ir.NewLiteral(1), ir.NewLiteral(2)}, Output: &v1})

	v2 := fn.GetNextVariable("v2")
	entry.AppendInstruction(&ir.Instruction{Opcode: ir.OpAssign, Operands: []ir.Operand{v1}, Output: &v2})

	out := fn.GetNextVariable("out")
	entry.AppendInstruction(&ir.Instruction{Opcode: ir.OpMStore, Operands: []ir.Operand{v2, ir.NewLiteral(0)}, Output: &out})
	entry.AppendInstruction(ir.NewInstruction(ir.OpStop))

	cache := analysis.NewAnalysesCache(fn)
	changed := AssignElimination{}.Run(fn, cache)
	require.True(t, changed)

	require.Len(t, entry.Instructions, 3) // add, mstore, stop
	mstore := entry.Instructions[1]
	assert.Equal(t, v1, mstore.Operands[0])
}

func TestAssignEliminationSkipsPhiUses(t *testing.T) {
	fn := ir.NewFunction("f", "A")
	a := fn.EntryBlock()
	b := ir.NewBasicBlock("B")
	fn.AddBlock(b)

	v1 := fn.GetNextVariable("v1")
	a.AppendInstruction(&ir.Instruction{Opcode: ir.OpAssign, Operands: []ir.Operand{ir.NewLiteral(9)}, Output: &v1})
	v2 := fn.GetNextVariable("v2")
	a.AppendInstruction(&ir.Instruction{Opcode: ir.OpAssign, Operands: []ir.Operand{v1}, Output: &v2})
	a.AppendInstruction(ir.NewInstruction(ir.OpJmp, ir.Label{Name: "B"}))

	phiOut := fn.GetNextVariable("phi")
	phi := &ir.Instruction{Opcode: ir.OpPhi, Operands: []ir.Operand{ir.Label{Name: "A"}, v2}, Output: &phiOut}
	b.InsertPhi(phi)
	b.AppendInstruction(ir.NewInstruction(ir.OpStop))

	cache := analysis.NewAnalysesCache(fn)
	changed := AssignElimination{}.Run(fn, cache)
	assert.False(t, changed)
}

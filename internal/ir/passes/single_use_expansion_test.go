package passes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"venom/internal/ir"
	"venom/internal/ir/analysis"
)

func TestSingleUseExpansionMaterializesLiteralOperand(t *testing.T) {
	fn := ir.NewFunction("f", "A")
	a := fn.EntryBlock()

	out := fn.GetNextVariable("out")
	add := &ir.Instruction{Opcode: ir.OpAdd, Operands: []ir.Operand{ir.NewLiteral(1), ir.NewLiteral(2)}, Output: &out}
	a.AppendInstruction(add)
	a.AppendInstruction(ir.NewInstruction(ir.OpStop))

	cache := analysis.NewAnalysesCache(fn)
	changed := SingleUseExpansion{}.Run(fn, cache)
	require.True(t, changed)

	require.Len(t, a.Instructions, 4)
	assert.Equal(t, ir.OpAssign, a.Instructions[0].Opcode)
	assert.Equal(t, ir.OpAssign, a.Instructions[1].Opcode)
	assert.Equal(t, ir.OpAdd, a.Instructions[2].Opcode)
	for _, op := range a.Instructions[2].Operands {
		_, isLit := op.(ir.Literal)
		assert.False(t, isLit)
	}
}

func TestSingleUseExpansionMaterializesMultiUseVariable(t *testing.T) {
	fn := ir.NewFunction("f", "A")
	a := fn.EntryBlock()

	x := fn.GetNextVariable("x")
	a.AppendInstruction(&ir.Instruction{Opcode: ir.OpAddress, Output: &x})

	o1 := fn.GetNextVariable("o1")
	a.AppendInstruction(&ir.Instruction{Opcode: ir.OpAdd, Operands: []ir.Operand{x, ir.NewLiteral(1)}, Output: &o1})
	o2 := fn.GetNextVariable("o2")
	a.AppendInstruction(&ir.Instruction{Opcode: ir.OpMul, Operands: []ir.Operand{x, ir.NewLiteral(2)}, Output: &o2})
	a.AppendInstruction(ir.NewInstruction(ir.OpStop))

	cache := analysis.NewAnalysesCache(fn)
	changed := SingleUseExpansion{}.Run(fn, cache)
	require.True(t, changed)

	addInst := findOpcode(t, a, ir.OpAdd)
	mulInst := findOpcode(t, a, ir.OpMul)
	addX, ok := addInst.Operands[0].(ir.Variable)
	require.True(t, ok)
	mulX, ok := mulInst.Operands[0].(ir.Variable)
	require.True(t, ok)
	assert.NotEqual(t, x, addX)
	assert.NotEqual(t, x, mulX)
	assert.NotEqual(t, addX, mulX)
}

func TestSingleUseExpansionLeavesSingleUseVariableAlone(t *testing.T) {
	fn := ir.NewFunction("f", "A")
	a := fn.EntryBlock()

	x := fn.GetNextVariable("x")
	a.AppendInstruction(&ir.Instruction{Opcode: ir.OpAddress, Output: &x})
	o1 := fn.GetNextVariable("o1")
	addInst := &ir.Instruction{Opcode: ir.OpAdd, Operands: []ir.Operand{x, ir.NewLiteral(1)}, Output: &o1}
	a.AppendInstruction(addInst)
	a.AppendInstruction(ir.NewInstruction(ir.OpStop))

	cache := analysis.NewAnalysesCache(fn)
	SingleUseExpansion{}.Run(fn, cache)

	assert.Equal(t, x, addInst.Operands[0].(ir.Variable))
}

func TestSingleUseExpansionSkipsAssignOffsetParamPhi(t *testing.T) {
	fn := ir.NewFunction("f", "A")
	a := fn.EntryBlock()

	out := fn.GetNextVariable("out")
	assign := &ir.Instruction{Opcode: ir.OpAssign, Operands: []ir.Operand{ir.NewLiteral(5)}, Output: &out}
	a.AppendInstruction(assign)
	a.AppendInstruction(ir.NewInstruction(ir.OpStop))

	cache := analysis.NewAnalysesCache(fn)
	changed := SingleUseExpansion{}.Run(fn, cache)
	assert.False(t, changed)
	require.Len(t, assign.Operands, 1)
	_, isLit := assign.Operands[0].(ir.Literal)
	assert.True(t, isLit)
}

func findOpcode(t *testing.T, b *ir.BasicBlock, op ir.Opcode) *ir.Instruction {
	t.Helper()
	for _, inst := range b.Instructions {
		if inst.Opcode == op {
			return inst
		}
	}
	t.Fatalf("no instruction with opcode %v found", op)
	return nil
}

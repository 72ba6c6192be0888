package passes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"venom/internal/ir"
	"venom/internal/ir/analysis"
)

func runAlgebraic(t *testing.T, inst *ir.Instruction) {
	t.Helper()
	fn := ir.NewFunction("f", "entry")
	entry := fn.EntryBlock()
	entry.AppendInstruction(inst)
	entry.AppendInstruction(ir.NewInstruction(ir.OpStop))
	cache := analysis.NewAnalysesCache(fn)
	changed := AlgebraicOptimization{}.Run(fn, cache)
	require.True(t, changed)
}

func TestAlgebraicAddZeroIdentity(t *testing.T) {
	fn := ir.NewFunction("f", "entry")
	entry := fn.EntryBlock()
	x := fn.GetNextVariable("x")
	entry.AppendInstruction(&ir.Instruction{Opcode: ir.OpAddress, Output: &x})
	out := fn.GetNextVariable("out")
	inst := &ir.Instruction{Opcode: ir.OpAdd, Operands: []ir.Operand{x, ir.NewLiteral(0)}, Output: &out}
	entry.AppendInstruction(inst)
	entry.AppendInstruction(ir.NewInstruction(ir.OpStop))

	cache := analysis.NewAnalysesCache(fn)
	changed := AlgebraicOptimization{}.Run(fn, cache)
	require.True(t, changed)
	assert.Equal(t, ir.OpAssign, inst.Opcode)
	assert.Equal(t, x, inst.Operands[0])
}

func TestAlgebraicMulByZero(t *testing.T) {
	out := ir.Variable{Name: "out", Version: 1}
	inst := &ir.Instruction{Opcode: ir.OpMul, Operands: []ir.Operand{ir.NewLiteral(0), ir.NewLiteral(5)}, Output: &out}
	runAlgebraic(t, inst)
	assert.Equal(t, ir.OpAssign, inst.Opcode)
	lv, ok := inst.Operands[0].(ir.Literal)
	require.True(t, ok)
	assert.Equal(t, "0", lv.Value.String())
}

func TestAlgebraicMulByPowerOfTwoBecomesShift(t *testing.T) {
	fn := ir.NewFunction("f", "entry")
	entry := fn.EntryBlock()
	x := fn.GetNextVariable("x")
	entry.AppendInstruction(&ir.Instruction{Opcode: ir.OpAddress, Output: &x})
	out := fn.GetNextVariable("out")
	inst := &ir.Instruction{Opcode: ir.OpMul, Operands: []ir.Operand{x, ir.NewLiteral(8)}, Output: &out}
	entry.AppendInstruction(inst)
	entry.AppendInstruction(ir.NewInstruction(ir.OpStop))

	cache := analysis.NewAnalysesCache(fn)
	changed := AlgebraicOptimization{}.Run(fn, cache)
	require.True(t, changed)
	assert.Equal(t, ir.OpShl, inst.Opcode)
	lv, ok := inst.Operands[0].(ir.Literal)
	require.True(t, ok)
	assert.Equal(t, "3", lv.Value.String())
	assert.Equal(t, x, inst.Operands[1])
}

func TestAlgebraicSubSelfViaAssignChainIsZero(t *testing.T) {
	fn := ir.NewFunction("f", "entry")
	entry := fn.EntryBlock()
	x := fn.GetNextVariable("x")
	entry.AppendInstruction(&ir.Instruction{Opcode: ir.OpAddress, Output: &x})
	y := fn.GetNextVariable("y")
	entry.AppendInstruction(&ir.Instruction{Opcode: ir.OpAssign, Operands: []ir.Operand{x}, Output: &y})
	out := fn.GetNextVariable("out")
	inst := &ir.Instruction{Opcode: ir.OpSub, Operands: []ir.Operand{x, y}, Output: &out}
	entry.AppendInstruction(inst)
	entry.AppendInstruction(ir.NewInstruction(ir.OpStop))

	cache := analysis.NewAnalysesCache(fn)
	changed := AlgebraicOptimization{}.Run(fn, cache)
	require.True(t, changed)
	assert.Equal(t, ir.OpAssign, inst.Opcode)
	assert.True(t, isLitValue(inst.Operands[0], 0))
}

func TestAlgebraicTripleIsZeroCollapses(t *testing.T) {
	fn := ir.NewFunction("f", "entry")
	entry := fn.EntryBlock()
	x := fn.GetNextVariable("x")
	entry.AppendInstruction(&ir.Instruction{Opcode: ir.OpAddress, Output: &x})
	z1 := fn.GetNextVariable("z1")
	entry.AppendInstruction(&ir.Instruction{Opcode: ir.OpIsZero, Operands: []ir.Operand{x}, Output: &z1})
	z2 := fn.GetNextVariable("z2")
	entry.AppendInstruction(&ir.Instruction{Opcode: ir.OpIsZero, Operands: []ir.Operand{z1}, Output: &z2})
	z3 := fn.GetNextVariable("z3")
	inst := &ir.Instruction{Opcode: ir.OpIsZero, Operands: []ir.Operand{z2}, Output: &z3}
	entry.AppendInstruction(inst)
	entry.AppendInstruction(ir.NewInstruction(ir.OpStop))

	cache := analysis.NewAnalysesCache(fn)
	changed := AlgebraicOptimization{}.Run(fn, cache)
	require.True(t, changed)
	assert.Equal(t, ir.OpIsZero, inst.Opcode)
	assert.Equal(t, x, inst.Operands[0])
}

func TestAlgebraicShiftByAtLeast256IsZero(t *testing.T) {
	out := ir.Variable{Name: "out", Version: 1}
	inst := &ir.Instruction{Opcode: ir.OpShl, Operands: []ir.Operand{ir.NewLiteral(300), ir.NewLiteral(7)}, Output: &out}
	runAlgebraic(t, inst)
	assert.Equal(t, ir.OpAssign, inst.Opcode)
	assert.True(t, isLitValue(inst.Operands[0], 0))
}

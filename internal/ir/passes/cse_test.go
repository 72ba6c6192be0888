package passes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"venom/internal/ir"
	"venom/internal/ir/analysis"
)

// TestCSEAcrossEffectBarrier: two adds of the same operands separated by an
// unrelated mstore (no shared read/write effect) are recognized as the same
// available expression. Unlike `mload`, an `add` reads nothing the mstore
// writes, so the mstore does not kill it.
func TestCSEAcrossEffectBarrier(t *testing.T) {
	fn := ir.NewFunction("f", "entry")
	entry := fn.EntryBlock()

	x := fn.GetNextVariable("x")
	entry.AppendInstruction(&ir.Instruction{Opcode: ir.OpAddress, Output: &x})
	y := fn.GetNextVariable("y")
	entry.AppendInstruction(&ir.Instruction{Opcode: ir.OpCaller, Output: &y})

	sum1 := fn.GetNextVariable("sum1")
	first := &ir.Instruction{Opcode: ir.OpAdd, Operands: []ir.Operand{x, y}, Output: &sum1}
	entry.AppendInstruction(first)

	entry.AppendInstruction(&ir.Instruction{Opcode: ir.OpMStore, Operands: []ir.Operand{ir.NewLiteral(0), ir.NewLiteral(1)}})

	sum2 := fn.GetNextVariable("sum2")
	second := &ir.Instruction{Opcode: ir.OpAdd, Operands: []ir.Operand{x, y}, Output: &sum2}
	entry.AppendInstruction(second)
	entry.AppendInstruction(ir.NewInstruction(ir.OpStop))

	cache := analysis.NewAnalysesCache(fn)
	changed := CSE{}.Run(fn, cache)
	require.True(t, changed)

	assert.Equal(t, ir.OpAssign, second.Opcode)
	require.Len(t, second.Operands, 1)
	assert.Equal(t, sum1, second.Operands[0])
}

func TestCSENoReplacementWhenKilled(t *testing.T) {
	fn := ir.NewFunction("f", "entry")
	entry := fn.EntryBlock()

	addr := fn.GetNextVariable("addr")
	entry.AppendInstruction(&ir.Instruction{Opcode: ir.OpAddress, Output: &addr})

	v1 := fn.GetNextVariable("v1")
	load1 := &ir.Instruction{Opcode: ir.OpMLoad, Operands: []ir.Operand{addr}, Output: &v1}
	entry.AppendInstruction(load1)

	entry.AppendInstruction(&ir.Instruction{Opcode: ir.OpMStore, Operands: []ir.Operand{addr, ir.NewLiteral(7)}})

	v2 := fn.GetNextVariable("v2")
	load2 := &ir.Instruction{Opcode: ir.OpMLoad, Operands: []ir.Operand{addr}, Output: &v2}
	entry.AppendInstruction(load2)
	entry.AppendInstruction(ir.NewInstruction(ir.OpStop))

	cache := analysis.NewAnalysesCache(fn)
	CSE{}.Run(fn, cache)
	assert.Equal(t, ir.OpMLoad, load2.Opcode)
}

func TestCSEIntraBlockSmallDepthExpression(t *testing.T) {
	fn := ir.NewFunction("f", "entry")
	entry := fn.EntryBlock()
	out1 := fn.GetNextVariable("out1")
	first := &ir.Instruction{Opcode: ir.OpAdd, Operands: []ir.Operand{ir.NewLiteral(1), ir.NewLiteral(2)}, Output: &out1}
	entry.AppendInstruction(first)
	out2 := fn.GetNextVariable("out2")
	second := &ir.Instruction{Opcode: ir.OpAdd, Operands: []ir.Operand{ir.NewLiteral(1), ir.NewLiteral(2)}, Output: &out2}
	entry.AppendInstruction(second)
	entry.AppendInstruction(ir.NewInstruction(ir.OpStop))

	cache := analysis.NewAnalysesCache(fn)
	changed := CSE{}.Run(fn, cache)
	require.True(t, changed)
	assert.Equal(t, ir.OpAssign, second.Opcode)
	assert.Equal(t, out1, second.Operands[0])
}

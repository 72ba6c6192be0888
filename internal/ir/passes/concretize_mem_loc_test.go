package passes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"venom/internal/ir"
	"venom/internal/ir/analysis"
)

func TestConcretizeMemLocFoldsLiteralBase(t *testing.T) {
	fn := ir.NewFunction("f", "A")
	a := fn.EntryBlock()

	base := fn.GetNextVariable("base")
	a.AppendInstruction(&ir.Instruction{Opcode: ir.OpAssign, Operands: []ir.Operand{ir.NewLiteral(100)}, Output: &base})

	resolved := fn.GetNextVariable("addr")
	a.AppendInstruction(&ir.Instruction{Opcode: ir.OpOffset, Operands: []ir.Operand{base, ir.NewLiteral(32)}, Output: &resolved})
	a.AppendInstruction(ir.NewInstruction(ir.OpStop))

	cache := analysis.NewAnalysesCache(fn)
	changed := ConcretizeMemLoc{}.Run(fn, cache)
	require.True(t, changed)

	for _, inst := range a.Instructions {
		if inst.Output != nil && *inst.Output == resolved {
			assert.Equal(t, ir.OpAssign, inst.Opcode)
			lit, ok := inst.Operands[0].(ir.Literal)
			require.True(t, ok)
			assert.Equal(t, int64(132), lit.Value.Int64())
		}
	}
}

func TestConcretizeMemLocSkipsNonLiteralBase(t *testing.T) {
	fn := ir.NewFunction("f", "A")
	a := fn.EntryBlock()

	base := fn.GetNextVariable("base")
	a.AppendInstruction(&ir.Instruction{Opcode: ir.OpAddress, Output: &base})

	resolved := fn.GetNextVariable("addr")
	a.AppendInstruction(&ir.Instruction{Opcode: ir.OpOffset, Operands: []ir.Operand{base, ir.NewLiteral(32)}, Output: &resolved})
	a.AppendInstruction(ir.NewInstruction(ir.OpStop))

	cache := analysis.NewAnalysesCache(fn)
	changed := ConcretizeMemLoc{}.Run(fn, cache)
	assert.False(t, changed)
}

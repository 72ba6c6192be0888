package passes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"venom/internal/ir"
	"venom/internal/ir/analysis"
)

func TestLowerDloadRewritesToAllocaAddCodecopyMload(t *testing.T) {
	fn := ir.NewFunction("f", "A")
	a := fn.EntryBlock()

	ptr := fn.GetNextVariable("ptr")
	a.AppendInstruction(&ir.Instruction{Opcode: ir.OpAddress, Output: &ptr})
	out := fn.GetNextVariable("out")
	dload := &ir.Instruction{Opcode: ir.OpDLoad, Operands: []ir.Operand{ptr}, Output: &out}
	a.AppendInstruction(dload)
	a.AppendInstruction(ir.NewInstruction(ir.OpStop))

	cache := analysis.NewAnalysesCache(fn)
	changed := LowerDload{}.Run(fn, cache)
	require.True(t, changed)

	var opcodes []ir.Opcode
	for _, inst := range a.Instructions {
		opcodes = append(opcodes, inst.Opcode)
	}
	assert.Contains(t, opcodes, ir.OpAlloca)
	assert.Contains(t, opcodes, ir.OpAdd)
	assert.Contains(t, opcodes, ir.OpCodeCopy)
	assert.Contains(t, opcodes, ir.OpMLoad)
	assert.NotContains(t, opcodes, ir.OpDLoad)

	for _, inst := range a.Instructions {
		if inst.Opcode == ir.OpAdd {
			lbl, ok := inst.Operands[1].(ir.Label)
			require.True(t, ok)
			assert.Equal(t, "code_end", lbl.Name)
		}
		if inst.Opcode == ir.OpMLoad {
			assert.Equal(t, &out, inst.Output)
		}
	}
}

func TestLowerDloadBytesRewritesToAddCodecopy(t *testing.T) {
	fn := ir.NewFunction("f", "A")
	a := fn.EntryBlock()

	src := fn.GetNextVariable("src")
	a.AppendInstruction(&ir.Instruction{Opcode: ir.OpAddress, Output: &src})
	dloadBytes := ir.NewInstruction(ir.OpDLoadBytes, ir.NewLiteral(0x40), src, ir.NewLiteral(32))
	a.AppendInstruction(dloadBytes)
	a.AppendInstruction(ir.NewInstruction(ir.OpStop))

	cache := analysis.NewAnalysesCache(fn)
	changed := LowerDload{}.Run(fn, cache)
	require.True(t, changed)

	var sawAdd, sawCopy bool
	for _, inst := range a.Instructions {
		if inst.Opcode == ir.OpAdd {
			sawAdd = true
			lbl, ok := inst.Operands[1].(ir.Label)
			require.True(t, ok)
			assert.Equal(t, "code_end", lbl.Name)
		}
		if inst.Opcode == ir.OpCodeCopy {
			sawCopy = true
		}
		assert.NotEqual(t, ir.OpDLoadBytes, inst.Opcode)
	}
	assert.True(t, sawAdd)
	assert.True(t, sawCopy)
}

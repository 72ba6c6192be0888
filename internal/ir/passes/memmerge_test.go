package passes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"venom/internal/ir"
	"venom/internal/ir/analysis"
)

func TestMemMergeCollapsesContiguousCopy(t *testing.T) {
	fn := ir.NewFunction("f", "entry")
	entry := fn.EntryBlock()

	for i := 0; i < 3; i++ {
		src := int64(0x100 + i*32)
		dst := int64(0x200 + i*32)
		v := fn.GetNextVariable("v")
		entry.AppendInstruction(&ir.Instruction{Opcode: ir.OpMLoad, Operands: []ir.Operand{ir.NewLiteral(src)}, Output: &v})
		entry.AppendInstruction(&ir.Instruction{Opcode: ir.OpMStore, Operands: []ir.Operand{ir.NewLiteral(dst), v}})
	}
	entry.AppendInstruction(ir.NewInstruction(ir.OpStop))

	cache := analysis.NewAnalysesCache(fn)
	changed := MemMerge{}.Run(fn, cache)
	require.True(t, changed)

	require.Len(t, entry.Instructions, 2) // mcopy + stop
	mcopy := entry.Instructions[0]
	assert.Equal(t, ir.OpMCopy, mcopy.Opcode)
	assert.True(t, isLitValue(mcopy.Operands[0], 96))
	assert.True(t, isLitValue(mcopy.Operands[1], 0x100))
	assert.True(t, isLitValue(mcopy.Operands[2], 0x200))
}

func TestMemMergeLeavesSingletonPairAlone(t *testing.T) {
	fn := ir.NewFunction("f", "entry")
	entry := fn.EntryBlock()
	v := fn.GetNextVariable("v")
	entry.AppendInstruction(&ir.Instruction{Opcode: ir.OpMLoad, Operands: []ir.Operand{ir.NewLiteral(0x100)}, Output: &v})
	entry.AppendInstruction(&ir.Instruction{Opcode: ir.OpMStore, Operands: []ir.Operand{ir.NewLiteral(0x200), v}})
	entry.AppendInstruction(ir.NewInstruction(ir.OpStop))

	cache := analysis.NewAnalysesCache(fn)
	changed := MemMerge{}.Run(fn, cache)
	assert.False(t, changed)
}

func TestMemMergeBreaksOnNonContiguousGap(t *testing.T) {
	fn := ir.NewFunction("f", "entry")
	entry := fn.EntryBlock()
	v1 := fn.GetNextVariable("v1")
	entry.AppendInstruction(&ir.Instruction{Opcode: ir.OpMLoad, Operands: []ir.Operand{ir.NewLiteral(0x100)}, Output: &v1})
	entry.AppendInstruction(&ir.Instruction{Opcode: ir.OpMStore, Operands: []ir.Operand{ir.NewLiteral(0x200), v1}})
	v2 := fn.GetNextVariable("v2")
	entry.AppendInstruction(&ir.Instruction{Opcode: ir.OpMLoad, Operands: []ir.Operand{ir.NewLiteral(0x400)}, Output: &v2})
	entry.AppendInstruction(&ir.Instruction{Opcode: ir.OpMStore, Operands: []ir.Operand{ir.NewLiteral(0x500), v2}})
	entry.AppendInstruction(ir.NewInstruction(ir.OpStop))

	cache := analysis.NewAnalysesCache(fn)
	changed := MemMerge{}.Run(fn, cache)
	assert.False(t, changed)
}

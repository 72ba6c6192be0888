package passes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"venom/internal/ir"
)

// buildAddOneProgram builds a context with a single function that reads one
// value, adds 1 to it twice (so CSE/assign-elimination both have something
// to do), stores the sum to an alloca'd slot, loads it back, and stops.
func buildAddOneProgram() *ir.Context {
	ctx := ir.NewContext()
	fn := ir.NewFunction("main", "entry")
	ctx.AddFunction(fn)
	ctx.EntryFunction = "main"

	b := fn.EntryBlock()
	a := fn.GetNextVariable("a")
	b.AppendInstruction(&ir.Instruction{Opcode: ir.OpAddress, Output: &a})

	sum1 := fn.GetNextVariable("sum")
	b.AppendInstruction(&ir.Instruction{Opcode: ir.OpAdd, Operands: []ir.Operand{a, ir.NewLiteral(1)}, Output: &sum1})

	sum2 := fn.GetNextVariable("sum")
	b.AppendInstruction(&ir.Instruction{Opcode: ir.OpAdd, Operands: []ir.Operand{a, ir.NewLiteral(1)}, Output: &sum2})

	slot := fn.GetNextVariable("slot")
	b.AppendInstruction(&ir.Instruction{Opcode: ir.OpAlloca, Operands: []ir.Operand{ir.NewLiteral(32)}, Output: &slot})
	b.AppendInstruction(ir.NewInstruction(ir.OpMStore, slot, sum2))
	loaded := fn.GetNextVariable("loaded")
	b.AppendInstruction(&ir.Instruction{Opcode: ir.OpMLoad, Operands: []ir.Operand{slot}, Output: &loaded})

	b.AppendInstruction(ir.NewInstruction(ir.OpStop))
	return ctx
}

func assertWellFormed(t *testing.T, fn *ir.Function) {
	t.Helper()
	for _, b := range fn.Blocks {
		require.NotEmpty(t, b.Instructions, "block %s has no instructions", b.Label)
		last := b.Instructions[len(b.Instructions)-1]
		assert.True(t, last.IsTerminator(), "block %s does not end in a terminator", b.Label)
	}
}

func TestPassManagerO0RunsEndToEnd(t *testing.T) {
	ctx := buildAddOneProgram()
	require.NotPanics(t, func() {
		NewPassManager(O0).Run(ctx)
	})
	fn, ok := ctx.GetFunction("main")
	require.True(t, ok)
	assertWellFormed(t, fn)
}

func TestPassManagerO2RunsEndToEnd(t *testing.T) {
	ctx := buildAddOneProgram()
	require.NotPanics(t, func() {
		NewPassManager(O2).Run(ctx)
	})
	fn, ok := ctx.GetFunction("main")
	require.True(t, ok)
	assertWellFormed(t, fn)
}

func TestPassManagerO3InlinesSingleCallSite(t *testing.T) {
	ctx, _, _ := buildCallerCallee()
	require.NotPanics(t, func() {
		NewPassManager(O3).Run(ctx)
	})
	_, calleeExists := ctx.GetFunction("addone")
	assert.False(t, calleeExists)

	main, ok := ctx.GetFunction("main")
	require.True(t, ok)
	assertWellFormed(t, main)
}

func TestPassManagerOsRunsEndToEnd(t *testing.T) {
	ctx := buildAddOneProgram()
	require.NotPanics(t, func() {
		NewPassManager(Os).Run(ctx)
	})
	fn, ok := ctx.GetFunction("main")
	require.True(t, ok)
	assertWellFormed(t, fn)
}

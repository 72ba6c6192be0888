package passes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"venom/internal/ir"
)

func buildTwoIndependentFunctions() *ir.Context {
	ctx := ir.NewContext()

	for _, name := range []string{"f", "g"} {
		fn := ir.NewFunction(name, "entry")
		ctx.AddFunction(fn)
		b := fn.EntryBlock()
		v := fn.GetNextVariable("v")
		b.AppendInstruction(&ir.Instruction{Opcode: ir.OpAddress, Output: &v})
		sum := fn.GetNextVariable("sum")
		b.AppendInstruction(&ir.Instruction{Opcode: ir.OpAdd, Operands: []ir.Operand{v, ir.NewLiteral(1)}, Output: &sum})
		b.AppendInstruction(ir.NewInstruction(ir.OpStop))
	}
	ctx.EntryFunction = "f"
	return ctx
}

func TestDriverCompileParallelProducesWellFormedFunctions(t *testing.T) {
	ctx := buildTwoIndependentFunctions()
	require.NotPanics(t, func() {
		NewDriver(O1).CompileParallel(ctx)
	})

	for _, name := range []string{"f", "g"} {
		fn, ok := ctx.GetFunction(name)
		require.True(t, ok)
		assertWellFormed(t, fn)
	}
}

func TestContextFreshGlobalLabelUniqueUnderConcurrentUse(t *testing.T) {
	ctx := ir.NewContext()
	seen := make(chan string, 100)
	done := make(chan struct{})
	for i := 0; i < 100; i++ {
		go func() {
			seen <- ctx.FreshGlobalLabel("x")
		}()
	}
	go func() {
		labels := make(map[string]bool)
		for i := 0; i < 100; i++ {
			labels[<-seen] = true
		}
		assert.Len(t, labels, 100)
		close(done)
	}()
	<-done
}

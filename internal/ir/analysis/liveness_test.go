package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"venom/internal/ir"
)

// buildLinear builds global: %x = add 1,2 ; jmp next / next: %y = add %x,1 ; stop
func buildLinear() (*ir.Function, ir.Variable, ir.Variable) {
	fn := ir.NewFunction("f", "global")
	entry := fn.EntryBlock()
	next := ir.NewBasicBlock("next")
	fn.AddBlock(next)

	x := fn.GetNextVariable("x")
	entry.AppendInstruction(&ir.Instruction{Opcode: ir.OpAdd, Operands: []ir.Operand{ir.NewLiteral(1), ir.NewLiteral(2)}, Output: &x})
	entry.AppendInstruction(ir.NewInstruction(ir.OpJmp, ir.Label{Name: "next"}))

	y := fn.GetNextVariable("y")
	next.AppendInstruction(&ir.Instruction{Opcode: ir.OpAdd, Operands: []ir.Operand{x, ir.NewLiteral(1)}, Output: &y})
	next.AppendInstruction(ir.NewInstruction(ir.OpStop))
	return fn, x, y
}

func TestLivenessPropagatesAcrossBlocks(t *testing.T) {
	fn, x, _ := buildLinear()
	cfg := BuildCFG(fn)
	liveness := BuildLiveness(fn, cfg)

	assert.True(t, liveness.LiveOut("global").Contains(x), "x must be live-out of global since next uses it")
	assert.False(t, liveness.LiveIn("global").Contains(x), "x is defined in global, not live-in")
}

func TestLivenessDeadAfterLastUse(t *testing.T) {
	fn, _, y := buildLinear()
	cfg := BuildCFG(fn)
	liveness := BuildLiveness(fn, cfg)

	assert.False(t, liveness.LiveOut("next").Contains(y), "y has no use after its definition")
}

func TestLiveAfterInstruction(t *testing.T) {
	fn, x, _ := buildLinear()
	cfg := BuildCFG(fn)
	liveness := BuildLiveness(fn, cfg)

	entry := fn.EntryBlock()
	defInst := entry.Instructions[0]
	assert.True(t, liveness.LiveAfter(defInst).Contains(x))
}

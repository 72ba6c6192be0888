package passes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"venom/internal/ir"
	"venom/internal/ir/analysis"
)

// buildCriticalEdgeDiamond builds A -(jnz)-> C, D; C -(jmp)-> D, with a phi
// in D reading A's and C's values. A has two successors (C, D) and D has
// two predecessors (A, C), making A->D critical.
func buildCriticalEdgeDiamond() (*ir.Function, *ir.BasicBlock, *ir.BasicBlock) {
	fn := ir.NewFunction("f", "A")
	a := fn.EntryBlock()
	c := ir.NewBasicBlock("C")
	d := ir.NewBasicBlock("D")
	fn.AddBlock(c)
	fn.AddBlock(d)

	cond := fn.GetNextVariable("cond")
	a.AppendInstruction(&ir.Instruction{Opcode: ir.OpAddress, Output: &cond})
	a.AppendInstruction(&ir.Instruction{Opcode: ir.OpJnz, Operands: []ir.Operand{cond, ir.Label{Name: "C"}, ir.Label{Name: "D"}}})
	c.AppendInstruction(ir.NewInstruction(ir.OpJmp, ir.Label{Name: "D"}))

	phiOut := fn.GetNextVariable("x")
	phi := &ir.Instruction{
		Opcode: ir.OpPhi,
		Operands: []ir.Operand{
			ir.Label{Name: "A"}, ir.NewLiteral(1),
			ir.Label{Name: "C"}, ir.NewLiteral(2),
		},
		Output: &phiOut,
	}
	d.InsertPhi(phi)
	d.AppendInstruction(ir.NewInstruction(ir.OpStop))
	return fn, a, d
}

func TestCFGNormalizationSplitsCriticalEdge(t *testing.T) {
	fn, a, d := buildCriticalEdgeDiamond()

	cache := analysis.NewAnalysesCache(fn)
	changed := CFGNormalization{}.Run(fn, cache)
	require.True(t, changed)

	term := a.Terminator()
	require.NotNil(t, term)
	var sawD bool
	var splitLabel string
	for _, lbl := range term.LabelOperands() {
		if lbl.Name == "D" {
			sawD = true
		}
		if lbl.Name != "C" && lbl.Name != "D" {
			splitLabel = lbl.Name
		}
	}
	assert.False(t, sawD, "A's terminator should no longer point directly at D")
	require.NotEmpty(t, splitLabel)

	split, ok := fn.GetBlock(splitLabel)
	require.True(t, ok)
	term2 := split.Terminator()
	require.NotNil(t, term2)
	assert.Equal(t, ir.OpJmp, term2.Opcode)
	assert.Equal(t, "D", term2.Operands[0].(ir.Label).Name)

	phis := d.Phis()
	require.Len(t, phis, 1)
	foundSplitOperand := false
	for i := 0; i+1 < len(phis[0].Operands); i += 2 {
		if lbl, ok := phis[0].Operands[i].(ir.Label); ok && lbl.Name == splitLabel {
			foundSplitOperand = true
		}
	}
	assert.True(t, foundSplitOperand)
}

func TestCFGNormalizationNoopWithoutCriticalEdges(t *testing.T) {
	fn := ir.NewFunction("f", "A")
	a := fn.EntryBlock()
	b := ir.NewBasicBlock("B")
	fn.AddBlock(b)
	a.AppendInstruction(ir.NewInstruction(ir.OpJmp, ir.Label{Name: "B"}))
	b.AppendInstruction(ir.NewInstruction(ir.OpStop))

	cache := analysis.NewAnalysesCache(fn)
	changed := CFGNormalization{}.Run(fn, cache)
	assert.False(t, changed)
}

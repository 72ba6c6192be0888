package passes

import (
	"venom/internal/ir"
	"venom/internal/ir/analysis"
)

// PhiElimination is the inverse of MakeSSA: every phi `v = phi lbl1, a, lbl2,
// b, ...` is removed and, for each (label, value) pair, an `v = assign
// value` is inserted at the end of the corresponding predecessor block
// (before its terminator). Phis in the same block are lowered in program
// order without attempting parallel-copy (swap-problem) resolution, which
// is a documented simplification for this pass.
type PhiElimination struct{}

func (PhiElimination) Name() string { return "phi-elimination" }

func (PhiElimination) Run(fn *ir.Function, cache *analysis.AnalysesCache) bool {
	upd := updaterFor(cache)
	changed := false

	for _, b := range fn.Blocks {
		for _, phi := range b.Phis() {
			if phi.Output == nil {
				continue
			}
			for i := 0; i+1 < len(phi.Operands); i += 2 {
				predLbl, ok := phi.Operands[i].(ir.Label)
				if !ok {
					continue
				}
				pred, ok := fn.GetBlock(predLbl.Name)
				if !ok {
					continue
				}
				insertCopyBeforeTerminator(pred, *phi.Output, phi.Operands[i+1])
			}
			upd.Remove(phi)
			changed = true
		}
	}
	if changed {
		cache.InvalidateAnalysis(analysis.KindDFG)
	}
	return changed
}

func insertCopyBeforeTerminator(b *ir.BasicBlock, out ir.Variable, value ir.Operand) {
	copyInst := &ir.Instruction{Opcode: ir.OpAssign, Operands: []ir.Operand{value}, Output: &out}
	idx := len(b.Instructions)
	if term := b.Terminator(); term != nil {
		idx--
	}
	copyInst.Parent = b
	b.Instructions = append(b.Instructions[:idx], append([]*ir.Instruction{copyInst}, b.Instructions[idx:]...)...)
}

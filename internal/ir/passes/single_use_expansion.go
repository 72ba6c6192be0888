package passes

import (
	"venom/internal/ir"
	"venom/internal/ir/analysis"
)

// SingleUseExpansion is the inverse of AssignElimination and the
// prerequisite for DFT. For every operand of every non-(assign/offset/
// param/phi) instruction, a literal operand or a variable used more than
// once (including twice by the same instruction) is replaced by a fresh
// `tmp = assign operand` inserted immediately before. Phi operands get the
// same treatment at the end of the corresponding predecessor block. The
// post-condition: every variable except an assign's own output has at most
// one non-assign consumer, and no instruction has a literal operand except
// assign/offset/log's first operand.
type SingleUseExpansion struct{}

func (SingleUseExpansion) Name() string { return "single-use-expansion" }

var singleUseExcluded = map[ir.Opcode]bool{
	ir.OpAssign: true,
	ir.OpOffset: true,
	ir.OpParam:  true,
	ir.OpPhi:    true,
}

func (SingleUseExpansion) Run(fn *ir.Function, cache *analysis.AnalysesCache) bool {
	dfg := cache.RequestDFG()
	upd := updaterFor(cache)
	changed := false

	for _, b := range fn.Blocks {
		for _, inst := range append([]*ir.Instruction(nil), b.Instructions...) {
			if inst.Opcode == ir.OpPhi {
				changed = expandPhiOperands(fn, inst, dfg) || changed
				continue
			}
			if singleUseExcluded[inst.Opcode] {
				continue
			}
			for i, op := range inst.Operands {
				if inst.Opcode == ir.OpLog && i == 0 {
					continue // log's first operand stays a literal
				}
				if !needsExpansion(op, dfg) {
					continue
				}
				tmp := upd.AddBefore(inst, ir.OpAssign, []ir.Operand{op})
				inst.Operands[i] = tmp
				changed = true
			}
		}
	}
	return changed
}

func needsExpansion(op ir.Operand, dfg *ir.DFG) bool {
	switch v := op.(type) {
	case ir.Literal:
		return true
	case ir.Variable:
		return dfg.UseCount(v) > 1
	default:
		return false
	}
}

func expandPhiOperands(fn *ir.Function, phi *ir.Instruction, dfg *ir.DFG) bool {
	changed := false
	for i := 0; i+1 < len(phi.Operands); i += 2 {
		predLbl, ok := phi.Operands[i].(ir.Label)
		if !ok {
			continue
		}
		pred, ok := fn.GetBlock(predLbl.Name)
		if !ok {
			continue
		}
		value := phi.Operands[i+1]
		if !needsExpansion(value, dfg) {
			continue
		}
		tmp := fn.GetNextVariable("phiarg")
		insertCopyBeforeTerminator(pred, tmp, value)
		phi.Operands[i+1] = tmp
		changed = true
	}
	return changed
}

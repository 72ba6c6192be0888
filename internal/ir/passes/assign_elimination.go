package passes

import (
	"venom/internal/ir"
	"venom/internal/ir/analysis"
)

// AssignElimination implements spec's "for every v2 = assign v1 where no use
// of v2 is a phi and no use of v1 is a phi, replace every use of v2 with v1,
// then remove the assign." It is the inverse of SingleUseExpansion and
// typically runs after most other transformations have converged.
type AssignElimination struct{}

func (AssignElimination) Name() string { return "assign-elimination" }

func (AssignElimination) Run(fn *ir.Function, cache *analysis.AnalysesCache) bool {
	dfg := cache.RequestDFG()
	upd := updaterFor(cache)
	changed := false

	for _, b := range fn.Blocks {
		for _, inst := range append([]*ir.Instruction(nil), b.Instructions...) {
			if inst.Opcode != ir.OpAssign || inst.Output == nil || len(inst.Operands) != 1 {
				continue
			}
			v1, ok := inst.Operands[0].(ir.Variable)
			if !ok {
				continue
			}
			v2 := *inst.Output

			if usedByPhi(dfg, v2) || usedByPhi(dfg, v1) {
				continue
			}

			for _, use := range append([]*ir.Instruction(nil), dfg.Uses(v2)...) {
				upd.ReplaceOperands(use, map[ir.Operand]ir.Operand{v2: v1})
			}
			upd.Remove(inst)
			changed = true
		}
	}

	return changed
}

func usedByPhi(dfg *ir.DFG, v ir.Variable) bool {
	for _, use := range dfg.Uses(v) {
		if use.Opcode == ir.OpPhi {
			return true
		}
	}
	return false
}

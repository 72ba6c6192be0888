package passes

import (
	"venom/internal/ir"
	"venom/internal/ir/analysis"
)

// RemoveUnusedVars iterates to a fixed point: an instruction with an output
// and no volatile effects whose output is not in the live set right after
// it is removed. nop instructions are always removed outright.
type RemoveUnusedVars struct{}

func (RemoveUnusedVars) Name() string { return "remove-unused-vars" }

func (RemoveUnusedVars) Run(fn *ir.Function, cache *analysis.AnalysesCache) bool {
	upd := updaterFor(cache)
	changed := false

	for {
		cache.RequestCFG()
		liveness := cache.RequestLiveness()
		roundChanged := false

		for _, b := range fn.Blocks {
			for _, inst := range append([]*ir.Instruction(nil), b.Instructions...) {
				if inst.Opcode == ir.OpNop {
					upd.Remove(inst)
					roundChanged = true
					continue
				}
				if inst.Output == nil || inst.IsVolatile() {
					continue
				}
				if liveness.LiveAfter(inst).Contains(*inst.Output) {
					continue
				}
				upd.Remove(inst)
				roundChanged = true
			}
		}

		if !roundChanged {
			break
		}
		changed = true
		cache.InvalidateAnalysis(analysis.KindCFG)
	}

	return changed
}

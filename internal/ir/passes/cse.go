package passes

import (
	"venom/internal/ir"
	"venom/internal/ir/analysis"
)

// CSE eliminates redundant computation using available-expression analysis:
// a redundant instruction is replaced with an assign to the earlier
// equivalent's output when the earlier instruction dominates it, or is in
// the same block with no killing effect between them. Small-depth
// expressions are restricted to same-block replacement per the analysis's
// own heuristic (analysis.SmallExpressionDepth).
type CSE struct{}

func (CSE) Name() string { return "cse" }

func (CSE) Run(fn *ir.Function, cache *analysis.AnalysesCache) bool {
	cache.RequestCFG()
	cache.RequestDominators()
	dfg := cache.RequestDFG()
	ae := cache.RequestAvailableExpression()
	upd := updaterFor(cache)

	depth := make(map[*ir.Instruction]int)
	var depthOf func(inst *ir.Instruction) int
	depthOf = func(inst *ir.Instruction) int {
		if d, ok := depth[inst]; ok {
			return d
		}
		depth[inst] = 0 // break cycles conservatively
		max := 0
		for _, op := range inst.Operands {
			v, ok := op.(ir.Variable)
			if !ok {
				continue
			}
			p := dfg.Producer(v)
			if p == nil {
				continue
			}
			if d := depthOf(p) + 1; d > max {
				max = d
			}
		}
		depth[inst] = max
		return max
	}

	changed := false
	for _, b := range fn.Blocks {
		for _, inst := range append([]*ir.Instruction(nil), b.Instructions...) {
			if inst.Output == nil {
				continue
			}
			d := depthOf(inst)
			earlier := ae.FindEquivalent(inst, d)
			if earlier == nil || earlier.Output == nil {
				continue
			}
			upd.Store(inst, *earlier.Output)
			changed = true
		}
	}
	return changed
}

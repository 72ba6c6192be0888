package passes

import (
	"venom/internal/ir"
	"venom/internal/ir/analysis"
)

// SimplifyCFG merges a block into its unique successor whenever the edge
// between them is the block's only connection: A has exactly one
// successor B, B has exactly one predecessor A, and B carries no phis to
// reconcile. The merge folds B's instructions (including its terminator)
// directly into A in place of A's jump to B, then removes B.
type SimplifyCFG struct{}

func (SimplifyCFG) Name() string { return "simplify-cfg" }

func (SimplifyCFG) Run(fn *ir.Function, cache *analysis.AnalysesCache) bool {
	changed := false
	for {
		cache.RequestCFG()
		mergedThisRound := false
		for _, a := range append([]*ir.BasicBlock(nil), fn.Blocks...) {
			if _, ok := fn.GetBlock(a.Label); !ok {
				continue
			}
			succs := a.CfgOut.Items()
			if len(succs) != 1 {
				continue
			}
			bLabel := succs[0]
			if bLabel == a.Label {
				continue
			}
			b, ok := fn.GetBlock(bLabel)
			if !ok {
				continue
			}
			preds := b.CfgIn.Items()
			if len(preds) != 1 || preds[0] != a.Label {
				continue
			}
			if len(b.Phis()) > 0 {
				continue
			}
			mergeIntoPredecessor(a, b)
			fn.RemoveBlock(bLabel)
			mergedThisRound = true
			changed = true
		}
		if !mergedThisRound {
			break
		}
		cache.InvalidateAnalysis(analysis.KindCFG)
	}
	return changed
}

func mergeIntoPredecessor(a, b *ir.BasicBlock) {
	if term := a.Terminator(); term != nil {
		a.Instructions = a.Instructions[:len(a.Instructions)-1]
	}
	for _, inst := range b.Instructions {
		inst.Parent = a
		a.Instructions = append(a.Instructions, inst)
	}
}

package passes

import (
	"math/big"

	"venom/internal/ir"
	"venom/internal/ir/analysis"
)

// ConcretizeMemLoc folds an `offset base, lit` instruction into a plain
// literal `assign` once base itself resolves to a literal address — tracing
// back through chains of assigns produced by earlier passes (mem2var,
// assign-elimination's leftovers, inlining's param-forwarding). Turning a
// symbolic offset into a concrete address lets downstream codesize passes
// and the emitter treat it like any other constant instead of an
// address computation that has to survive to runtime.
type ConcretizeMemLoc struct{}

func (ConcretizeMemLoc) Name() string { return "concretize-mem-loc" }

func (ConcretizeMemLoc) Run(fn *ir.Function, cache *analysis.AnalysesCache) bool {
	dfg := cache.RequestDFG()
	upd := updaterFor(cache)
	changed := false

	for _, b := range fn.Blocks {
		for _, inst := range append([]*ir.Instruction(nil), b.Instructions...) {
			if inst.Opcode != ir.OpOffset || len(inst.Operands) != 2 {
				continue
			}
			base, ok := resolveLiteral(inst.Operands[0], dfg, make(map[ir.Variable]bool))
			if !ok {
				continue
			}
			off, ok := inst.Operands[1].(ir.Literal)
			if !ok {
				continue
			}
			total := new(big.Int).Add(base.Value, off.Value)
			upd.Update(inst, ir.OpAssign, []ir.Operand{ir.Literal{Value: ir.MaskU256(total)}}, inst.Output)
			changed = true
		}
	}

	if changed {
		cache.InvalidateAnalysis(analysis.KindDFG)
	}
	return changed
}

// resolveLiteral traces a chain of assign-to-assign forwarding back to a
// literal, if one exists, bailing out on cycles via the visited set.
func resolveLiteral(op ir.Operand, dfg *ir.DFG, visited map[ir.Variable]bool) (ir.Literal, bool) {
	switch v := op.(type) {
	case ir.Literal:
		return v, true
	case ir.Variable:
		if visited[v] {
			return ir.Literal{}, false
		}
		visited[v] = true
		producer := dfg.Producer(v)
		if producer == nil || producer.Opcode != ir.OpAssign || len(producer.Operands) != 1 {
			return ir.Literal{}, false
		}
		return resolveLiteral(producer.Operands[0], dfg, visited)
	default:
		return ir.Literal{}, false
	}
}

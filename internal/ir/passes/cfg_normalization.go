package passes

import (
	"fmt"

	"venom/internal/errors"
	"venom/internal/ir"
	"venom/internal/ir/analysis"
)

// CFGNormalization eliminates critical edges: an edge (P, S) where P has
// more than one successor and S has more than one predecessor. Such an
// edge is split by inserting a synthetic block named "{P}_split_{S}" that
// P jumps to instead of S, and which itself jumps on to S; any phi in S
// that read P's value now reads a copy forwarded through the split block
// instead. The rewrite iterates to a fixed point, bounded at 2*|blocks|
// iterations before raising a compiler panic for failure to converge.
type CFGNormalization struct{}

func (CFGNormalization) Name() string { return "cfg-normalization" }

func (CFGNormalization) Run(fn *ir.Function, cache *analysis.AnalysesCache) bool {
	upd := updaterFor(cache)
	changed := false
	bound := 2 * len(fn.Blocks)
	if bound == 0 {
		bound = 2
	}

	for iter := 0; ; iter++ {
		cache.RequestCFG()
		edge := findCriticalEdge(fn)
		if edge == nil {
			break
		}
		if iter >= bound {
			panic(&errors.CompilerPanic{
				Code:     errors.ErrorNormalizationDivergence,
				Message:  fmt.Sprintf("CFG normalization did not converge within %d iterations", bound),
				Function: fn.Name,
			})
		}
		splitCriticalEdge(fn, upd, edge.from, edge.to)
		changed = true
		cache.InvalidateAnalysis(analysis.KindCFG)
	}
	return changed
}

type criticalEdge struct{ from, to string }

func findCriticalEdge(fn *ir.Function) *criticalEdge {
	for _, p := range fn.Blocks {
		if len(p.CfgOut.Items()) <= 1 {
			continue
		}
		for _, sLabel := range p.CfgOut.Items() {
			s, ok := fn.GetBlock(sLabel)
			if !ok {
				continue
			}
			if len(s.CfgIn.Items()) > 1 {
				return &criticalEdge{from: p.Label, to: sLabel}
			}
		}
	}
	return nil
}

func splitCriticalEdge(fn *ir.Function, upd *ir.InstUpdater, fromLabel, toLabel string) {
	from, _ := fn.GetBlock(fromLabel)
	to, _ := fn.GetBlock(toLabel)

	splitLabel := fn.GetNextLabel(fromLabel + "_split_" + toLabel)
	split := ir.NewBasicBlock(splitLabel)

	for _, phi := range to.Phis() {
		for i := 0; i+1 < len(phi.Operands); i += 2 {
			lbl, ok := phi.Operands[i].(ir.Label)
			if !ok || lbl.Name != fromLabel {
				continue
			}
			value := phi.Operands[i+1]
			tmp := fn.GetNextVariable("splitfwd")
			copyInst := &ir.Instruction{Opcode: ir.OpAssign, Operands: []ir.Operand{value}, Output: &tmp}
			copyInst.Parent = split
			split.Instructions = append(split.Instructions, copyInst)
			phi.Operands[i] = ir.Label{Name: splitLabel}
			phi.Operands[i+1] = tmp
		}
	}

	jmp := ir.NewInstruction(ir.OpJmp, ir.Label{Name: toLabel})
	jmp.Parent = split
	split.Instructions = append(split.Instructions, jmp)
	fn.AddBlock(split)

	if term := from.Terminator(); term != nil {
		upd.ReplaceLabelOperands(term, map[string]string{toLabel: splitLabel})
	}
}

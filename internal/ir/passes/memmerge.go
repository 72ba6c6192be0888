package passes

import (
	"math/big"

	"venom/internal/ir"
	"venom/internal/ir/analysis"
)

// MemMerge detects runs of 32-byte mload/mstore pairs that form a
// contiguous copy (src/dst addresses each advancing by 32 with every step,
// the loaded value used by nothing but its paired store) and collapses
// them into a single mcopy. A run shorter than two pairs is left alone —
// there's nothing to merge.
type MemMerge struct{}

func (MemMerge) Name() string { return "mem-merge" }

const wordSize = 32

type copyPair struct {
	load, store *ir.Instruction
	src, dst    *big.Int
}

func (p MemMerge) Run(fn *ir.Function, cache *analysis.AnalysesCache) bool {
	dfg := cache.RequestDFG()
	upd := updaterFor(cache)
	changed := false

	for _, b := range fn.Blocks {
		pairs := extractCopyPairs(b, dfg)
		runs := groupContiguousRuns(pairs)
		for _, run := range runs {
			if len(run) < 2 {
				continue
			}
			changed = true
			mergeRun(b, run, upd)
		}
	}
	return changed
}

// extractCopyPairs finds every `v = mload(src); mstore(dst, v)` pair where v
// has exactly one use (the store), in program order.
func extractCopyPairs(b *ir.BasicBlock, dfg *ir.DFG) []copyPair {
	var pairs []copyPair
	insts := b.Instructions
	for i := 0; i+1 < len(insts); i++ {
		load := insts[i]
		if load.Opcode != ir.OpMLoad || load.Output == nil || len(load.Operands) != 1 {
			continue
		}
		src, ok := literalAddr(load.Operands[0])
		if !ok {
			continue
		}
		store := insts[i+1]
		if store.Opcode != ir.OpMStore || len(store.Operands) != 2 {
			continue
		}
		dst, ok := literalAddr(store.Operands[0])
		if !ok {
			continue
		}
		v, ok := store.Operands[1].(ir.Variable)
		if !ok || v != *load.Output || dfg.UseCount(v) != 1 {
			continue
		}
		pairs = append(pairs, copyPair{load: load, store: store, src: src, dst: dst})
	}
	return pairs
}

// groupContiguousRuns groups consecutive pairs (in the slice order returned
// by extractCopyPairs, which is program order) whose src and dst addresses
// both advance by exactly one word from the previous pair.
func groupContiguousRuns(pairs []copyPair) [][]copyPair {
	var runs [][]copyPair
	var cur []copyPair
	for _, p := range pairs {
		if len(cur) > 0 {
			last := cur[len(cur)-1]
			wantSrc := new(big.Int).Add(last.src, big.NewInt(wordSize))
			wantDst := new(big.Int).Add(last.dst, big.NewInt(wordSize))
			if p.src.Cmp(wantSrc) != 0 || p.dst.Cmp(wantDst) != 0 {
				runs = append(runs, cur)
				cur = nil
			}
		}
		cur = append(cur, p)
	}
	if len(cur) > 0 {
		runs = append(runs, cur)
	}
	return runs
}

// mergeRun replaces a run's load/store instructions with a single mcopy
// placed at the first pair's position, removing the rest.
func mergeRun(b *ir.BasicBlock, run []copyPair, upd *ir.InstUpdater) {
	length := int64(len(run)) * wordSize
	first := run[0]
	upd.Update(first.store, ir.OpMCopy, []ir.Operand{ir.NewLiteral(length), ir.Literal{Value: first.src}, ir.Literal{Value: first.dst}}, nil)
	upd.Remove(first.load)
	for _, p := range run[1:] {
		upd.Remove(p.load)
		upd.Remove(p.store)
	}
}

package analysis

import (
	"venom/internal/errors"
	"venom/internal/ir"
)

// maxDominatorIterations bounds the iterative dataflow fixed-point per the
// timeout policy: iterative analyses must raise rather than loop forever on
// a malformed CFG.
const maxDominatorIterations = 10000

// DominatorTree holds each reachable block's immediate dominator and
// dominance-frontier set, computed with the Cooper-Harvey-Kennedy
// algorithm over reverse postorder.
type DominatorTree struct {
	fn   *ir.Function
	idom map[string]string
	df   map[string]*ir.OrderedSet[string]
	rpo  []*ir.BasicBlock
	idx  map[string]int // position within rpo, for the "earlier in rpo" comparisons idom uses
}

// BuildDominatorTree computes the dominator tree of fn given its CFG.
func BuildDominatorTree(fn *ir.Function, cfg *CFG) *DominatorTree {
	rpo := cfg.ReversePostorder()
	idx := make(map[string]int, len(rpo))
	for i, b := range rpo {
		idx[b.Label] = i
	}

	idom := make(map[string]string)
	idom[fn.Entry] = fn.Entry

	changed := true
	iterations := 0
	for changed {
		changed = false
		iterations++
		if iterations > maxDominatorIterations {
			panic(&errors.CompilerPanic{
				Code:     errors.ErrorAnalysisDivergence,
				Function: fn.Name,
				Message:  "dominator analysis failed to converge",
			})
		}
		for _, b := range rpo {
			if b.Label == fn.Entry {
				continue
			}
			var newIdom string
			first := true
			for _, predLabel := range b.CfgIn.Items() {
				if _, ok := idom[predLabel]; !ok {
					continue // predecessor not yet processed
				}
				if first {
					newIdom = predLabel
					first = false
					continue
				}
				newIdom = intersect(idom, idx, newIdom, predLabel)
			}
			if first {
				continue // no processed predecessor yet
			}
			if idom[b.Label] != newIdom {
				idom[b.Label] = newIdom
				changed = true
			}
		}
	}

	dt := &DominatorTree{fn: fn, idom: idom, rpo: rpo, idx: idx}
	dt.df = computeDominanceFrontiers(fn, idom)
	return dt
}

func intersect(idom map[string]string, idx map[string]int, a, b string) string {
	for a != b {
		for idx[a] > idx[b] {
			a = idom[a]
		}
		for idx[b] > idx[a] {
			b = idom[b]
		}
	}
	return a
}

// computeDominanceFrontiers walks each join block up the idom tree, per the
// Cooper-Harvey-Kennedy dominance-frontier construction.
func computeDominanceFrontiers(fn *ir.Function, idom map[string]string) map[string]*ir.OrderedSet[string] {
	df := make(map[string]*ir.OrderedSet[string])
	for _, b := range fn.Blocks {
		df[b.Label] = ir.NewOrderedSet[string]()
	}
	for _, b := range fn.Blocks {
		if b.CfgIn.Len() < 2 {
			continue
		}
		for _, pred := range b.CfgIn.Items() {
			if _, ok := idom[pred]; !ok {
				continue
			}
			runner := pred
			for runner != idom[b.Label] {
				df[runner].Add(b.Label)
				if runner == idom[runner] {
					break // reached root without finding idom(b); malformed/unreachable mix
				}
				runner = idom[runner]
			}
		}
	}
	return df
}

// IDom returns the immediate dominator label of label (label itself for
// the entry block).
func (dt *DominatorTree) IDom(label string) (string, bool) {
	v, ok := dt.idom[label]
	return v, ok
}

// Dominates reports whether a dominates b (reflexively).
func (dt *DominatorTree) Dominates(a, b string) bool {
	if a == b {
		return true
	}
	cur, ok := dt.idom[b]
	if !ok {
		return false
	}
	for cur != dt.fn.Entry {
		if cur == a {
			return true
		}
		cur = dt.idom[cur]
	}
	return cur == a
}

// DominanceFrontier returns DF(label).
func (dt *DominatorTree) DominanceFrontier(label string) *ir.OrderedSet[string] {
	if s, ok := dt.df[label]; ok {
		return s
	}
	return ir.NewOrderedSet[string]()
}

// ImmediateChildren returns the blocks whose immediate dominator is label.
func (dt *DominatorTree) ImmediateChildren(label string) []string {
	var out []string
	for _, b := range dt.rpo {
		if b.Label == label {
			continue
		}
		if dt.idom[b.Label] == label {
			out = append(out, b.Label)
		}
	}
	return out
}

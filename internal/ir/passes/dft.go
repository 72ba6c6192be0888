package passes

import (
	"sort"

	"venom/internal/ir"
	"venom/internal/ir/analysis"
)

// DFT schedules the non-phi, non-terminator instructions of each basic
// block by building an instruction-dependency graph (data edges from a
// consumer to its producer, plus effect edges serializing accesses to the
// same resource domain) and re-emitting the block in an order consistent
// with that graph. Phis stay pinned at the top of the block and the
// terminator stays pinned at the bottom, so every volatile instruction is
// trivially ordered before the terminator without a separate edge kind.
//
// Readiness ties are broken by "offspring count" — the number of
// instructions transitively depending on a candidate — scheduling the
// instruction with the most dependents first so its result is available as
// early as possible, with a small bias nudging `iszero` towards its
// consumer (typically a branch condition).
type DFT struct{}

func (DFT) Name() string { return "dft" }

func (DFT) Run(fn *ir.Function, cache *analysis.AnalysesCache) bool {
	dfg := cache.RequestDFG()
	changed := false
	for _, b := range fn.Blocks {
		if scheduleBlock(b, dfg) {
			changed = true
		}
	}
	if changed {
		cache.InvalidateAnalysis(analysis.KindDFG)
	}
	return changed
}

type effectDomain func(ir.EffectSet) bool

var allDomains = []effectDomain{
	func(e ir.EffectSet) bool { return e.Memory },
	func(e ir.EffectSet) bool { return e.Storage },
	func(e ir.EffectSet) bool { return e.Transient },
	func(e ir.EffectSet) bool { return e.Balance },
	func(e ir.EffectSet) bool { return e.Extcode },
	func(e ir.EffectSet) bool { return e.Returndata },
	func(e ir.EffectSet) bool { return e.Immutables },
	func(e ir.EffectSet) bool { return e.Gas },
	func(e ir.EffectSet) bool { return e.MSize },
	func(e ir.EffectSet) bool { return e.ControlFlow },
}

func scheduleBlock(b *ir.BasicBlock, dfg *ir.DFG) bool {
	term := b.Terminator()
	var phis, body []*ir.Instruction
	for _, inst := range b.Instructions {
		switch {
		case inst.Opcode == ir.OpPhi:
			phis = append(phis, inst)
		case inst == term:
		default:
			body = append(body, inst)
		}
	}
	if len(body) <= 1 {
		return false
	}

	scheduled := dftOrder(body, dfg)

	same := true
	for i, inst := range scheduled {
		if body[i] != inst {
			same = false
			break
		}
	}
	if same {
		return false
	}

	newInsts := make([]*ir.Instruction, 0, len(b.Instructions))
	newInsts = append(newInsts, phis...)
	newInsts = append(newInsts, scheduled...)
	if term != nil {
		newInsts = append(newInsts, term)
	}
	b.Instructions = newInsts
	return true
}

// dftOrder computes a dependency-respecting schedule for body via a
// priority-driven topological sort (Kahn's algorithm, breaking ties on the
// ready set by offspring count, iszero bias, then original position).
func dftOrder(body []*ir.Instruction, dfg *ir.DFG) []*ir.Instruction {
	n := len(body)
	index := make(map[*ir.Instruction]int, n)
	for i, inst := range body {
		index[inst] = i
	}

	deps := make([][]int, n)
	addDep := func(i, j int) {
		if i == j {
			return
		}
		for _, x := range deps[i] {
			if x == j {
				return
			}
		}
		deps[i] = append(deps[i], j)
	}

	for i, inst := range body {
		for _, op := range inst.Operands {
			v, ok := op.(ir.Variable)
			if !ok {
				continue
			}
			producer := dfg.Producer(v)
			if producer == nil {
				continue
			}
			if j, ok := index[producer]; ok {
				addDep(i, j)
			}
		}
	}

	lastWriter := make([]int, len(allDomains))
	for i := range lastWriter {
		lastWriter[i] = -1
	}
	readersSinceWrite := make([][]int, len(allDomains))
	for i, inst := range body {
		reads := inst.Opcode.ReadEffects()
		writes := inst.Opcode.WriteEffects()
		for d, domainFn := range allDomains {
			touchesRead := domainFn(reads)
			touchesWrite := domainFn(writes)
			if !touchesRead && !touchesWrite {
				continue
			}
			if lastWriter[d] >= 0 {
				addDep(i, lastWriter[d])
			}
			if touchesWrite {
				for _, r := range readersSinceWrite[d] {
					addDep(i, r)
				}
				lastWriter[d] = i
				readersSinceWrite[d] = nil
			} else {
				readersSinceWrite[d] = append(readersSinceWrite[d], i)
			}
		}
	}

	dependents := make([][]int, n)
	indegree := make([]int, n)
	for i, ds := range deps {
		indegree[i] = len(ds)
		for _, j := range ds {
			dependents[j] = append(dependents[j], i)
		}
	}

	descMemo := make([]map[int]bool, n)
	var descendants func(i int) map[int]bool
	descendants = func(i int) map[int]bool {
		if descMemo[i] != nil {
			return descMemo[i]
		}
		result := map[int]bool{}
		descMemo[i] = result
		for _, d := range dependents[i] {
			result[d] = true
			for k := range descendants(d) {
				result[k] = true
			}
		}
		return result
	}
	offspring := make([]int, n)
	for i := 0; i < n; i++ {
		offspring[i] = len(descendants(i))
	}

	iszeroBias := func(i int) int {
		if body[i].Opcode == ir.OpIsZero {
			return 1
		}
		return 0
	}

	var ready []int
	for i := 0; i < n; i++ {
		if indegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	result := make([]*ir.Instruction, 0, n)
	for len(result) < n {
		sort.Slice(ready, func(a, b int) bool {
			ia, ib := ready[a], ready[b]
			ka := -offspring[ia] + iszeroBias(ia)
			kb := -offspring[ib] + iszeroBias(ib)
			if ka != kb {
				return ka < kb
			}
			return ia < ib
		})
		pick := ready[0]
		ready = ready[1:]
		result = append(result, body[pick])
		for _, d := range dependents[pick] {
			indegree[d]--
			if indegree[d] == 0 {
				ready = append(ready, d)
			}
		}
	}
	return result
}

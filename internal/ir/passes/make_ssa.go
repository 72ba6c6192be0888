package passes

import (
	"venom/internal/ir"
	"venom/internal/ir/analysis"
)

// MakeSSA converts a function whose variables may be redefined in more
// than one block into strict SSA form: phi instructions are inserted at
// the iterated dominance frontier of each variable's definition blocks,
// then every definition and use is renamed to a fresh (name, version)
// pair via dominator-tree preorder renaming (Cytron et al).
type MakeSSA struct{}

func (MakeSSA) Name() string { return "make-ssa" }

func (MakeSSA) Run(fn *ir.Function, cache *analysis.AnalysesCache) bool {
	cache.RequestCFG()
	dom := cache.RequestDominators()

	defBlocks := make(map[string]*ir.OrderedSet[string])
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			if inst.Output == nil {
				continue
			}
			name := inst.Output.Name
			if defBlocks[name] == nil {
				defBlocks[name] = ir.NewOrderedSet[string]()
			}
			defBlocks[name].Add(b.Label)
		}
	}

	changed := false
	phiOrigin := make(map[*ir.Instruction]string)

	for name, defs := range defBlocks {
		if defs.Len() <= 1 {
			continue
		}
		worklist := append([]string{}, defs.Items()...)
		hasPhi := make(map[string]bool)
		processed := make(map[string]bool)
		for len(worklist) > 0 {
			label := worklist[0]
			worklist = worklist[1:]
			if processed[label] {
				continue
			}
			processed[label] = true
			for _, dfBlock := range dom.DominanceFrontier(label).Items() {
				if hasPhi[dfBlock] {
					continue
				}
				hasPhi[dfBlock] = true
				b, ok := fn.GetBlock(dfBlock)
				if !ok {
					continue
				}
				phi := &ir.Instruction{Opcode: ir.OpPhi}
				b.InsertPhi(phi)
				phiOrigin[phi] = name
				changed = true
				if !defs.Contains(dfBlock) {
					worklist = append(worklist, dfBlock)
				}
			}
		}
	}

	stacks := make(map[string][]ir.Variable)

	var renameBlock func(label string)
	renameBlock = func(label string) {
		b, ok := fn.GetBlock(label)
		if !ok {
			return
		}
		pushed := make(map[string]int)

		for _, inst := range b.Instructions {
			if inst.Opcode == ir.OpPhi {
				name := phiOrigin[inst]
				if name == "" {
					continue // phi pre-existing from a prior MakeSSA run; leave as-is
				}
				newVar := fn.GetNextVariable(name)
				inst.Output = &newVar
				stacks[name] = append(stacks[name], newVar)
				pushed[name]++
				changed = true
				continue
			}

			for i, op := range inst.Operands {
				v, ok := op.(ir.Variable)
				if !ok {
					continue
				}
				if s := stacks[v.Name]; len(s) > 0 {
					inst.Operands[i] = s[len(s)-1]
					changed = changed || inst.Operands[i] != op
				}
			}

			if inst.Output != nil {
				name := inst.Output.Name
				newVar := fn.GetNextVariable(name)
				inst.Output = &newVar
				stacks[name] = append(stacks[name], newVar)
				pushed[name]++
			}
		}

		for _, succLabel := range b.CfgOut.Items() {
			succ, ok := fn.GetBlock(succLabel)
			if !ok {
				continue
			}
			for _, phi := range succ.Phis() {
				name := phiOrigin[phi]
				if name == "" {
					continue
				}
				s := stacks[name]
				if len(s) == 0 {
					continue
				}
				phi.Operands = append(phi.Operands, ir.Label{Name: label}, s[len(s)-1])
			}
		}

		for _, child := range dom.ImmediateChildren(label) {
			renameBlock(child)
		}

		for name, n := range pushed {
			stacks[name] = stacks[name][:len(stacks[name])-n]
		}
	}
	renameBlock(fn.Entry)

	return changed
}

package passes

import (
	"math/big"

	"venom/internal/ir"
	"venom/internal/ir/analysis"
)

// DeadStoreElimination removes a store when (a) memory-SSA shows no read
// reaches it, and (b) a later store in the same block writes exactly the
// same literal address (pointer equality, not may-alias) — so the later
// store supersedes it outright. Parameterized by address space; the pass
// manager runs one instance per space.
type DeadStoreElimination struct {
	Space analysis.AddressSpace
}

func (DeadStoreElimination) Name() string { return "dead-store-elimination" }

func (p DeadStoreElimination) Run(fn *ir.Function, cache *analysis.AnalysesCache) bool {
	mem := cache.RequestMemorySSA(p.Space)
	upd := updaterFor(cache)
	storeOp := storeOpcodeFor(p.Space)
	changed := false

	for _, b := range fn.Blocks {
		var stores []*ir.Instruction
		for _, inst := range b.Instructions {
			if inst.Opcode == storeOp && len(inst.Operands) == 2 {
				stores = append(stores, inst)
			}
		}
		for i, store := range stores {
			if !mem.HasNoUses(store) {
				continue
			}
			addr, ok := literalAddr(store.Operands[0])
			if !ok {
				continue
			}
			for j := i + 1; j < len(stores); j++ {
				laterAddr, ok := literalAddr(stores[j].Operands[0])
				if !ok || laterAddr.Cmp(addr) != 0 {
					continue
				}
				upd.Remove(store)
				changed = true
				break
			}
		}
	}
	return changed
}

func literalAddr(op ir.Operand) (*big.Int, bool) {
	l, ok := op.(ir.Literal)
	if !ok || l.Value == nil {
		return nil, false
	}
	return l.Value, true
}

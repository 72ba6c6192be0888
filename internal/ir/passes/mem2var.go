package passes

import (
	"fmt"

	"venom/internal/ir"
	"venom/internal/ir/analysis"
)

// Mem2Var promotes a simple stack-local slot — the output of an alloca/
// palloca/calloca whose address is used only as the direct address
// operand of mload/mstore and never escapes into arithmetic, a call
// argument, or a stored value itself — into an ordinary variable name
// reused (non-SSA) across every definition site: the allocation becomes a
// zero initializer (fresh EVM memory reads as zero), each mstore becomes
// an assign to the slot's name, and each mload becomes an assign that
// reads it. MakeSSA, run immediately afterwards in the O2 pass list, turns
// the repeated same-name assignments into proper SSA form with phis
// inserted at the relevant merge points — exactly as it already does for
// any variable its def-block scan finds assigned more than once.
type Mem2Var struct{}

func (Mem2Var) Name() string { return "mem2var" }

var mem2varAllocOpcodes = map[ir.Opcode]bool{
	ir.OpAlloca:  true,
	ir.OpPAlloca: true,
	ir.OpCAlloca: true,
}

func (Mem2Var) Run(fn *ir.Function, cache *analysis.AnalysesCache) bool {
	dfg := cache.RequestDFG()
	upd := updaterFor(cache)
	changed := false

	for _, b := range fn.Blocks {
		for _, inst := range append([]*ir.Instruction(nil), b.Instructions...) {
			if !mem2varAllocOpcodes[inst.Opcode] || inst.Output == nil {
				continue
			}
			addr := *inst.Output
			uses := dfg.Uses(addr)
			if !eligibleForPromotion(addr, uses) {
				continue
			}
			promoteSlot(fn, inst, addr, uses, upd)
			changed = true
		}
	}

	if changed {
		cache.InvalidateAnalysis(analysis.KindDFG)
	}
	return changed
}

// eligibleForPromotion requires every use of addr to be exactly the
// address operand of an mload or an mstore, and never the stored value
// itself — any other use means the address escapes the slot pattern and
// can't be safely promoted to a register.
func eligibleForPromotion(addr ir.Variable, uses []*ir.Instruction) bool {
	if len(uses) == 0 {
		return false
	}
	for _, inst := range uses {
		if len(inst.Operands) == 0 {
			return false
		}
		v0, ok := inst.Operands[0].(ir.Variable)
		if !ok || v0 != addr {
			return false
		}
		switch inst.Opcode {
		case ir.OpMLoad:
			if len(inst.Operands) != 1 {
				return false
			}
		case ir.OpMStore:
			if len(inst.Operands) != 2 {
				return false
			}
			if v1, ok := inst.Operands[1].(ir.Variable); ok && v1 == addr {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func promoteSlot(fn *ir.Function, allocInst *ir.Instruction, addr ir.Variable, uses []*ir.Instruction, upd *ir.InstUpdater) {
	slotName := fmt.Sprintf("mem2var_%s_%d", addr.Name, addr.Version)

	zero := fn.GetNextVariable(slotName)
	upd.Update(allocInst, ir.OpAssign, []ir.Operand{ir.NewLiteral(0)}, &zero)

	for _, inst := range uses {
		switch inst.Opcode {
		case ir.OpMStore:
			out := fn.GetNextVariable(slotName)
			upd.Update(inst, ir.OpAssign, []ir.Operand{inst.Operands[1]}, &out)
		case ir.OpMLoad:
			placeholder := ir.Variable{Name: slotName, Version: 0}
			upd.Update(inst, ir.OpAssign, []ir.Operand{placeholder}, inst.Output)
		}
	}
}

package passes

import (
	"venom/internal/ir"
	"venom/internal/ir/analysis"
)

// FloatAllocas hoists alloca/palloca/calloca instructions to the function
// entry block before SCCP runs, since the external-interface contract
// requires param/palloca to appear only in the entry block. When a palloca
// is immediately followed by the mstore that initializes its parameter,
// that mstore moves along with it so the pair stays adjacent.
type FloatAllocas struct{}

func (FloatAllocas) Name() string { return "float-allocas" }

func (FloatAllocas) Run(fn *ir.Function, cache *analysis.AnalysesCache) bool {
	entry := fn.EntryBlock()
	if entry == nil {
		return false
	}
	changed := false

	for _, b := range fn.Blocks {
		if b == entry {
			continue
		}
		i := 0
		for i < len(b.Instructions) {
			inst := b.Instructions[i]
			if !isAllocaOpcode(inst.Opcode) {
				i++
				continue
			}
			// Collect the alloca plus its immediately-following mstore (for
			// palloca's parameter-init pair).
			group := []*ir.Instruction{inst}
			removeCount := 1
			if inst.Opcode == ir.OpPAlloca && i+1 < len(b.Instructions) {
				next := b.Instructions[i+1]
				if next.Opcode == ir.OpMStore && initializesAlloca(next, inst) {
					group = append(group, next)
					removeCount = 2
				}
			}

			b.Instructions = append(b.Instructions[:i], b.Instructions[i+removeCount:]...)
			insertBeforeTerminator(entry, group)
			changed = true
			// do not advance i: the slice shrank in place
		}
	}
	return changed
}

func isAllocaOpcode(op ir.Opcode) bool {
	return op == ir.OpAlloca || op == ir.OpPAlloca || op == ir.OpCAlloca
}

// initializesAlloca reports whether mstore's address operand is the
// alloca's own output variable, i.e. the mstore writes directly into the
// just-allocated slot.
func initializesAlloca(mstore, alloca *ir.Instruction) bool {
	if alloca.Output == nil || len(mstore.Operands) == 0 {
		return false
	}
	addr, ok := mstore.Operands[0].(ir.Variable)
	return ok && addr == *alloca.Output
}

// insertBeforeTerminator appends group just before entry's terminator (or
// at the very end if there is no terminator yet).
func insertBeforeTerminator(entry *ir.BasicBlock, group []*ir.Instruction) {
	idx := len(entry.Instructions)
	if term := entry.Terminator(); term != nil {
		idx = len(entry.Instructions) - 1
	}
	for _, g := range group {
		g.Parent = entry
	}
	entry.Instructions = append(entry.Instructions[:idx], append(group, entry.Instructions[idx:]...)...)
}

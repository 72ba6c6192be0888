package passes

import (
	"venom/internal/ir"
	"venom/internal/ir/analysis"
)

// BranchOptimization rewrites `jnz c a a -> jmp a` (both arms identical, so
// the condition is dead) and collapses a jnz whose condition is a literal
// constant into the matching jmp.
type BranchOptimization struct{}

func (BranchOptimization) Name() string { return "branch-optimization" }

func (BranchOptimization) Run(fn *ir.Function, cache *analysis.AnalysesCache) bool {
	upd := updaterFor(cache)
	changed := false

	for _, b := range fn.Blocks {
		term := b.Terminator()
		if term == nil || term.Opcode != ir.OpJnz || len(term.Operands) != 3 {
			continue
		}
		thenLbl, ok1 := term.Operands[1].(ir.Label)
		elseLbl, ok2 := term.Operands[2].(ir.Label)
		if ok1 && ok2 && thenLbl.Name == elseLbl.Name {
			upd.Update(term, ir.OpJmp, []ir.Operand{thenLbl}, nil)
			changed = true
			continue
		}
		if lit, ok := term.Operands[0].(ir.Literal); ok && lit.Value != nil {
			target := elseLbl
			if lit.Value.Sign() != 0 {
				target = thenLbl
			}
			upd.Update(term, ir.OpJmp, []ir.Operand{target}, nil)
			changed = true
		}
	}
	return changed
}

// RevertToAssert rewrites `jnz cond, revertBB, other` (or the mirrored
// arm order) into `assert (cond xor polarity); jmp other` when revertBB's
// sole instruction is `revert 0, 0`, eliminating the block entirely once it
// becomes unreachable from every predecessor (left to CFG simplification).
type RevertToAssert struct{}

func (RevertToAssert) Name() string { return "revert-to-assert" }

func (RevertToAssert) Run(fn *ir.Function, cache *analysis.AnalysesCache) bool {
	upd := updaterFor(cache)
	changed := false

	revertBlocks := make(map[string]bool)
	for _, b := range fn.Blocks {
		if len(b.Instructions) == 1 {
			inst := b.Instructions[0]
			if inst.Opcode == ir.OpRevert && len(inst.Operands) == 2 && isLitValue(inst.Operands[0], 0) && isLitValue(inst.Operands[1], 0) {
				revertBlocks[b.Label] = true
			}
		}
	}

	for _, b := range fn.Blocks {
		term := b.Terminator()
		if term == nil || term.Opcode != ir.OpJnz || len(term.Operands) != 3 {
			continue
		}
		cond := term.Operands[0]
		thenLbl, ok1 := term.Operands[1].(ir.Label)
		elseLbl, ok2 := term.Operands[2].(ir.Label)
		if !ok1 || !ok2 {
			continue
		}

		var other ir.Label
		var assertCond ir.Operand
		switch {
		case revertBlocks[thenLbl.Name] && !revertBlocks[elseLbl.Name]:
			other = elseLbl
			assertCond = negate(upd, term, cond)
		case revertBlocks[elseLbl.Name] && !revertBlocks[thenLbl.Name]:
			other = thenLbl
			assertCond = cond
		default:
			continue
		}

		upd.AddBefore(term, ir.OpAssert, []ir.Operand{assertCond})
		upd.Update(term, ir.OpJmp, []ir.Operand{other}, nil)
		changed = true
	}
	return changed
}

// negate inserts an iszero wrapping cond (xor-by-true for a boolean), used
// when the revert arm is the "then" branch so the assert must fire on the
// opposite polarity.
func negate(upd *ir.InstUpdater, anchor *ir.Instruction, cond ir.Operand) ir.Operand {
	return upd.AddBefore(anchor, ir.OpIsZero, []ir.Operand{cond})
}

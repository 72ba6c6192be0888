package passes

import (
	"venom/internal/ir"
	"venom/internal/ir/analysis"
)

// LowerDload rewrites the `dload`/`dloadbytes` pseudo-ops — reads from the
// code segment addressed relative to a `code_end` label — into the
// primitive sequences a downstream emitter actually understands:
// `dload ptr` becomes a 32-byte scratch `alloca`, `add ptr, code_end` to
// locate the source, a `codecopy` into the scratch slot, and a rewritten
// `mload` of that slot; `dloadbytes dst, src, len` becomes `add src,
// code_end` followed by a `codecopy len, code_ptr, dst` in place. Both
// codecopy forms take their operands in (length, source, destination) order.
type LowerDload struct{}

func (LowerDload) Name() string { return "lower-dload" }

func (LowerDload) Run(fn *ir.Function, cache *analysis.AnalysesCache) bool {
	upd := updaterFor(cache)
	changed := false

	for _, b := range fn.Blocks {
		for _, inst := range append([]*ir.Instruction(nil), b.Instructions...) {
			switch inst.Opcode {
			case ir.OpDLoad:
				lowerDload(fn, b, inst, upd)
				changed = true
			case ir.OpDLoadBytes:
				lowerDloadBytes(inst, upd)
				changed = true
			}
		}
	}

	if changed {
		cache.InvalidateAnalysis(analysis.KindDFG)
		cache.InvalidateAnalysis(analysis.KindLiveness)
	}
	return changed
}

func lowerDload(fn *ir.Function, b *ir.BasicBlock, inst *ir.Instruction, upd *ir.InstUpdater) {
	ptr := inst.Operands[0]
	scratch := upd.AddBefore(inst, ir.OpAlloca, []ir.Operand{ir.NewLiteral(32)})
	codePtr := fn.GetNextVariable("dload_src")
	addInst := &ir.Instruction{Opcode: ir.OpAdd, Operands: []ir.Operand{ptr, ir.Label{Name: "code_end"}}, Output: &codePtr}
	insertBefore(b, inst, addInst)
	copyInst := ir.NewInstruction(ir.OpCodeCopy, ir.NewLiteral(32), codePtr, scratch)
	insertBefore(b, inst, copyInst)

	upd.Update(inst, ir.OpMLoad, []ir.Operand{scratch}, inst.Output)
}

func lowerDloadBytes(inst *ir.Instruction, upd *ir.InstUpdater) {
	dst, src, length := inst.Operands[0], inst.Operands[1], inst.Operands[2]
	codePtr := upd.AddBefore(inst, ir.OpAdd, []ir.Operand{src, ir.Label{Name: "code_end"}})
	upd.Update(inst, ir.OpCodeCopy, []ir.Operand{length, codePtr, dst}, nil)
}

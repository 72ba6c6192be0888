package passes

import (
	"venom/internal/ir"
	"venom/internal/ir/analysis"
)

// LoadElimination walks each block left to right tracking at most one
// (address, value) pair per address space. A store in that space replaces
// the tracked pair with its own (address, value); any other instruction
// whose write-effect set includes that space invalidates the pair. A
// later load whose address is equivalent (by variable equivalence) to the
// tracked address is rewritten into an assign of the tracked value.
type LoadElimination struct {
	Space analysis.AddressSpace
}

func (LoadElimination) Name() string { return "load-elimination" }

func loadOpcodeFor(space analysis.AddressSpace) ir.Opcode {
	switch space {
	case analysis.SpaceStorage:
		return ir.OpSLoad
	case analysis.SpaceTransient:
		return ir.OpTLoad
	default:
		return ir.OpMLoad
	}
}

func (p LoadElimination) Run(fn *ir.Function, cache *analysis.AnalysesCache) bool {
	ve := cache.RequestEquivalence()
	upd := updaterFor(cache)
	loadOp := loadOpcodeFor(p.Space)
	changed := false

	for _, b := range fn.Blocks {
		var trackedAddr ir.Operand
		var trackedVal ir.Operand
		have := false

		for _, inst := range append([]*ir.Instruction(nil), b.Instructions...) {
			if inst.Opcode == loadOp && len(inst.Operands) == 1 && inst.Output != nil {
				if have && ve.OperandsEquivalent(trackedAddr, inst.Operands[0]) {
					upd.Store(inst, trackedVal)
					changed = true
					trackedVal = *inst.Output
					continue
				}
				trackedAddr = inst.Operands[0]
				trackedVal = *inst.Output
				have = true
				continue
			}

			writesSpace := p.Space.WriteOpcode(inst.Opcode) || p.Space.Effect(inst.Opcode.WriteEffects())
			if writesSpace {
				if storeOpcodeFor(p.Space) == inst.Opcode && len(inst.Operands) == 2 {
					trackedAddr = inst.Operands[0]
					trackedVal = inst.Operands[1]
					have = true
				} else {
					have = false
				}
			}
		}
	}
	return changed
}

func storeOpcodeFor(space analysis.AddressSpace) ir.Opcode {
	switch space {
	case analysis.SpaceStorage:
		return ir.OpSStore
	case analysis.SpaceTransient:
		return ir.OpTStore
	default:
		return ir.OpMStore
	}
}

package analysis

import "venom/internal/ir"

// AddressSpace names one of the effect domains dead-store elimination and
// load elimination are parameterized over.
type AddressSpace int

const (
	SpaceMemory AddressSpace = iota
	SpaceStorage
	SpaceTransient
)

// Effect and WriteOpcode are the exported forms of effect/writeOpcode, used
// by passes (load elimination) that need the space/opcode mapping outside
// this package.
func (s AddressSpace) Effect(e ir.EffectSet) bool   { return s.effect(e) }
func (s AddressSpace) WriteOpcode(op ir.Opcode) bool { return s.writeOpcode(op) }

func (s AddressSpace) effect(e ir.EffectSet) bool {
	switch s {
	case SpaceMemory:
		return e.Memory
	case SpaceStorage:
		return e.Storage
	case SpaceTransient:
		return e.Transient
	}
	return false
}

func (s AddressSpace) writeOpcode(op ir.Opcode) bool {
	switch s {
	case SpaceMemory:
		return op == ir.OpMStore || op == ir.OpMCopy || op == ir.OpCalldataCopy || op == ir.OpCodeCopy
	case SpaceStorage:
		return op == ir.OpSStore
	case SpaceTransient:
		return op == ir.OpTStore
	}
	return false
}

// MemDef is one write instruction in a given address space.
type MemDef struct {
	Inst *ir.Instruction
}

// MemorySSA tracks, for a single address space, the reaching definition of
// every memory-reading instruction: the nearest write (in program order
// along the CFG) whose write-effect set intersects the read. Dead-store
// elimination uses this to ask "does any read's reaching def point at
// write W" — if none do, W is a candidate dead store.
type MemorySSA struct {
	space       AddressSpace
	reachingDef map[*ir.Instruction]*ir.Instruction // read inst -> its reaching write, nil if none
	usesOf      map[*ir.Instruction][]*ir.Instruction
}

// BuildMemorySSA computes the analysis for fn restricted to space, given
// fn's CFG in reverse postorder.
func BuildMemorySSA(fn *ir.Function, cfg *CFG, space AddressSpace) *MemorySSA {
	m := &MemorySSA{
		space:       space,
		reachingDef: make(map[*ir.Instruction]*ir.Instruction),
		usesOf:      make(map[*ir.Instruction][]*ir.Instruction),
	}

	// Per-block entry reaching-def, propagated forward. A block with
	// multiple predecessors takes its reaching def as "unknown" (nil)
	// unless every predecessor agrees, since a true merge would need a
	// memory-phi; this package keeps the model intra-procedural-simple per
	// the per-block-sweep usage the dead-store-elimination pass makes of it.
	entryDef := make(map[string]*ir.Instruction)
	computed := make(map[string]bool)

	order := cfg.ReversePostorder()
	for _, b := range order {
		var cur *ir.Instruction
		preds := b.CfgIn.Items()
		if len(preds) == 1 && computed[preds[0]] {
			cur = entryDef[preds[0]]
		} else if len(preds) > 1 {
			var agree *ir.Instruction
			allAgree := true
			for i, p := range preds {
				if !computed[p] {
					allAgree = false
					break
				}
				if i == 0 {
					agree = entryDef[p]
				} else if entryDef[p] != agree {
					allAgree = false
				}
			}
			if allAgree {
				cur = agree
			}
		}

		for _, inst := range b.Instructions {
			if space.effect(inst.Opcode.ReadEffects()) {
				m.reachingDef[inst] = cur
				if cur != nil {
					m.usesOf[cur] = append(m.usesOf[cur], inst)
				}
			}
			if space.writeOpcode(inst.Opcode) || space.effect(inst.Opcode.WriteEffects()) {
				cur = inst
			}
		}
		entryDef[b.Label] = cur
		computed[b.Label] = true
	}
	return m
}

// ReachingDef returns the write instruction that reaches read, or nil.
func (m *MemorySSA) ReachingDef(read *ir.Instruction) *ir.Instruction {
	return m.reachingDef[read]
}

// Uses returns the reads whose reaching def is def.
func (m *MemorySSA) Uses(def *ir.Instruction) []*ir.Instruction {
	return m.usesOf[def]
}

// HasNoUses reports whether def has no memory-use reaching it — the first
// of dead-store-elimination's two conditions.
func (m *MemorySSA) HasNoUses(def *ir.Instruction) bool {
	return len(m.usesOf[def]) == 0
}

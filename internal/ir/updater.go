package ir

// InstUpdater is the sole mutator of IR. Every operand-level change passes
// through it so the DFG can be maintained incrementally instead of
// recomputed from scratch after each rewrite. It never reads analyses other
// than the DFG it owns.
type InstUpdater struct {
	dfg *DFG
}

// NewInstUpdater binds an updater to the DFG it keeps in sync. Passes that
// don't need DFG maintenance (because they invalidate it wholesale anyway)
// may pass nil.
func NewInstUpdater(dfg *DFG) *InstUpdater {
	return &InstUpdater{dfg: dfg}
}

func (u *InstUpdater) unrecord(inst *Instruction) {
	if u.dfg == nil {
		return
	}
	u.dfg.removeInstruction(inst)
}

func (u *InstUpdater) record(inst *Instruction) {
	if u.dfg == nil {
		return
	}
	u.dfg.addInstruction(inst)
}

// Update replaces inst's opcode/operands/output in place, preserving its
// position in the block and its diagnostic fields.
func (u *InstUpdater) Update(inst *Instruction, op Opcode, operands []Operand, output *Variable) {
	u.unrecord(inst)
	inst.Opcode = op
	inst.Operands = operands
	inst.Output = output
	u.record(inst)
}

// Nop replaces inst with a bare nop, dropping operands and output.
func (u *InstUpdater) Nop(inst *Instruction) {
	u.Update(inst, OpNop, nil, nil)
}

// Remove detaches inst from its parent block entirely.
func (u *InstUpdater) Remove(inst *Instruction) {
	u.unrecord(inst)
	b := inst.Parent
	if b == nil {
		return
	}
	for i, x := range b.Instructions {
		if x == inst {
			b.Instructions = append(b.Instructions[:i], b.Instructions[i+1:]...)
			break
		}
	}
	inst.Parent = nil
}

// AddBefore inserts a new instruction with a fresh output variable directly
// before inst, returning the new output.
func (u *InstUpdater) AddBefore(inst *Instruction, op Opcode, operands []Operand) Variable {
	b := inst.Parent
	out := b.Parent.GetNextVariable(string(op))
	ni := &Instruction{Opcode: op, Operands: operands, Output: &out, AstSource: inst.AstSource}
	u.insertAt(b, inst, ni, 0)
	u.record(ni)
	return out
}

// AddAfter inserts a new instruction with a fresh output variable directly
// after inst, returning the new output.
func (u *InstUpdater) AddAfter(inst *Instruction, op Opcode, operands []Operand) Variable {
	b := inst.Parent
	out := b.Parent.GetNextVariable(string(op))
	ni := &Instruction{Opcode: op, Operands: operands, Output: &out, AstSource: inst.AstSource}
	u.insertAt(b, inst, ni, 1)
	u.record(ni)
	return out
}

func (u *InstUpdater) insertAt(b *BasicBlock, anchor, ni *Instruction, offset int) {
	ni.Parent = b
	for i, x := range b.Instructions {
		if x == anchor {
			idx := i + offset
			b.Instructions = append(b.Instructions[:idx], append([]*Instruction{ni}, b.Instructions[idx:]...)...)
			return
		}
	}
}

// Store replaces inst with `output = assign v`.
func (u *InstUpdater) Store(inst *Instruction, v Operand) {
	u.Update(inst, OpAssign, []Operand{v}, inst.Output)
}

// ReplaceOperands rewrites every operand of inst matched by mapping,
// leaving the output untouched.
func (u *InstUpdater) ReplaceOperands(inst *Instruction, mapping map[Operand]Operand) {
	if u.dfg != nil {
		u.dfg.removeInstruction(inst)
	}
	for i, op := range inst.Operands {
		if repl, ok := mapping[op]; ok {
			inst.Operands[i] = repl
		}
	}
	if u.dfg != nil {
		u.dfg.addInstruction(inst)
	}
}

// ReplaceLabelOperands rewrites Label operands only, used when a block is
// renamed or split and terminators/phis must follow.
func (u *InstUpdater) ReplaceLabelOperands(inst *Instruction, mapping map[string]string) {
	for i, op := range inst.Operands {
		if l, ok := op.(Label); ok {
			if repl, ok := mapping[l.Name]; ok {
				inst.Operands[i] = Label{Name: repl}
			}
		}
	}
}

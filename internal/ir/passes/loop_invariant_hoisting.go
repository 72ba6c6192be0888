package passes

import (
	"venom/internal/ir"
	"venom/internal/ir/analysis"
)

// LoopInvariantHoisting moves pure, loop-invariant instructions out of a
// natural loop's body into its preheader — the loop's unique predecessor
// block outside the body. A loop without such a unique outside predecessor
// (e.g. multiple entries reach the header) is left alone: this pass creates
// no preheader, and CFG normalization runs only at the end of each pass
// list, after this pass.
type LoopInvariantHoisting struct{}

func (LoopInvariantHoisting) Name() string { return "loop-invariant-hoisting" }

func (LoopInvariantHoisting) Run(fn *ir.Function, cache *analysis.AnalysesCache) bool {
	cache.RequestCFG()
	loopInfo := cache.RequestLoop()
	dfg := cache.RequestDFG()
	changed := false

	for _, loop := range loopInfo.Loops() {
		preheader := findPreheader(fn, loop)
		if preheader == nil {
			continue
		}

		invariant := make(map[*ir.Instruction]bool)
		definedInLoop := make(map[ir.Variable]bool)
		for _, label := range loop.Body.Items() {
			b, ok := fn.GetBlock(label)
			if !ok {
				continue
			}
			for _, inst := range b.Instructions {
				if inst.Output != nil {
					definedInLoop[*inst.Output] = true
				}
			}
		}

		// Fixed point over candidate invariance.
		for {
			progressed := false
			for _, label := range loop.Body.Items() {
				b, ok := fn.GetBlock(label)
				if !ok {
					continue
				}
				for _, inst := range b.Instructions {
					if invariant[inst] || !isHoistable(inst) {
						continue
					}
					if operandsInvariant(inst, definedInLoop, invariant, dfg) {
						invariant[inst] = true
						progressed = true
					}
				}
			}
			if !progressed {
				break
			}
		}

		if len(invariant) == 0 {
			continue
		}

		// Hoist in program order within each body block so dependency
		// ordering among invariant instructions is preserved.
		for _, label := range loop.Body.Items() {
			b, ok := fn.GetBlock(label)
			if !ok {
				continue
			}
			for _, inst := range append([]*ir.Instruction(nil), b.Instructions...) {
				if !invariant[inst] {
					continue
				}
				hoistTo(b, preheader, inst)
				changed = true
			}
		}
	}

	return changed
}

// isHoistable matches the three structural conditions on an instruction's
// opcode: not volatile, not a terminator, not CFG-altering. Phis are also
// excluded since they have no single well-defined value outside the loop,
// as are instructions without an output and opcodes with any read effect
// (so loads stay in the loop).
func isHoistable(inst *ir.Instruction) bool {
	if inst.Output == nil || inst.IsVolatile() || inst.IsTerminator() || inst.IsCFGAltering() || inst.Opcode == ir.OpPhi {
		return false
	}
	return inst.Opcode.ReadEffects().Empty()
}

func operandsInvariant(inst *ir.Instruction, definedInLoop map[ir.Variable]bool, invariant map[*ir.Instruction]bool, dfg *ir.DFG) bool {
	for _, op := range inst.Operands {
		v, ok := op.(ir.Variable)
		if !ok {
			continue
		}
		if !definedInLoop[v] {
			continue // defined outside the loop: invariant by definition
		}
		producer := dfg.Producer(v)
		if producer == nil || !invariant[producer] {
			return false
		}
	}
	return true
}

// findPreheader returns loop's unique CFG predecessor of the header that
// lies outside the loop body, or nil if there isn't exactly one.
func findPreheader(fn *ir.Function, loop *analysis.Loop) *ir.BasicBlock {
	header, ok := fn.GetBlock(loop.Header)
	if !ok {
		return nil
	}
	var outside []string
	for _, p := range header.CfgIn.Items() {
		if !loop.Body.Contains(p) {
			outside = append(outside, p)
		}
	}
	if len(outside) != 1 {
		return nil
	}
	b, ok := fn.GetBlock(outside[0])
	if !ok {
		return nil
	}
	return b
}

// hoistTo relocates inst from its current block to the end of preheader,
// just before its terminator. This only changes inst's position, not its
// operands or output, so the DFG (keyed by variable and instruction
// identity, not position) stays valid without re-recording.
func hoistTo(from, preheader *ir.BasicBlock, inst *ir.Instruction) {
	for i, x := range from.Instructions {
		if x == inst {
			from.Instructions = append(from.Instructions[:i], from.Instructions[i+1:]...)
			break
		}
	}
	idx := len(preheader.Instructions)
	if term := preheader.Terminator(); term != nil {
		idx--
	}
	inst.Parent = preheader
	preheader.Instructions = append(preheader.Instructions[:idx], append([]*ir.Instruction{inst}, preheader.Instructions[idx:]...)...)
}

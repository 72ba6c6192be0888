package analysis

import (
	"fmt"

	"venom/internal/errors"
	"venom/internal/ir"
)

const maxLivenessIterations = 10000

// Liveness is a backward dataflow fixed point over variables, phi-aware:
// a variable used by a phi in a successor block is live-out of the
// predecessor edge the phi names it from, not live-out of every
// predecessor uniformly.
type Liveness struct {
	fn      *ir.Function
	liveIn  map[string]*ir.OrderedSet[ir.Variable]
	liveOut map[string]*ir.OrderedSet[ir.Variable]
}

// BuildLiveness computes live-in/live-out sets for every block of fn.
func BuildLiveness(fn *ir.Function, cfg *CFG) *Liveness {
	l := &Liveness{
		fn:      fn,
		liveIn:  make(map[string]*ir.OrderedSet[ir.Variable]),
		liveOut: make(map[string]*ir.OrderedSet[ir.Variable]),
	}
	for _, b := range fn.Blocks {
		l.liveIn[b.Label] = ir.NewOrderedSet[ir.Variable]()
		l.liveOut[b.Label] = ir.NewOrderedSet[ir.Variable]()
	}

	order := cfg.ReversePostorder()
	changed := true
	iterations := 0
	for changed {
		changed = false
		iterations++
		if iterations > maxLivenessIterations {
			panic(&errors.CompilerPanic{
				Code:     errors.ErrorAnalysisDivergence,
				Function: fn.Name,
				Message:  "liveness analysis failed to converge",
			})
		}
		// process in reverse of reverse-postorder (i.e. postorder) for faster
		// backward-dataflow convergence
		for i := len(order) - 1; i >= 0; i-- {
			b := order[i]
			out := ir.NewOrderedSet[ir.Variable]()
			for _, succLabel := range b.CfgOut.Items() {
				succ, ok := fn.GetBlock(succLabel)
				if !ok {
					continue
				}
				for _, v := range l.liveIn[succLabel].Items() {
					out.Add(v)
				}
				// phi-edge semantics: a phi operand paired with this block's
				// label contributes only along this edge, even if the
				// variable isn't otherwise in succ's live-in. Every phi in
				// succ must name b among its operands — b is a real CFG
				// predecessor of succ, so a phi silently missing that edge
				// means the IR itself is malformed (an unreachable
				// predecessor the phi never accounted for).
				for _, phi := range succ.Phis() {
					found := false
					for idx := 0; idx+1 < len(phi.Operands); idx += 2 {
						lbl, ok1 := phi.Operands[idx].(ir.Label)
						v, ok2 := phi.Operands[idx+1].(ir.Variable)
						if ok1 && ok2 && lbl.Name == b.Label {
							out.Add(v)
							found = true
						}
					}
					if !found {
						panic(&errors.CompilerPanic{
							Code:     errors.ErrorUnreachablePhiEdge,
							Function: fn.Name,
							Block:    succLabel,
							Message:  fmt.Sprintf("phi in block %s has no operand for predecessor %s", succLabel, b.Label),
						})
					}
				}
			}
			if !out.Equal(l.liveOut[b.Label]) {
				l.liveOut[b.Label] = out
				changed = true
			}

			in := computeBlockLiveIn(b, out)
			if !in.Equal(l.liveIn[b.Label]) {
				l.liveIn[b.Label] = in
				changed = true
			}
		}
	}
	return l
}

// computeBlockLiveIn walks b backward from out, killing on def and
// generating on use, skipping phi operands (those are handled per-edge by
// the caller) but still killing on a phi's own output.
func computeBlockLiveIn(b *ir.BasicBlock, out *ir.OrderedSet[ir.Variable]) *ir.OrderedSet[ir.Variable] {
	live := out.Copy()
	for i := len(b.Instructions) - 1; i >= 0; i-- {
		inst := b.Instructions[i]
		if inst.Output != nil {
			live.Remove(*inst.Output)
		}
		if inst.Opcode == ir.OpPhi {
			continue // phi uses are consumed on the predecessor edge, not here
		}
		for _, v := range inst.VarOperands() {
			live.Add(v)
		}
	}
	return live
}

// LiveIn / LiveOut return the live-in/live-out variable sets of the named block.
func (l *Liveness) LiveIn(label string) *ir.OrderedSet[ir.Variable] {
	if s, ok := l.liveIn[label]; ok {
		return s
	}
	return ir.NewOrderedSet[ir.Variable]()
}

func (l *Liveness) LiveOut(label string) *ir.OrderedSet[ir.Variable] {
	if s, ok := l.liveOut[label]; ok {
		return s
	}
	return ir.NewOrderedSet[ir.Variable]()
}

// LiveAfter returns the live set immediately after inst within its block
// (used by remove-unused-variables, which checks "is not in the next
// instruction's live set").
func (l *Liveness) LiveAfter(inst *ir.Instruction) *ir.OrderedSet[ir.Variable] {
	b := inst.Parent
	if b == nil {
		return ir.NewOrderedSet[ir.Variable]()
	}
	idx := -1
	for i, x := range b.Instructions {
		if x == inst {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ir.NewOrderedSet[ir.Variable]()
	}
	live := l.LiveOut(b.Label).Copy()
	for i := len(b.Instructions) - 1; i > idx; i-- {
		cur := b.Instructions[i]
		if cur.Output != nil {
			live.Remove(*cur.Output)
		}
		if cur.Opcode == ir.OpPhi {
			continue
		}
		for _, v := range cur.VarOperands() {
			live.Add(v)
		}
	}
	return live
}

package passes

import (
	"math/big"

	"venom/internal/ir"
	"venom/internal/ir/analysis"
)

type latticeKind int

const (
	latticeTop latticeKind = iota
	latticeConst
	latticeBottom
)

type lattice struct {
	kind latticeKind
	val  *big.Int
}

var topLattice = lattice{kind: latticeTop}
var bottomLattice = lattice{kind: latticeBottom}

func constLattice(v *big.Int) lattice { return lattice{kind: latticeConst, val: ir.MaskU256(v)} }

func (l lattice) equal(o lattice) bool {
	if l.kind != o.kind {
		return false
	}
	if l.kind != latticeConst {
		return true
	}
	return l.val.Cmp(o.val) == 0
}

// meet is the lattice join used to combine values flowing along different
// phi edges: Top is the identity, Bottom absorbs, two different constants
// collapse to Bottom.
func meet(a, b lattice) lattice {
	if a.kind == latticeTop {
		return b
	}
	if b.kind == latticeTop {
		return a
	}
	if a.kind == latticeBottom || b.kind == latticeBottom {
		return bottomLattice
	}
	if a.val.Cmp(b.val) == 0 {
		return a
	}
	return bottomLattice
}

// foldableOpcodes are pure arithmetic/comparison/bitwise opcodes SCCP can
// evaluate at compile time given fully-constant operands.
var foldableOpcodes = map[ir.Opcode]func(args []*big.Int) *big.Int{
	ir.OpAdd:  func(a []*big.Int) *big.Int { return new(big.Int).Add(a[0], a[1]) },
	ir.OpSub:  func(a []*big.Int) *big.Int { return new(big.Int).Sub(a[0], a[1]) },
	ir.OpMul:  func(a []*big.Int) *big.Int { return new(big.Int).Mul(a[0], a[1]) },
	ir.OpDiv: func(a []*big.Int) *big.Int {
		if a[1].Sign() == 0 {
			return big.NewInt(0)
		}
		return new(big.Int).Div(a[0], a[1])
	},
	ir.OpMod: func(a []*big.Int) *big.Int {
		if a[1].Sign() == 0 {
			return big.NewInt(0)
		}
		return new(big.Int).Mod(a[0], a[1])
	},
	ir.OpSDiv: func(a []*big.Int) *big.Int {
		x, y := ir.SignedU256(a[0]), ir.SignedU256(a[1])
		if y.Sign() == 0 {
			return big.NewInt(0)
		}
		return new(big.Int).Quo(x, y)
	},
	ir.OpSMod: func(a []*big.Int) *big.Int {
		x, y := ir.SignedU256(a[0]), ir.SignedU256(a[1])
		if y.Sign() == 0 {
			return big.NewInt(0)
		}
		return new(big.Int).Rem(x, y)
	},
	ir.OpExp: func(a []*big.Int) *big.Int {
		return new(big.Int).Exp(a[0], a[1], ir.MaskU256(new(big.Int).Lsh(big.NewInt(1), 256)))
	},
	ir.OpLt: func(a []*big.Int) *big.Int { return boolInt(a[0].Cmp(a[1]) < 0) },
	ir.OpGt: func(a []*big.Int) *big.Int { return boolInt(a[0].Cmp(a[1]) > 0) },
	ir.OpSlt: func(a []*big.Int) *big.Int {
		return boolInt(ir.SignedU256(a[0]).Cmp(ir.SignedU256(a[1])) < 0)
	},
	ir.OpSgt: func(a []*big.Int) *big.Int {
		return boolInt(ir.SignedU256(a[0]).Cmp(ir.SignedU256(a[1])) > 0)
	},
	ir.OpEq:     func(a []*big.Int) *big.Int { return boolInt(a[0].Cmp(a[1]) == 0) },
	ir.OpIsZero: func(a []*big.Int) *big.Int { return boolInt(a[0].Sign() == 0) },
	ir.OpAnd:    func(a []*big.Int) *big.Int { return new(big.Int).And(a[0], a[1]) },
	ir.OpOr:     func(a []*big.Int) *big.Int { return new(big.Int).Or(a[0], a[1]) },
	ir.OpXor:    func(a []*big.Int) *big.Int { return new(big.Int).Xor(a[0], a[1]) },
	ir.OpNot:    func(a []*big.Int) *big.Int { return new(big.Int).Not(a[0]) },
	ir.OpShl:    func(a []*big.Int) *big.Int { return shiftFold(a[1], a[0], true) },
	ir.OpShr:    func(a []*big.Int) *big.Int { return shiftFold(a[1], a[0], false) },
	ir.OpSar: func(a []*big.Int) *big.Int {
		shift := a[0]
		if shift.Cmp(big.NewInt(256)) >= 0 {
			if ir.SignedU256(a[1]).Sign() < 0 {
				return new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
			}
			return big.NewInt(0)
		}
		return ir.MaskU256(new(big.Int).Rsh(ir.SignedU256(a[1]), uint(shift.Uint64())))
	},
}

func boolInt(b bool) *big.Int {
	if b {
		return big.NewInt(1)
	}
	return big.NewInt(0)
}

// shiftFold folds shl/shr, where shl operands are (shift, value) and shr
// operands are (shift, value) per EVM argument order.
func shiftFold(value, shift *big.Int, left bool) *big.Int {
	if shift.Cmp(big.NewInt(256)) >= 0 {
		return big.NewInt(0)
	}
	n := uint(shift.Uint64())
	if left {
		return new(big.Int).Lsh(value, n)
	}
	return new(big.Int).Rsh(value, n)
}

// SCCP is sparse conditional constant propagation: a joint lattice over
// block reachability and variable constancy, solved with a CFG/SSA
// worklist. On convergence, constant variables are replaced by literal
// operands and jnz on a constant condition degenerates to jmp.
//
// RemoveAllocas controls whether address-taken allocas with now-unused
// outputs are eligible for removal; passing false preserves them during
// early runs per spec's remove_allocas=false option.
type SCCP struct {
	RemoveAllocas bool
}

type cfgEdge struct{ from, to string }

func (SCCP) Name() string { return "sccp" }

func (s SCCP) Run(fn *ir.Function, cache *analysis.AnalysesCache) bool {
	cache.RequestCFG()
	dfg := cache.RequestDFG()

	values := make(map[ir.Variable]lattice)
	blockExecutable := make(map[string]bool)
	edgeExecutable := make(map[cfgEdge]bool)

	var cfgWork []cfgEdge
	var ssaWork []ir.Variable

	getLattice := func(op ir.Operand) lattice {
		switch o := op.(type) {
		case ir.Literal:
			return constLattice(o.Value)
		case ir.Variable:
			if l, ok := values[o]; ok {
				return l
			}
			return topLattice
		default:
			return bottomLattice
		}
	}

	setLattice := func(v ir.Variable, l lattice) {
		old, ok := values[v]
		if ok && old.equal(l) {
			return
		}
		values[v] = l
		ssaWork = append(ssaWork, v)
	}

	evalPhi := func(inst *ir.Instruction) lattice {
		result := topLattice
		for i := 0; i+1 < len(inst.Operands); i += 2 {
			lbl, ok := inst.Operands[i].(ir.Label)
			if !ok {
				continue
			}
			if !edgeExecutable[cfgEdge{lbl.Name, inst.Parent.Label}] {
				continue
			}
			result = meet(result, getLattice(inst.Operands[i+1]))
		}
		return result
	}

	evalInst := func(inst *ir.Instruction) lattice {
		switch inst.Opcode {
		case ir.OpPhi:
			return evalPhi(inst)
		case ir.OpAssign:
			if len(inst.Operands) != 1 {
				return bottomLattice
			}
			return getLattice(inst.Operands[0])
		}
		fold, ok := foldableOpcodes[inst.Opcode]
		if !ok {
			return bottomLattice
		}
		args := make([]*big.Int, len(inst.Operands))
		for i, op := range inst.Operands {
			l := getLattice(op)
			switch l.kind {
			case latticeConst:
				args[i] = l.val
			case latticeTop:
				return topLattice
			default:
				return bottomLattice
			}
		}
		return constLattice(fold(args))
	}

	visitBlockInstructions := func(b *ir.BasicBlock) {
		for _, inst := range b.Instructions {
			if inst.Output != nil {
				setLattice(*inst.Output, evalInst(inst))
				continue
			}
			if inst.Opcode == ir.OpJnz {
				s.propagateBranch(b, inst, getLattice, &cfgWork, edgeExecutable)
			} else if inst.IsCFGAltering() {
				for _, lbl := range inst.LabelOperands() {
					cfgWork = append(cfgWork, cfgEdge{b.Label, lbl.Name})
				}
			}
		}
	}

	markBlockExecutable := func(label string) {
		if blockExecutable[label] {
			return
		}
		blockExecutable[label] = true
		b, ok := fn.GetBlock(label)
		if !ok {
			return
		}
		visitBlockInstructions(b)
	}

	// Seed with the entry block's single implicit incoming edge.
	cfgWork = append(cfgWork, cfgEdge{"", fn.Entry})

	for len(cfgWork) > 0 || len(ssaWork) > 0 {
		for len(cfgWork) > 0 {
			e := cfgWork[0]
			cfgWork = cfgWork[1:]
			if edgeExecutable[e] {
				continue
			}
			edgeExecutable[e] = true
			wasExecutable := blockExecutable[e.to]
			markBlockExecutable(e.to)
			if wasExecutable {
				// Block already processed once; only its phis can change
				// from a newly-live incoming edge.
				if b, ok := fn.GetBlock(e.to); ok {
					for _, phi := range b.Phis() {
						if phi.Output != nil {
							setLattice(*phi.Output, evalPhi(phi))
						}
					}
				}
			}
		}
		for len(ssaWork) > 0 {
			v := ssaWork[0]
			ssaWork = ssaWork[1:]
			for _, inst := range dfg.Uses(v) {
				if inst.Parent == nil || !blockExecutable[inst.Parent.Label] {
					continue
				}
				if inst.Output != nil {
					setLattice(*inst.Output, evalInst(inst))
				} else if inst.Opcode == ir.OpJnz {
					s.propagateBranch(inst.Parent, inst, getLattice, &cfgWork, edgeExecutable)
				}
			}
		}
	}

	upd := updaterFor(cache)
	changed := false

	for _, b := range fn.Blocks {
		if !blockExecutable[b.Label] {
			continue
		}
		for _, inst := range b.Instructions {
			if inst.Opcode == ir.OpJnz {
				if l := getLattice(inst.Operands[0]); l.kind == latticeConst {
					idx := 2
					if l.val.Sign() != 0 {
						idx = 1
					}
					lbl := inst.Operands[idx].(ir.Label)
					upd.Update(inst, ir.OpJmp, []ir.Operand{lbl}, nil)
					changed = true
				}
				continue
			}
			if inst.Output == nil {
				continue
			}
			l, ok := values[*inst.Output]
			if !ok || l.kind != latticeConst {
				continue
			}
			if inst.Opcode == ir.OpAssign && len(inst.Operands) == 1 {
				if lit, ok := inst.Operands[0].(ir.Literal); ok && lit.Value.Cmp(l.val) == 0 {
					continue // already in normal form
				}
			}
			if !s.RemoveAllocas && isAllocaOpcode(inst.Opcode) {
				continue
			}
			upd.Update(inst, ir.OpAssign, []ir.Operand{ir.Literal{Value: l.val}}, inst.Output)
			changed = true
		}
	}

	return changed
}

// propagateBranch queues the feasible successor edge(s) of a jnz given the
// current lattice value of its condition: both edges if unknown/bottom,
// only the matching one if the condition is a known constant.
func (SCCP) propagateBranch(b *ir.BasicBlock, inst *ir.Instruction, getLattice func(ir.Operand) lattice, cfgWork *[]cfgEdge, edgeExecutable map[cfgEdge]bool) {
	if len(inst.Operands) != 3 {
		return
	}
	cond := getLattice(inst.Operands[0])
	thenLbl := inst.Operands[1].(ir.Label).Name
	elseLbl := inst.Operands[2].(ir.Label).Name

	switch cond.kind {
	case latticeConst:
		if cond.val.Sign() != 0 {
			*cfgWork = append(*cfgWork, cfgEdge{b.Label, thenLbl})
		} else {
			*cfgWork = append(*cfgWork, cfgEdge{b.Label, elseLbl})
		}
	case latticeBottom:
		*cfgWork = append(*cfgWork, cfgEdge{b.Label, thenLbl}, cfgEdge{b.Label, elseLbl})
	}
}

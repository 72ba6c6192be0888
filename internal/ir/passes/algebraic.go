package passes

import (
	"math/big"

	"venom/internal/ir"
	"venom/internal/ir/analysis"
)

// AlgebraicOptimization is peephole rewriting on single instructions: neutral
// elements, absorbing elements, idempotence, strength reduction of
// multiplication by a power of two into a shift, and bounded-shift cleanup.
// Comparisons are not rewritten or canonicalized. It is purely syntactic
// except for `x - x -> 0` and the `x | x`/`x & x` idempotence rules, which go
// through variable-equivalence so the operands are recognized as equal even
// across a chain of assigns.
type AlgebraicOptimization struct{}

func (AlgebraicOptimization) Name() string { return "algebraic-optimization" }

func (AlgebraicOptimization) Run(fn *ir.Function, cache *analysis.AnalysesCache) bool {
	ve := cache.RequestEquivalence()
	dfg := cache.RequestDFG()
	upd := updaterFor(cache)
	changed := false

	for _, b := range fn.Blocks {
		for _, inst := range append([]*ir.Instruction(nil), b.Instructions...) {
			if rewriteInstruction(inst, ve, dfg, upd) {
				changed = true
			}
		}
	}
	return changed
}

func lit(op ir.Operand) (*big.Int, bool) {
	l, ok := op.(ir.Literal)
	if !ok || l.Value == nil {
		return nil, false
	}
	return l.Value, true
}

func isLitValue(op ir.Operand, want int64) bool {
	v, ok := lit(op)
	return ok && ir.MaskU256(v).Cmp(ir.MaskU256(big.NewInt(want))) == 0
}

// isAllOnes reports whether op is the literal 2^256 - 1, i.e. a bitwise
// "and" with it is the identity.
func isAllOnes(op ir.Operand) bool {
	v, ok := lit(op)
	if !ok {
		return false
	}
	allOnes := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	return ir.MaskU256(v).Cmp(allOnes) == 0
}

// powerOfTwoExp returns n such that op == 2^n, for strength-reducing
// multiplication into a shift.
func powerOfTwoExp(op ir.Operand) (uint, bool) {
	v, ok := lit(op)
	if !ok || v.Sign() <= 0 {
		return 0, false
	}
	if new(big.Int).And(v, new(big.Int).Sub(v, big.NewInt(1))).Sign() != 0 {
		return 0, false
	}
	return uint(v.BitLen() - 1), true
}

// producerOpcode returns the instruction that produced op's value, if op is
// a variable with a known single producer of the given opcode.
func producerOpcode(dfg *ir.DFG, op ir.Operand, want ir.Opcode) (*ir.Instruction, bool) {
	v, ok := op.(ir.Variable)
	if !ok {
		return nil, false
	}
	p := dfg.Producer(v)
	if p == nil || p.Opcode != want {
		return nil, false
	}
	return p, true
}

func rewriteInstruction(inst *ir.Instruction, ve *analysis.VarEquivalence, dfg *ir.DFG, upd *ir.InstUpdater) bool {
	if inst.Output == nil || len(inst.Operands) == 0 {
		return false
	}
	switch inst.Opcode {
	case ir.OpAdd:
		a, b := inst.Operands[0], inst.Operands[1]
		if isLitValue(a, 0) {
			upd.Store(inst, b)
			return true
		}
		if isLitValue(b, 0) {
			upd.Store(inst, a)
			return true
		}
	case ir.OpSub:
		a, b := inst.Operands[0], inst.Operands[1]
		if isLitValue(b, 0) {
			upd.Store(inst, a)
			return true
		}
		if av, ok := a.(ir.Variable); ok {
			if bv, ok := b.(ir.Variable); ok && ve.Equivalent(av, bv) {
				upd.Store(inst, ir.NewLiteral(0))
				return true
			}
		}
	case ir.OpMul:
		a, b := inst.Operands[0], inst.Operands[1]
		if isLitValue(a, 0) || isLitValue(b, 0) {
			upd.Store(inst, ir.NewLiteral(0))
			return true
		}
		if isLitValue(a, 1) {
			upd.Store(inst, b)
			return true
		}
		if isLitValue(b, 1) {
			upd.Store(inst, a)
			return true
		}
		if n, ok := powerOfTwoExp(b); ok {
			upd.Update(inst, ir.OpShl, []ir.Operand{ir.NewLiteral(int64(n)), a}, inst.Output)
			return true
		}
		if n, ok := powerOfTwoExp(a); ok {
			upd.Update(inst, ir.OpShl, []ir.Operand{ir.NewLiteral(int64(n)), b}, inst.Output)
			return true
		}
	case ir.OpOr:
		a, b := inst.Operands[0], inst.Operands[1]
		if isLitValue(a, 0) {
			upd.Store(inst, b)
			return true
		}
		if isLitValue(b, 0) {
			upd.Store(inst, a)
			return true
		}
		if av, ok := a.(ir.Variable); ok {
			if bv, ok := b.(ir.Variable); ok && ve.Equivalent(av, bv) {
				upd.Store(inst, a)
				return true
			}
		}
	case ir.OpAnd:
		a, b := inst.Operands[0], inst.Operands[1]
		if isLitValue(a, 0) || isLitValue(b, 0) {
			upd.Store(inst, ir.NewLiteral(0))
			return true
		}
		if isAllOnes(a) {
			upd.Store(inst, b)
			return true
		}
		if isAllOnes(b) {
			upd.Store(inst, a)
			return true
		}
		if av, ok := a.(ir.Variable); ok {
			if bv, ok := b.(ir.Variable); ok && ve.Equivalent(av, bv) {
				upd.Store(inst, a)
				return true
			}
		}
	case ir.OpShl, ir.OpShr:
		shiftAmt := inst.Operands[0]
		if v, ok := lit(shiftAmt); ok && v.Cmp(big.NewInt(256)) >= 0 {
			upd.Store(inst, ir.NewLiteral(0))
			return true
		}
	case ir.OpIsZero:
		// iszero(iszero(iszero(x))) -> iszero(x)
		if inner, ok := producerOpcode(dfg, inst.Operands[0], ir.OpIsZero); ok {
			if innerInner, ok := producerOpcode(dfg, inner.Operands[0], ir.OpIsZero); ok {
				upd.Update(inst, ir.OpIsZero, []ir.Operand{innerInner.Operands[0]}, inst.Output)
				return true
			}
		}
	}
	return false
}

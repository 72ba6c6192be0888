package analysis

import "venom/internal/ir"

// VarEquivalence is a union-find over variables where every `assign`
// instruction merges its input and output into the same equivalence
// class. Algebraic optimization and load elimination use this instead of
// raw `==` so that `x - x` is recognized as zero even across a chain of
// assigns, and so a load address compares equal to a prior store address
// that reaches it only via `assign`s.
type VarEquivalence struct {
	parent map[ir.Variable]ir.Variable
}

// BuildVarEquivalence scans every block of fn for assign instructions and
// unions their input/output variables.
func BuildVarEquivalence(fn *ir.Function) *VarEquivalence {
	ve := &VarEquivalence{parent: make(map[ir.Variable]ir.Variable)}
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			if inst.Opcode != ir.OpAssign || inst.Output == nil || len(inst.Operands) != 1 {
				continue
			}
			if src, ok := inst.Operands[0].(ir.Variable); ok {
				ve.union(src, *inst.Output)
			}
		}
	}
	return ve
}

func (ve *VarEquivalence) find(v ir.Variable) ir.Variable {
	p, ok := ve.parent[v]
	if !ok {
		ve.parent[v] = v
		return v
	}
	if p == v {
		return v
	}
	root := ve.find(p)
	ve.parent[v] = root
	return root
}

func (ve *VarEquivalence) union(a, b ir.Variable) {
	ra, rb := ve.find(a), ve.find(b)
	if ra != rb {
		ve.parent[ra] = rb
	}
}

// Equivalent reports whether a and b are in the same class (or are
// literally the same variable).
func (ve *VarEquivalence) Equivalent(a, b ir.Variable) bool {
	return ve.find(a) == ve.find(b)
}

// OperandsEquivalent is Equivalent lifted to Operand: two literals compare
// by value, two labels by name, two variables by equivalence class, and a
// variable never equals a literal/label.
func (ve *VarEquivalence) OperandsEquivalent(a, b ir.Operand) bool {
	switch av := a.(type) {
	case ir.Variable:
		bv, ok := b.(ir.Variable)
		return ok && ve.Equivalent(av, bv)
	case ir.Literal:
		bv, ok := b.(ir.Literal)
		if !ok || av.Value == nil || bv.Value == nil {
			return false
		}
		return av.Value.Cmp(bv.Value) == 0
	case ir.Label:
		bv, ok := b.(ir.Label)
		return ok && av.Name == bv.Name
	}
	return false
}

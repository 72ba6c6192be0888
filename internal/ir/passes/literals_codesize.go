package passes

import (
	"math/big"

	"venom/internal/ir"
	"venom/internal/ir/analysis"
)

// ReduceLiteralsCodesize rewrites `x = assign BIGCONST` into
// `tmp = assign complement; x = not tmp` whenever BIGCONST's bitwise
// complement mod 2^256 encodes in fewer significant bytes — a literal close
// to the all-ones word costs more to push than its complement, and `not`
// is a single cheap opcode, so the rewrite trades one large PUSH for a
// smaller one plus a NOT.
type ReduceLiteralsCodesize struct{}

func (ReduceLiteralsCodesize) Name() string { return "reduce-literals-codesize" }

var maxU256 = func() *big.Int {
	v := new(big.Int).Lsh(big.NewInt(1), 256)
	return v.Sub(v, big.NewInt(1))
}()

func (ReduceLiteralsCodesize) Run(fn *ir.Function, cache *analysis.AnalysesCache) bool {
	upd := updaterFor(cache)
	changed := false

	for _, b := range fn.Blocks {
		for _, inst := range append([]*ir.Instruction(nil), b.Instructions...) {
			if inst.Opcode != ir.OpAssign || len(inst.Operands) != 1 {
				continue
			}
			lit, ok := inst.Operands[0].(ir.Literal)
			if !ok {
				continue
			}
			complement := ir.MaskU256(new(big.Int).Sub(maxU256, lit.Value))
			if significantBytes(complement) >= significantBytes(lit.Value) {
				continue
			}
			tmp := upd.AddBefore(inst, ir.OpAssign, []ir.Operand{ir.Literal{Value: complement}})
			upd.Update(inst, ir.OpNot, []ir.Operand{tmp}, inst.Output)
			changed = true
		}
	}

	return changed
}

func significantBytes(v *big.Int) int {
	bits := v.BitLen()
	if bits == 0 {
		return 1
	}
	return (bits + 7) / 8
}

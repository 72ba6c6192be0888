package ir

import (
	"fmt"
	"math/big"
)

// Operand is the sum type over the three kinds of value an instruction can
// reference: an SSA variable, a literal 256-bit integer, or a symbolic label.
type Operand interface {
	isOperand()
	String() string
}

// Variable is an SSA value. Uniqueness is by (Name, Version): two variables
// with the same surface name but different versions are distinct values.
type Variable struct {
	Name    string
	Version int
}

func (Variable) isOperand() {}

func (v Variable) String() string {
	if v.Version == 0 {
		return "%" + v.Name
	}
	return fmt.Sprintf("%%%s.%d", v.Name, v.Version)
}

// Literal is a 256-bit integer constant. Some opcodes (signed comparisons,
// sdiv, smod, sar) interpret it as two's-complement.
type Literal struct {
	Value *big.Int
}

func NewLiteral(v int64) Literal { return Literal{Value: big.NewInt(v)} }

func (Literal) isOperand() {}

func (l Literal) String() string {
	if l.Value == nil {
		return "0"
	}
	return l.Value.String()
}

// Label is a symbolic basic-block or function name.
type Label struct {
	Name string
}

func (Label) isOperand() {}

func (l Label) String() string { return "@" + l.Name }

// asUint256 masks v into the [0, 2^256) representation used for arithmetic.
var uint256Mod = new(big.Int).Lsh(big.NewInt(1), 256)

func maskU256(v *big.Int) *big.Int {
	out := new(big.Int).Mod(v, uint256Mod)
	if out.Sign() < 0 {
		out.Add(out, uint256Mod)
	}
	return out
}

// signed reinterprets a masked u256 value as a signed two's-complement integer.
func signed(v *big.Int) *big.Int {
	m := maskU256(v)
	half := new(big.Int).Lsh(big.NewInt(1), 255)
	if m.Cmp(half) >= 0 {
		return new(big.Int).Sub(m, uint256Mod)
	}
	return new(big.Int).Set(m)
}

// MaskU256 and SignedU256 are the exported forms of maskU256/signed, used by
// passes (SCCP, algebraic optimization) that fold constants outside this
// package.
func MaskU256(v *big.Int) *big.Int  { return maskU256(v) }
func SignedU256(v *big.Int) *big.Int { return signed(v) }

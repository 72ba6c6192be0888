package venomasm

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"venom/internal/ir"
)

// Build lowers a parsed Program into an *ir.Context. Every function's
// blocks are created up front so forward label references (jmp/jnz/phi
// targeting a block defined later in the file) resolve, then each
// instruction is appended in source order with its output variable parsed
// from the %name or %name.version sigil.
func Build(prog *Program) (*ir.Context, error) {
	ctx := ir.NewContext()
	for _, pf := range prog.Functions {
		fn, err := buildFunction(pf)
		if err != nil {
			return nil, fmt.Errorf("function %s: %w", pf.Name, err)
		}
		ctx.AddFunction(fn)
		if ctx.EntryFunction == "" {
			ctx.EntryFunction = fn.Name
		}
	}
	return ctx, nil
}

func buildFunction(pf *Function) (*ir.Function, error) {
	if len(pf.Blocks) == 0 {
		return nil, fmt.Errorf("no blocks")
	}
	fn := ir.NewFunction(pf.Name, pf.Blocks[0].Label)
	fn.RemoveBlock(pf.Blocks[0].Label) // NewFunction's auto-entry stub, replaced below

	for _, pb := range pf.Blocks {
		fn.AddBlock(ir.NewBasicBlock(pb.Label))
	}
	fn.Entry = pf.Entry

	for _, pb := range pf.Blocks {
		b, _ := fn.GetBlock(pb.Label)
		for _, pi := range pb.Instructions {
			inst, err := buildInstruction(pi)
			if err != nil {
				return nil, fmt.Errorf("block %s: %w", pb.Label, err)
			}
			b.AppendInstruction(inst)
		}
	}
	return fn, nil
}

func buildInstruction(pi *Instruction) (*ir.Instruction, error) {
	inst := &ir.Instruction{Opcode: ir.Opcode(pi.Opcode)}
	if pi.Output != "" {
		v, err := parseVariable(pi.Output)
		if err != nil {
			return nil, err
		}
		inst.Output = &v
	}
	for _, po := range pi.Operands {
		op, err := buildOperand(po)
		if err != nil {
			return nil, err
		}
		inst.Operands = append(inst.Operands, op)
	}
	return inst, nil
}

func buildOperand(po *Operand) (ir.Operand, error) {
	switch {
	case po.Variable != "":
		return parseVariable(po.Variable)
	case po.Label != "":
		return ir.Label{Name: strings.TrimPrefix(po.Label, "@")}, nil
	case po.Integer != "":
		n, ok := new(big.Int).SetString(po.Integer, 0)
		if !ok {
			return nil, fmt.Errorf("bad integer literal %q", po.Integer)
		}
		return ir.Literal{Value: n}, nil
	default:
		return nil, fmt.Errorf("empty operand")
	}
}

// parseVariable splits a %name or %name.version sigil into an ir.Variable,
// defaulting to version 0 when no suffix is present.
func parseVariable(raw string) (ir.Variable, error) {
	name := strings.TrimPrefix(raw, "%")
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		if ver, err := strconv.Atoi(name[idx+1:]); err == nil {
			return ir.Variable{Name: name[:idx], Version: ver}, nil
		}
	}
	return ir.Variable{Name: name, Version: 0}, nil
}

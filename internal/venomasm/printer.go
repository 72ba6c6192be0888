package venomasm

import (
	"fmt"
	"strings"

	"venom/internal/ir"
)

// Print renders ctx back into the textual format Parse/Build accept, one
// function per `function name(entry) { ... }` block. Round-tripping
// Print(Build(Parse(text))) reproduces the same instruction stream,
// modulo the comments Parse discards.
func Print(ctx *ir.Context) string {
	var sb strings.Builder
	for i, fn := range ctx.Functions {
		if i > 0 {
			sb.WriteString("\n")
		}
		printFunction(&sb, fn)
	}
	return sb.String()
}

func printFunction(sb *strings.Builder, fn *ir.Function) {
	fmt.Fprintf(sb, "function %s(%s) {\n", fn.Name, fn.Entry)
	for _, b := range fn.Blocks {
		fmt.Fprintf(sb, "block %s:\n", b.Label)
		for _, inst := range b.Instructions {
			sb.WriteString("  ")
			sb.WriteString(printInstruction(inst))
			sb.WriteString("\n")
		}
	}
	sb.WriteString("}\n")
}

// printInstruction formats an instruction comma-separated, matching the
// grammar's operand-list syntax — ir.Instruction.String's own space
// separation is for debug dumps, not for this round-trippable format.
func printInstruction(inst *ir.Instruction) string {
	var s string
	if inst.Output != nil {
		s = inst.Output.String() + " = "
	}
	s += string(inst.Opcode)
	operands := make([]string, len(inst.Operands))
	for i, op := range inst.Operands {
		operands[i] = op.String()
	}
	if len(operands) > 0 {
		s += " " + strings.Join(operands, ", ")
	}
	return s
}

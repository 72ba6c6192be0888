package ir

import (
	"fmt"
	"strings"
)

// Print renders a Context as a debug listing: one `function name { ... }`
// block per function, `label:` lines for blocks, four-space-indented
// instructions with any ast_source appended as a `; ` comment. This is not
// the format internal/venomasm parses (that one carries the entry label and
// `block` keywords); venomasm.Print produces that format.
func Print(ctx *Context) string {
	var sb strings.Builder
	for i, fn := range ctx.Functions {
		if i > 0 {
			sb.WriteString("\n")
		}
		PrintFunction(&sb, fn)
	}
	return sb.String()
}

// PrintFunction renders a single function.
func PrintFunction(sb *strings.Builder, fn *Function) {
	fmt.Fprintf(sb, "function %s {\n", fn.Name)
	for _, b := range fn.Blocks {
		fmt.Fprintf(sb, "%s:\n", b.Label)
		for _, inst := range b.Instructions {
			sb.WriteString("    ")
			sb.WriteString(instructionText(inst))
			sb.WriteString("\n")
		}
	}
	sb.WriteString("}\n")
}

func instructionText(inst *Instruction) string {
	var out string
	if inst.Output != nil {
		out = inst.Output.String() + " = "
	}
	parts := make([]string, 0, len(inst.Operands))
	for _, op := range inst.Operands {
		parts = append(parts, op.String())
	}
	out += string(inst.Opcode)
	if len(parts) > 0 {
		out += " " + strings.Join(parts, ", ")
	}
	if inst.AstSource != "" {
		out += fmt.Sprintf(" ; %s", inst.AstSource)
	}
	return out
}

// PrintBlock renders one block in isolation, used by diagnostics that
// quote the offending block without the whole function.
func PrintBlock(b *BasicBlock) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s:\n", b.Label)
	for _, inst := range b.Instructions {
		sb.WriteString("    ")
		sb.WriteString(instructionText(inst))
		sb.WriteString("\n")
	}
	return sb.String()
}

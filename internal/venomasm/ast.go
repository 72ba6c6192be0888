package venomasm

// Program is the root of a parsed assembly file: a sequence of function
// definitions, each lowered independently into an *ir.Function and
// collected into one *ir.Context by Build.
type Program struct {
	Functions []*Function `@@*`
}

type Function struct {
	Name    string   `"function" @Ident`
	Entry   string   `"(" @Ident ")" "{"`
	Blocks  []*Block `@@*`
	Closing string   `"}"`
}

type Block struct {
	Label        string         `"block" @Ident ":"`
	Instructions []*Instruction `@@*`
}

// Instruction covers both forms: `%out = opcode op, op, ...` and the
// bare `opcode op, op, ...` used by terminators and other void opcodes.
type Instruction struct {
	Output   string     `[ @Variable "=" ]`
	Opcode   string     `@Ident`
	Operands []*Operand `[ @@ { "," @@ } ]`
}

// Operand is one of a variable reference, a block-label reference, or an
// integer literal — the three operand kinds the IR's Operand interface
// supports.
type Operand struct {
	Variable string `  @Variable`
	Label    string `| @Label`
	Integer  string `| @Integer`
}

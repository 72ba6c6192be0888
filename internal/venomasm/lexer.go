// Package venomasm implements a textual assembly format for the Venom IR:
// a participle grammar/parser/printer pair that round-trips an ir.Context
// through source text, for golden fixtures and the venom-opt CLI.
package venomasm

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// VenomLexer tokenizes the assembly text. Variables and labels are
// distinguished from plain identifiers by their sigil (%, @) so the
// grammar never needs lookahead to tell a value from a block reference.
var VenomLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"Comment", `;[^\n]*`, nil},
		{"Variable", `%[a-zA-Z_][a-zA-Z0-9_]*(\.[0-9]+)?`, nil},
		{"Label", `@[a-zA-Z_][a-zA-Z0-9_]*`, nil},
		{"Keyword", `(?:function|block)\b`, nil},
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_]*`, nil},
		{"Integer", `0x[0-9a-fA-F]+|[0-9]+`, nil},
		{"Punctuation", `[=,:(){}]`, nil},
		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})

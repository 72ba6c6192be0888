package venomasm

import (
	"github.com/alecthomas/participle/v2"
)

var venomParser = participle.MustBuild[Program](
	participle.Lexer(VenomLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(2),
)

// Parse parses assembly text into a Program AST, ready for Build.
func Parse(filename, source string) (*Program, error) {
	return venomParser.ParseString(filename, source)
}

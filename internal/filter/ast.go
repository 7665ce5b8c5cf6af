// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

// Package filter implements the message filter expression language used by
// the inspect command. Expressions compare message fields against
// literals and combine comparisons with boolean operators:
//
//	source == "ecu-1" && (text contains "error" || index >= 1000)
//
// Fields: index (numeric), source, text, raw (strings).
package filter

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// filterLexer defines the token types for filter expressions. Multi
// character operators (==, !=, <=, >=, &&, ||) need explicit rules so the
// default lexer does not split them.
var filterLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `"[^"]*"`},
	{Name: "Number", Pattern: `\d+`},
	{Name: "OpEq", Pattern: `==`},
	{Name: "OpNe", Pattern: `!=`},
	{Name: "OpLe", Pattern: `<=`},
	{Name: "OpGe", Pattern: `>=`},
	{Name: "OpAnd", Pattern: `&&`},
	{Name: "OpOr", Pattern: `\|\|`},
	{Name: "Ident", Pattern: `[a-zA-Z_]\w*`},
	{Name: "Punct", Pattern: `[()!<>]`},
	{Name: "whitespace", Pattern: `\s+`},
})

// Expr is the root node: one or more conjunctions joined by "||".
type Expr struct {
	Pos lexer.Position `parser:""`
	Or  []*AndExpr     `parser:"@@ ('||' @@)*"`
}

// AndExpr is one or more terms joined by "&&". "&&" binds tighter
// than "||".
type AndExpr struct {
	Pos   lexer.Position `parser:""`
	Terms []*Term        `parser:"@@ ('&&' @@)*"`
}

// Term is a negation, a parenthesized expression, or a comparison.
type Term struct {
	Pos     lexer.Position `parser:""`
	Negated *Term          `parser:"  '!' @@"`
	Grouped *Expr          `parser:"| '(' @@ ')'"`
	Cmp     *Comparison    `parser:"| @@"`
}

// Comparison compares one message field against a literal.
type Comparison struct {
	Pos   lexer.Position `parser:""`
	Field string         `parser:"@Ident"`
	Op    string         `parser:"@('==' | '!=' | '<=' | '>=' | '<' | '>' | 'contains')"`
	Str   *string        `parser:"( @String"`
	Num   *int           `parser:"| @Number )"`
}

// NewParser constructs a participle parser for filter expressions.
func NewParser() (*participle.Parser[Expr], error) {
	return participle.Build[Expr](
		participle.Lexer(filterLexer),
		participle.Unquote("String"),
	)
}

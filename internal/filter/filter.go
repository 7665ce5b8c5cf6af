// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package filter

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/samber/oops"

	pluginpkg "github.com/loglens/loglens/pkg/plugin"
)

// Message fields a comparison may reference.
const (
	FieldIndex  = "index"
	FieldSource = "source"
	FieldText   = "text"
	FieldRaw    = "raw"
)

// parser is the singleton participle parser instance.
var parser *participle.Parser[Expr]

func init() {
	var err error
	parser, err = NewParser()
	if err != nil {
		panic(fmt.Sprintf("failed to build filter parser: %v", err))
	}
}

// Filter is a compiled expression ready to match messages.
type Filter struct {
	expr *Expr
	src  string
}

// Compile parses and validates a filter expression.
func Compile(src string) (*Filter, error) {
	if strings.TrimSpace(src) == "" {
		return nil, oops.Errorf("empty filter expression")
	}

	expr, err := parser.ParseString("", src)
	if err != nil {
		return nil, oops.Wrapf(err, "parsing filter expression")
	}
	if err := validateExpr(expr); err != nil {
		return nil, err
	}
	return &Filter{expr: expr, src: src}, nil
}

// String returns the expression the filter was compiled from.
func (f *Filter) String() string { return f.src }

// Match evaluates the filter against one message.
func (f *Filter) Match(msg *pluginpkg.Message) bool {
	return evalExpr(f.expr, msg)
}

func evalExpr(e *Expr, msg *pluginpkg.Message) bool {
	for _, and := range e.Or {
		if evalAnd(and, msg) {
			return true
		}
	}
	return false
}

func evalAnd(a *AndExpr, msg *pluginpkg.Message) bool {
	for _, t := range a.Terms {
		if !evalTerm(t, msg) {
			return false
		}
	}
	return true
}

func evalTerm(t *Term, msg *pluginpkg.Message) bool {
	switch {
	case t.Negated != nil:
		return !evalTerm(t.Negated, msg)
	case t.Grouped != nil:
		return evalExpr(t.Grouped, msg)
	default:
		return evalComparison(t.Cmp, msg)
	}
}

func evalComparison(c *Comparison, msg *pluginpkg.Message) bool {
	if c.Field == FieldIndex {
		return evalNumeric(c.Op, msg.Index(), *c.Num)
	}

	var field string
	switch c.Field {
	case FieldSource:
		field = msg.Source
	case FieldText:
		field = msg.Text()
	case FieldRaw:
		field = string(msg.Raw())
	}

	switch c.Op {
	case "==":
		return field == *c.Str
	case "!=":
		return field != *c.Str
	case "contains":
		return strings.Contains(field, *c.Str)
	}
	return false
}

func evalNumeric(op string, left, right int) bool {
	switch op {
	case "==":
		return left == right
	case "!=":
		return left != right
	case "<":
		return left < right
	case "<=":
		return left <= right
	case ">":
		return left > right
	case ">=":
		return left >= right
	}
	return false
}

// validateExpr performs post-parse validation: known fields only, string
// operators on string fields, ordering operators on index only.
func validateExpr(e *Expr) error {
	for _, and := range e.Or {
		for _, t := range and.Terms {
			if err := validateTerm(t); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateTerm(t *Term) error {
	switch {
	case t.Negated != nil:
		return validateTerm(t.Negated)
	case t.Grouped != nil:
		return validateExpr(t.Grouped)
	default:
		return validateComparison(t.Cmp)
	}
}

func validateComparison(c *Comparison) error {
	switch c.Field {
	case FieldIndex:
		if c.Num == nil {
			return fmt.Errorf("%s: field %q compares against numbers", c.Pos, c.Field)
		}
		if c.Op == "contains" {
			return fmt.Errorf("%s: operator %q does not apply to %q", c.Pos, c.Op, c.Field)
		}
	case FieldSource, FieldText, FieldRaw:
		if c.Str == nil {
			return fmt.Errorf("%s: field %q compares against strings", c.Pos, c.Field)
		}
		switch c.Op {
		case "==", "!=", "contains":
		default:
			return fmt.Errorf("%s: operator %q does not apply to %q", c.Pos, c.Op, c.Field)
		}
	default:
		return fmt.Errorf("%s: unknown field %q", c.Pos, c.Field)
	}
	return nil
}

// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package validate

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/staranto/qcache/internal/table"
)

// ParseSpec builds a Schema from a compact, comma separated description such
// as "id:int!,name:string?,state:string[open|closed],...".
//
// Each entry is name:kind followed by an optional bracket and any of the
// flags ? (nullable) and ! (unique). The bracket holds either an [a|b] list of
// permitted values or, for numeric kinds, bounds such as [>=0 <100]. A
// trailing "..." entry allows columns the list does not name.
func ParseSpec(spec string) (Schema, error) {
	var s Schema
	seen := map[string]bool{}

	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case "...":
			s.AllowExtra = true
			continue
		}

		name, rest, ok := strings.Cut(part, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return Schema{}, fmt.Errorf("bad column spec %q: want name:kind", part)
		}
		if seen[name] {
			return Schema{}, fmt.Errorf("column %q specified twice", name)
		}
		seen[name] = true

		col := ColumnSpec{Name: name}
		rest = strings.TrimSpace(rest)
	flags:
		for len(rest) > 0 {
			switch rest[len(rest)-1] {
			case '?':
				col.Nullable = true
			case '!':
				col.Unique = true
			default:
				break flags
			}
			rest = rest[:len(rest)-1]
		}

		if open := strings.IndexByte(rest, '['); open >= 0 {
			if !strings.HasSuffix(rest, "]") {
				return Schema{}, fmt.Errorf("bad column spec %q: unterminated value list", part)
			}
			inner := strings.TrimSpace(rest[open+1 : len(rest)-1])
			if strings.HasPrefix(inner, "<") || strings.HasPrefix(inner, ">") {
				if err := col.parseBounds(inner); err != nil {
					return Schema{}, fmt.Errorf("bad column spec %q: %w", part, err)
				}
			} else {
				for _, v := range strings.Split(inner, "|") {
					col.Enum = append(col.Enum, strings.TrimSpace(v))
				}
			}
			rest = rest[:open]
		}

		kind, err := table.ParseKind(rest)
		if err != nil {
			return Schema{}, fmt.Errorf("bad column spec %q: %w", part, err)
		}
		col.Kind = kind
		if (col.Min != nil || col.Max != nil) && !numericKind(kind) {
			return Schema{}, fmt.Errorf("bad column spec %q: bounds need a numeric kind", part)
		}
		s.Columns = append(s.Columns, col)
	}

	return s, nil
}

func (c *ColumnSpec) parseBounds(s string) error {
	for _, tok := range strings.Fields(s) {
		op := strings.TrimRight(tok[:min(2, len(tok))], "0123456789.-+")
		value, err := decimal.NewFromString(tok[len(op):])
		if err != nil {
			return fmt.Errorf("bad bound %q", tok)
		}
		b := &Bound{Value: value, Inclusive: strings.HasSuffix(op, "=")}
		switch strings.TrimSuffix(op, "=") {
		case ">":
			if c.Min != nil {
				return fmt.Errorf("lower bound given twice")
			}
			c.Min = b
		case "<":
			if c.Max != nil {
				return fmt.Errorf("upper bound given twice")
			}
			c.Max = b
		default:
			return fmt.Errorf("bad bound %q", tok)
		}
	}
	return nil
}

func numericKind(k table.Kind) bool {
	return k == table.Int || k == table.Float || k == table.Decimal
}

// bounds renders the column's range in ParseSpec form, without brackets.
func (c ColumnSpec) bounds() string {
	var parts []string
	if c.Min != nil {
		parts = append(parts, boundString(">", c.Min))
	}
	if c.Max != nil {
		parts = append(parts, boundString("<", c.Max))
	}
	return strings.Join(parts, " ")
}

func boundString(op string, b *Bound) string {
	if b.Inclusive {
		op += "="
	}
	return op + b.Value.String()
}

// String renders the schema back into ParseSpec form.
func (s Schema) String() string {
	parts := make([]string, 0, len(s.Columns)+1)
	for _, c := range s.Columns {
		p := c.Name + ":" + c.Kind.String()
		if len(c.Enum) > 0 {
			p += "[" + strings.Join(c.Enum, "|") + "]"
		} else if c.Min != nil || c.Max != nil {
			p += "[" + c.bounds() + "]"
		}
		if c.Unique {
			p += "!"
		}
		if c.Nullable {
			p += "?"
		}
		parts = append(parts, p)
	}
	if s.AllowExtra {
		parts = append(parts, "...")
	}
	return strings.Join(parts, ",")
}

// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package validate

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/staranto/qcache/internal/table"
)

// ColumnSpec describes one expected column.
type ColumnSpec struct {
	Name     string
	Kind     table.Kind
	Nullable bool
	Unique   bool
	// Enum, when set, lists the only permitted values, compared as text.
	Enum []string
	// Min and Max, when set, bound the values of a numeric column.
	Min *Bound
	Max *Bound
}

// Bound is one end of a numeric range.
type Bound struct {
	Value     decimal.Decimal
	Inclusive bool
}

func (b *Bound) below(d decimal.Decimal) bool {
	if b.Inclusive {
		return d.LessThan(b.Value)
	}
	return d.LessThanOrEqual(b.Value)
}

func (b *Bound) above(d decimal.Decimal) bool {
	if b.Inclusive {
		return d.GreaterThan(b.Value)
	}
	return d.GreaterThanOrEqual(b.Value)
}

// inRange reports whether v lies within the column's bounds. Non-numeric
// values are left to the kind check.
func (c ColumnSpec) inRange(v any) bool {
	d, ok := numeric(v)
	if !ok {
		return true
	}
	if c.Min != nil && c.Min.below(d) {
		return false
	}
	if c.Max != nil && c.Max.above(d) {
		return false
	}
	return true
}

func numeric(v any) (decimal.Decimal, bool) {
	switch v := v.(type) {
	case int64:
		return decimal.NewFromInt(v), true
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(v), true
	case decimal.Decimal:
		return v, true
	default:
		return decimal.Decimal{}, false
	}
}

// Schema is the expected shape of a result.
type Schema struct {
	Columns []ColumnSpec
	// AllowExtra permits columns the schema does not name.
	AllowExtra bool
}

// ColumnError is one violation found in one column.
type ColumnError struct {
	Column  string
	Problem string
}

func (e *ColumnError) Error() string {
	return e.Column + ": " + e.Problem
}

// Validate checks t against the schema and reports every violation joined
// into one error, or nil.
func (s Schema) Validate(t *table.Table) error {
	var errs []error
	add := func(col, format string, args ...any) {
		errs = append(errs, &ColumnError{Column: col, Problem: fmt.Sprintf(format, args...)})
	}

	if t == nil {
		return errors.New("no result to validate")
	}

	for _, spec := range s.Columns {
		if t.ColumnIndex(spec.Name) < 0 {
			add(spec.Name, "missing column")
		}
	}

	if !s.AllowExtra {
		for _, c := range t.Columns {
			if !slices.ContainsFunc(s.Columns, func(spec ColumnSpec) bool { return spec.Name == c.Name }) {
				add(c.Name, "superfluous column")
			}
		}
	}

	for _, spec := range s.Columns {
		idx := t.ColumnIndex(spec.Name)
		if idx < 0 {
			continue
		}

		if got := t.Columns[idx].Kind; got != spec.Kind {
			add(spec.Name, "kind %s does not match expected %s", got, spec.Kind)
		}

		nulls := 0
		seen := map[string]int{}
		var invalid, outside []string
		for _, row := range t.Rows {
			v := row[idx]
			if v == nil {
				nulls++
				continue
			}
			text := fmt.Sprint(table.Plain(v))
			seen[text]++
			if len(spec.Enum) > 0 && !slices.Contains(spec.Enum, text) && !slices.Contains(invalid, text) {
				invalid = append(invalid, text)
			}
			if !spec.inRange(v) && !slices.Contains(outside, text) {
				outside = append(outside, text)
			}
		}

		if nulls > 0 && !spec.Nullable {
			add(spec.Name, "%d missing %s", nulls, plural(nulls, "value", "values"))
		}
		if len(invalid) > 0 {
			add(spec.Name, "rows with invalid values: %s", strings.Join(invalid, ", "))
		}
		if len(outside) > 0 {
			add(spec.Name, "rows with values outside %s: %s", spec.bounds(), strings.Join(outside, ", "))
		}
		if spec.Unique {
			dups := 0
			for _, n := range seen {
				if n > 1 {
					dups += n
				}
			}
			if dups > 0 {
				add(spec.Name, "%d %s with duplicated values", dups, plural(dups, "row", "rows"))
			}
		}
	}

	return errors.Join(errs...)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

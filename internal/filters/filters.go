// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package filters

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/apex/log"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/staranto/qcache/internal/table"
)

// filterRegex splits a filter expression into key, operator and target.
// Operators are one of = ^ ~ < > @ or /, optionally prefixed with '!'.
var filterRegex = regexp.MustCompile(`^(.*?)(!?[=^~<>@/])(.*)$`)

// Filter is a single parsed --filter expression.
type Filter struct {
	Key     string
	Negate  bool
	Operand string
	Target  string
}

// BuildFilters parses a filter specification string into a slice of Filter.
// Malformed entries are logged and skipped.
func BuildFilters(spec string) []Filter {
	//nolint:prealloc
	var filters []Filter

	if spec == "" {
		return filters
	}

	// Default delimiter is ",", allow an override.
	delim := ","
	if d, ok := os.LookupEnv("QCACHE_FILTER_DELIM"); ok {
		delim = d
	}

	for _, filterSpec := range strings.Split(spec, delim) {
		parts := filterRegex.FindStringSubmatch(filterSpec)
		if parts == nil || strings.TrimSpace(parts[1]) == "" {
			log.Error("invalid filter: " + filterSpec)
			continue
		}

		negate := strings.HasPrefix(parts[2], "!")
		filters = append(filters, Filter{
			Key:     strings.TrimSpace(parts[1]),
			Negate:  negate,
			Operand: strings.TrimPrefix(parts[2], "!"),
			Target:  parts[3],
		})
	}

	return filters
}

// Apply returns a copy of t holding only the rows that match every filter in
// spec. Rows are matched on their JSON form, so times, decimals and bytes
// compare as the text shown to users.
func Apply(t *table.Table, spec string) (*table.Table, error) {
	filters := BuildFilters(spec)
	if len(filters) == 0 {
		return t, nil
	}

	doc, err := json.Marshal(t.Records())
	if err != nil {
		return nil, fmt.Errorf("failed to encode rows for filtering: %w", err)
	}

	out := &table.Table{Columns: t.Columns, Metadata: t.Metadata}
	for i, candidate := range gjson.ParseBytes(doc).Array() {
		if applyFilters(candidate, t.Columns, filters) {
			out.Rows = append(out.Rows, t.Rows[i])
		}
	}

	log.Debugf("Apply: %d of %d rows kept", out.NumRows(), t.NumRows())
	return out, nil
}

// applyFilters returns true if the candidate row matches all of the filters.
// Filters naming an unknown column are reported and ignored.
func applyFilters(candidate gjson.Result, columns []table.Column, filters []Filter) bool {
	for _, filter := range filters {
		kind, ok := kindOf(columns, filter.Key)
		if !ok {
			msg := fmt.Sprintf("filter key not found: %s", filter.Key)
			log.Error(msg)
			fmt.Fprintf(os.Stderr, "warning: %s\n", msg)
			continue
		}

		value := candidate.Get(Path(filter.Key))
		if !value.Exists() || value.Type == gjson.Null {
			return false
		}

		var result bool
		switch {
		case value.Type == gjson.Number:
			result = checkNumericOperand(value.String(), filter)
		case kind == table.Decimal && isNumericOperand(filter.Operand):
			result = checkNumericOperand(value.String(), filter)
		default:
			result = checkStringOperand(value.String(), filter)
		}

		if !result {
			return false
		}
	}

	return true
}

// Path escapes a column name for use as a gjson path.
func Path(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\', '!', '=', '<', '>', '%':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func kindOf(columns []table.Column, name string) (table.Kind, bool) {
	for _, c := range columns {
		if c.Name == name {
			return c.Kind, true
		}
	}
	return table.String, false
}

func isNumericOperand(op string) bool {
	return op == "=" || op == "<" || op == ">"
}

// checkNumericOperand compares a number against the filter target exactly.
// Supported operands are =, > and <; the rest fall back to text semantics.
func checkNumericOperand(value string, filter Filter) bool {
	if !isNumericOperand(filter.Operand) {
		return checkStringOperand(value, filter)
	}

	v, err := decimal.NewFromString(value)
	if err != nil {
		return checkStringOperand(value, filter)
	}
	tgt, err := decimal.NewFromString(strings.TrimSpace(filter.Target))
	if err != nil {
		log.Error("invalid numeric target: " + filter.Target)
		return false
	}

	switch filter.Operand {
	case "=":
		return v.Equal(tgt) == !filter.Negate
	case ">":
		return v.GreaterThan(tgt) == !filter.Negate
	default:
		return v.LessThan(tgt) == !filter.Negate
	}
}

// checkStringOperand evaluates a string comparison style filter against the
// provided value using the operand semantics.
func checkStringOperand(value string, filter Filter) bool {
	switch filter.Operand {
	case "=":
		return value == filter.Target == !filter.Negate
	case "~":
		return strings.EqualFold(value, filter.Target) == !filter.Negate
	case "^":
		return strings.HasPrefix(value, filter.Target) == !filter.Negate
	case ">":
		return value > filter.Target == !filter.Negate
	case "<":
		return value < filter.Target == !filter.Negate
	case "@":
		return strings.Contains(value, filter.Target) == !filter.Negate
	case "/":
		matched, err := regexp.MatchString(filter.Target, value)
		if err != nil {
			log.Error("invalid regex: " + filter.Target)
			return false
		}
		return matched == !filter.Negate
	default:
		log.Error("unsupported filtering operand: " + filter.Operand)
		return false
	}
}

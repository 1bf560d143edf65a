// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"sort"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/shopspring/decimal"

	"github.com/staranto/qcache/internal/table"
)

// sortKey is one parsed entry of a --sort spec.
type sortKey struct {
	index         int
	descending    bool
	caseSensitive bool
}

// parseSortSpec turns "name,-count,!sku" into keys. A leading - sorts
// descending and a leading ! compares text case sensitively. Unknown columns
// are logged and ignored.
func parseSortSpec(t *table.Table, spec string) []sortKey {
	var keys []sortKey
	for _, field := range strings.Split(spec, ",") {
		field = strings.TrimSpace(field)
		k := sortKey{}
		for len(field) > 0 && (field[0] == '-' || field[0] == '!') {
			if field[0] == '-' {
				k.descending = true
			} else {
				k.caseSensitive = true
			}
			field = field[1:]
		}
		if field == "" {
			continue
		}
		k.index = t.ColumnIndex(field)
		if k.index < 0 {
			log.Errorf("sort key not found: %s", field)
			continue
		}
		keys = append(keys, k)
	}
	return keys
}

// SortTable returns t with its rows stably sorted by spec. NULLs sort last in
// either direction. The input table is not modified.
func SortTable(t *table.Table, spec string) *table.Table {
	keys := parseSortSpec(t, spec)
	if len(keys) == 0 {
		return t
	}

	rows := make([][]any, len(t.Rows))
	copy(rows, t.Rows)

	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range keys {
			a, b := rows[i][k.index], rows[j][k.index]
			switch {
			case a == nil && b == nil:
				continue
			case a == nil:
				return false
			case b == nil:
				return true
			}
			c := compare(a, b, k.caseSensitive)
			if c == 0 {
				continue
			}
			if k.descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})

	return &table.Table{Columns: t.Columns, Rows: rows, Metadata: t.Metadata}
}

func compare(a, b any, caseSensitive bool) int {
	switch av := a.(type) {
	case int64:
		if bv, ok := b.(int64); ok {
			return cmp3(av < bv, av > bv)
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return cmp3(av < bv, av > bv)
		}
	case decimal.Decimal:
		if bv, ok := b.(decimal.Decimal); ok {
			return av.Cmp(bv)
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	case bool:
		if bv, ok := b.(bool); ok {
			return cmp3(!av && bv, av && !bv)
		}
	}

	as, bs := InterfaceToString(a), InterfaceToString(b)
	if !caseSensitive {
		as, bs = strings.ToLower(as), strings.ToLower(bs)
	}
	return strings.Compare(as, bs)
}

func cmp3(less, greater bool) int {
	switch {
	case less:
		return -1
	case greater:
		return 1
	default:
		return 0
	}
}

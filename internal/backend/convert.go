// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/staranto/qcache/internal/table"
)

// timeLayouts are tried in order when a driver hands back a timestamp as text.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

func toTable(types []*sql.ColumnType, raw [][]any) (*table.Table, error) {
	names := make([]string, len(types))
	for i, ct := range types {
		names[i] = ct.Name()
	}
	names = dedupe(names)

	columns := make([]table.Column, len(types))
	for i, ct := range types {
		columns[i] = table.Column{Name: names[i], Kind: kindOf(ct.DatabaseTypeName(), raw, i)}
	}

	t := table.New(columns...)
	for r, cells := range raw {
		row := make([]any, len(cells))
		for i, v := range cells {
			c, err := convert(columns[i].Kind, v)
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", r, columns[i].Name, err)
			}
			row[i] = c
		}
		if err := t.Append(row...); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// dedupe renames repeated column names to name_2, name_3 and so on. Unnamed
// columns become column_N.
func dedupe(names []string) []string {
	out := make([]string, len(names))
	seen := make(map[string]bool, len(names))
	for i, n := range names {
		if n == "" {
			n = fmt.Sprintf("column_%d", i+1)
		}
		candidate := n
		for k := 2; seen[candidate]; k++ {
			candidate = fmt.Sprintf("%s_%d", n, k)
		}
		seen[candidate] = true
		out[i] = candidate
	}
	return out
}

// kindOf maps a database type name onto a table kind. Untyped columns, as
// SQLite reports for expressions, are inferred from their first non-null value.
func kindOf(dbType string, raw [][]any, col int) table.Kind {
	t := strings.ToUpper(strings.TrimSpace(dbType))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}

	switch {
	case t == "":
		return infer(raw, col)
	case t == "BOOL" || t == "BOOLEAN":
		return table.Bool
	case strings.Contains(t, "INT") && !strings.Contains(t, "INTERVAL") && !strings.Contains(t, "POINT"):
		return table.Int
	case t == "NUMERIC" || t == "DECIMAL" || t == "NEWDECIMAL":
		return table.Decimal
	case t == "REAL" || strings.HasPrefix(t, "FLOAT") || strings.HasPrefix(t, "DOUBLE"):
		return table.Float
	case t == "DATE" || strings.HasPrefix(t, "DATETIME") || strings.HasPrefix(t, "TIMESTAMP"):
		return table.Time
	case strings.Contains(t, "BLOB") || t == "BYTEA" || strings.HasSuffix(t, "BINARY"):
		return table.Bytes
	default:
		return table.String
	}
}

func infer(raw [][]any, col int) table.Kind {
	for _, row := range raw {
		switch row[col].(type) {
		case nil:
			continue
		case int64, int32, int, uint64:
			return table.Int
		case float64, float32:
			return table.Float
		case bool:
			return table.Bool
		case time.Time:
			return table.Time
		case []byte:
			return table.Bytes
		default:
			return table.String
		}
	}
	return table.String
}

func convert(k table.Kind, v any) (any, error) {
	if v == nil {
		return nil, nil //nolint:nilnil
	}

	switch k {
	case table.Int:
		return toInt(v)
	case table.Float:
		return toFloat(v)
	case table.Bool:
		return toBool(v)
	case table.Decimal:
		return toDecimal(v)
	case table.Time:
		return toTime(v)
	case table.Bytes:
		return toBytes(v), nil
	default:
		return toString(v), nil
	}
}

func toInt(v any) (int64, error) {
	switch v := v.(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case int:
		return int64(v), nil
	case uint64:
		return int64(v), nil //nolint:gosec
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case float64:
		if v != float64(int64(v)) {
			return 0, fmt.Errorf("%v is not an integer", v)
		}
		return int64(v), nil
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	case string:
		return strconv.ParseInt(v, 10, 64)
	}
	return 0, fmt.Errorf("cannot convert %T to int", v)
}

func toFloat(v any) (float64, error) {
	switch v := v.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case []byte:
		return strconv.ParseFloat(string(v), 64)
	case string:
		return strconv.ParseFloat(v, 64)
	}
	return 0, fmt.Errorf("cannot convert %T to float", v)
}

func toBool(v any) (bool, error) {
	switch v := v.(type) {
	case bool:
		return v, nil
	case int64:
		return v != 0, nil
	case []byte:
		return strconv.ParseBool(string(v))
	case string:
		return strconv.ParseBool(v)
	}
	return false, fmt.Errorf("cannot convert %T to bool", v)
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch v := v.(type) {
	case decimal.Decimal:
		return v, nil
	case int64:
		return decimal.NewFromInt(v), nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case []byte:
		return decimal.NewFromString(string(v))
	case string:
		return decimal.NewFromString(v)
	}
	return decimal.Decimal{}, fmt.Errorf("cannot convert %T to decimal", v)
}

func toTime(v any) (time.Time, error) {
	var s string
	switch v := v.(type) {
	case time.Time:
		return v.UTC(), nil
	case []byte:
		s = string(v)
	case string:
		s = v
	case int64:
		return time.Unix(v, 0).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("cannot convert %T to time", v)
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

func toBytes(v any) []byte {
	switch v := v.(type) {
	case []byte:
		return append([]byte(nil), v...)
	case string:
		return []byte(v)
	}
	return []byte(fmt.Sprint(v))
}

func toString(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	}
	return fmt.Sprint(v)
}

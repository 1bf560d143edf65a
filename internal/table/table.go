// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package table

import (
	"encoding/base64"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind is the logical type of a column.
type Kind int

const (
	String Kind = iota
	Int
	Float
	Bool
	Time
	Decimal
	Bytes
)

var kindNames = map[Kind]string{
	String:  "string",
	Int:     "int",
	Float:   "float",
	Bool:    "bool",
	Time:    "time",
	Decimal: "decimal",
	Bytes:   "bytes",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText encodes the kind by name so cache file metadata stays readable.
func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("unknown column kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name written by MarshalText.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind is the inverse of Kind.String. It also accepts a few common
// aliases (text, integer, double, boolean, timestamp, numeric, blob).
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string", "text":
		return String, nil
	case "int", "integer":
		return Int, nil
	case "float", "double":
		return Float, nil
	case "bool", "boolean":
		return Bool, nil
	case "time", "timestamp":
		return Time, nil
	case "decimal", "numeric":
		return Decimal, nil
	case "bytes", "blob":
		return Bytes, nil
	}
	return String, fmt.Errorf("unknown column kind %q", s)
}

// Column describes one column of a Table.
type Column struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// Table is an in-memory tabular query result. Cells hold string, int64,
// float64, bool, time.Time, decimal.Decimal, []byte, or nil for NULL.
type Table struct {
	Columns  []Column
	Rows     [][]any
	Metadata map[string]string
}

// New returns an empty table with the given columns.
func New(columns ...Column) *Table {
	return &Table{Columns: columns}
}

// Append adds a row. The number of cells must match the number of columns.
func (t *Table) Append(cells ...any) error {
	if len(cells) != len(t.Columns) {
		return fmt.Errorf("row has %d cells, table has %d columns", len(cells), len(t.Columns))
	}
	t.Rows = append(t.Rows, cells)
	return nil
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// WithMetadata returns a shallow copy of t whose metadata is t's metadata
// overlaid with md. The receiver is left untouched.
func (t *Table) WithMetadata(md map[string]string) *Table {
	merged := make(map[string]string, len(t.Metadata)+len(md))
	maps.Copy(merged, t.Metadata)
	maps.Copy(merged, md)
	return &Table{
		Columns:  t.Columns,
		Rows:     t.Rows,
		Metadata: merged,
	}
}

// Records converts the rows into JSON friendly maps keyed by column name.
func (t *Table) Records() []map[string]any {
	records := make([]map[string]any, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]any, len(t.Columns))
		for i, c := range t.Columns {
			rec[c.Name] = Plain(row[i])
		}
		records = append(records, rec)
	}
	return records
}

// Plain converts a cell into a value that marshals cleanly to JSON or YAML.
func Plain(v any) any {
	switch v := v.(type) {
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	case decimal.Decimal:
		return v.String()
	case []byte:
		return base64.StdEncoding.EncodeToString(v)
	default:
		return v
	}
}

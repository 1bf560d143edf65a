// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cachefile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/apex/log"
	"github.com/parquet-go/parquet-go"
	"github.com/shopspring/decimal"

	"github.com/staranto/qcache/internal/table"
)

// Extension is the only file extension accepted for cache entries.
const Extension = ".parquet"

// Metadata keys stored in the parquet footer.
const (
	KeyQuery      = "sql_query"
	KeyStartTime  = "query_start_time"
	KeyFinishTime = "query_finish_time"
	KeyColumns    = "qcache_columns"
)

const (
	cacheDirPerm = 0o755
	readBatch    = 256
)

// naiveISO is the timestamp layout written by tools that omit the zone.
const naiveISO = "2006-01-02T15:04:05.999999999"

// Header is the footer metadata of a cache entry.
type Header struct {
	Query    string
	HasQuery bool
	// Start is the zero time when the stored value is missing or unparseable.
	Start    time.Time
	Finish   time.Time
	Rows     int64
	Metadata map[string]string
}

// FormatTimestamp renders t the way it is stored in cache metadata.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseTimestamp accepts RFC3339 timestamps and zone-less ISO-8601 ones, the
// latter read as UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), true
	}
	if t, err := time.ParseInLocation(naiveISO, s, time.UTC); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// ErrNoColumns is returned by Write for a result without columns, which
// parquet cannot represent.
var ErrNoColumns = errors.New("cannot cache a result with no columns")

// Write encodes t as parquet at path. Parent directories are created as
// needed and the file is replaced through a rename, so readers never see a
// partially written entry.
func Write(path string, t *table.Table) error {
	if len(t.Columns) == 0 {
		return ErrNoColumns
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, cacheDirPerm); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".qcache-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if err := encode(tmp, t); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close cache file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace cache file: %w", err)
	}

	log.Debugf("wrote %d rows to %s", t.NumRows(), path)
	return nil
}

// ReadHeader reads only the footer metadata of the entry at path.
func ReadHeader(path string) (Header, error) {
	f, pf, err := open(path)
	if err != nil {
		return Header{}, err
	}
	defer f.Close()
	return headerOf(pf), nil
}

// Read decodes the full entry at path, metadata included.
func Read(path string) (*table.Table, error) {
	f, pf, err := open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	md := metadataOf(pf)
	var columns []table.Column
	raw, ok := md[KeyColumns]
	if !ok {
		return nil, fmt.Errorf("%s: missing %s metadata", path, KeyColumns)
	}
	if err := json.Unmarshal([]byte(raw), &columns); err != nil {
		return nil, fmt.Errorf("%s: bad %s metadata: %w", path, KeyColumns, err)
	}
	delete(md, KeyColumns)

	// Leaf index in the parquet schema -> position in the table.
	positions := make(map[int]int, len(columns))
	for i, c := range columns {
		leaf, found := pf.Schema().Lookup(c.Name)
		if !found {
			return nil, fmt.Errorf("%s: column %q not in schema", path, c.Name)
		}
		positions[leaf.ColumnIndex] = i
	}

	t := &table.Table{Columns: columns, Metadata: md}
	buf := make([]parquet.Row, readBatch)
	for _, rg := range pf.RowGroups() {
		if err := readRowGroup(rg, buf, columns, positions, t); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return t, nil
}

func readRowGroup(rg parquet.RowGroup, buf []parquet.Row, columns []table.Column, positions map[int]int, t *table.Table) error {
	rows := rg.Rows()
	defer rows.Close()

	for {
		n, err := rows.ReadRows(buf)
		for _, row := range buf[:n] {
			cells := make([]any, len(columns))
			for _, v := range row {
				pos, ok := positions[v.Column()]
				if !ok {
					continue
				}
				cell, cerr := fromValue(v, columns[pos].Kind)
				if cerr != nil {
					return fmt.Errorf("column %q: %w", columns[pos].Name, cerr)
				}
				cells[pos] = cell
			}
			t.Rows = append(t.Rows, cells)
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read rows: %w", err)
		}
	}
}

func open(path string) (*os.File, *parquet.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	pf, err := parquet.OpenFile(f, st.Size(),
		parquet.SkipPageIndex(true),
		parquet.SkipBloomFilters(true),
	)
	if err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("failed to open cache file %s: %w", path, err)
	}
	return f, pf, nil
}

func metadataOf(pf *parquet.File) map[string]string {
	md := map[string]string{}
	for _, kv := range pf.Metadata().KeyValueMetadata {
		md[kv.Key] = kv.Value
	}
	return md
}

func headerOf(pf *parquet.File) Header {
	md := metadataOf(pf)
	h := Header{Rows: pf.NumRows(), Metadata: md}
	h.Query, h.HasQuery = md[KeyQuery]
	if s, ok := md[KeyStartTime]; ok {
		h.Start, _ = ParseTimestamp(s)
	}
	if s, ok := md[KeyFinishTime]; ok {
		h.Finish, _ = ParseTimestamp(s)
	}
	return h
}

func encode(w io.Writer, t *table.Table) error {
	// Times finer than a microsecond are kept as text so they read back exact.
	textTime := make([]bool, len(t.Columns))
	group := parquet.Group{}
	for i, c := range t.Columns {
		if _, dup := group[c.Name]; dup {
			return fmt.Errorf("duplicate column name %q", c.Name)
		}
		node := nodeFor(c.Kind)
		if c.Kind == table.Time && !microsecondTimes(t, i) {
			textTime[i] = true
			node = parquet.String()
		}
		group[c.Name] = parquet.Optional(node)
	}
	schema := parquet.NewSchema("result", group)

	leaves := make([]int, len(t.Columns))
	for i, c := range t.Columns {
		leaf, _ := schema.Lookup(c.Name)
		leaves[i] = leaf.ColumnIndex
	}

	layout, err := json.Marshal(t.Columns)
	if err != nil {
		return fmt.Errorf("failed to encode column layout: %w", err)
	}
	md := make(map[string]string, len(t.Metadata)+1)
	for k, v := range t.Metadata {
		md[k] = v
	}
	md[KeyColumns] = string(layout)
	keys := make([]string, 0, len(md))
	for k := range md {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	opts := []parquet.WriterOption{schema}
	for _, k := range keys {
		opts = append(opts, parquet.KeyValueMetadata(k, md[k]))
	}
	pw := parquet.NewWriter(w, opts...)

	rows := make([]parquet.Row, 0, len(t.Rows))
	for r, cells := range t.Rows {
		if len(cells) != len(t.Columns) {
			return fmt.Errorf("row %d has %d cells, table has %d columns", r, len(cells), len(t.Columns))
		}
		row := make(parquet.Row, len(cells))
		for i, cell := range cells {
			v, err := toValue(cell, t.Columns[i].Kind, textTime[i])
			if err != nil {
				return fmt.Errorf("row %d column %q: %w", r, t.Columns[i].Name, err)
			}
			row[leaves[i]] = v.Level(0, definitionLevel(cell), leaves[i])
		}
		rows = append(rows, row)
	}

	if _, err := pw.WriteRows(rows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return nil
}

func nodeFor(k table.Kind) parquet.Node {
	switch k {
	case table.Int:
		return parquet.Int(64)
	case table.Float:
		return parquet.Leaf(parquet.DoubleType)
	case table.Bool:
		return parquet.Leaf(parquet.BooleanType)
	case table.Time:
		// Microseconds span years 1 to 9999; nanoseconds overflow outside 1678-2262.
		return parquet.Timestamp(parquet.Microsecond)
	case table.Bytes:
		return parquet.Leaf(parquet.ByteArrayType)
	default:
		// Decimals are kept as their exact text form.
		return parquet.String()
	}
}

func definitionLevel(cell any) int {
	if cell == nil {
		return 0
	}
	return 1
}

// microsecondTimes reports whether every time in column col is a whole
// number of microseconds.
func microsecondTimes(t *table.Table, col int) bool {
	for _, row := range t.Rows {
		if col >= len(row) {
			continue
		}
		if ts, ok := row[col].(time.Time); ok && ts.Nanosecond()%int(time.Microsecond) != 0 {
			return false
		}
	}
	return true
}

func toValue(cell any, k table.Kind, textTime bool) (parquet.Value, error) {
	if cell == nil {
		return parquet.NullValue(), nil
	}
	switch k {
	case table.Int:
		switch n := cell.(type) {
		case int64:
			return parquet.Int64Value(n), nil
		case int:
			return parquet.Int64Value(int64(n)), nil
		case int32:
			return parquet.Int64Value(int64(n)), nil
		}
	case table.Float:
		switch n := cell.(type) {
		case float64:
			return parquet.DoubleValue(n), nil
		case float32:
			return parquet.DoubleValue(float64(n)), nil
		}
	case table.Bool:
		if b, ok := cell.(bool); ok {
			return parquet.BooleanValue(b), nil
		}
	case table.Time:
		if ts, ok := cell.(time.Time); ok {
			if textTime {
				return parquet.ByteArrayValue([]byte(FormatTimestamp(ts))), nil
			}
			return parquet.Int64Value(ts.UnixMicro()), nil
		}
	case table.Decimal:
		if d, ok := cell.(decimal.Decimal); ok {
			return parquet.ByteArrayValue([]byte(d.String())), nil
		}
	case table.Bytes:
		if b, ok := cell.([]byte); ok {
			return parquet.ByteArrayValue(b), nil
		}
	case table.String:
		if s, ok := cell.(string); ok {
			return parquet.ByteArrayValue([]byte(s)), nil
		}
	}
	return parquet.Value{}, fmt.Errorf("cannot store %T as %s", cell, k)
}

func fromValue(v parquet.Value, k table.Kind) (any, error) {
	if v.IsNull() {
		return nil, nil
	}
	switch k {
	case table.Int:
		return v.Int64(), nil
	case table.Float:
		return v.Double(), nil
	case table.Bool:
		return v.Boolean(), nil
	case table.Time:
		if v.Kind() == parquet.ByteArray {
			return time.Parse(time.RFC3339Nano, string(v.ByteArray()))
		}
		return time.UnixMicro(v.Int64()).UTC(), nil
	case table.Decimal:
		return decimal.NewFromString(string(v.ByteArray()))
	case table.Bytes:
		return bytes.Clone(v.ByteArray()), nil
	default:
		return string(v.ByteArray()), nil
	}
}

// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/apex/log"
	"github.com/charmbracelet/lipgloss/v2"
	lgtable "github.com/charmbracelet/lipgloss/v2/table"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/staranto/qcache/internal/attrs"
	"github.com/staranto/qcache/internal/config"
	"github.com/staranto/qcache/internal/filters"
	"github.com/staranto/qcache/internal/table"
)

// Formats lists the accepted values of Options.Format.
var Formats = []string{"text", "json", "raw", "yaml"}

// Options controls Render.
type Options struct {
	Format string
	Titles bool
	Color  bool
	// Attrs selects, renames and transforms the output columns. Filter and
	// Sort see the columns before projection.
	Attrs   attrs.AttrList
	Filter  string
	Sort    string
	Padding int
	// Empty is shown for NULL cells in text output.
	Empty string
}

// Render filters, sorts, projects and writes t to w in the requested format.
// Raw output is the unmodified result.
func Render(w io.Writer, t *table.Table, opts Options) error {
	if opts.Format == "raw" {
		return writeRaw(w, t)
	}

	t, err := filters.Apply(t, opts.Filter)
	if err != nil {
		return err
	}
	t = SortTable(t, opts.Sort)
	if t, err = opts.Attrs.Project(t); err != nil {
		return err
	}

	switch opts.Format {
	case "json":
		return writeJSON(w, t)
	case "yaml":
		return writeYAML(w, t)
	case "", "text":
		TableWriter(w, t, opts)
		return nil
	default:
		return fmt.Errorf("unknown output format %q", opts.Format)
	}
}

// record is one row that marshals with its keys in column order.
type record struct {
	names  []string
	values []any
}

func records(t *table.Table) []record {
	names := t.ColumnNames()
	out := make([]record, 0, len(t.Rows))
	for _, row := range t.Rows {
		values := make([]any, len(row))
		for i, v := range row {
			values[i] = table.Plain(v)
		}
		out = append(out, record{names: names, values: values})
	}
	return out
}

func (r record) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, name := range r.names {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

func (r record) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for i, name := range r.names {
		var value yaml.Node
		if err := value.Encode(r.values[i]); err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: name},
			&value,
		)
	}
	return node, nil
}

func writeJSON(w io.Writer, t *table.Table) error {
	out, err := json.Marshal(records(t))
	if err != nil {
		return fmt.Errorf("failed to marshal json: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func writeYAML(w io.Writer, t *table.Table) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2) //nolint:mnd
	if err := enc.Encode(records(t)); err != nil {
		return fmt.Errorf("failed to marshal yaml: %w", err)
	}
	return enc.Close()
}

// writeRaw dumps the unfiltered result with its metadata and column kinds.
func writeRaw(w io.Writer, t *table.Table) error {
	doc := struct {
		Metadata map[string]string `json:"metadata"`
		Columns  []table.Column    `json:"columns"`
		Rows     []record          `json:"rows"`
	}{
		Metadata: t.Metadata,
		Columns:  t.Columns,
		Rows:     records(t),
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal raw output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// TableWriter renders the result set in a tabular form honoring color,
// titles and padding options.
func TableWriter(w io.Writer, t *table.Table, opts Options) {
	if t.NumRows() == 0 {
		log.Debug("TableWriter: no rows")
		return
	}

	var (
		headerStyle  = lipgloss.NewStyle().Align(lipgloss.Left)
		cellStyle    = lipgloss.NewStyle().Padding(0, 0).Align(lipgloss.Left)
		evenRowStyle = cellStyle
		oddRowStyle  = cellStyle
	)

	if opts.Color {
		headerColor, evenColor, oddColor := getColors("colors")

		headerStyle = headerStyle.Foreground(lipgloss.Color(headerColor))
		evenRowStyle = evenRowStyle.Foreground(lipgloss.Color(evenColor))
		oddRowStyle = oddRowStyle.Foreground(lipgloss.Color(oddColor))
	}

	rows := make([][]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		row := make([]string, 0, len(r))
		for _, v := range r {
			row = append(row, InterfaceToString(v, opts.Empty))
		}
		rows = append(rows, row)
	}

	pad := opts.Padding
	tbl := lgtable.New().
		BorderBottom(false).
		BorderTop(false).
		BorderLeft(false).
		BorderRight(false).
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			var style lipgloss.Style
			switch {
			case row == lgtable.HeaderRow:
				style = headerStyle
			case row%2 == 0:
				style = evenRowStyle
			default:
				style = oddRowStyle
			}

			if col > 0 {
				style = style.PaddingLeft(pad)
			}

			return style
		}).
		Headers().
		Rows(rows...)

	if opts.Titles {
		// https://github.com/charmbracelet/lipgloss/issues/261
		tbl = tbl.Headers(t.ColumnNames()...).BorderHeader(false)
	}
	fmt.Fprintln(w, tbl.String())
}

// getColors returns configured color values for table rendering.
func getColors(key string) (header string, even string, odd string) {
	header, _ = config.GetString(fmt.Sprintf("%s.title", key), "#f6be00")
	even, _ = config.GetString(fmt.Sprintf("%s.even", key), "#ffffff")
	odd, _ = config.GetString(fmt.Sprintf("%s.odd", key), "#00c8f0")
	return
}

// DumpExamples renders a two column table of example command usages.
func DumpExamples(w io.Writer, examples [][2]string) {
	if len(examples) == 0 {
		return
	}
	var rows [][]string
	for _, ex := range examples {
		rows = append(rows, []string{ex[0], ex[1]})
	}

	t := lgtable.New().
		BorderBottom(false).
		BorderTop(false).
		BorderLeft(false).
		BorderRight(false).
		Border(lipgloss.HiddenBorder()).
		Headers("Command", "Description").
		BorderHeader(false).
		Rows(rows...)

	fmt.Fprintln(w, t.String())
}

// InterfaceToString renders a cell as text. Only NULL is empty; the empty
// placeholder defaults to "".
func InterfaceToString(value interface{}, emptyValue ...string) string {
	empty := ""
	if len(emptyValue) > 0 {
		empty = emptyValue[0]
	}

	switch value := value.(type) {
	case nil:
		return empty
	case string:
		return value
	case int64:
		return strconv.FormatInt(value, 10)
	case int:
		return strconv.Itoa(value)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	case time.Time:
		return value.UTC().Format(time.RFC3339Nano)
	case decimal.Decimal:
		return value.String()
	case []byte:
		return fmt.Sprint(table.Plain(value))
	default:
		jsonBytes, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprintf("%v", value)
		}
		return string(jsonBytes)
	}
}

// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package filters

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/staranto/qcache/internal/table"
)

func TestBuildFilters(t *testing.T) {
	tests := []struct {
		name      string
		spec      string
		delimiter string
		want      []Filter
	}{
		{
			name: "empty spec",
		},
		{
			name: "single exact match filter",
			spec: "name=widget",
			want: []Filter{{Key: "name", Operand: "=", Target: "widget"}},
		},
		{
			name: "negated prefix match",
			spec: "sku!^ab-",
			want: []Filter{{Key: "sku", Operand: "^", Target: "ab-", Negate: true}},
		},
		{
			name: "multiple filters",
			spec: "name=test,price>5",
			want: []Filter{
				{Key: "name", Operand: "=", Target: "test"},
				{Key: "price", Operand: ">", Target: "5"},
			},
		},
		{
			name: "regex operand",
			spec: "name/^w.*t$",
			want: []Filter{{Key: "name", Operand: "/", Target: "^w.*t$"}},
		},
		{
			name: "invalid filters skipped",
			spec: "name=test,invalid-filter,=x,price<10",
			want: []Filter{
				{Key: "name", Operand: "=", Target: "test"},
				{Key: "price", Operand: "<", Target: "10"},
			},
		},
		{
			name:      "custom delimiter",
			spec:      "name=a,b;price>1",
			delimiter: ";",
			want: []Filter{
				{Key: "name", Operand: "=", Target: "a,b"},
				{Key: "price", Operand: ">", Target: "1"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.delimiter != "" {
				t.Setenv("QCACHE_FILTER_DELIM", tt.delimiter)
			}
			assert.Equal(t, tt.want, BuildFilters(tt.spec))
		})
	}
}

func TestCheckStringOperand(t *testing.T) {
	tests := []struct {
		value string
		spec  string
		want  bool
	}{
		{"widget", "k=widget", true},
		{"widget", "k!=widget", false},
		{"Widget", "k~widget", true},
		{"widget", "k^wid", true},
		{"widget", "k!^wid", false},
		{"widget", "k@dge", true},
		{"widget", "k>a", true},
		{"widget", "k<a", false},
		{"widget", "k/^w.+t$", true},
		{"widget", "k/([", false},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			f := BuildFilters(tt.spec)
			require.Len(t, f, 1)
			assert.Equal(t, tt.want, checkStringOperand(tt.value, f[0]))
		})
	}
}

func TestCheckNumericOperand(t *testing.T) {
	tests := []struct {
		value string
		spec  string
		want  bool
	}{
		{"10", "k=10.00", true},
		{"10", "k!=10", false},
		{"9", "k<10", true},
		// Text comparison would say "9" > "10".
		{"9", "k>10", false},
		{"12.50", "k>12.4", true},
		{"12", "k>abc", false},
		{"12", "k^1", true},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			f := BuildFilters(tt.spec)
			require.Len(t, f, 1)
			assert.Equal(t, tt.want, checkNumericOperand(tt.value, f[0]))
		})
	}
}

func TestPath(t *testing.T) {
	doc := gjson.Parse(`{"a.b": 1, "c": 2}`)
	assert.Equal(t, int64(1), doc.Get(Path("a.b")).Int())
	assert.Equal(t, int64(2), doc.Get(Path("c")).Int())
}

func products(t *testing.T) *table.Table {
	t.Helper()
	tbl := table.New(
		table.Column{Name: "name", Kind: table.String},
		table.Column{Name: "qty", Kind: table.Int},
		table.Column{Name: "price", Kind: table.Decimal},
		table.Column{Name: "added", Kind: table.Time},
		table.Column{Name: "active", Kind: table.Bool},
	)
	day := func(d int) time.Time { return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC) }
	require.NoError(t, tbl.Append("widget", int64(9), decimal.RequireFromString("9.50"), day(1), true))
	require.NoError(t, tbl.Append("gadget", int64(10), decimal.RequireFromString("10.25"), day(2), false))
	require.NoError(t, tbl.Append(nil, int64(11), nil, day(3), true))
	tbl.Metadata = map[string]string{"sql_query": "select"}
	return tbl
}

func names(tbl *table.Table) []any {
	var out []any
	for _, r := range tbl.Rows {
		out = append(out, r[0])
	}
	return out
}

func TestApply(t *testing.T) {
	tests := []struct {
		name string
		spec string
		want []any
	}{
		{"no filter", "", []any{"widget", "gadget", nil}},
		{"string", "name=widget", []any{"widget"}},
		{"null never matches", "name!=widget", []any{"gadget"}},
		{"int numeric", "qty>9", []any{"gadget", nil}},
		{"decimal numeric", "price>10", []any{"gadget"}},
		{"decimal equality", "price=9.5", []any{"widget"}},
		{"time text", "added^2024-01-02", []any{"gadget"}},
		{"bool", "active=true", []any{"widget", nil}},
		{"and", "qty>8,active=false", []any{"gadget"}},
		{"unknown key ignored", "nope=1", []any{"widget", "gadget", nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := products(t)
			got, err := Apply(src, tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(got))
			assert.Equal(t, src.Columns, got.Columns)
			assert.Equal(t, src.Metadata, got.Metadata)
			assert.Equal(t, 3, src.NumRows())
		})
	}
}

// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package validate

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/qcache/internal/table"
)

func users(t *testing.T) *table.Table {
	t.Helper()
	tbl := table.New(
		table.Column{Name: "id", Kind: table.Int},
		table.Column{Name: "name", Kind: table.String},
		table.Column{Name: "state", Kind: table.String},
	)
	require.NoError(t, tbl.Append(int64(1), "ann", "open"))
	require.NoError(t, tbl.Append(int64(2), nil, "closed"))
	require.NoError(t, tbl.Append(int64(2), "cat", "gone"))
	return tbl
}

func problems(err error) map[string][]string {
	out := map[string][]string{}
	var joined interface{ Unwrap() []error }
	if !errors.As(err, &joined) {
		return out
	}
	for _, e := range joined.Unwrap() {
		var ce *ColumnError
		if errors.As(e, &ce) {
			out[ce.Column] = append(out[ce.Column], ce.Problem)
		}
	}
	return out
}

func TestValidateOK(t *testing.T) {
	s, err := ParseSpec("id:int,name:string?,state:string[open|closed|gone]")
	require.NoError(t, err)
	assert.NoError(t, s.Validate(users(t)))
}

func TestValidateViolations(t *testing.T) {
	s, err := ParseSpec("id:int!,name:string,state:string[open|closed],email:string")
	require.NoError(t, err)

	got := problems(s.Validate(users(t)))
	assert.Equal(t, map[string][]string{
		"id":    {"2 rows with duplicated values"},
		"name":  {"1 missing value"},
		"state": {"rows with invalid values: gone"},
		"email": {"missing column"},
	}, got)
}

func TestValidateColumns(t *testing.T) {
	s := Schema{Columns: []ColumnSpec{{Name: "id", Kind: table.Float}}}

	got := problems(s.Validate(users(t)))
	assert.Equal(t, []string{"kind int does not match expected float"}, got["id"])
	assert.Equal(t, []string{"superfluous column"}, got["name"])
	assert.Equal(t, []string{"superfluous column"}, got["state"])

	s.AllowExtra = true
	got = problems(s.Validate(users(t)))
	assert.NotContains(t, got, "name")
}

func TestParseSpec(t *testing.T) {
	s, err := ParseSpec(" id:integer!? , state:text[a|b], ...")
	require.NoError(t, err)
	assert.True(t, s.AllowExtra)
	assert.Equal(t, []ColumnSpec{
		{Name: "id", Kind: table.Int, Nullable: true, Unique: true},
		{Name: "state", Kind: table.String, Enum: []string{"a", "b"}},
	}, s.Columns)
	assert.Equal(t, "id:int!?,state:string[a|b],...", s.String())

	for _, bad := range []string{"id", ":int", "id:what", "id:int,id:int", "s:string[a|b"} {
		_, err := ParseSpec(bad)
		assert.Error(t, err, bad)
	}
}

func TestValidateBounds(t *testing.T) {
	tbl := table.New(
		table.Column{Name: "id", Kind: table.Int},
		table.Column{Name: "price", Kind: table.Decimal},
		table.Column{Name: "ratio", Kind: table.Float},
	)
	require.NoError(t, tbl.Append(int64(1), decimal.RequireFromString("9.99"), 0.5))
	require.NoError(t, tbl.Append(int64(-1), decimal.RequireFromString("100"), 1.5))
	require.NoError(t, tbl.Append(int64(0), decimal.RequireFromString("100"), nil))

	s, err := ParseSpec("id:int[>=0],price:decimal[>0 <100],ratio:float[>=0 <=1]?")
	require.NoError(t, err)
	assert.Equal(t, "id:int[>=0],price:decimal[>0 <100],ratio:float[>=0 <=1]?", s.String())

	got := problems(s.Validate(tbl))
	assert.Equal(t, map[string][]string{
		"id":    {"rows with values outside >=0: -1"},
		"price": {"rows with values outside >0 <100: 100"},
		"ratio": {"rows with values outside >=0 <=1: 1.5"},
	}, got)

	s, err = ParseSpec("id:int[>-2],price:decimal[<=100],ratio:float?")
	require.NoError(t, err)
	assert.NoError(t, s.Validate(tbl))
}

func TestParseSpecBounds(t *testing.T) {
	for _, bad := range []string{
		"n:string[>0]",
		"n:int[>x]",
		"n:int[>0 >1]",
		"n:int[<1 <=2]",
		"n:int[<1 5]",
		"n:int[>]",
	} {
		_, err := ParseSpec(bad)
		assert.Error(t, err, bad)
	}
}

// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package attrs

import (
	"embed"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/staranto/qcache/internal/table"
)

//go:embed testdata/*.yaml
var testDataFS embed.FS

// testSetCase represents a single test case for TestAttrList_Set.
type testSetCase struct {
	Name      string `yaml:"name"`
	Initial   []Attr `yaml:"initial"`
	Value     string `yaml:"value"`
	WantLen   int    `yaml:"wantLen"`
	WantAttrs []Attr `yaml:"wantAttrs"`
	WantErr   bool   `yaml:"wantErr"`
}

// testTransformCase represents a single test case for TestAttr_Transform.
type testTransformCase struct {
	Name          string            `yaml:"name"`
	TransformSpec string            `yaml:"transformSpec"`
	Input         interface{}       `yaml:"input"`
	EnvVars       map[string]string `yaml:"envVars"`
	Want          interface{}       `yaml:"want"`
}

// testGlobalTransformCase represents a test case for SetGlobalTransformSpec.
type testGlobalTransformCase struct {
	Name      string   `yaml:"name"`
	Initial   []Attr   `yaml:"initial"`
	WantSpecs []string `yaml:"wantSpecs"`
}

// testStringCase represents a test case for AttrList_String.
type testStringCase struct {
	Name     string `yaml:"name"`
	AttrList []Attr `yaml:"attrList"`
	Want     string `yaml:"want"`
}

// loadTestData loads test data from embedded YAML files.
func loadTestData(filename string, v any) error {
	data, err := testDataFS.ReadFile("testdata/" + filename)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, v)
}

func TestAttrList_Set(t *testing.T) {
	var tests []testSetCase
	err := loadTestData("set_cases.yaml", &tests)
	require.NoError(t, err)
	require.NotEmpty(t, tests)

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			a := AttrList(tt.Initial)
			err := a.Set(tt.Value)

			if tt.WantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.Len(t, a, tt.WantLen)

			for i, want := range tt.WantAttrs {
				assert.Equal(t, want.Key, a[i].Key, "attr[%d].Key", i)
				assert.Equal(t, want.OutputKey, a[i].OutputKey, "attr[%d].OutputKey", i)
				assert.Equal(t, want.Include, a[i].Include, "attr[%d].Include", i)
				assert.Equal(t, want.TransformSpec, a[i].TransformSpec, "attr[%d].TransformSpec", i)
			}
		})
	}
}

func TestAttrList_SetGlobalTransformSpec(t *testing.T) {
	var tests []testGlobalTransformCase
	err := loadTestData("global_transform_cases.yaml", &tests)
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			a := AttrList(tt.Initial)
			require.NoError(t, a.SetGlobalTransformSpec())
			require.Len(t, a, len(tt.WantSpecs))

			for i, wantSpec := range tt.WantSpecs {
				assert.Equal(t, wantSpec, a[i].TransformSpec, "attr[%d].TransformSpec", i)
			}
		})
	}
}

func TestAttr_Transform(t *testing.T) {
	var tests []testTransformCase
	err := loadTestData("transform_cases.yaml", &tests)
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			for k, v := range tt.EnvVars {
				t.Setenv(k, v)
			}

			attr := Attr{TransformSpec: tt.TransformSpec}
			got := attr.Transform(tt.Input)
			assert.Equal(t, tt.Want, got)
		})
	}
}

func TestAttrList_String(t *testing.T) {
	var tests []testStringCase
	err := loadTestData("string_cases.yaml", &tests)
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			a := AttrList(tt.AttrList)
			assert.Equal(t, tt.Want, a.String())
		})
	}
}

func TestAttrList_Type(t *testing.T) {
	a := AttrList{}
	assert.Equal(t, "list", a.Type())
}

// TestAttr_Transform_TimezonePriority tests that QCACHE_TZ wins over TZ.
func TestAttr_Transform_TimezonePriority(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		input   any
		want    any
	}{
		{
			name:    "TZ env var used",
			envVars: map[string]string{"TZ": "America/Los_Angeles", "QCACHE_TZ": ""},
			input:   "2024-01-15T10:00:00Z",
			want:    "2024-01-15T02:00:00PST",
		},
		{
			name:    "QCACHE_TZ preferred",
			envVars: map[string]string{"TZ": "America/Los_Angeles", "QCACHE_TZ": "UTC"},
			input:   "2024-01-15T10:00:00Z",
			want:    "2024-01-15T10:00:00UTC",
		},
		{
			name:    "no timezone - passthrough",
			envVars: map[string]string{"TZ": "", "QCACHE_TZ": ""},
			input:   "2024-01-15T10:00:00Z",
			want:    "2024-01-15T10:00:00Z",
		},
		{
			name:    "unknown timezone - passthrough",
			envVars: map[string]string{"TZ": "", "QCACHE_TZ": "Nowhere/Special"},
			input:   "2024-01-15T10:00:00Z",
			want:    "2024-01-15T10:00:00Z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			attr := Attr{TransformSpec: "t"}
			assert.Equal(t, tt.want, attr.Transform(tt.input))
		})
	}

	t.Run("time values keep their kind", func(t *testing.T) {
		t.Setenv("QCACHE_TZ", "America/Los_Angeles")
		attr := Attr{TransformSpec: "t"}
		in := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
		got, ok := attr.Transform(in).(time.Time)
		require.True(t, ok)
		assert.True(t, in.Equal(got))
		assert.Equal(t, "America/Los_Angeles", got.Location().String())
	})
}

func products(t *testing.T) *table.Table {
	t.Helper()
	tbl := table.New(
		table.Column{Name: "id", Kind: table.Int},
		table.Column{Name: "name", Kind: table.String},
		table.Column{Name: "secret", Kind: table.String},
	)
	require.NoError(t, tbl.Append(int64(1), "Widget", "x"))
	require.NoError(t, tbl.Append(int64(2), "Gadget", "y"))
	tbl.Metadata = map[string]string{"sql_query": "select 1"}
	return tbl
}

func TestProject(t *testing.T) {
	tests := []struct {
		name      string
		spec      string
		wantCols  []table.Column
		wantFirst []any
		wantErr   bool
	}{
		{
			name:      "empty keeps everything",
			spec:      "",
			wantCols:  products(t).Columns,
			wantFirst: []any{int64(1), "Widget", "x"},
		},
		{
			name:      "select and reorder",
			spec:      "name,id",
			wantCols:  []table.Column{{Name: "name", Kind: table.String}, {Name: "id", Kind: table.Int}},
			wantFirst: []any{"Widget", int64(1)},
		},
		{
			name:      "rename and transform",
			spec:      "name:product:U",
			wantCols:  []table.Column{{Name: "product", Kind: table.String}},
			wantFirst: []any{"WIDGET"},
		},
		{
			name:      "exclusion only",
			spec:      "!secret",
			wantCols:  []table.Column{{Name: "id", Kind: table.Int}, {Name: "name", Kind: table.String}},
			wantFirst: []any{int64(1), "Widget"},
		},
		{
			name:      "global transform with override",
			spec:      "*::u,secret::l",
			wantCols:  products(t).Columns,
			wantFirst: []any{int64(1), "WIDGET", "x"},
		},
		{name: "unknown column", spec: "nope", wantErr: true},
		{name: "output name collision", spec: "name:x,secret:x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := Parse(tt.spec)
			require.NoError(t, err)

			src := products(t)
			got, err := list.Project(src)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCols, got.Columns)
			assert.Equal(t, tt.wantFirst, got.Rows[0])
			assert.Equal(t, 2, got.NumRows())
			assert.Equal(t, "select 1", got.Metadata["sql_query"])
			assert.Equal(t, "Widget", src.Rows[0][1], "input untouched")
		})
	}
}

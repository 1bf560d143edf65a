// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package attrs

import (
	"fmt"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"

	"github.com/staranto/qcache/internal/table"
)

// Attr selects one result column for output.
type Attr struct {
	// The result column the value is taken from.
	Key string `yaml:"key"`
	// Should this Attr be included in output or is it just
	// intended for filtering and sorting?
	Include bool `yaml:"include"`
	// The column name to use in the output. This is also the title when
	// output=text.
	OutputKey string `yaml:"outputKey"`
	// Transformation spec to apply to the output value.
	TransformSpec string `yaml:"transformSpec"`
}

var lengthRe = regexp.MustCompile(`-?\d+`)

// Transform applies the transform spec to value. Case and length transforms
// apply to strings; t converts times to the zone named by QCACHE_TZ or TZ.
func (a *Attr) Transform(value any) any {
	if tm, ok := value.(time.Time); ok {
		if strings.ContainsAny(a.TransformSpec, "tT") {
			if loc := location(); loc != nil {
				return tm.In(loc)
			}
		}
		return tm
	}

	result, ok := value.(string)
	if !ok {
		return value
	}

	// Convert UTC time to local.
	if strings.ContainsAny(a.TransformSpec, "tT") {
		// We're only going to convert if we've specifically told what TZ to use.
		// If we haven't, we'll just use the value as is.
		if loc := location(); loc != nil {
			t, err := time.Parse(time.RFC3339, result)
			if err == nil {
				result = t.In(loc).Format("2006-01-02T15:04:05MST")
			} else {
				log.Error("failed to parse time: " + result)
				a.TransformSpec = strings.ReplaceAll(a.TransformSpec, "t", "")
				a.TransformSpec = strings.ReplaceAll(a.TransformSpec, "T", "")
			}
		}
	}

	// We need to know which case transformation appears last.  This covers the
	// case where there has been a global case transformation prepended to the
	// attrs transformation and, thus, allows the attr's to carry more weight.
	// IOW...  --attrs '*::U,name::l' will be lower case.
	lastL := strings.LastIndexAny(a.TransformSpec, "lL")
	lastU := strings.LastIndexAny(a.TransformSpec, "uU")

	if lastL > lastU {
		result = strings.ToLower(result)
	} else if lastU > lastL {
		result = strings.ToUpper(result)
	}

	// Is it a length-based transformation?
	if a.TransformSpec != "" {
		// Same logic as above re: case.  This allows a more specific length
		// transformation to override a global one.
		match := lengthRe.FindAllString(a.TransformSpec, -1)
		if len(match) != 0 {
			// Take the last (overriding) match.
			l, _ := strconv.Atoi(match[len(match)-1])
			abs := int(math.Abs(float64(l)))
			if len(result) > abs {
				if l < 0 {
					lr := abs/2 - 1 //nolint:mnd
					left := result[0:lr]
					right := result[len(result)-lr:]
					result = left + ".." + right
				} else {
					result = result[:l]
				}
			}
		}
	}

	return result
}

// location is the zone times are converted to, or nil.
func location() *time.Location {
	tz := os.Getenv("QCACHE_TZ")
	if tz == "" {
		tz = os.Getenv("TZ")
	}
	if tz == "" {
		return nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.WithError(err).Debugf("unknown timezone %s", tz)
		return nil
	}
	return loc
}

type AttrList []Attr

// Return a string representation of the AttrList.  This should match the format
// of the original --attrs flag.
func (a *AttrList) String() string {
	result := make([]string, 0, len(*a))
	for _, attr := range *a {
		key := attr.Key
		if !attr.Include && key != "*" {
			key = "!" + key
		}
		result = append(result, fmt.Sprintf("%s:%s:%s", key, attr.OutputKey, attr.TransformSpec))
	}
	return strings.Join(result, ",")
}

// Set parses each spec from the --attrs flag and adds it to the AttrList.
//
// A spec is column[:output[:transform]]. A leading ! keeps the column out of
// the output, and * stands for every column.
func (a *AttrList) Set(value string) error {
	if value == "" {
		return nil
	}

	const (
		keyIdx = iota
		outputIdx
		transformIdx
	)

	specs := strings.Split(value, ",")
specloop:
	for _, spec := range specs {
		if strings.TrimSpace(spec) == "" {
			continue
		}

		attr := Attr{
			Include: true,
		}

		fields := strings.Split(spec, ":")
		if len(fields) > transformIdx+1 {
			return fmt.Errorf("bad attr %q: want column[:output[:transform]]", spec)
		}

		// The first field is the result column.  If it begins with a !, it is
		// excluded from the output.
		attr.Key = strings.TrimSpace(fields[keyIdx])
		if strings.HasPrefix(attr.Key, "!") {
			attr.Include = false
			attr.Key = attr.Key[1:]
		}
		if attr.Key == "" {
			return fmt.Errorf("bad attr %q: missing column", spec)
		}

		if attr.Key == "*" {
			attr.Include = false
		}

		attr.OutputKey = attr.Key
		if len(fields) > outputIdx && strings.TrimSpace(fields[outputIdx]) != "" {
			attr.OutputKey = strings.TrimSpace(fields[outputIdx])
		}

		if len(fields) > transformIdx {
			attr.TransformSpec = strings.TrimSpace(fields[transformIdx])
		}

		// If the attr already exists in the list (because it's one of the defaults
		// for cmd or the user double-entered it) just apply the OutputKey, Include
		// and TransformSpec to the existing Attr.
		for i := range *a {
			if (*a)[i].Key == attr.Key || (*a)[i].OutputKey == attr.Key {
				(*a)[i].Include = attr.Include
				(*a)[i].OutputKey = attr.OutputKey
				(*a)[i].TransformSpec = attr.TransformSpec
				continue specloop
			}
		}

		*a = append(*a, attr)
	}

	return nil
}

// SetGlobalTransformSpec inserts a global transform spec into the front of all
// attrs in the list.
func (a *AttrList) SetGlobalTransformSpec() error {
	spec := ""

	// Find the global transform spec.  If there is more than one, we're not
	// dealing with it and just taking the first.
	for i := range *a {
		if (*a)[i].Key == "*" {
			spec = (*a)[i].TransformSpec
			break
		}
	}

	// Return early if there is no global transform spec.
	if spec == "" {
		return nil
	}

	for i := range *a {
		if (*a)[i].Key == "*" {
			continue
		}
		(*a)[i].TransformSpec = spec + "," + (*a)[i].TransformSpec
	}

	return nil
}

func (a *AttrList) Type() string {
	return "list"
}

// Parse is Set on an empty list followed by SetGlobalTransformSpec.
func Parse(value string) (AttrList, error) {
	var a AttrList
	if err := a.Set(value); err != nil {
		return nil, err
	}
	if err := a.SetGlobalTransformSpec(); err != nil {
		return nil, err
	}
	return a, nil
}

// Project returns the columns of t the list selects, renamed and transformed.
// Without a * entry only the included attrs are output, in list order. With
// one, or when every entry is a ! exclusion, all other columns are output in
// table order.
func (a AttrList) Project(t *table.Table) (*table.Table, error) {
	if len(a) == 0 {
		return t, nil
	}

	var global *Attr
	included := false
	byKey := make(map[string]*Attr, len(a))
	for i := range a {
		if a[i].Key == "*" {
			global = &a[i]
			continue
		}
		included = included || a[i].Include
		if t.ColumnIndex(a[i].Key) < 0 {
			return nil, fmt.Errorf("unknown column %q in attrs (have %s)", a[i].Key, strings.Join(t.ColumnNames(), ","))
		}
		byKey[a[i].Key] = &a[i]
	}

	type pick struct {
		index int
		attr  *Attr
	}
	// Only exclusions means everything else.
	if global == nil && !included {
		global = &Attr{Key: "*"}
	}

	var picks []pick
	if global != nil {
		for i, c := range t.Columns {
			attr, ok := byKey[c.Name]
			if !ok {
				attr = &Attr{Key: c.Name, Include: true, OutputKey: c.Name, TransformSpec: global.TransformSpec}
			}
			if attr.Include {
				picks = append(picks, pick{i, attr})
			}
		}
	} else {
		for i := range a {
			if a[i].Include {
				picks = append(picks, pick{t.ColumnIndex(a[i].Key), &a[i]})
			}
		}
	}

	out := &table.Table{Metadata: t.Metadata}
	seen := map[string]bool{}
	for _, p := range picks {
		if seen[p.attr.OutputKey] {
			return nil, fmt.Errorf("attrs name column %q twice", p.attr.OutputKey)
		}
		seen[p.attr.OutputKey] = true
		out.Columns = append(out.Columns, table.Column{Name: p.attr.OutputKey, Kind: t.Columns[p.index].Kind})
	}

	for _, row := range t.Rows {
		cells := make([]any, len(picks))
		for i, p := range picks {
			cells[i] = p.attr.Transform(row[p.index])
		}
		out.Rows = append(out.Rows, cells)
	}

	return out, nil
}

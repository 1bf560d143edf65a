// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"errors"
	"fmt"
	"strings"
)

var errUnbalanced = errors.New("unbalanced braces")

// Fields returns the replacement field names in tmpl, in order of appearance.
// Fields are written {name}; {{ and }} stand for literal braces.
func Fields(tmpl string) ([]string, error) {
	var fields []string
	err := walkTemplate(tmpl, func(lit string) {}, func(name string) error {
		fields = append(fields, name)
		return nil
	})
	return fields, err
}

// Format substitutes the bound arguments into tmpl. A field without a bound
// argument is a BindingError.
func Format(tmpl string, args Arguments) (string, error) {
	var b strings.Builder
	err := walkTemplate(tmpl,
		func(lit string) { b.WriteString(lit) },
		func(name string) error {
			v, ok := args[name]
			if !ok {
				return &BindingError{Name: name, Reason: "template field has no bound argument"}
			}
			fmt.Fprint(&b, v)
			return nil
		})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

func walkTemplate(tmpl string, literal func(string), field func(string) error) error {
	for i := 0; i < len(tmpl); {
		switch tmpl[i] {
		case '{':
			if strings.HasPrefix(tmpl[i:], "{{") {
				literal("{")
				i += 2
				continue
			}
			end := strings.IndexByte(tmpl[i:], '}')
			if end < 0 {
				return fmt.Errorf("%w in %q", errUnbalanced, tmpl)
			}
			name := tmpl[i+1 : i+end]
			if name == "" || strings.ContainsAny(name, "{") {
				return fmt.Errorf("bad field %q in %q", name, tmpl)
			}
			if strings.ContainsAny(name, ":!") {
				return fmt.Errorf("field %q in %q: format specs and conversions are not supported", name, tmpl)
			}
			if err := field(name); err != nil {
				return err
			}
			i += end + 1
		case '}':
			if !strings.HasPrefix(tmpl[i:], "}}") {
				return fmt.Errorf("%w in %q", errUnbalanced, tmpl)
			}
			literal("}")
			i += 2
		default:
			j := strings.IndexAny(tmpl[i:], "{}")
			if j < 0 {
				j = len(tmpl) - i
			}
			literal(tmpl[i : i+j])
			i += j
		}
	}
	return nil
}

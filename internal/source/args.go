// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"fmt"
	"strings"
)

// Named is a keyword argument. Anything else passed to an Executor method is
// positional.
type Named struct {
	Name  string
	Value any
}

// Kw builds a keyword argument.
func Kw(name string, value any) Named {
	return Named{Name: name, Value: value}
}

// Arguments maps parameter names to the values bound for one call.
type Arguments map[string]any

// String returns the bound value of name formatted with %v, or "".
func (a Arguments) String(name string) string {
	v, ok := a[name]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// Constructor produces a query string from arguments. Params lists the
// parameter names in positional order; Build must be a pure function of its
// arguments.
type Constructor struct {
	Name     string
	Params   []string
	Defaults map[string]any
	Build    func(Arguments) (string, error)
}

// bind unifies positional and keyword arguments into one name -> value map.
func (c Constructor) bind(args []any) (Arguments, error) {
	bound := make(Arguments, len(c.Params))
	declared := make(map[string]bool, len(c.Params))
	for _, p := range c.Params {
		declared[p] = true
	}

	pos := 0
	for _, a := range args {
		if kw, ok := a.(Named); ok {
			if !declared[kw.Name] {
				return nil, &BindingError{Name: kw.Name, Reason: "unexpected keyword argument"}
			}
			if _, dup := bound[kw.Name]; dup {
				return nil, &BindingError{Name: kw.Name, Reason: "multiple values for argument"}
			}
			bound[kw.Name] = kw.Value
			continue
		}
		if pos >= len(c.Params) {
			return nil, &BindingError{Reason: fmt.Sprintf("takes %d positional arguments but more were given", len(c.Params))}
		}
		name := c.Params[pos]
		if _, dup := bound[name]; dup {
			return nil, &BindingError{Name: name, Reason: "multiple values for argument"}
		}
		bound[name] = a
		pos++
	}

	var missing []string
	for _, p := range c.Params {
		if _, ok := bound[p]; ok {
			continue
		}
		if d, ok := c.Defaults[p]; ok {
			bound[p] = d
			continue
		}
		missing = append(missing, p)
	}
	if len(missing) > 0 {
		return nil, &BindingError{
			Name:   strings.Join(missing, ","),
			Reason: "missing required argument",
		}
	}
	return bound, nil
}

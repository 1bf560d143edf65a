// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package source

import "fmt"

// ConfigurationError reports a cache policy or option that can never work,
// detected when an Executor is bound.
type ConfigurationError struct {
	Setting string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %q: %s", e.Setting, e.Reason)
}

// BindingError reports call arguments that do not fit the constructor's
// declared parameters or the cache path template.
type BindingError struct {
	Name   string
	Reason string
}

func (e *BindingError) Error() string {
	if e.Name == "" {
		return "cannot bind arguments: " + e.Reason
	}
	return fmt.Sprintf("cannot bind %q: %s", e.Name, e.Reason)
}

// ValidationError wraps a failed result check. It is returned whether the
// result came from the cache or from the backend.
type ValidationError struct {
	Query string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("result of %s failed validation: %v", e.Query, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

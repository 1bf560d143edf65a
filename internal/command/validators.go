// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/staranto/qcache/internal/attrs"
	"github.com/staranto/qcache/internal/backend"
	"github.com/staranto/qcache/internal/config"
	"github.com/staranto/qcache/internal/output"
)

type FlagValidatorType func(any) error

func FlagValidators(value any, validators ...FlagValidatorType) error {
	for _, v := range validators {
		if err := v(value); err != nil {
			return err
		}
	}
	return nil
}

// JammedFlagValidator verifies that the arg following a flag does not begin
// with '--'.  urfave/cli allows this and I don't see how to turn it off.
func JammedFlagValidator(value any) error {
	if strings.HasPrefix(value.(string), "--") {
		return errors.New("must not begin with '--'")
	}
	return nil
}

func OutputValidator(value any) error {
	if !slices.Contains(output.Formats, value.(string)) {
		return fmt.Errorf("must be one of %v", output.Formats)
	}
	return nil
}

// DriverValidator accepts an empty value, which defers to the config file.
func DriverValidator(value any) error {
	s := value.(string)
	if s == "" {
		return nil
	}
	switch strings.ToLower(s) {
	case "sqlite", "sqlite3", "postgres", "postgresql", "pgx", "mysql":
		return nil
	}
	return fmt.Errorf("must be one of %v", backend.Drivers())
}

func DurationValidator(value any) error {
	s := value.(string)
	if s == "" {
		return nil
	}
	d, err := config.ParseDuration(s)
	if err != nil {
		return err
	}
	if d < 0 {
		return errors.New("must not be negative")
	}
	return nil
}

func AttrsValidator(value any) error {
	_, err := attrs.Parse(value.(string))
	return err
}

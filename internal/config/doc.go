// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package config loads qcache.yaml: dotted-key settings looked up under the
// active subcommand first, and the named query definitions.
package config

// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package output provides sorting and emission of query results as text
// tables, JSON, YAML or raw JSON with metadata.
package output

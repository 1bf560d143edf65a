// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package table holds the in-memory tabular result shared by the execution
// backends, the cache file codec and the output renderers.
package table

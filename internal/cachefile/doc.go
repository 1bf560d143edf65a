// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package cachefile reads and writes cache entries: parquet files whose footer
// carries the producing query and its start and finish timestamps.
package cachefile

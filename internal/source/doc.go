// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package source wraps query constructors in Executors that cache their
// results on disk. An entry is reused only when it was built from the
// identical query string and is younger than the executor's TTL.
package source

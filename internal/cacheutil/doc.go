// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package cacheutil locates the cache directory and maintains the entries in
// it: key hashing, listing and age based purging.
package cacheutil

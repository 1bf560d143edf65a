// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// qcache is the main package for the qcache command line tool. It runs named
// SQL queries from the config file through a parquet result cache.
package main

// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package backend executes queries against SQLite, PostgreSQL and MySQL
// through database/sql and converts the rows into tables.
package backend

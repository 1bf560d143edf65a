// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package command defines the CLI command set for qcache. It wires flags,
// validators and actions for the subcommands, and resolves named queries
// from the config file into cached executors.
package command

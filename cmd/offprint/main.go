// Copyright 2026 The Offprint Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/offprint-labs/offprint/cmd/offprint/cli"
	"github.com/offprint-labs/offprint/cmd/offprint/commands"
)

func main() {
	if err := run(); err != nil {
		// Commands that print their own output (like accepts) return an
		// ExitError with the desired exit code. Don't print a redundant
		// "error:" line for those.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if cli.IsValidation(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run() error {
	return commands.Root().Execute(os.Args[1:])
}

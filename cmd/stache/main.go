// Package main is the entry point for the stache CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/stache/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

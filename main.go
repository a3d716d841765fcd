// Package main provides the entry point for via-stitcher.
package main

import (
	"fmt"
	"os"

	"via-stitcher/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(err))
		os.Exit(1)
	}
}

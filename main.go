// Package main is the entry point for the logforge dataset generator.
package main

import (
	"fmt"
	"os"

	"logforge/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

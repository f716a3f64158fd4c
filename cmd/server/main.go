package main

import (
	"fmt"
	"os"
)

// main only runs the command tree; wiring lives in app.go and the
// subcommands so that each one builds just what it needs.
func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

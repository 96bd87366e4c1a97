package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/holos-company/etldrivers/internal/cli"
	"github.com/holos-company/etldrivers/pkg/etl"
)

func main() {
	// Recover from panics to ensure graceful exits with stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n%s\n", r, debug.Stack())
			os.Exit(etl.ExitPanic)
		}
	}()

	if err := cli.Execute(); err != nil {
		os.Exit(etl.ExitCodeForError(err))
	}
}

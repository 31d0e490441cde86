package main

// ============================================================================
// mlfq - command line entry point
// ============================================================================
//
//   go build -o bin/mlfq ./cmd/mlfq
//   ./bin/mlfq --in=tasks.txt --out=report.txt
//   ./bin/mlfq serve --config configs/default.yaml
//
// Build-time version injection:
//   go build -ldflags "-X main.version=1.0.0" ./cmd/mlfq
//
// ============================================================================

import (
	"fmt"
	"os"

	"github.com/ChuLiYu/mlfq-sim/internal/cli"
)

var version = ""

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", r)
			os.Exit(cli.ExitSimulation)
		}
	}()

	if version != "" {
		cli.Version = version
	}
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}

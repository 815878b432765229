//go:build linux

// testfs-helper is a binary helper for E2E tests that runs inside
// containers. It provides one mode:
//
//	testfs-helper sow   - Create fixture files from JSON spec (stdin)
//
// This is a thin wrapper around the testfs package's sow functions.
package main

import (
	"fmt"
	"os"

	"github.com/pdeblois/crunch/internal/testfs"
)

func main() {
	if len(os.Args) < 2 || os.Args[1] != "sow" {
		fatalf("usage: testfs-helper sow")
	}

	// Root is "/" since we're in a container with actual tmpfs mounts.
	if err := testfs.SowFromReader(os.Stdin, "/"); err != nil {
		fatalf("sow: %v", err)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "testfs-helper: "+format+"\n", args...)
	os.Exit(1)
}

// cmd/verifyclosure/main.go — Offline tamper check for a closure artifact.
// Recomputes the SHA-256 of a PDF on disk and compares it against the digest
// recorded in the document row (or one passed on the command line).
// Usage: go run cmd/verifyclosure/main.go <artifact-path> <expected-hash>
package main

import (
	"fmt"
	"os"

	"easypos/internal/infra"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, "usage: verifyclosure <artifact-path> <expected-hash>")
		os.Exit(2)
	}
	path, expected := os.Args[1], os.Args[2]

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", path, err)
		os.Exit(1)
	}

	computed := infra.DigestHex(data)
	if computed != expected {
		fmt.Printf("TAMPERED\nexpected: %s\ncomputed: %s\n", expected, computed)
		os.Exit(1)
	}
	fmt.Printf("OK %s\n", computed)
}

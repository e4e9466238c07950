// Package main is the entry point for quota-autopay. It wires configuration
// and services and runs either the Bubble Tea UI or a headless command.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

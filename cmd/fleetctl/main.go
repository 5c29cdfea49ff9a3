// Command fleetctl drives the compliance API from a terminal: bulk driver
// imports, document uploads, AI scans and credit balance.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Command atlas tracks a supplement stack, reads product labels and asks a
// generative model for an analysis of the stack.
package main

import (
	"fmt"
	"os"
)

// Set by the release build.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// Command vsearch is the reference CLI driver for the IVF-Flat and
// Vamana engines: build subcommands turn raw vector arrays into a
// persisted group, and query subcommands serve top-k search against a
// built group, optionally scoring recall against ground truth.
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	ctx := context.Background()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "nbtest: %v\n", err)
		if errors.Is(err, errChecksFailed) {
			os.Exit(1)
		}
		// Harness breakage (unreadable root, unwritable results, bad
		// flags) is distinguishable from failing notebooks.
		os.Exit(2)
	}
}

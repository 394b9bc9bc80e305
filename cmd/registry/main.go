package main

import (
	"fmt"
	"os"

	"github.com/distribution/drawbridge/registry"
)

func main() {
	if err := registry.RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

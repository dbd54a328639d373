// Package main is the entry point of the moose CLI.
package main

import (
	"os"

	"github.com/jlllyfish/Moose-railway/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

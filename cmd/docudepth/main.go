// Package main provides the entry point for the docudepth CLI.
package main

import (
	"os"

	"github.com/docudepthai/docudepth/cmd/docudepth/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

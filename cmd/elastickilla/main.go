// Package main provides the entry point for the elastickilla CLI.
package main

import (
	"os"

	"github.com/elastickilla/elastickilla/cmd/elastickilla/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

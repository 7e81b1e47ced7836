// Package main provides the entry point for the semdesk CLI.
package main

import (
	"os"

	"github.com/kailas-cloud/semdesk/cmd/semdesk/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

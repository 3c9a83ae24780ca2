// Package main is the entry point for stashbak.
package main

import (
	"errors"
	"os"

	"github.com/pfries/stashbak/internal/config"
)

// Exit codes. ExitSetup signals that a configuration template was written
// and the user must edit it before a backup can run.
const (
	ExitError = 1
	ExitSetup = 3
)

func main() {
	if err := Execute(); err != nil {
		if errors.Is(err, config.ErrSetupRequired) {
			os.Exit(ExitSetup)
		}
		os.Exit(ExitError)
	}
}

// Command ledgerctl is a thin CLI wrapper around the ledgerkernel core.
// It has no persistence layer of its own — each invocation builds a
// fresh in-memory Ledger, replays a scenario file against it, and
// reports the outcome, in the style of a Cobra-based devnet CLI.
package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.WithError(err).Error("ledgerctl: command failed")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

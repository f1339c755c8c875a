// Command ledger is the bookkeeping CLI.
package main

import (
	"os"

	"github.com/kilupskalvis/ledgerstore/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

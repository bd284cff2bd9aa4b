// Command territoryctl runs maintenance tasks against the territorydesk
// database: schema migrations, one-shot reconciliation jobs and minting
// service credentials for external schedulers.
//
// It reads the same environment (and .env file) as the server.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

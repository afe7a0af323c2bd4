// Command dajeum runs the identity registry, certificate issuer and service
// token ledger.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/dajeum/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}

// match-service scores candidates against job offers, creates matches
// when a pair clears the job's threshold, notifies both sides and drives
// each match through its review lifecycle.
package main

import (
	"fmt"
	"os"

	"jobmate/match-service/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "match-service: %v\n", err)
		os.Exit(1)
	}
}

// corrnet builds, filters and queries gene co-expression networks.
//
// Networks are built from expression matrices with the highest reciprocal
// rank (HRR) or mutual rank (MR) heuristics, scored against codon usage
// and indexed for neighborhood queries from the CLI or an MCP client.
package main

import (
	"fmt"
	"os"

	"github.com/Benny93/corrnet-go/cmd"
)

func main() {
	cli := cmd.NewCLI()

	if err := cli.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

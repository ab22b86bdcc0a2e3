// sgindex - Discriminative subgraph features for graph containment search.
//
// sgindex mines small labeled patterns that split a graph database well,
// encodes each graph as a 0/1 vector recording which patterns it contains
// and prunes containment queries to the database graphs that can still
// contain them.
package main

import (
	"fmt"
	"os"

	"github.com/Benny93/sgindex/cmd"
)

func main() {
	cli := cmd.NewCLI()

	if err := cli.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

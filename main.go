package main

import (
	"github.com/seclens/cvecurator/cmd"
)

func main() {
	// All command-line parsing, configuration, and execution is handled by
	// the root command in the cmd package.
	cmd.Execute()
}

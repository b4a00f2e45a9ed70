package main

import (
	"fmt"
	"os"

	"github.com/devrev/txstore/internal/cli"
	"github.com/devrev/txstore/internal/repoerr"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(repoerr.CodeOf(err).ExitCode())
	}
}

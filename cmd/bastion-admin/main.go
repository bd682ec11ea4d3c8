package main

import (
	"fmt"
	"os"

	"github.com/platinummonkey/bastion/pkg/cli"
)

func main() {
	rootCmd := cli.NewRootCommand(nil)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags
var version = "dev"

var rootCmd = &cobra.Command{
	Use:     "tuffyctl",
	Short:   "Provision PostgreSQL for the Tuffy engine",
	Long:    `A tool for provisioning and inspecting the PostgreSQL backend used by the Tuffy MLN engine.`,
	Version: version,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}

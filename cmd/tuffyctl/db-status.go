package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/linqs/tuffyctl/pkg/config"
	"github.com/linqs/tuffyctl/pkg/db"
	"github.com/linqs/tuffyctl/pkg/provision"
)

// dbStatusCmd represents the db status command
var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report the provisioning state of the server",
	Long: `Report the provisioning state of the server.

Checks whether the target database exists, whether the owner role exists with
the expected attributes (superuser, no-inherit, login), and which of the
required extensions are installed.

Exits nonzero unless the server is fully provisioned.

Example:
  tuffyctl db status`,
	Run: func(cmd *cobra.Command, args []string) {
		provisioned, err := showStatus()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to get status: %v\n", err)
			os.Exit(1)
		}
		if !provisioned {
			os.Exit(1)
		}
	},
}

func init() {
	dbCmd.AddCommand(dbStatusCmd)
}

func showStatus() (bool, error) {
	settings, err := config.Load()
	if err != nil {
		return false, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return false, fmt.Errorf("invalid configuration: %w", err)
	}

	// Extensions live in the target database, so the inspection connection
	// goes there. If the database is gone the connection itself fails and
	// nothing is provisioned.
	gormDB, err := db.Connect(settings, settings.Database)
	if err != nil {
		fmt.Printf("Database %q exists: false (%v)\n", settings.Database, err)
		return false, nil
	}

	status, err := provision.Inspect(gormDB, settings)
	if err != nil {
		return false, err
	}

	fmt.Print(status.FormatText())
	if status.Provisioned() {
		fmt.Println("Server is fully provisioned")
		return true, nil
	}

	fmt.Println("Server is NOT fully provisioned")
	return false, nil
}

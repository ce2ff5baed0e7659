package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/linqs/tuffyctl/pkg/config"
	"github.com/linqs/tuffyctl/pkg/db"
	"github.com/linqs/tuffyctl/pkg/provision"
)

// dbProvisionCmd represents the db provision command
var dbProvisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Drop and recreate the Tuffy database, role and extensions",
	Long: `Drop and recreate the Tuffy database, role and extensions.

This command connects as the administrative user (POSTGRES_USER, default
"postgres"), drops and recreates the target database, drops and recreates the
owner role as a LOGIN SUPERUSER NOINHERIT role, grants it all privileges on
the database, and enables the configured extensions.

Re-running produces the same final state regardless of what existed before.
Any statement failure aborts the run with a nonzero exit code.

Example:
  tuffyctl db provision
  tuffyctl db provision --log`,
	Run: func(cmd *cobra.Command, args []string) {
		record, _ := cmd.Flags().GetBool("log")

		if err := runProvision(cmd.Context(), record); err != nil {
			fmt.Fprintf(os.Stderr, "Provisioning failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	dbCmd.AddCommand(dbProvisionCmd)
	dbProvisionCmd.Flags().Bool("log", false, "record the run in the provision_log table (runs migrations first)")
}

func runProvision(ctx context.Context, record bool) error {
	settings, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	p := provision.New(settings, func(dbname string) (*sql.DB, error) {
		return db.Open(settings, dbname)
	})

	fmt.Printf("Provisioning database %q on %s:%d...\n", settings.Database, settings.Host, settings.Port)
	if err := p.Provision(ctx); err != nil {
		return err
	}
	fmt.Printf("Database %q is ready for Tuffy\n", settings.Database)

	if record {
		if err := runMigrations(settings); err != nil {
			return fmt.Errorf("failed to prepare provision_log: %w", err)
		}

		conn, err := db.Open(settings, settings.Database)
		if err != nil {
			return err
		}
		defer func() { _ = conn.Close() }()

		if err := p.Record(ctx, conn, version); err != nil {
			return err
		}
		fmt.Println("Recorded provision run")
	}

	return nil
}

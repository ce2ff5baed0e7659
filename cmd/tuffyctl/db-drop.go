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

// dbDropCmd represents the db drop command
var dbDropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Drop the Tuffy database and role",
	Long: `Drop the Tuffy database and role.

This is the inverse of provision: the target database and the owner role are
removed if they exist. Other databases and roles are untouched.

Example:
  tuffyctl db drop`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runDrop(cmd.Context()); err != nil {
			fmt.Fprintf(os.Stderr, "Drop failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	dbCmd.AddCommand(dbDropCmd)
}

func runDrop(ctx context.Context) error {
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

	if err := p.Drop(ctx); err != nil {
		return err
	}

	fmt.Printf("Dropped database %q and role %q\n", settings.Database, settings.Owner)
	return nil
}

package main

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/linqs/tuffyctl/pkg/config"
	"github.com/linqs/tuffyctl/pkg/db"
)

// waitCmd represents the wait command
var waitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait for the PostgreSQL server to be ready",
	Long: `Wait for the PostgreSQL server to be ready.

This command repeatedly attempts a connection to the maintenance database
until the server accepts it or the maximum number of retries is reached.
Useful as a container init step before "db provision".

Example:
  tuffyctl wait
  tuffyctl wait --retries 60`,
	Run: func(cmd *cobra.Command, args []string) {
		retries, _ := cmd.Flags().GetInt("retries")

		if err := waitForServer(retries); err != nil {
			fmt.Fprintf(os.Stderr, "Server did not become ready: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(waitCmd)
	waitCmd.Flags().IntP("retries", "r", 90, "Number of retries")
}

func waitForServer(retries int) error {
	settings, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbURL, err := db.URLFor(settings, db.MaintenanceDatabase)
	if err != nil {
		return err
	}

	fmt.Println("Waiting for PostgreSQL to be ready...")

	var lastErr error
	for i := 0; i < retries; i++ {
		conn, err := sql.Open("postgres", dbURL)
		if err == nil {
			err = conn.Ping()
			_ = conn.Close()
			if err == nil {
				fmt.Println()
				fmt.Println("PostgreSQL is ready!")
				return nil
			}
		}
		lastErr = err

		fmt.Print(".")
		time.Sleep(1 * time.Second)
	}

	fmt.Println()
	return fmt.Errorf("PostgreSQL is not ready after %d seconds: %w", retries, lastErr)
}

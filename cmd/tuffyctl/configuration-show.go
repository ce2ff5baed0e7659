package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/linqs/tuffyctl/pkg/config"
)

// configurationShowCmd represents the configuration show command
var configurationShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show tuffyctl configuration attributes and their sources",
	Long: `Show tuffyctl configuration attributes and their sources.

The values displayed by this command reflect the current state of the
configuration sources: built-in defaults, the config file, and environment
variables. Passwords are masked.

Config file location: /etc/tuffy/config/tuffy.yml (or TUFFY_CONFIG_PATH)

Example:
  tuffyctl configuration show
  tuffyctl configuration show --output json`,
	Run: func(cmd *cobra.Command, args []string) {
		output, _ := cmd.Flags().GetString("output")

		if err := showConfiguration(output); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to show configuration: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	configurationCmd.AddCommand(configurationShowCmd)
	configurationShowCmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
}

func showConfiguration(output string) error {
	settings, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if output == "json" {
		jsonOutput, err := settings.FormatJSON()
		if err != nil {
			return err
		}
		fmt.Println(jsonOutput)
		return nil
	}

	fmt.Print(settings.FormatText())
	return nil
}

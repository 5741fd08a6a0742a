package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/astra/pkg/config"
)

const listLongDesc string = `List all configuration values.

Displays all configuration keys and their current values from the
config.toml file stored in the .astra/ directory, followed by the
entries of the model table.

Examples:
  astra config list`

const listShortDesc string = "List all configuration values"

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runList(configDir)
		},
	}

	return cmd
}

func runList(configDir string) error {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	target := cfger.GetTarget()
	if target != "" {
		fmt.Printf("Using config file: %s\n\n", target)
	} else {
		fmt.Print("No config file found. Using default config.\n\n")
	}

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return err
	}
	entries := config.Entries(cfg)

	// Find the longest key name for alignment.
	maxLen := 0
	for _, e := range entries {
		maxLen = max(maxLen, len(e.Key))
	}

	for _, e := range entries {
		if e.Value == "" {
			fmt.Printf("%-*s = <not set>\n", maxLen, e.Key)
		} else {
			fmt.Printf("%-*s = %q\n", maxLen, e.Key, displayValue(e.Key, e.Value))
		}
	}

	return nil
}

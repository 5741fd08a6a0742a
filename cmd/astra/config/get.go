package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/astra/pkg/cliui"
	"github.com/papercomputeco/astra/pkg/config"
)

const getLongDesc string = `Get a configuration value.

Reads the value for the given key from the config.toml file
stored in the .astra/ directory. Keys use dotted notation matching
the TOML section structure.

Examples:
  astra config get relay.provider
  astra config get models.astra-2.5`

const getShortDesc string = "Get a configuration value"

func newGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: getShortDesc,
		Long:  getLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runGet(args[0], configDir)
		},
		ValidArgsFunction: completeKeys,
	}

	return cmd
}

func runGet(key, configDir string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	printTarget(cfger)

	value, err := cfger.GetConfigValue(key)
	if err != nil {
		return err
	}

	if value == "" {
		fmt.Printf("  %s  %s\n\n", cliui.Render(cliui.KeyStyle, key), cliui.Render(cliui.DimStyle, "<not set>"))
	} else {
		fmt.Printf("  %s  %s\n\n", cliui.Render(cliui.KeyStyle, key), cliui.Render(cliui.ValueStyle, displayValue(key, value)))
	}

	return nil
}

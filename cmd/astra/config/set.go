package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/astra/pkg/cliui"
	"github.com/papercomputeco/astra/pkg/config"
	"github.com/papercomputeco/astra/pkg/dotdir"
)

const setLongDesc string = `Set a configuration value.

Sets the given key to the provided value in the config.toml file
stored in the .astra/ directory, creating ~/.astra/ when no directory
exists yet. Setting a models.<key> entry to "" removes it.

Examples:
  astra config set relay.provider openai
  astra config set relay.upstream https://api.openai.com/v1
  astra config set client.show_avatar false
  astra config set models.astra-mini @cf/meta/llama-3.2-1b-instruct`

const setShortDesc string = "Set a configuration value"

func newSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: setShortDesc,
		Long:  setLongDesc,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runSet(args[0], args[1], configDir)
		},
		ValidArgsFunction: completeKeys,
	}

	return cmd
}

func runSet(key, value, configDir string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	dir, err := dotdir.NewManager().Ensure(configDir)
	if err != nil {
		return fmt.Errorf("resolving config dir: %w", err)
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	printTarget(cfger)

	if err := cfger.SetConfigValue(key, value); err != nil {
		return err
	}

	fmt.Printf("  %s Set %s = %s\n\n",
		cliui.Mark(nil),
		cliui.Render(cliui.KeyStyle, key),
		cliui.Render(cliui.ValueStyle, displayValue(key, value)),
	)
	return nil
}

// Package configcmder provides the config command for managing persistent
// astra configuration stored in the .astra/ directory.
package configcmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/astra/pkg/cliui"
	"github.com/papercomputeco/astra/pkg/config"
)

const configLongDesc string = `Manage persistent astra configuration.

Configuration is stored as config.toml in the .astra/ directory and provides
default values for command flags. CLI flags and ASTRA_* environment variables
always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  relay.listen, relay.provider, relay.upstream, relay.account_id,
  relay.api_token, relay.assets_dir, relay.system_prompt, relay.default_model,
  client.relay_target, client.model, client.show_avatar, client.tui,
  log.level, log.file

Entries of the model table are addressed as models.<key>.

Use subcommands to get, set, or list configuration values:
  astra config set <key> <value>    Set a configuration value
  astra config get <key>            Get a configuration value
  astra config list                 List all configuration values

Examples:
  astra config set relay.provider openai
  astra config set models.astra-mini @cf/meta/llama-3.2-1b-instruct
  astra config get client.model
  astra config list`

const configShortDesc string = "Manage persistent astra configuration"

// secretKeys are masked when values are printed.
var secretKeys = map[string]bool{
	"relay.api_token": true,
}

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func validateKey(key string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s, models.<key>",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}
	return nil
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func displayValue(key, value string) string {
	if value != "" && secretKeys[key] {
		return "********"
	}
	return value
}

func printTarget(cfger *config.Configer) {
	target := cfger.GetTarget()
	if target != "" {
		fmt.Printf("\n  %s %s\n\n",
			cliui.Render(cliui.KeyStyle, "Config file:"),
			cliui.Render(cliui.DimStyle, target),
		)
	} else {
		fmt.Printf("\n  %s\n\n", cliui.Render(cliui.DimStyle, "No config file found. Using defaults."))
	}
}

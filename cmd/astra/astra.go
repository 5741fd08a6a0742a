// Package astracmder is the root astra command.
package astracmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/papercomputeco/astra/cmd/astra/chat"
	configcmder "github.com/papercomputeco/astra/cmd/astra/config"
	servecmder "github.com/papercomputeco/astra/cmd/astra/serve"
	versioncmder "github.com/papercomputeco/astra/cmd/astra/version"
)

const astraLongDesc string = `Astra is a streaming chat client and edge relay for Astra AI.

Run the relay and chat through it:
  astra serve      Run the relay in front of the inference API
  astra chat       Chat with Astra AI through the relay
  astra config     Manage persistent configuration`

const astraShortDesc string = "Astra - streaming chat for Astra AI"

func NewAstraCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "astra",
		Short:        astraShortDesc,
		Long:         astraLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .astra/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}

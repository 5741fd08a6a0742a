package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --listen
// on both "astra serve" and "astrarelay").
type Flag struct {
	// Name is the long flag name (e.g. "upstream").
	Name string

	// Shorthand is the one-letter short flag (e.g. "u"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "relay.upstream").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddBoolFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagListen       = "listen"
	FlagProvider     = "provider"
	FlagUpstream     = "upstream"
	FlagAccountID    = "account-id"
	FlagAssets       = "assets"
	FlagSystemPrompt = "system-prompt"
	FlagDefaultModel = "default-model"
	FlagRelayTarget  = "relay-target"
	FlagModel        = "model"
	FlagShowAvatar   = "show-avatar"
	FlagTUI          = "tui"
	FlagLogLevel     = "log-level"
	FlagLogFile      = "log-file"
)

// RelayFlags are the flags shared by "astra serve" and "astrarelay".
var RelayFlags = FlagSet{
	FlagListen:       {Name: "listen", Shorthand: "l", ViperKey: "relay.listen", Description: "Address for the relay to listen on"},
	FlagProvider:     {Name: "provider", Shorthand: "p", ViperKey: "relay.provider", Description: "Upstream provider type (workersai, openai)"},
	FlagUpstream:     {Name: "upstream", Shorthand: "u", ViperKey: "relay.upstream", Description: "Upstream inference API base URL"},
	FlagAccountID:    {Name: "account-id", ViperKey: "relay.account_id", Description: "Cloudflare account ID used to build the Workers AI URL"},
	FlagAssets:       {Name: "assets", Shorthand: "a", ViperKey: "relay.assets_dir", Description: "Directory of static assets served outside /api"},
	FlagSystemPrompt: {Name: "system-prompt", ViperKey: "relay.system_prompt", Description: "System prompt prepended when a conversation has none"},
	FlagDefaultModel: {Name: "default-model", ViperKey: "relay.default_model", Description: "Model key used when a request names none or an unknown one"},
	FlagLogLevel:     {Name: "log-level", ViperKey: "log.level", Description: "Log level (debug, info, warn, error)"},
	FlagLogFile:      {Name: "log-file", ViperKey: "log.file", Description: "Also write JSON logs to this rotating file"},
}

// ClientFlags are the flags of "astra chat".
var ClientFlags = FlagSet{
	FlagRelayTarget: {Name: "relay-target", Shorthand: "r", ViperKey: "client.relay_target", Description: "Relay URL to send chat requests to"},
	FlagModel:       {Name: "model", Shorthand: "m", ViperKey: "client.model", Description: "Model key sent to the relay (default: the relay's default)"},
	FlagShowAvatar:  {Name: "show-avatar", ViperKey: "client.show_avatar", Description: "Decorate assistant messages with the avatar"},
	FlagTUI:         {Name: "tui", ViperKey: "client.tui", Description: "Use the full-screen interface when attached to a terminal"},
	FlagLogLevel:    {Name: "log-level", ViperKey: "log.level", Description: "Log level (debug, info, warn, error)"},
	FlagLogFile:     {Name: "log-file", ViperKey: "log.file", Description: "Log file (default: logs/astra.log in the config dir)"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddBoolFlag registers a bool flag on cmd from the given FlagSet.
func AddBoolFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *bool) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultBool(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().BoolVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().BoolVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultBool returns the default bool value for a viper key from NewDefaultConfig.
func defaultBool(viperKey string) bool {
	v := viper.New()
	setViperDefaults(v)
	return v.GetBool(viperKey)
}

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/papercomputeco/astra/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the ASTRA_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (ASTRA_RELAY_LISTEN, ASTRA_RELAY_API_TOKEN, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: ASTRA_RELAY_LISTEN, ASTRA_CLIENT_MODEL, etc.
	v.SetEnvPrefix("ASTRA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Relay
	v.SetDefault("relay.listen", d.Relay.Listen)
	v.SetDefault("relay.provider", d.Relay.Provider)
	v.SetDefault("relay.upstream", d.Relay.Upstream)
	v.SetDefault("relay.account_id", d.Relay.AccountID)
	v.SetDefault("relay.api_token", d.Relay.APIToken)
	v.SetDefault("relay.assets_dir", d.Relay.AssetsDir)
	v.SetDefault("relay.system_prompt", d.Relay.SystemPrompt)
	v.SetDefault("relay.default_model", d.Relay.DefaultModel)

	// Client
	v.SetDefault("client.relay_target", d.Client.RelayTarget)
	v.SetDefault("client.model", d.Client.Model)
	v.SetDefault("client.show_avatar", d.Client.ShowAvatar)
	v.SetDefault("client.tui", d.Client.TUI)

	// Log
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
}

// FromViper resolves a Config from every layer of v.
func FromViper(v *viper.Viper) *Config {
	cfg := &Config{
		Version: v.GetInt("version"),
		Relay: RelayConfig{
			Listen:       v.GetString("relay.listen"),
			Provider:     v.GetString("relay.provider"),
			Upstream:     v.GetString("relay.upstream"),
			AccountID:    v.GetString("relay.account_id"),
			APIToken:     v.GetString("relay.api_token"),
			AssetsDir:    v.GetString("relay.assets_dir"),
			SystemPrompt: v.GetString("relay.system_prompt"),
			DefaultModel: v.GetString("relay.default_model"),
		},
		Client: ClientConfig{
			RelayTarget: v.GetString("client.relay_target"),
			Model:       v.GetString("client.model"),
			ShowAvatar:  v.GetBool("client.show_avatar"),
			TUI:         v.GetBool("client.tui"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
			File:  v.GetString("log.file"),
		},
	}

	if models := fileModels(v); len(models) > 0 {
		cfg.Models = models
	}

	return cfg
}

// fileModels reads the [models] table straight from the config file. Viper
// lowercases map keys, and model keys are matched exactly.
func fileModels(v *viper.Viper) map[string]string {
	path := v.ConfigFileUsed()
	if path == "" {
		return v.GetStringMapString("models")
	}

	var file struct {
		Models map[string]string `toml:"models"`
	}
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return v.GetStringMapString("models")
	}
	return file.Models
}

// Watch calls onChange with the re-resolved Config every time the config file
// read by v changes on disk. It does nothing when v read no file.
func Watch(v *viper.Viper, log *slog.Logger, onChange func(*Config)) {
	if v.ConfigFileUsed() == "" {
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		log.Info("config file changed", "path", e.Name, "op", e.Op.String())
		onChange(FromViper(v))
	})
	v.WatchConfig()
}

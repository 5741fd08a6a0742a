package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent astra configuration stored as config.toml
// in the .astra/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version int         `toml:"version"`
	Relay   RelayConfig `toml:"relay"`

	// Models adds to or overrides the relay's built-in model table,
	// keyed by the model name clients send.
	Models map[string]string `toml:"models,omitempty"`

	Client ClientConfig `toml:"client"`
	Log    LogConfig    `toml:"log"`
}

// RelayConfig holds settings for the relay server.
type RelayConfig struct {
	Listen       string `toml:"listen,omitempty"`
	Provider     string `toml:"provider,omitempty"`
	Upstream     string `toml:"upstream,omitempty"`
	AccountID    string `toml:"account_id,omitempty"`
	APIToken     string `toml:"api_token,omitempty"`
	AssetsDir    string `toml:"assets_dir,omitempty"`
	SystemPrompt string `toml:"system_prompt,omitempty"`
	DefaultModel string `toml:"default_model,omitempty"`
}

// ClientConfig holds settings for "astra chat", which connects to a running
// relay. RelayTarget is a full URL (scheme + host + port).
type ClientConfig struct {
	RelayTarget string `toml:"relay_target,omitempty"`
	Model       string `toml:"model,omitempty"`
	ShowAvatar  bool   `toml:"show_avatar"`
	TUI         bool   `toml:"tui"`
}

// LogConfig holds log output settings shared by all commands.
type LogConfig struct {
	Level string `toml:"level,omitempty"`
	File  string `toml:"file,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func boolKey(name string, field func(c *Config) *bool) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = b
			return nil
		},
	}
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

// configKeys is the authoritative map of all static config keys.
// Keys use dotted notation matching the TOML section structure. Entries of
// the [models] table are addressed as "models.<name>" and handled separately.
var configKeys = map[string]configKeyInfo{
	"relay.listen":        stringKey(func(c *Config) *string { return &c.Relay.Listen }),
	"relay.provider":      stringKey(func(c *Config) *string { return &c.Relay.Provider }),
	"relay.upstream":      stringKey(func(c *Config) *string { return &c.Relay.Upstream }),
	"relay.account_id":    stringKey(func(c *Config) *string { return &c.Relay.AccountID }),
	"relay.api_token":     stringKey(func(c *Config) *string { return &c.Relay.APIToken }),
	"relay.assets_dir":    stringKey(func(c *Config) *string { return &c.Relay.AssetsDir }),
	"relay.system_prompt": stringKey(func(c *Config) *string { return &c.Relay.SystemPrompt }),
	"relay.default_model": stringKey(func(c *Config) *string { return &c.Relay.DefaultModel }),
	"client.relay_target": stringKey(func(c *Config) *string { return &c.Client.RelayTarget }),
	"client.model":        stringKey(func(c *Config) *string { return &c.Client.Model }),
	"client.show_avatar":  boolKey("client.show_avatar", func(c *Config) *bool { return &c.Client.ShowAvatar }),
	"client.tui":          boolKey("client.tui", func(c *Config) *bool { return &c.Client.TUI }),
	"log.level":           stringKey(func(c *Config) *string { return &c.Log.Level }),
	"log.file":            stringKey(func(c *Config) *string { return &c.Log.File }),
}

// orderedKeys is the listing order of configKeys, matching the TOML layout.
var orderedKeys = []string{
	"relay.listen",
	"relay.provider",
	"relay.upstream",
	"relay.account_id",
	"relay.api_token",
	"relay.assets_dir",
	"relay.system_prompt",
	"relay.default_model",
	"client.relay_target",
	"client.model",
	"client.show_avatar",
	"client.tui",
	"log.level",
	"log.file",
}

// Package config loads, saves, and layers the astra configuration: the
// config.toml file in the .astra/ directory, ASTRA_* environment variables,
// and command line flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/astra/pkg/dotdir"
)

const (
	configFile = "config.toml"

	// modelsPrefix addresses entries of the [models] table as config keys.
	modelsPrefix = "models."

	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

// Entry is one key and its current value, as listed by "astra config list".
type Entry struct {
	Key   string
	Value string
}

type Configer struct {
	ddm        *dotdir.Manager
	targetPath string
}

func NewConfiger(override string) (*Configer, error) {
	cfger := &Configer{}

	cfger.ddm = dotdir.NewManager()
	target, err := cfger.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	// If no .astra/ directory was resolved, targetPath stays empty;
	// LoadConfig will return defaults and SaveConfig will error clearly.
	if target == "" {
		return cfger, nil
	}

	path := filepath.Join(target, configFile)
	_, err = os.Stat(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfger.targetPath = path

	return cfger, nil
}

// ValidConfigKeys returns all static configuration key names in TOML
// section order.
func ValidConfigKeys() []string {
	result := make([]string, 0, len(configKeys))
	seen := make(map[string]bool, len(configKeys))
	for _, k := range orderedKeys {
		if _, ok := configKeys[k]; ok {
			result = append(result, k)
			seen[k] = true
		}
	}

	// Append any keys in the map that we missed in the ordered list.
	var rest []string
	for k := range configKeys {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)

	return append(result, rest...)
}

// IsValidConfigKey returns true if the given key is a supported configuration
// key, including "models.<name>" entries.
func IsValidConfigKey(key string) bool {
	if name, ok := modelKey(key); ok {
		return name != ""
	}
	_, ok := configKeys[key]
	return ok
}

func (c *Configer) GetTarget() string {
	return c.targetPath
}

// LoadConfig loads the configuration from config.toml in the target .astra/
// directory. If the file does not exist, returns NewDefaultConfig() so callers
// always receive a fully-populated Config. Fields explicitly set in the file
// override the defaults.
func (c *Configer) LoadConfig() (*Config, error) {
	if c.targetPath == "" {
		return NewDefaultConfig(), nil
	}

	data, err := os.ReadFile(c.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return ParseConfigTOML(data)
}

// applyDefaults fills empty string fields in cfg with values from
// NewDefaultConfig(). Booleans keep whatever the file decoded.
func applyDefaults(cfg *Config) {
	defaults := NewDefaultConfig()

	if cfg.Relay.Listen == "" {
		cfg.Relay.Listen = defaults.Relay.Listen
	}
	if cfg.Relay.Provider == "" {
		cfg.Relay.Provider = defaults.Relay.Provider
	}
	if cfg.Relay.AssetsDir == "" {
		cfg.Relay.AssetsDir = defaults.Relay.AssetsDir
	}
	if cfg.Relay.SystemPrompt == "" {
		cfg.Relay.SystemPrompt = defaults.Relay.SystemPrompt
	}
	if cfg.Relay.DefaultModel == "" {
		cfg.Relay.DefaultModel = defaults.Relay.DefaultModel
	}

	if cfg.Client.RelayTarget == "" {
		cfg.Client.RelayTarget = defaults.Client.RelayTarget
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
}

// SaveConfig persists the configuration to config.toml in the target .astra/ directory.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	if c.targetPath == "" {
		return errors.New("cannot save empty target path")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	// The file may hold the upstream API token.
	if err := os.WriteFile(c.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// SetConfigValue loads the config, sets the given key to the given value, and
// saves it. Setting a "models.<name>" key to the empty string removes that
// model entry.
func (c *Configer) SetConfigValue(key string, value string) error {
	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}

	if name, ok := modelKey(key); ok {
		if name == "" {
			return fmt.Errorf("unknown config key: %q", key)
		}
		if value == "" {
			delete(cfg.Models, name)
		} else {
			if cfg.Models == nil {
				cfg.Models = make(map[string]string)
			}
			cfg.Models[name] = value
		}
		return c.SaveConfig(cfg)
	}

	info, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}

	if err := info.set(cfg, value); err != nil {
		return err
	}

	return c.SaveConfig(cfg)
}

// GetConfigValue loads the config and returns the string representation of the given key.
// Returns an error if the key is not a valid config key.
func (c *Configer) GetConfigValue(key string) (string, error) {
	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}

	if name, ok := modelKey(key); ok && name != "" {
		return cfg.Models[name], nil
	}

	info, ok := configKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %q", key)
	}

	return info.get(cfg), nil
}

// Entries returns every static key of cfg followed by its model entries
// sorted by name.
func Entries(cfg *Config) []Entry {
	keys := ValidConfigKeys()
	entries := make([]Entry, 0, len(keys)+len(cfg.Models))
	for _, k := range keys {
		entries = append(entries, Entry{Key: k, Value: configKeys[k].get(cfg)})
	}

	names := make([]string, 0, len(cfg.Models))
	for name := range cfg.Models {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		entries = append(entries, Entry{Key: modelsPrefix + name, Value: cfg.Models[name]})
	}

	return entries
}

// ParseConfigTOML parses raw TOML bytes over NewDefaultConfig(), so keys
// missing from data keep their defaults.
// Returns an error if the version field is present and not equal to CurrentV.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := NewDefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	applyDefaults(cfg)

	return cfg, nil
}

func modelKey(key string) (string, bool) {
	if !strings.HasPrefix(key, modelsPrefix) {
		return "", false
	}
	return strings.TrimPrefix(key, modelsPrefix), true
}

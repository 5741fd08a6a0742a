package relay

import (
	"log/slog"

	"github.com/papercomputeco/astra/relay/upstream"
)

// Config is the relay server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8787")
	ListenAddr string

	// AssetsDir is served for every path outside /api. Empty disables
	// static assets.
	AssetsDir string

	// SystemPrompt is prepended to conversations that carry no system
	// message. Empty disables the injection.
	SystemPrompt string

	// DefaultModel is the model key used for missing or unknown keys.
	DefaultModel string

	// Models adds to or overrides the built-in model table.
	Models map[string]string

	// Upstream is the inference API chat requests are forwarded to.
	Upstream upstream.Provider

	Logger *slog.Logger
}

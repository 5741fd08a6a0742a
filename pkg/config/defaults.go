package config

const (
	defaultRelayListen  = ":8787"
	defaultProvider     = "workersai"
	defaultSystemPrompt = "Your name is Astra AI. You are a professional and helpful assistant."
	defaultModel        = "astra-2.5"
	defaultAssetsDir    = "public"
	defaultRelayTarget  = "http://localhost:8787"
	defaultLogLevel     = "info"
	defaultShowAvatar   = true
	defaultTUI          = true
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Relay: RelayConfig{
			Listen:       defaultRelayListen,
			Provider:     defaultProvider,
			AssetsDir:    defaultAssetsDir,
			SystemPrompt: defaultSystemPrompt,
			DefaultModel: defaultModel,
		},
		Client: ClientConfig{
			RelayTarget: defaultRelayTarget,
			ShowAvatar:  defaultShowAvatar,
			TUI:         defaultTUI,
		},
		Log: LogConfig{
			Level: defaultLogLevel,
		},
	}
}

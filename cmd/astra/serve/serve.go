// Package servecmder provides the serve command, which runs the astra relay.
package servecmder

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/astra/pkg/config"
	"github.com/papercomputeco/astra/pkg/logger"
	"github.com/papercomputeco/astra/relay"
	"github.com/papercomputeco/astra/relay/upstream"
)

type serveCommander struct {
	listen       string
	provider     string
	upstream     string
	accountID    string
	assets       string
	systemPrompt string
	defaultModel string
	logLevel     string
	logFile      string
	debug        bool

	viper  *viper.Viper
	cfg    *config.Config
	logger *slog.Logger
}

var serveFlags = []string{
	config.FlagListen,
	config.FlagProvider,
	config.FlagUpstream,
	config.FlagAccountID,
	config.FlagAssets,
	config.FlagSystemPrompt,
	config.FlagDefaultModel,
	config.FlagLogLevel,
	config.FlagLogFile,
}

const serveLongDesc string = `Run the astra relay.

The relay exposes a single chat route, POST /api/chat, that forwards the
conversation to the upstream inference API and streams the reply back as
server-sent events. Everything outside /api is served from the assets
directory when one is configured.

The upstream API token is read from relay.api_token in config.toml or from
the ASTRA_RELAY_API_TOKEN environment variable.

Changes to config.toml are applied while the relay runs: the system prompt
and the model table are reloaded without a restart.

Supported providers: workersai, openai

Examples:
  astra serve --account-id 0123abcd
  astra serve --provider openai --upstream https://api.openai.com/v1
  ASTRA_RELAY_API_TOKEN=... astra serve --assets ./public`

const serveShortDesc string = "Run the astra relay"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.RelayFlags, serveFlags)

			cmder.viper = v
			cmder.cfg = config.FromViper(v)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, config.RelayFlags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, config.RelayFlags, config.FlagProvider, &cmder.provider)
	config.AddStringFlag(cmd, config.RelayFlags, config.FlagUpstream, &cmder.upstream)
	config.AddStringFlag(cmd, config.RelayFlags, config.FlagAccountID, &cmder.accountID)
	config.AddStringFlag(cmd, config.RelayFlags, config.FlagAssets, &cmder.assets)
	config.AddStringFlag(cmd, config.RelayFlags, config.FlagSystemPrompt, &cmder.systemPrompt)
	config.AddStringFlag(cmd, config.RelayFlags, config.FlagDefaultModel, &cmder.defaultModel)
	config.AddStringFlag(cmd, config.RelayFlags, config.FlagLogLevel, &cmder.logLevel)
	config.AddStringFlag(cmd, config.RelayFlags, config.FlagLogFile, &cmder.logFile)

	return cmd
}

func (c *serveCommander) run() error {
	c.logger = c.newLogger()

	provider, err := upstream.New(c.cfg.Relay.Provider, upstream.Config{
		BaseURL:   c.cfg.Relay.Upstream,
		AccountID: c.cfg.Relay.AccountID,
		APIToken:  c.cfg.Relay.APIToken,
		Logger:    c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating upstream provider: %w", err)
	}

	r, err := relay.New(relayConfig(c.cfg, provider, c.logger))
	if err != nil {
		return fmt.Errorf("creating relay: %w", err)
	}
	defer r.Close()

	config.Watch(c.viper, c.logger, func(cfg *config.Config) {
		r.Reload(relayConfig(cfg, provider, c.logger))
	})

	errChan := make(chan error, 1)
	go func() {
		if err := r.Run(); err != nil {
			errChan <- fmt.Errorf("relay error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		return nil
	}
}

func (c *serveCommander) newLogger() *slog.Logger {
	level := logger.ParseLevel(c.cfg.Log.Level)
	if c.debug {
		level = slog.LevelDebug
	}

	opts := []logger.Option{logger.WithLevel(level)}
	if c.cfg.Log.File != "" {
		// Pretty records on stdout, JSON in the rotating file.
		fileLogger := logger.New(logger.WithLevel(level), logger.WithJSON(true), logger.WithFile(c.cfg.Log.File))
		stdout := logger.New(append(opts, logger.WithPretty(true))...)
		return logger.Multi(stdout, fileLogger)
	}

	return logger.New(append(opts, logger.WithPretty(true))...)
}

// relayConfig maps the resolved configuration onto the relay's settings.
func relayConfig(cfg *config.Config, provider upstream.Provider, log *slog.Logger) relay.Config {
	return relay.Config{
		ListenAddr:   cfg.Relay.Listen,
		AssetsDir:    cfg.Relay.AssetsDir,
		SystemPrompt: cfg.Relay.SystemPrompt,
		DefaultModel: cfg.Relay.DefaultModel,
		Models:       cfg.Models,
		Upstream:     provider,
		Logger:       log,
	}
}

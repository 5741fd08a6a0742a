// Package chatcmder provides the chat command, an interactive client for the
// astra relay.
package chatcmder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/astra/pkg/chat"
	"github.com/papercomputeco/astra/pkg/cliui"
	"github.com/papercomputeco/astra/pkg/config"
	"github.com/papercomputeco/astra/pkg/dotdir"
	"github.com/papercomputeco/astra/pkg/logger"
)

const pingTimeout = 5 * time.Second

type chatCommander struct {
	relayTarget string
	model       string
	showAvatar  bool
	tui         bool
	logLevel    string
	logFile     string
	configDir   string
	debug       bool

	logger *slog.Logger
}

var chatFlags = []string{
	config.FlagRelayTarget,
	config.FlagModel,
	config.FlagShowAvatar,
	config.FlagTUI,
	config.FlagLogLevel,
	config.FlagLogFile,
}

const chatLongDesc string = `Start an interactive chat session with Astra AI through the astra relay.

Each message is sent to the relay together with the conversation so far and
the reply is printed as it streams in. When attached to a terminal the chat
runs full screen: Enter sends, Shift+Enter (or Ctrl+J) inserts a newline.
Otherwise messages are read one per line from standard input.

Commands:
  /reset    Start a new conversation
  /exit     Quit (Ctrl+D and Ctrl+C quit as well)

Logs are written to logs/astra.log in the .astra/ directory so they never
mix with the conversation.

Examples:
  astra chat
  astra chat --model astra-3.0-pro
  astra chat --relay-target https://astra.example.com --tui=false`

const chatShortDesc string = "Interactive chat with Astra AI"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.ClientFlags, chatFlags)

			cfg := config.FromViper(v)
			cmder.relayTarget = cfg.Client.RelayTarget
			cmder.model = cfg.Client.Model
			cmder.showAvatar = cfg.Client.ShowAvatar
			cmder.tui = cfg.Client.TUI
			cmder.logLevel = cfg.Log.Level
			cmder.logFile = cfg.Log.File
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.ClientFlags, config.FlagRelayTarget, &cmder.relayTarget)
	config.AddStringFlag(cmd, config.ClientFlags, config.FlagModel, &cmder.model)
	config.AddBoolFlag(cmd, config.ClientFlags, config.FlagShowAvatar, &cmder.showAvatar)
	config.AddBoolFlag(cmd, config.ClientFlags, config.FlagTUI, &cmder.tui)
	config.AddStringFlag(cmd, config.ClientFlags, config.FlagLogLevel, &cmder.logLevel)
	config.AddStringFlag(cmd, config.ClientFlags, config.FlagLogFile, &cmder.logFile)

	return cmd
}

func (c *chatCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	c.logger, err = c.newLogger()
	if err != nil {
		return err
	}

	cliui.DetectColor(os.Stdout)

	fullScreen := c.tui && cliui.IsTerminal(os.Stdin) && cliui.IsTerminal(os.Stdout)

	fmt.Println()
	c.checkRelay(ctx, os.Stdout)

	opts := chat.Options{
		Endpoint:   Endpoint(c.relayTarget),
		Model:      c.model,
		ShowAvatar: c.showAvatar,
		Logger:     c.logger,
	}

	if fullScreen {
		surface := &tuiSurface{}
		ctrl := chat.New(surface, opts)
		return runTUI(ctx, surface, ctrl, c.model)
	}

	model := c.model
	if model == "" {
		model = "relay default"
	}
	fmt.Printf("  %s %s\n\n", cliui.Render(cliui.KeyStyle, "Model:"), cliui.Render(cliui.NameStyle, model))

	interactive := cliui.IsTerminal(os.Stdin)
	if interactive {
		fmt.Printf("  %s\n\n", cliui.Render(cliui.DimStyle, "Type your message and press Enter. /reset to start over, /exit or Ctrl+D to quit."))
	}

	ctrl := chat.New(newLineSurface(os.Stdout, !interactive), opts)
	return runLine(ctx, ctrl, os.Stdin, os.Stdout, interactive)
}

// newLogger logs to a rotating file so records never interleave with the
// transcript.
func (c *chatCommander) newLogger() (*slog.Logger, error) {
	path := c.logFile
	if path == "" {
		dir, err := dotdir.NewManager().Ensure(c.configDir)
		if err != nil {
			return nil, fmt.Errorf("resolving log directory: %w", err)
		}
		path = dotdir.LogFile(dir, "astra.log")
	}

	level := logger.ParseLevel(c.logLevel)
	if c.debug {
		level = slog.LevelDebug
	}

	w, err := logger.RotatingFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	return logger.New(logger.WithWriter(w), logger.WithLevel(level)), nil
}

// Endpoint returns the chat route of the relay at target.
func Endpoint(target string) string {
	return strings.TrimRight(target, "/") + "/api/chat"
}

// ping checks that the relay at target answers.
func ping(ctx context.Context, target string) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(target, "/")+"/ping", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("relay is not reachable: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("relay returned status %d", resp.StatusCode)
	}
	return nil
}

// checkRelay pings the relay with a progress line on w. An unreachable relay
// is logged and the chat starts anyway; each send then shows the fallback.
func (c *chatCommander) checkRelay(ctx context.Context, w io.Writer) {
	err := cliui.Step(w, "Connecting to "+c.relayTarget, func() error {
		return ping(ctx, c.relayTarget)
	})
	if err != nil {
		c.logger.Warn("relay ping failed", "target", c.relayTarget, "error", err)
	}
}

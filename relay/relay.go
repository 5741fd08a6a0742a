// Package relay provides the edge relay between astra chat clients and an
// upstream inference API. It exposes a single chat route that forwards the
// conversation and streams the model's SSE reply back verbatim.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/papercomputeco/astra/pkg/chat"
	"github.com/papercomputeco/astra/pkg/logger"
	"github.com/papercomputeco/astra/pkg/sse"
	"github.com/papercomputeco/astra/relay/header"
	"github.com/papercomputeco/astra/relay/upstream"
)

const chatPath = "/api/chat"

// ErrorResponse is the JSON body of every relay error on the chat route.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// chatRequest is the body clients POST to the chat route.
type chatRequest struct {
	Messages []chat.Message `json:"messages"`
	Model    string         `json:"model"`
}

// Relay forwards chat requests to an upstream provider and streams the
// replies back to the client.
type Relay struct {
	config        Config
	logger        *slog.Logger
	server        *fiber.App
	upstream      upstream.Provider
	models        *Models
	headerHandler *header.Handler

	mu           sync.RWMutex
	systemPrompt string
}

// New creates a new Relay.
// Returns an error if no upstream provider is configured.
func New(config Config) (*Relay, error) {
	if config.Upstream == nil {
		return nil, errors.New("upstream provider is required")
	}

	log := config.Logger
	if log == nil {
		log = logger.Nop()
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
	})

	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))

	// Compress assets and errors; the chat stream is flushed per event.
	app.Use(compress.New(compress.Config{
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == chatPath
		},
	}))

	r := &Relay{
		config:        config,
		logger:        log,
		server:        app,
		upstream:      config.Upstream,
		models:        NewModels(config.Models, config.DefaultModel),
		headerHandler: header.NewHandler(),
		systemPrompt:  config.SystemPrompt,
	}

	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")
	api.Post("/chat", r.handleChat)
	api.All("/chat", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderAllow, fiber.MethodPost)
		return c.Status(fiber.StatusMethodNotAllowed).SendString("Method not allowed")
	})
	api.All("/*", notFound)

	if config.AssetsDir != "" {
		app.Static("/", config.AssetsDir)
	}
	app.Use(notFound)

	return r, nil
}

func notFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).SendString("Not found")
}

// Run starts the relay server on the configured listening address
func (r *Relay) Run() error {
	r.logger.Info("starting relay server",
		"listen", r.config.ListenAddr,
		"upstream", r.upstream.Name(),
	)

	return r.server.Listen(r.config.ListenAddr)
}

// RunWithListener starts the relay server using the provided listener.
func (r *Relay) RunWithListener(listener net.Listener) error {
	r.logger.Info("starting relay server",
		"listen", listener.Addr().String(),
		"upstream", r.upstream.Name(),
	)

	return r.server.Listener(listener)
}

// Close gracefully shuts down the relay.
func (r *Relay) Close() error {
	return r.server.Shutdown()
}

// Handler returns the relay as a net/http handler.
func (r *Relay) Handler() http.Handler {
	return adaptor.FiberApp(r.server)
}

// Models returns the relay's model table.
func (r *Relay) Models() *Models {
	return r.models
}

// Reload applies the parts of config that may change at runtime: the system
// prompt and the model table.
func (r *Relay) Reload(config Config) {
	r.mu.Lock()
	r.systemPrompt = config.SystemPrompt
	r.mu.Unlock()

	r.models.Replace(config.Models, config.DefaultModel)

	r.logger.Info("relay configuration reloaded",
		"models", r.models.Keys(),
		"system_prompt_set", config.SystemPrompt != "",
	)
}

// handleChat forwards the conversation upstream and streams the reply.
func (r *Relay) handleChat(c *fiber.Ctx) error {
	startTime := time.Now()
	log := r.logger.With("request_id", c.GetRespHeader(fiber.HeaderXRequestID))

	var req chatRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		log.Warn("invalid chat request", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "Invalid request body",
			Details: err.Error(),
		})
	}
	if len(req.Messages) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "messages are required"})
	}

	modelID, modelKey := r.models.Resolve(req.Model)
	messages := r.withSystemPrompt(req.Messages)

	log.Debug("forwarding chat request",
		"model", modelKey,
		"model_id", modelID,
		"message_count", len(messages),
	)

	// Use context.Background() instead of c.Context() because fasthttp recycles
	// its RequestCtx after the handler returns, but the body stream is read
	// asynchronously and needs the upstream connection to remain open.
	stream, err := r.upstream.Stream(context.Background(), upstream.Request{
		Model:    modelID,
		Messages: messages,
	})
	if err != nil {
		log.Error("upstream request failed", "error", err, "model", modelKey)
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{
			Error:   "Failed to process chat request",
			Details: err.Error(),
		})
	}

	r.headerHandler.SetClientResponseHeaders(c, stream.Header)
	r.headerHandler.SetStreamHeaders(c)

	// Use io.Pipe + SetBodyStream instead of SetBodyStreamWriter.
	// SetBodyStreamWriter buffers chunks in an internal pipe before they
	// reach the socket. With io.Pipe, pw.Write blocks until fasthttp's
	// chunked body writer consumes the data and flushes it, which gives
	// per-event streaming with backpressure.
	pr, pw := io.Pipe()
	go r.relayStream(stream.Body, pw, log, startTime)

	// Unknown size (-1) triggers chunked transfer encoding in fasthttp.
	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

// relayStream copies the upstream SSE body to pw byte for byte while parsing
// events for logging.
func (r *Relay) relayStream(body io.ReadCloser, pw *io.PipeWriter, log *slog.Logger, startTime time.Time) {
	defer body.Close()

	var (
		events   int
		doneSeen bool
	)

	tr := sse.NewTeeReader(body, pw)
	for {
		ev, err := tr.Next()
		if err != nil {
			log.Error("error relaying stream", "error", err, "events", events)
			pw.CloseWithError(err)
			return
		}
		if ev == nil {
			break
		}

		if ev.Data == chat.DoneSentinel {
			doneSeen = true
			continue
		}
		events++
	}

	log.Debug("stream complete",
		"events", events,
		"done_seen", doneSeen,
		"duration", time.Since(startTime),
	)
	pw.Close()
}

// withSystemPrompt prepends the system prompt unless the conversation
// already carries a system message.
func (r *Relay) withSystemPrompt(messages []chat.Message) []chat.Message {
	r.mu.RLock()
	prompt := r.systemPrompt
	r.mu.RUnlock()

	if prompt == "" {
		return messages
	}
	for _, m := range messages {
		if m.Role == chat.RoleSystem {
			return messages
		}
	}

	out := make([]chat.Message, 0, len(messages)+1)
	out = append(out, chat.Message{Role: chat.RoleSystem, Content: prompt})
	return append(out, messages...)
}

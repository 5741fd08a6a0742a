package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/unicode"

	"github.com/papercomputeco/astra/pkg/logger"
	"github.com/papercomputeco/astra/pkg/sse"
	"github.com/papercomputeco/astra/pkg/utils"
)

const (
	// DefaultEndpoint is the relay chat route on a locally running relay.
	DefaultEndpoint = "http://localhost:8787/api/chat"

	// DefaultFallbackMessage is the only failure text a user ever sees.
	DefaultFallbackMessage = "Sorry, something went wrong while contacting Astra AI. Please try again."

	defaultReadSize = 4 * 1024
)

// ErrMissingBody is returned when the relay accepted the request but
// returned nothing to stream.
var ErrMissingBody = errors.New("response has no streamable body")

// StatusError is returned when the relay answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("relay returned status %d: %s", e.StatusCode, e.Body)
}

// State is the Controller's position in one exchange.
type State int32

const (
	StateIdle State = iota
	StateSending
	StateStreaming
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	}
	return "unknown"
}

// Outcome is how a call to Send ended.
type Outcome int

const (
	// OutcomeIgnored means nothing was sent: the input was blank or another
	// exchange was still in flight.
	OutcomeIgnored Outcome = iota
	OutcomeCompleted
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeCompleted:
		return "completed"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

// Options configures a Controller. The zero value talks to DefaultEndpoint
// with the relay's default model.
type Options struct {
	// Endpoint is the relay chat URL.
	Endpoint string

	// Model is the relay model key. Empty leaves the choice to the relay.
	Model string

	// ShowAvatar decorates assistant bubbles with the avatar.
	ShowAvatar bool

	// SystemPrompt seeds the history with a leading system message.
	SystemPrompt string

	// FallbackMessage replaces DefaultFallbackMessage.
	FallbackMessage string

	// HTTPClient defaults to a client without timeout: a hung relay keeps
	// the exchange busy until the context is cancelled.
	HTTPClient *http.Client

	Logger *slog.Logger

	// ReadSize is the size of each read from the response body.
	ReadSize int
}

// chatRequest is the body POSTed to the relay.
type chatRequest struct {
	Messages []Message `json:"messages"`
	Model    string    `json:"model,omitempty"`
}

// Controller runs streamed chat exchanges against the relay and renders them
// on a Surface. Only one exchange runs at a time; Send calls made while one
// is in flight are ignored.
type Controller struct {
	opts    Options
	surface Surface
	client  *http.Client
	logger  *slog.Logger

	inFlight atomic.Bool
	state    atomic.Int32

	mu      sync.Mutex
	history *History
}

// New returns a Controller rendering on surface.
func New(surface Surface, opts Options) *Controller {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.FallbackMessage == "" {
		opts.FallbackMessage = DefaultFallbackMessage
	}
	if opts.ReadSize <= 0 {
		opts.ReadSize = defaultReadSize
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Controller{
		opts:    opts,
		surface: surface,
		client:  client,
		logger:  log,
		history: NewHistory(opts.SystemPrompt),
	}
}

// State returns the current exchange state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Busy reports whether an exchange is in flight.
func (c *Controller) Busy() bool {
	return c.inFlight.Load()
}

// History returns a copy of the conversation so far.
func (c *Controller) History() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.Messages()
}

// Reset clears the conversation. It is ignored while an exchange is in
// flight.
func (c *Controller) Reset() bool {
	if !c.inFlight.CompareAndSwap(false, true) {
		return false
	}
	defer c.inFlight.Store(false)

	c.mu.Lock()
	c.history.Reset()
	c.mu.Unlock()
	return true
}

// Send runs one exchange for input. Blank input and calls made while another
// exchange is in flight return OutcomeIgnored without any request.
//
// Failures never escape Send: they are logged and rendered as the fallback
// bubble, and OutcomeFailed is returned.
func (c *Controller) Send(ctx context.Context, input string) Outcome {
	text := strings.TrimSpace(input)
	if text == "" {
		return OutcomeIgnored
	}

	if !c.inFlight.CompareAndSwap(false, true) {
		c.logger.Debug("send ignored, exchange in flight")
		return OutcomeIgnored
	}
	defer c.inFlight.Store(false)
	defer c.finish()

	log := c.logger.With("exchange", uuid.NewString())

	c.state.Store(int32(StateSending))
	if err := c.appendHistory(Message{Role: RoleUser, Content: text}); err != nil {
		log.Error("appending user message", "error", err)
	}
	c.surface.ClearInput()
	c.surface.SetInputEnabled(false)
	c.surface.SetBusy(true)
	c.surface.AppendBubble(Bubble{Role: RoleUser, Text: text})
	c.surface.ScrollToBottom()

	reply, err := c.exchange(ctx, log)
	if err != nil {
		log.Error("chat exchange failed", "error", err)
		c.surface.AppendBubble(Bubble{Role: RoleAssistant, Text: c.opts.FallbackMessage, Avatar: c.opts.ShowAvatar})
		c.surface.ScrollToBottom()
		return OutcomeFailed
	}

	if reply == "" {
		log.Debug("empty assistant turn not recorded")
		return OutcomeCompleted
	}

	if err := c.appendHistory(Message{Role: RoleAssistant, Content: reply}); err != nil {
		log.Error("appending assistant message", "error", err)
	}
	log.Debug("exchange complete", "reply_length", len(reply))
	return OutcomeCompleted
}

// finish restores the surface whichever way the exchange ended.
func (c *Controller) finish() {
	c.state.Store(int32(StateIdle))
	c.surface.SetBusy(false)
	c.surface.SetInputEnabled(true)
	c.surface.Focus()
}

func (c *Controller) appendHistory(m Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.Append(m)
}

// exchange sends the history and streams the reply into a new assistant
// bubble. It returns the accumulated reply text.
func (c *Controller) exchange(ctx context.Context, log *slog.Logger) (string, error) {
	messages := c.History()
	body, err := json.Marshal(chatRequest{
		Messages: messages,
		Model:    c.opts.Model,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	log.Debug("sending chat request",
		"endpoint", c.opts.Endpoint,
		"model", c.opts.Model,
		"message_count", len(messages),
	)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request to relay: %w", err)
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		if resp.StatusCode != http.StatusOK {
			return "", &StatusError{StatusCode: resp.StatusCode}
		}
		return "", ErrMissingBody
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &StatusError{StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	c.state.Store(int32(StateStreaming))
	bubble := c.surface.AppendBubble(Bubble{Role: RoleAssistant, Avatar: c.opts.ShowAvatar})
	c.surface.ScrollToBottom()

	return c.stream(resp.Body, bubble, log)
}

// stream reads body until the sentinel or end of data, rendering every
// fragment as it arrives.
func (c *Controller) stream(body io.Reader, bubble BubbleHandle, log *slog.Logger) (string, error) {
	// The decoder keeps a multi-byte sequence split across two reads
	// together instead of replacing each half.
	decoded := unicode.UTF8.NewDecoder().Reader(body)
	buf := make([]byte, c.opts.ReadSize)

	var (
		extractor sse.Extractor
		reply     strings.Builder
	)

	for {
		n, err := decoded.Read(buf)
		if n > 0 {
			if c.render(extractor.Feed(string(buf[:n])), &reply, bubble, log) {
				log.Debug("stream finished by sentinel")
				return reply.String(), nil
			}
		}

		if errors.Is(err, io.EOF) {
			c.render(extractor.Close(), &reply, bubble, log)
			log.Debug("stream finished by end of body")
			return reply.String(), nil
		}
		if err != nil {
			return "", fmt.Errorf("reading stream: %w", err)
		}
	}
}

// render applies events to the pending reply. It reports whether the
// sentinel was seen; events after it are not applied.
func (c *Controller) render(events []string, reply *strings.Builder, bubble BubbleHandle, log *slog.Logger) bool {
	for _, data := range events {
		if strings.TrimSpace(data) == DoneSentinel {
			return true
		}

		fragment, err := ParseDelta(data)
		if err != nil {
			log.Debug("skipping stream event",
				"error", err,
				"data", utils.Truncate(data, 120),
			)
			continue
		}
		if fragment == "" {
			continue
		}

		reply.WriteString(fragment)
		bubble.SetText(reply.String())
		c.surface.ScrollToBottom()
	}
	return false
}

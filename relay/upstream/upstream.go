// Package upstream provides the inference APIs the relay forwards chat
// requests to. Every Provider returns an SSE body whose events carry either
// {"response": "..."} or OpenAI style chunk payloads, ending with
// "data: [DONE]".
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/papercomputeco/astra/pkg/chat"
)

const (
	KindWorkersAI = "workersai"
	KindOpenAI    = "openai"
)

// ErrUnknownProvider is returned by New for an unsupported provider kind.
var ErrUnknownProvider = errors.New("unknown upstream provider")

// ErrMissingUpstream is returned when a provider has no base URL to call.
var ErrMissingUpstream = errors.New("upstream base URL is required")

// Request is one chat completion request, with the model already resolved
// to the provider's identifier.
type Request struct {
	Model    string
	Messages []chat.Message
}

// Provider streams a chat completion from an inference API.
type Provider interface {
	// Name returns the provider kind.
	Name() string

	// Stream starts a completion. The caller must close the returned body.
	// A non-200 reply is returned as a *StatusError.
	Stream(ctx context.Context, req Request) (*Stream, error)
}

// Stream is an accepted completion.
type Stream struct {
	// Body is the SSE stream.
	Body io.ReadCloser

	// Header holds the upstream reply headers, when the provider has them.
	Header http.Header
}

// Config holds the settings shared by every provider.
type Config struct {
	// BaseURL is the API root. For Workers AI it may be left empty when
	// AccountID is set.
	BaseURL   string
	AccountID string
	APIToken  string

	// HTTPClient defaults to a client without timeout: completions stream
	// for as long as the model writes.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// StatusError is a non-200 reply from the upstream API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Body)
}

// New returns the Provider for kind.
func New(kind string, cfg Config) (Provider, error) {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}

	switch kind {
	case KindWorkersAI, "":
		return newWorkersAI(cfg)
	case KindOpenAI:
		return newOpenAI(cfg)
	default:
		return nil, fmt.Errorf("%w: %q (available: %s, %s)", ErrUnknownProvider, kind, KindWorkersAI, KindOpenAI)
	}
}

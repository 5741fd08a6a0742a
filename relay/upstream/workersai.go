package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/papercomputeco/astra/pkg/chat"
	"github.com/papercomputeco/astra/pkg/logger"
)

// workersAIURL is the Workers AI REST root for an account.
const workersAIURL = "https://api.cloudflare.com/client/v4/accounts/%s/ai/run"

// errorBodyLimit caps how much of a failed reply is kept for the error.
const errorBodyLimit = 4 * 1024

type workersAIRequest struct {
	Messages []chat.Message `json:"messages"`
	Stream   bool           `json:"stream"`
}

// workersAI calls the Workers AI REST API, which already streams
// {"response": "..."} SSE events, so its body is returned untouched.
type workersAI struct {
	cfg     Config
	baseURL string
}

func newWorkersAI(cfg Config) (*workersAI, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" && cfg.AccountID != "" {
		base = fmt.Sprintf(workersAIURL, cfg.AccountID)
	}
	if base == "" {
		return nil, fmt.Errorf("%w: set an upstream URL or a Cloudflare account ID", ErrMissingUpstream)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}

	return &workersAI{cfg: cfg, baseURL: base}, nil
}

func (w *workersAI) Name() string {
	return KindWorkersAI
}

func (w *workersAI) Stream(ctx context.Context, req Request) (*Stream, error) {
	body, err := json.Marshal(workersAIRequest{Messages: req.Messages, Stream: true})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	// Model identifiers such as "@cf/meta/llama-3.1-8b-instruct-fp8" are
	// path segments of the run endpoint.
	url := w.baseURL + "/" + strings.TrimLeft(req.Model, "/")
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if w.cfg.APIToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+w.cfg.APIToken)
	}

	w.cfg.Logger.Debug("forwarding chat to workers ai",
		"url", url,
		"message_count", len(req.Messages),
	)

	resp, err := w.cfg.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending request to upstream: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return &Stream{Body: resp.Body, Header: resp.Header}, nil
}

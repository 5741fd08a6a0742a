package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/ssestream"

	"github.com/papercomputeco/astra/pkg/chat"
	"github.com/papercomputeco/astra/pkg/logger"
)

const openAIDefaultURL = "https://api.openai.com/v1"

// openAIProvider talks to any OpenAI compatible chat completions API and
// re-emits every chunk's JSON as its own SSE event.
type openAIProvider struct {
	cfg    Config
	client openai.Client
}

func newOpenAI(cfg Config) (*openAIProvider, error) {
	base := cfg.BaseURL
	if base == "" {
		base = openAIDefaultURL
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}

	opts := []option.RequestOption{
		option.WithBaseURL(base),
		option.WithHTTPClient(cfg.HTTPClient),
		option.WithMaxRetries(0),
	}
	if cfg.APIToken != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIToken))
	}

	return &openAIProvider{cfg: cfg, client: openai.NewClient(opts...)}, nil
}

func (o *openAIProvider) Name() string {
	return KindOpenAI
}

func (o *openAIProvider) Stream(ctx context.Context, req Request) (*Stream, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		param, err := toChatMessageParam(m)
		if err != nil {
			return nil, err
		}
		messages = append(messages, param)
	}

	stream := o.client.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: messages,
	})
	if err := stream.Err(); err != nil {
		stream.Close()
		return nil, toStatusError(err)
	}

	pr, pw := io.Pipe()
	go o.pump(stream, pw)

	return &Stream{Body: pr}, nil
}

// pump writes each chunk as "data: <json>\n\n" followed by the sentinel.
// A stream error closes the pipe with that error so the relay sees a read
// failure instead of a clean end.
func (o *openAIProvider) pump(stream *ssestream.Stream[openai.ChatCompletionChunk], pw *io.PipeWriter) {
	defer stream.Close()

	for stream.Next() {
		chunk := stream.Current()
		if _, err := fmt.Fprintf(pw, "data: %s\n\n", chunk.RawJSON()); err != nil {
			o.cfg.Logger.Debug("client went away during openai stream", "error", err)
			return
		}
	}

	if err := stream.Err(); err != nil {
		o.cfg.Logger.Error("openai stream failed", "error", err)
		pw.CloseWithError(err)
		return
	}

	if _, err := io.WriteString(pw, "data: "+chat.DoneSentinel+"\n\n"); err != nil {
		o.cfg.Logger.Debug("client went away before sentinel", "error", err)
	}
	pw.Close()
}

func toChatMessageParam(m chat.Message) (openai.ChatCompletionMessageParamUnion, error) {
	switch m.Role {
	case chat.RoleSystem:
		return openai.SystemMessage(m.Content), nil
	case chat.RoleUser:
		return openai.UserMessage(m.Content), nil
	case chat.RoleAssistant:
		return openai.AssistantMessage(m.Content), nil
	default:
		return openai.ChatCompletionMessageParamUnion{}, fmt.Errorf("unsupported role: %s", m.Role)
	}
}

func toStatusError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &StatusError{StatusCode: apiErr.StatusCode, Body: apiErr.Message}
	}
	return fmt.Errorf("sending request to upstream: %w", err)
}

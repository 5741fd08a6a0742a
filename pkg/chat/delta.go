package chat

import (
	"encoding/json"
	"errors"
	"fmt"
)

// DoneSentinel is the event text that marks the logical end of a stream,
// independent of the transport's own end of data.
const DoneSentinel = "[DONE]"

// ErrUnrecognizedPayload is returned by ParseDelta for JSON that matches
// neither known delta shape.
var ErrUnrecognizedPayload = errors.New("unrecognized delta payload")

// deltaPayload covers both shapes seen on the wire:
//
//	{"response": "..."}                              Workers AI native
//	{"choices": [{"delta": {"content": "..."}}]}     OpenAI compatible
type deltaPayload struct {
	Response *string `json:"response"`
	Choices  []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// ParseDelta extracts the text fragment carried by one SSE event. When both
// shapes are present and non-empty, "response" wins. A recognised payload
// with no text returns an empty fragment and no error.
func ParseDelta(data string) (string, error) {
	var p deltaPayload
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return "", fmt.Errorf("decoding delta payload: %w", err)
	}

	var choice string
	if len(p.Choices) > 0 {
		choice = p.Choices[0].Delta.Content
	}

	switch {
	case p.Response != nil && *p.Response != "":
		return *p.Response, nil
	case choice != "":
		return choice, nil
	case p.Response != nil || p.Choices != nil:
		return "", nil
	}

	return "", ErrUnrecognizedPayload
}

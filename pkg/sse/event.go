// Package sse provides the Server-Sent Events framing used on both legs of
// astra: the chat client extracts delta payloads from the relay's response
// body, and the relay tees the upstream provider stream through to the client
// while inspecting it.
//
// Framing is intentionally small: events are delimited by a blank line, and
// only the "data:", "event:" and "id:" fields are recognised. Everything
// else (comments, "retry:", unknown fields) is dropped.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// Event represents a single parsed SSE event, delimited by a blank line
// in the upstream byte stream.
type Event struct {
	// Type is the SSE event type from the "event:" field.
	// An empty string means the default "message" type per the SSE spec.
	Type string

	// Data is the concatenated contents of all "data:" lines for this event,
	// joined with "\n".
	Data string

	// ID is the last event ID from the "id:" field, if present.
	ID string
}

package sse

import "strings"

const (
	// Delimiter separates two frames in the raw stream.
	Delimiter = "\n\n"

	dataField  = "data:"
	eventField = "event:"
	idField    = "id:"
)

// ConsumeEvents extracts every complete event from buffer and returns the
// event texts in stream order together with the unterminated trailing frame.
//
// The remainder must be prepended to the next network chunk before calling
// ConsumeEvents again. ConsumeEvents holds no state: feeding a stream one
// byte at a time yields the same events as feeding it in one call.
//
// Frames that carry no "data:" line (comments, keep-alives) yield no event.
func ConsumeEvents(buffer string) ([]string, string) {
	frames, remainder := splitFrames(buffer)

	var events []string
	for _, frame := range frames {
		ev, ok := parseFrame(frame)
		if !ok || !ev.hasData {
			continue
		}
		events = append(events, ev.Data)
	}

	return events, remainder
}

// Flush consumes whatever is left in buffer once the underlying stream has
// ended. An artificial delimiter is appended so that a trailing frame which
// was never terminated by a blank line is still emitted.
func Flush(buffer string) []string {
	events, _ := ConsumeEvents(buffer + Delimiter)
	return events
}

// Extractor carries the unconsumed remainder between reads of one stream.
// The zero value is ready to use. An Extractor must not be shared between
// streams.
type Extractor struct {
	buffer string
}

// Feed appends chunk to the carried remainder and returns the events it
// completed.
func (e *Extractor) Feed(chunk string) []string {
	var events []string
	events, e.buffer = ConsumeEvents(e.buffer + chunk)
	return events
}

// Close flushes the trailing frame and discards the buffer.
func (e *Extractor) Close() []string {
	events := Flush(e.buffer)
	e.buffer = ""
	return events
}

// Buffered returns the partial frame carried over to the next Feed.
func (e *Extractor) Buffered() string {
	return e.buffer
}

// splitFrames normalises line endings and cuts buffer at every blank-line
// delimiter. The text after the last delimiter is returned as remainder.
func splitFrames(buffer string) ([]string, string) {
	buffer = strings.ReplaceAll(buffer, "\r", "")

	var frames []string
	for {
		frame, rest, ok := strings.Cut(buffer, Delimiter)
		if !ok {
			return frames, buffer
		}
		frames = append(frames, frame)
		buffer = rest
	}
}

// frame is an Event plus which of its fields were present in the raw frame.
type frame struct {
	Event
	hasData bool
}

// parseFrame collects the fields of one raw frame. ok is false when the
// frame carries none of the recognised fields.
func parseFrame(raw string) (frame, bool) {
	var (
		f        frame
		ok       bool
		payloads []string
	)

	for _, line := range strings.Split(raw, "\n") {
		switch {
		case strings.HasPrefix(line, ":"):
			// Comment line.
		case strings.HasPrefix(line, dataField):
			// Only the whitespace directly after the prefix is stripped.
			payloads = append(payloads, strings.TrimLeft(line[len(dataField):], " \t"))
			f.hasData = true
			ok = true
		case strings.HasPrefix(line, eventField):
			f.Type = strings.TrimLeft(line[len(eventField):], " \t")
			ok = true
		case strings.HasPrefix(line, idField):
			f.ID = strings.TrimLeft(line[len(idField):], " \t")
			ok = true
		}
	}

	f.Data = strings.Join(payloads, "\n")
	return f, ok
}

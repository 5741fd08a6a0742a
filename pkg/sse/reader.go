package sse

import (
	"errors"
	"io"
)

const defaultReadSize = 4 * 1024

// TeeReader reads SSE events from a source io.Reader while simultaneously
// writing all raw bytes verbatim to a destination io.Writer.
//
// ┌──────────────────┐
// │ source io.Reader │
// └──────────────────┘
// │
// ▼
// ┌──────────────────┐   ┌───────────────────────┐
// │ TeeReader.Next() │──▶│ destination io.Writer │
// └──────────────────┘   └───────────────────────┘
// │
// ▼
// ┌──────────────────┐
// │      Event       │
// └──────────────────┘
//
// The relay uses it to hand the upstream provider stream to the chat client
// untouched while still observing event boundaries and the "[DONE]" sentinel.
type TeeReader struct {
	src  io.Reader
	dest io.Writer
	buf  []byte

	// pending holds the partial frame carried between reads.
	pending string
	queue   []Event
	eof     bool
}

// NewTeeReader returns a Reader that parses SSE events from the src io.Reader
// and writes all raw bytes through to dest.
// The dest writer typically backs an io.Pipe connected to the downstream HTTP
// response.
func NewTeeReader(src io.Reader, dest io.Writer) *TeeReader {
	return &TeeReader{
		src:  src,
		dest: dest,
		buf:  make([]byte, defaultReadSize),
	}
}

// Next returns the next parsed SSE event. It blocks until a complete event is
// available or the source is exhausted, in which case it returns nil, nil.
// A frame left unterminated at end of stream is still returned.
//
// Bytes are written to the destination as soon as they are read, before any
// frame boundary is known, so the downstream client never waits on parsing.
func (r *TeeReader) Next() (*Event, error) {
	for len(r.queue) == 0 {
		if r.eof {
			return nil, nil
		}

		n, err := r.src.Read(r.buf)
		if n > 0 {
			if _, werr := r.dest.Write(r.buf[:n]); werr != nil {
				return nil, werr
			}
			r.enqueue(r.pending + string(r.buf[:n]))
		}

		if errors.Is(err, io.EOF) {
			r.eof = true
			r.enqueue(r.pending + Delimiter)
			r.pending = ""
			continue
		}
		if err != nil {
			return nil, err
		}
	}

	ev := r.queue[0]
	r.queue = r.queue[1:]
	return &ev, nil
}

// enqueue splits buffer into frames, queues the parsed events and keeps the
// trailing partial frame for the next read.
func (r *TeeReader) enqueue(buffer string) {
	frames, remainder := splitFrames(buffer)
	r.pending = remainder

	for _, raw := range frames {
		if f, ok := parseFrame(raw); ok {
			r.queue = append(r.queue, f.Event)
		}
	}
}

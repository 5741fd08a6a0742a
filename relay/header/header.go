// Package header sets the relay's response headers.
//
// The relay sits between a chat client and an upstream inference API:
//
//	Client <--> Relay <--> Upstream Inference API
//
// and each leg negotiates compression, hops and encoding independently, so
// only end-to-end metadata from the upstream reply reaches the client.
package header

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Handler manages headers on the client leg of a relayed stream.
type Handler struct{}

// NewHandler creates a new header Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// streamHeaders are set on every successful chat response.
var streamHeaders = map[string]string{
	fiber.HeaderContentType:  "text/event-stream",
	fiber.HeaderCacheControl: "no-cache",
	fiber.HeaderConnection:   "keep-alive",
}

// skipResponse is the set of upstream response headers (client <-- relay <-- upstream)
// that are not copied back to the downstream client.
var skipResponse = map[string]struct{}{
	// Hop-by-hop headers: only meaningful for a single transport-level connection.
	"Connection":        {},
	"Keep-Alive":        {},
	"Transfer-Encoding": {},

	// Go's http.Transport already decompressed the body, and the length
	// of a chunked stream is unknown.
	"Content-Encoding": {},
	"Content-Length":   {},

	// The relay owns the stream's content negotiation.
	"Content-Type":  {},
	"Cache-Control": {},

	// Upstream credentials and cookies belong to the relay, not the client.
	"Set-Cookie":       {},
	"Www-Authenticate": {},
}

// SetStreamHeaders marks the response as a non-cached SSE stream.
func (h *Handler) SetStreamHeaders(c *fiber.Ctx) {
	for k, v := range streamHeaders {
		c.Set(k, v)
	}
}

// SetClientResponseHeaders copies response headers from the upstream reply
// to the Fiber context, filtering headers that the relay should not forward
// back down to the client.
func (h *Handler) SetClientResponseHeaders(c *fiber.Ctx, upstream http.Header) {
	for k, v := range upstream {
		if _, skip := skipResponse[http.CanonicalHeaderKey(k)]; !skip {
			c.Set(k, strings.Join(v, ", "))
		}
	}
}

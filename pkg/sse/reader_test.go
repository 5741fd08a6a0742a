package sse

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing/iotest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("TeeReader", func() {
	var dst *bytes.Buffer

	BeforeEach(func() {
		dst = &bytes.Buffer{}
	})

	Describe("Next", func() {
		Context("with standard SSE events", func() {
			It("parses a single event", func() {
				r := NewTeeReader(strings.NewReader("data: hello world\n\n"), dst)

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(Equal("hello world"))
				Expect(ev.Type).To(BeEmpty())
				Expect(ev.ID).To(BeEmpty())

				ev, err = r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev).To(BeNil())
			})

			It("parses event type and id", func() {
				r := NewTeeReader(strings.NewReader("event: delta\nid: 42\ndata: {\"response\":\"hi\"}\n\n"), dst)

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Type).To(Equal("delta"))
				Expect(ev.ID).To(Equal("42"))
				Expect(ev.Data).To(Equal(`{"response":"hi"}`))
			})

			It("joins multiple data lines with newline", func() {
				r := NewTeeReader(strings.NewReader("data: line one\ndata: line two\n\n"), dst)

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(Equal("line one\nline two"))
			})
		})

		Context("with a Workers AI stream", func() {
			It("yields every delta and the sentinel in order", func() {
				input := "data: {\"response\":\"Hello\"}\n\n" +
					"data: {\"response\":\" world\"}\n\n" +
					"data: [DONE]\n\n"
				r := NewTeeReader(strings.NewReader(input), dst)

				var data []string
				for {
					ev, err := r.Next()
					Expect(err).NotTo(HaveOccurred())
					if ev == nil {
						break
					}
					data = append(data, ev.Data)
				}

				Expect(data).To(Equal([]string{`{"response":"Hello"}`, `{"response":" world"}`, "[DONE]"}))
			})
		})

		Context("with arbitrarily small reads", func() {
			It("reassembles frames split across reads", func() {
				input := "data: {\"response\":\"split\"}\n\ndata: [DONE]\n\n"
				r := NewTeeReader(iotest.OneByteReader(strings.NewReader(input)), dst)

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(Equal(`{"response":"split"}`))

				ev, err = r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(Equal("[DONE]"))

				Expect(dst.String()).To(Equal(input))
			})
		})

		Context("with SSE comments", func() {
			It("ignores comment-only frames", func() {
				r := NewTeeReader(strings.NewReader(": keep-alive\n\ndata: hello\n\n"), dst)

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(Equal("hello"))
			})

			It("forwards comment lines to dst", func() {
				r := NewTeeReader(strings.NewReader(": keep-alive\ndata: hello\n\n"), dst)

				_, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(dst.String()).To(ContainSubstring(": keep-alive\n"))
			})
		})

		Context("verbatim byte forwarding", func() {
			It("forwards all bytes including \\r\\n line endings", func() {
				input := "data: first\r\n\r\ndata: second\r\n\r\n"
				r := NewTeeReader(strings.NewReader(input), dst)

				for {
					ev, err := r.Next()
					Expect(err).NotTo(HaveOccurred())
					if ev == nil {
						break
					}
				}

				Expect(dst.String()).To(Equal(input))
			})
		})

		Context("edge cases", func() {
			It("returns nil on empty input", func() {
				r := NewTeeReader(strings.NewReader(""), dst)

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev).To(BeNil())
			})

			It("returns nil on input with only blank lines", func() {
				r := NewTeeReader(strings.NewReader("\n\n\n"), dst)

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev).To(BeNil())
			})

			It("yields event when stream ends without trailing blank line", func() {
				r := NewTeeReader(strings.NewReader("data: unterminated"), dst)

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(Equal("unterminated"))

				ev, err = r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev).To(BeNil())
			})

			It("ignores data lines without a colon", func() {
				r := NewTeeReader(strings.NewReader("data\n\n"), dst)

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev).To(BeNil())
			})

			It("surfaces read errors", func() {
				boom := errors.New("connection reset")
				src := io.MultiReader(strings.NewReader("data: partial"), iotest.ErrReader(boom))
				r := NewTeeReader(src, dst)

				_, err := r.Next()
				Expect(err).To(MatchError(boom))
			})

			It("surfaces write errors", func() {
				pr, pw := io.Pipe()
				Expect(pr.Close()).To(Succeed())
				r := NewTeeReader(strings.NewReader("data: x\n\n"), pw)

				_, err := r.Next()
				Expect(err).To(MatchError(io.ErrClosedPipe))
			})
		})
	})
})

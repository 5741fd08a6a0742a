package sse

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// feedProgressively carries the remainder across calls the way a network
// read loop does, then flushes at end of stream.
func feedProgressively(chunks []string) []string {
	var (
		all    []string
		buffer string
	)
	for _, chunk := range chunks {
		var events []string
		events, buffer = ConsumeEvents(buffer + chunk)
		all = append(all, events...)
	}
	return append(all, Flush(buffer)...)
}

// splitEvery cuts s into chunks of n bytes.
func splitEvery(s string, n int) []string {
	var chunks []string
	for len(s) > n {
		chunks = append(chunks, s[:n])
		s = s[n:]
	}
	return append(chunks, s)
}

var _ = Describe("ConsumeEvents", func() {
	It("extracts a single terminated event", func() {
		events, rest := ConsumeEvents("data: hello world\n\n")
		Expect(events).To(Equal([]string{"hello world"}))
		Expect(rest).To(BeEmpty())
	})

	It("returns the unterminated frame as remainder", func() {
		events, rest := ConsumeEvents("data: first\n\ndata: sec")
		Expect(events).To(Equal([]string{"first"}))
		Expect(rest).To(Equal("data: sec"))
	})

	It("joins multiple data lines of one frame with a newline", func() {
		events, _ := ConsumeEvents("data: line one\ndata: line two\ndata: line three\n\n")
		Expect(events).To(Equal([]string{"line one\nline two\nline three"}))
	})

	It("yields nothing for frames without data lines", func() {
		events, rest := ConsumeEvents(": keep-alive\n\nevent: ping\n\n")
		Expect(events).To(BeEmpty())
		Expect(rest).To(BeEmpty())
	})

	It("yields the sentinel verbatim", func() {
		events, _ := ConsumeEvents("data: [DONE]\n\n")
		Expect(events).To(Equal([]string{"[DONE]"}))
	})

	It("drops carriage returns before scanning", func() {
		events, rest := ConsumeEvents("data: a\r\n\r\ndata: b\r\n\r\n")
		Expect(events).To(Equal([]string{"a", "b"}))
		Expect(rest).To(BeEmpty())
	})

	It("strips only the whitespace directly after the prefix", func() {
		events, _ := ConsumeEvents("data:   padded  \ndata:tight\n\n")
		Expect(events).To(Equal([]string{"padded  \ntight"}))
	})

	It("keeps an empty payload as an empty event", func() {
		events, _ := ConsumeEvents("data:\n\n")
		Expect(events).To(Equal([]string{""}))
	})

	It("ignores other fields inside a data frame", func() {
		events, _ := ConsumeEvents("id: 7\nretry: 3000\n: note\ndata: {\"response\":\"x\"}\n\n")
		Expect(events).To(Equal([]string{`{"response":"x"}`}))
	})

	It("skips empty frames between events", func() {
		events, _ := ConsumeEvents("\n\n\n\ndata: a\n\n\n\ndata: b\n\n")
		Expect(events).To(Equal([]string{"a", "b"}))
	})

	Describe("chunk-boundary invariance", func() {
		stream := "data: {\"response\":\"Hello\"}\n\n" +
			": keep-alive\n\n" +
			"data: {\"choices\":[{\"delta\":{\"content\":\" wörld\"}}]}\r\n\r\n" +
			"data: multi\ndata: line\n\n" +
			"data: [DONE]\n\n" +
			"data: trailing"

		var whole []string

		BeforeEach(func() {
			whole = feedProgressively([]string{stream})
		})

		It("flushes the trailing frame", func() {
			Expect(whole).To(HaveLen(5))
			Expect(whole[4]).To(Equal("trailing"))
		})

		It("matches when fed one byte at a time", func() {
			Expect(feedProgressively(splitEvery(stream, 1))).To(Equal(whole))
		})

		It("matches for every chunk size", func() {
			for n := 2; n < len(stream); n++ {
				Expect(feedProgressively(splitEvery(stream, n))).To(Equal(whole), "chunk size %d", n)
			}
		})
	})
})

var _ = Describe("Flush", func() {
	It("emits an unterminated frame", func() {
		Expect(Flush("data: tail")).To(Equal([]string{"tail"}))
	})

	It("emits nothing for an empty buffer", func() {
		Expect(Flush("")).To(BeEmpty())
	})

	It("tolerates a single trailing newline", func() {
		Expect(Flush("data: tail\n")).To(Equal([]string{"tail"}))
	})
})

var _ = Describe("Extractor", func() {
	It("carries partial frames between feeds", func() {
		var e Extractor

		Expect(e.Feed("data: hel")).To(BeEmpty())
		Expect(e.Buffered()).To(Equal("data: hel"))
		Expect(e.Feed("lo\n")).To(BeEmpty())
		Expect(e.Feed("\ndata: x")).To(Equal([]string{"hello"}))
		Expect(e.Close()).To(Equal([]string{"x"}))
		Expect(e.Buffered()).To(BeEmpty())
	})

	It("produces the same events as a single ConsumeEvents call", func() {
		stream := strings.Repeat("data: tick\n\n", 20)
		want, _ := ConsumeEvents(stream)

		var (
			e   Extractor
			got []string
		)
		for _, chunk := range splitEvery(stream, 3) {
			got = append(got, e.Feed(chunk)...)
		}
		got = append(got, e.Close()...)
		Expect(got).To(Equal(want))
	})
})

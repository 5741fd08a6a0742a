package chat_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/astra/pkg/chat"
)

var _ = Describe("History", func() {
	It("starts empty without a system prompt", func() {
		h := chat.NewHistory("")
		Expect(h.Len()).To(Equal(0))
		_, ok := h.Last()
		Expect(ok).To(BeFalse())
	})

	It("seeds a leading system message", func() {
		h := chat.NewHistory("be brief")
		Expect(h.Messages()).To(Equal([]chat.Message{
			{Role: chat.RoleSystem, Content: "be brief"},
		}))
	})

	It("appends in order", func() {
		h := chat.NewHistory("")
		Expect(h.Append(chat.Message{Role: chat.RoleUser, Content: "hi"})).To(Succeed())
		Expect(h.Append(chat.Message{Role: chat.RoleAssistant, Content: "hello"})).To(Succeed())

		last, ok := h.Last()
		Expect(ok).To(BeTrue())
		Expect(last.Content).To(Equal("hello"))
		Expect(h.Len()).To(Equal(2))
	})

	It("accepts a system message only as the first entry", func() {
		h := chat.NewHistory("")
		Expect(h.Append(chat.Message{Role: chat.RoleSystem, Content: "rules"})).To(Succeed())
		err := h.Append(chat.Message{Role: chat.RoleSystem, Content: "more rules"})
		Expect(err).To(MatchError(chat.ErrSystemNotLeading))

		h = chat.NewHistory("")
		Expect(h.Append(chat.Message{Role: chat.RoleUser, Content: "hi"})).To(Succeed())
		Expect(h.Append(chat.Message{Role: chat.RoleSystem, Content: "late"})).To(MatchError(chat.ErrSystemNotLeading))
	})

	It("rejects unknown roles", func() {
		h := chat.NewHistory("")
		Expect(h.Append(chat.Message{Role: "tool", Content: "x"})).NotTo(Succeed())
		Expect(h.Len()).To(Equal(0))
	})

	It("returns a copy from Messages", func() {
		h := chat.NewHistory("")
		Expect(h.Append(chat.Message{Role: chat.RoleUser, Content: "hi"})).To(Succeed())

		msgs := h.Messages()
		msgs[0].Content = "changed"
		Expect(h.Messages()[0].Content).To(Equal("hi"))
	})

	It("keeps the system message on Reset", func() {
		h := chat.NewHistory("be brief")
		Expect(h.Append(chat.Message{Role: chat.RoleUser, Content: "hi"})).To(Succeed())
		h.Reset()
		Expect(h.Messages()).To(HaveExactElements(chat.Message{Role: chat.RoleSystem, Content: "be brief"}))

		h = chat.NewHistory("")
		Expect(h.Append(chat.Message{Role: chat.RoleUser, Content: "hi"})).To(Succeed())
		h.Reset()
		Expect(h.Len()).To(Equal(0))
	})

	It("marshals messages with lower case keys", func() {
		b, err := json.Marshal(chat.Message{Role: chat.RoleUser, Content: "hi"})
		Expect(err).NotTo(HaveOccurred())
		Expect(string(b)).To(Equal(`{"role":"user","content":"hi"}`))
	})
})

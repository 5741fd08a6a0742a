package chatcmder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	tea "charm.land/bubbletea/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/astra/pkg/chat"
	"github.com/papercomputeco/astra/pkg/cliui"
	"github.com/papercomputeco/astra/pkg/logger"
)

// fakeRelay answers every chat request with the given reply split into one
// event per word, and records the conversations it received.
type fakeRelay struct {
	mu      sync.Mutex
	reply   string
	status  int
	history [][]chat.Message
}

func (f *fakeRelay) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/ping" {
		fmt.Fprint(w, `{"status":"ok"}`)
		return
	}

	var req struct {
		Messages []chat.Message `json:"messages"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	f.mu.Lock()
	f.history = append(f.history, req.Messages)
	status := f.status
	f.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	for _, word := range strings.SplitAfter(f.reply, " ") {
		b, _ := json.Marshal(map[string]string{"response": word})
		fmt.Fprintf(w, "data: %s\n\n", b)
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
}

func (f *fakeRelay) conversations() [][]chat.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.history
}

var _ = Describe("chat command", func() {
	BeforeEach(func() {
		cliui.SetColor(false)
		DeferCleanup(cliui.SetColor, true)
	})

	Describe("NewChatCmd", func() {
		It("registers the client flags", func() {
			cmd := NewChatCmd()
			Expect(cmd.Use).To(Equal("chat"))

			flag := cmd.Flags().Lookup("relay-target")
			Expect(flag).NotTo(BeNil())
			Expect(flag.Shorthand).To(Equal("r"))
			Expect(flag.DefValue).To(Equal("http://localhost:8787"))

			Expect(cmd.Flags().Lookup("model").Shorthand).To(Equal("m"))
			Expect(cmd.Flags().Lookup("show-avatar").DefValue).To(Equal("true"))
			Expect(cmd.Flags().Lookup("tui")).NotTo(BeNil())
		})
	})

	Describe("Endpoint", func() {
		It("appends the chat route", func() {
			Expect(Endpoint("http://localhost:8787")).To(Equal("http://localhost:8787/api/chat"))
			Expect(Endpoint("https://astra.example.com/")).To(Equal("https://astra.example.com/api/chat"))
		})
	})

	Describe("ping", func() {
		It("succeeds against a live relay", func() {
			srv := httptest.NewServer(&fakeRelay{})
			defer srv.Close()

			Expect(ping(context.Background(), srv.URL)).To(Succeed())
		})

		It("fails on a non-200 reply", func() {
			srv := httptest.NewServer(http.NotFoundHandler())
			defer srv.Close()

			Expect(ping(context.Background(), srv.URL)).To(MatchError(ContainSubstring("404")))
		})
	})

	Describe("checkRelay", func() {
		It("logs an unreachable relay and carries on", func() {
			srv := httptest.NewServer(http.NotFoundHandler())
			defer srv.Close()

			var logs, out bytes.Buffer
			c := &chatCommander{
				relayTarget: srv.URL,
				logger:      logger.New(logger.WithWriter(&logs)),
			}
			c.checkRelay(context.Background(), &out)

			Expect(out.String()).To(ContainSubstring("Connecting to " + srv.URL))
			Expect(logs.String()).To(ContainSubstring("relay ping failed"))
			Expect(logs.String()).To(ContainSubstring("404"))
		})

		It("logs nothing when the relay answers", func() {
			srv := httptest.NewServer(&fakeRelay{})
			defer srv.Close()

			var logs, out bytes.Buffer
			c := &chatCommander{
				relayTarget: srv.URL,
				logger:      logger.New(logger.WithWriter(&logs)),
			}
			c.checkRelay(context.Background(), &out)

			Expect(logs.String()).To(BeEmpty())
		})
	})

	Describe("lineSurface", func() {
		var (
			out     *bytes.Buffer
			surface *lineSurface
		)

		BeforeEach(func() {
			out = &bytes.Buffer{}
			surface = newLineSurface(out, false)
		})

		It("prints streamed text incrementally after the prompt", func() {
			h := surface.AppendBubble(chat.Bubble{Role: chat.RoleAssistant})
			Expect(out.String()).To(BeEmpty())

			h.SetText("Hel")
			h.SetText("Hello")
			h.SetText("Hello!")
			surface.SetBusy(false)

			Expect(out.String()).To(Equal("astra> Hello!\n\n"))
		})

		It("decorates the prompt with the avatar", func() {
			surface.AppendBubble(chat.Bubble{Role: chat.RoleAssistant, Text: "Hi", Avatar: true})

			Expect(out.String()).To(HavePrefix(avatar + " astra> Hi"))
		})

		It("strips terminal escape sequences", func() {
			h := surface.AppendBubble(chat.Bubble{Role: chat.RoleAssistant})
			h.SetText("\x1b[31mred\x1b[0m text\a")

			Expect(out.String()).To(Equal("astra> red text"))
		})

		It("does not repeat user input the terminal already echoed", func() {
			surface.AppendBubble(chat.Bubble{Role: chat.RoleUser, Text: "hi"})
			Expect(out.String()).To(BeEmpty())
		})

		It("echoes user input read from a pipe", func() {
			surface = newLineSurface(out, true)
			surface.AppendBubble(chat.Bubble{Role: chat.RoleUser, Text: "hi"})

			Expect(out.String()).To(Equal("you> hi\n"))
		})

		It("starts the fallback bubble on a fresh line", func() {
			h := surface.AppendBubble(chat.Bubble{Role: chat.RoleAssistant})
			h.SetText("partial")
			surface.AppendBubble(chat.Bubble{Role: chat.RoleAssistant, Text: "Sorry"})
			surface.SetBusy(false)

			Expect(out.String()).To(Equal("astra> partial\n\nastra> Sorry\n\n"))
		})
	})

	Describe("runLine", func() {
		var (
			relay *fakeRelay
			srv   *httptest.Server
			out   *bytes.Buffer
			ctrl  *chat.Controller
		)

		BeforeEach(func() {
			relay = &fakeRelay{reply: "Hello there"}
			srv = httptest.NewServer(relay)
			DeferCleanup(srv.Close)

			out = &bytes.Buffer{}
			ctrl = chat.New(newLineSurface(out, true), chat.Options{Endpoint: Endpoint(srv.URL)})
		})

		It("runs one exchange per line until EOF", func() {
			err := runLine(context.Background(), ctrl, strings.NewReader("hi\n\nhow are you\n"), out, false)
			Expect(err).NotTo(HaveOccurred())

			Expect(out.String()).To(ContainSubstring("you> hi\nastra> Hello there\n\n"))
			Expect(out.String()).To(ContainSubstring("you> how are you\nastra> Hello there\n\n"))

			convs := relay.conversations()
			Expect(convs).To(HaveLen(2))
			Expect(convs[1]).To(Equal([]chat.Message{
				{Role: chat.RoleUser, Content: "hi"},
				{Role: chat.RoleAssistant, Content: "Hello there"},
				{Role: chat.RoleUser, Content: "how are you"},
			}))
		})

		It("stops at /exit", func() {
			err := runLine(context.Background(), ctrl, strings.NewReader("/exit\nhi\n"), out, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(relay.conversations()).To(BeEmpty())
		})

		It("starts over after /reset", func() {
			err := runLine(context.Background(), ctrl, strings.NewReader("hi\n/reset\nagain\n"), out, false)
			Expect(err).NotTo(HaveOccurred())

			Expect(out.String()).To(ContainSubstring("Conversation cleared."))
			convs := relay.conversations()
			Expect(convs).To(HaveLen(2))
			Expect(convs[1]).To(Equal([]chat.Message{{Role: chat.RoleUser, Content: "again"}}))
		})

		It("shows the apology when the relay fails", func() {
			relay.status = http.StatusBadGateway

			err := runLine(context.Background(), ctrl, strings.NewReader("hi\n"), out, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(out.String()).To(ContainSubstring("astra> " + chat.DefaultFallbackMessage))
		})

		It("prints the prompt in interactive mode", func() {
			err := runLine(context.Background(), ctrl, strings.NewReader(""), out, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(out.String()).To(Equal("you> \n"))
		})

		It("returns when the context is cancelled", func() {
			pr, pw := io.Pipe()
			defer pw.Close()

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- runLine(ctx, ctrl, pr, out, false) }()

			cancel()
			Eventually(done).Should(Receive(BeNil()))
		})
	})

	Describe("tuiModel", func() {
		var m tuiModel

		BeforeEach(func() {
			ctrl := chat.New(newLineSurface(io.Discard, false), chat.Options{Endpoint: "http://127.0.0.1:0/api/chat"})
			m = newTUIModel(context.Background(), ctrl, "astra-2.5")
			next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
			m = next.(tuiModel)
		})

		update := func(msg tea.Msg) tea.Cmd {
			next, cmd := m.Update(msg)
			m = next.(tuiModel)
			return cmd
		}

		It("renders appended bubbles and their updates", func() {
			update(appendBubbleMsg{id: 1, bubble: chat.Bubble{Role: chat.RoleUser, Text: "hi"}})
			update(appendBubbleMsg{id: 2, bubble: chat.Bubble{Role: chat.RoleAssistant, Avatar: true}})
			update(setTextMsg{id: 2, text: "Hello \x1b[1mthere\x1b[0m"})

			transcript := m.renderTranscript()
			Expect(transcript).To(ContainSubstring("hi"))
			Expect(transcript).To(ContainSubstring("Hello there"))
			Expect(transcript).To(ContainSubstring(avatar))
			Expect(transcript).NotTo(ContainSubstring("\x1b[1mthere"))
		})

		It("tracks the busy and input state", func() {
			Expect(update(busyMsg(true))).NotTo(BeNil())
			Expect(m.busy).To(BeTrue())

			update(inputEnabledMsg(false))
			Expect(m.inputEnabled).To(BeFalse())

			update(busyMsg(false))
			update(inputEnabledMsg(true))
			Expect(m.busy).To(BeFalse())
			Expect(m.inputEnabled).To(BeTrue())
		})

		It("ignores enter while input is disabled", func() {
			update(inputEnabledMsg(false))

			Expect(update(tea.KeyPressMsg(tea.Key{Code: tea.KeyEnter}))).To(BeNil())
		})

		It("sends the input on enter", func() {
			Expect(update(tea.KeyPressMsg(tea.Key{Code: tea.KeyEnter}))).NotTo(BeNil())
		})

		It("quits on ctrl+c and ctrl+d", func() {
			for _, r := range []rune{'c', 'd'} {
				cmd := update(tea.KeyPressMsg(tea.Key{Code: r, Mod: tea.ModCtrl}))
				Expect(cmd).NotTo(BeNil())
				Expect(cmd()).To(BeAssignableToTypeOf(tea.QuitMsg{}))
			}
		})

		It("clears the transcript on /reset", func() {
			update(appendBubbleMsg{id: 1, bubble: chat.Bubble{Role: chat.RoleUser, Text: "hi"}})
			m.textarea.SetValue("/reset")

			update(tea.KeyPressMsg(tea.Key{Code: tea.KeyEnter}))

			Expect(m.bubbles).To(BeEmpty())
			Expect(m.textarea.Value()).To(BeEmpty())
		})
	})
})

package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/papercomputeco/astra/pkg/chat"
	"github.com/papercomputeco/astra/pkg/cliui"
)

const avatar = "✦"

const (
	exitCommand  = "/exit"
	resetCommand = "/reset"
)

func userPrompt() string {
	return cliui.Render(cliui.UserStyle, "you> ")
}

func assistantPrompt(withAvatar bool) string {
	prompt := cliui.Render(cliui.AstraStyle, "astra> ")
	if withAvatar {
		prompt = cliui.Render(cliui.AstraStyle, avatar) + " " + prompt
	}
	return prompt
}

// lineSurface renders a conversation as a plain transcript. Assistant text
// is printed incrementally as it streams in.
type lineSurface struct {
	out io.Writer

	// echo prints user messages, for input that the terminal did not echo.
	echo bool

	open *lineBubble
}

func newLineSurface(out io.Writer, echo bool) *lineSurface {
	return &lineSurface{out: out, echo: echo}
}

type lineBubble struct {
	s       *lineSurface
	avatar  bool
	started bool
	printed string
}

// SetText prints the part of text that is not on screen yet. The prompt is
// printed with the first visible character.
func (b *lineBubble) SetText(text string) {
	clean := cliui.Sanitize(text)
	if clean == b.printed {
		return
	}

	if !b.started {
		fmt.Fprint(b.s.out, assistantPrompt(b.avatar))
		b.started = true
	}

	if strings.HasPrefix(clean, b.printed) {
		fmt.Fprint(b.s.out, clean[len(b.printed):])
	} else {
		fmt.Fprint(b.s.out, "\n"+clean)
	}
	b.printed = clean
}

type discardBubble struct{}

func (discardBubble) SetText(string) {}

func (s *lineSurface) AppendBubble(b chat.Bubble) chat.BubbleHandle {
	s.closeOpen()

	if b.Role == chat.RoleUser {
		if s.echo {
			fmt.Fprintf(s.out, "%s%s\n", userPrompt(), cliui.Sanitize(b.Text))
		}
		return discardBubble{}
	}

	h := &lineBubble{s: s, avatar: b.Avatar}
	h.SetText(b.Text)
	s.open = h
	return h
}

// closeOpen ends the bubble being streamed, if it printed anything.
func (s *lineSurface) closeOpen() {
	if s.open == nil {
		return
	}
	if s.open.started {
		fmt.Fprint(s.out, "\n\n")
	}
	s.open = nil
}

func (s *lineSurface) ScrollToBottom()      {}
func (s *lineSurface) ClearInput()          {}
func (s *lineSurface) SetInputEnabled(bool) {}
func (s *lineSurface) Focus()               {}

func (s *lineSurface) SetBusy(busy bool) {
	if !busy {
		s.closeOpen()
	}
}

// runLine reads messages from in, one per line, until EOF, /exit or ctx is
// cancelled.
func runLine(ctx context.Context, ctrl *chat.Controller, in io.Reader, out io.Writer, prompt bool) error {
	lines := make(chan string)
	errc := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- scanner.Err()
	}()

	for {
		if prompt {
			fmt.Fprint(out, userPrompt())
		}

		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case line, ok = <-lines:
		}

		if !ok {
			// EOF
			fmt.Fprintln(out)
			select {
			case err := <-errc:
				if err != nil {
					return fmt.Errorf("reading input: %w", err)
				}
			default:
			}
			return nil
		}

		switch strings.TrimSpace(line) {
		case exitCommand:
			return nil
		case resetCommand:
			if ctrl.Reset() {
				fmt.Fprintf(out, "  %s\n\n", cliui.Render(cliui.DimStyle, "Conversation cleared."))
			}
			continue
		}

		ctrl.Send(ctx, line)
	}
}

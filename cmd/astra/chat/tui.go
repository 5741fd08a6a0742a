package chatcmder

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textarea"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/papercomputeco/astra/pkg/chat"
	"github.com/papercomputeco/astra/pkg/cliui"
)

const inputHeight = 3

var (
	tuiHeaderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("141")).Bold(true).Padding(0, 1)
	tuiHelpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Padding(0, 1)
	tuiBubbleStyle = lipgloss.NewStyle().PaddingLeft(2)
)

// Messages the surface sends into the program. The controller runs on its
// own goroutine, so every surface call becomes a message for Update.
type (
	appendBubbleMsg struct {
		id     int
		bubble chat.Bubble
	}
	setTextMsg struct {
		id   int
		text string
	}
	scrollMsg       struct{}
	clearInputMsg   struct{}
	inputEnabledMsg bool
	busyMsg         bool
	focusMsg        struct{}
	sendDoneMsg     chat.Outcome
)

// tuiSurface forwards surface calls to a running tea.Program.
type tuiSurface struct {
	program *tea.Program
	nextID  atomic.Int64
}

type tuiBubble struct {
	s  *tuiSurface
	id int
}

func (b *tuiBubble) SetText(text string) {
	b.s.program.Send(setTextMsg{id: b.id, text: text})
}

func (s *tuiSurface) AppendBubble(b chat.Bubble) chat.BubbleHandle {
	id := int(s.nextID.Add(1))
	s.program.Send(appendBubbleMsg{id: id, bubble: b})
	return &tuiBubble{s: s, id: id}
}

func (s *tuiSurface) ScrollToBottom()              { s.program.Send(scrollMsg{}) }
func (s *tuiSurface) ClearInput()                  { s.program.Send(clearInputMsg{}) }
func (s *tuiSurface) SetInputEnabled(enabled bool) { s.program.Send(inputEnabledMsg(enabled)) }
func (s *tuiSurface) SetBusy(busy bool)            { s.program.Send(busyMsg(busy)) }
func (s *tuiSurface) Focus()                       { s.program.Send(focusMsg{}) }

type renderedBubble struct {
	id     int
	bubble chat.Bubble
}

type tuiModel struct {
	ctx   context.Context
	ctrl  *chat.Controller
	model string

	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model

	bubbles      []renderedBubble
	busy         bool
	inputEnabled bool
	width        int
	height       int
}

func newTUIModel(ctx context.Context, ctrl *chat.Controller, model string) tuiModel {
	ta := textarea.New()
	ta.Placeholder = "Message Astra AI..."
	ta.ShowLineNumbers = false
	ta.Prompt = "┃ "
	ta.SetHeight(inputHeight)
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("shift+enter", "ctrl+j"))
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return tuiModel{
		ctx:          ctx,
		ctrl:         ctrl,
		model:        model,
		textarea:     ta,
		viewport:     viewport.New(),
		spinner:      sp,
		inputEnabled: true,
	}
}

func (m tuiModel) Init() tea.Cmd {
	return nil
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.textarea.SetWidth(msg.Width)
		m.viewport.SetWidth(msg.Width)
		m.viewport.SetHeight(max(1, msg.Height-inputHeight-3))
		m.refresh()
		return m, nil

	case tea.KeyPressMsg:
		return m.handleKey(msg)

	case appendBubbleMsg:
		m.bubbles = append(m.bubbles, renderedBubble{id: msg.id, bubble: msg.bubble})
		m.refresh()
		return m, nil

	case setTextMsg:
		for i := range m.bubbles {
			if m.bubbles[i].id == msg.id {
				m.bubbles[i].bubble.Text = msg.text
				break
			}
		}
		m.refresh()
		return m, nil

	case scrollMsg:
		m.viewport.GotoBottom()
		return m, nil

	case clearInputMsg:
		m.textarea.Reset()
		return m, nil

	case inputEnabledMsg:
		m.inputEnabled = bool(msg)
		return m, nil

	case busyMsg:
		m.busy = bool(msg)
		if m.busy {
			return m, m.spinner.Tick
		}
		return m, nil

	case focusMsg:
		return m, m.textarea.Focus()

	case sendDoneMsg:
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m tuiModel) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "ctrl+d":
		return m, tea.Quit

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case "enter":
		if !m.inputEnabled {
			return m, nil
		}

		input := m.textarea.Value()
		switch strings.TrimSpace(input) {
		case exitCommand:
			return m, tea.Quit
		case resetCommand:
			if m.ctrl.Reset() {
				m.bubbles = nil
				m.textarea.Reset()
				m.refresh()
			}
			return m, nil
		}

		ctx, ctrl := m.ctx, m.ctrl
		return m, func() tea.Msg {
			return sendDoneMsg(ctrl.Send(ctx, input))
		}
	}

	if !m.inputEnabled {
		return m, nil
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

// refresh re-renders the transcript into the viewport, keeping the view
// pinned to the bottom when it already was.
func (m *tuiModel) refresh() {
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderTranscript())
	if atBottom {
		m.viewport.GotoBottom()
	}
}

func (m tuiModel) renderTranscript() string {
	width := max(10, m.width-2)
	wrap := tuiBubbleStyle.Width(width)

	var sb strings.Builder
	for _, rb := range m.bubbles {
		b := rb.bubble
		switch b.Role {
		case chat.RoleUser:
			sb.WriteString(cliui.UserStyle.Render("you"))
		default:
			name := cliui.AstraStyle.Render("Astra AI")
			if b.Avatar {
				name = cliui.AstraStyle.Render(avatar) + " " + name
			}
			sb.WriteString(name)
		}
		sb.WriteString("\n")
		sb.WriteString(wrap.Render(cliui.Sanitize(b.Text)))
		sb.WriteString("\n\n")
	}
	return sb.String()
}

func (m tuiModel) View() tea.View {
	header := tuiHeaderStyle.Render("Astra AI")
	if m.model != "" {
		header += " " + cliui.DimStyle.Render(m.model)
	}

	status := "enter send • shift+enter newline • /reset clear • ctrl+c quit"
	if m.busy {
		status = m.spinner.View() + " Astra is typing..."
	}

	v := tea.NewView(fmt.Sprintf("%s\n%s\n%s\n%s",
		header,
		m.viewport.View(),
		m.textarea.View(),
		tuiHelpStyle.Render(status),
	))
	v.AltScreen = true
	return v
}

// runTUI runs the full-screen interface until the user quits.
func runTUI(ctx context.Context, surface *tuiSurface, ctrl *chat.Controller, model string) error {
	program := tea.NewProgram(newTUIModel(ctx, ctrl, model), tea.WithContext(ctx))
	surface.program = program

	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("running chat interface: %w", err)
	}
	return nil
}

package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/thomastoledo/prust/internal/chat"
	"github.com/thomastoledo/prust/internal/negotiation"
	"github.com/thomastoledo/prust/internal/transport"
)

const (
	inputHeight = 3
	// header, status line, error line and footer
	chromeHeight = 4
)

// Messenger is the chat session the screen drives.
type Messenger interface {
	Send(text string) (chat.Entry, error)
	Conversation() *chat.Conversation
}

type changedMsg struct{}

// ChatModel is the bubbletea model of the chat screen. It re-reads the
// conversation and the session snapshot whenever Notify is called.
type ChatModel struct {
	peer     string
	chat     Messenger
	status   func() negotiation.Snapshot
	changed  chan struct{}
	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model
	entries  []chat.Entry
	snapshot negotiation.Snapshot
	err      error
	width    int
	quitting bool
}

func NewChatModel(peer string, c Messenger, status func() negotiation.Snapshot) *ChatModel {
	ta := textarea.New()
	ta.Placeholder = "Type a message..."
	ta.Prompt = "┃ "
	ta.ShowLineNumbers = false
	ta.CharLimit = 4000
	ta.SetHeight(inputHeight)
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter"))
	ta.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	m := &ChatModel{
		peer:     peer,
		chat:     c,
		status:   status,
		changed:  make(chan struct{}, 1),
		viewport: viewport.New(80, 10),
		input:    ta,
		spinner:  s,
		width:    80,
	}
	m.refresh()
	return m
}

// Notify tells the screen that the conversation or the session changed.
// It never blocks; notifications that arrive before the last one was read
// are merged.
func (m *ChatModel) Notify() {
	select {
	case m.changed <- struct{}{}:
	default:
	}
}

func (m *ChatModel) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick, m.waitForChange())
}

func (m *ChatModel) waitForChange() tea.Cmd {
	return func() tea.Msg {
		<-m.changed
		return changedMsg{}
	}
}

func (m *ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			m.send()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.SetWidth(msg.Width)
		m.viewport.Width = msg.Width
		m.viewport.Height = max(1, msg.Height-inputHeight-chromeHeight)
		m.render()

	case changedMsg:
		m.refresh()
		return m, m.waitForChange()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *ChatModel) send() {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return
	}
	if _, err := m.chat.Send(text); err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.input.Reset()
	m.refresh()
}

func (m *ChatModel) refresh() {
	if m.status != nil {
		m.snapshot = m.status()
	}
	m.entries = m.chat.Conversation().Entries()
	m.render()
}

func (m *ChatModel) render() {
	m.viewport.SetContent(renderEntries(m.entries, m.width))
	m.viewport.GotoBottom()
}

func (m *ChatModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(HeaderStyle.Render(fmt.Sprintf("%s prust · %s %s", IconChat, IconPeer, m.peer)))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	status := statusLine(m.snapshot)
	if !m.snapshot.ChannelOpen && m.snapshot.State != negotiation.StateClosed {
		status = m.spinner.View() + " " + status
	}
	b.WriteString(status)
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(ErrorStyle.Render(errorText(m.err)))
	}
	b.WriteString("\n")

	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(FooterStyle.Render("enter send · alt+enter newline · esc quit"))

	return b.String()
}

func statusLine(s negotiation.Snapshot) string {
	switch {
	case s.State == negotiation.StateClosed:
		return ErrorStyle.Render("Session closed")
	case s.ChannelOpen:
		return SuccessStyle.Render(fmt.Sprintf("%s Connected", IconConnect)) +
			MutedStyle.Render(fmt.Sprintf(" · %s %s", IconRoom, s.RoomID))
	case s.RoomID == "":
		return MutedStyle.Render("Connecting to relay...")
	case !s.SignalingChannelOpened:
		return MutedStyle.Render(fmt.Sprintf("Room %s · waiting for peer...", s.RoomID))
	default:
		return MutedStyle.Render(fmt.Sprintf("Room %s · %s", s.RoomID, s.State))
	}
}

func errorText(err error) string {
	if errors.Is(err, transport.ErrChannelNotReady) {
		return "Not connected yet, message not sent"
	}
	return err.Error()
}

// renderEntries lays the conversation out one entry per block, keeping the
// line breaks the author typed.
func renderEntries(entries []chat.Entry, width int) string {
	if len(entries) == 0 {
		return MutedStyle.Render("No messages yet")
	}

	wrap := lipgloss.NewStyle().Width(max(10, width-2))

	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n")
		}
		name := PeerStyle.Render(e.From.String())
		if e.From == chat.Me {
			name = MeStyle.Render(e.From.String())
		}
		fmt.Fprintf(&b, "%s %s\n", name, TimestampStyle.Render(e.At.Format("15:04")))
		b.WriteString(wrap.Render(e.Content))
	}
	return b.String()
}

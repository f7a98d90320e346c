// Package tui is the terminal front-end. It publishes bus events for user
// actions and re-renders from the orchestrator's exposed state.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/quillchat/quill/internal/chat"
	"github.com/quillchat/quill/internal/eventbus"
	"github.com/quillchat/quill/internal/models"
	"go.uber.org/zap"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Padding(0, 1)
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	dividerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// busMsg wraps a bus event into the bubbletea message loop.
type busMsg struct {
	evt eventbus.Event
}

type Model struct {
	bus       *eventbus.Bus
	orch      *chat.Orchestrator
	assistant *models.Assistant
	logger    *zap.Logger

	viewport viewport.Model
	input    textinput.Model
	spin     spinner.Model

	ready        bool
	waiting      bool
	tokens       int
	contextCount int
	width        int
	height       int
}

func NewModel(bus *eventbus.Bus, orch *chat.Orchestrator, assistant *models.Assistant, logger *zap.Logger) Model {
	input := textinput.New()
	input.Placeholder = "Message (enter to send, ctrl+c to quit)"
	input.Focus()

	spin := spinner.New(spinner.WithSpinner(spinner.Dot))

	return Model{
		bus:       bus,
		orch:      orch,
		assistant: assistant,
		logger:    logger,
		input:     input,
		spin:      spin,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spin.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "enter":
			m.sendInput()
		case "ctrl+r":
			m.bus.Publish(eventbus.RegenerateMessageEvent{Model: m.assistant.Model})
			m.waiting = true
		case "ctrl+x":
			m.bus.Publish(eventbus.NewContextEvent{})
		case "ctrl+l":
			m.bus.Publish(eventbus.ClearMessagesEvent{})
		case "ctrl+b":
			m.bus.Publish(eventbus.NewBranchEvent{Index: 0})
		}
		m.refreshViewport()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}
		m.input.Width = msg.Width - 4
		m.refreshViewport()

	case busMsg:
		switch evt := msg.evt.(type) {
		case eventbus.ReceiveMessageEvent:
			m.waiting = false
			m.refreshViewport()
		case eventbus.EstimatedTokenCountEvent:
			m.tokens = evt.Tokens
			m.contextCount = evt.ContextCount
			// estimates follow every sequence change, including failed or
			// paused placeholders that never produce a receive event
			m.waiting = m.hasPending()
			m.refreshViewport()
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) sendInput() {
	content := strings.TrimSpace(m.input.Value())
	if content == "" {
		return
	}
	topic := m.orch.Topic()
	if topic == nil {
		return
	}

	msg := models.NewUserMessage(m.assistant, topic, models.TypeText)
	msg.Content = content
	m.bus.Publish(eventbus.SendMessageEvent{Message: msg})

	m.input.Reset()
	m.waiting = true
}

func (m *Model) hasPending() bool {
	for _, msg := range m.orch.Messages() {
		if msg.Role == models.RoleAssistant && msg.Status == models.StatusPending {
			return true
		}
	}
	return false
}

func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderMessages())
	m.viewport.GotoBottom()
}

func (m *Model) renderMessages() string {
	messages := m.orch.Messages()
	var b strings.Builder

	for _, msg := range messages {
		if msg.Type == models.TypeClear {
			b.WriteString(dividerStyle.Render("── context cleared ──"))
			b.WriteString("\n\n")
			continue
		}
		if msg.IsPreset && m.assistant.Settings.HidePresetMessages {
			continue
		}

		switch {
		case msg.Role == models.RoleUser:
			b.WriteString(userStyle.Render("You"))
		case msg.Status == models.StatusError:
			b.WriteString(errorStyle.Render(m.assistant.Name + " (error)"))
		default:
			b.WriteString(assistantStyle.Render(m.assistant.Name))
		}
		b.WriteString("\n")

		switch msg.Status {
		case models.StatusPending:
			b.WriteString(statusStyle.Render("thinking…"))
		case models.StatusPaused:
			b.WriteString(statusStyle.Render(msg.Content + " ⏸"))
		default:
			b.WriteString(msg.Content)
		}
		b.WriteString("\n\n")
	}

	return b.String()
}

func (m Model) View() string {
	if !m.ready {
		return "loading…"
	}

	title := models.DefaultTopicName
	if topic := m.orch.Topic(); topic != nil {
		title = topic.Name
	}

	status := fmt.Sprintf("~%d tokens · %d in context", m.tokens, m.contextCount)
	if m.waiting {
		status = m.spin.View() + " waiting · " + status
	}

	return fmt.Sprintf("%s\n%s\n%s\n%s",
		titleStyle.Render(title),
		m.viewport.View(),
		m.input.View(),
		statusStyle.Render(status),
	)
}

// forwardEvents bridges bus events into the program's message loop. Delivery
// must be asynchronous: bus handlers run on the publisher's goroutine, which
// is the event loop itself when an Update publishes, and Program.Send blocks
// on an unbuffered channel the event loop reads — a synchronous Send from
// inside Update would deadlock the program.
func forwardEvents(bus *eventbus.Bus, send func(tea.Msg)) []*eventbus.Subscription {
	forward := func(evt eventbus.Event) {
		go send(busMsg{evt: evt})
	}
	return []*eventbus.Subscription{
		bus.Subscribe(eventbus.ReceiveMessage, forward),
		bus.Subscribe(eventbus.EstimatedTokenCount, forward),
	}
}

// Run wires the bus into the program's message loop and blocks until quit.
func Run(bus *eventbus.Bus, orch *chat.Orchestrator, assistant *models.Assistant, logger *zap.Logger) error {
	p := tea.NewProgram(NewModel(bus, orch, assistant, logger), tea.WithAltScreen())

	subs := forwardEvents(bus, p.Send)
	defer func() {
		for _, sub := range subs {
			sub.Close()
		}
	}()

	_, err := p.Run()
	return err
}

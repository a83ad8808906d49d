package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/puyokura/cmppview/chatdata"
	"github.com/puyokura/cmppview/model"
	"github.com/puyokura/cmppview/state"
	"github.com/puyokura/cmppview/ui/input"
)

const renameInputID = "rename"

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	subtextStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8E9297"))
	favoriteStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAA61A"))
	borderStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#505050"))
)

type connectionMsg struct {
	connected bool
}

type modelState struct {
	network   *Network
	store     *state.Store
	projector *chatdata.Projector
	stateFile string

	// chat is the snapshot the header was last drawn from.
	chat   *chatdata.ChatData
	header string

	viewport  viewport.Model
	textInput textinput.Model
	rename    *input.Model

	system   []string
	messages map[uuid.UUID][]model.Message

	err   error
	ready bool
}

func initialModel(net *Network, store *state.Store, projector *chatdata.Projector, stateFile string) modelState {
	ti := textinput.New()
	ti.Placeholder = "Type a message..."
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 20

	m := modelState{
		network:   net,
		store:     store,
		projector: projector,
		stateFile: stateFile,
		textInput: ti,
		messages:  make(map[uuid.UUID][]model.Message),
	}
	m.refresh()
	return m
}

func (m modelState) Init() tea.Cmd {
	return textinput.Blink
}

// refresh re-projects the active chat and redraws the header whenever the
// snapshot changed, which is every time one exists.
func (m *modelState) refresh() {
	data, ok := m.projector.Get(m.store)
	if !ok {
		m.chat = nil
		m.header = subtextStyle.Render("Loading...")
		return
	}
	if data.Changed(m.chat) {
		m.chat = data
		m.header = renderHeader(data)
	}
}

func renderHeader(d *chatdata.ChatData) string {
	var b strings.Builder
	b.WriteString(d.Platform.Render())
	b.WriteString(" ")
	b.WriteString(titleStyle.Render(d.Title()))
	if d.IsFavorite {
		b.WriteString(" " + favoriteStyle.Render("★"))
	}
	if d.ActiveChat.Type == model.ConversationGroup {
		b.WriteString(subtextStyle.Render(fmt.Sprintf("  %d members", len(d.OtherParticipants)+1)))
	}
	if d.Subtext != "" {
		b.WriteString("\n" + subtextStyle.Render(d.Subtext))
	}
	return b.String()
}

func (m *modelState) appendSystem(text string) {
	m.system = append(m.system, text)
	m.redrawMessages()
}

func (m *modelState) redrawMessages() {
	if !m.ready {
		return
	}
	lines := append([]string(nil), m.system...)
	if m.chat != nil {
		for _, msg := range m.messages[m.chat.ActiveChat.ID] {
			lines = append(lines, formatMessage(msg, m.viewport.Width))
		}
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
	m.viewport.GotoBottom()
}

func (m modelState) saveState() {
	if m.stateFile == "" {
		return
	}
	if err := m.store.SaveFile(m.stateFile); err != nil {
		log.Printf("failed to save state: %v", err)
	}
}

func (m modelState) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.saveState()
			return m, tea.Quit
		}
		if m.rename != nil {
			rename, cmd := m.rename.Update(msg)
			m.rename = &rename
			return m, cmd
		}

		switch msg.Type {
		case tea.KeyEsc:
			m.saveState()
			return m, tea.Quit
		case tea.KeyCtrlN, tea.KeyCtrlP:
			delta := 1
			if msg.Type == tea.KeyCtrlP {
				delta = -1
			}
			m.store.CycleActiveChat(delta)
			m.refresh()
			m.redrawMessages()
			return m, nil
		case tea.KeyCtrlL:
			m.store.ResyncChats()
			m.refresh()
			return m, nil
		case tea.KeyCtrlF:
			if m.chat == nil {
				return m, nil
			}
			if _, err := m.store.ToggleFavorite(m.chat.ActiveChat.ID); err != nil {
				m.appendSystem("Error: " + err.Error())
			}
			m.refresh()
			return m, nil
		case tea.KeyCtrlR:
			if m.chat == nil || m.chat.ActiveChat.Type != model.ConversationGroup {
				m.appendSystem("Only group chats can be renamed.")
				return m, nil
			}
			if !m.chat.CanRename() {
				m.appendSystem("Only the group owner can rename it.")
				return m, nil
			}
			rename := input.New(renameInputID, chatdata.InputOptions())
			rename.SetValue(m.chat.ActiveChat.Name)
			m.rename = &rename
			return m, rename.Init()
		case tea.KeyEnter:
			if m.textInput.Value() != "" {
				content := m.textInput.Value()
				m.textInput.SetValue("")
				return m, m.handleLine(content)
			}
		}

	case input.SubmitMsg:
		if msg.ID == renameInputID && m.chat != nil {
			return m, m.network.Rename(m.chat.ActiveChat, msg.Value)
		}

	case input.CancelMsg:
		m.rename = nil
		return m, nil

	case connectionMsg:
		if msg.connected {
			m.appendSystem("Connected!")
			return m, m.network.WaitForMessage
		}

	case disconnectedMsg:
		m.appendSystem(fmt.Sprintf("Disconnected: %v", msg.err))
		return m, nil

	case tea.WindowSizeMsg:
		headerHeight := 3
		footerHeight := 3
		verticalMarginHeight := headerHeight + footerHeight

		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-verticalMarginHeight)
			m.viewport.YPosition = headerHeight
			m.ready = true
			m.redrawMessages()
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - verticalMarginHeight
		}
		m.textInput.Width = msg.Width

	case model.Event:
		m.handleEvent(msg)
		return m, m.network.WaitForMessage

	case errMsg:
		m.err = msg
		m.appendSystem("Error: " + msg.Error())
		return m, nil
	}

	m.textInput, tiCmd = m.textInput.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd)
}

// handleLine processes one submitted line from the message input.
func (m *modelState) handleLine(content string) tea.Cmd {
	if strings.HasPrefix(content, "/connect ") {
		parts := strings.Fields(content)
		if len(parts) == 2 {
			host := parts[1]
			net := m.network
			return func() tea.Msg {
				if err := net.Connect(host); err != nil {
					return errMsg(err)
				}
				return connectionMsg{connected: true}
			}
		}
		m.appendSystem("Usage: /connect <host>")
		return nil
	}

	if !m.network.Connected() {
		m.appendSystem("Not connected. Use /connect <host>.")
		return nil
	}

	if content == "/unconnect" {
		m.network.Disconnect()
		m.appendSystem("Disconnected.")
		return nil
	}

	if strings.HasPrefix(content, "/") {
		return m.network.SendCommand(content)
	}

	if m.chat == nil {
		m.appendSystem("No active chat. Use /dm <user> or /group <name> <user>... to start one.")
		return nil
	}
	return m.network.SendToChat(m.chat.ActiveChat, content)
}

func (m *modelState) handleEvent(ev model.Event) {
	switch ev.Type {
	case model.EventMessage:
		var msg model.Message
		if err := model.DecodePayload(ev, &msg); err != nil {
			log.Printf("bad message payload: %v", err)
			return
		}
		if msg.IsSystem || msg.ChatID == uuid.Nil {
			m.appendSystem(subtextStyle.Render(msg.Content))
			return
		}
		m.messages[msg.ChatID] = append(m.messages[msg.ChatID], msg)
		m.redrawMessages()

	case model.EventError:
		var text string
		if err := model.DecodePayload(ev, &text); err != nil {
			text = fmt.Sprint(ev.Payload)
		}
		m.appendSystem("Error: " + text)

	default:
		if err := m.store.Apply(ev); err != nil {
			log.Printf("failed to apply %s event: %v", ev.Type, err)
			return
		}
		m.refresh()
		m.redrawMessages()
	}
}

func (m modelState) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}
	footer := m.textInput.View()
	if m.rename != nil {
		footer = "Rename group (esc to close): " + m.rename.View()
	}
	rule := borderStyle.Render(strings.Repeat("─", m.viewport.Width))
	return fmt.Sprintf("%s\n%s\n%s\n%s\n%s",
		m.header,
		rule,
		m.viewport.View(),
		rule,
		footer,
	)
}

func formatMessage(msg model.Message, width int) string {
	if width < 50 {
		width = 80
	}

	// │ Time  │ Sender          │ Message
	timeStr := msg.Timestamp.Format("15:04")

	user := msg.Sender
	if user == "" {
		user = "Unknown"
	}
	if r := []rune(user); len(r) > 15 {
		user = string(r[:15])
	}
	user = fmt.Sprintf("%-15s", user)

	vLine := borderStyle.Render("│")
	prefix := fmt.Sprintf("%s %s %s %s %s ", vLine, timeStr, vLine, user, vLine)
	prefixWidth := lipgloss.Width(prefix)

	msgWidth := width - prefixWidth
	if msgWidth < 10 {
		msgWidth = 10
	}

	wrapped := lipgloss.NewStyle().Width(msgWidth).Render(msg.Content)
	lines := strings.Split(wrapped, "\n")

	emptyPrefix := fmt.Sprintf("%s %s %s %s %s ",
		vLine, strings.Repeat(" ", 5),
		vLine, strings.Repeat(" ", 15),
		vLine)

	var result strings.Builder
	for i, line := range lines {
		if i == 0 {
			result.WriteString(prefix)
		} else {
			result.WriteString(emptyPrefix)
		}
		result.WriteString(line)
		if i < len(lines)-1 {
			result.WriteString("\n")
		}
	}
	return result.String()
}

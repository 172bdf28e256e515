package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/loqui-dev/loqui/pkg/engine"
)

// appState represents the application state machine.
type appState int

const (
	stateIdle appState = iota
	stateProcessing
)

// appModel is the root bubbletea model.
type appModel struct {
	ctx          context.Context
	sess         *engine.Session
	eng          *engine.Engine
	chatView     chatViewModel
	inputBox     inputModel
	statusBar    statusBarModel
	state        appState
	cancelBridge context.CancelFunc
	width        int
	height       int
	sendStart    time.Time
}

func newAppModel(ctx context.Context, sess *engine.Session, eng *engine.Engine) appModel {
	return appModel{
		ctx:       ctx,
		sess:      sess,
		eng:       eng,
		chatView:  newChatView(),
		inputBox:  newInput(),
		statusBar: newStatusBar(&eng.Adapter().Usage, eng.Adapter().Model),
		state:     stateIdle,
	}
}

func (m appModel) Init() tea.Cmd {
	// Delay focusing the input so that stale terminal escape-sequence
	// responses (e.g. OSC 11 background-color) are drained first.
	return tea.Tick(200*time.Millisecond, func(time.Time) tea.Msg {
		return initDrainMsg{}
	})
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case initDrainMsg:
		cmd := m.inputBox.enable()
		return m, cmd

	case programReadyMsg:
		m.cancelBridge = startBridge(m.ctx, msg.program, m.sess.Chat(), m.eng.Events())
		return m, nil

	case inputSubmitMsg:
		return m.handleSubmit(msg)

	case chatMessageMsg:
		return m, m.chatView.addMessage(msg.msg)

	case textChunkMsg:
		m.chatView.textChunk(msg.delta)
		return m, nil

	case toolInvokedMsg:
		m.chatView.toolInvoked(msg.call)
		return m, nil

	case toolResultMsg:
		return m, m.chatView.toolResult(msg.result)

	case sendCompleteMsg:
		m.statusBar.duration = msg.duration
		m.state = stateIdle
		focusCmd := m.inputBox.enable()
		m.chatView.setProcessing(false)
		var cmds []tea.Cmd
		if msg.err != nil && m.ctx.Err() == nil {
			cmds = append(cmds, tea.Println(errorStyle.Render("error: "+msg.err.Error())))
		}
		cmds = append(cmds, focusCmd)
		return m, tea.Batch(cmds...)

	case tickMsg:
		if m.state == stateProcessing {
			m.chatView.advanceSpinner()
			return m, tickCmd()
		}
		return m, nil
	}

	if m.state == stateIdle {
		var cmd tea.Cmd
		m.inputBox, cmd = m.inputBox.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m appModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.chatView.View(),
		m.inputBox.View(),
		m.statusBar.View(),
	)
}

func (m *appModel) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	initMarkdownRenderer(m.width - 4)
	m.inputBox.setWidth(m.width)
	m.chatView.setWidth(m.width)
	return m, nil
}

func (m *appModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		if m.cancelBridge != nil {
			m.cancelBridge()
		}
		return m, tea.Quit
	}

	if m.state == stateIdle {
		var cmd tea.Cmd
		m.inputBox, cmd = m.inputBox.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *appModel) handleSubmit(msg inputSubmitMsg) (tea.Model, tea.Cmd) {
	text := msg.text

	if strings.HasPrefix(text, "/") {
		return m.handleCommand(text)
	}

	// Echo the user message into the scrollback.
	echo := tea.Println(renderUserMessage(text))

	m.state = stateProcessing
	m.inputBox.disable()
	m.chatView.setProcessing(true)
	m.sendStart = time.Now()

	// Run the send in a background goroutine via tea.Cmd.
	sess := m.sess
	ctx := m.ctx
	start := m.sendStart
	sendCmd := func() tea.Msg {
		_, err := sess.Send(ctx, text)
		return sendCompleteMsg{err: err, duration: time.Since(start)}
	}

	return m, tea.Batch(echo, sendCmd, tickCmd())
}

func (m *appModel) handleCommand(text string) (tea.Model, tea.Cmd) {
	switch text {
	case "/quit", "/exit":
		if m.cancelBridge != nil {
			m.cancelBridge()
		}
		return m, tea.Quit

	case "/help":
		return m, tea.Println(helpText())

	case "/clear":
		if err := m.sess.Clear(); err != nil {
			return m, tea.Println(errorStyle.Render("error: " + err.Error()))
		}
		return m, tea.Println(dimStyle.Render("conversation cleared"))

	case "/tools":
		tools := m.eng.Toolbox().Tools()
		if len(tools) == 0 {
			return m, tea.Println(dimStyle.Render("no tools registered"))
		}
		var sb strings.Builder
		sb.WriteString("Tools:\n")
		for _, t := range tools {
			fmt.Fprintf(&sb, "  %s  %s\n", toolNameStyle.Render(t.Name), dimStyle.Render(truncate(t.Description, 70)))
		}
		return m, tea.Println(strings.TrimRight(sb.String(), "\n"))

	default:
		return m, tea.Println(errorStyle.Render("unknown command " + text + " (try /help)"))
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func helpText() string {
	return dimStyle.Render(
		"Commands:\n" +
			"  /help          Show this help message\n" +
			"  /tools         List available tools\n" +
			"  /clear         Start the conversation over\n" +
			"  /quit          Exit the chat\n\n" +
			"Shortcuts:\n" +
			"  Enter          Submit message\n" +
			"  Alt+Enter      New line\n" +
			"  Ctrl+C         Exit",
	)
}

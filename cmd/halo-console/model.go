package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wordwrap"

	session "github.com/ansnik/halo-core/core"
	"github.com/ansnik/halo-core/core/conversations"
	"github.com/ansnik/halo-core/core/events"
)

// sessionEventMsg carries a session event into the bubbletea loop.
type sessionEventMsg struct {
	event events.Event
}

type joinResultMsg struct {
	err error
}

type model struct {
	coordinator *session.Coordinator
	room        string
	user        string

	status     conversations.Status
	turns      []conversations.Turn
	transcript string
	videoReady bool
	micOn      bool
	voiceOn    bool
	joined     bool
	errText    string

	spin   spinner.Model
	view   viewport.Model
	width  int
	height int
	sized  bool
}

func newModel(coordinator *session.Coordinator, room, user string) model {
	spin := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(spinnerStyle))
	return model{
		coordinator: coordinator,
		room:        room,
		user:        user,
		status:      conversations.StatusIdle,
		micOn:       true,
		voiceOn:     true,
		spin:        spin,
	}
}

// Init joins the session and starts the spinner.
func (m model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, joinCmd(m.coordinator, m.room, m.user))
}

func joinCmd(coordinator *session.Coordinator, room, user string) tea.Cmd {
	return func() tea.Msg {
		return joinResultMsg{err: coordinator.Join(context.Background(), room, user)}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		contentHeight := max(3, m.height-6)
		if !m.sized {
			m.view = viewport.New(m.width, contentHeight)
			m.sized = true
		} else {
			m.view.Width = m.width
			m.view.Height = contentHeight
		}
		m.refreshTurns()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case joinResultMsg:
		if msg.err != nil {
			m.errText = msg.err.Error()
		}
		return m, nil

	case sessionEventMsg:
		return m.handleSessionEvent(msg.event), nil
	}

	var cmd tea.Cmd
	m.view, cmd = m.view.Update(msg)
	return m, cmd
}

func (m model) handleSessionEvent(event events.Event) model {
	switch event := event.(type) {
	case events.SessionJoined:
		m.joined = true
		m.errText = ""

	case events.SessionLeft:
		m.joined = false

	case events.StatusChanged:
		m.status = event.Status

	case events.TranscriptUpdated:
		m.transcript = event.Transcript

	case events.TurnUpdated:
		m.upsertTurn(event.Turn)
		m.refreshTurns()

	case events.TurnFinalized:
		m.upsertTurn(event.Turn)
		m.refreshTurns()

	case events.StreamReady:
		m.videoReady = true

	case events.StreamNotReady:
		m.videoReady = false

	case events.StreamFailed:
		m.errText = fmt.Sprintf("stream %s failed: %s", event.StreamID, event.Reason)
	}

	return m
}

func (m *model) upsertTurn(turn conversations.Turn) {
	for i := range m.turns {
		if m.turns[i].ID == turn.ID {
			m.turns[i] = turn
			return
		}
	}
	m.turns = append(m.turns, turn)
}

func (m *model) refreshTurns() {
	if !m.sized {
		return
	}
	m.view.SetContent(m.renderTurns())
	m.view.GotoBottom()
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.coordinator.Close()
		return m, tea.Quit

	case "m":
		if m.coordinator.SetMicrophoneEnabled(!m.micOn) {
			m.micOn = !m.micOn
		}
		return m, nil

	case "v":
		m.voiceOn = !m.voiceOn
		m.coordinator.SetPreferredVoicePlayback(m.voiceOn)
		return m, nil
	}

	var cmd tea.Cmd
	m.view, cmd = m.view.Update(msg)
	return m, cmd
}

func (m model) View() string {
	if !m.sized {
		return "Initializing..."
	}

	var sections []string
	sections = append(sections, m.renderHeader())
	sections = append(sections, m.renderStatusBar())
	sections = append(sections, m.view.View())
	sections = append(sections, m.renderTranscriptBar())
	if m.errText != "" {
		sections = append(sections, errorStyle.Render("Error: ")+m.errText)
	}
	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

func (m model) renderHeader() string {
	title := titleStyle.Render("HALO")
	target := dimStyle.Render(fmt.Sprintf(" — %s@%s", m.user, m.room))
	if !m.joined {
		return title + target + dimStyle.Render(" (joining...)")
	}
	return title + target
}

func (m model) renderStatusBar() string {
	status := statusStyle.Render(strings.ToUpper(string(m.status)))
	if m.status == conversations.StatusThinking {
		status = m.spin.View() + status
	}

	var badges []string
	if m.videoReady {
		badges = append(badges, readyBadgeStyle.Render("VIDEO"))
	} else {
		badges = append(badges, notReadyBadgeStyle.Render("NO VIDEO"))
	}
	if m.micOn {
		badges = append(badges, readyBadgeStyle.Render("MIC"))
	} else {
		badges = append(badges, dimStyle.Render("MUTED"))
	}
	if !m.voiceOn {
		badges = append(badges, dimStyle.Render("VOICE OFF"))
	}

	return status + "  " + strings.Join(badges, " ")
}

func (m model) renderTurns() string {
	if len(m.turns) == 0 {
		return dimStyle.Render("  No conversation yet. Speak, or wait for the agent.")
	}

	textWidth := max(20, m.width-10)

	var lines []string
	for _, turn := range m.turns {
		label := agentTurnStyle.Render("agent> ")
		style := agentTurnStyle
		if turn.Sender == conversations.SenderUser {
			label = userTurnStyle.Render("  you> ")
			style = userTurnStyle
		}

		content := turn.Content
		if turn.Streaming {
			content += "▌"
		}

		wrapped := strings.Split(wordwrap.String(content, textWidth), "\n")
		lines = append(lines, label+style.Render(wrapped[0]))
		for _, line := range wrapped[1:] {
			lines = append(lines, "       "+style.Render(line))
		}
	}

	return strings.Join(lines, "\n")
}

func (m model) renderTranscriptBar() string {
	if m.transcript == "" {
		return dimStyle.Render("…")
	}
	return transcriptStyle.Render(m.transcript + "▌")
}

func (m model) renderFooter() string {
	parts := []string{
		footerKeyStyle.Render("m") + footerDescStyle.Render(" Mic"),
		footerKeyStyle.Render("v") + footerDescStyle.Render(" Voice"),
		footerKeyStyle.Render("↑↓") + footerDescStyle.Render(" Scroll"),
		footerKeyStyle.Render("q") + footerDescStyle.Render(" Quit"),
	}
	return strings.Join(parts, "  ")
}

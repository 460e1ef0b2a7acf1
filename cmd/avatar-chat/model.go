package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	orchestration "github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core"
	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/avatar"
	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/transcript"
	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/internal/config"
)

const (
	textPlaceholder  = "Type hier uw bericht..."
	voicePlaceholder = "Schakel naar typen om een bericht te typen..."
	loadingText      = "Even geduld, de digitale adviseur wordt geladen..."
	noSessionText    = "Start eerst de avatar om deze functie te gebruiken"
)

type (
	transcriptMsg   struct{ message transcript.Message }
	modeMsg         struct{ mode orchestration.Mode }
	stateMsg        struct{ state orchestration.State }
	streamMsg       struct{ stream avatar.MediaStream }
	diagnosticMsg   struct{ err error }
	sessionEndedMsg struct{ reason string }
)

type talkingMsg struct {
	user    bool
	talking bool
}

type actionDoneMsg struct {
	status string
	err    error
}

type model struct {
	orchestrator *orchestration.Orchestrator
	cfg          *config.Config
	theme        theme

	input    textinput.Model
	timeline viewport.Model
	spinner  spinner.Model

	width  int
	height int

	messages []transcript.Message
	state    orchestration.State
	stream   *avatar.MediaStream

	inflight   bool
	statusLine string
	debug      string
}

func newModel(orchestrator *orchestration.Orchestrator, cfg *config.Config) model {
	input := textinput.New()
	input.Placeholder = textPlaceholder
	input.CharLimit = 2000
	input.Prompt = "> "
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#ce861b"))

	return model{
		orchestrator: orchestrator,
		cfg:          cfg,
		theme:        newTheme(),
		input:        input,
		timeline:     viewport.New(0, 0),
		spinner:      sp,
		messages:     orchestrator.Transcript(),
		state:        orchestrator.State(),
		statusLine:   "ctrl+s start gesprek",
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, textinput.Blink)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.renderTimeline()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	case transcriptMsg:
		m.messages = append(m.messages, msg.message)
		m.renderTimeline()
	case modeMsg:
		m.state.Mode = msg.mode
		m.applyMode()
	case stateMsg:
		m.state = msg.state
		m.applyMode()
	case talkingMsg:
		if msg.user {
			m.state.UserTalking = msg.talking
		} else {
			m.state.AvatarTalking = msg.talking
		}
	case streamMsg:
		stream := msg.stream
		m.stream = &stream
		m.debug = "Playing"
	case sessionEndedMsg:
		m.stream = nil
		m.statusLine = "gesprek beëindigd: " + msg.reason
	case diagnosticMsg:
		m.debug = msg.err.Error()
	case actionDoneMsg:
		m.inflight = false
		m.state = m.orchestrator.State()
		m.applyMode()
		if msg.err != nil {
			m.logError(msg.err)
		} else if msg.status != "" {
			m.statusLine = msg.status
		}
	case tea.MouseMsg:
		var cmd tea.Cmd
		m.timeline, cmd = m.timeline.Update(msg)
		cmds = append(cmds, cmd)
	case tea.KeyMsg:
		switch msg.String() {
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.timeline, cmd = m.timeline.Update(msg)
			return m, cmd
		}
		cmd, quit := m.handleKey(msg)
		if quit {
			return m, tea.Quit
		}
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return nil, true
	case "ctrl+s":
		if m.state.Phase != orchestration.PhaseIdle || m.inflight {
			return nil, false
		}
		m.inflight = true
		m.debug = ""
		m.statusLine = loadingText
		return run("gesprek gestart", m.orchestrator.Start), false
	case "ctrl+x":
		if m.state.Phase == orchestration.PhaseIdle {
			return nil, false
		}
		m.statusLine = "gesprek beëindigen..."
		return run("gesprek beëindigd", m.orchestrator.End), false
	case "ctrl+t":
		if m.inflight {
			return nil, false
		}
		m.inflight = true
		return run("", m.orchestrator.ToggleMode), false
	case "ctrl+l":
		m.orchestrator.ClearTranscript()
		m.messages = nil
		m.renderTimeline()
		return nil, false
	case "enter":
		text := m.input.Value()
		if strings.TrimSpace(text) == "" {
			return nil, false
		}
		if m.state.Mode == orchestration.VoiceMode {
			m.statusLine = voicePlaceholder
			return nil, false
		}
		m.input.Reset()
		orchestrator := m.orchestrator
		return run("", func(ctx context.Context) error {
			return orchestrator.SendTyped(ctx, text)
		}), false
	}
	return nil, false
}

func (m *model) applyMode() {
	if m.state.Mode == orchestration.VoiceMode {
		m.input.Placeholder = voicePlaceholder
		m.input.Blur()
		return
	}
	m.input.Placeholder = textPlaceholder
	m.input.Focus()
}

func (m *model) logError(err error) {
	switch {
	case errors.Is(err, orchestration.ErrNoActiveSession):
		m.statusLine = noSessionText
	case errors.Is(err, orchestration.ErrMicrophoneDenied):
		m.statusLine = "Microfoon toegang geweigerd. Controleer je instellingen."
	default:
		m.statusLine = "fout: " + err.Error()
	}
	m.debug = err.Error()
}

func (m model) View() string {
	header := m.renderHeader()
	content := m.renderContent()
	input := m.renderInput()
	footer := m.renderFooter()

	out := lipgloss.JoinVertical(lipgloss.Left, header, content, input, footer)
	return m.theme.root.Render(out)
}

func (m *model) renderHeader() string {
	segments := []string{m.theme.panelTitle.Render("Digitale adviseur")}
	for _, mode := range []struct {
		mode  orchestration.Mode
		label string
	}{
		{orchestration.TextMode, "Typen"},
		{orchestration.VoiceMode, "Spreken"},
	} {
		style := m.theme.modeIdle
		if mode.mode == m.state.Mode {
			style = m.theme.modeActive
		}
		segments = append(segments, " ", style.Render(mode.label))
	}
	if m.state.AvatarTalking {
		segments = append(segments, " ", m.theme.talking.Render("adviseur spreekt"))
	}
	if m.state.UserTalking {
		segments = append(segments, " ", m.theme.talking.Render("u spreekt"))
	}
	joined := lipgloss.JoinHorizontal(lipgloss.Left, segments...)
	return m.theme.header.Width(maxInt(20, m.width-2)).Render(joined)
}

func (m *model) renderContent() string {
	contentWidth := maxInt(40, m.width-4)
	contentHeight := maxInt(8, m.height-12)
	panel := m.theme.panel.Width(contentWidth).Height(contentHeight)

	switch {
	case m.state.Phase == orchestration.PhaseStarting:
		return panel.Render(m.spinner.View() + " " + loadingText)
	case m.state.Phase == orchestration.PhaseIdle && len(m.messages) == 0:
		return panel.Render(m.theme.helpText.Render("Druk op ctrl+s om het gesprek te starten."))
	}
	return panel.Render(m.theme.panelTitle.Render("Gesprek") + "\n" + m.timeline.View())
}

func (m *model) renderInput() string {
	contentWidth := maxInt(40, m.width-4)
	inputView := m.input.View()
	if m.state.Sending || m.inflight {
		inputView = m.spinner.View() + " " + inputView
	}
	return m.theme.inputPanel.Width(contentWidth).Render(inputView)
}

func (m *model) renderFooter() string {
	contentWidth := maxInt(40, m.width-4)
	statusStyle := m.theme.status
	if strings.HasPrefix(m.statusLine, "fout") {
		statusStyle = m.theme.errorStatus
	}
	lines := []string{statusStyle.Render(truncate.StringWithTail(m.statusLine, uint(contentWidth), "…"))}
	if m.stream != nil {
		lines = append(lines, m.theme.helpText.Render(truncate.StringWithTail(streamLine(*m.stream), uint(contentWidth), "…")))
	}
	if m.cfg.Client.Debug || m.debug != "" {
		lines = append(lines, m.theme.helpText.Render("Console: "+truncate.StringWithTail(m.debug, uint(contentWidth), "…")))
	}
	lines = append(lines, m.theme.helpText.Render("ctrl+s start · ctrl+x beëindig · ctrl+t typen/spreken · ctrl+l wissen · enter verstuur · ctrl+c stop"))
	return m.theme.footer.Width(contentWidth).Render(strings.Join(lines, "\n"))
}

func streamLine(stream avatar.MediaStream) string {
	line := "stream " + stream.URL
	if stream.Room != "" {
		line += " room=" + stream.Room
	}
	if !stream.ExpiresAt.IsZero() {
		line += fmt.Sprintf(" verloopt=%s", stream.ExpiresAt.Local().Format(time.TimeOnly))
	}
	return line
}

func (m *model) resize() {
	contentWidth := maxInt(40, m.width-4)
	contentHeight := maxInt(8, m.height-12)
	m.input.Width = maxInt(20, contentWidth-6)
	m.timeline.Width = maxInt(20, contentWidth-4)
	m.timeline.Height = maxInt(5, contentHeight-3)
}

func (m *model) renderTimeline() {
	if len(m.messages) == 0 {
		m.timeline.SetContent("")
		return
	}
	width := maxInt(24, m.timeline.Width-2)
	var b strings.Builder
	for _, message := range m.messages {
		label := "Adviseur"
		if message.Sender == transcript.SenderUser {
			label = "U"
		}
		style, ok := m.theme.sender[string(message.Sender)]
		if !ok {
			style = m.theme.helpText
		}
		b.WriteString(style.Render(label))
		b.WriteString("\n")
		b.WriteString(wordwrap.String(message.Text, width))
		b.WriteString("\n\n")
	}
	m.timeline.SetContent(strings.TrimSpace(b.String()))
	m.timeline.GotoBottom()
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

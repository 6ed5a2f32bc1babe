package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/diogo/docchat/internal/api"
	"github.com/diogo/docchat/internal/config"
	"github.com/diogo/docchat/internal/models"
	"github.com/diogo/docchat/internal/render"
	"github.com/diogo/docchat/internal/session"
	"github.com/diogo/docchat/internal/transcript"
)

// Animation tick message
type animationTickMsg time.Time

// Message types for the TUI
type (
	// changedMsg signals that the controller state moved
	changedMsg struct{}

	// exchangeDoneMsg is sent when Send or Retry returns. gen identifies
	// the exchange so a late result cannot clear a newer one.
	exchangeDoneMsg struct {
		gen int
		err error
	}

	kbLoadedMsg struct {
		status *models.KnowledgeBaseStatus
		err    error
	}

	reindexDoneMsg struct {
		result *models.ReindexResult
		err    error
	}

	copiedMsg struct {
		err error
	}

	savedMsg struct {
		path string
		err  error
	}
)

// Options configures the chat model
type Options struct {
	// Buffered uses the non-streaming endpoint
	Buffered bool
	// SessionID resumes an existing conversation
	SessionID string
	// Theme is a TUI palette name
	Theme    string
	Markdown config.MarkdownConfig
	// ExportDir receives /save transcripts written without an explicit path
	ExportDir string
}

// Model represents the TUI state
type Model struct {
	ctx        context.Context
	client     api.ClientInterface
	controller *session.Controller
	changes    chan struct{}
	copyText   func(string) error
	exportDir  string
	now        func() time.Time

	// UI components
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	// State
	snapshot       session.Snapshot
	loading        bool
	gen            int
	busy           string // running /kb or /reindex, "" when none
	ready          bool
	notice         string
	err            error
	animationFrame int

	markdown config.MarkdownConfig
	styles   styles

	// Dimensions
	width  int
	height int
}

// NewChatModel creates a new chat TUI model
func NewChatModel(ctx context.Context, client api.ClientInterface, opts Options) Model {
	changes := make(chan struct{}, 1)
	notify := func(session.Snapshot) {
		// Coalesce: the model reads the latest snapshot when it wakes up.
		select {
		case changes <- struct{}{}:
		default:
		}
	}

	ctrlOpts := []session.Option{session.WithObserver(notify)}
	if opts.SessionID != "" {
		ctrlOpts = append(ctrlOpts, session.WithSessionID(opts.SessionID))
	}
	controller := session.New(&api.Transport{Client: client, Buffered: opts.Buffered}, ctrlOpts...)

	palette, _ := render.PaletteByName(opts.Theme)
	st := newStyles(palette)

	ta := textarea.New()
	ta.Placeholder = "Ask a question about your documents..."
	ta.CharLimit = 4000
	ta.ShowLineNumbers = false
	ta.SetHeight(2)
	ta.Focus()

	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle().Foreground(palette.Text)
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(palette.TextDim)
	ta.BlurredStyle = ta.FocusedStyle

	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = st.loading

	markdown := opts.Markdown
	if markdown == (config.MarkdownConfig{}) {
		markdown = config.DefaultMarkdownConfig()
	}

	return Model{
		ctx:        ctx,
		client:     client,
		controller: controller,
		changes:    changes,
		copyText:   clipboard.WriteAll,
		exportDir:  opts.ExportDir,
		now:        time.Now,
		textarea:   ta,
		spinner:    s,
		snapshot:   controller.Snapshot(),
		markdown:   markdown,
		styles:     st,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.waitForChange(),
	)
}

// waitForChange blocks until the controller reports a change
func (m Model) waitForChange() tea.Cmd {
	changes := m.changes
	return func() tea.Msg {
		<-changes
		return changedMsg{}
	}
}

// animationTick returns a command that sends animation tick messages
func animationTick() tea.Cmd {
	return tea.Tick(time.Millisecond*80, func(t time.Time) tea.Msg {
		return animationTickMsg(t)
	})
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 3 // Header panel with border
		inputHeight := 4  // Input panel with border
		statusHeight := 2 // Status bar and notice line
		padding := 2

		vpHeight := m.height - headerHeight - inputHeight - statusHeight - padding
		if vpHeight < 5 {
			vpHeight = 5
		}

		contentWidth := m.width - 4

		if !m.ready {
			m.viewport = viewport.New(contentWidth, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = contentWidth
			m.viewport.Height = vpHeight
		}
		m.textarea.SetWidth(contentWidth - 4)
		m.refreshViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.controller.Cancel()
			return m, tea.Quit

		case "esc":
			if m.loading {
				return m.cancel(), nil
			}
			return m, tea.Quit

		case "enter":
			return m.submit()

		case "ctrl+r":
			return m.retry()

		case "ctrl+n":
			return m.reset(), nil

		case "ctrl+y":
			return m.copyLastReply()
		}

	case changedMsg:
		m.snapshot = m.controller.Snapshot()
		m.refreshViewport()
		cmds = append(cmds, m.waitForChange())

	case exchangeDoneMsg:
		if msg.gen == m.gen {
			m.loading = false
		}
		m.snapshot = m.controller.Snapshot()
		m.refreshViewport()
		if msg.err != nil && !errors.Is(msg.err, session.ErrAbandoned) {
			// Transport and stream failures are already on the timeline.
			log.Debug().Err(msg.err).Str("component", "tui").Msg("exchange ended with error")
		}

	case kbLoadedMsg:
		m.busy = ""
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.notice = formatKnowledgeBase(msg.status)
		}

	case reindexDoneMsg:
		m.busy = ""
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.notice = "Reindex: " + msg.result.Status
		}

	case copiedMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("copy failed: %w", msg.err)
		} else {
			m.notice = "Reply copied to clipboard"
		}

	case savedMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("save failed: %w", msg.err)
		} else {
			m.notice = "Transcript saved to " + msg.path
		}

	case spinner.TickMsg:
		if m.loading || m.busy != "" {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case animationTickMsg:
		if m.loading {
			m.animationFrame++
			cmds = append(cmds, animationTick())
		}
	}

	// Only pass KeyMsg to textarea to prevent escape sequence leaks
	if !m.loading {
		if _, ok := msg.(tea.KeyMsg); ok {
			m.textarea, cmd = m.textarea.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// submit handles the enter key: slash commands, exit words, or a prompt
func (m Model) submit() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.textarea.Value())
	if input == "" {
		return m, nil
	}

	if fields := strings.Fields(input); strings.EqualFold(fields[0], "/save") {
		m.textarea.Reset()
		return m.save(strings.TrimSpace(strings.TrimPrefix(input, fields[0])))
	}

	switch strings.ToLower(input) {
	case "exit", "quit", "/exit", "/quit":
		m.controller.Cancel()
		return m, tea.Quit
	case "/new", "/reset", "/clear":
		m.textarea.Reset()
		return m.reset(), nil
	case "/retry":
		m.textarea.Reset()
		return m.retry()
	case "/copy":
		m.textarea.Reset()
		return m.copyLastReply()
	case "/kb":
		m.textarea.Reset()
		return m.startAdmin("Loading knowledge base", m.loadKnowledgeBase())
	case "/reindex":
		m.textarea.Reset()
		return m.startAdmin("Reindexing documents", m.reindex())
	}

	if m.loading {
		m.notice = "Wait for the current answer or press Esc to cancel"
		return m, nil
	}

	m.textarea.Reset()
	m, cmd := m.startSend(input)
	return m, tea.Batch(cmd, m.spinner.Tick, animationTick())
}

// startSend marks the model as loading and returns the command that runs
// the exchange
func (m Model) startSend(prompt string) (Model, tea.Cmd) {
	m = m.beginExchange()
	ctx, ctrl, gen := m.ctx, m.controller, m.gen
	return m, func() tea.Msg {
		return exchangeDoneMsg{gen: gen, err: ctrl.Send(ctx, prompt)}
	}
}

// retry replays the last prompt into the last assistant message
func (m Model) retry() (tea.Model, tea.Cmd) {
	if m.loading {
		m.notice = "Wait for the current answer or press Esc to cancel"
		return m, nil
	}
	if m.snapshot.LastUserPrompt == "" {
		m.notice = "Nothing to retry"
		return m, nil
	}

	m = m.beginExchange()
	ctx, ctrl, gen := m.ctx, m.controller, m.gen
	return m, tea.Batch(func() tea.Msg {
		return exchangeDoneMsg{gen: gen, err: ctrl.Retry(ctx)}
	}, m.spinner.Tick, animationTick())
}

func (m Model) beginExchange() Model {
	m.gen++
	m.loading = true
	m.err = nil
	m.notice = ""
	m.animationFrame = 0
	return m
}

// cancel abandons the in-flight exchange; it stays retryable
func (m Model) cancel() Model {
	if m.controller.Cancel() {
		m.notice = models.CanceledMessage
	}
	m.gen++
	m.loading = false
	m.snapshot = m.controller.Snapshot()
	m.refreshViewport()
	return m
}

// reset starts a fresh conversation, abandoning anything in flight
func (m Model) reset() Model {
	m.controller.Reset()
	m.gen++
	m.loading = false
	m.err = nil
	m.notice = "New conversation"
	m.snapshot = m.controller.Snapshot()
	m.refreshViewport()
	return m
}

func (m Model) copyLastReply() (tea.Model, tea.Cmd) {
	reply, ok := m.controller.LastReply()
	if !ok {
		m.notice = "No reply to copy yet"
		return m, nil
	}
	content, _ := m.controller.Content(reply.ID)
	copyText := m.copyText
	return m, func() tea.Msg {
		return copiedMsg{err: copyText(content)}
	}
}

// save writes the conversation to path, or to a timestamped file in the
// export directory when path is empty
func (m Model) save(path string) (tea.Model, tea.Cmd) {
	if len(m.snapshot.Messages) == 0 {
		m.notice = "Nothing to save yet"
		return m, nil
	}

	now := m.now()
	if path == "" {
		dir := m.exportDir
		if dir == "" {
			dir = "."
		}
		path = transcript.DefaultPath(dir, transcript.FormatMarkdown, now)
	}
	t := transcript.Transcript{
		Server:     m.client.BaseURL(),
		SessionID:  m.snapshot.SessionID,
		ExportedAt: now,
		Messages:   m.snapshot.Messages,
	}
	return m, func() tea.Msg {
		return savedMsg{path: path, err: transcript.Write(path, t)}
	}
}

func (m Model) startAdmin(label string, run tea.Cmd) (tea.Model, tea.Cmd) {
	if m.busy != "" {
		m.notice = m.busy + " already in progress"
		return m, nil
	}
	m.busy = label
	m.err = nil
	m.notice = ""
	return m, tea.Batch(run, m.spinner.Tick)
}

func (m Model) loadKnowledgeBase() tea.Cmd {
	ctx, client := m.ctx, m.client
	return func() tea.Msg {
		status, err := client.KnowledgeBase(ctx)
		return kbLoadedMsg{status: status, err: err}
	}
}

func (m Model) reindex() tea.Cmd {
	ctx, client := m.ctx, m.client
	return func() tea.Msg {
		result, err := client.Reindex(ctx)
		return reindexDoneMsg{result: result, err: err}
	}
}

func formatKnowledgeBase(status *models.KnowledgeBaseStatus) string {
	if status.PDFCount == 0 {
		return "Knowledge base is empty"
	}
	line := fmt.Sprintf("%d documents indexed", status.PDFCount)
	if status.LatestUpdate != nil {
		line += ", last update " + status.LatestUpdate.Format("2006-01-02 15:04")
	}
	return line
}

// refreshViewport re-renders the timeline and scrolls to the newest message
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(renderMessages(m.snapshot.Messages, m.viewport.Width, m.styles, m.markdown))
	m.viewport.GotoBottom()
}

// View renders the TUI
func (m Model) View() string {
	if !m.ready {
		return m.styles.loading.Render("  Initializing...")
	}

	var sections []string
	contentWidth := m.width - 4

	// Header
	sessionLabel := "new conversation"
	if id := m.snapshot.SessionID; id != "" {
		sessionLabel = "session " + shortID(id)
	}
	headerContent := lipgloss.JoinHorizontal(lipgloss.Center,
		m.styles.title.Render("✦ docchat"),
		m.styles.hint.Render("  •  "),
		m.styles.subtitle.Render(m.client.BaseURL()),
		m.styles.hint.Render("  •  "),
		m.styles.subtitle.Render(sessionLabel),
	)
	sections = append(sections, m.styles.header.Width(contentWidth).Render(headerContent))

	// Messages
	var messagesContent string
	if len(m.snapshot.Messages) == 0 {
		messagesContent = m.renderWelcome()
	} else {
		messagesContent = m.viewport.View()
	}
	sections = append(sections, m.styles.messagesArea.
		Width(contentWidth).
		Height(m.viewport.Height).
		Render(messagesContent))

	// Input
	var inputContent string
	if m.loading {
		inputContent = m.renderLoadingAnimation()
	} else {
		inputContent = lipgloss.JoinVertical(
			lipgloss.Left,
			m.styles.inputLabel.Render("You"),
			m.textarea.View(),
		)
	}
	sections = append(sections, m.styles.inputPanel.Width(contentWidth).Render(inputContent))

	sections = append(sections, m.renderStatusBar(contentWidth))

	switch {
	case m.err != nil:
		sections = append(sections, m.styles.errorText.Render("⚠ "+m.err.Error()))
	case m.busy != "":
		sections = append(sections, m.spinner.View()+" "+m.styles.notice.Render(m.busy))
	case m.notice != "":
		sections = append(sections, m.styles.notice.Render(m.notice))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderWelcome renders the welcome screen when no messages exist
func (m Model) renderWelcome() string {
	width := m.viewport.Width - 4
	height := m.viewport.Height

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		m.styles.welcomeTitle.Width(width).Render("✦ Ask your documents"),
		"",
		m.styles.welcome.Width(width).Render("Answers are grounded in the indexed PDF corpus."),
		m.styles.welcome.Width(width).Render("Type /kb to see what is indexed."),
	)

	topPadding := (height - lipgloss.Height(content)) / 2
	if topPadding < 0 {
		topPadding = 0
	}

	return strings.Repeat("\n", topPadding) + content
}

// renderLoadingAnimation renders a colorful animated loading indicator
func (m Model) renderLoadingAnimation() string {
	chars := []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}
	frame := m.animationFrame

	spin := lipgloss.NewStyle().
		Foreground(gradientColors[frame%len(gradientColors)]).
		Bold(true).
		Render(chars[frame%len(chars)])

	var bar strings.Builder
	for i := 0; i < 16; i++ {
		style := lipgloss.NewStyle().Foreground(gradientColors[(i+frame)%len(gradientColors)])
		bar.WriteString(style.Render("━"))
	}

	label := "Searching the documents"
	if m.snapshot.State == session.StateRetrying {
		label = "Retrying"
	}
	text := lipgloss.NewStyle().Foreground(m.styles.palette.Text).Render(" " + label + " ")
	hint := m.styles.hint.Render("esc to cancel")

	return fmt.Sprintf("%s %s %s %s", spin, bar.String(), text, hint)
}

// renderStatusBar renders the bottom status bar with shortcuts
func (m Model) renderStatusBar(width int) string {
	shortcuts := []struct {
		key  string
		desc string
	}{
		{"Enter", "Send"},
		{"Ctrl+R", "Retry"},
		{"Ctrl+N", "New"},
		{"Ctrl+Y", "Copy"},
		{"Esc", "Cancel/Quit"},
	}

	var items []string
	for _, s := range shortcuts {
		items = append(items, m.styles.statusKey.Render(s.key)+m.styles.statusDesc.Render(" "+s.desc))
	}

	bar := strings.Join(items, m.styles.statusDesc.Render("  │  "))
	return m.styles.statusBar.Width(width).Align(lipgloss.Center).Render(bar)
}

func shortID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:12] + "…"
}

// RunChat starts the chat TUI
func RunChat(ctx context.Context, client api.ClientInterface, opts Options) error {
	m := NewChatModel(ctx, client, opts)

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	_, err := p.Run()
	m.controller.Cancel()
	return err
}

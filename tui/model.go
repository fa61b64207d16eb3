// Package tui is the terminal front end for a chat session. It owns the
// bubbletea event loop, translating key presses and stream events into
// engine events and executing the effects the engine emits. All turn
// semantics live in the repl package; this package only does I/O.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/parley-dev/parley/llm"
	"github.com/parley-dev/parley/repl"
	"github.com/parley-dev/parley/session"
	"go.uber.org/zap"
)

const helpText = `commands:
  /help   show this help
  /clear  delete this session's history
  /quit   exit (also /exit, ctrl+c)
esc cancels a reply that is streaming in
press enter to dismiss this message`

// streamMsg carries one event from the outstanding response stream.
type streamMsg struct{ ev llm.Event }

// streamClosedMsg signals that the stream's channel was drained.
type streamClosedMsg struct{}

// Model is the bubbletea model for one chat session.
type Model struct {
	engine   *repl.Engine
	store    *session.Store
	streamer llm.Streamer
	logger   *zap.Logger
	styles   Styles

	textinput textinput.Model
	viewport  viewport.Model
	spinner   spinner.Model
	renderer  *glamour.TermRenderer

	handle   *llm.Handle
	notice   string
	width    int
	height   int
	ready    bool
	quitting bool
}

// NewModel wires the engine to a terminal surface.
func NewModel(engine *repl.Engine, store *session.Store, streamer llm.Streamer, logger *zap.Logger) Model {
	styles := DefaultStyles()

	ti := textinput.New()
	ti.Placeholder = "Type a message... (Enter to send, Ctrl+C to exit)"
	ti.Focus()
	ti.Prompt = "> "
	ti.CharLimit = 4096
	ti.Width = 80
	ti.PromptStyle = styles.Prompt

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	vp := viewport.New(80, 20)

	renderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(78),
	)

	m := Model{
		engine:    engine,
		store:     store,
		streamer:  streamer,
		logger:    logger,
		styles:    styles,
		textinput: ti,
		viewport:  vp,
		spinner:   sp,
		renderer:  renderer,
	}
	m.refreshViewport()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m.applyEngine(repl.QuitEvent{})
		case tea.KeyEsc:
			if m.engine.State() == repl.StateAwaitingResponse {
				return m.applyEngine(repl.CancelEvent{})
			}
			return m, nil
		case tea.KeyEnter:
			return m.handleSubmit()
		case tea.KeyF1:
			m.notice = helpText
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		next, cmd := m.applyEngine(repl.ResizeEvent{Width: msg.Width, Height: msg.Height})
		return next, cmd

	case streamMsg:
		return m.handleStreamEvent(msg.ev)

	case streamClosedMsg:
		m.handle = nil
		return m, nil

	case spinner.TickMsg:
		if m.engine.State() == repl.StateAwaitingResponse {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	var tiCmd, vpCmd tea.Cmd
	m.textinput, tiCmd = m.textinput.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)
	cmds = append(cmds, tiCmd, vpCmd)
	return m, tea.Batch(cmds...)
}

// handleSubmit dispatches slash commands locally and feeds everything else
// to the engine as a submit event. While a turn is outstanding nothing is
// dispatched and the input buffer keeps whatever was typed; slash commands
// that mutate the session must not run under a pending turn either.
func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	if m.engine.State() == repl.StateAwaitingResponse {
		return m, nil
	}

	text := strings.TrimSpace(m.textinput.Value())
	m.textinput.Reset()
	m.notice = ""

	switch text {
	case "":
		return m, nil
	case "/quit", "/exit":
		return m.applyEngine(repl.QuitEvent{})
	case "/help":
		m.notice = helpText
		return m, nil
	case "/clear":
		sess := m.engine.Session()
		if err := m.store.Clear(sess.Name); err != nil {
			m.logger.Warn("could not clear session", zap.Error(err))
			m.notice = "could not clear session: " + err.Error()
			return m, nil
		}
		sess.Turns = nil
		m.notice = "session history cleared"
		m.refreshViewport()
		return m, nil
	}

	return m.applyEngine(repl.SubmitEvent{Text: text})
}

// handleStreamEvent maps one stream event onto the engine and re-arms the
// stream pump until the terminal event arrives.
func (m Model) handleStreamEvent(ev llm.Event) (tea.Model, tea.Cmd) {
	var engineEv repl.Event
	switch ev.Kind {
	case llm.KindFragment:
		engineEv = repl.FragmentEvent{Text: ev.Text}
	case llm.KindCompleted:
		engineEv = repl.CompletedEvent{}
	case llm.KindFailed:
		m.logger.Warn("stream failed", zap.Error(ev.Err))
		engineEv = repl.FailedEvent{Err: ev.Err}
	case llm.KindCancelled:
		engineEv = repl.CancelledEvent{}
	}

	next, cmd := m.applyEngine(engineEv)
	model := next.(Model)
	if ev.Kind == llm.KindFragment && model.handle != nil {
		return model, tea.Batch(cmd, waitForStream(model.handle))
	}
	model.handle = nil
	return model, cmd
}

// applyEngine feeds one event through the engine, executes the resulting
// effects, and refreshes the transcript.
func (m Model) applyEngine(ev repl.Event) (tea.Model, tea.Cmd) {
	cmds := m.execute(m.engine.Apply(ev))
	m.refreshViewport()
	return m, tea.Batch(cmds...)
}

func (m *Model) execute(effects []repl.Effect) []tea.Cmd {
	var cmds []tea.Cmd
	for _, eff := range effects {
		switch eff := eff.(type) {
		case repl.StartStreamEffect:
			sess := m.engine.Session()
			handle, err := m.streamer.Stream(context.Background(), llm.Request{
				History:  eff.History,
				Settings: sess.Settings,
			})
			if err != nil {
				m.logger.Warn("could not start request", zap.Error(err))
				cmds = append(cmds, m.execute(m.engine.Apply(repl.FailedEvent{Err: err}))...)
				continue
			}
			m.handle = handle
			cmds = append(cmds, waitForStream(handle), m.spinner.Tick)

		case repl.CancelStreamEffect:
			if m.handle != nil {
				m.handle.Cancel()
			}

		case repl.PersistEffect:
			if err := m.store.AppendTurn(m.engine.Session(), eff.Turns...); err != nil {
				m.logger.Error("persist failed", zap.Error(err))
				cmds = append(cmds, m.execute(m.engine.Apply(repl.StorageFailedEvent{Err: err}))...)
				continue
			}
			m.logger.Debug("persisted turns",
				zap.Int("count", len(eff.Turns)),
				zap.String("session", m.engine.Session().Name))

		case repl.QuitEffect:
			if m.handle != nil {
				m.handle.Cancel()
			}
			if err := m.store.Save(m.engine.Session()); err != nil {
				m.logger.Error("final flush failed", zap.Error(err))
			}
			m.quitting = true
			cmds = append(cmds, tea.Quit)
		}
	}
	return cmds
}

// waitForStream blocks on the next stream event and delivers it as a
// bubbletea message, preserving per-stream arrival order.
func waitForStream(h *llm.Handle) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-h.Events()
		if !ok {
			return streamClosedMsg{}
		}
		return streamMsg{ev: ev}
	}
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	chromeHeight := 4
	if !m.ready {
		m.viewport = viewport.New(width, height-chromeHeight)
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = height - chromeHeight
	}
	m.textinput.Width = width - 4

	wrap := width - 2
	if wrap > 100 {
		wrap = 100
	}
	if r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	); err == nil {
		m.renderer = r
	}
	m.refreshViewport()
}

func (m *Model) refreshViewport() {
	frame := repl.Frame(m.engine.Snapshot(), m.renderMarkdown)
	m.viewport.SetContent(frame)
	m.viewport.GotoBottom()
}

// renderMarkdown formats assistant content through glamour, falling back to
// the raw text when rendering fails.
func (m *Model) renderMarkdown(content string) string {
	if m.renderer == nil {
		return content
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n")
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	snap := m.engine.Snapshot()

	var b strings.Builder
	title := snap.Title
	if title == "" {
		title = "parley"
	}
	b.WriteString(m.styles.Header.Render(title + " · " + m.engine.Session().Name))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	switch {
	case snap.State == repl.StateError && snap.Banner != "":
		b.WriteString(m.styles.Error.Render(snap.Banner))
	case m.notice != "":
		b.WriteString(m.styles.Notice.Render(m.notice))
	case snap.State == repl.StateAwaitingResponse:
		b.WriteString(m.styles.Status.Render(m.spinner.View() + " " + repl.StatusLine(snap)))
	default:
		b.WriteString(m.styles.Status.Render(repl.StatusLine(snap)))
	}
	b.WriteString("\n")
	b.WriteString(m.textinput.View())
	return b.String()
}

// Run starts the terminal program and blocks until the user quits.
func Run(engine *repl.Engine, store *session.Store, streamer llm.Streamer, logger *zap.Logger) error {
	p := tea.NewProgram(NewModel(engine, store, streamer, logger), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Package tui is the terminal front-end of the scheduling assistant. It
// renders the same conversation log and plan store as the web page.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ashureev/planchat/internal/conversation"
	"github.com/ashureev/planchat/internal/domain"
	"github.com/ashureev/planchat/internal/plan"
	"github.com/ashureev/planchat/internal/suggest"
	"github.com/ashureev/planchat/internal/theme"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	sidebarWidth = 32
	// rows taken by header, suggestions, input and help line
	chromeHeight = 5
)

// Options configures a Model.
type Options struct {
	Controller *conversation.Controller
	Suggest    *suggest.Engine
	// Themes is optional; without it toggles are not persisted.
	Themes   *theme.Service
	DeviceID string
	Theme    theme.Theme
	Logger   *slog.Logger
}

// changedMsg reports that the log or the plan store moved.
type changedMsg struct{}

type themeMsg struct {
	theme theme.Theme
	err   error
}

// Model is the bubbletea model of the chat screen.
type Model struct {
	ctrl     *conversation.Controller
	log      *conversation.Log
	plans    *plan.Store
	engine   *suggest.Engine
	themes   *theme.Service
	deviceID string
	logger   *slog.Logger

	theme  theme.Theme
	styles *Styles

	input    textinput.Model
	spinner  spinner.Model
	viewport viewport.Model

	width, height int
	ready         bool
	spinning      bool
	suggestions   []string
	status        string

	// changed is signalled by store observers. It holds at most one
	// token so bursts of events collapse into a single redraw.
	changed chan struct{}
}

// New creates the chat model and subscribes it to the controller's log and
// plan store.
func New(opts Options) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	engine := opts.Suggest
	if engine == nil {
		engine = suggest.New(suggest.DefaultCatalogue)
	}
	t, _ := theme.Parse(string(opts.Theme))

	input := textinput.New()
	input.Placeholder = "Type a command, e.g. add subject Math hours 10 priority HIGH"
	input.Prompt = "> "
	input.CharLimit = 500
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := &Model{
		ctrl:     opts.Controller,
		log:      opts.Controller.Log(),
		plans:    opts.Controller.Plans(),
		engine:   engine,
		themes:   opts.Themes,
		deviceID: opts.DeviceID,
		logger:   logger,
		theme:    t,
		styles:   NewStyles(t),
		input:    input,
		spinner:  sp,
		viewport: viewport.New(0, 0),
		changed:  make(chan struct{}, 1),
	}

	// Observers run under the store locks, so they only drop a token.
	m.log.Subscribe(func(conversation.Event) { m.notify() })
	m.plans.Subscribe(func(*domain.Plan) { m.notify() })
	return m
}

func (m *Model) notify() {
	select {
	case m.changed <- struct{}{}:
	default:
	}
}

func (m *Model) waitForChange() tea.Cmd {
	ch := m.changed
	return func() tea.Msg {
		<-ch
		return changedMsg{}
	}
}

// Theme returns the active theme.
func (m *Model) Theme() theme.Theme { return m.theme }

// Init starts listening for store changes.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForChange())
}

// Update handles a message.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.resize()
		m.refresh()
		return m, nil

	case changedMsg:
		m.refresh()
		cmds := []tea.Cmd{m.waitForChange()}
		if len(m.log.Pending()) > 0 && !m.spinning {
			m.spinning = true
			cmds = append(cmds, m.spinner.Tick)
		}
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		if len(m.log.Pending()) == 0 {
			m.spinning = false
			m.refresh()
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd

	case themeMsg:
		if msg.err != nil {
			m.logger.Warn("failed to persist theme", "error", msg.err)
			m.status = "theme not saved"
		} else {
			m.status = ""
		}
		m.theme = msg.theme
		m.styles = NewStyles(msg.theme)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit

	case "ctrl+l":
		m.ctrl.ClearConversation()
		return m, nil

	case "ctrl+t":
		return m, m.toggleTheme()

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case "tab":
		if len(m.suggestions) > 0 {
			m.input.SetValue(m.suggestions[0])
			m.input.CursorEnd()
			m.suggestions = m.engine.Suggest(m.input.Value())
		}
		return m, nil

	case "enter":
		m.submit(m.input.Value())
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.suggestions = m.engine.Suggest(m.input.Value())
	return m, cmd
}

// submit starts a round-trip. The outcome reaches the screen through the
// log observer, so the outcome channel is not read.
func (m *Model) submit(text string) {
	if _, err := m.ctrl.Dispatch(context.Background(), text); err != nil {
		if !errors.Is(err, conversation.ErrEmptyCommand) {
			m.status = err.Error()
		}
		return
	}
	m.input.Reset()
	m.suggestions = nil
	m.status = ""
}

func (m *Model) toggleTheme() tea.Cmd {
	next := m.theme.Toggled()
	if m.themes == nil {
		return func() tea.Msg { return themeMsg{theme: next} }
	}
	themes, deviceID := m.themes, m.deviceID
	return func() tea.Msg {
		t, err := themes.Toggle(context.Background(), deviceID)
		if err != nil {
			return themeMsg{theme: next, err: err}
		}
		return themeMsg{theme: t}
	}
}

func (m *Model) resize() {
	w := m.width - sidebarWidth - 1
	if w < 20 {
		w = 20
	}
	h := m.height - chromeHeight
	if h < 3 {
		h = 3
	}
	m.viewport.Width = w
	m.viewport.Height = h
	m.input.Width = m.width - len(m.input.Prompt) - 1
}

func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderConversation())
	m.viewport.GotoBottom()
}

func (m *Model) renderConversation() string {
	turns, pending, _ := m.log.Snapshot()
	var b strings.Builder
	b.WriteString(RenderTurns(turns, m.viewport.Width, m.styles))
	for range pending {
		b.WriteString(m.styles.Pending.Render(m.spinner.View() + " Thinking..."))
		b.WriteString("\n")
	}
	return b.String()
}

// View renders the screen.
func (m *Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.styles.Header.Render("Study Scheduler") + "  " + m.styles.Dim.Render(string(m.theme)+" theme")
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		m.viewport.View(),
		" ",
		RenderSidebar(plan.Summarize(m.plans.Get()), m.viewport.Height, m.styles),
	)

	var hints string
	switch {
	case m.status != "":
		hints = m.styles.Pending.Render(m.status)
	case len(m.suggestions) > 0:
		hints = m.styles.Hint.Render("tab: " + strings.Join(m.suggestions, " · "))
	}

	help := m.styles.Dim.Render("enter send · tab complete · ctrl+l clear · ctrl+t theme · esc quit")
	return lipgloss.JoinVertical(lipgloss.Left, header, body, hints, m.input.View(), help)
}

// RenderTurns renders turns top to bottom. Formatted turns are written
// exactly as received; other turns are wrapped to width, one block per
// line.
func RenderTurns(turns []domain.Turn, width int, s *Styles) string {
	var b strings.Builder
	text := s.Text.Width(width)
	for _, t := range turns {
		if t.Role == domain.RoleUser {
			b.WriteString(s.User.Render("You"))
		} else {
			b.WriteString(s.Bot.Render("Assistant"))
		}
		b.WriteString("\n")
		for _, block := range conversation.Blocks(t) {
			if block.Preformatted {
				b.WriteString(block.Text)
			} else {
				b.WriteString(text.Render(block.Text))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// RenderSidebar renders the plan summary box.
func RenderSidebar(sum plan.Summary, height int, s *Styles) string {
	lines := []string{s.Headline.Render("Current Plan")}
	if sum.Empty {
		lines = append(lines, s.Dim.Render(sum.Headline))
	} else {
		if sum.PlanName != "" {
			lines = append(lines, s.Dim.Render(sum.PlanName))
		}
		lines = append(lines, s.Text.Render(sum.Headline))
		for _, c := range sum.Courses {
			lines = append(lines, s.Text.Render(c.Text))
		}
		if sum.Available > 0 {
			lines = append(lines, s.Dim.Render(availabilityLine(sum.Available)))
		}
	}
	box := s.Sidebar.Width(sidebarWidth - 2)
	if height > 2 {
		box = box.Height(height - 2)
	}
	return box.Render(strings.Join(lines, "\n"))
}

func availabilityLine(days int) string {
	if days == 1 {
		return "1 day available"
	}
	return fmt.Sprintf("%d days available", days)
}

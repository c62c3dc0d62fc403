// Package tui is the full-screen terminal workspace for one exam session.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/pavelanni/proctor/internal/i18n"
	"github.com/pavelanni/proctor/internal/model"
	"github.com/pavelanni/proctor/internal/notify"
	"github.com/pavelanni/proctor/internal/session"
)

const (
	outputHeight = 9
	maxToasts    = 3
	clockTick    = time.Second
)

// Wake coalesces change signals from background work into at most one
// pending wakeup. Pass Signal as the session OnChange hook.
type Wake chan struct{}

// NewWake returns a Wake with room for one pending signal.
func NewWake() Wake { return make(Wake, 1) }

// Signal marks the view stale without blocking.
func (w Wake) Signal() {
	select {
	case w <- struct{}{}:
	default:
	}
}

type (
	wakeMsg   struct{}
	notifyMsg struct{ event notify.Event }
	tickMsg   time.Time
)

// Model is the bubbletea model of the exam workspace.
type Model struct {
	ctx    context.Context
	mgr    *session.Manager
	sess   *session.Session
	keys   KeyMap
	wake   Wake
	events *notify.Subscription

	editor   textarea.Model
	question viewport.Model
	snap     model.Snapshot
	toasts   []model.Notification
	theme    Theme

	width, height int
	ready         bool
	quitting      bool
}

// New builds the workspace for sess. ctx carries the localizer. wake may
// be nil when nothing signals background changes.
func New(ctx context.Context, mgr *session.Manager, sess *session.Session, wake Wake) Model {
	editor := textarea.New()
	editor.CharLimit = 0
	editor.MaxHeight = 0
	editor.ShowLineNumbers = true
	editor.Prompt = ""

	snap := sess.Snapshot()
	editor.SetValue(snap.Answer)
	editor.Focus()

	m := Model{
		ctx:      ctx,
		mgr:      mgr,
		sess:     sess,
		keys:     DefaultKeyMap,
		wake:     wake,
		events:   mgr.Notifications().Subscribe(32),
		editor:   editor,
		question: viewport.New(0, 0),
		snap:     snap,
		toasts:   mgr.Notifications().List(),
		theme:    ThemeFor(snap.Theme),
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink, listenEvents(m.events), scheduleTick()}
	if m.wake != nil {
		cmds = append(cmds, listenWake(m.wake))
	}
	return tea.Batch(cmds...)
}

func listenWake(w Wake) tea.Cmd {
	return func() tea.Msg {
		<-w
		return wakeMsg{}
	}
}

func listenEvents(sub *notify.Subscription) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-sub.C()
		if !ok {
			return nil
		}
		return notifyMsg{event: ev}
	}
}

func scheduleTick() tea.Cmd {
	return tea.Tick(clockTick, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case wakeMsg:
		m.refresh()
		return m, listenWake(m.wake)

	case notifyMsg:
		m.applyEvent(msg.event)
		m.layout()
		return m, listenEvents(m.events)

	case tickMsg:
		if m.quitting {
			return m, nil
		}
		if m.pruneToasts() {
			m.layout()
		}
		m.refresh()
		return m, scheduleTick()
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit), key.Matches(msg, m.keys.Leave):
		return m.leave()

	case key.Matches(msg, m.keys.Run):
		if _, err := m.sess.Run(); err != nil {
			m.reportError(err)
		}

	case key.Matches(msg, m.keys.Reset):
		if err := m.sess.Reset(); err != nil {
			m.reportError(err)
		}

	case key.Matches(msg, m.keys.Theme):
		if _, err := m.sess.ToggleTheme(); err != nil {
			m.reportError(err)
		}

	case key.Matches(msg, m.keys.Submit):
		if _, err := m.sess.Submit(m.ctx); err != nil {
			m.reportError(err)
		} else {
			m.editor.Blur()
		}

	case key.Matches(msg, m.keys.ScrollUp):
		m.question.LineUp(max(m.question.Height/2, 1))

	case key.Matches(msg, m.keys.ScrollDown):
		m.question.LineDown(max(m.question.Height/2, 1))

	default:
		if m.snap.Submitted {
			return m, nil
		}
		before := m.editor.Value()
		var cmd tea.Cmd
		m.editor, cmd = m.editor.Update(msg)
		if after := m.editor.Value(); after != before {
			if err := m.sess.Edit(after); err != nil {
				m.reportError(err)
			}
		}
		m.refresh()
		return m, cmd
	}

	m.refresh()
	return m, nil
}

func (m Model) leave() (tea.Model, tea.Cmd) {
	m.quitting = true
	if err := m.mgr.LeaveExam(); err != nil && !errors.Is(err, session.ErrNoSession) {
		m.reportError(err)
	}
	m.events.Cancel()
	return m, tea.Quit
}

func (m *Model) reportError(err error) {
	m.mgr.Notifications().Publish(model.NotifyError, err.Error())
}

func (m *Model) applyEvent(ev notify.Event) {
	switch ev.Type {
	case notify.Published:
		for _, t := range m.toasts {
			if t.ID == ev.Notification.ID {
				return
			}
		}
		m.toasts = append(m.toasts, ev.Notification)
	case notify.Expired:
		for i, t := range m.toasts {
			if t.ID == ev.Notification.ID {
				m.toasts = append(m.toasts[:i], m.toasts[i+1:]...)
				return
			}
		}
	}
}

// pruneToasts drops toasts that are no longer visible on the channel. It
// covers Expired events lost to a full mailbox.
func (m *Model) pruneToasts() bool {
	live := make(map[string]bool)
	for _, n := range m.mgr.Notifications().List() {
		live[n.ID] = true
	}
	var kept []model.Notification
	for _, t := range m.toasts {
		if live[t.ID] {
			kept = append(kept, t)
		}
	}
	changed := len(kept) != len(m.toasts)
	m.toasts = kept
	return changed
}

// refresh pulls a new snapshot and re-renders the question pane when the
// theme changed.
func (m *Model) refresh() {
	prev := m.snap.Theme
	m.snap = m.sess.Snapshot()
	if m.snap.Theme != prev {
		m.theme = ThemeFor(m.snap.Theme)
		m.layout()
	}
	if m.snap.Submitted {
		m.editor.Blur()
	}
}

func (m Model) visibleToasts() []model.Notification {
	if len(m.toasts) <= maxToasts {
		return m.toasts
	}
	return m.toasts[len(m.toasts)-maxToasts:]
}

func (m *Model) leftWidth() int { return m.width * 2 / 5 }

// layout sizes the panes for the current window and toast count.
func (m *Model) layout() {
	if !m.ready {
		return
	}
	bodyHeight := max(m.height-2-len(m.visibleToasts())-outputHeight, 4)
	left := m.leftWidth()
	right := m.width - left

	m.question.Width = max(left-2, 1)
	m.question.Height = max(bodyHeight-2, 1)
	m.question.SetContent(m.questionContent(m.question.Width))

	m.editor.SetWidth(max(right-2, 1))
	m.editor.SetHeight(max(bodyHeight-2, 1))
}

func (m Model) questionContent(width int) string {
	q := m.snap.Question
	title := lipgloss.NewStyle().Bold(true).Foreground(m.theme.HeaderForeground).Render(q.Title)
	meta := lipgloss.NewStyle().Foreground(m.theme.FaintText).Render(
		fmt.Sprintf("%s · %s", q.Difficulty, i18n.Td(m.ctx, "Points", map[string]any{"Points": q.Points})))
	return title + "\n" + meta + "\n\n" + renderMarkdown(q.Description, m.theme, width)
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}
	sections := []string{m.renderHeader()}
	if toasts := m.renderToasts(); toasts != "" {
		sections = append(sections, toasts)
	}
	sections = append(sections, m.renderBody(), m.renderBottom(), m.renderHelp())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) pane(width, height int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.theme.BorderColor).
		Width(max(width-2, 1)).
		Height(max(height-2, 1))
}

func (m Model) renderHeader() string {
	parts := []string{
		lipgloss.NewStyle().Bold(true).Foreground(m.theme.HeaderForeground).Render(i18n.T(m.ctx, "AppTitle")),
	}
	if m.snap.Course != "" {
		parts = append(parts, m.snap.Course)
	}
	parts = append(parts, m.snap.User.Name)

	switch {
	case m.snap.TimeUp:
		parts = append(parts, lipgloss.NewStyle().Foreground(m.theme.StatusFailed).Render(i18n.T(m.ctx, "NotifyTimeUp")))
	case m.snap.Remaining > 0:
		parts = append(parts, i18n.Td(m.ctx, "TimeRemaining", map[string]any{"Time": formatRemaining(m.snap.Remaining)}))
	}

	if m.snap.LastSaved != nil {
		parts = append(parts, i18n.Td(m.ctx, "LastSaved", map[string]any{"Time": m.snap.LastSaved.Local().Format("15:04:05")}))
	} else {
		parts = append(parts, i18n.T(m.ctx, "NotSavedYet"))
	}

	switch {
	case m.snap.ProctoringPending:
		parts = append(parts, i18n.T(m.ctx, "ProctoringPending"))
	case m.snap.ProctoringActive:
		parts = append(parts, lipgloss.NewStyle().Foreground(m.theme.StatusSucceeded).Render(i18n.T(m.ctx, "ProctoringActive")))
	default:
		parts = append(parts, lipgloss.NewStyle().Foreground(m.theme.StatusFailed).Render(i18n.T(m.ctx, "ProctoringInactive")))
	}
	if m.snap.Submitted {
		parts = append(parts, lipgloss.NewStyle().Bold(true).Render(i18n.T(m.ctx, "Submitted")))
	}

	line := strings.Join(parts, lipgloss.NewStyle().Foreground(m.theme.FaintText).Render(" │ "))
	return ansi.Truncate(line, m.width, "…")
}

func formatRemaining(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%02d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

func (m Model) renderToasts() string {
	var lines []string
	for _, n := range m.visibleToasts() {
		st := lipgloss.NewStyle().Foreground(m.theme.notifyColor(n.Kind))
		lines = append(lines, ansi.Truncate(st.Render("● "+n.Message), m.width, "…"))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderBody() string {
	left := m.leftWidth()
	right := m.width - left
	height := m.question.Height + 2

	questionPane := m.pane(left, height).Render(m.question.View())
	editorPane := m.pane(right, height).Render(m.editor.View())
	return lipgloss.JoinHorizontal(lipgloss.Top, questionPane, editorPane)
}

func (m Model) renderBottom() string {
	left := m.width * 3 / 5
	right := m.width - left

	status := m.statusLabel()
	report := m.snap.Report
	if report == "" {
		report = lipgloss.NewStyle().Foreground(m.theme.FaintText).Render(i18n.T(m.ctx, "OutputPlaceholder"))
	} else {
		report = lipgloss.NewStyle().Foreground(m.theme.statusColor(m.snap.Status)).Render(report)
	}
	title := lipgloss.NewStyle().Bold(true).Render(i18n.T(m.ctx, "PaneOutput")) + "  " + status
	output := m.pane(left, outputHeight).Render(clip(title+"\n"+report, outputHeight-2))

	var events []string
	for _, ev := range m.snap.IntegrityLog {
		events = append(events, fmt.Sprintf("%s  %s", ev.At.Local().Format("15:04:05"), ev.Description))
	}
	if len(events) == 0 {
		events = append(events, lipgloss.NewStyle().Foreground(m.theme.FaintText).Render(i18n.T(m.ctx, "NoIntegrityEvents")))
	}
	integrity := m.pane(right, outputHeight).Render(
		lipgloss.NewStyle().Bold(true).Render(i18n.T(m.ctx, "PaneIntegrity")) + "\n" + strings.Join(events, "\n"))

	return lipgloss.JoinHorizontal(lipgloss.Top, output, integrity)
}

func (m Model) statusLabel() string {
	ids := map[model.ExecutionStatus]string{
		model.StatusIdle:      "StatusIdle",
		model.StatusRunning:   "StatusRunning",
		model.StatusSucceeded: "StatusSucceeded",
		model.StatusFailed:    "StatusFailed",
	}
	return lipgloss.NewStyle().Foreground(m.theme.statusColor(m.snap.Status)).Render(i18n.T(m.ctx, ids[m.snap.Status]))
}

func (m Model) renderHelp() string {
	var parts []string
	for _, b := range m.keys.help() {
		parts = append(parts, b.Help().Key+" "+i18n.T(m.ctx, b.Help().Desc))
	}
	line := lipgloss.NewStyle().Foreground(m.theme.HelpText).Render(strings.Join(parts, "  "))
	return ansi.Truncate(line, m.width, "…")
}

// clip keeps the last n lines of s.
func clip(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(append(lines[:1], lines[len(lines)-n+1:]...), "\n")
}

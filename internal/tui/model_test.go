package tui

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/pavelanni/proctor/internal/clock"
	"github.com/pavelanni/proctor/internal/directory"
	"github.com/pavelanni/proctor/internal/draft"
	"github.com/pavelanni/proctor/internal/judge"
	"github.com/pavelanni/proctor/internal/model"
	"github.com/pavelanni/proctor/internal/notify"
	"github.com/pavelanni/proctor/internal/proctor"
	"github.com/pavelanni/proctor/internal/questions"
	"github.com/pavelanni/proctor/internal/session"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }
func (f fixedRand) IntN(int) int     { return 0 }

type pendingDevice struct{}

func (pendingDevice) Acquire(ctx context.Context) (proctor.Stream, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func newTestModel(t *testing.T) (Model, *session.Manager, *session.Session, *clock.FakeClock) {
	t.Helper()
	clk := clock.Fake(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	mgr := session.NewManager(session.Config{
		Clock:       clk,
		Drafts:      draft.NewPersistence(draft.NewMemoryStore(), clk, quiet),
		Questions:   questions.Default(),
		Directory:   directory.Default(),
		Device:      pendingDevice{},
		MonitorRand: fixedRand(1),
		JudgeRand:   fixedRand(0),
		Logger:      quiet,
		Exam:        model.ExamConfig{Course: "CS 101", TimeLimit: 10 * time.Minute},
	})
	t.Cleanup(mgr.Close)

	ctx := context.Background()
	if _, err := mgr.Login(ctx, "s1"); err != nil {
		t.Fatal(err)
	}
	sess, err := mgr.EnterExam(ctx, "q1")
	if err != nil {
		t.Fatal(err)
	}
	m := New(ctx, mgr, sess, nil)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	return updated.(Model), mgr, sess, clk
}

func press(t *testing.T, m Model, msg tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func TestModelLoadingBeforeSize(t *testing.T) {
	_, mgr, sess, _ := newTestModel(t)
	m := New(context.Background(), mgr, sess, nil)
	if got := m.View(); got != "Loading..." {
		t.Errorf("expected Loading..., got %q", got)
	}
}

func TestModelView(t *testing.T) {
	m, _, _, _ := newTestModel(t)
	view := ansi.Strip(m.View())

	for _, want := range []string{
		"Proctor",
		"CS 101",
		"Alex Student",
		"Two Sum",
		"10:00",
		"Connecting camera...",
		"Welcome back, Alex Student",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("expected view to contain %q", want)
		}
	}
}

func TestModelTypingEditsSession(t *testing.T) {
	m, _, sess, _ := newTestModel(t)
	before := sess.Answer()

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	if got := sess.Answer(); got == before || !strings.Contains(got, "x") {
		t.Errorf("expected typed rune in answer, got %q", got)
	}
	if m.editor.Value() != sess.Answer() {
		t.Error("expected editor and session answer to match")
	}
}

func TestModelRunAndReset(t *testing.T) {
	m, _, sess, clk := newTestModel(t)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	if m.snap.Status != model.StatusRunning {
		t.Fatalf("expected running, got %s", m.snap.Status)
	}

	// A second run while busy becomes an error notification, not a crash.
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})

	clk.Advance(judge.Latency)
	updated, _ := m.Update(wakeMsg{})
	m = updated.(Model)
	if m.snap.Status != model.StatusSucceeded {
		t.Fatalf("expected succeeded, got %s", m.snap.Status)
	}
	if !strings.Contains(ansi.Strip(m.View()), "Test Case 1") {
		t.Error("expected report in output pane")
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlX})
	if sess.Snapshot().Status != model.StatusIdle {
		t.Errorf("expected idle after reset, got %s", sess.Snapshot().Status)
	}
}

func TestModelThemeToggle(t *testing.T) {
	m, _, _, _ := newTestModel(t)
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlT})
	if m.snap.Theme != model.ThemeLight {
		t.Errorf("expected light theme, got %s", m.snap.Theme)
	}
	if m.theme.CodeStyle != LightTheme.CodeStyle {
		t.Error("expected light palette applied")
	}
}

func TestModelSubmitFreezesEditor(t *testing.T) {
	m, _, sess, _ := newTestModel(t)
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	if !m.snap.Submitted {
		t.Fatal("expected submitted")
	}
	answer := sess.Answer()
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})
	if sess.Answer() != answer {
		t.Error("expected no edits after submit")
	}
}

func TestModelLeaveQuits(t *testing.T) {
	m, mgr, sess, _ := newTestModel(t)
	_, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("expected a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected QuitMsg")
	}
	if !sess.Closed() {
		t.Error("expected session closed")
	}
	if _, err := mgr.Current(); err == nil {
		t.Error("expected no current session")
	}
}

func TestModelToasts(t *testing.T) {
	m, _, _, _ := newTestModel(t)
	n := model.Notification{ID: "n1", Kind: model.NotifyWarning, Message: "Proctor Alert: test"}

	updated, _ := m.Update(notifyMsg{event: notify.Event{Type: notify.Published, Notification: n}})
	m = updated.(Model)
	if !strings.Contains(ansi.Strip(m.View()), "Proctor Alert: test") {
		t.Error("expected toast in view")
	}

	updated, _ = m.Update(notifyMsg{event: notify.Event{Type: notify.Expired, Notification: n}})
	m = updated.(Model)
	if strings.Contains(ansi.Strip(m.View()), "Proctor Alert: test") {
		t.Error("expected toast removed after expiry")
	}
}

func TestModelToastsPrunedOnTick(t *testing.T) {
	m, mgr, _, clk := newTestModel(t)
	id := mgr.Notifications().Publish(model.NotifyInfo, "short lived")
	n := model.Notification{ID: id, Kind: model.NotifyInfo, Message: "short lived"}

	updated, _ := m.Update(notifyMsg{event: notify.Event{Type: notify.Published, Notification: n}})
	m = updated.(Model)
	if !strings.Contains(ansi.Strip(m.View()), "short lived") {
		t.Fatal("expected toast in view")
	}

	clk.Advance(notify.TTL)
	updated, _ = m.Update(tickMsg(clk.Now()))
	m = updated.(Model)
	if strings.Contains(ansi.Strip(m.View()), "short lived") {
		t.Error("expected expired toast dropped on tick without an Expired event")
	}
}

func TestFormatRemaining(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{10 * time.Minute, "10:00"},
		{90 * time.Second, "01:30"},
		{1500 * time.Millisecond, "00:02"},
		{0, "00:00"},
	}
	for _, tt := range tests {
		if got := formatRemaining(tt.in); got != tt.want {
			t.Errorf("formatRemaining(%v): expected %s, got %s", tt.in, tt.want, got)
		}
	}
}

func TestWakeCoalesces(t *testing.T) {
	w := NewWake()
	w.Signal()
	w.Signal()
	<-w
	select {
	case <-w:
		t.Error("expected a single pending signal")
	default:
	}
}

package judge

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pavelanni/proctor/internal/clock"
	"github.com/pavelanni/proctor/internal/model"
)

var (
	epoch = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

	twoSum = model.ExamQuestion{
		ID:    "q1",
		Title: "Array Manipulation: Two Sum",
		TestCases: []model.TestCase{
			{Input: "[2, 7, 11, 15], 9", Expected: "[0, 1]", Mismatch: "[1, 0]"},
			{Input: "[3, 2, 4], 6", Expected: "[1, 2]", Mismatch: "[0, 1]"},
			{Input: "[3, 3], 6", Expected: "[0, 1]", Mismatch: "[0, 0]"},
		},
	}
)

type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }

type recorder struct {
	mu   sync.Mutex
	msgs []model.Notification
}

func (r *recorder) Publish(kind model.NotificationKind, message string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, model.Notification{Kind: kind, Message: message})
	return ""
}

func (r *recorder) all() []model.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Notification(nil), r.msgs...)
}

func newTestJudge(t *testing.T, rng Rand) (*Judge, *clock.FakeClock, *recorder) {
	t.Helper()
	clk := clock.Fake(epoch)
	rec := &recorder{}
	j := New(Config{Clock: clk, Notify: rec, Rand: rng, Logger: quiet})
	t.Cleanup(j.Close)
	return j, clk, rec
}

func TestRunSucceeds(t *testing.T) {
	j, clk, rec := newTestJudge(t, fixedRand(0.69))
	ctx := context.Background()

	a, err := j.Run(ctx, twoSum, "code")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if a.Status != model.StatusRunning || j.Status() != model.StatusRunning {
		t.Fatalf("expected running immediately, got %s", j.Status())
	}
	if a.Report != "Sending submission to Execution Service...\nAllocating Docker container...\n" {
		t.Errorf("unexpected running report %q", a.Report)
	}

	clk.Advance(Latency - time.Millisecond)
	if j.Status() != model.StatusRunning {
		t.Fatalf("expected running before latency, got %s", j.Status())
	}
	clk.Advance(time.Millisecond)

	got := j.Attempt()
	if got.Status != model.StatusSucceeded {
		t.Fatalf("expected succeeded, got %s", got.Status)
	}
	want := "Sending submission to Execution Service...\nAllocating Docker container...\n" +
		"Running tests...\n\n" +
		"Test Case 1: [2, 7, 11, 15], 9 -> PASS\n" +
		"Test Case 2: [3, 2, 4], 6 -> PASS\n" +
		"Test Case 3: [3, 3], 6 -> PASS\n\n" +
		"All Test Cases Passed! (Runtime: 2ms)"
	if got.Report != want {
		t.Errorf("unexpected report:\n%s", got.Report)
	}
	if got.FinishedAt == nil || !got.FinishedAt.Equal(epoch.Add(Latency)) {
		t.Errorf("expected finished at %v, got %v", epoch.Add(Latency), got.FinishedAt)
	}

	msgs := rec.all()
	if len(msgs) != 1 || msgs[0].Kind != model.NotifySuccess || msgs[0].Message != "All test cases passed!" {
		t.Errorf("unexpected notifications %+v", msgs)
	}
}

func TestRunFails(t *testing.T) {
	j, clk, rec := newTestJudge(t, fixedRand(0.7))
	j.Run(context.Background(), twoSum, "code")
	clk.Advance(Latency)

	got := j.Attempt()
	if got.Status != model.StatusFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
	if !strings.HasSuffix(got.Report, "Test Case 1: [2, 7, 11, 15], 9 -> PASS\n"+
		"Test Case 2: [3, 2, 4], 6 -> FAIL\n   Expected: [1, 2]\n   Actual: [0, 1]") {
		t.Errorf("unexpected report:\n%s", got.Report)
	}
	if strings.Contains(got.Report, "Test Case 3") {
		t.Error("expected cases after the failure to be omitted")
	}
	msgs := rec.all()
	if len(msgs) != 1 || msgs[0].Kind != model.NotifyError || msgs[0].Message != "Some test cases failed." {
		t.Errorf("unexpected notifications %+v", msgs)
	}
}

func TestRunWhileRunningRejected(t *testing.T) {
	j, clk, _ := newTestJudge(t, fixedRand(0))
	ctx := context.Background()
	first, _ := j.Run(ctx, twoSum, "a")

	clk.Advance(Latency / 2)
	if _, err := j.Run(ctx, twoSum, "b"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	clk.Advance(Latency / 2)
	if got := j.Attempt(); got.ID != first.ID || got.Status != model.StatusSucceeded {
		t.Errorf("expected first attempt to complete on its own schedule, got %+v", got)
	}

	// A terminal state accepts a new run.
	second, err := j.Run(ctx, twoSum, "c")
	if err != nil {
		t.Fatalf("Run from terminal: %v", err)
	}
	if second.ID == first.ID {
		t.Error("expected a new attempt id")
	}
}

func TestReset(t *testing.T) {
	j, clk, _ := newTestJudge(t, fixedRand(0.9))
	ctx := context.Background()

	if err := j.Reset(); err != nil {
		t.Fatalf("Reset from idle: %v", err)
	}

	j.Run(ctx, twoSum, "x")
	if err := j.Reset(); !errors.Is(err, ErrRunning) {
		t.Fatalf("expected ErrRunning, got %v", err)
	}
	if j.Status() != model.StatusRunning {
		t.Fatalf("expected still running, got %s", j.Status())
	}

	clk.Advance(Latency)
	if err := j.Reset(); err != nil {
		t.Fatalf("Reset from failed: %v", err)
	}
	got := j.Attempt()
	if got.Status != model.StatusIdle || got.Report != "" {
		t.Errorf("expected idle with empty report, got %+v", got)
	}
}

func TestCloseCancelsPendingCompletion(t *testing.T) {
	j, clk, rec := newTestJudge(t, fixedRand(0))
	j.Run(context.Background(), twoSum, "x")
	j.Close()
	clk.Advance(time.Minute)

	if j.Status() != model.StatusRunning {
		t.Errorf("expected closed judge to keep its last state, got %s", j.Status())
	}
	if n := len(rec.all()); n != 0 {
		t.Errorf("expected no notifications after close, got %d", n)
	}
	if n := clk.PendingCount(); n != 0 {
		t.Errorf("expected no pending timers, got %d", n)
	}
	if _, err := j.Run(context.Background(), twoSum, "y"); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestStaleCompletionIgnored(t *testing.T) {
	j, _, rec := newTestJudge(t, fixedRand(0))
	j.complete("not-the-current-attempt", Outcome{Passed: true}, nil)
	if j.Status() != model.StatusIdle || len(rec.all()) != 0 {
		t.Errorf("expected stale result ignored, got %s", j.Status())
	}
}

func TestSuccessRatio(t *testing.T) {
	j, clk, _ := newTestJudge(t, rand.New(rand.NewPCG(42, 1024)))
	ctx := context.Background()

	const runs = 1000
	succeeded := 0
	for i := 0; i < runs; i++ {
		if _, err := j.Run(ctx, twoSum, "x"); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		clk.Advance(Latency)
		switch j.Status() {
		case model.StatusSucceeded:
			succeeded++
		case model.StatusFailed:
		default:
			t.Fatalf("run %d left in %s", i, j.Status())
		}
	}
	ratio := float64(succeeded) / runs
	// Five standard deviations of a binomial(1000, 0.7) proportion.
	if math.Abs(ratio-SuccessRate) > 5*math.Sqrt(SuccessRate*(1-SuccessRate)/runs) {
		t.Errorf("expected success ratio near %.2f, got %.3f", SuccessRate, ratio)
	}
}

type stubEvaluator struct {
	out   Outcome
	err   error
	block chan struct{}
}

func (s *stubEvaluator) Evaluate(ctx context.Context, q model.ExamQuestion, code string) (Outcome, error) {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return Outcome{}, ctx.Err()
		}
	}
	return s.out, s.err
}

func newRemoteJudge(t *testing.T, ev Evaluator, timeout time.Duration) (*Judge, *recorder, chan struct{}) {
	t.Helper()
	rec := &recorder{}
	done := make(chan struct{}, 4)
	j := New(Config{
		Clock:     clock.Fake(epoch),
		Notify:    rec,
		Logger:    quiet,
		Evaluator: ev,
		Timeout:   timeout,
		OnChange:  func() { done <- struct{}{} },
	})
	t.Cleanup(j.Close)
	return j, rec, done
}

func TestRemoteEvaluator(t *testing.T) {
	tests := []struct {
		name       string
		ev         *stubEvaluator
		wantStatus model.ExecutionStatus
		wantKind   model.NotificationKind
		wantReport string
	}{
		{"passed", &stubEvaluator{out: Outcome{Passed: true, Report: "ok"}}, model.StatusSucceeded, model.NotifySuccess, "ok"},
		{"failed", &stubEvaluator{out: Outcome{Passed: false, Report: "bad"}}, model.StatusFailed, model.NotifyError, "bad"},
		{"error", &stubEvaluator{err: errors.New("connection refused")}, model.StatusFailed, model.NotifyError, "connection refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j, rec, done := newRemoteJudge(t, tt.ev, time.Second)
			if _, err := j.Run(context.Background(), twoSum, "code"); err != nil {
				t.Fatalf("Run: %v", err)
			}
			<-done
			got := j.Attempt()
			if got.Status != tt.wantStatus {
				t.Errorf("expected %s, got %s", tt.wantStatus, got.Status)
			}
			if !strings.Contains(got.Report, tt.wantReport) {
				t.Errorf("expected report to contain %q, got %q", tt.wantReport, got.Report)
			}
			msgs := rec.all()
			if len(msgs) != 1 || msgs[0].Kind != tt.wantKind {
				t.Errorf("unexpected notifications %+v", msgs)
			}
		})
	}
}

func TestRemoteEvaluatorTimeout(t *testing.T) {
	ev := &stubEvaluator{block: make(chan struct{})}
	j, _, done := newRemoteJudge(t, ev, 20*time.Millisecond)
	j.Run(context.Background(), twoSum, "code")

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("evaluator timeout did not complete the attempt")
	}
	got := j.Attempt()
	if got.Status != model.StatusFailed || !strings.Contains(got.Report, context.DeadlineExceeded.Error()) {
		t.Errorf("expected failed with deadline error, got %+v", got)
	}
}

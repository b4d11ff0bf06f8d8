package schedule

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// mockJob はJobのモック実装。
type mockJob struct {
	runCalled bool
	err       error
}

func (m *mockJob) Run(ctx context.Context) error {
	m.runCalled = true
	return m.err
}

func TestBuildDailySpec(t *testing.T) {
	tests := []struct {
		at   string
		want string
	}{
		{"03:00", "0 3 * * *"},
		{"00:30", "30 0 * * *"},
		{"23:59", "59 23 * * *"},
		{"12:05", "5 12 * * *"},
	}

	for _, tt := range tests {
		got, err := BuildDailySpec(tt.at)
		if err != nil {
			t.Errorf("BuildDailySpec(%q) returned error: %v", tt.at, err)
			continue
		}
		if got != tt.want {
			t.Errorf("BuildDailySpec(%q) = %q, want %q", tt.at, got, tt.want)
		}
	}
}

func TestBuildDailySpec_InvalidFormat(t *testing.T) {
	if _, err := BuildDailySpec("0300"); err == nil {
		t.Error("expected error for time without colon")
	}
}

func TestDailyScheduler_Add_InvalidTime_ReturnsError(t *testing.T) {
	var buf bytes.Buffer
	s := NewDailyScheduler(newTestLogger(&buf))

	if err := s.Add("cleanup", "bad", &mockJob{}); err == nil {
		t.Error("expected error for invalid schedule time")
	}
}

func TestDailyScheduler_Add_ValidTime(t *testing.T) {
	var buf bytes.Buffer
	s := NewDailyScheduler(newTestLogger(&buf))

	if err := s.Add("cleanup", "03:00", &mockJob{}); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
}

func TestDailyScheduler_AddEvery_ValidInterval(t *testing.T) {
	var buf bytes.Buffer
	s := NewDailyScheduler(newTestLogger(&buf))

	if err := s.AddEvery("cleanup", 12*time.Hour, &mockJob{}); err != nil {
		t.Fatalf("AddEvery returned error: %v", err)
	}
}

func TestDailyScheduler_AddEvery_SubSecondInterval_ReturnsError(t *testing.T) {
	var buf bytes.Buffer
	s := NewDailyScheduler(newTestLogger(&buf))

	if err := s.AddEvery("cleanup", 100*time.Millisecond, &mockJob{}); err == nil {
		t.Error("expected error for sub-second interval")
	}
}

// notifyJob は実行をチャネルで通知するJobのモック実装。
type notifyJob struct {
	ran chan struct{}
}

func (j *notifyJob) Run(ctx context.Context) error {
	select {
	case j.ran <- struct{}{}:
	default:
	}
	return nil
}

func TestDailyScheduler_AddEvery_JobFires(t *testing.T) {
	var buf bytes.Buffer
	s := NewDailyScheduler(newTestLogger(&buf))

	job := &notifyJob{ran: make(chan struct{}, 1)}
	if err := s.AddEvery("cleanup", time.Second, job); err != nil {
		t.Fatalf("AddEvery returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Start(ctx)

	select {
	case <-job.ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not fire within interval")
	}
}

func TestDailyScheduler_Start_StopsOnContextCancel(t *testing.T) {
	var buf bytes.Buffer
	s := NewDailyScheduler(newTestLogger(&buf))

	if err := s.Add("cleanup", "03:00", &mockJob{}); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after context cancellation")
	}
}

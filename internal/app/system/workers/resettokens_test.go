package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeClearer struct {
	mu    sync.Mutex
	calls []time.Time
	n     int64
	err   error
}

func (f *fakeClearer) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, now)
	return f.n, f.err
}

func (f *fakeClearer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestSweep_PassesClock(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	f := &fakeClearer{n: 4}
	w := NewResetTokenSweeper(f, zap.NewNop(), time.Hour)
	w.now = func() time.Time { return fixed }

	if got := w.Sweep(); got != 4 {
		t.Errorf("Sweep() = %d, want 4", got)
	}
	if len(f.calls) != 1 || !f.calls[0].Equal(fixed) {
		t.Errorf("calls = %v, want [%v]", f.calls, fixed)
	}
}

func TestSweep_ErrorReturnsZero(t *testing.T) {
	f := &fakeClearer{n: 9, err: errors.New("boom")}
	w := NewResetTokenSweeper(f, zap.NewNop(), time.Hour)

	if got := w.Sweep(); got != 0 {
		t.Errorf("Sweep() = %d, want 0", got)
	}
}

func TestStartStop_RunsOnInterval(t *testing.T) {
	f := &fakeClearer{}
	w := NewResetTokenSweeper(f, zap.NewNop(), 10*time.Millisecond)

	w.Start()
	deadline := time.Now().Add(2 * time.Second)
	for f.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	w.Stop()
	w.Stop()

	if f.count() < 2 {
		t.Errorf("swept %d times, want at least 2", f.count())
	}
}

package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runnerFunc func(ctx context.Context) (domain.RecurringRunSummary, error)

func (f runnerFunc) ProcessDueRecurring(ctx context.Context) (domain.RecurringRunSummary, error) {
	return f(ctx)
}

type stubLocker struct {
	mu       sync.Mutex
	held     bool
	err      error
	released int
}

func (l *stubLocker) TryLock(_ context.Context, _ string) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held {
		return nil, false, nil
	}
	l.held = true
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.held = false
		l.released++
	}, true, nil
}

func TestNextRun(t *testing.T) {
	lagos, err := time.LoadLocation("Africa/Lagos")
	require.NoError(t, err)

	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 16, 0, 5, 0, 0, time.UTC), NextRun(now, 0, 5, time.UTC))
	assert.Equal(t, time.Date(2026, 3, 15, 23, 0, 0, 0, time.UTC), NextRun(now, 23, 0, time.UTC))

	exact := time.Date(2026, 3, 15, 0, 5, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 16, 0, 5, 0, 0, time.UTC), NextRun(exact, 0, 5, time.UTC))

	// 10:00 UTC is 11:00 in Lagos, so 11:30 Lagos is still today.
	got := NextRun(now, 11, 30, lagos)
	assert.True(t, got.Equal(time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)))
}

func TestTickRunsAndReleasesLock(t *testing.T) {
	locker := &stubLocker{}
	calls := 0
	s := New(runnerFunc(func(context.Context) (domain.RecurringRunSummary, error) {
		calls++
		return domain.RecurringRunSummary{Generated: 3}, nil
	}), locker, Options{})

	summary, ran, err := s.Tick(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 3, summary.Generated)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, locker.released)
}

func TestTickSkipsWhenAnotherInstanceHoldsLock(t *testing.T) {
	locker := &stubLocker{held: true}
	s := New(runnerFunc(func(context.Context) (domain.RecurringRunSummary, error) {
		t.Fatal("runner must not be called")
		return domain.RecurringRunSummary{}, nil
	}), locker, Options{})

	_, ran, err := s.Tick(context.Background())
	require.NoError(t, err)
	assert.False(t, ran)
}

func TestTickPropagatesLockErrors(t *testing.T) {
	boom := errors.New("redis down")
	s := New(runnerFunc(func(context.Context) (domain.RecurringRunSummary, error) {
		return domain.RecurringRunSummary{}, nil
	}), &stubLocker{err: boom}, Options{})

	_, ran, err := s.Tick(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.False(t, ran)
}

func TestTickNeverOverlapsInProcess(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	s := New(runnerFunc(func(context.Context) (domain.RecurringRunSummary, error) {
		close(entered)
		<-release
		return domain.RecurringRunSummary{}, nil
	}), nil, Options{})

	done := make(chan bool)
	go func() {
		_, ran, _ := s.Tick(context.Background())
		done <- ran
	}()
	<-entered

	_, ran, err := s.Tick(context.Background())
	require.NoError(t, err)
	assert.False(t, ran, "second tick is skipped while the first runs")

	close(release)
	assert.True(t, <-done)
}

func TestRunStopsOnCancel(t *testing.T) {
	s := New(runnerFunc(func(context.Context) (domain.RecurringRunSummary, error) {
		return domain.RecurringRunSummary{}, nil
	}), nil, Options{Hour: 3})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error)
	go func() { errCh <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

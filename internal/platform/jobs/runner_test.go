package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecorder struct {
	mu       sync.Mutex
	next     int64
	started  []Options
	finished map[int64]string
	errs     map[int64]error
}

func (f *fakeRecorder) Start(_ context.Context, _ string, opts Options) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	f.started = append(f.started, opts)
	return f.next, nil
}

func (f *fakeRecorder) Finish(_ context.Context, runID int64, status string, _ any, runErr error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.finished == nil {
		f.finished = map[int64]string{}
		f.errs = map[int64]error{}
	}
	f.finished[runID] = status
	f.errs[runID] = runErr
	return nil
}

type heldLocker struct{}

func (heldLocker) Acquire(context.Context, string) (func(), bool, error) {
	return nil, false, nil
}

type countingObserver struct {
	mu     sync.Mutex
	status map[string]int
}

func (o *countingObserver) JobRun(_ string, status string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.status == nil {
		o.status = map[string]int{}
	}
	o.status[status]++
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := NewRunner(nil, nil)
	task := Task{Name: "leave.accrual", Run: func(context.Context, Options) (any, error) { return nil, nil }}
	require.NoError(t, r.Register(task))
	assert.ErrorIs(t, r.Register(task), ErrDuplicateTask)
	assert.Error(t, r.Register(Task{Name: "nameless-run"}))
	assert.Equal(t, []string{"leave.accrual"}, r.Names())
}

func TestTriggerUnknownJob(t *testing.T) {
	r := NewRunner(nil, nil)
	_, err := r.Trigger(context.Background(), "missing", Options{})
	assert.ErrorIs(t, err, ErrUnknownTask)
}

func TestTriggerRecordsRun(t *testing.T) {
	rec := &fakeRecorder{}
	obs := &countingObserver{}
	r := NewRunner(nil, rec)
	r.Observer = obs
	require.NoError(t, r.Register(Task{Name: "ok", Run: func(_ context.Context, opts Options) (any, error) {
		return map[string]bool{"dryRun": opts.DryRun}, nil
	}}))
	boom := errors.New("boom")
	require.NoError(t, r.Register(Task{Name: "bad", Run: func(context.Context, Options) (any, error) { return nil, boom }}))

	res, err := r.Trigger(context.Background(), "ok", Options{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"dryRun": true}, res.Details)

	_, err = r.Trigger(context.Background(), "bad", Options{})
	require.ErrorIs(t, err, boom)

	assert.Equal(t, StatusCompleted, rec.finished[1])
	assert.Equal(t, StatusFailed, rec.finished[2])
	assert.ErrorIs(t, rec.errs[2], boom)
	assert.Equal(t, TriggerManual, rec.started[0].Trigger)
	assert.Equal(t, 1, obs.status[StatusCompleted])
	assert.Equal(t, 1, obs.status[StatusFailed])
}

func TestTriggerSkipsWhenLockHeld(t *testing.T) {
	rec := &fakeRecorder{}
	r := NewRunner(heldLocker{}, rec)
	var calls atomic.Int32
	require.NoError(t, r.Register(Task{Name: "leave.rollover", Run: func(context.Context, Options) (any, error) {
		calls.Add(1)
		return nil, nil
	}}))

	res, err := r.Trigger(context.Background(), "leave.rollover", Options{})
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Zero(t, calls.Load())
	assert.Empty(t, rec.started)

	// dry runs do not contend for the lock
	res, err = r.Trigger(context.Background(), "leave.rollover", Options{DryRun: true})
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.EqualValues(t, 1, calls.Load())
}

func TestTriggerIsSingleFlight(t *testing.T) {
	r := NewRunner(nil, nil)
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	var calls atomic.Int32
	require.NoError(t, r.Register(Task{Name: "leave.accrual", Run: func(context.Context, Options) (any, error) {
		calls.Add(1)
		entered <- struct{}{}
		<-release
		return "done", nil
	}}))

	first := make(chan Result, 1)
	go func() {
		res, _ := r.Trigger(context.Background(), "leave.accrual", Options{})
		first <- res
	}()
	<-entered

	second := make(chan Result, 1)
	go func() {
		res, _ := r.Trigger(context.Background(), "leave.accrual", Options{})
		second <- res
	}()
	// give the second caller time to join the in-flight call
	time.Sleep(50 * time.Millisecond)
	close(release)

	a, b := <-first, <-second
	assert.EqualValues(t, 1, calls.Load())
	assert.Equal(t, "done", a.Details)
	assert.Equal(t, "done", b.Details)
	assert.True(t, b.Shared)
}

func TestRunTicksUntilCancelled(t *testing.T) {
	r := NewRunner(nil, nil)
	var calls atomic.Int32
	require.NoError(t, r.Register(Task{Name: "tick", Interval: 10 * time.Millisecond, Run: func(_ context.Context, opts Options) (any, error) {
		if opts.Trigger == TriggerSchedule {
			calls.Add(1)
		}
		return nil, nil
	}}))
	require.NoError(t, r.Register(Task{Name: "manual-only", Run: func(context.Context, Options) (any, error) {
		t.Error("unscheduled task must not tick")
		return nil, nil
	}}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
	}
}

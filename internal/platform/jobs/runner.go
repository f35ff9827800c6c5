// Package jobs runs named background tasks on tickers or on demand.
//
// A run of a given task is single-flight inside the process and guarded by a
// named Locker across processes. Every run that acquires the lock is recorded.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"

	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

var (
	ErrUnknownTask   = errors.New("unknown job")
	ErrDuplicateTask = errors.New("job already registered")
)

type Options struct {
	DryRun  bool
	Force   bool
	Trigger string
}

type Task struct {
	Name string
	// Interval between scheduled runs; zero disables the ticker.
	Interval time.Duration
	Run      func(ctx context.Context, opts Options) (any, error)
}

type Result struct {
	Job     string `json:"job"`
	Skipped bool   `json:"skipped"`
	Shared  bool   `json:"shared"`
	Details any    `json:"details,omitempty"`
}

// Locker serializes a job across processes. release must be called once the run ends.
type Locker interface {
	Acquire(ctx context.Context, name string) (release func(), acquired bool, err error)
}

type Recorder interface {
	Start(ctx context.Context, job string, opts Options) (int64, error)
	Finish(ctx context.Context, runID int64, status string, details any, runErr error) error
}

type Observer interface {
	JobRun(job, status string, duration time.Duration)
}

type Runner struct {
	Locker   Locker
	Recorder Recorder
	Observer Observer
	Now      func() time.Time

	mu    sync.RWMutex
	tasks map[string]Task
	group singleflight.Group
}

func NewRunner(locker Locker, recorder Recorder) *Runner {
	if locker == nil {
		locker = NoopLocker{}
	}
	return &Runner{
		Locker:   locker,
		Recorder: recorder,
		Now:      time.Now,
		tasks:    map[string]Task{},
	}
}

func (r *Runner) Register(t Task) error {
	if t.Name == "" || t.Run == nil {
		return fmt.Errorf("job must have a name and a run function")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[t.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTask, t.Name)
	}
	r.tasks[t.Name] = t
	return nil
}

func (r *Runner) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Runner) task(name string) (Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[name]
	return t, ok
}

// Trigger runs the named job now. A caller arriving while the same job is in
// flight in this process shares that run's result. Dry runs never take the
// distributed lock and are not shared with real runs.
func (r *Runner) Trigger(ctx context.Context, name string, opts Options) (Result, error) {
	t, ok := r.task(name)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	if opts.Trigger == "" {
		opts.Trigger = TriggerManual
	}
	key := name
	if opts.DryRun {
		key += ":dry-run"
	}
	v, err, shared := r.group.Do(key, func() (any, error) {
		return r.execute(ctx, t, opts)
	})
	res, _ := v.(Result)
	res.Shared = shared
	return res, err
}

func (r *Runner) execute(ctx context.Context, t Task, opts Options) (Result, error) {
	res := Result{Job: t.Name}
	if !opts.DryRun {
		release, acquired, err := r.Locker.Acquire(ctx, t.Name)
		if err != nil {
			return res, fmt.Errorf("acquire lock for %s: %w", t.Name, err)
		}
		if !acquired {
			slog.Info("job skipped, lock held elsewhere", "job", t.Name)
			r.observe(t.Name, StatusSkipped, 0)
			res.Skipped = true
			return res, nil
		}
		defer release()
	}

	var runID int64
	if r.Recorder != nil {
		id, err := r.Recorder.Start(ctx, t.Name, opts)
		if err != nil {
			slog.Warn("job run insert failed", "job", t.Name, "err", err)
		}
		runID = id
	}

	started := r.Now()
	details, runErr := t.Run(ctx, opts)
	elapsed := r.Now().Sub(started)
	status := StatusCompleted
	if runErr != nil {
		status = StatusFailed
	}

	if r.Recorder != nil && runID != 0 {
		if err := r.Recorder.Finish(context.WithoutCancel(ctx), runID, status, details, runErr); err != nil {
			slog.Warn("job run update failed", "job", t.Name, "err", err)
		}
	}
	r.observe(t.Name, status, elapsed)
	res.Details = details
	return res, runErr
}

func (r *Runner) observe(job, status string, d time.Duration) {
	if r.Observer != nil {
		r.Observer.JobRun(job, status, d)
	}
}

// Run starts a ticker per scheduled task and blocks until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range r.Names() {
		t, _ := r.task(name)
		if t.Interval <= 0 {
			continue
		}
		g.Go(func() error {
			r.schedule(gctx, t)
			return nil
		})
	}
	return g.Wait()
}

func (r *Runner) schedule(ctx context.Context, t Task) {
	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Trigger(ctx, t.Name, Options{Trigger: TriggerSchedule}); err != nil {
				slog.Warn("scheduled job failed", "job", t.Name, "err", err)
			}
		}
	}
}

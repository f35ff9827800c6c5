package server

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"trainerleave/internal/domain/auth"
	"trainerleave/internal/domain/directory"
	"trainerleave/internal/domain/leave"
	"trainerleave/internal/domain/notifications"
	"trainerleave/internal/platform/cache"
	"trainerleave/internal/platform/config"
	"trainerleave/internal/platform/db"
	"trainerleave/internal/platform/email"
	"trainerleave/internal/platform/jobs"
	"trainerleave/internal/platform/metrics"
)

const (
	JobAccrual  = "leave.accrual"
	JobRollover = "leave.rollover"
)

// Services is the wired object graph shared by the HTTP server and leavectl.
type Services struct {
	Config        config.Config
	Pool          *pgxpool.Pool
	Redis         *redis.Client
	Leave         *leave.Service
	Notifications *notifications.Service
	Registry      *notifications.Registry
	Directory     *directory.Store
	Auth          *auth.Service
	Runner        *jobs.Runner
	Runs          jobs.PGRecorder
	Metrics       *metrics.Collector
}

// Bootstrap connects to Postgres (and Redis when the lock backend needs it),
// applies migrations if enabled and wires every service.
func Bootstrap(ctx context.Context, cfg config.Config) (*Services, error) {
	policy, err := cfg.LeavePolicy()
	if err != nil {
		return nil, err
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	var rdb *redis.Client
	if cfg.JobLockBackend == config.LockBackendRedis {
		rdb, err = cache.OpenRedis(cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
	}

	s := &Services{Config: cfg, Pool: pool, Redis: rdb}
	if cfg.MetricsEnabled {
		s.Metrics = metrics.New()
	}

	s.Directory = directory.NewStore(pool)
	s.Auth = auth.NewService(auth.NewStore(pool), cfg.JWTSecret)
	s.Registry = notifications.NewRegistry(32)
	s.Notifications = notifications.New(notifications.NewStore(pool), email.New(cfg), s.Registry)
	s.Notifications.EmailEnabled = cfg.EmailEnabled
	s.Notifications.DefaultFrom = cfg.EmailFrom

	s.Leave = leave.NewService(leave.NewStore(pool), directory.NewCachedApprovers(s.Directory, cfg.ApproverCacheTTL), s.Notifications, policy)
	s.Leave.NotifyTimeout = cfg.NotifyTimeout
	if s.Metrics != nil {
		s.Leave.Metrics = s.Metrics
	}

	s.Runs = jobs.PGRecorder{DB: pool}
	s.Runner = jobs.NewRunner(newLocker(cfg, pool, rdb), s.Runs)
	if s.Metrics != nil {
		s.Runner.Observer = s.Metrics
	}
	if err := RegisterLeaveJobs(s.Runner, s.Leave, cfg); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Services) Close() {
	if s.Registry != nil {
		s.Registry.Close()
	}
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
	if s.Pool != nil {
		s.Pool.Close()
	}
}

func newLocker(cfg config.Config, pool *pgxpool.Pool, rdb *redis.Client) jobs.Locker {
	switch cfg.JobLockBackend {
	case config.LockBackendRedis:
		return jobs.RedisLocker{Client: rdb, TTL: cfg.JobLockTTL}
	case config.LockBackendNone:
		return jobs.NoopLocker{}
	default:
		return jobs.PGLocker{Pool: pool}
	}
}

// RegisterLeaveJobs adds the accrual and rollover schedulers to runner.
func RegisterLeaveJobs(runner *jobs.Runner, svc *leave.Service, cfg config.Config) error {
	if err := runner.Register(jobs.Task{
		Name:     JobAccrual,
		Interval: cfg.AccrualJobInterval,
		Run: func(ctx context.Context, opts jobs.Options) (any, error) {
			return svc.RunAccrual(ctx, leave.RunOptions{DryRun: opts.DryRun, Force: opts.Force})
		},
	}); err != nil {
		return err
	}
	return runner.Register(jobs.Task{
		Name:     JobRollover,
		Interval: cfg.RolloverJobInterval,
		Run: func(ctx context.Context, opts jobs.Options) (any, error) {
			return svc.RunRollover(ctx, leave.RunOptions{DryRun: opts.DryRun, Force: opts.Force})
		},
	})
}

package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type NoopLocker struct{}

func (NoopLocker) Acquire(context.Context, string) (func(), bool, error) {
	return func() {}, true, nil
}

// PGLocker holds a session-level advisory lock on a dedicated pool connection
// for the length of the run.
type PGLocker struct {
	Pool *pgxpool.Pool
}

func (l PGLocker) Acquire(ctx context.Context, name string) (func(), bool, error) {
	conn, err := l.Pool.Acquire(ctx)
	if err != nil {
		return nil, false, err
	}
	var ok bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock(hashtext($1))", name).Scan(&ok); err != nil {
		conn.Release()
		return nil, false, err
	}
	if !ok {
		conn.Release()
		return nil, false, nil
	}
	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock(hashtext($1))", name); err != nil {
			slog.Warn("advisory unlock failed", "job", name, "err", err)
			// Drop the session so the lock cannot outlive the run.
			_ = conn.Conn().Close(ctx)
		}
		conn.Release()
	}
	return release, true, nil
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker takes a SET NX lock with a TTL. Release deletes the key only if
// this holder still owns it.
type RedisLocker struct {
	Client *redis.Client
	TTL    time.Duration
	Prefix string
}

func (l RedisLocker) key(name string) string {
	prefix := l.Prefix
	if prefix == "" {
		prefix = "trainerleave:job-lock:"
	}
	return prefix + name
}

func (l RedisLocker) Acquire(ctx context.Context, name string) (func(), bool, error) {
	ttl := l.TTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	key := l.key(name)
	token := uuid.NewString()
	ok, err := l.Client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.Client, []string{key}, token).Err(); err != nil {
			slog.Warn("redis lock release failed", "job", name, "err", err)
		}
	}
	return release, true, nil
}

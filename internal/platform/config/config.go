package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	LockBackendPostgres = "postgres"
	LockBackendRedis    = "redis"
	LockBackendNone     = "none"
)

type Config struct {
	Addr               string
	DatabaseURL        string
	JWTSecret          string
	Environment        string
	RunMigrations      bool
	LogLevel           string
	LogFormat          string
	CORSAllowedOrigins []string
	MetricsEnabled     bool
	SeedAdminEmail     string
	SeedDemoData       bool

	LeaveTimezone        string
	LeaveMaxSpanDays     int
	LeaveMinReasonLength int
	LeaveAccrualDays     int
	LeaveMonthlySick     decimal.Decimal
	LeaveMonthlyCasual   decimal.Decimal
	LeaveCarryForwardCap decimal.Decimal
	LeaveRolloverMonth   int
	LeaveUnlimitedPaid   bool
	AccrualJobInterval   time.Duration
	RolloverJobInterval  time.Duration
	JobLockBackend       string
	JobLockTTL           time.Duration
	ApproverCacheTTL     time.Duration
	RedisAddr            string
	RedisDB              int
	NotifyTimeout        time.Duration
	EmailEnabled         bool
	EmailFrom            string
	SMTPHost             string
	SMTPPort             int
	SMTPUser             string
	SMTPPassword         string
	StreamHeartbeat      time.Duration
	ShutdownGracePeriod  time.Duration
	AccessTokenTTL       time.Duration
}

func Load() Config {
	return Config{
		Addr:                 getEnv("APP_ADDR", ":8080"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		JWTSecret:            getEnv("JWT_SECRET", ""),
		Environment:          getEnv("APP_ENV", "development"),
		RunMigrations:        getEnvBool("RUN_MIGRATIONS", true),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "json"),
		CORSAllowedOrigins:   getEnvList("CORS_ALLOWED_ORIGINS", nil),
		MetricsEnabled:       getEnvBool("METRICS_ENABLED", true),
		SeedAdminEmail:       getEnv("SEED_ADMIN_EMAIL", ""),
		SeedDemoData:         getEnvBool("SEED_DEMO_DATA", false),
		LeaveTimezone:        getEnv("LEAVE_TIMEZONE", "UTC"),
		LeaveMaxSpanDays:     getEnvInt("LEAVE_MAX_SPAN_DAYS", 30),
		LeaveMinReasonLength: getEnvInt("LEAVE_MIN_REASON_LENGTH", 10),
		LeaveAccrualDays:     getEnvInt("LEAVE_ACCRUAL_INTERVAL_DAYS", 30),
		LeaveMonthlySick:     getEnvDecimal("LEAVE_MONTHLY_SICK", decimal.NewFromInt(1)),
		LeaveMonthlyCasual:   getEnvDecimal("LEAVE_MONTHLY_CASUAL", decimal.NewFromInt(1)),
		LeaveCarryForwardCap: getEnvDecimal("LEAVE_CARRY_FORWARD_CAP", decimal.NewFromInt(5)),
		LeaveRolloverMonth:   getEnvInt("LEAVE_ROLLOVER_MONTH", 1),
		LeaveUnlimitedPaid:   getEnvBool("LEAVE_UNLIMITED_PAID", true),
		AccrualJobInterval:   getEnvDuration("ACCRUAL_JOB_INTERVAL", 24*time.Hour),
		RolloverJobInterval:  getEnvDuration("ROLLOVER_JOB_INTERVAL", 24*time.Hour),
		JobLockBackend:       getEnv("JOB_LOCK_BACKEND", LockBackendPostgres),
		JobLockTTL:           getEnvDuration("JOB_LOCK_TTL", 15*time.Minute),
		ApproverCacheTTL:     getEnvDuration("APPROVER_CACHE_TTL", time.Minute),
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		NotifyTimeout:        getEnvDuration("NOTIFY_TIMEOUT", 5*time.Second),
		EmailEnabled:         getEnvBool("EMAIL_ENABLED", false),
		EmailFrom:            getEnv("EMAIL_FROM", "no-reply@example.com"),
		SMTPHost:             getEnv("SMTP_HOST", ""),
		SMTPPort:             getEnvInt("SMTP_PORT", 587),
		SMTPUser:             getEnv("SMTP_USER", ""),
		SMTPPassword:         getEnv("SMTP_PASSWORD", ""),
		StreamHeartbeat:      getEnvDuration("STREAM_HEARTBEAT", 25*time.Second),
		ShutdownGracePeriod:  getEnvDuration("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		AccessTokenTTL:       getEnvDuration("ACCESS_TOKEN_TTL", 12*time.Hour),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Location resolves LEAVE_TIMEZONE.
func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.LeaveTimezone)
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Environment == "production" && strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("LEAVE_TIMEZONE is invalid: %w", err)
	}
	if c.LeaveMaxSpanDays <= 0 {
		return fmt.Errorf("LEAVE_MAX_SPAN_DAYS must be positive")
	}
	if c.LeaveMinReasonLength < 0 {
		return fmt.Errorf("LEAVE_MIN_REASON_LENGTH must not be negative")
	}
	if c.LeaveAccrualDays <= 0 {
		return fmt.Errorf("LEAVE_ACCRUAL_INTERVAL_DAYS must be positive")
	}
	if c.LeaveMonthlySick.IsNegative() || c.LeaveMonthlyCasual.IsNegative() || c.LeaveCarryForwardCap.IsNegative() {
		return fmt.Errorf("leave increments and carry-forward cap must not be negative")
	}
	if c.LeaveRolloverMonth < 1 || c.LeaveRolloverMonth > 12 {
		return fmt.Errorf("LEAVE_ROLLOVER_MONTH must be between 1 and 12")
	}
	switch c.JobLockBackend {
	case LockBackendPostgres, LockBackendNone:
	case LockBackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR must be set when JOB_LOCK_BACKEND is redis")
		}
	default:
		return fmt.Errorf("JOB_LOCK_BACKEND must be one of postgres, redis, none")
	}
	if c.JobLockTTL <= 0 {
		return fmt.Errorf("JOB_LOCK_TTL must be positive")
	}
	if c.EmailEnabled && c.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST must be set when EMAIL_ENABLED is true")
	}
	return nil
}

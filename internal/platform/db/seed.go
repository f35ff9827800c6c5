package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"trainerleave/internal/domain/auth"
	"trainerleave/internal/domain/leave"
	"trainerleave/internal/platform/config"
)

type seedTrainer struct {
	id       string
	name     string
	email    string
	category leave.Category
}

var demoTrainers = []seedTrainer{
	{id: "trainer-permanent", name: "Priya Permanent", email: "priya.trainer@example.com", category: leave.CategoryPermanent},
	{id: "trainer-contracted", name: "Carlos Contracted", email: "carlos.trainer@example.com", category: leave.CategoryContracted},
}

// Seed creates the bootstrap administrator and, when enabled, a small demo roster.
// Every insert is idempotent so it is safe to run at each start.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if email := strings.TrimSpace(cfg.SeedAdminEmail); email != "" {
		if err := ensureUser(ctx, pool, "admin", "Administrator", email, auth.RoleAdmin); err != nil {
			return err
		}
	}
	if !cfg.SeedDemoData {
		return nil
	}

	if err := ensureUser(ctx, pool, "hr-demo", "Hannah HR", "hr@example.com", auth.RoleHR); err != nil {
		return err
	}
	for _, t := range demoTrainers {
		if err := ensureUser(ctx, pool, t.id, t.name, t.email, auth.RoleTrainer); err != nil {
			return err
		}
		if err := ensureTrainer(ctx, pool, t.id, t.category); err != nil {
			return err
		}
		if err := ensureOpeningBalances(ctx, pool, t.id, t.category); err != nil {
			return err
		}
	}
	return nil
}

func ensureUser(ctx context.Context, pool *pgxpool.Pool, id, name, email, role string) error {
	_, err := pool.Exec(ctx, `
    INSERT INTO users (id, display_name, email, role, status)
    VALUES ($1, $2, $3, $4, $5)
    ON CONFLICT (id) DO NOTHING
  `, id, name, email, role, auth.StatusActive)
	return err
}

func ensureTrainer(ctx context.Context, pool *pgxpool.Pool, id string, category leave.Category) error {
	_, err := pool.Exec(ctx, `
    INSERT INTO trainers (id, category, status)
    VALUES ($1, $2, $3)
    ON CONFLICT (id) DO NOTHING
  `, id, string(category), leave.TrainerActive)
	return err
}

func ensureOpeningBalances(ctx context.Context, pool *pgxpool.Pool, trainerID string, category leave.Category) error {
	opening := decimal.NewFromInt(2)
	for _, lt := range []leave.LeaveType{leave.TypeSick, leave.TypeCasual} {
		if _, err := pool.Exec(ctx, `
      INSERT INTO leave_balances (trainer_id, leave_type, available)
      VALUES ($1, $2, $3)
      ON CONFLICT (trainer_id, leave_type) DO NOTHING
    `, trainerID, string(lt), opening); err != nil {
			return err
		}
	}
	if category != leave.CategoryPermanent {
		return nil
	}
	_, err := pool.Exec(ctx, `
    INSERT INTO leave_balances (trainer_id, leave_type, unlimited)
    VALUES ($1, $2, true)
    ON CONFLICT (trainer_id, leave_type) DO NOTHING
  `, trainerID, string(leave.TypePaid))
	return err
}

package leave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"trainerleave/internal/domain/audit"
	"trainerleave/internal/platform/querier"
)

// Postgres SQLSTATE codes the store translates into domain errors.
const (
	pgExclusionViolation = "23P01"
	pgCheckViolation     = "23514"
	pgSerialization      = "40001"
)

type Store struct {
	DB    querier.Beginner
	Audit *audit.Store
}

func NewStore(db querier.Beginner) *Store {
	return &Store{DB: db, Audit: audit.NewStore(db)}
}

func (s *Store) WithinTrainerTx(ctx context.Context, trainerID string, fn func(tx TxStore, ledger *TrainerLedger) error) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin trainer tx: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			slog.Warn("leave tx rollback failed", "trainerId", trainerID, "err", rbErr)
		}
	}()

	ledger, err := lockLedger(ctx, tx, trainerID)
	if err != nil {
		return err
	}
	if err := fn(&txStore{tx: tx, audit: s.Audit}, &ledger); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return translate(fmt.Errorf("commit trainer tx: %w", err))
	}
	return nil
}

func (s *Store) ListAudit(ctx context.Context, trainerID string, limit, offset int) ([]audit.Entry, int, error) {
	return s.Audit.ListAudit(ctx, trainerID, limit, offset)
}

type txStore struct {
	tx    pgx.Tx
	audit *audit.Store
}

func (t *txStore) AppendAudit(ctx context.Context, e audit.Entry) error {
	return t.audit.Append(ctx, t.tx, e)
}

// translate maps constraint violations onto the domain taxonomy.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgExclusionViolation:
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.Message)
		case pgCheckViolation:
			if pgErr.ConstraintName == "leave_balances_available_check" {
				return fmt.Errorf("%w: %s", ErrInsufficientBalance, pgErr.Message)
			}
			return fmt.Errorf("%w: %s", ErrValidation, pgErr.Message)
		case pgSerialization:
			return fmt.Errorf("%w: concurrent update, retry: %s", ErrConflict, pgErr.Message)
		}
	}
	return err
}

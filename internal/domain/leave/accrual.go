package leave

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"trainerleave/internal/domain/audit"
)

// errDryRun rolls a scheduler transaction back after its outcome was computed.
var errDryRun = errors.New("dry run")

type AccrualSummary struct {
	Candidates int  `json:"candidates"`
	Credited   int  `json:"credited"`
	Skipped    int  `json:"skipped"`
	Failed     int  `json:"failed"`
	DryRun     bool `json:"dryRun"`
}

// RunAccrual credits the monthly increment to every eligible PERMANENT trainer.
// Each trainer is handled in its own transaction; failures are logged and joined.
func (s *Service) RunAccrual(ctx context.Context, opts RunOptions) (AccrualSummary, error) {
	summary := AccrualSummary{DryRun: opts.DryRun}
	today := s.Policy.today(s.now())
	interval := s.accrualIntervalDays()

	ids, err := s.Store.AccrualCandidates(ctx, today.AddDate(0, 0, -interval))
	if err != nil {
		return summary, err
	}
	summary.Candidates = len(ids)

	var errs []error
	for _, trainerID := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		credited, err := s.accrueTrainer(ctx, trainerID, today, interval, opts.DryRun)
		switch {
		case err != nil:
			summary.Failed++
			slog.Warn("leave accrual failed", "trainerId", trainerID, "err", err)
			errs = append(errs, err)
		case credited:
			summary.Credited++
		default:
			summary.Skipped++
		}
	}
	return summary, errors.Join(errs...)
}

func (s *Service) accrueTrainer(ctx context.Context, trainerID string, today time.Time, interval int, dryRun bool) (bool, error) {
	credited := false
	err := s.Store.WithinTrainerTx(ctx, trainerID, func(tx TxStore, ledger *TrainerLedger) error {
		if !accrualDue(*ledger, today, interval) {
			return nil
		}
		now := s.now()
		op := ledgerOp{kind: audit.KindAccrual, actorID: SystemActor, reason: "monthly accrual"}
		for _, lt := range s.Policy.accruingTypes() {
			inc := s.Policy.MonthlyIncrement[lt]
			if _, err := s.mutate(ctx, tx, op, trainerID, lt, now, func(b *Balance) (Mutation, error) {
				return b.Accrue(inc)
			}); err != nil {
				return err
			}
		}

		// Advance by one interval from the previous anchor so delayed runs do not drift.
		next := today
		if ledger.LastIncrementDate != nil {
			next = DateOnly(*ledger.LastIncrementDate).AddDate(0, 0, interval)
		}
		ledger.LastIncrementDate = &next
		if err := tx.SaveLedger(ctx, *ledger); err != nil {
			return err
		}
		credited = true
		if dryRun {
			return errDryRun
		}
		return nil
	})
	if errors.Is(err, errDryRun) {
		return credited, nil
	}
	return credited, err
}

func accrualDue(ledger TrainerLedger, today time.Time, interval int) bool {
	if ledger.Category != CategoryPermanent || ledger.Status != TrainerActive {
		return false
	}
	if ledger.LastIncrementDate == nil {
		return true
	}
	return !DateOnly(*ledger.LastIncrementDate).AddDate(0, 0, interval).After(today)
}

func (s *Service) accrualIntervalDays() int {
	days := int(s.Policy.AccrualInterval / (24 * time.Hour))
	if days < 1 {
		return 1
	}
	return days
}

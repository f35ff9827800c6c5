package leave

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"trainerleave/internal/domain/audit"
)

type RolloverSummary struct {
	Year       int  `json:"year"`
	InWindow   bool `json:"inWindow"`
	Candidates int  `json:"candidates"`
	RolledOver int  `json:"rolledOver"`
	Skipped    int  `json:"skipped"`
	Failed     int  `json:"failed"`
	DryRun     bool `json:"dryRun"`
}

// RunRollover caps unused SICK and CASUAL balances into carry-forward once per calendar year.
// Outside the rollover month it does nothing unless opts.Force is set.
func (s *Service) RunRollover(ctx context.Context, opts RunOptions) (RolloverSummary, error) {
	today := s.Policy.today(s.now())
	summary := RolloverSummary{Year: today.Year(), DryRun: opts.DryRun}
	summary.InWindow = today.Month() == s.Policy.RolloverMonth
	if !summary.InWindow && !opts.Force {
		return summary, nil
	}

	yearStart := time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	ids, err := s.Store.RolloverCandidates(ctx, yearStart)
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
		rolled, err := s.rolloverTrainer(ctx, trainerID, today, opts.DryRun)
		switch {
		case err != nil:
			summary.Failed++
			slog.Warn("leave rollover failed", "trainerId", trainerID, "err", err)
			errs = append(errs, err)
		case rolled:
			summary.RolledOver++
		default:
			summary.Skipped++
		}
	}
	return summary, errors.Join(errs...)
}

func (s *Service) rolloverTrainer(ctx context.Context, trainerID string, today time.Time, dryRun bool) (bool, error) {
	rolled := false
	err := s.Store.WithinTrainerTx(ctx, trainerID, func(tx TxStore, ledger *TrainerLedger) error {
		if !rolloverDue(*ledger, today) {
			return nil
		}
		now := s.now()
		op := ledgerOp{kind: audit.KindRollover, actorID: SystemActor, reason: "annual rollover"}
		for _, lt := range s.Policy.rolloverTypes() {
			opening := s.Policy.RolloverOpening[lt]
			if _, err := s.mutate(ctx, tx, op, trainerID, lt, now, func(b *Balance) (Mutation, error) {
				return b.Rollover(s.Policy.CarryForwardCap, opening), nil
			}); err != nil {
				return err
			}
		}
		ledger.LastRolloverDate = &today
		if err := tx.SaveLedger(ctx, *ledger); err != nil {
			return err
		}
		rolled = true
		if dryRun {
			return errDryRun
		}
		return nil
	})
	if errors.Is(err, errDryRun) {
		return rolled, nil
	}
	return rolled, err
}

func rolloverDue(ledger TrainerLedger, today time.Time) bool {
	if ledger.Category != CategoryPermanent || ledger.Status != TrainerActive {
		return false
	}
	return ledger.LastRolloverDate == nil || ledger.LastRolloverDate.Year() < today.Year()
}

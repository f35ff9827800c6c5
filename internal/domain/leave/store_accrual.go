package leave

import (
	"context"
	"time"
)

func (s *Store) AccrualCandidates(ctx context.Context, cutoff time.Time) ([]string, error) {
	return s.trainerIDs(ctx, `
    SELECT id
    FROM trainers
    WHERE category = $1 AND status = $2
      AND (last_increment_date IS NULL OR last_increment_date <= $3)
    ORDER BY id
  `, string(CategoryPermanent), TrainerActive, DateOnly(cutoff))
}

func (s *Store) RolloverCandidates(ctx context.Context, yearStart time.Time) ([]string, error) {
	return s.trainerIDs(ctx, `
    SELECT id
    FROM trainers
    WHERE category = $1 AND status = $2
      AND (last_rollover_date IS NULL OR last_rollover_date < $3)
    ORDER BY id
  `, string(CategoryPermanent), TrainerActive, DateOnly(yearStart))
}

func (s *Store) trainerIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

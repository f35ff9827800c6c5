package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"trainerleave/internal/platform/querier"
)

type Run struct {
	ID          int64           `json:"id"`
	Job         string          `json:"job"`
	Status      string          `json:"status"`
	DryRun      bool            `json:"dryRun"`
	Trigger     string          `json:"trigger"`
	Details     json.RawMessage `json:"details,omitempty"`
	Error       string          `json:"error,omitempty"`
	StartedAt   time.Time       `json:"startedAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

// PGRecorder keeps run history in job_runs.
type PGRecorder struct {
	DB querier.Querier
}

func (r PGRecorder) Start(ctx context.Context, job string, opts Options) (int64, error) {
	var id int64
	err := r.DB.QueryRow(ctx, `
    INSERT INTO job_runs (job_name, status, dry_run, trigger)
    VALUES ($1,$2,$3,$4)
    RETURNING id
  `, job, StatusRunning, opts.DryRun, opts.Trigger).Scan(&id)
	return id, err
}

func (r PGRecorder) Finish(ctx context.Context, runID int64, status string, details any, runErr error) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		slog.Warn("job details marshal failed", "err", err)
		detailsJSON = []byte("{}")
	}
	errText := ""
	if runErr != nil {
		errText = runErr.Error()
	}
	_, err = r.DB.Exec(ctx, `
    UPDATE job_runs
    SET status = $1, details_json = $2, error = $3, completed_at = now()
    WHERE id = $4
  `, status, detailsJSON, errText, runID)
	return err
}

// ListRuns returns the most recent runs, optionally for one job.
func (r PGRecorder) ListRuns(ctx context.Context, job string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.DB.Query(ctx, `
    SELECT id, job_name, status, dry_run, trigger, details_json, error, started_at, completed_at
    FROM job_runs
    WHERE $1 = '' OR job_name = $1
    ORDER BY started_at DESC, id DESC
    LIMIT $2
  `, job, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Run{}
	for rows.Next() {
		var run Run
		var details []byte
		if err := rows.Scan(&run.ID, &run.Job, &run.Status, &run.DryRun, &run.Trigger, &details, &run.Error, &run.StartedAt, &run.CompletedAt); err != nil {
			return nil, err
		}
		if len(details) > 0 {
			run.Details = json.RawMessage(details)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

package leave

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

const requestColumns = `id, trainer_id, leave_type, from_date, to_date, number_of_days, reason, status,
      COALESCE(approved_by, ''), approved_at, COALESCE(rejected_by, ''), rejected_at,
      COALESCE(cancelled_by, ''), cancelled_at, admin_remarks, applied_on, updated_at`

func scanRequest(row pgx.Row) (LeaveRequest, error) {
	var req LeaveRequest
	err := row.Scan(
		&req.ID,
		&req.TrainerID,
		&req.LeaveType,
		&req.FromDate,
		&req.ToDate,
		&req.NumberOfDays,
		&req.Reason,
		&req.Status,
		&req.ApprovedBy,
		&req.ApprovedAt,
		&req.RejectedBy,
		&req.RejectedAt,
		&req.CancelledBy,
		&req.CancelledAt,
		&req.AdminRemarks,
		&req.AppliedOn,
		&req.UpdatedAt,
	)
	return req, err
}

func scanRequests(rows pgx.Rows) ([]LeaveRequest, error) {
	defer rows.Close()
	var out []LeaveRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (s *Store) GetRequest(ctx context.Context, requestID string) (LeaveRequest, error) {
	req, err := scanRequest(s.DB.QueryRow(ctx, `
    SELECT `+requestColumns+`
    FROM leave_requests
    WHERE id = $1
  `, requestID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LeaveRequest{}, notFound("leave request", requestID)
		}
		return LeaveRequest{}, err
	}
	return req, nil
}

func (s *Store) ListRequests(ctx context.Context, filter RequestFilter, limit, offset int) (RequestPage, error) {
	where := []string{"1=1"}
	var args []any
	add := func(clause string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.TrainerID != "" {
		add("trainer_id = $%d", filter.TrainerID)
	}
	if filter.LeaveType != "" {
		add("leave_type = $%d", string(filter.LeaveType))
	}
	if len(filter.Statuses) > 0 {
		add("status = ANY($%d)", filter.Statuses)
	}
	if !filter.From.IsZero() {
		add("to_date >= $%d", DateOnly(filter.From))
	}
	if !filter.To.IsZero() {
		add("from_date <= $%d", DateOnly(filter.To))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM leave_requests WHERE "+cond, args...).Scan(&total); err != nil {
		return RequestPage{}, err
	}

	query := fmt.Sprintf(`
    SELECT %s
    FROM leave_requests
    WHERE %s
    ORDER BY applied_on DESC, id
    LIMIT $%d OFFSET $%d
  `, requestColumns, cond, len(args)+1, len(args)+2)
	rows, err := s.DB.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return RequestPage{}, err
	}
	requests, err := scanRequests(rows)
	if err != nil {
		return RequestPage{}, err
	}
	if requests == nil {
		requests = []LeaveRequest{}
	}
	return RequestPage{Requests: requests, Total: total, Limit: limit, Offset: offset}, nil
}

func (s *Store) TrainerLedger(ctx context.Context, trainerID string) (TrainerLedger, error) {
	ledger, err := scanLedger(s.DB.QueryRow(ctx, `
    SELECT id, category, status, last_increment_date, last_rollover_date
    FROM trainers
    WHERE id = $1
  `, trainerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return TrainerLedger{}, notFound("trainer", trainerID)
	}
	return ledger, err
}

// lockLedger takes the trainer row lock every ledger transaction starts with.
func lockLedger(ctx context.Context, tx pgx.Tx, trainerID string) (TrainerLedger, error) {
	ledger, err := scanLedger(tx.QueryRow(ctx, `
    SELECT id, category, status, last_increment_date, last_rollover_date
    FROM trainers
    WHERE id = $1
    FOR UPDATE
  `, trainerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return TrainerLedger{}, notFound("trainer", trainerID)
	}
	if err != nil {
		return TrainerLedger{}, fmt.Errorf("lock trainer %s: %w", trainerID, err)
	}
	return ledger, nil
}

func scanLedger(row pgx.Row) (TrainerLedger, error) {
	var l TrainerLedger
	err := row.Scan(&l.TrainerID, &l.Category, &l.Status, &l.LastIncrementDate, &l.LastRolloverDate)
	return l, err
}

func (s *Store) ListBalances(ctx context.Context, trainerID string) ([]Balance, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT trainer_id, leave_type, available, used, carry_forward, unlimited, updated_at
    FROM leave_balances
    WHERE trainer_id = $1
    ORDER BY leave_type
  `, trainerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var balances []Balance
	for rows.Next() {
		var b Balance
		if err := rows.Scan(&b.TrainerID, &b.LeaveType, &b.Available, &b.Used, &b.CarryForward, &b.Unlimited, &b.UpdatedAt); err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

func (t *txStore) LockRequest(ctx context.Context, requestID string) (LeaveRequest, error) {
	req, err := scanRequest(t.tx.QueryRow(ctx, `
    SELECT `+requestColumns+`
    FROM leave_requests
    WHERE id = $1
    FOR UPDATE
  `, requestID))
	if errors.Is(err, pgx.ErrNoRows) {
		return LeaveRequest{}, notFound("leave request", requestID)
	}
	return req, err
}

func (t *txStore) ActiveOverlaps(ctx context.Context, trainerID string, from, to time.Time) ([]LeaveRequest, error) {
	rows, err := t.tx.Query(ctx, `
    SELECT `+requestColumns+`
    FROM leave_requests
    WHERE trainer_id = $1
      AND status = ANY($2)
      AND from_date <= $4
      AND to_date >= $3
    ORDER BY applied_on, id
  `, trainerID, ActiveStatuses, DateOnly(from), DateOnly(to))
	if err != nil {
		return nil, err
	}
	return scanRequests(rows)
}

func (t *txStore) InsertRequest(ctx context.Context, req LeaveRequest) error {
	_, err := t.tx.Exec(ctx, `
    INSERT INTO leave_requests (id, trainer_id, leave_type, from_date, to_date, number_of_days, reason, status, admin_remarks, applied_on, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
  `, req.ID, req.TrainerID, string(req.LeaveType), req.FromDate, req.ToDate, req.NumberOfDays, req.Reason, req.Status, req.AdminRemarks, req.AppliedOn, req.UpdatedAt)
	return translate(err)
}

func (t *txStore) UpdateRequest(ctx context.Context, req LeaveRequest) error {
	tag, err := t.tx.Exec(ctx, `
    UPDATE leave_requests
    SET status = $2,
        approved_by = $3, approved_at = $4,
        rejected_by = $5, rejected_at = $6,
        cancelled_by = $7, cancelled_at = $8,
        admin_remarks = $9, updated_at = $10
    WHERE id = $1
  `, req.ID, req.Status,
		nullIfEmpty(req.ApprovedBy), req.ApprovedAt,
		nullIfEmpty(req.RejectedBy), req.RejectedAt,
		nullIfEmpty(req.CancelledBy), req.CancelledAt,
		req.AdminRemarks, req.UpdatedAt)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("leave request", req.ID)
	}
	return nil
}

func (t *txStore) Balance(ctx context.Context, trainerID string, leaveType LeaveType) (Balance, bool, error) {
	b := Balance{TrainerID: trainerID, LeaveType: leaveType}
	err := t.tx.QueryRow(ctx, `
    SELECT available, used, carry_forward, unlimited, updated_at
    FROM leave_balances
    WHERE trainer_id = $1 AND leave_type = $2
    FOR UPDATE
  `, trainerID, string(leaveType)).Scan(&b.Available, &b.Used, &b.CarryForward, &b.Unlimited, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return b, false, nil
	}
	if err != nil {
		return Balance{}, false, err
	}
	return b, true, nil
}

func (t *txStore) SaveBalance(ctx context.Context, b Balance) error {
	_, err := t.tx.Exec(ctx, `
    INSERT INTO leave_balances (trainer_id, leave_type, available, used, carry_forward, unlimited, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    ON CONFLICT (trainer_id, leave_type) DO UPDATE
    SET available = EXCLUDED.available,
        used = EXCLUDED.used,
        carry_forward = EXCLUDED.carry_forward,
        unlimited = EXCLUDED.unlimited,
        updated_at = EXCLUDED.updated_at
  `, b.TrainerID, string(b.LeaveType), b.Available, b.Used, b.CarryForward, b.Unlimited, b.UpdatedAt)
	return translate(err)
}

func (t *txStore) SaveLedger(ctx context.Context, ledger TrainerLedger) error {
	_, err := t.tx.Exec(ctx, `
    UPDATE trainers
    SET last_increment_date = $2, last_rollover_date = $3, updated_at = now()
    WHERE id = $1
  `, ledger.TrainerID, ledger.LastIncrementDate, ledger.LastRolloverDate)
	return err
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

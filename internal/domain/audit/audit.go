// Package audit keeps the append-only history of leave balance mutations.
package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"trainerleave/internal/platform/querier"
)

const (
	KindApprovalDebit = "APPROVAL_DEBIT"
	KindCancelCredit  = "CANCEL_CREDIT"
	KindAccrual       = "ACCRUAL"
	KindRollover      = "ROLLOVER"
	KindManualEdit    = "MANUAL_EDIT"
)

var ErrInvalidEntry = errors.New("invalid audit entry")

type Entry struct {
	ID                 string          `json:"id"`
	TrainerID          string          `json:"trainerId"`
	LeaveType          string          `json:"leaveType"`
	Kind               string          `json:"kind"`
	Delta              decimal.Decimal `json:"delta"`
	Reason             string          `json:"reason"`
	ActorID            string          `json:"actorId"`
	RequestID          string          `json:"requestId,omitempty"`
	Timestamp          time.Time       `json:"timestamp"`
	ResultingAvailable decimal.Decimal `json:"resultingAvailable"`
}

// Validate checks the fields every stored entry must carry.
func (e Entry) Validate() error {
	var missing []string
	if e.ID == "" {
		missing = append(missing, "id")
	}
	if e.TrainerID == "" {
		missing = append(missing, "trainerId")
	}
	if e.LeaveType == "" {
		missing = append(missing, "leaveType")
	}
	if e.Kind == "" {
		missing = append(missing, "kind")
	}
	if e.ActorID == "" {
		missing = append(missing, "actorId")
	}
	if e.Timestamp.IsZero() {
		missing = append(missing, "timestamp")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidEntry, strings.Join(missing, ", "))
	}
	return nil
}

type Page struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Reader is the read side of the log. Entries have no update or delete path.
type Reader interface {
	ListAudit(ctx context.Context, trainerID string, limit, offset int) ([]Entry, int, error)
}

type Service struct {
	reader Reader
}

func New(reader Reader) *Service {
	return &Service{reader: reader}
}

func (s *Service) History(ctx context.Context, trainerID string, limit, offset int) (Page, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	entries, total, err := s.reader.ListAudit(ctx, trainerID, limit, offset)
	if err != nil {
		return Page{}, err
	}
	if entries == nil {
		entries = []Entry{}
	}
	return Page{Entries: entries, Total: total, Limit: limit, Offset: offset}, nil
}

// Store persists entries in leave_audit_entries.
type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

// Append writes e using q, which must be the caller's transaction.
func (s *Store) Append(ctx context.Context, q querier.Querier, e Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	_, err := q.Exec(ctx, `
    INSERT INTO leave_audit_entries (id, trainer_id, leave_type, kind, delta, reason, actor_id, request_id, created_at, resulting_available)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
  `, e.ID, e.TrainerID, e.LeaveType, e.Kind, e.Delta, e.Reason, e.ActorID, nullIfEmpty(e.RequestID), e.Timestamp, e.ResultingAvailable)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (s *Store) ListAudit(ctx context.Context, trainerID string, limit, offset int) ([]Entry, int, error) {
	var total int
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM leave_audit_entries WHERE trainer_id = $1
  `, trainerID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.DB.Query(ctx, `
    SELECT id, trainer_id, leave_type, kind, delta, reason, actor_id, COALESCE(request_id::text, ''), created_at, resulting_available
    FROM leave_audit_entries
    WHERE trainer_id = $1
    ORDER BY created_at DESC, seq DESC
    LIMIT $2 OFFSET $3
  `, trainerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.TrainerID, &e.LeaveType, &e.Kind, &e.Delta, &e.Reason, &e.ActorID, &e.RequestID, &e.Timestamp, &e.ResultingAvailable); err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

package leave

import (
	"context"
	"time"

	"trainerleave/internal/domain/audit"
)

// StoreAPI is the persistence boundary of the engine.
type StoreAPI interface {
	// WithinTrainerTx runs fn in one transaction holding the trainer's ledger row lock.
	// fn's error rolls everything back; ErrNotFound is returned for an unknown trainer.
	WithinTrainerTx(ctx context.Context, trainerID string, fn func(tx TxStore, ledger *TrainerLedger) error) error

	GetRequest(ctx context.Context, requestID string) (LeaveRequest, error)
	ListRequests(ctx context.Context, filter RequestFilter, limit, offset int) (RequestPage, error)
	TrainerLedger(ctx context.Context, trainerID string) (TrainerLedger, error)
	ListBalances(ctx context.Context, trainerID string) ([]Balance, error)

	// AccrualCandidates lists active PERMANENT trainers whose last increment is on or before cutoff (or unset).
	AccrualCandidates(ctx context.Context, cutoff time.Time) ([]string, error)
	// RolloverCandidates lists active PERMANENT trainers not rolled over since yearStart.
	RolloverCandidates(ctx context.Context, yearStart time.Time) ([]string, error)

	audit.Reader
}

// TxStore is the transactional view handed to WithinTrainerTx callbacks.
type TxStore interface {
	LockRequest(ctx context.Context, requestID string) (LeaveRequest, error)
	ActiveOverlaps(ctx context.Context, trainerID string, from, to time.Time) ([]LeaveRequest, error)
	InsertRequest(ctx context.Context, req LeaveRequest) error
	UpdateRequest(ctx context.Context, req LeaveRequest) error

	// Balance returns the stored row or a zero row when none exists yet.
	Balance(ctx context.Context, trainerID string, leaveType LeaveType) (Balance, bool, error)
	SaveBalance(ctx context.Context, b Balance) error
	SaveLedger(ctx context.Context, ledger TrainerLedger) error

	AppendAudit(ctx context.Context, e audit.Entry) error
}

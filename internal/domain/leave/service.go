package leave

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"trainerleave/internal/domain/audit"
	"trainerleave/internal/domain/auth"
	"trainerleave/internal/requestctx"
)

// Events handed to the Notifier after a committed transition.
const (
	EventApplied        = "leave.applied"
	EventApproved       = "leave.approved"
	EventRejected       = "leave.rejected"
	EventCancelled      = "leave.cancelled"
	EventBalanceUpdated = "leave.balance_updated"
)

const (
	defaultPageLimit     = 20
	maxPageLimit         = 100
	defaultNotifyTimeout = 5 * time.Second
)

// Directory resolves who is told about new and withdrawn requests.
type Directory interface {
	ApproverIDs(ctx context.Context) ([]string, error)
}

type Notifier interface {
	Notify(ctx context.Context, recipients []string, event string, payload map[string]any) error
}

// Recorder receives the outcome of every workflow operation.
type Recorder interface {
	Transition(op, outcome string)
}

type Service struct {
	Store     StoreAPI
	Directory Directory
	Notifier  Notifier
	Metrics   Recorder
	Policy    Policy

	NotifyTimeout time.Duration
	Now           func() time.Time
	NewID         func() string
}

func NewService(store StoreAPI, directory Directory, notifier Notifier, policy Policy) *Service {
	return &Service{
		Store:         store,
		Directory:     directory,
		Notifier:      notifier,
		Policy:        policy,
		NotifyTimeout: defaultNotifyTimeout,
		Now:           time.Now,
		NewID:         uuid.NewString,
	}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *Service) newID() string {
	if s.NewID == nil {
		return uuid.NewString()
	}
	return s.NewID()
}

func (s *Service) guard() OverlapGuard {
	return OverlapGuard{Policy: s.Policy}
}

func (s *Service) ApplyLeave(ctx context.Context, trainerID string, in ApplyInput) (LeaveRequest, error) {
	now := s.now()
	days, err := s.guard().ValidateInput(in, now)
	if err != nil {
		s.record("apply", err)
		return LeaveRequest{}, err
	}

	var created LeaveRequest
	err = s.Store.WithinTrainerTx(ctx, trainerID, func(tx TxStore, ledger *TrainerLedger) error {
		if err := s.guard().Check(ctx, tx, *ledger, in); err != nil {
			return err
		}
		// Soft check only; approval re-verifies against the balance at that time.
		if ledger.Category == CategoryPermanent {
			bal, err := s.loadBalance(ctx, tx, trainerID, in.LeaveType)
			if err != nil {
				return err
			}
			requested := decimal.NewFromInt(int64(days))
			if !bal.CheckAvailable(requested) {
				return &InsufficientBalanceError{TrainerID: trainerID, LeaveType: in.LeaveType, Available: bal.Available, Requested: requested}
			}
		}
		created = LeaveRequest{
			ID:           s.newID(),
			TrainerID:    trainerID,
			LeaveType:    in.LeaveType,
			FromDate:     DateOnly(in.FromDate),
			ToDate:       DateOnly(in.ToDate),
			NumberOfDays: days,
			Reason:       strings.TrimSpace(in.Reason),
			Status:       StatusPending,
			AppliedOn:    now,
			UpdatedAt:    now,
		}
		return tx.InsertRequest(ctx, created)
	})
	s.record("apply", err)
	if err != nil {
		return LeaveRequest{}, err
	}

	s.notify(ctx, s.approvers(ctx), EventApplied, created)
	return created, nil
}

func (s *Service) ApproveLeave(ctx context.Context, requestID, actorID, comments string) (LeaveRequest, error) {
	out, err := s.transition(ctx, requestID, "approve", func(tx TxStore, ledger *TrainerLedger, req *LeaveRequest, now time.Time) error {
		if req.Status != StatusPending {
			return &StateError{RequestID: req.ID, Current: req.Status, Transition: "approve"}
		}
		if ledger.Category == CategoryPermanent {
			days := decimal.NewFromInt(int64(req.NumberOfDays))
			op := ledgerOp{kind: audit.KindApprovalDebit, actorID: actorID, requestID: req.ID, reason: "leave approved"}
			if _, err := s.mutate(ctx, tx, op, req.TrainerID, req.LeaveType, now, func(b *Balance) (Mutation, error) {
				return b.Debit(days)
			}); err != nil {
				return err
			}
		}
		req.Status = StatusApproved
		req.ApprovedBy = actorID
		req.ApprovedAt = &now
		req.AdminRemarks = strings.TrimSpace(comments)
		return nil
	})
	if err != nil {
		return LeaveRequest{}, err
	}
	s.notify(ctx, []string{out.TrainerID}, EventApproved, out)
	return out, nil
}

func (s *Service) RejectLeave(ctx context.Context, requestID, actorID, comments string) (LeaveRequest, error) {
	out, err := s.transition(ctx, requestID, "reject", func(tx TxStore, ledger *TrainerLedger, req *LeaveRequest, now time.Time) error {
		if req.Status != StatusPending {
			return &StateError{RequestID: req.ID, Current: req.Status, Transition: "reject"}
		}
		req.Status = StatusRejected
		req.RejectedBy = actorID
		req.RejectedAt = &now
		req.AdminRemarks = strings.TrimSpace(comments)
		return nil
	})
	if err != nil {
		return LeaveRequest{}, err
	}
	s.notify(ctx, []string{out.TrainerID}, EventRejected, out)
	return out, nil
}

// CancelLeave withdraws a PENDING or APPROVED request. Only the owning trainer or ADMIN/HR may cancel.
func (s *Service) CancelLeave(ctx context.Context, requestID string, actor Actor, comments string) (LeaveRequest, error) {
	existing, err := s.Store.GetRequest(ctx, requestID)
	if err != nil {
		s.record("cancel", err)
		return LeaveRequest{}, err
	}
	if !canCancel(existing, actor) {
		err := fmt.Errorf("%w: %s may not cancel request %s", ErrUnauthorized, actor.ID, requestID)
		s.record("cancel", err)
		return LeaveRequest{}, err
	}

	out, err := s.transition(ctx, requestID, "cancel", func(tx TxStore, ledger *TrainerLedger, req *LeaveRequest, now time.Time) error {
		if !req.Active() {
			return &StateError{RequestID: req.ID, Current: req.Status, Transition: "cancel"}
		}
		if req.Status == StatusApproved && ledger.Category == CategoryPermanent {
			days := decimal.NewFromInt(int64(req.NumberOfDays))
			op := ledgerOp{kind: audit.KindCancelCredit, actorID: actor.ID, requestID: req.ID, reason: "approved leave cancelled"}
			if _, err := s.mutate(ctx, tx, op, req.TrainerID, req.LeaveType, now, func(b *Balance) (Mutation, error) {
				return b.Credit(days)
			}); err != nil {
				return err
			}
		}
		req.Status = StatusCancelled
		req.CancelledBy = actor.ID
		req.CancelledAt = &now
		if c := strings.TrimSpace(comments); c != "" {
			req.AdminRemarks = c
		}
		return nil
	})
	if err != nil {
		return LeaveRequest{}, err
	}

	recipients := []string{out.TrainerID}
	if actor.ID == out.TrainerID {
		recipients = s.approvers(ctx)
	}
	s.notify(ctx, recipients, EventCancelled, out)
	return out, nil
}

func canCancel(req LeaveRequest, actor Actor) bool {
	if actor.ID != "" && actor.ID == req.TrainerID {
		return true
	}
	return actor.Role == auth.RoleAdmin || actor.Role == auth.RoleHR
}

type transitionFunc func(tx TxStore, ledger *TrainerLedger, req *LeaveRequest, now time.Time) error

// transition locks the owning trainer, then the request, and persists whatever apply leaves in req.
func (s *Service) transition(ctx context.Context, requestID, op string, apply transitionFunc) (LeaveRequest, error) {
	head, err := s.Store.GetRequest(ctx, requestID)
	if err != nil {
		s.record(op, err)
		return LeaveRequest{}, err
	}

	var out LeaveRequest
	err = s.Store.WithinTrainerTx(ctx, head.TrainerID, func(tx TxStore, ledger *TrainerLedger) error {
		req, err := tx.LockRequest(ctx, requestID)
		if err != nil {
			return err
		}
		now := s.now()
		if err := apply(tx, ledger, &req, now); err != nil {
			return err
		}
		req.UpdatedAt = now
		if err := tx.UpdateRequest(ctx, req); err != nil {
			return err
		}
		out = req
		return nil
	})
	s.record(op, err)
	return out, err
}

func (s *Service) GetRequest(ctx context.Context, requestID string) (LeaveRequest, error) {
	return s.Store.GetRequest(ctx, requestID)
}

func (s *Service) GetBalance(ctx context.Context, trainerID string) (BalanceSnapshot, error) {
	ledger, err := s.Store.TrainerLedger(ctx, trainerID)
	if err != nil {
		return BalanceSnapshot{}, err
	}
	stored, err := s.Store.ListBalances(ctx, trainerID)
	if err != nil {
		return BalanceSnapshot{}, err
	}

	byType := make(map[LeaveType]Balance, len(stored))
	for _, b := range stored {
		byType[b.LeaveType] = b
	}
	snapshot := BalanceSnapshot{
		TrainerID:         trainerID,
		Category:          ledger.Category,
		LastIncrementDate: ledger.LastIncrementDate,
		LastRolloverDate:  ledger.LastRolloverDate,
	}
	for _, lt := range AllTypes {
		b, ok := byType[lt]
		if !ok {
			if !s.Policy.allows(ledger.Category, lt) {
				continue
			}
			b = s.defaultBalance(trainerID, lt)
		}
		snapshot.Balances = append(snapshot.Balances, b)
	}
	return snapshot, nil
}

// EditBalance overwrites one balance row. It bypasses debit and credit math but is audited like any mutation.
func (s *Service) EditBalance(ctx context.Context, trainerID string, in EditBalanceInput, actorID, reason string) (BalanceSnapshot, error) {
	reason = strings.TrimSpace(reason)
	switch {
	case !in.LeaveType.Valid():
		err := invalid("leaveType", fmt.Sprintf("unknown leave type %q", in.LeaveType))
		s.record("edit_balance", err)
		return BalanceSnapshot{}, err
	case in.Unlimited && in.LeaveType != TypePaid:
		err := invalid("unlimited", "only PAID leave can be unlimited")
		s.record("edit_balance", err)
		return BalanceSnapshot{}, err
	case reason == "":
		err := invalid("reason", "is required")
		s.record("edit_balance", err)
		return BalanceSnapshot{}, err
	}

	err := s.Store.WithinTrainerTx(ctx, trainerID, func(tx TxStore, ledger *TrainerLedger) error {
		if ledger.Category != CategoryPermanent {
			return invalid("trainer", "balances of CONTRACTED trainers are not managed")
		}
		op := ledgerOp{kind: audit.KindManualEdit, actorID: actorID, reason: reason}
		_, err := s.mutate(ctx, tx, op, trainerID, in.LeaveType, s.now(), func(b *Balance) (Mutation, error) {
			return b.Set(in.Available, in.Unlimited)
		})
		return err
	})
	s.record("edit_balance", err)
	if err != nil {
		return BalanceSnapshot{}, err
	}

	snapshot, err := s.GetBalance(ctx, trainerID)
	if err != nil {
		return BalanceSnapshot{}, err
	}
	s.notify(ctx, []string{trainerID}, EventBalanceUpdated, map[string]any{
		"trainerId": trainerID,
		"leaveType": in.LeaveType,
		"balance":   snapshot.Get(in.LeaveType),
	})
	return snapshot, nil
}

func (s *Service) ListPending(ctx context.Context, filter RequestFilter, page Page) (RequestPage, error) {
	filter.Statuses = []string{StatusPending}
	return s.History(ctx, filter, page)
}

func (s *Service) History(ctx context.Context, filter RequestFilter, page Page) (RequestPage, error) {
	if filter.LeaveType != "" && !filter.LeaveType.Valid() {
		return RequestPage{}, invalid("leaveType", fmt.Sprintf("unknown leave type %q", filter.LeaveType))
	}
	for _, st := range filter.Statuses {
		switch st {
		case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		default:
			return RequestPage{}, invalid("status", fmt.Sprintf("unknown status %q", st))
		}
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return RequestPage{}, invalid("to", "must not be before from")
	}
	limit, offset := normalizePage(page)
	return s.Store.ListRequests(ctx, filter, limit, offset)
}

func (s *Service) AuditHistory(ctx context.Context, trainerID string, page Page) (audit.Page, error) {
	if _, err := s.Store.TrainerLedger(ctx, trainerID); err != nil {
		return audit.Page{}, err
	}
	limit, offset := normalizePage(page)
	return audit.New(s.Store).History(ctx, trainerID, limit, offset)
}

func normalizePage(p Page) (int, int) {
	limit, offset := p.Limit, p.Offset
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// ledgerOp describes the audit side of one balance mutation.
type ledgerOp struct {
	kind      string
	actorID   string
	requestID string
	reason    string
}

// mutate applies fn to the stored balance and writes it together with its audit entry.
// It must only run inside WithinTrainerTx.
func (s *Service) mutate(ctx context.Context, tx TxStore, op ledgerOp, trainerID string, leaveType LeaveType, now time.Time, fn func(*Balance) (Mutation, error)) (Balance, error) {
	b, err := s.loadBalance(ctx, tx, trainerID, leaveType)
	if err != nil {
		return Balance{}, err
	}
	m, err := fn(&b)
	if err != nil {
		return Balance{}, err
	}
	b.UpdatedAt = now
	if err := tx.SaveBalance(ctx, b); err != nil {
		return Balance{}, fmt.Errorf("save %s balance: %w", leaveType, err)
	}
	entry := audit.Entry{
		ID:                 s.newID(),
		TrainerID:          trainerID,
		LeaveType:          string(leaveType),
		Kind:               op.kind,
		Delta:              m.Delta,
		Reason:             op.reason,
		ActorID:            op.actorID,
		RequestID:          op.requestID,
		Timestamp:          now,
		ResultingAvailable: m.Resulting,
	}
	if err := tx.AppendAudit(ctx, entry); err != nil {
		return Balance{}, fmt.Errorf("append audit: %w", err)
	}
	return b, nil
}

func (s *Service) loadBalance(ctx context.Context, tx TxStore, trainerID string, leaveType LeaveType) (Balance, error) {
	b, ok, err := tx.Balance(ctx, trainerID, leaveType)
	if err != nil {
		return Balance{}, fmt.Errorf("load %s balance: %w", leaveType, err)
	}
	if !ok {
		return s.defaultBalance(trainerID, leaveType), nil
	}
	return b, nil
}

func (s *Service) defaultBalance(trainerID string, leaveType LeaveType) Balance {
	return Balance{
		TrainerID: trainerID,
		LeaveType: leaveType,
		Unlimited: leaveType == TypePaid && s.Policy.UnlimitedPaidLeave,
	}
}

func (s *Service) approvers(ctx context.Context) []string {
	if s.Directory == nil {
		return nil
	}
	ids, err := s.Directory.ApproverIDs(ctx)
	if err != nil {
		requestctx.Logger(ctx).Warn("leave approver lookup failed", "err", err)
		return nil
	}
	return ids
}

// notify runs after commit. Its failures are logged and never reach the caller.
func (s *Service) notify(ctx context.Context, recipients []string, event string, payload any) {
	if s.Notifier == nil || len(recipients) == 0 {
		return
	}
	timeout := s.NotifyTimeout
	if timeout <= 0 {
		timeout = defaultNotifyTimeout
	}
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	body, ok := payload.(map[string]any)
	if !ok {
		body = map[string]any{"request": payload}
	}
	if err := s.Notifier.Notify(nctx, recipients, event, body); err != nil {
		requestctx.Logger(ctx).Warn("leave notification failed", "event", event, "err", err)
	}
}

func (s *Service) record(op string, err error) {
	if s.Metrics == nil {
		return
	}
	s.Metrics.Transition(op, Outcome(err))
}

// Outcome classifies err into a short label used by metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	default:
		return "error"
	}
}

// Package leavemem is an in-memory leave.StoreAPI for tests.
//
// A transaction works on a copy of the whole state which replaces the committed
// state only when the callback returns nil, so every failure rolls back. One mutex
// serializes transactions, which is stricter than the per-trainer row lock of the
// Postgres store. The overlap rule of the exclusion constraint is enforced on write.
package leavemem

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"trainerleave/internal/domain/audit"
	"trainerleave/internal/domain/leave"
)

type balanceKey struct {
	trainerID string
	leaveType leave.LeaveType
}

type state struct {
	trainers map[string]leave.TrainerLedger
	balances map[balanceKey]leave.Balance
	requests map[string]leave.LeaveRequest
	audit    []audit.Entry
}

func (s *state) clone() *state {
	out := &state{
		trainers: make(map[string]leave.TrainerLedger, len(s.trainers)),
		balances: make(map[balanceKey]leave.Balance, len(s.balances)),
		requests: make(map[string]leave.LeaveRequest, len(s.requests)),
		audit:    append([]audit.Entry(nil), s.audit...),
	}
	for k, v := range s.trainers {
		out.trainers[k] = v
	}
	for k, v := range s.balances {
		out.balances[k] = v
	}
	for k, v := range s.requests {
		out.requests[k] = v
	}
	return out
}

type Store struct {
	mu    sync.Mutex
	state *state

	// FailAppendAudit, when set, is returned by every audit write.
	FailAppendAudit error
	// FailSaveBalance, when set, is returned by every balance write.
	FailSaveBalance error
	// FailTrainer makes transactions for that trainer fail on entry.
	FailTrainer map[string]error
}

func New() *Store {
	return &Store{state: &state{
		trainers: map[string]leave.TrainerLedger{},
		balances: map[balanceKey]leave.Balance{},
		requests: map[string]leave.LeaveRequest{},
	}}
}

// AddTrainer registers a trainer. An empty status defaults to ACTIVE.
func (s *Store) AddTrainer(ledger leave.TrainerLedger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ledger.Status == "" {
		ledger.Status = leave.TrainerActive
	}
	s.state.trainers[ledger.TrainerID] = ledger
}

func (s *Store) PutBalance(b leave.Balance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.balances[balanceKey{b.TrainerID, b.LeaveType}] = b
}

func (s *Store) PutRequest(req leave.LeaveRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.requests[req.ID] = req
}

// Balance returns the committed row, zero-valued if absent.
func (s *Store) Balance(trainerID string, leaveType leave.LeaveType) leave.Balance {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.state.balances[balanceKey{trainerID, leaveType}]; ok {
		return b
	}
	return leave.Balance{TrainerID: trainerID, LeaveType: leaveType}
}

// Entries returns the committed audit entries for a trainer in write order.
func (s *Store) Entries(trainerID string) []audit.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []audit.Entry
	for _, e := range s.state.audit {
		if e.TrainerID == trainerID {
			out = append(out, e)
		}
	}
	return out
}

func (s *Store) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.requests)
}

func (s *Store) WithinTrainerTx(ctx context.Context, trainerID string, fn func(tx leave.TxStore, ledger *leave.TrainerLedger) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.FailTrainer[trainerID]; err != nil {
		return err
	}
	ledger, ok := s.state.trainers[trainerID]
	if !ok {
		return fmt.Errorf("trainer %s: %w", trainerID, leave.ErrNotFound)
	}
	work := s.state.clone()
	if err := fn(&tx{store: s, state: work}, &ledger); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *Store) GetRequest(_ context.Context, requestID string) (leave.LeaveRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.state.requests[requestID]
	if !ok {
		return leave.LeaveRequest{}, fmt.Errorf("leave request %s: %w", requestID, leave.ErrNotFound)
	}
	return req, nil
}

func (s *Store) ListRequests(_ context.Context, filter leave.RequestFilter, limit, offset int) (leave.RequestPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []leave.LeaveRequest
	for _, r := range s.state.requests {
		if matches(r, filter) {
			matched = append(matched, r)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].AppliedOn.Equal(matched[j].AppliedOn) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].AppliedOn.After(matched[j].AppliedOn)
	})
	page := leave.RequestPage{Requests: []leave.LeaveRequest{}, Total: len(matched), Limit: limit, Offset: offset}
	if offset < len(matched) {
		end := min(offset+limit, len(matched))
		page.Requests = append(page.Requests, matched[offset:end]...)
	}
	return page, nil
}

func matches(r leave.LeaveRequest, f leave.RequestFilter) bool {
	if f.TrainerID != "" && r.TrainerID != f.TrainerID {
		return false
	}
	if f.LeaveType != "" && r.LeaveType != f.LeaveType {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, st := range f.Statuses {
			if r.Status == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !f.From.IsZero() && r.ToDate.Before(leave.DateOnly(f.From)) {
		return false
	}
	if !f.To.IsZero() && r.FromDate.After(leave.DateOnly(f.To)) {
		return false
	}
	return true
}

func (s *Store) TrainerLedger(_ context.Context, trainerID string) (leave.TrainerLedger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ledger, ok := s.state.trainers[trainerID]
	if !ok {
		return leave.TrainerLedger{}, fmt.Errorf("trainer %s: %w", trainerID, leave.ErrNotFound)
	}
	return ledger, nil
}

func (s *Store) ListBalances(_ context.Context, trainerID string) ([]leave.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []leave.Balance
	for k, b := range s.state.balances {
		if k.trainerID == trainerID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LeaveType < out[j].LeaveType })
	return out, nil
}

func (s *Store) AccrualCandidates(_ context.Context, cutoff time.Time) ([]string, error) {
	cutoff = leave.DateOnly(cutoff)
	return s.permanentTrainers(func(l leave.TrainerLedger) bool {
		return l.LastIncrementDate == nil || !leave.DateOnly(*l.LastIncrementDate).After(cutoff)
	}), nil
}

func (s *Store) RolloverCandidates(_ context.Context, yearStart time.Time) ([]string, error) {
	yearStart = leave.DateOnly(yearStart)
	return s.permanentTrainers(func(l leave.TrainerLedger) bool {
		return l.LastRolloverDate == nil || leave.DateOnly(*l.LastRolloverDate).Before(yearStart)
	}), nil
}

func (s *Store) permanentTrainers(keep func(leave.TrainerLedger) bool) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, l := range s.state.trainers {
		if l.Category == leave.CategoryPermanent && l.Status == leave.TrainerActive && keep(l) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func (s *Store) ListAudit(_ context.Context, trainerID string, limit, offset int) ([]audit.Entry, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []audit.Entry
	for i := len(s.state.audit) - 1; i >= 0; i-- {
		if s.state.audit[i].TrainerID == trainerID {
			out = append(out, s.state.audit[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	total := len(out)
	if offset >= total {
		return nil, total, nil
	}
	end := min(offset+limit, total)
	return out[offset:end], total, nil
}

type tx struct {
	store *Store
	state *state
}

func (t *tx) LockRequest(_ context.Context, requestID string) (leave.LeaveRequest, error) {
	req, ok := t.state.requests[requestID]
	if !ok {
		return leave.LeaveRequest{}, fmt.Errorf("leave request %s: %w", requestID, leave.ErrNotFound)
	}
	return req, nil
}

func (t *tx) ActiveOverlaps(_ context.Context, trainerID string, from, to time.Time) ([]leave.LeaveRequest, error) {
	var out []leave.LeaveRequest
	for _, r := range t.state.requests {
		if r.TrainerID == trainerID && r.Active() && leave.Overlaps(r.FromDate, r.ToDate, from, to) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (t *tx) InsertRequest(_ context.Context, req leave.LeaveRequest) error {
	if _, ok := t.state.requests[req.ID]; ok {
		return fmt.Errorf("duplicate leave request id %s", req.ID)
	}
	if err := t.checkExclusion(req); err != nil {
		return err
	}
	t.state.requests[req.ID] = req
	return nil
}

func (t *tx) UpdateRequest(_ context.Context, req leave.LeaveRequest) error {
	if _, ok := t.state.requests[req.ID]; !ok {
		return fmt.Errorf("leave request %s: %w", req.ID, leave.ErrNotFound)
	}
	if err := t.checkExclusion(req); err != nil {
		return err
	}
	t.state.requests[req.ID] = req
	return nil
}

// checkExclusion mirrors leave_requests_no_overlap.
func (t *tx) checkExclusion(req leave.LeaveRequest) error {
	if !req.Active() {
		return nil
	}
	for _, r := range t.state.requests {
		if r.ID != req.ID && r.TrainerID == req.TrainerID && r.Active() && leave.Overlaps(r.FromDate, r.ToDate, req.FromDate, req.ToDate) {
			return fmt.Errorf("%w: conflicting key value violates exclusion constraint", leave.ErrConflict)
		}
	}
	return nil
}

func (t *tx) Balance(_ context.Context, trainerID string, leaveType leave.LeaveType) (leave.Balance, bool, error) {
	b, ok := t.state.balances[balanceKey{trainerID, leaveType}]
	if !ok {
		return leave.Balance{TrainerID: trainerID, LeaveType: leaveType}, false, nil
	}
	return b, true, nil
}

func (t *tx) SaveBalance(_ context.Context, b leave.Balance) error {
	if t.store.FailSaveBalance != nil {
		return t.store.FailSaveBalance
	}
	if !b.Unlimited && b.Available.IsNegative() {
		return fmt.Errorf("%w: available must not be negative", leave.ErrInsufficientBalance)
	}
	t.state.balances[balanceKey{b.TrainerID, b.LeaveType}] = b
	return nil
}

func (t *tx) SaveLedger(_ context.Context, ledger leave.TrainerLedger) error {
	if _, ok := t.state.trainers[ledger.TrainerID]; !ok {
		return fmt.Errorf("trainer %s: %w", ledger.TrainerID, leave.ErrNotFound)
	}
	t.state.trainers[ledger.TrainerID] = ledger
	return nil
}

func (t *tx) AppendAudit(_ context.Context, e audit.Entry) error {
	if t.store.FailAppendAudit != nil {
		return t.store.FailAppendAudit
	}
	if err := e.Validate(); err != nil {
		return err
	}
	t.state.audit = append(t.state.audit, e)
	return nil
}

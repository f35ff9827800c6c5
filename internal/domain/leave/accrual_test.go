package leave_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trainerleave/internal/domain/audit"
	"trainerleave/internal/domain/leave"
	"trainerleave/internal/testutil/leavemem"
)

func ptr(t time.Time) *time.Time { return &t }

func newAccrualFixture(now time.Time) (*leave.Service, *leavemem.Store) {
	store := leavemem.New()
	svc := leave.NewService(store, nil, nil, leave.DefaultPolicy())
	svc.Now = func() time.Time { return now }
	return svc, store
}

func TestAccrualCreditsOncePerWindow(t *testing.T) {
	now := time.Date(2025, 5, 20, 2, 0, 0, 0, time.UTC)
	svc, store := newAccrualFixture(now)
	store.AddTrainer(leave.TrainerLedger{TrainerID: "t1", Category: leave.CategoryPermanent, LastIncrementDate: ptr(date("2025-04-15"))})
	store.PutBalance(leave.Balance{TrainerID: "t1", LeaveType: leave.TypeSick, Available: days(2)})

	summary, err := svc.RunAccrual(context.Background(), leave.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Credited)
	assert.True(t, store.Balance("t1", leave.TypeSick).Available.Equal(days(3)))
	assert.True(t, store.Balance("t1", leave.TypeCasual).Available.Equal(days(1)))

	summary, err = svc.RunAccrual(context.Background(), leave.RunOptions{})
	require.NoError(t, err)
	assert.Zero(t, summary.Credited)
	assert.True(t, store.Balance("t1", leave.TypeSick).Available.Equal(days(3)))

	entries := store.Entries("t1")
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, audit.KindAccrual, e.Kind)
		assert.Equal(t, leave.SystemActor, e.ActorID)
		assert.True(t, e.Delta.Equal(days(1)))
	}
}

func TestAccrualAdvancesByIntervalNotNow(t *testing.T) {
	now := time.Date(2025, 5, 20, 2, 0, 0, 0, time.UTC)
	svc, store := newAccrualFixture(now)
	store.AddTrainer(leave.TrainerLedger{TrainerID: "t1", Category: leave.CategoryPermanent, LastIncrementDate: ptr(date("2025-04-10"))})

	_, err := svc.RunAccrual(context.Background(), leave.RunOptions{})
	require.NoError(t, err)

	ledger, err := store.TrainerLedger(context.Background(), "t1")
	require.NoError(t, err)
	require.NotNil(t, ledger.LastIncrementDate)
	assert.Equal(t, date("2025-05-10"), *ledger.LastIncrementDate)
}

func TestAccrualAnchorsFirstRunAtToday(t *testing.T) {
	now := time.Date(2025, 5, 20, 23, 59, 0, 0, time.UTC)
	svc, store := newAccrualFixture(now)
	store.AddTrainer(leave.TrainerLedger{TrainerID: "t1", Category: leave.CategoryPermanent})

	_, err := svc.RunAccrual(context.Background(), leave.RunOptions{})
	require.NoError(t, err)

	ledger, err := store.TrainerLedger(context.Background(), "t1")
	require.NoError(t, err)
	require.NotNil(t, ledger.LastIncrementDate)
	assert.Equal(t, date("2025-05-20"), *ledger.LastIncrementDate)
}

func TestAccrualSkipsContractedAndInactive(t *testing.T) {
	svc, store := newAccrualFixture(time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC))
	store.AddTrainer(leave.TrainerLedger{TrainerID: "contractor", Category: leave.CategoryContracted})
	store.AddTrainer(leave.TrainerLedger{TrainerID: "left", Category: leave.CategoryPermanent, Status: leave.TrainerInactive})

	summary, err := svc.RunAccrual(context.Background(), leave.RunOptions{})
	require.NoError(t, err)
	assert.Zero(t, summary.Candidates)
	assert.Empty(t, store.Entries("contractor"))
	assert.Empty(t, store.Entries("left"))
}

func TestAccrualDryRunChangesNothing(t *testing.T) {
	svc, store := newAccrualFixture(time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC))
	store.AddTrainer(leave.TrainerLedger{TrainerID: "t1", Category: leave.CategoryPermanent})

	summary, err := svc.RunAccrual(context.Background(), leave.RunOptions{DryRun: true})
	require.NoError(t, err)
	assert.True(t, summary.DryRun)
	assert.Equal(t, 1, summary.Credited)
	assert.Empty(t, store.Entries("t1"))

	ledger, err := store.TrainerLedger(context.Background(), "t1")
	require.NoError(t, err)
	assert.Nil(t, ledger.LastIncrementDate)
}

func TestAccrualContinuesPastFailingTrainer(t *testing.T) {
	svc, store := newAccrualFixture(time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC))
	store.AddTrainer(leave.TrainerLedger{TrainerID: "t1", Category: leave.CategoryPermanent})
	store.AddTrainer(leave.TrainerLedger{TrainerID: "t2", Category: leave.CategoryPermanent})
	boom := errors.New("lock timeout")
	store.FailTrainer = map[string]error{"t1": boom}

	summary, err := svc.RunAccrual(context.Background(), leave.RunOptions{})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Credited)
	assert.Len(t, store.Entries("t2"), 2)
}

package recorder

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"YieldFarm/internal/model"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0xa11ce")
	bob   = common.HexToAddress("0xb0b")
	tst   = common.HexToAddress("0x7357")
)

func openRecorder(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func report(at time.Time, rewards ...int64) *model.IssuanceReport {
	rep := &model.IssuanceReport{ID: uuid.New(), At: at, Mode: model.RewardPush, RewardAsset: tst, Total: new(big.Int)}
	users := []common.Address{alice, bob}
	for i, r := range rewards {
		rep.Payouts = append(rep.Payouts, model.Payout{User: users[i], Value: big.NewInt(r * 2), Reward: big.NewInt(r)})
		rep.Total.Add(rep.Total, big.NewInt(r))
	}
	return rep
}

func TestSQLiteRecorder_IssuanceHistory(t *testing.T) {
	r := openRecorder(t)
	ctx := context.Background()
	t0 := time.Unix(1_700_000_000, 0)

	require.NoError(t, r.RecordIssuance(report(t0, 10, 0)))
	require.NoError(t, r.RecordIssuance(report(t0.Add(time.Hour), 30, 5)))

	runs, err := r.RecentIssuances(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "35", runs[0].Total)
	assert.Equal(t, 2, runs[0].Recipients)
	assert.Equal(t, 1, runs[1].Recipients)

	hist, err := r.PayoutHistory(ctx, alice.Hex(), 10)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "30", hist[0].Reward)
	assert.Equal(t, "10", hist[1].Reward)
}

func TestSQLiteRecorder_EventsAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	r, err := NewSQLiteRecorder(path)
	require.NoError(t, err)

	require.NoError(t, r.RecordStake(&model.StakeEvent{Kind: model.EventStake, User: alice, Asset: tst, Amount: big.NewInt(100)}))
	require.NoError(t, r.RecordCredit(&model.CreditApplication{
		ID: uuid.New(), Applicant: alice, Amount: big.NewInt(20), TermPeriods: 4, RatePerPeriod: 2,
		Label: "Project Lone", Timestamp: time.Now(),
	}))
	require.NoError(t, r.RecordConfig(&ConfigEvent{Action: "ALLOW_ASSET", Caller: alice.Hex(), Target: tst.Hex()}))
	require.NoError(t, r.Close())

	// Migrations are applied once; reopening is a no-op.
	r2, err := NewSQLiteRecorder(path)
	require.NoError(t, err)
	defer r2.Close()

	var n int
	require.NoError(t, r2.db.Get(&n, `SELECT COUNT(*) FROM stake_events`))
	assert.Equal(t, 1, n)
	require.NoError(t, r2.db.Get(&n, `SELECT COUNT(*) FROM credit_applications`))
	assert.Equal(t, 1, n)
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	assert.NoError(t, r.RecordIssuance(report(time.Now(), 1)))
	rows, err := r.RecentIssuances(context.Background(), 5)
	assert.NoError(t, err)
	assert.Empty(t, rows)
	assert.NoError(t, r.Close())
}

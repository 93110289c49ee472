package scheduler

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"YieldFarm/internal/model"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	owner = common.HexToAddress("0x0e4e")
	alice = common.HexToAddress("0xa11ce")
)

type fakeFarm struct {
	callers []common.Address
	err     error
	stakers []common.Address
}

func (f *fakeFarm) Owner() common.Address { return owner }

func (f *fakeFarm) IssueRewardTokens(_ context.Context, caller common.Address) (*model.IssuanceReport, error) {
	f.callers = append(f.callers, caller)
	if f.err != nil {
		return nil, f.err
	}
	return &model.IssuanceReport{
		ID:      uuid.New(),
		At:      time.Now(),
		Mode:    model.RewardPush,
		Payouts: []model.Payout{{User: alice, Value: big.NewInt(400000), Reward: big.NewInt(200000)}},
		Total:   big.NewInt(200000),
	}, nil
}

func (f *fakeFarm) Status() model.LedgerStatus {
	return model.LedgerStatus{Owner: owner, StakerCount: len(f.stakers), UpdatedAt: time.Now()}
}

func (f *fakeFarm) Stakers() []common.Address { return f.stakers }

type captureNotifier struct {
	sent []string
}

func (c *captureNotifier) SendWithRetry(_ context.Context, text string, _ int) error {
	c.sent = append(c.sent, text)
	return nil
}

func newTestScheduler(f *fakeFarm) (*Scheduler, *captureNotifier) {
	n := &captureNotifier{}
	return NewScheduler(context.Background(), f, n, Display{RewardSymbol: "RWD"}), n
}

func TestRunIssuanceNow_IssuesAsOwnerAndReports(t *testing.T) {
	f := &fakeFarm{}
	s, n := newTestScheduler(f)

	s.RunIssuanceNow()

	assert.Equal(t, []common.Address{owner}, f.callers)
	require.Len(t, n.sent, 1)
	assert.Contains(t, n.sent[0], "Total paid: 200000 RWD")
}

func TestRunIssuanceNow_ReportsFailure(t *testing.T) {
	f := &fakeFarm{err: errors.New("feed unavailable")}
	s, n := newTestScheduler(f)

	s.RunIssuanceNow()

	require.Len(t, n.sent, 1)
	assert.Contains(t, n.sent[0], "feed unavailable")
}

func TestHandleCommand(t *testing.T) {
	f := &fakeFarm{stakers: []common.Address{alice}}
	s, n := newTestScheduler(f)

	assert.Contains(t, s.HandleCommand("/status"), "Stakers: 1")
	assert.Contains(t, s.HandleCommand("/stakers"), alice.Hex())
	assert.Contains(t, s.HandleCommand("/help"), "/status")

	assert.Contains(t, s.HandleCommand("/issue"), "Available commands")
	assert.Empty(t, f.callers)
	assert.Empty(t, n.sent)
}

func TestRegisterAll_RejectsBadExpression(t *testing.T) {
	s, _ := newTestScheduler(&fakeFarm{})
	assert.Error(t, s.RegisterAll("not a cron"))
	assert.NoError(t, s.RegisterAll("0 0 0 * * *"))
}

package farm

import (
	"context"
	"math/big"
	"time"

	"YieldFarm/internal/metrics"
	"YieldFarm/internal/model"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// ValueOf prices amount of asset in common value units.
func (f *Farm) ValueOf(ctx context.Context, asset common.Address, amount *big.Int) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pricer.ValueOf(ctx, asset, amount)
}

// TotalValue returns the aggregate value of user's stakes.
func (f *Farm) TotalValue(ctx context.Context, user common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.engine.TotalValue(ctx, user)
}

// IssueRewardTokens runs one issuance cycle over every staker. Owner only.
// Calls are not idempotent: each successful call issues again.
func (f *Farm) IssueRewardTokens(ctx context.Context, caller common.Address) (*model.IssuanceReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.requireOwner(caller); err != nil {
		metrics.RecordOperation("issue_rewards", err)
		return nil, err
	}
	start := time.Now()
	rep, err := f.issuer.Issue(ctx)
	metrics.RecordOperation("issue_rewards", err)
	if err != nil {
		zap.S().Errorw("issuance failed", "err", err)
		return nil, err
	}
	metrics.RecordIssuance(time.Since(start), rep.Recipients())
	if err := f.rec.RecordIssuance(rep); err != nil {
		zap.S().Errorw("record issuance", "id", rep.ID, "err", err)
	}
	if rep.Mode == model.RewardPull {
		f.persist()
	}
	zap.S().Infow("rewards issued", "id", rep.ID, "mode", rep.Mode,
		"stakers", len(rep.Payouts), "recipients", rep.Recipients(), "total", rep.Total.String())
	return rep, nil
}

// ClaimRewards pays caller's accrued rewards (pull mode).
func (f *Farm) ClaimRewards(ctx context.Context, caller common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	amount, err := f.issuer.Claim(ctx, caller)
	metrics.RecordOperation("claim_rewards", err)
	if err != nil {
		return nil, err
	}
	f.recordStake(model.EventClaim, caller, f.opts.RewardAsset, amount)
	f.persist()
	zap.S().Infow("rewards claimed", "user", caller.Hex(), "amount", amount.String())
	return amount, nil
}

// PendingReward returns caller's unclaimed rewards.
func (f *Farm) PendingReward(user common.Address) *big.Int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.issuer.Pending(user)
}

// RewardFunding returns the reward asset balance available for payouts.
func (f *Farm) RewardFunding(ctx context.Context) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.issuer.Available(ctx)
}

package farm

import (
	"context"
	"math/big"

	"YieldFarm/internal/metrics"
	"YieldFarm/internal/model"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Stake deposits amount of asset from caller. Caller must have approved the
// custody account for at least amount on the asset's ledger.
func (f *Farm) Stake(ctx context.Context, caller, asset common.Address, amount *big.Int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := f.ledger.Stake(ctx, caller, asset, amount)
	metrics.RecordOperation("stake", err)
	if err != nil {
		return err
	}
	metrics.SetStakers(f.ledger.StakerCount())
	f.recordStake(model.EventStake, caller, asset, amount)
	f.persist()
	zap.S().Infow("staked", "user", caller.Hex(), "asset", asset.Hex(), "amount", amount.String())
	return nil
}

// Unstake withdraws caller's entire balance of asset and returns the amount.
func (f *Farm) Unstake(ctx context.Context, caller, asset common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	amount, err := f.ledger.Unstake(ctx, caller, asset)
	metrics.RecordOperation("unstake", err)
	if err != nil {
		return nil, err
	}
	f.recordStake(model.EventUnstake, caller, asset, amount)
	f.persist()
	zap.S().Infow("unstaked", "user", caller.Hex(), "asset", asset.Hex(), "amount", amount.String())
	return amount, nil
}

func (f *Farm) recordStake(kind model.StakeEventKind, user, asset common.Address, amount *big.Int) {
	if err := f.rec.RecordStake(&model.StakeEvent{Kind: kind, User: user, Asset: asset, Amount: amount}); err != nil {
		zap.S().Errorw("record stake event", "kind", kind, "err", err)
	}
}

// BalanceOf returns user's staked amount of asset.
func (f *Farm) BalanceOf(user, asset common.Address) *big.Int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ledger.BalanceOf(user, asset)
}

// UniqueAssetCount returns how many assets user currently has staked.
func (f *Farm) UniqueAssetCount(user common.Address) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ledger.UniqueAssetCount(user)
}

// StakerAt returns the index-th user to have ever staked.
func (f *Farm) StakerAt(index int) (common.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ledger.StakerAt(index)
}

func (f *Farm) StakerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ledger.StakerCount()
}

// Stakers returns everyone who has ever staked, in first-stake order.
func (f *Farm) Stakers() []common.Address {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ledger.Stakers()
}

// TotalStaked returns the sum of all stakes of asset.
func (f *Farm) TotalStaked(asset common.Address) *big.Int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ledger.TotalStaked(asset)
}

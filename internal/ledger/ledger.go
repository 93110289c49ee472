// Package ledger tracks per-user, per-asset stake balances and the staker set.
package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"

	"YieldFarm/internal/calculator"
	"YieldFarm/internal/model"
	"YieldFarm/internal/token"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrAssetNotAllowed = errors.New("asset not allowed")
	ErrZeroAmount      = errors.New("amount must be positive")
	ErrNoStakeFound    = errors.New("no stake found")
	ErrTransferFailed  = errors.New("transfer failed")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrCustodyStaker   = errors.New("custody account cannot stake")
	ErrOverflow        = calculator.ErrOverflow
)

// AllowList reports whether an asset may be staked.
type AllowList interface {
	IsAllowed(asset common.Address) bool
}

// Ledger holds custody bookkeeping. Each (user, asset) pair moves
// NoStake -> Staked(n) -> Staked(n+m) ... -> NoStake on full unstake.
// It is not safe for concurrent use; the farm serializes access.
type Ledger struct {
	custody common.Address
	allow   AllowList
	tokens  *token.Directory

	balances map[common.Address]map[common.Address]*big.Int
	unique   map[common.Address]int
	totals   map[common.Address]*big.Int

	// stakers is append-only: membership means "has ever staked".
	stakers  []common.Address
	isStaker map[common.Address]int
}

// New creates a Ledger holding deposits in the custody account.
func New(custody common.Address, allow AllowList, tokens *token.Directory) *Ledger {
	return &Ledger{
		custody:  custody,
		allow:    allow,
		tokens:   tokens,
		balances: make(map[common.Address]map[common.Address]*big.Int),
		unique:   make(map[common.Address]int),
		totals:   make(map[common.Address]*big.Int),
		isStaker: make(map[common.Address]int),
	}
}

// Custody returns the account holding staked assets.
func (l *Ledger) Custody() common.Address { return l.custody }

// Stake pulls amount of asset from user into custody. The user must have
// approved the custody account beforehand.
func (l *Ledger) Stake(ctx context.Context, user, asset common.Address, amount *big.Int) error {
	if !l.allow.IsAllowed(asset) {
		return fmt.Errorf("stake %s: %w", asset.Hex(), ErrAssetNotAllowed)
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("stake %s: %w", asset.Hex(), ErrZeroAmount)
	}
	// A custody-to-custody pull moves nothing, so it cannot back a stake.
	if user == l.custody {
		return fmt.Errorf("stake %s: %w", asset.Hex(), ErrCustodyStaker)
	}
	prev := l.balanceOf(user, asset)
	next, err := calculator.CheckedAdd(prev, amount)
	if err != nil {
		return fmt.Errorf("stake %s: balance: %w", asset.Hex(), err)
	}
	total, err := calculator.CheckedAdd(l.totalStaked(asset), amount)
	if err != nil {
		return fmt.Errorf("stake %s: total: %w", asset.Hex(), err)
	}
	tok, err := l.tokens.Lookup(asset)
	if err != nil {
		return fmt.Errorf("stake %s: %w: %v", asset.Hex(), ErrAssetNotAllowed, err)
	}
	if err := tok.TransferFrom(ctx, l.custody, user, l.custody, amount); err != nil {
		return fmt.Errorf("stake %s: %w: %v", asset.Hex(), ErrTransferFailed, err)
	}

	if l.balances[user] == nil {
		l.balances[user] = make(map[common.Address]*big.Int)
	}
	l.balances[user][asset] = next
	l.totals[asset] = total
	if prev.Sign() == 0 {
		l.unique[user]++
	}
	l.enroll(user)
	return nil
}

// Unstake returns the user's full balance of asset. Partial withdrawals are not supported.
func (l *Ledger) Unstake(ctx context.Context, user, asset common.Address) (*big.Int, error) {
	amount := l.balanceOf(user, asset)
	if amount.Sign() == 0 {
		return nil, fmt.Errorf("unstake %s: %w", asset.Hex(), ErrNoStakeFound)
	}
	total, err := calculator.CheckedSub(l.totalStaked(asset), amount)
	if err != nil {
		return nil, fmt.Errorf("unstake %s: total: %w", asset.Hex(), err)
	}
	tok, err := l.tokens.Lookup(asset)
	if err != nil {
		return nil, fmt.Errorf("unstake %s: %w: %v", asset.Hex(), ErrTransferFailed, err)
	}
	if err := tok.Transfer(ctx, l.custody, user, amount); err != nil {
		return nil, fmt.Errorf("unstake %s: %w: %v", asset.Hex(), ErrTransferFailed, err)
	}

	delete(l.balances[user], asset)
	if len(l.balances[user]) == 0 {
		delete(l.balances, user)
	}
	if total.Sign() == 0 {
		delete(l.totals, asset)
	} else {
		l.totals[asset] = total
	}
	l.unique[user]--
	if l.unique[user] == 0 {
		delete(l.unique, user)
	}
	return new(big.Int).Set(amount), nil
}

func (l *Ledger) enroll(user common.Address) {
	if _, ok := l.isStaker[user]; ok {
		return
	}
	l.isStaker[user] = len(l.stakers)
	l.stakers = append(l.stakers, user)
}

func (l *Ledger) balanceOf(user, asset common.Address) *big.Int {
	if b, ok := l.balances[user][asset]; ok {
		return b
	}
	return new(big.Int)
}

func (l *Ledger) totalStaked(asset common.Address) *big.Int {
	if t, ok := l.totals[asset]; ok {
		return t
	}
	return new(big.Int)
}

// BalanceOf returns the staked amount of asset for user.
func (l *Ledger) BalanceOf(user, asset common.Address) *big.Int {
	return new(big.Int).Set(l.balanceOf(user, asset))
}

// UniqueAssetCount returns how many assets the user currently has staked.
func (l *Ledger) UniqueAssetCount(user common.Address) int {
	return l.unique[user]
}

// TotalStaked returns the sum of all stakes of asset.
func (l *Ledger) TotalStaked(asset common.Address) *big.Int {
	return new(big.Int).Set(l.totalStaked(asset))
}

// AssetsOf returns the assets the user has a positive balance in, ordered by address.
func (l *Ledger) AssetsOf(user common.Address) []common.Address {
	out := make([]common.Address, 0, len(l.balances[user]))
	for asset, bal := range l.balances[user] {
		if bal.Sign() > 0 {
			out = append(out, asset)
		}
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i][:], out[j][:]) < 0 })
	return out
}

// StakerAt returns the index-th user to have ever staked.
func (l *Ledger) StakerAt(index int) (common.Address, error) {
	if index < 0 || index >= len(l.stakers) {
		return common.Address{}, fmt.Errorf("staker %d of %d: %w", index, len(l.stakers), ErrIndexOutOfRange)
	}
	return l.stakers[index], nil
}

// IsStaker reports whether user has ever staked.
func (l *Ledger) IsStaker(user common.Address) bool {
	_, ok := l.isStaker[user]
	return ok
}

func (l *Ledger) StakerCount() int { return len(l.stakers) }

// Stakers returns the staker set in insertion order.
func (l *Ledger) Stakers() []common.Address {
	return append([]common.Address(nil), l.stakers...)
}

// Records returns every nonzero stake, grouped by staker in insertion order.
func (l *Ledger) Records() []model.StakeRecord {
	var out []model.StakeRecord
	for _, user := range l.stakers {
		for _, asset := range l.AssetsOf(user) {
			out = append(out, model.StakeRecord{User: user, Asset: asset, Amount: l.BalanceOf(user, asset)})
		}
	}
	return out
}

// Restore rebuilds the ledger from persisted records and staker order.
func (l *Ledger) Restore(stakers []common.Address, records []model.StakeRecord) error {
	l.balances = make(map[common.Address]map[common.Address]*big.Int)
	l.unique = make(map[common.Address]int)
	l.totals = make(map[common.Address]*big.Int)
	l.stakers = nil
	l.isStaker = make(map[common.Address]int)

	for _, u := range stakers {
		l.enroll(u)
	}
	for _, r := range records {
		if r.Amount == nil || r.Amount.Sign() <= 0 {
			continue
		}
		if _, dup := l.balances[r.User][r.Asset]; dup {
			return fmt.Errorf("restore: duplicate record %s/%s", r.User.Hex(), r.Asset.Hex())
		}
		total, err := calculator.CheckedAdd(l.totalStaked(r.Asset), r.Amount)
		if err != nil {
			return fmt.Errorf("restore: %w", err)
		}
		if l.balances[r.User] == nil {
			l.balances[r.User] = make(map[common.Address]*big.Int)
		}
		l.balances[r.User][r.Asset] = new(big.Int).Set(r.Amount)
		l.totals[r.Asset] = total
		l.unique[r.User]++
		l.enroll(r.User)
	}
	return nil
}

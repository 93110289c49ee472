// Package valuation aggregates a user's multi-asset stake into one common-unit value.
package valuation

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"YieldFarm/internal/calculator"
	"YieldFarm/internal/oracle"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// MissingFeedPolicy decides how an asset without a bound price feed is valued.
type MissingFeedPolicy int

const (
	// MissingFeedZero counts the asset as worth nothing.
	MissingFeedZero MissingFeedPolicy = iota
	// MissingFeedStrict aborts the valuation with oracle.ErrNoPriceFeed.
	MissingFeedStrict
)

func (p MissingFeedPolicy) String() string {
	if p == MissingFeedStrict {
		return "strict"
	}
	return "zero"
}

// ParsePolicy accepts "zero" (default for "") or "strict".
func ParsePolicy(s string) (MissingFeedPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "zero":
		return MissingFeedZero, nil
	case "strict":
		return MissingFeedStrict, nil
	default:
		return 0, fmt.Errorf("unknown missing feed policy %q", s)
	}
}

// Holdings is the read side of the staking ledger.
type Holdings interface {
	AssetsOf(user common.Address) []common.Address
	BalanceOf(user, asset common.Address) *big.Int
}

// Pricer converts an asset amount into common value units.
type Pricer interface {
	ValueOf(ctx context.Context, asset common.Address, amount *big.Int) (*big.Int, error)
}

// Engine sums the value of every asset a user has staked.
type Engine struct {
	holdings Holdings
	pricer   Pricer
	policy   MissingFeedPolicy
}

// NewEngine creates an Engine.
func NewEngine(h Holdings, p Pricer, policy MissingFeedPolicy) *Engine {
	return &Engine{holdings: h, pricer: p, policy: policy}
}

func (e *Engine) Policy() MissingFeedPolicy { return e.policy }

// TotalValue returns the common-unit value of all of user's stakes.
func (e *Engine) TotalValue(ctx context.Context, user common.Address) (*big.Int, error) {
	sum := new(big.Int)
	for _, asset := range e.holdings.AssetsOf(user) {
		bal := e.holdings.BalanceOf(user, asset)
		if bal.Sign() == 0 {
			continue
		}
		v, err := e.pricer.ValueOf(ctx, asset, bal)
		if errors.Is(err, oracle.ErrNoPriceFeed) && e.policy == MissingFeedZero {
			zap.S().Debugw("asset has no price feed, valued at zero", "user", user.Hex(), "asset", asset.Hex())
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("value of %s: %w", user.Hex(), err)
		}
		if sum, err = calculator.CheckedAdd(sum, v); err != nil {
			return nil, fmt.Errorf("value of %s: %w", user.Hex(), err)
		}
	}
	return sum, nil
}

package oracle

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"YieldFarm/internal/calculator"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrNoPriceFeed     = errors.New("no price feed")
	ErrFeedUnavailable = errors.New("price feed unavailable")
	ErrOverflow        = calculator.ErrOverflow
)

// DefaultCommonDecimals is the precision of the common Value unit.
const DefaultCommonDecimals = 18

// FeedBindings exposes the registry reads the adapter depends on.
type FeedBindings interface {
	PriceFeedOf(asset common.Address) (common.Address, bool)
	Decimals(asset common.Address) (uint8, bool)
}

// Adapter converts asset amounts into the common Value unit.
type Adapter struct {
	bindings       FeedBindings
	feeds          *Directory
	commonDecimals uint8
}

// NewAdapter creates an Adapter producing values with commonDecimals precision.
func NewAdapter(bindings FeedBindings, feeds *Directory, commonDecimals uint8) *Adapter {
	return &Adapter{bindings: bindings, feeds: feeds, commonDecimals: commonDecimals}
}

// CommonDecimals returns the precision of produced values.
func (a *Adapter) CommonDecimals() uint8 { return a.commonDecimals }

// ValueOf prices amount of asset:
// value = amount * price / 10^(assetDecimals + feedDecimals - commonDecimals).
func (a *Adapter) ValueOf(ctx context.Context, asset common.Address, amount *big.Int) (*big.Int, error) {
	handle, ok := a.bindings.PriceFeedOf(asset)
	if !ok {
		return nil, fmt.Errorf("%s: %w", asset.Hex(), ErrNoPriceFeed)
	}
	assetDecimals, ok := a.bindings.Decimals(asset)
	if !ok {
		return nil, fmt.Errorf("%s: %w", asset.Hex(), ErrNoPriceFeed)
	}
	feed, ok := a.feeds.Lookup(handle)
	if !ok {
		return nil, fmt.Errorf("%s: feed %s not reachable: %w", asset.Hex(), handle.Hex(), ErrFeedUnavailable)
	}
	ans, err := feed.LatestAnswer(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", asset.Hex(), ErrFeedUnavailable, err)
	}
	if ans.Price == nil || ans.Price.Sign() <= 0 {
		return nil, fmt.Errorf("%s: non-positive price: %w", asset.Hex(), ErrFeedUnavailable)
	}
	v, err := calculator.Rescale(amount, ans.Price, assetDecimals, ans.Decimals, a.commonDecimals)
	if err != nil {
		return nil, fmt.Errorf("%s: value: %w", asset.Hex(), err)
	}
	return v, nil
}

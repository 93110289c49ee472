package farm

import (
	"fmt"

	"YieldFarm/internal/metrics"
	"YieldFarm/internal/model"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// resolveAsset reads the asset's precision from its external ledger.
func (f *Farm) resolveAsset(addr common.Address) (model.Asset, error) {
	tok, err := f.tokens.Lookup(addr)
	if err != nil {
		return model.Asset{}, fmt.Errorf("asset %s: %w", addr.Hex(), err)
	}
	return model.Asset{Address: addr, Symbol: tok.Symbol(), Decimals: tok.Decimals()}, nil
}

// AddAllowedAsset makes asset stakeable. Owner only; re-adding is a no-op.
func (f *Farm) AddAllowedAsset(caller, asset common.Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	err := f.addAllowedAsset(caller, asset)
	metrics.RecordOperation("add_allowed_asset", err)
	return err
}

func (f *Farm) addAllowedAsset(caller, addr common.Address) error {
	if err := f.requireOwner(caller); err != nil {
		return err
	}
	asset, err := f.resolveAsset(addr)
	if err != nil {
		return err
	}
	if !f.registry.AddAllowed(asset) {
		return nil
	}
	f.recordConfig("ALLOW_ASSET", caller, addr, asset.Symbol)
	f.persist()
	zap.S().Infow("asset allowed", "asset", addr.Hex(), "symbol", asset.Symbol, "decimals", asset.Decimals)
	return nil
}

// SetPriceFeed binds feed to asset, replacing any earlier binding. Owner only.
// The asset does not need to be allowed.
func (f *Farm) SetPriceFeed(caller, asset, feed common.Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	err := f.setPriceFeed(caller, asset, feed)
	metrics.RecordOperation("set_price_feed", err)
	return err
}

func (f *Farm) setPriceFeed(caller, addr, feed common.Address) error {
	if err := f.requireOwner(caller); err != nil {
		return err
	}
	if feed == (common.Address{}) {
		return fmt.Errorf("price feed: %w", ErrZeroAddress)
	}
	asset, err := f.resolveAsset(addr)
	if err != nil {
		return err
	}
	f.registry.SetPriceFeed(asset, feed)
	f.recordConfig("SET_FEED", caller, addr, feed.Hex())
	f.persist()
	zap.S().Infow("price feed set", "asset", addr.Hex(), "feed", feed.Hex())
	return nil
}

func (f *Farm) IsAllowed(asset common.Address) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.registry.IsAllowed(asset)
}

// PriceFeedOf returns the feed bound to asset, if any.
func (f *Farm) PriceFeedOf(asset common.Address) (common.Address, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.registry.PriceFeedOf(asset)
}

// Assets lists registry rows in registration order.
func (f *Farm) Assets() []model.AssetEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.registry.Entries()
}

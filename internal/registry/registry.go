// Package registry holds the allow-list of stakeable assets and their price-feed bindings.
package registry

import (
	"YieldFarm/internal/model"

	"github.com/ethereum/go-ethereum/common"
)

// Registry is not safe for concurrent use; the farm serializes access.
type Registry struct {
	entries map[common.Address]*model.AssetEntry
	order   []common.Address
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[common.Address]*model.AssetEntry)}
}

func (r *Registry) entry(asset model.Asset) *model.AssetEntry {
	e, ok := r.entries[asset.Address]
	if !ok {
		e = &model.AssetEntry{Asset: asset}
		r.entries[asset.Address] = e
		r.order = append(r.order, asset.Address)
	}
	return e
}

// AddAllowed marks asset as stakeable. It reports false when the asset was already allowed.
func (r *Registry) AddAllowed(asset model.Asset) bool {
	e := r.entry(asset)
	if e.Allowed {
		return false
	}
	e.Allowed = true
	return true
}

// SetPriceFeed binds feed to asset, overwriting any prior binding. The asset need not be allowed.
func (r *Registry) SetPriceFeed(asset model.Asset, feed common.Address) {
	e := r.entry(asset)
	f := feed
	e.PriceFeed = &f
}

func (r *Registry) IsAllowed(asset common.Address) bool {
	e, ok := r.entries[asset]
	return ok && e.Allowed
}

func (r *Registry) PriceFeedOf(asset common.Address) (common.Address, bool) {
	e, ok := r.entries[asset]
	if !ok || e.PriceFeed == nil {
		return common.Address{}, false
	}
	return *e.PriceFeed, true
}

func (r *Registry) Decimals(asset common.Address) (uint8, bool) {
	e, ok := r.entries[asset]
	if !ok {
		return 0, false
	}
	return e.Asset.Decimals, true
}

// Entries returns copies of all rows in registration order.
func (r *Registry) Entries() []model.AssetEntry {
	out := make([]model.AssetEntry, 0, len(r.order))
	for _, addr := range r.order {
		e := *r.entries[addr]
		if e.PriceFeed != nil {
			f := *e.PriceFeed
			e.PriceFeed = &f
		}
		out = append(out, e)
	}
	return out
}

// Restore replaces the registry contents.
func (r *Registry) Restore(entries []model.AssetEntry) {
	r.entries = make(map[common.Address]*model.AssetEntry, len(entries))
	r.order = r.order[:0]
	for _, e := range entries {
		row := e
		r.entries[e.Asset.Address] = &row
		r.order = append(r.order, e.Asset.Address)
	}
}

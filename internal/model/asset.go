package model

import "github.com/ethereum/go-ethereum/common"

// Asset is a fungible token known to the registry.
type Asset struct {
	Address  common.Address `json:"address"`
	Symbol   string         `json:"symbol,omitempty"`
	Decimals uint8          `json:"decimals"`
}

// AssetEntry is one registry row. Allow-listing and feed binding are independent.
type AssetEntry struct {
	Asset     Asset           `json:"asset"`
	Allowed   bool            `json:"allowed"`
	PriceFeed *common.Address `json:"price_feed,omitempty"`
}

package model

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Snapshot is the persisted ledger state.
type Snapshot struct {
	Owner     common.Address              `json:"owner"`
	Assets    []AssetEntry                `json:"assets"`
	Stakes    []StakeRecord               `json:"stakes"`
	Stakers   []common.Address            `json:"stakers"`
	Credit    []CreditApplication         `json:"credit"`
	Pending   map[common.Address]*big.Int `json:"pending,omitempty"`
	UpdatedAt time.Time                   `json:"updated_at"`
}

// LedgerStatus is a point-in-time summary used by reports.
type LedgerStatus struct {
	Owner        common.Address
	RewardAsset  common.Address
	Mode         RewardMode
	Assets       []AssetEntry
	StakerCount  int
	TotalStaked  map[common.Address]*big.Int
	Applications int
	UpdatedAt    time.Time
}

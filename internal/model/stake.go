package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// StakeRecord is a user's staked amount of one asset, in asset-native units.
type StakeRecord struct {
	User   common.Address `json:"user"`
	Asset  common.Address `json:"asset"`
	Amount *big.Int       `json:"amount"`
}

// StakeEvent describes a completed stake or unstake.
type StakeEvent struct {
	Kind   StakeEventKind
	User   common.Address
	Asset  common.Address
	Amount *big.Int
}

// StakeEventKind distinguishes deposits from withdrawals.
type StakeEventKind string

const (
	EventStake   StakeEventKind = "STAKE"
	EventUnstake StakeEventKind = "UNSTAKE"
	EventClaim   StakeEventKind = "CLAIM"
)

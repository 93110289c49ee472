package model

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// RewardMode selects how issued rewards reach stakers.
type RewardMode string

const (
	// RewardPush transfers rewards to every staker during issuance.
	RewardPush RewardMode = "push"
	// RewardPull accrues rewards that stakers later claim.
	RewardPull RewardMode = "pull"
)

// Payout is one staker's share of an issuance run.
type Payout struct {
	User   common.Address `json:"user"`
	Value  *big.Int       `json:"value"`
	Reward *big.Int       `json:"reward"`
}

// IssuanceReport summarizes a completed issuance run.
type IssuanceReport struct {
	ID          uuid.UUID      `json:"id"`
	At          time.Time      `json:"at"`
	Mode        RewardMode     `json:"mode"`
	RewardAsset common.Address `json:"reward_asset"`
	Payouts     []Payout       `json:"payouts"`
	Total       *big.Int       `json:"total"`
}

// Recipients counts payouts with a nonzero reward.
func (r *IssuanceReport) Recipients() int {
	n := 0
	for _, p := range r.Payouts {
		if p.Reward.Sign() > 0 {
			n++
		}
	}
	return n
}

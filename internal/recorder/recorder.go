package recorder

import (
	"context"

	"YieldFarm/internal/model"
)

// ConfigEvent records an owner configuration change.
type ConfigEvent struct {
	Action string // "ALLOW_ASSET", "SET_FEED", "TRANSFER_OWNERSHIP"
	Caller string
	Target string
	Value  string
}

// IssuanceRow is one persisted issuance run.
type IssuanceRow struct {
	ID          string `db:"id" json:"id"`
	Timestamp   int64  `db:"timestamp" json:"timestamp"`
	Mode        string `db:"mode" json:"mode"`
	RewardAsset string `db:"reward_asset" json:"reward_asset"`
	Total       string `db:"total" json:"total"`
	Recipients  int    `db:"recipients" json:"recipients"`
}

// PayoutRow is one staker's share of a persisted issuance run.
type PayoutRow struct {
	IssuanceID string `db:"issuance_id" json:"issuance_id"`
	Timestamp  int64  `db:"timestamp" json:"timestamp"`
	User       string `db:"user_address" json:"user"`
	Value      string `db:"value" json:"value"`
	Reward     string `db:"reward" json:"reward"`
}

// Recorder persists ledger history for reporting. It is never read back into ledger state.
type Recorder interface {
	RecordStake(evt *model.StakeEvent) error
	RecordIssuance(rep *model.IssuanceReport) error
	RecordCredit(app *model.CreditApplication) error
	RecordConfig(evt *ConfigEvent) error
	RecentIssuances(ctx context.Context, limit int) ([]IssuanceRow, error)
	PayoutHistory(ctx context.Context, user string, limit int) ([]PayoutRow, error)
	Close() error
}

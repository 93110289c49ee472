package recorder

import (
	"context"

	"YieldFarm/internal/model"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordStake(_ *model.StakeEvent) error         { return nil }
func (n *NoopRecorder) RecordIssuance(_ *model.IssuanceReport) error  { return nil }
func (n *NoopRecorder) RecordCredit(_ *model.CreditApplication) error { return nil }
func (n *NoopRecorder) RecordConfig(_ *ConfigEvent) error             { return nil }
func (n *NoopRecorder) RecentIssuances(context.Context, int) ([]IssuanceRow, error) {
	return nil, nil
}
func (n *NoopRecorder) PayoutHistory(context.Context, string, int) ([]PayoutRow, error) {
	return nil, nil
}
func (n *NoopRecorder) Close() error { return nil }

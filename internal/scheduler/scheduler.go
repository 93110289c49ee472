package scheduler

import (
	"context"
	"fmt"

	"YieldFarm/internal/model"
	"YieldFarm/internal/notifier"

	"github.com/ethereum/go-ethereum/common"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Farm is the part of the ledger the scheduler drives.
type Farm interface {
	Owner() common.Address
	IssueRewardTokens(ctx context.Context, caller common.Address) (*model.IssuanceReport, error)
	Status() model.LedgerStatus
	Stakers() []common.Address
}

// Display describes how reward and value amounts are rendered in reports.
type Display struct {
	RewardSymbol   string
	RewardDecimals uint8
	ValueDecimals  uint8
}

// Scheduler runs the issuance cadence and answers operator commands.
type Scheduler struct {
	Cron     *cron.Cron
	Farm     Farm
	Notifier notifier.Notifier
	Display  Display
	Ctx      context.Context
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, f Farm, n notifier.Notifier, d Display) *Scheduler {
	if n == nil {
		n = notifier.NoopNotifier{}
	}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Farm:     f,
		Notifier: n,
		Display:  d,
		Ctx:      ctx,
	}
}

// RegisterAll registers the issuance task.
func (s *Scheduler) RegisterAll(issuanceCron string) error {
	if _, err := s.Cron.AddFunc(issuanceCron, s.issuanceTask); err != nil {
		return fmt.Errorf("register issuance task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	zap.S().Info("scheduler started")
}

// Stop stops the cron scheduler and waits for a running task to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	zap.S().Info("scheduler stopped")
}

// RunIssuanceNow executes the issuance task immediately (manual trigger / RUN_ON_START).
func (s *Scheduler) RunIssuanceNow() {
	s.issuanceTask()
}

// issuanceTask issues rewards on the owner's behalf. The daemon holds the
// owner identity, so scheduled runs pass the authorization check like any
// owner call would.
func (s *Scheduler) issuanceTask() {
	zap.S().Info("running issuance task")
	rep, err := s.Farm.IssueRewardTokens(s.Ctx, s.Farm.Owner())
	if err != nil {
		zap.S().Errorw("issuance task", "err", err)
		s.trySend(fmt.Sprintf("❌ Reward issuance failed: %v", err))
		return
	}
	s.trySend(notifier.FormatIssuanceReport(rep, s.Display.RewardSymbol, s.Display.RewardDecimals, s.Display.ValueDecimals))
}

// HandleCommand processes a read-only user command and returns a reply.
// Issuance is owner-only and is not reachable from chat.
func (s *Scheduler) HandleCommand(command string) string {
	switch command {
	case "/status":
		st := s.Farm.Status()
		return notifier.FormatLedgerStatus(&st)
	case "/stakers":
		return notifier.FormatStakers(s.Farm.Stakers())
	default:
		return "Available commands:\n• /status\n• /stakers"
	}
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		zap.S().Errorw("send notification", "err", err)
	}
}

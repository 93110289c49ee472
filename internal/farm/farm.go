// Package farm is the root of the staking ledger. It owns the configuration
// authority and serializes every public operation so each one runs to
// completion with no interleaving and no partially applied state.
package farm

import (
	"fmt"
	"iter"
	"math/big"
	"slices"
	"sync"
	"time"

	"YieldFarm/internal/credit"
	"YieldFarm/internal/ledger"
	"YieldFarm/internal/metrics"
	"YieldFarm/internal/model"
	"YieldFarm/internal/oracle"
	"YieldFarm/internal/recorder"
	"YieldFarm/internal/registry"
	"YieldFarm/internal/reward"
	"YieldFarm/internal/token"
	"YieldFarm/internal/valuation"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Options configures a Farm.
type Options struct {
	Owner   common.Address
	Custody common.Address

	RewardAsset      common.Address
	ConversionFactor *big.Int
	RewardMode       model.RewardMode

	CommonDecimals    uint8
	MissingFeedPolicy valuation.MissingFeedPolicy

	// RequireActiveStake rejects credit applications from users with no stake.
	RequireActiveStake bool

	// StateFile, when set, receives a JSON snapshot after every successful mutation.
	StateFile string
}

// Farm is the staking ledger.
type Farm struct {
	mu    sync.Mutex
	owner common.Address
	opts  Options

	tokens   *token.Directory
	feeds    *oracle.Directory
	registry *registry.Registry
	ledger   *ledger.Ledger
	pricer   *oracle.Adapter
	engine   *valuation.Engine
	issuer   *reward.Issuer
	credit   *credit.Registry
	rec      recorder.Recorder
}

// New builds a Farm, restoring state from opts.StateFile when it exists.
// A nil recorder disables reporting.
func New(opts Options, tokens *token.Directory, feeds *oracle.Directory, rec recorder.Recorder) (*Farm, error) {
	if opts.Owner == (common.Address{}) {
		return nil, fmt.Errorf("owner: %w", ErrZeroAddress)
	}
	if opts.Custody == (common.Address{}) {
		return nil, fmt.Errorf("custody: %w", ErrZeroAddress)
	}
	if opts.CommonDecimals == 0 {
		opts.CommonDecimals = oracle.DefaultCommonDecimals
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}

	f := &Farm{
		owner:    opts.Owner,
		opts:     opts,
		tokens:   tokens,
		feeds:    feeds,
		registry: registry.New(),
		credit:   credit.New(),
		rec:      rec,
	}
	f.ledger = ledger.New(opts.Custody, f.registry, tokens)
	f.pricer = oracle.NewAdapter(f.registry, feeds, opts.CommonDecimals)
	f.engine = valuation.NewEngine(f.ledger, f.pricer, opts.MissingFeedPolicy)

	issuer, err := reward.NewIssuer(reward.Config{
		RewardAsset:      opts.RewardAsset,
		ConversionFactor: opts.ConversionFactor,
		Mode:             opts.RewardMode,
	}, opts.Custody, tokens, f.engine, f.ledger)
	if err != nil {
		return nil, err
	}
	f.issuer = issuer

	if opts.StateFile != "" {
		snap, err := LoadState(opts.StateFile)
		if err != nil {
			return nil, fmt.Errorf("load state: %w", err)
		}
		if snap != nil {
			if err := f.restore(snap); err != nil {
				return nil, fmt.Errorf("restore state: %w", err)
			}
			zap.S().Infow("ledger state restored", "file", opts.StateFile,
				"stakers", f.ledger.StakerCount(), "applications", f.credit.Len())
		}
	}
	metrics.SetStakers(f.ledger.StakerCount())
	return f, nil
}

func (f *Farm) restore(snap *model.Snapshot) error {
	if snap.Owner != (common.Address{}) {
		f.owner = snap.Owner
	}
	f.registry.Restore(snap.Assets)
	if err := f.ledger.Restore(snap.Stakers, snap.Stakes); err != nil {
		return err
	}
	f.credit.Restore(snap.Credit)
	f.issuer.RestorePending(snap.Pending)
	return nil
}

// Snapshot returns the full persisted state.
func (f *Farm) Snapshot() *model.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot()
}

func (f *Farm) snapshot() *model.Snapshot {
	return &model.Snapshot{
		Owner:   f.owner,
		Assets:  f.registry.Entries(),
		Stakes:  f.ledger.Records(),
		Stakers: f.ledger.Stakers(),
		Credit:  slices.Collect(f.credit.All()),
		Pending: f.issuer.PendingAll(),
	}
}

// persist saves state after a successful mutation. In-memory state stays
// authoritative if the write fails.
func (f *Farm) persist() {
	if f.opts.StateFile == "" {
		return
	}
	if err := SaveState(f.opts.StateFile, f.snapshot()); err != nil {
		zap.S().Errorw("failed to save ledger state", "file", f.opts.StateFile, "err", err)
	}
}

func (f *Farm) requireOwner(caller common.Address) error {
	if caller != f.owner {
		return fmt.Errorf("caller %s is not the owner: %w", caller.Hex(), ErrUnauthorized)
	}
	return nil
}

// Owner returns the current configuration authority.
func (f *Farm) Owner() common.Address {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.owner
}

// Custody returns the account that holds staked assets and the reward pool.
func (f *Farm) Custody() common.Address { return f.opts.Custody }

// RewardAsset returns the asset rewards are paid in.
func (f *Farm) RewardAsset() common.Address { return f.opts.RewardAsset }

// TransferOwnership hands configuration authority to newOwner.
func (f *Farm) TransferOwnership(caller, newOwner common.Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	err := f.transferOwnership(caller, newOwner)
	metrics.RecordOperation("transfer_ownership", err)
	return err
}

func (f *Farm) transferOwnership(caller, newOwner common.Address) error {
	if err := f.requireOwner(caller); err != nil {
		return err
	}
	if newOwner == (common.Address{}) {
		return fmt.Errorf("new owner: %w", ErrZeroAddress)
	}
	f.owner = newOwner
	f.recordConfig("TRANSFER_OWNERSHIP", caller, newOwner, "")
	f.persist()
	zap.S().Infow("ownership transferred", "from", caller.Hex(), "to", newOwner.Hex())
	return nil
}

func (f *Farm) recordConfig(action string, caller, target common.Address, value string) {
	if err := f.rec.RecordConfig(&recorder.ConfigEvent{
		Action: action, Caller: caller.Hex(), Target: target.Hex(), Value: value,
	}); err != nil {
		zap.S().Errorw("record config event", "action", action, "err", err)
	}
}

// Status summarizes the ledger for reports.
func (f *Farm) Status() model.LedgerStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := model.LedgerStatus{
		Owner:        f.owner,
		RewardAsset:  f.opts.RewardAsset,
		Mode:         f.issuer.Config().Mode,
		Assets:       f.registry.Entries(),
		StakerCount:  f.ledger.StakerCount(),
		TotalStaked:  make(map[common.Address]*big.Int),
		Applications: f.credit.Len(),
		UpdatedAt:    time.Now(),
	}
	for _, e := range st.Assets {
		st.TotalStaked[e.Asset.Address] = f.ledger.TotalStaked(e.Asset.Address)
	}
	return st
}

// ListApplications yields applicant's credit applications in insertion order.
func (f *Farm) ListApplications(applicant common.Address) iter.Seq[model.CreditApplication] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.credit.List(applicant)
}

// Applications yields every credit application in insertion order.
func (f *Farm) Applications() iter.Seq[model.CreditApplication] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.credit.All()
}

// ApplyForCredit registers a credit request from caller. Any address may apply
// unless RequireActiveStake is set.
func (f *Farm) ApplyForCredit(caller common.Address, amount *big.Int, termPeriods, ratePerPeriod uint64, label string) (model.CreditApplication, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.opts.RequireActiveStake && len(f.ledger.AssetsOf(caller)) == 0 {
		err := fmt.Errorf("applicant %s has no active stake: %w", caller.Hex(), ErrUnauthorized)
		metrics.RecordOperation("apply_for_credit", err)
		return model.CreditApplication{}, err
	}
	app, err := f.credit.Apply(caller, amount, termPeriods, ratePerPeriod, label)
	metrics.RecordOperation("apply_for_credit", err)
	if err != nil {
		return model.CreditApplication{}, err
	}
	if err := f.rec.RecordCredit(&app); err != nil {
		zap.S().Errorw("record credit application", "id", app.ID, "err", err)
	}
	f.persist()
	zap.S().Infow("credit application registered", "id", app.ID, "applicant", caller.Hex(), "amount", amount.String())
	return app, nil
}

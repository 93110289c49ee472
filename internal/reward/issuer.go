// Package reward computes and distributes reward-asset issuance proportional to staked value.
package reward

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"YieldFarm/internal/calculator"
	"YieldFarm/internal/ledger"
	"YieldFarm/internal/model"
	"YieldFarm/internal/token"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrNothingToClaim      = errors.New("nothing to claim")
	ErrInsufficientFunding = errors.New("insufficient reward funding")
)

// DefaultConversionFactor divides a staker's value into a reward amount.
var DefaultConversionFactor = big.NewInt(2)

// Config is the issuance rule: reward = value / ConversionFactor, paid in RewardAsset.
type Config struct {
	RewardAsset      common.Address
	ConversionFactor *big.Int
	Mode             model.RewardMode
}

// Valuer returns a staker's aggregate value.
type Valuer interface {
	TotalValue(ctx context.Context, user common.Address) (*big.Int, error)
}

// StakerSource is the staking ledger's read side used during issuance.
type StakerSource interface {
	Stakers() []common.Address
	TotalStaked(asset common.Address) *big.Int
}

// Issuer distributes rewards to every staker. Not safe for concurrent use.
type Issuer struct {
	cfg     Config
	custody common.Address
	tokens  *token.Directory
	valuer  Valuer
	stakers StakerSource
	pending map[common.Address]*big.Int
	now     func() time.Time
}

// NewIssuer validates cfg and creates an Issuer funding payouts from custody.
func NewIssuer(cfg Config, custody common.Address, tokens *token.Directory, valuer Valuer, stakers StakerSource) (*Issuer, error) {
	if cfg.ConversionFactor == nil {
		cfg.ConversionFactor = DefaultConversionFactor
	}
	if cfg.ConversionFactor.Sign() <= 0 {
		return nil, fmt.Errorf("conversion factor must be positive, got %s", cfg.ConversionFactor)
	}
	switch cfg.Mode {
	case "":
		cfg.Mode = model.RewardPush
	case model.RewardPush, model.RewardPull:
	default:
		return nil, fmt.Errorf("unknown reward mode %q", cfg.Mode)
	}
	cfg.ConversionFactor = new(big.Int).Set(cfg.ConversionFactor)
	return &Issuer{
		cfg:     cfg,
		custody: custody,
		tokens:  tokens,
		valuer:  valuer,
		stakers: stakers,
		pending: make(map[common.Address]*big.Int),
		now:     time.Now,
	}, nil
}

func (i *Issuer) Config() Config { return i.cfg }

// Plan values every staker in insertion order and derives their rewards. Nothing is paid.
func (i *Issuer) Plan(ctx context.Context) ([]model.Payout, *big.Int, error) {
	users := i.stakers.Stakers()
	payouts := make([]model.Payout, 0, len(users))
	total := new(big.Int)
	for _, u := range users {
		v, err := i.valuer.TotalValue(ctx, u)
		if err != nil {
			return nil, nil, err
		}
		r, err := calculator.Div(v, i.cfg.ConversionFactor)
		if err != nil {
			return nil, nil, err
		}
		if total, err = calculator.CheckedAdd(total, r); err != nil {
			return nil, nil, fmt.Errorf("issuance total: %w", err)
		}
		payouts = append(payouts, model.Payout{User: u, Value: v, Reward: r})
	}
	return payouts, total, nil
}

// Issue runs one issuance cycle. Repeated calls issue repeated rewards.
// Every valuation completes before any payout, and a failure leaves no
// payout applied.
func (i *Issuer) Issue(ctx context.Context) (*model.IssuanceReport, error) {
	payouts, total, err := i.Plan(ctx)
	if err != nil {
		return nil, fmt.Errorf("plan issuance: %w", err)
	}
	report := &model.IssuanceReport{
		ID:          uuid.New(),
		At:          i.now(),
		Mode:        i.cfg.Mode,
		RewardAsset: i.cfg.RewardAsset,
		Payouts:     payouts,
		Total:       total,
	}
	if total.Sign() == 0 {
		return report, nil
	}
	if i.cfg.Mode == model.RewardPull {
		if _, err := i.rewardLedger(ctx, total, nil); err != nil {
			return nil, err
		}
		if err := i.accrue(payouts); err != nil {
			return nil, err
		}
		return report, nil
	}
	if err := i.pay(ctx, payouts, total); err != nil {
		return nil, err
	}
	return report, nil
}

func (i *Issuer) accrue(payouts []model.Payout) error {
	next := make(map[common.Address]*big.Int, len(payouts))
	for _, p := range payouts {
		if p.Reward.Sign() == 0 {
			continue
		}
		cur, ok := next[p.User]
		if !ok {
			cur = i.Pending(p.User)
		}
		sum, err := calculator.CheckedAdd(cur, p.Reward)
		if err != nil {
			return fmt.Errorf("accrue %s: %w", p.User.Hex(), err)
		}
		next[p.User] = sum
	}
	for u, v := range next {
		i.pending[u] = v
	}
	return nil
}

func (i *Issuer) pay(ctx context.Context, payouts []model.Payout, total *big.Int) error {
	tok, err := i.rewardLedger(ctx, total, nil)
	if err != nil {
		return err
	}
	legs := make([]token.Transfer, 0, len(payouts))
	for _, p := range payouts {
		if p.Reward.Sign() > 0 {
			legs = append(legs, token.Transfer{To: p.User, Amount: p.Reward})
		}
	}
	if batch, ok := tok.(token.BatchTransferer); ok {
		if err := batch.TransferBatch(ctx, i.custody, legs); err != nil {
			return fmt.Errorf("pay rewards: %w: %v", ledger.ErrTransferFailed, err)
		}
		return nil
	}
	// Funding was verified above, so a failing leg means the asset itself reverted.
	for n, leg := range legs {
		if err := tok.Transfer(ctx, i.custody, leg.To, leg.Amount); err != nil {
			zap.S().Errorw("reward transfer failed mid-issuance", "paid", n, "of", len(legs), "err", err)
			return fmt.Errorf("pay rewards: %d of %d paid: %w: %v", n, len(legs), ledger.ErrTransferFailed, err)
		}
	}
	return nil
}

// rewardLedger resolves the reward asset and checks custody can fund amount
// without touching reward-asset balance that backs stakes or is owed as
// pending rewards. released is pending balance the caller is about to pay out.
func (i *Issuer) rewardLedger(ctx context.Context, amount, released *big.Int) (token.Ledger, error) {
	tok, free, err := i.free(ctx)
	if err != nil {
		return nil, err
	}
	if released != nil {
		free.Add(free, released)
	}
	if free.Cmp(amount) < 0 {
		return nil, fmt.Errorf("need %s, have %s: %w: %w", amount, free, ErrInsufficientFunding, ledger.ErrTransferFailed)
	}
	return tok, nil
}

// free is the custody reward balance minus staked principal and outstanding
// pending rewards. It may be negative.
func (i *Issuer) free(ctx context.Context) (token.Ledger, *big.Int, error) {
	tok, err := i.tokens.Lookup(i.cfg.RewardAsset)
	if err != nil {
		return nil, nil, fmt.Errorf("reward asset %s: %w: %v", i.cfg.RewardAsset.Hex(), ledger.ErrTransferFailed, err)
	}
	bal, err := tok.BalanceOf(ctx, i.custody)
	if err != nil {
		return nil, nil, fmt.Errorf("reward balance: %w: %v", ledger.ErrTransferFailed, err)
	}
	free := new(big.Int).Sub(bal, i.stakers.TotalStaked(i.cfg.RewardAsset))
	free.Sub(free, i.pendingTotal())
	return tok, free, nil
}

// Available returns the reward asset balance in custody that neither backs
// stakes nor is owed to stakers as pending rewards.
func (i *Issuer) Available(ctx context.Context) (*big.Int, error) {
	_, free, err := i.free(ctx)
	if err != nil {
		return nil, err
	}
	if free.Sign() < 0 {
		free.SetInt64(0)
	}
	return free, nil
}

func (i *Issuer) pendingTotal() *big.Int {
	total := new(big.Int)
	for _, p := range i.pending {
		total.Add(total, p)
	}
	return total
}

// Claim pays out user's accrued rewards in pull mode.
func (i *Issuer) Claim(ctx context.Context, user common.Address) (*big.Int, error) {
	amount := i.Pending(user)
	if amount.Sign() == 0 {
		return nil, ErrNothingToClaim
	}
	tok, err := i.rewardLedger(ctx, amount, amount)
	if err != nil {
		return nil, err
	}
	if err := tok.Transfer(ctx, i.custody, user, amount); err != nil {
		return nil, fmt.Errorf("claim: %w: %v", ledger.ErrTransferFailed, err)
	}
	delete(i.pending, user)
	return amount, nil
}

// Pending returns user's unclaimed rewards.
func (i *Issuer) Pending(user common.Address) *big.Int {
	if p, ok := i.pending[user]; ok {
		return new(big.Int).Set(p)
	}
	return new(big.Int)
}

// PendingAll returns a copy of every unclaimed balance.
func (i *Issuer) PendingAll() map[common.Address]*big.Int {
	out := make(map[common.Address]*big.Int, len(i.pending))
	for u, p := range i.pending {
		out[u] = new(big.Int).Set(p)
	}
	return out
}

// RestorePending replaces unclaimed balances.
func (i *Issuer) RestorePending(pending map[common.Address]*big.Int) {
	i.pending = make(map[common.Address]*big.Int, len(pending))
	for u, p := range pending {
		if p != nil && p.Sign() > 0 {
			i.pending[u] = new(big.Int).Set(p)
		}
	}
}

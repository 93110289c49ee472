package token

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// MemLedger is an in-process ERC20-style ledger used by the devnet daemon and tests.
type MemLedger struct {
	mu         sync.Mutex
	symbol     string
	decimals   uint8
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int

	// FailTransfers makes every outgoing transfer fail, simulating a reverting token.
	FailTransfers bool
}

// NewMemLedger creates an empty ledger.
func NewMemLedger(symbol string, decimals uint8) *MemLedger {
	return &MemLedger{
		symbol:     symbol,
		decimals:   decimals,
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]*big.Int),
	}
}

func (m *MemLedger) Symbol() string  { return m.symbol }
func (m *MemLedger) Decimals() uint8 { return m.decimals }

// Mint credits amount to account out of thin air.
func (m *MemLedger) Mint(account common.Address, amount *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credit(account, amount)
}

func (m *MemLedger) SetFailTransfers(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FailTransfers = fail
}

func (m *MemLedger) BalanceOf(_ context.Context, account common.Address) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return new(big.Int).Set(m.balance(account)), nil
}

// Allowance returns how much spender may move on behalf of owner.
func (m *MemLedger) Allowance(owner, spender common.Address) *big.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return new(big.Int).Set(m.allowance(owner, spender))
}

func (m *MemLedger) Transfer(_ context.Context, from, to common.Address, amount *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkTransfer(from, amount); err != nil {
		return err
	}
	m.move(from, to, amount)
	return nil
}

func (m *MemLedger) TransferFrom(_ context.Context, spender, from, to common.Address, amount *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkTransfer(from, amount); err != nil {
		return err
	}
	allowed := m.allowance(from, spender)
	if allowed.Cmp(amount) < 0 {
		return fmt.Errorf("%s: %w: have %s, need %s", m.symbol, ErrInsufficientAllowance, allowed, amount)
	}
	m.allowances[from][spender] = new(big.Int).Sub(allowed, amount)
	m.move(from, to, amount)
	return nil
}

func (m *MemLedger) Approve(_ context.Context, owner, spender common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.allowances[owner] == nil {
		m.allowances[owner] = make(map[common.Address]*big.Int)
	}
	m.allowances[owner][spender] = new(big.Int).Set(amount)
	return nil
}

// TransferBatch applies every leg or none of them.
func (m *MemLedger) TransferBatch(_ context.Context, from common.Address, legs []Transfer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailTransfers {
		return fmt.Errorf("%s: transfers disabled", m.symbol)
	}
	total := new(big.Int)
	for _, leg := range legs {
		if leg.Amount == nil || leg.Amount.Sign() < 0 {
			return ErrInvalidAmount
		}
		total.Add(total, leg.Amount)
	}
	if err := m.checkTransfer(from, total); err != nil {
		return err
	}
	for _, leg := range legs {
		m.move(from, leg.To, leg.Amount)
	}
	return nil
}

func (m *MemLedger) checkTransfer(from common.Address, amount *big.Int) error {
	if m.FailTransfers {
		return fmt.Errorf("%s: transfers disabled", m.symbol)
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if bal := m.balance(from); bal.Cmp(amount) < 0 {
		return fmt.Errorf("%s: %w: have %s, need %s", m.symbol, ErrInsufficientBalance, bal, amount)
	}
	return nil
}

func (m *MemLedger) move(from, to common.Address, amount *big.Int) {
	m.balances[from] = new(big.Int).Sub(m.balance(from), amount)
	m.credit(to, amount)
}

func (m *MemLedger) credit(account common.Address, amount *big.Int) {
	m.balances[account] = new(big.Int).Add(m.balance(account), amount)
}

func (m *MemLedger) balance(account common.Address) *big.Int {
	if b, ok := m.balances[account]; ok {
		return b
	}
	return new(big.Int)
}

func (m *MemLedger) allowance(owner, spender common.Address) *big.Int {
	if a, ok := m.allowances[owner][spender]; ok {
		return a
	}
	return new(big.Int)
}

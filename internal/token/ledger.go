package token

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrUnknownToken          = errors.New("unknown token")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrInvalidAmount         = errors.New("invalid amount")
)

// Ledger is the capability set the farm needs from an external fungible asset.
// Every mutating call is all-or-nothing: a returned error means no balance moved.
type Ledger interface {
	Symbol() string
	Decimals() uint8
	BalanceOf(ctx context.Context, account common.Address) (*big.Int, error)
	// Transfer moves amount from `from` to `to`; `from` is the caller.
	Transfer(ctx context.Context, from, to common.Address, amount *big.Int) error
	// TransferFrom moves amount from `from` to `to` on behalf of spender, consuming allowance.
	TransferFrom(ctx context.Context, spender, from, to common.Address, amount *big.Int) error
	Approve(ctx context.Context, owner, spender common.Address, amount *big.Int) error
}

// Transfer is one leg of a batch.
type Transfer struct {
	To     common.Address
	Amount *big.Int
}

// BatchTransferer is implemented by ledgers able to apply several transfers atomically.
type BatchTransferer interface {
	TransferBatch(ctx context.Context, from common.Address, legs []Transfer) error
}

// Directory resolves asset addresses to their external ledgers.
type Directory struct {
	mu      sync.RWMutex
	ledgers map[common.Address]Ledger
}

// NewDirectory creates an empty Directory.
func NewDirectory() *Directory {
	return &Directory{ledgers: make(map[common.Address]Ledger)}
}

// Register binds asset to ledger, replacing any earlier binding.
func (d *Directory) Register(asset common.Address, l Ledger) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ledgers[asset] = l
}

// Lookup returns the ledger for asset or ErrUnknownToken.
func (d *Directory) Lookup(asset common.Address) (Ledger, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	l, ok := d.ledgers[asset]
	if !ok {
		return nil, ErrUnknownToken
	}
	return l, nil
}

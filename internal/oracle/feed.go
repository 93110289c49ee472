package oracle

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Answer is a raw feed reading: Price scaled by 10^Decimals.
type Answer struct {
	Price     *big.Int
	Decimals  uint8
	UpdatedAt time.Time
}

// Feed is an external price oracle for a single asset.
type Feed interface {
	LatestAnswer(ctx context.Context) (Answer, error)
	Name() string
}

// Directory resolves feed handles to feed implementations.
type Directory struct {
	mu    sync.RWMutex
	feeds map[common.Address]Feed
}

// NewDirectory creates an empty Directory.
func NewDirectory() *Directory {
	return &Directory{feeds: make(map[common.Address]Feed)}
}

// Register binds handle to feed.
func (d *Directory) Register(handle common.Address, f Feed) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.feeds[handle] = f
}

// Lookup returns the feed behind handle.
func (d *Directory) Lookup(handle common.Address) (Feed, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	f, ok := d.feeds[handle]
	return f, ok
}

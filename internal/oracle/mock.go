package oracle

import (
	"context"
	"math/big"
	"sync"
	"time"
)

// MockFeed returns a controllable fixed answer for development and testing.
type MockFeed struct {
	mu       sync.Mutex
	price    *big.Int
	decimals uint8
	err      error
}

// NewMockFeed creates a feed answering price with the given decimals.
func NewMockFeed(price *big.Int, decimals uint8) *MockFeed {
	return &MockFeed{price: new(big.Int).Set(price), decimals: decimals}
}

func (m *MockFeed) Name() string { return "mock" }

// SetPrice changes the reported price.
func (m *MockFeed) SetPrice(price *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.price = new(big.Int).Set(price)
}

// SetError makes subsequent reads fail with err; nil restores normal answers.
func (m *MockFeed) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockFeed) LatestAnswer(_ context.Context) (Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Answer{}, m.err
	}
	return Answer{Price: new(big.Int).Set(m.price), Decimals: m.decimals, UpdatedAt: time.Now()}, nil
}

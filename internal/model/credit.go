package model

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// CreditApplication is an unapproved credit request stored for later review.
type CreditApplication struct {
	ID            uuid.UUID      `json:"id"`
	Applicant     common.Address `json:"applicant"`
	Amount        *big.Int       `json:"amount"`
	TermPeriods   uint64         `json:"term_periods"`
	RatePerPeriod uint64         `json:"rate_per_period"`
	Label         string         `json:"label"`
	Timestamp     time.Time      `json:"timestamp"`
}

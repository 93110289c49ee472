package farm

import (
	"errors"

	"YieldFarm/internal/calculator"
	"YieldFarm/internal/credit"
	"YieldFarm/internal/ledger"
	"YieldFarm/internal/oracle"
	"YieldFarm/internal/reward"
	"YieldFarm/internal/token"
)

// Every operation reports failures wrapping exactly one of these kinds.
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrZeroAddress        = errors.New("zero address")
	ErrUnknownAsset       = token.ErrUnknownToken
	ErrAssetNotAllowed    = ledger.ErrAssetNotAllowed
	ErrZeroAmount         = ledger.ErrZeroAmount
	ErrNoStakeFound       = ledger.ErrNoStakeFound
	ErrTransferFailed     = ledger.ErrTransferFailed
	ErrIndexOutOfRange    = ledger.ErrIndexOutOfRange
	ErrCustodyStaker      = ledger.ErrCustodyStaker
	ErrNoPriceFeed        = oracle.ErrNoPriceFeed
	ErrFeedUnavailable    = oracle.ErrFeedUnavailable
	ErrOverflow           = calculator.ErrOverflow
	ErrInvalidApplication = credit.ErrInvalidApplication
	ErrNothingToClaim     = reward.ErrNothingToClaim
)

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"YieldFarm/internal/farm"

	"go.uber.org/zap"
)

var errMissingCaller = errors.New("missing or invalid X-Caller header")

// statusFor maps a ledger error kind to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errMissingCaller):
		return http.StatusUnauthorized
	case errors.Is(err, farm.ErrUnauthorized), errors.Is(err, farm.ErrCustodyStaker):
		return http.StatusForbidden
	case errors.Is(err, farm.ErrNoStakeFound), errors.Is(err, farm.ErrIndexOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, farm.ErrFeedUnavailable), errors.Is(err, farm.ErrTransferFailed):
		return http.StatusBadGateway
	case errors.Is(err, farm.ErrOverflow), errors.Is(err, farm.ErrNoPriceFeed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, farm.ErrZeroAmount), errors.Is(err, farm.ErrAssetNotAllowed),
		errors.Is(err, farm.ErrInvalidApplication), errors.Is(err, farm.ErrZeroAddress),
		errors.Is(err, farm.ErrUnknownAsset), errors.Is(err, farm.ErrNothingToClaim),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

var errBadRequest = errors.New("bad request")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.S().Warnw("encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		zap.S().Errorw("request failed", "err", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

package api

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"slices"
	"strconv"

	"YieldFarm/internal/model"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
)

const defaultHistoryLimit = 20

type assetRequest struct {
	Asset string `json:"asset"`
}

type feedRequest struct {
	Feed string `json:"feed"`
}

type stakeRequest struct {
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

type creditRequest struct {
	Amount        string `json:"amount"`
	TermPeriods   uint64 `json:"term_periods"`
	RatePerPeriod uint64 `json:"rate_per_period"`
	Label         string `json:"label"`
}

type ownerRequest struct {
	NewOwner string `json:"new_owner"`
}

type amountResponse struct {
	Amount string `json:"amount"`
}

type creditResponse struct {
	ID            string `json:"id"`
	Applicant     string `json:"applicant"`
	Amount        string `json:"amount"`
	TermPeriods   uint64 `json:"term_periods"`
	RatePerPeriod uint64 `json:"rate_per_period"`
	Label         string `json:"label"`
	Timestamp     int64  `json:"timestamp"`
}

func toCreditResponse(a model.CreditApplication) creditResponse {
	return creditResponse{
		ID:            a.ID.String(),
		Applicant:     a.Applicant.Hex(),
		Amount:        a.Amount.String(),
		TermPeriods:   a.TermPeriods,
		RatePerPeriod: a.RatePerPeriod,
		Label:         a.Label,
		Timestamp:     a.Timestamp.Unix(),
	}
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("decode body: %v: %w", err, errBadRequest)
	}
	return nil
}

func parseAddress(field, v string) (common.Address, error) {
	if !common.IsHexAddress(v) {
		return common.Address{}, fmt.Errorf("%s %q is not an address: %w", field, v, errBadRequest)
	}
	return common.HexToAddress(v), nil
}

func parseAmount(v string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(v, 10)
	if !ok {
		return nil, fmt.Errorf("amount %q is not an integer: %w", v, errBadRequest)
	}
	if n.Sign() < 0 {
		return nil, fmt.Errorf("amount %q is negative: %w", v, errBadRequest)
	}
	return n, nil
}

func requireCaller(r *http.Request) (common.Address, error) {
	c, ok := callerFrom(r.Context())
	if !ok {
		return common.Address{}, errMissingCaller
	}
	return c, nil
}

func historyLimit(r *http.Request) int {
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		return n
	}
	return defaultHistoryLimit
}

func (s *Server) addAsset(w http.ResponseWriter, r *http.Request) {
	caller, err := requireCaller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req assetRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	asset, err := parseAddress("asset", req.Asset)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.farm.AddAllowedAsset(caller, asset); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"asset": asset.Hex(), "allowed": true})
}

func (s *Server) setFeed(w http.ResponseWriter, r *http.Request) {
	caller, err := requireCaller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	asset, err := parseAddress("asset", chi.URLParam(r, "asset"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req feedRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	feed, err := parseAddress("feed", req.Feed)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.farm.SetPriceFeed(caller, asset, feed); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"asset": asset.Hex(), "feed": feed.Hex()})
}

func (s *Server) listAssets(w http.ResponseWriter, _ *http.Request) {
	type row struct {
		Address  string `json:"address"`
		Symbol   string `json:"symbol"`
		Decimals uint8  `json:"decimals"`
		Allowed  bool   `json:"allowed"`
		Feed     string `json:"feed,omitempty"`
	}
	entries := s.farm.Assets()
	out := make([]row, 0, len(entries))
	for _, e := range entries {
		rw := row{Address: e.Asset.Address.Hex(), Symbol: e.Asset.Symbol, Decimals: e.Asset.Decimals, Allowed: e.Allowed}
		if e.PriceFeed != nil {
			rw.Feed = e.PriceFeed.Hex()
		}
		out = append(out, rw)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) valueOf(w http.ResponseWriter, r *http.Request) {
	asset, err := parseAddress("asset", chi.URLParam(r, "asset"))
	if err != nil {
		writeError(w, err)
		return
	}
	amount, err := parseAmount(r.URL.Query().Get("amount"))
	if err != nil {
		writeError(w, err)
		return
	}
	v, err := s.farm.ValueOf(r.Context(), asset, amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"value": v.String()})
}

func (s *Server) stake(w http.ResponseWriter, r *http.Request) {
	caller, err := requireCaller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req stakeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	asset, err := parseAddress("asset", req.Asset)
	if err != nil {
		writeError(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.farm.Stake(r.Context(), caller, asset, amount); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, amountResponse{Amount: s.farm.BalanceOf(caller, asset).String()})
}

func (s *Server) unstake(w http.ResponseWriter, r *http.Request) {
	caller, err := requireCaller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req assetRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	asset, err := parseAddress("asset", req.Asset)
	if err != nil {
		writeError(w, err)
		return
	}
	amount, err := s.farm.Unstake(r.Context(), caller, asset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, amountResponse{Amount: amount.String()})
}

func (s *Server) issue(w http.ResponseWriter, r *http.Request) {
	caller, err := requireCaller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	rep, err := s.farm.IssueRewardTokens(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) claim(w http.ResponseWriter, r *http.Request) {
	caller, err := requireCaller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	amount, err := s.farm.ClaimRewards(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, amountResponse{Amount: amount.String()})
}

func (s *Server) applyForCredit(w http.ResponseWriter, r *http.Request) {
	caller, err := requireCaller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req creditRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	app, err := s.farm.ApplyForCredit(caller, amount, req.TermPeriods, req.RatePerPeriod, req.Label)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCreditResponse(app))
}

func (s *Server) transferOwnership(w http.ResponseWriter, r *http.Request) {
	caller, err := requireCaller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req ownerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	newOwner, err := parseAddress("new_owner", req.NewOwner)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.farm.TransferOwnership(caller, newOwner); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"owner": newOwner.Hex()})
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	st := s.farm.Status()
	staked := make(map[string]string, len(st.TotalStaked))
	for a, v := range st.TotalStaked {
		staked[a.Hex()] = v.String()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"owner":        st.Owner.Hex(),
		"reward_asset": st.RewardAsset.Hex(),
		"mode":         st.Mode,
		"stakers":      st.StakerCount,
		"total_staked": staked,
		"applications": st.Applications,
	})
}

func (s *Server) listStakers(w http.ResponseWriter, _ *http.Request) {
	stakers := s.farm.Stakers()
	out := make([]string, len(stakers))
	for i, a := range stakers {
		out[i] = a.Hex()
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) stakerAt(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, fmt.Errorf("index: %v: %w", err, errBadRequest))
		return
	}
	user, err := s.farm.StakerAt(index)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"index": index, "user": user.Hex()})
}

func (s *Server) totalValue(w http.ResponseWriter, r *http.Request) {
	user, err := parseAddress("user", chi.URLParam(r, "user"))
	if err != nil {
		writeError(w, err)
		return
	}
	v, err := s.farm.TotalValue(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"value": v.String()})
}

func (s *Server) balanceOf(w http.ResponseWriter, r *http.Request) {
	user, err := parseAddress("user", chi.URLParam(r, "user"))
	if err != nil {
		writeError(w, err)
		return
	}
	asset, err := parseAddress("asset", chi.URLParam(r, "asset"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, amountResponse{Amount: s.farm.BalanceOf(user, asset).String()})
}

func (s *Server) uniqueAssets(w http.ResponseWriter, r *http.Request) {
	user, err := parseAddress("user", chi.URLParam(r, "user"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unique_asset_count": s.farm.UniqueAssetCount(user)})
}

func (s *Server) pending(w http.ResponseWriter, r *http.Request) {
	user, err := parseAddress("user", chi.URLParam(r, "user"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, amountResponse{Amount: s.farm.PendingReward(user).String()})
}

func (s *Server) listCredit(w http.ResponseWriter, r *http.Request) {
	user, err := parseAddress("user", chi.URLParam(r, "user"))
	if err != nil {
		writeError(w, err)
		return
	}
	out := []creditResponse{}
	for app := range s.farm.ListApplications(user) {
		out = append(out, toCreditResponse(app))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listAllCredit(w http.ResponseWriter, _ *http.Request) {
	apps := slices.Collect(s.farm.Applications())
	out := make([]creditResponse, len(apps))
	for i, app := range apps {
		out[i] = toCreditResponse(app)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) recentIssuances(w http.ResponseWriter, r *http.Request) {
	rows, err := s.rec.RecentIssuances(r.Context(), historyLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) payoutHistory(w http.ResponseWriter, r *http.Request) {
	user, err := parseAddress("user", chi.URLParam(r, "user"))
	if err != nil {
		writeError(w, err)
		return
	}
	rows, err := s.rec.PayoutHistory(r.Context(), user.Hex(), historyLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

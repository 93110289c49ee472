// Package api exposes the staking ledger over HTTP.
package api

import (
	"net/http"

	"YieldFarm/internal/farm"
	"YieldFarm/internal/metrics"
	"YieldFarm/internal/recorder"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server serves the ledger API.
type Server struct {
	farm    *farm.Farm
	rec     recorder.Recorder
	limiter *RateLimiter
}

// NewServer builds a Server. A nil limiter disables rate limiting; a nil
// recorder disables the history endpoints.
func NewServer(f *farm.Farm, rec recorder.Recorder, limiter *RateLimiter) *Server {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Server{farm: f, rec: rec, limiter: limiter}
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(instrument)
	r.Use(withCaller)
	if s.limiter != nil {
		r.Use(s.limiter.Handler)
	}

	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/status", s.status)

	r.Route("/assets", func(r chi.Router) {
		r.Get("/", s.listAssets)
		r.Post("/", s.addAsset)
		r.Put("/{asset}/feed", s.setFeed)
		r.Get("/{asset}/value", s.valueOf)
	})
	r.Post("/stake", s.stake)
	r.Post("/unstake", s.unstake)
	r.Post("/issue", s.issue)
	r.Post("/claim", s.claim)
	r.Post("/credit", s.applyForCredit)
	r.Get("/credit", s.listAllCredit)
	r.Post("/owner", s.transferOwnership)
	r.Get("/issuances", s.recentIssuances)

	r.Route("/stakers", func(r chi.Router) {
		r.Get("/", s.listStakers)
		r.Get("/{index}", s.stakerAt)
	})
	r.Route("/users/{user}", func(r chi.Router) {
		r.Get("/value", s.totalValue)
		r.Get("/balances/{asset}", s.balanceOf)
		r.Get("/assets", s.uniqueAssets)
		r.Get("/credit", s.listCredit)
		r.Get("/pending", s.pending)
		r.Get("/payouts", s.payoutHistory)
	})
	return r
}

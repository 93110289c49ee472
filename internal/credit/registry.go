// Package credit stores credit applications for later off-chain review.
package credit

import (
	"errors"
	"fmt"
	"iter"
	"math/big"
	"time"
	"unicode/utf8"

	"YieldFarm/internal/model"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

var ErrInvalidApplication = errors.New("invalid credit application")

// MaxLabelLength bounds the free-text label, in characters.
const MaxLabelLength = 256

// Registry is an append-only log of applications. Not safe for concurrent
// mutation; sequences returned by List and All may be ranged over while new
// applications are appended and only ever see the log as it was when requested.
type Registry struct {
	apps        []model.CreditApplication
	byApplicant map[common.Address][]int
	now         func() time.Time
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{byApplicant: make(map[common.Address][]int), now: time.Now}
}

// Apply validates and appends an application from applicant.
func (r *Registry) Apply(applicant common.Address, amount *big.Int, termPeriods, ratePerPeriod uint64, label string) (model.CreditApplication, error) {
	switch {
	case amount == nil || amount.Sign() <= 0:
		return model.CreditApplication{}, fmt.Errorf("amount must be positive: %w", ErrInvalidApplication)
	case termPeriods == 0:
		return model.CreditApplication{}, fmt.Errorf("term must be positive: %w", ErrInvalidApplication)
	case !utf8.ValidString(label) || utf8.RuneCountInString(label) > MaxLabelLength:
		return model.CreditApplication{}, fmt.Errorf("label must be valid text of at most %d characters: %w", MaxLabelLength, ErrInvalidApplication)
	}
	app := model.CreditApplication{
		ID:            uuid.New(),
		Applicant:     applicant,
		Amount:        new(big.Int).Set(amount),
		TermPeriods:   termPeriods,
		RatePerPeriod: ratePerPeriod,
		Label:         label,
		Timestamp:     r.now().UTC(),
	}
	r.append(app)
	return clone(app), nil
}

func (r *Registry) append(app model.CreditApplication) {
	r.byApplicant[app.Applicant] = append(r.byApplicant[app.Applicant], len(r.apps))
	r.apps = append(r.apps, app)
}

// List yields applicant's applications in insertion order. The sequence is
// finite and can be ranged over any number of times.
func (r *Registry) List(applicant common.Address) iter.Seq[model.CreditApplication] {
	idx := r.byApplicant[applicant]
	idx = idx[:len(idx):len(idx)]
	apps := r.apps[:len(r.apps):len(r.apps)]
	return func(yield func(model.CreditApplication) bool) {
		for _, i := range idx {
			if !yield(clone(apps[i])) {
				return
			}
		}
	}
}

// All yields every application in insertion order.
func (r *Registry) All() iter.Seq[model.CreditApplication] {
	apps := r.apps[:len(r.apps):len(r.apps)]
	return func(yield func(model.CreditApplication) bool) {
		for _, a := range apps {
			if !yield(clone(a)) {
				return
			}
		}
	}
}

func (r *Registry) Len() int { return len(r.apps) }

// Restore replaces the log.
func (r *Registry) Restore(apps []model.CreditApplication) {
	r.apps = nil
	r.byApplicant = make(map[common.Address][]int)
	for _, a := range apps {
		r.append(clone(a))
	}
}

func clone(a model.CreditApplication) model.CreditApplication {
	if a.Amount != nil {
		a.Amount = new(big.Int).Set(a.Amount)
	}
	return a
}

package core

import (
	"errors"
	"fmt"
	"slices"

	"github.com/hupe1980/finmesh/finance"
)

// ErrExclusiveConflict is returned by Merge when two fragments wrote the same
// exclusive field.
var ErrExclusiveConflict = errors.New("exclusive state field written by more than one agent")

// PriceQuote is one retailer offer found by the shopping agent.
type PriceQuote struct {
	Retailer string  `json:"retailer"`
	Price    float64 `json:"price"`
	Rating   float64 `json:"rating,omitempty"`
	URL      string  `json:"url,omitempty"`
}

// ShoppingResult is the shopping agent's contribution.
type ShoppingResult struct {
	Product  string       `json:"product"`
	Queries  []string     `json:"queries"`
	Quotes   []PriceQuote `json:"quotes"`
	Provider string       `json:"provider,omitempty"`
	// Recommendation is the advice text presented to the user.
	Recommendation string `json:"recommendation,omitempty"`
	// Demo is set when Quotes are demonstration prices because live search
	// was unavailable or unparsable.
	Demo bool `json:"demo"`
}

// Cheapest returns the lowest priced quote.
func (r *ShoppingResult) Cheapest() (PriceQuote, bool) {
	if r == nil || len(r.Quotes) == 0 {
		return PriceQuote{}, false
	}
	best := r.Quotes[0]
	for _, q := range r.Quotes[1:] {
		if q.Price < best.Price {
			best = q
		}
	}
	return best, true
}

// State is the typed blackboard shared by the agents of one request.
//
// Fields fall in three groups:
//   - inputs, set once by the engine;
//   - exclusive fields, each written by at most one agent per request;
//   - accumulating fields (Events, AgentsUsed, Citations) that combine across
//     agents.
//
// Concurrent agents never share a State: each receives a Clone and the engine
// folds the fragments back with Merge after the join.
type State struct {
	Query        string
	Profile      *finance.Profile
	Transactions []finance.Transaction

	TransactionAnalysis string
	BudgetAnalysis      string
	FinancialSummary    *finance.Summary
	Affordability       *finance.Affordability
	PurchaseAmount      float64
	PurchaseCategory    string
	ComplianceAnalysis  string
	Compliance          *finance.Assessment
	Shopping            *ShoppingResult
	ResearchAnalysis    string
	RetrievalMethod     string
	FinalResponse       string

	Events     []Event
	AgentsUsed []string
	Citations  []string
}

// NewState creates the initial state for a request.
func NewState(query string, profile *finance.Profile, txns []finance.Transaction) *State {
	return &State{Query: query, Profile: profile, Transactions: txns}
}

// Clone returns a private copy. Slices are copied; pointed-to values are
// shared and must be treated as immutable once published to the state.
func (s *State) Clone() *State {
	cp := *s
	cp.Transactions = slices.Clone(s.Transactions)
	cp.Events = slices.Clone(s.Events)
	cp.AgentsUsed = slices.Clone(s.AgentsUsed)
	cp.Citations = slices.Clone(s.Citations)
	return &cp
}

// AddEvents appends events in order.
func (s *State) AddEvents(evs ...Event) { s.Events = append(s.Events, evs...) }

// MarkAgentUsed records name once.
func (s *State) MarkAgentUsed(name string) { s.AgentsUsed = appendUnique(s.AgentsUsed, name) }

// AddCitations records each citation once, preserving first-seen order.
func (s *State) AddCitations(cs ...string) { s.Citations = appendUnique(s.Citations, cs...) }

type exclusiveField struct {
	name    string
	changed func(base, frag *State) bool
	copy    func(dst, src *State)
}

func field[T comparable](name string, ptr func(*State) *T) exclusiveField {
	return exclusiveField{
		name:    name,
		changed: func(base, frag *State) bool { return *ptr(base) != *ptr(frag) },
		copy:    func(dst, src *State) { *ptr(dst) = *ptr(src) },
	}
}

var exclusiveFields = []exclusiveField{
	field("transaction_analysis", func(s *State) *string { return &s.TransactionAnalysis }),
	field("budget_analysis", func(s *State) *string { return &s.BudgetAnalysis }),
	field("financial_summary", func(s *State) **finance.Summary { return &s.FinancialSummary }),
	field("affordability", func(s *State) **finance.Affordability { return &s.Affordability }),
	field("purchase_amount", func(s *State) *float64 { return &s.PurchaseAmount }),
	field("purchase_category", func(s *State) *string { return &s.PurchaseCategory }),
	field("compliance_analysis", func(s *State) *string { return &s.ComplianceAnalysis }),
	field("compliance", func(s *State) **finance.Assessment { return &s.Compliance }),
	field("shopping", func(s *State) **ShoppingResult { return &s.Shopping }),
	field("research_analysis", func(s *State) *string { return &s.ResearchAnalysis }),
	field("retrieval_method", func(s *State) *string { return &s.RetrievalMethod }),
	field("final_response", func(s *State) *string { return &s.FinalResponse }),
}

// Merge folds fragments (clones of base updated by independent agents) into a
// new state, in the order given.
//
// Exclusive fields a fragment changed relative to base are taken from that
// fragment. If two fragments changed the same exclusive field the first one
// wins and an ErrExclusiveConflict is reported alongside the merged state.
// Events appended by each fragment are concatenated in fragment order;
// AgentsUsed and Citations are ordered set unions. Nil fragments are skipped.
func Merge(base *State, fragments ...*State) (*State, error) {
	out := base.Clone()
	owner := make(map[string]int, len(exclusiveFields))

	var conflicts []error
	for i, frag := range fragments {
		if frag == nil {
			continue
		}
		for _, f := range exclusiveFields {
			if !f.changed(base, frag) {
				continue
			}
			if prev, ok := owner[f.name]; ok {
				conflicts = append(conflicts, fmt.Errorf("%w: %s (fragments %d and %d)", ErrExclusiveConflict, f.name, prev, i))
				continue
			}
			owner[f.name] = i
			f.copy(out, frag)
		}

		if len(frag.Events) > len(base.Events) {
			out.Events = append(out.Events, frag.Events[len(base.Events):]...)
		}
		out.AgentsUsed = appendUnique(out.AgentsUsed, frag.AgentsUsed...)
		out.Citations = appendUnique(out.Citations, frag.Citations...)
	}
	return out, errors.Join(conflicts...)
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		if v != "" && !slices.Contains(dst, v) {
			dst = append(dst, v)
		}
	}
	return dst
}

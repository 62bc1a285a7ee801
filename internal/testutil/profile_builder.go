package testutil

import "github.com/hupe1980/finmesh/finance"

// ProfileBuilder tweaks finance.DefaultProfile for tests.
type ProfileBuilder struct {
	p *finance.Profile
}

// NewProfileBuilder starts from the default demo profile.
func NewProfileBuilder() *ProfileBuilder { return &ProfileBuilder{p: finance.DefaultProfile()} }

// Income sets the monthly income (chainable).
func (b *ProfileBuilder) Income(v float64) *ProfileBuilder { b.p.MonthlyIncome = v; return b }

// Balance sets the total balance (chainable).
func (b *ProfileBuilder) Balance(v float64) *ProfileBuilder { b.p.TotalBalance = v; return b }

// Spent records spending in an existing category, or adds the category with
// a zero limit (chainable).
func (b *ProfileBuilder) Spent(category string, v float64) *ProfileBuilder {
	for i := range b.p.Budgets {
		if b.p.Budgets[i].Category == category {
			b.p.Budgets[i].Spent = v
			return b
		}
	}
	b.p.Budgets = append(b.p.Budgets, finance.BudgetCategory{Category: category, Spent: v})
	return b
}

// Build returns the profile.
func (b *ProfileBuilder) Build() *finance.Profile { return b.p.Clone() }

package finance

import (
	"strings"
	"time"
)

// BudgetCategory is the monthly allocation for one spending category.
type BudgetCategory struct {
	Category string  `json:"category" toml:"category"`
	Limit    float64 `json:"limit" toml:"limit"`
	Spent    float64 `json:"spent" toml:"spent"`
}

// Remaining returns the unspent part of the allocation, never negative.
func (b BudgetCategory) Remaining() float64 {
	if r := b.Limit - b.Spent; r > 0 {
		return r
	}
	return 0
}

// Utilization returns Spent/Limit. Zero limits report 0.
func (b BudgetCategory) Utilization() float64 {
	if b.Limit == 0 {
		return 0
	}
	return b.Spent / b.Limit
}

// Overrun reports whether more than the allocation was spent.
func (b BudgetCategory) Overrun() bool { return b.Limit > 0 && b.Spent > b.Limit }

// Profile is the financial context of the requesting user.
type Profile struct {
	UserID        string           `json:"user_id"`
	Name          string           `json:"name"`
	MonthlyIncome float64          `json:"monthly_income"`
	TotalBalance  float64          `json:"total_balance"`
	SavingsGoal   float64          `json:"savings_goal"`
	RiskTolerance string           `json:"risk_tolerance"`
	Budgets       []BudgetCategory `json:"budgets"`
}

// DefaultProfile returns the demo profile used when the caller supplies none.
func DefaultProfile() *Profile {
	return &Profile{
		UserID:        "default_user",
		Name:          "User",
		MonthlyIncome: 80000,
		TotalBalance:  250000,
		SavingsGoal:   20000,
		RiskTolerance: "moderate",
		Budgets: []BudgetCategory{
			{Category: "food", Limit: 15000},
			{Category: "transport", Limit: 5000},
			{Category: "shopping", Limit: 10000},
			{Category: "entertainment", Limit: 5000},
			{Category: "utilities", Limit: 8000},
			{Category: "healthcare", Limit: 5000},
			{Category: "education", Limit: 3000},
			{Category: "rent", Limit: 20000},
			{Category: "subscription", Limit: 2000},
		},
	}
}

// TotalBudget sums all category limits.
func (p *Profile) TotalBudget() float64 {
	var total float64
	for _, b := range p.Budgets {
		total += b.Limit
	}
	return total
}

// TotalSpent sums spending across all categories.
func (p *Profile) TotalSpent() float64 {
	var total float64
	for _, b := range p.Budgets {
		total += b.Spent
	}
	return total
}

// Discretionary is income minus spending minus the savings goal.
func (p *Profile) Discretionary() float64 {
	return p.MonthlyIncome - p.TotalSpent() - p.SavingsGoal
}

// Budget looks up a category case-insensitively.
func (p *Profile) Budget(category string) (BudgetCategory, bool) {
	for _, b := range p.Budgets {
		if strings.EqualFold(b.Category, category) {
			return b, true
		}
	}
	return BudgetCategory{}, false
}

// Clone returns a deep copy so callers can record spending without touching
// the shared profile.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Budgets = append([]BudgetCategory(nil), p.Budgets...)
	return &cp
}

// Transaction is a single account movement.
type Transaction struct {
	ID          string    `json:"id"`
	Amount      float64   `json:"amount"`
	Category    string    `json:"category"`
	Merchant    string    `json:"merchant"`
	Description string    `json:"description,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	IsCredit    bool      `json:"is_credit"`
	Location    string    `json:"location,omitempty"`
}

// Recent returns the last n transactions preserving order.
func Recent(txns []Transaction, n int) []Transaction {
	if n <= 0 || len(txns) <= n {
		return txns
	}
	return txns[len(txns)-n:]
}

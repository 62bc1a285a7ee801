package finance

import (
	"fmt"
	"math"
)

// BudgetStatus reports how a purchase relates to its category allocation.
type BudgetStatus struct {
	Limit          float64 `json:"limit"`
	Spent          float64 `json:"spent"`
	Remaining      float64 `json:"remaining"`
	UtilizationPct float64 `json:"utilization_pct"`
	WouldExceed    bool    `json:"would_exceed"`
}

// Affordability is the outcome of CheckAffordability.
type Affordability struct {
	Affordable     bool          `json:"affordable"`
	Amount         float64       `json:"amount"`
	Category       string        `json:"category"`
	Discretionary  float64       `json:"discretionary_balance"`
	RemainingAfter float64       `json:"remaining_after"`
	Budget         *BudgetStatus `json:"budget_status,omitempty"`
	Warnings       []string      `json:"warnings"`
	Recommendation string        `json:"recommendation"`
}

// HealthScore rates overall financial health from 0 to 100.
type HealthScore struct {
	Score int    `json:"score"`
	Label string `json:"label"`
}

// CategoryUsage is one line of the budget breakdown in a Summary.
type CategoryUsage struct {
	Category       string  `json:"category"`
	Limit          float64 `json:"limit"`
	Spent          float64 `json:"spent"`
	Remaining      float64 `json:"remaining"`
	UtilizationPct float64 `json:"utilization_pct"`
}

// Summary is the monthly financial overview.
type Summary struct {
	MonthlyIncome float64         `json:"monthly_income"`
	TotalBalance  float64         `json:"total_balance"`
	TotalSpent    float64         `json:"total_spent"`
	Discretionary float64         `json:"discretionary_balance"`
	SavingsGoal   float64         `json:"savings_goal"`
	SpendingRatio float64         `json:"spending_ratio"`
	Budgets       []CategoryUsage `json:"budgets"`
	Health        HealthScore     `json:"health_score"`
}

// CheckAffordability evaluates whether amount can be spent in category without
// compromising the user's budget or savings.
func CheckAffordability(p *Profile, amount float64, category string) Affordability {
	discretionary := p.Discretionary()
	res := Affordability{
		Affordable:     discretionary >= amount,
		Amount:         amount,
		Category:       category,
		Discretionary:  discretionary,
		RemainingAfter: discretionary - amount,
		Warnings:       []string{},
	}

	if b, ok := p.Budget(category); ok {
		res.Budget = &BudgetStatus{
			Limit:          b.Limit,
			Spent:          b.Spent,
			Remaining:      b.Remaining(),
			UtilizationPct: round1(math.Min(1, b.Utilization()) * 100),
			WouldExceed:    b.Spent+amount > b.Limit,
		}
		if res.Budget.WouldExceed {
			res.Warnings = append(res.Warnings, fmt.Sprintf("This purchase exceeds your %s budget by %s", category, Rupees(b.Spent+amount-b.Limit)))
		}
	}

	switch {
	case amount > discretionary:
		res.Warnings = append(res.Warnings, fmt.Sprintf("This purchase exceeds your safe spending threshold by %s", Rupees(amount-discretionary)))
		res.Recommendation = "Consider postponing this purchase or adjusting your budget."
	case amount > discretionary*0.5:
		res.Warnings = append(res.Warnings, "This purchase would use more than 50% of your remaining discretionary balance.")
		res.Recommendation = "Affordable, but be cautious with large purchases this month."
	default:
		res.Recommendation = "This purchase is within your comfortable spending range."
	}

	if p.TotalBalance-amount < p.SavingsGoal*3 {
		res.Warnings = append(res.Warnings, "Your balance after this purchase would be less than 3x your savings goal.")
	}
	return res
}

// Summarize builds the financial overview for p.
func Summarize(p *Profile) Summary {
	spent := p.TotalSpent()
	var ratio float64
	if p.MonthlyIncome > 0 {
		ratio = round1(spent / p.MonthlyIncome * 100)
	}
	usage := make([]CategoryUsage, 0, len(p.Budgets))
	for _, b := range p.Budgets {
		usage = append(usage, CategoryUsage{
			Category:       b.Category,
			Limit:          b.Limit,
			Spent:          b.Spent,
			Remaining:      b.Remaining(),
			UtilizationPct: round1(math.Min(1, b.Utilization()) * 100),
		})
	}
	return Summary{
		MonthlyIncome: p.MonthlyIncome,
		TotalBalance:  p.TotalBalance,
		TotalSpent:    spent,
		Discretionary: p.Discretionary(),
		SavingsGoal:   p.SavingsGoal,
		SpendingRatio: ratio,
		Budgets:       usage,
		Health:        Health(p),
	}
}

// Health scores the profile. Spending above 80% (60%) of income costs 30 (15)
// points, a balance below 2x (5x) the savings goal costs 20 (10) and every
// overrun category costs 5.
func Health(p *Profile) HealthScore {
	score := 100
	ratio := 1.0
	if p.MonthlyIncome > 0 {
		ratio = p.TotalSpent() / p.MonthlyIncome
	}
	switch {
	case ratio > 0.8:
		score -= 30
	case ratio > 0.6:
		score -= 15
	}
	switch {
	case p.TotalBalance < p.SavingsGoal*2:
		score -= 20
	case p.TotalBalance < p.SavingsGoal*5:
		score -= 10
	}
	for _, b := range p.Budgets {
		if b.Overrun() {
			score -= 5
		}
	}
	score = max(0, min(100, score))

	label := "Critical"
	switch {
	case score >= 80:
		label = "Excellent"
	case score >= 60:
		label = "Good"
	case score >= 40:
		label = "Needs Attention"
	}
	return HealthScore{Score: score, Label: label}
}

// Rupees formats an amount with thousands separators, e.g. ₹72,990.
func Rupees(v float64) string {
	neg := v < 0
	n := int64(math.Round(math.Abs(v)))
	s := fmt.Sprintf("%d", n)
	out := make([]byte, 0, len(s)+len(s)/3)
	for i := range len(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-₹" + string(out)
	}
	return "₹" + string(out)
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

package finance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultProfile(t *testing.T) {
	p := DefaultProfile()
	assert.Equal(t, 60000.0, p.Discretionary())
	assert.Len(t, p.Budgets, 9)

	b, ok := p.Budget("Shopping")
	require.True(t, ok)
	assert.Equal(t, 10000.0, b.Limit)
}

func TestCheckAffordability(t *testing.T) {
	t.Run("comfortable", func(t *testing.T) {
		res := CheckAffordability(DefaultProfile(), 5000, "shopping")
		assert.True(t, res.Affordable)
		assert.Empty(t, res.Warnings)
		assert.Equal(t, 55000.0, res.RemainingAfter)
	})

	t.Run("over category and half discretionary", func(t *testing.T) {
		res := CheckAffordability(DefaultProfile(), 40000, "shopping")
		assert.True(t, res.Affordable)
		require.NotNil(t, res.Budget)
		assert.True(t, res.Budget.WouldExceed)
		assert.Len(t, res.Warnings, 2)
		assert.Contains(t, res.Warnings[0], "₹30,000")
	})

	t.Run("not affordable", func(t *testing.T) {
		res := CheckAffordability(DefaultProfile(), 72990, "shopping")
		assert.False(t, res.Affordable)
		assert.Contains(t, res.Warnings[1], "₹12,990")
		assert.Contains(t, res.Recommendation, "postponing")
	})

	t.Run("savings floor", func(t *testing.T) {
		p := DefaultProfile()
		p.TotalBalance = 60000
		res := CheckAffordability(p, 1000, "food")
		assert.Contains(t, res.Warnings, "Your balance after this purchase would be less than 3x your savings goal.")
	})
}

func TestHealth(t *testing.T) {
	p := DefaultProfile()
	assert.Equal(t, HealthScore{Score: 100, Label: "Excellent"}, Health(p))

	p.Budgets[0].Spent = 70000 // food overrun, ratio 0.875
	p.TotalBalance = 30000
	h := Health(p)
	assert.Equal(t, 100-30-20-5, h.Score)
	assert.Equal(t, "Needs Attention", h.Label)

	p.MonthlyIncome = 0
	assert.Equal(t, "Needs Attention", Health(p).Label)
}

func TestSummarize(t *testing.T) {
	p := DefaultProfile()
	p.Budgets[2].Spent = 2500
	s := Summarize(p)
	assert.Equal(t, 2500.0, s.TotalSpent)
	assert.InDelta(t, 3.1, s.SpendingRatio, 0.01)
	assert.Equal(t, 25.0, s.Budgets[2].UtilizationPct)
}

func TestComplianceEngine(t *testing.T) {
	e := NewComplianceEngine(Rules{})

	clean := e.ValidateTransaction(Transaction{Amount: 500, Category: "food", Merchant: "Swiggy", Timestamp: time.Date(2025, 1, 2, 13, 0, 0, 0, time.UTC)})
	assert.True(t, clean.Compliant)
	assert.Equal(t, "low", clean.RiskLevel)
	assert.Equal(t, 6, clean.RulesChecked)

	bad := e.ValidateTransaction(Transaction{Amount: 1_500_000, Category: "transfer", Merchant: "Crypto Exchange", Timestamp: time.Date(2025, 1, 2, 3, 0, 0, 0, time.UTC)})
	assert.False(t, bad.Compliant)
	require.Len(t, bad.Violations, 3)
	assert.Equal(t, "AML_001", bad.Violations[0].RuleID)
	assert.Equal(t, "FRAUD_001", bad.Violations[1].RuleID)
	assert.Equal(t, "RISK_001", bad.Violations[2].RuleID)
	assert.Equal(t, 80.0, bad.RiskScore)
	assert.Equal(t, "high", bad.RiskLevel)
}

func TestValidateRecommendation(t *testing.T) {
	e := NewComplianceEngine(DefaultRules())
	assert.True(t, e.ValidateRecommendation("Keep an emergency fund.").Safe)

	check := e.ValidateRecommendation("This fund has GUARANTEED RETURNS and no risk")
	assert.False(t, check.Safe)
	assert.Len(t, check.Violations, 2)
}

func TestRupees(t *testing.T) {
	assert.Equal(t, "₹72,990", Rupees(72990))
	assert.Equal(t, "₹1,000,000", Rupees(1e6))
	assert.Equal(t, "₹0", Rupees(0))
	assert.Equal(t, "-₹500", Rupees(-500))
}

func TestRecent(t *testing.T) {
	txns := []Transaction{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	assert.Equal(t, []Transaction{{ID: "2"}, {ID: "3"}}, Recent(txns, 2))
	assert.Len(t, Recent(txns, 10), 3)
}

func TestAssess(t *testing.T) {
	e := NewComplianceEngine(DefaultRules())
	txns := []Transaction{
		{ID: "a", Amount: 200, Merchant: "Cafe", Category: "food"},
		{ID: "b", Amount: 300, Merchant: "Lucky Casino", Category: "entertainment"},
	}
	a := e.Assess(txns, "Spend less on dining.", "")
	assert.Equal(t, 1, a.Flagged)
	assert.Equal(t, 20.0, a.MaxRisk)
	assert.Equal(t, "low", a.RiskLevel)
	assert.True(t, a.Output.Safe)
	assert.Len(t, a.Violations(), 1)

	a = e.Assess(nil, "a ponzi scheme with guaranteed returns")
	assert.Equal(t, 80.0, a.MaxRisk)
	assert.Equal(t, "high", a.RiskLevel)
}

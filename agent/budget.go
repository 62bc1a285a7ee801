package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/finmesh/core"
	"github.com/hupe1980/finmesh/finance"
	"github.com/hupe1980/finmesh/logging"
	"github.com/hupe1980/finmesh/model"
)

// DefaultPurchaseCategory is charged when a purchase has no category.
const DefaultPurchaseCategory = "shopping"

const healthAlertThreshold = 40

const budgetSystemPrompt = `You are a budget advisor for an Indian personal finance assistant.
Using the financial summary and, when present, the affordability check, answer the user's question.
Give a clear verdict first, then two or three practical suggestions. Use ₹ for amounts.`

// BudgetAgent summarizes the profile and checks purchase affordability.
type BudgetAgent struct {
	BaseAgent
}

// NewBudgetAgent creates a budget agent.
func NewBudgetAgent(chain *model.Chain, logger logging.Logger) *BudgetAgent {
	return &BudgetAgent{
		BaseAgent: NewBaseAgent(BudgetAgentName, "Checks budgets, affordability and financial health", KindBudget, chain, logger),
	}
}

// Execute writes BudgetAnalysis, FinancialSummary and, when a purchase amount
// is known, Affordability. The amount is the cheapest shopping quote if one
// exists, else State.PurchaseAmount.
func (a *BudgetAgent) Execute(ctx context.Context, state *core.State) (*core.State, error) {
	profile := profileOf(state)

	a.emit(core.EventPlan, core.StatusAnalyzing, map[string]any{
		"message": "Checking budget and financial health",
	})

	summary := finance.Summarize(profile)
	a.emit(core.EventCallCompleted, core.StatusAnalyzing, map[string]any{
		"tool":         "budget_calculator",
		"action":       "financial_summary",
		"health_score": summary.Health.Score,
	})

	amount, category := purchaseOf(state)

	var afford *finance.Affordability
	if amount > 0 {
		res := finance.CheckAffordability(profile, amount, category)
		afford = &res
		a.emit(core.EventCallCompleted, core.StatusAnalyzing, map[string]any{
			"tool":       "budget_calculator",
			"action":     "affordability",
			"amount":     amount,
			"category":   category,
			"affordable": res.Affordable,
		})
	}

	facts := budgetFacts(summary, afford)

	analysis, ok := a.think(ctx, model.Request{
		SystemPrompt: budgetSystemPrompt,
		Prompt:       fmt.Sprintf("User question: %s\n\n%s", state.Query, facts),
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !ok {
		analysis = facts
	}

	state.BudgetAnalysis = analysis
	state.FinancialSummary = &summary
	state.Affordability = afford
	state.MarkAgentUsed(a.Name())

	status := core.StatusRecommending
	if summary.Health.Score < healthAlertThreshold || (afford != nil && !afford.Affordable) {
		status = core.StatusAlert
	}

	payload := map[string]any{
		"analysis":     analysis,
		"health_score": summary.Health.Score,
		"health_label": summary.Health.Label,
	}
	if afford != nil {
		payload["affordable"] = afford.Affordable
	}
	a.emit(core.EventResult, status, payload)

	return state, nil
}

func purchaseOf(state *core.State) (float64, string) {
	amount := state.PurchaseAmount
	if q, ok := state.Shopping.Cheapest(); ok {
		amount = q.Price
	}

	category := state.PurchaseCategory
	if category == "" {
		category = DefaultPurchaseCategory
	}

	return amount, category
}

func budgetFacts(s finance.Summary, afford *finance.Affordability) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Financial health: %d/100 (%s)\n", s.Health.Score, s.Health.Label)
	fmt.Fprintf(&sb, "Monthly income: %s, spent: %s (%.1f%% of income)\n", finance.Rupees(s.MonthlyIncome), finance.Rupees(s.TotalSpent), s.SpendingRatio)
	fmt.Fprintf(&sb, "Balance: %s, discretionary: %s, savings goal: %s\n", finance.Rupees(s.TotalBalance), finance.Rupees(s.Discretionary), finance.Rupees(s.SavingsGoal))

	var over []string
	for _, b := range s.Budgets {
		if b.Limit > 0 && b.Spent > b.Limit {
			over = append(over, b.Category)
		}
	}
	if len(over) > 0 {
		fmt.Fprintf(&sb, "Over budget: %s\n", strings.Join(over, ", "))
	}

	if afford != nil {
		verdict := "affordable"
		if !afford.Affordable {
			verdict = "not affordable"
		}
		fmt.Fprintf(&sb, "Purchase of %s (%s): %s\n", finance.Rupees(afford.Amount), afford.Category, verdict)
		for _, w := range afford.Warnings {
			fmt.Fprintf(&sb, "Warning: %s\n", w)
		}
		if afford.Recommendation != "" {
			fmt.Fprintf(&sb, "Recommendation: %s\n", afford.Recommendation)
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}

package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hupe1980/finmesh/core"
	"github.com/hupe1980/finmesh/finance"
	"github.com/hupe1980/finmesh/logging"
	"github.com/hupe1980/finmesh/model"
)

const (
	transactionWindow = 20
	transactionLines  = 10
	topCategories     = 5
)

const transactionSystemPrompt = `You are a transaction analysis agent for an Indian personal finance assistant.
Analyze the user's recent transactions and answer their question.
Identify spending patterns, the largest categories and unusual activity.
Be concise and use ₹ for amounts.`

// TransactionAgent analyzes recent transaction history.
type TransactionAgent struct {
	BaseAgent
}

// NewTransactionAgent creates a transaction analysis agent.
func NewTransactionAgent(chain *model.Chain, logger logging.Logger) *TransactionAgent {
	return &TransactionAgent{
		BaseAgent: NewBaseAgent(TransactionAgentName, "Analyzes spending patterns in recent transactions", KindTransaction, chain, logger),
	}
}

// Execute writes TransactionAnalysis.
func (a *TransactionAgent) Execute(ctx context.Context, state *core.State) (*core.State, error) {
	recent := finance.Recent(state.Transactions, transactionWindow)

	a.emit(core.EventPlan, core.StatusAnalyzing, map[string]any{
		"message":      "Analyzing transaction patterns",
		"transactions": len(recent),
	})

	digest := DigestTransactions(recent)

	analysis, ok := a.think(ctx, model.Request{
		SystemPrompt: transactionSystemPrompt,
		Prompt:       fmt.Sprintf("User question: %s\n\nRecent transactions:\n%s", state.Query, digest),
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !ok {
		analysis = digest
	}

	state.TransactionAnalysis = analysis
	state.MarkAgentUsed(a.Name())

	a.emit(core.EventResult, core.StatusIdle, map[string]any{
		"analysis":          analysis,
		"transaction_count": len(recent),
	})

	return state, nil
}

// DigestTransactions renders a compact text overview of txns: the most recent
// lines, debit and credit totals and the top spending categories.
func DigestTransactions(txns []finance.Transaction) string {
	if len(txns) == 0 {
		return "No transactions available."
	}

	var (
		sb       strings.Builder
		debits   float64
		credits  float64
		category = map[string]float64{}
	)

	for _, t := range txns {
		if t.IsCredit {
			credits += t.Amount
			continue
		}
		debits += t.Amount
		category[t.Category] += t.Amount
	}

	fmt.Fprintf(&sb, "%d transactions, %s spent, %s received.\n", len(txns), finance.Rupees(debits), finance.Rupees(credits))

	type total struct {
		name   string
		amount float64
	}
	totals := make([]total, 0, len(category))
	for name, amount := range category {
		totals = append(totals, total{name, amount})
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].amount != totals[j].amount {
			return totals[i].amount > totals[j].amount
		}
		return totals[i].name < totals[j].name
	})
	if len(totals) > topCategories {
		totals = totals[:topCategories]
	}

	if len(totals) > 0 {
		sb.WriteString("Top categories:\n")
		for _, t := range totals {
			fmt.Fprintf(&sb, "- %s: %s\n", t.name, finance.Rupees(t.amount))
		}
	}

	sb.WriteString("Recent:\n")
	for i, t := range txns {
		if i == transactionLines {
			break
		}
		direction := "debit"
		if t.IsCredit {
			direction = "credit"
		}
		fmt.Fprintf(&sb, "- %s %s (%s): %s %s\n", t.Timestamp.Format("2006-01-02"), t.Merchant, t.Category, finance.Rupees(t.Amount), direction)
	}

	return strings.TrimRight(sb.String(), "\n")
}

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

const complianceWindow = 5

const complianceSystemPrompt = `You are a compliance officer for an Indian personal finance assistant.
Explain the compliance findings below in plain language for the user.
Mention every violation with the required action. If there are none, confirm the activity is compliant.`

// ComplianceAgent validates recent transactions and the advice produced by
// earlier agents against the rule set.
type ComplianceAgent struct {
	BaseAgent
	engine *finance.ComplianceEngine
}

// NewComplianceAgent creates a compliance agent. A nil engine uses the
// default rules.
func NewComplianceAgent(engine *finance.ComplianceEngine, chain *model.Chain, logger logging.Logger) *ComplianceAgent {
	if engine == nil {
		engine = finance.NewComplianceEngine(finance.DefaultRules())
	}
	return &ComplianceAgent{
		BaseAgent: NewBaseAgent(ComplianceAgentName, "Validates transactions and advice against compliance rules", KindCompliance, chain, logger),
		engine:    engine,
	}
}

// Execute writes ComplianceAnalysis and Compliance.
func (a *ComplianceAgent) Execute(ctx context.Context, state *core.State) (*core.State, error) {
	recent := finance.Recent(state.Transactions, complianceWindow)

	a.emit(core.EventPlan, core.StatusAnalyzing, map[string]any{
		"message":      "Running compliance checks",
		"transactions": len(recent),
	})

	texts := []string{state.TransactionAnalysis, state.BudgetAnalysis}
	if state.Shopping != nil {
		texts = append(texts, state.Shopping.Recommendation)
	}

	assessment := a.engine.Assess(recent, texts...)

	for _, r := range assessment.Reports {
		if r.Compliant {
			continue
		}
		a.emit(core.EventCallCompleted, core.StatusAlert, map[string]any{
			"tool":           "compliance_engine",
			"transaction_id": r.TransactionID,
			"violations":     len(r.Violations),
			"risk_level":     r.RiskLevel,
		})
	}

	facts := complianceFacts(assessment)

	analysis, ok := a.think(ctx, model.Request{
		SystemPrompt: complianceSystemPrompt,
		Prompt:       fmt.Sprintf("User question: %s\n\nFindings:\n%s", state.Query, facts),
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !ok {
		analysis = facts
	}

	state.ComplianceAnalysis = analysis
	state.Compliance = assessment
	state.MarkAgentUsed(a.Name())

	violations := assessment.Violations()

	status := core.StatusIdle
	if len(violations) > 0 {
		status = core.StatusAlert
	}
	a.emit(core.EventResult, status, map[string]any{
		"analysis":   analysis,
		"violations": len(violations),
		"risk_level": assessment.RiskLevel,
	})

	return state, nil
}

func complianceFacts(a *finance.Assessment) string {
	violations := a.Violations()
	if len(violations) == 0 {
		return fmt.Sprintf("No violations detected across %d transactions. Risk level: %s.", len(a.Reports), a.RiskLevel)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d violation(s) found, %d of %d transactions flagged. Risk level: %s.\n", len(violations), a.Flagged, len(a.Reports), a.RiskLevel)
	for _, v := range violations {
		fmt.Fprintf(&sb, "- [%s] %s (%s). Action: %s\n", v.RuleID, v.Message, v.Severity, v.Action)
	}

	return strings.TrimRight(sb.String(), "\n")
}

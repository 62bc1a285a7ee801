package finance

import (
	"fmt"
	"strings"
)

// Severity grades a rule violation.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

func (s Severity) weight() float64 {
	switch s {
	case SeverityHigh:
		return 40
	case SeverityMedium:
		return 20
	default:
		return 10
	}
}

// Violation is one failed rule check.
type Violation struct {
	RuleID   string   `json:"rule_id"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Action   string   `json:"action"`
}

// Report is the validation result for a single transaction.
type Report struct {
	TransactionID string      `json:"transaction_id,omitempty"`
	Compliant     bool        `json:"compliant"`
	Violations    []Violation `json:"violations"`
	RiskScore     float64     `json:"risk_score"`
	RiskLevel     string      `json:"risk_level"`
	RulesChecked  int         `json:"rules_checked"`
}

// OutputCheck is the result of validating generated advice text.
type OutputCheck struct {
	Safe       bool        `json:"safe"`
	Violations []Violation `json:"violations"`
}

// Rules is the configurable content of the compliance engine. Rule content is
// data; the engine only evaluates it.
type Rules struct {
	// LargeAmount flags transactions at or above this value (AML_001).
	LargeAmount float64
	// UnusualHourStart and UnusualHourEnd bound the inclusive hour window
	// (local to the transaction timestamp) flagged by FRAUD_001.
	UnusualHourStart int
	UnusualHourEnd   int
	// HighRiskTerms are matched against merchant and category (RISK_001).
	HighRiskTerms []string
	// UnsafeTerms must never appear in generated recommendations.
	UnsafeTerms []string
	// Catalog is the number of rules reported as checked.
	Catalog int
}

// DefaultRules mirrors the RBI oriented defaults shipped with the demo.
func DefaultRules() Rules {
	return Rules{
		LargeAmount:      1_000_000,
		UnusualHourStart: 1,
		UnusualHourEnd:   5,
		HighRiskTerms:    []string{"gambling", "casino", "crypto", "forex", "betting"},
		UnsafeTerms: []string{
			"guaranteed returns", "no risk", "insider", "tax evasion",
			"hide income", "unregulated", "ponzi", "pyramid",
		},
		Catalog: 6,
	}
}

// ComplianceEngine validates transactions and generated advice against Rules.
type ComplianceEngine struct {
	rules Rules
}

// NewComplianceEngine creates an engine. A zero Rules value selects DefaultRules.
func NewComplianceEngine(rules Rules) *ComplianceEngine {
	if rules.LargeAmount == 0 && len(rules.HighRiskTerms) == 0 && len(rules.UnsafeTerms) == 0 {
		rules = DefaultRules()
	}
	return &ComplianceEngine{rules: rules}
}

// ValidateTransaction runs every transaction rule against t.
func (e *ComplianceEngine) ValidateTransaction(t Transaction) Report {
	var violations []Violation

	if e.rules.LargeAmount > 0 && t.Amount >= e.rules.LargeAmount {
		violations = append(violations, Violation{
			RuleID:   "AML_001",
			Severity: SeverityHigh,
			Message:  fmt.Sprintf("Transaction of %s exceeds AML reporting threshold (%s)", Rupees(t.Amount), Rupees(e.rules.LargeAmount)),
			Action:   "Report to Financial Intelligence Unit",
		})
	}

	if !t.Timestamp.IsZero() {
		if h := t.Timestamp.Hour(); h >= e.rules.UnusualHourStart && h <= e.rules.UnusualHourEnd {
			violations = append(violations, Violation{
				RuleID:   "FRAUD_001",
				Severity: SeverityMedium,
				Message:  fmt.Sprintf("Transaction at unusual hour (%d:00). Potential unauthorized access.", h),
				Action:   "Verify with account holder",
			})
		}
	}

	category := strings.ToLower(t.Category)
	merchant := strings.ToLower(t.Merchant)
	for _, term := range e.rules.HighRiskTerms {
		if strings.Contains(category, term) || strings.Contains(merchant, term) {
			violations = append(violations, Violation{
				RuleID:   "RISK_001",
				Severity: SeverityMedium,
				Message:  "Transaction with high-risk merchant/category: " + t.Merchant,
				Action:   "Enhanced due diligence required",
			})
			break
		}
	}

	score := riskScore(violations)
	return Report{
		TransactionID: t.ID,
		Compliant:     len(violations) == 0,
		Violations:    violations,
		RiskScore:     score,
		RiskLevel:     RiskLevel(score),
		RulesChecked:  e.rules.Catalog,
	}
}

// ValidateRecommendation checks generated advice for unsafe language.
func (e *ComplianceEngine) ValidateRecommendation(text string) OutputCheck {
	lower := strings.ToLower(text)
	var violations []Violation
	for _, term := range e.rules.UnsafeTerms {
		if strings.Contains(lower, term) {
			violations = append(violations, Violation{
				RuleID:   "COMPLIANCE_OUTPUT",
				Severity: SeverityHigh,
				Message:  fmt.Sprintf("Recommendation contains unsafe term: '%s'", term),
				Action:   "Rewrite recommendation to remove unsafe language",
			})
		}
	}
	return OutputCheck{Safe: len(violations) == 0, Violations: violations}
}

// RiskLevel maps a 0-100 score to low, medium or high.
func RiskLevel(score float64) string {
	switch {
	case score > 70:
		return "high"
	case score > 30:
		return "medium"
	default:
		return "low"
	}
}

func riskScore(violations []Violation) float64 {
	var total float64
	for _, v := range violations {
		total += v.Severity.weight()
	}
	return min(100, total)
}

// Assessment aggregates transaction reports and the output check for one
// compliance pass.
type Assessment struct {
	Reports   []Report    `json:"reports"`
	Output    OutputCheck `json:"output"`
	Flagged   int         `json:"flagged"`
	MaxRisk   float64     `json:"max_risk"`
	RiskLevel string      `json:"risk_level"`
}

// Violations returns every violation found, transactions first.
func (a *Assessment) Violations() []Violation {
	var out []Violation
	for _, r := range a.Reports {
		out = append(out, r.Violations...)
	}
	return append(out, a.Output.Violations...)
}

// Assess validates txns and the concatenation of texts.
func (e *ComplianceEngine) Assess(txns []Transaction, texts ...string) *Assessment {
	a := &Assessment{Reports: make([]Report, 0, len(txns))}
	for _, t := range txns {
		r := e.ValidateTransaction(t)
		if !r.Compliant {
			a.Flagged++
		}
		a.MaxRisk = max(a.MaxRisk, r.RiskScore)
		a.Reports = append(a.Reports, r)
	}
	a.Output = e.ValidateRecommendation(strings.Join(texts, "\n"))
	if !a.Output.Safe {
		a.MaxRisk = max(a.MaxRisk, riskScore(a.Output.Violations))
	}
	a.RiskLevel = RiskLevel(a.MaxRisk)
	return a
}

package agent

import (
	"github.com/hupe1980/finmesh/core"
	"github.com/hupe1980/finmesh/finance"
	"github.com/hupe1980/finmesh/logging"
	"github.com/hupe1980/finmesh/model"
	"github.com/hupe1980/finmesh/retrieval"
	"github.com/hupe1980/finmesh/search"
)

// Deps are the shared, concurrency safe collaborators of the agents. Any of
// them may be nil; the agents degrade accordingly.
type Deps struct {
	Model      *model.Chain
	Search     *search.Chain
	Retriever  *retrieval.Retriever
	Compliance *finance.ComplianceEngine
	Logger     logging.Logger
	// TopK is the number of passages retrieved for research.
	TopK int
}

// Suite is one set of agents. Agents buffer events per request, so build a
// Suite per request.
type Suite struct {
	Transaction Agent
	Budget      Agent
	Compliance  Agent
	Shopping    Agent
	Research    Agent
	Synthesis   Agent
}

// NewSuite builds fresh agents over deps.
func NewSuite(deps Deps) *Suite {
	return &Suite{
		Transaction: NewTransactionAgent(deps.Model, deps.Logger),
		Budget:      NewBudgetAgent(deps.Model, deps.Logger),
		Compliance:  NewComplianceAgent(deps.Compliance, deps.Model, deps.Logger),
		Shopping:    NewShoppingAgent(deps.Search, deps.Model, deps.Logger),
		Research:    NewResearchAgent(deps.Retriever, deps.TopK, deps.Model, deps.Logger),
		Synthesis:   NewSynthesisAgent(deps.Model, deps.Logger),
	}
}

// For returns the specialist for a capability, or nil for General.
func (s *Suite) For(c core.Capability) Agent {
	switch c {
	case core.CapabilityTransaction:
		return s.Transaction
	case core.CapabilityBudget:
		return s.Budget
	case core.CapabilityCompliance:
		return s.Compliance
	case core.CapabilityShopping:
		return s.Shopping
	case core.CapabilityDocumentResearch:
		return s.Research
	default:
		return nil
	}
}

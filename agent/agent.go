package agent

import (
	"context"
	"sync"

	"github.com/hupe1980/finmesh/core"
	"github.com/hupe1980/finmesh/finance"
	"github.com/hupe1980/finmesh/logging"
	"github.com/hupe1980/finmesh/model"
)

// Kind identifies the specialization of an agent.
type Kind string

const (
	KindTransaction Kind = "transaction-analysis"
	KindBudget      Kind = "budget-check"
	KindCompliance  Kind = "compliance-check"
	KindShopping    Kind = "shopping-search"
	KindResearch    Kind = "document-research"
	KindSynthesis   Kind = "synthesis"
)

// Agent names as they appear in events and State.AgentsUsed.
const (
	TransactionAgentName = "transaction_agent"
	BudgetAgentName      = "budget_agent"
	ComplianceAgentName  = "compliance_agent"
	ShoppingAgentName    = "shopping_agent"
	ResearchAgentName    = "research_agent"
	SynthesisAgentName   = "synthesis_agent"
)

// Agent is a specialist that transforms the request state.
//
// Execute writes the agent's owned fields into state and returns it. Events
// produced along the way are buffered and handed out by DrainEvents, which
// empties the buffer.
type Agent interface {
	Name() string
	Kind() Kind
	Execute(ctx context.Context, state *core.State) (*core.State, error)
	DrainEvents() []core.Event
}

// BaseAgent bundles identity, the event buffer and generation helpers. Embed
// it in concrete agents. The event buffer is goroutine-safe.
type BaseAgent struct {
	name        string
	description string
	kind        Kind
	model       *model.Chain
	logger      logging.Logger

	mu     sync.Mutex
	events []core.Event
}

// NewBaseAgent constructs a BaseAgent. A nil chain disables generation and
// every think call degrades.
func NewBaseAgent(name, description string, kind Kind, chain *model.Chain, logger logging.Logger) BaseAgent {
	return BaseAgent{
		name:        name,
		description: description,
		kind:        kind,
		model:       chain,
		logger:      logging.OrNoOp(logger),
	}
}

// Name returns the agent name.
func (b *BaseAgent) Name() string { return b.name }

// Description returns a short description of the agent's purpose.
func (b *BaseAgent) Description() string { return b.description }

// Kind returns the agent specialization.
func (b *BaseAgent) Kind() Kind { return b.kind }

// DrainEvents returns and clears the buffered events.
func (b *BaseAgent) DrainEvents() []core.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := b.events
	b.events = nil

	return out
}

func (b *BaseAgent) emit(kind core.EventKind, status core.Status, payload map[string]any) {
	ev := core.NewEvent(kind, b.name, status, payload)

	b.mu.Lock()
	b.events = append(b.events, ev)
	b.mu.Unlock()
}

// think runs one generation. ok is false when no provider produced text; the
// caller then falls back to deterministic output.
func (b *BaseAgent) think(ctx context.Context, req model.Request) (string, bool) {
	if b.model == nil {
		return "", false
	}

	b.emit(core.EventCallIssued, core.StatusThinking, map[string]any{
		"tool":      "generation",
		"providers": b.model.Providers(),
	})

	gen := b.model.Generate(ctx, req)

	payload := map[string]any{
		"tool":     "generation",
		"backend":  gen.Backend,
		"degraded": gen.Degraded,
	}
	if gen.Degraded {
		payload["failures"] = len(gen.Failures)
		b.logger.Warn("generation degraded", "agent", b.name, "error", gen.Err)
	}
	b.emit(core.EventCallCompleted, core.StatusThinking, payload)

	if gen.Degraded {
		return "", false
	}

	return gen.Text, true
}

func profileOf(state *core.State) *finance.Profile {
	if state.Profile != nil {
		return state.Profile
	}
	return finance.DefaultProfile()
}

package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/finmesh/core"
	"github.com/hupe1980/finmesh/logging"
	"github.com/hupe1980/finmesh/model"
)

// UnavailableMessage answers general queries when no model is reachable.
const UnavailableMessage = "I can't answer general questions right now because no language model is available. Try asking about your spending, budget, compliance or a product price."

// SectionSeparator joins specialist sections in the deterministic answer.
const SectionSeparator = "\n\n---\n\n"

const synthesisSystemPrompt = `You are a personal finance assistant for users in India.
Combine the specialist findings below into one clear, well structured answer to the user's question.
Lead with the direct answer, keep the key numbers, and list any compliance alerts.
Do not invent figures that are not in the findings. Use ₹ for amounts.`

const generalSystemPrompt = `You are a helpful personal finance assistant for users in India.
Answer the user's question concisely. Use ₹ for amounts.`

// SynthesisAgent composes FinalResponse from the specialist output.
type SynthesisAgent struct {
	BaseAgent
}

// NewSynthesisAgent creates a synthesis agent.
func NewSynthesisAgent(chain *model.Chain, logger logging.Logger) *SynthesisAgent {
	return &SynthesisAgent{
		BaseAgent: NewBaseAgent(SynthesisAgentName, "Composes the final answer", KindSynthesis, chain, logger),
	}
}

// Section is one titled block of specialist output.
type Section struct {
	Title string
	Body  string
}

// Sections collects the non-empty specialist analyses in presentation order.
func Sections(state *core.State) []Section {
	var shopping string
	if state.Shopping != nil {
		shopping = state.Shopping.Recommendation
	}

	candidates := []Section{
		{"Transaction Intelligence", state.TransactionAnalysis},
		{"Budget Analysis", state.BudgetAnalysis},
		{"Compliance Status", state.ComplianceAnalysis},
		{"Shopping Intelligence", shopping},
		{"Document Research", state.ResearchAnalysis},
	}

	out := candidates[:0]
	for _, s := range candidates {
		if strings.TrimSpace(s.Body) != "" {
			out = append(out, s)
		}
	}
	return out
}

// Compose renders sections with their titles, separated by SectionSeparator.
func Compose(sections []Section) string {
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		parts = append(parts, s.Title+":\n"+strings.TrimSpace(s.Body))
	}
	return strings.Join(parts, SectionSeparator)
}

// Execute writes FinalResponse.
func (a *SynthesisAgent) Execute(ctx context.Context, state *core.State) (*core.State, error) {
	sections := Sections(state)

	a.emit(core.EventPlan, core.StatusThinking, map[string]any{
		"message":  "Composing the answer",
		"sections": len(sections),
	})

	var (
		answer string
		ok     bool
	)
	if len(sections) == 0 {
		answer, ok = a.think(ctx, model.Request{
			SystemPrompt: generalSystemPrompt,
			Prompt:       state.Query,
		})
		if !ok {
			answer = UnavailableMessage
		}
	} else {
		composed := Compose(sections)
		answer, ok = a.think(ctx, model.Request{
			SystemPrompt: synthesisSystemPrompt,
			Prompt:       fmt.Sprintf("User question: %s\n\nSpecialist findings:\n\n%s", state.Query, composed),
		})
		if !ok {
			answer = composed
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(state.Citations) > 0 && !strings.Contains(answer, "Sources:") {
		answer += "\n\nSources: " + strings.Join(state.Citations, ", ")
	}

	state.FinalResponse = answer
	state.MarkAgentUsed(a.Name())

	a.emit(core.EventResult, core.StatusIdle, map[string]any{
		"sections": len(sections),
		"length":   len(answer),
	})

	return state, nil
}

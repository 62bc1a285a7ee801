package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/finmesh/core"
	"github.com/hupe1980/finmesh/logging"
	"github.com/hupe1980/finmesh/model"
	"github.com/hupe1980/finmesh/retrieval"
	"github.com/hupe1980/finmesh/search"
)

// DefaultTopK is the number of passages the research agent retrieves.
const DefaultTopK = 5

const excerptRunes = 300

const researchSystemPrompt = `You are a financial document research agent.
Answer the user's question using ONLY the provided document excerpts.
Cite sources by name. If the excerpts do not contain the answer, say so.`

// ResearchAgent answers questions from the document corpus through hybrid
// retrieval.
type ResearchAgent struct {
	BaseAgent
	retriever *retrieval.Retriever
	topK      int
}

// NewResearchAgent creates a research agent. A nil retriever behaves like an
// empty corpus.
func NewResearchAgent(retriever *retrieval.Retriever, topK int, chain *model.Chain, logger logging.Logger) *ResearchAgent {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &ResearchAgent{
		BaseAgent: NewBaseAgent(ResearchAgentName, "Researches uploaded financial documents", KindResearch, chain, logger),
		retriever: retriever,
		topK:      topK,
	}
}

// Execute writes ResearchAnalysis and RetrievalMethod and adds Citations.
func (a *ResearchAgent) Execute(ctx context.Context, state *core.State) (*core.State, error) {
	a.emit(core.EventPlan, core.StatusSearching, map[string]any{
		"message": "Searching the knowledge base",
	})
	a.emit(core.EventCallIssued, core.StatusSearching, map[string]any{
		"tool":  "hybrid_retriever",
		"query": state.Query,
		"top_k": a.topK,
	})

	res := retrieval.Retrieval{Results: []retrieval.Document{}, Method: retrieval.MethodNone, Message: retrieval.NoDocumentsMessage}
	if a.retriever != nil {
		res = a.retriever.Retrieve(ctx, state.Query, a.topK)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.emit(core.EventCallCompleted, core.StatusSearching, map[string]any{
		"tool":             "hybrid_retriever",
		"method":           res.Method,
		"results":          len(res.Results),
		"total_candidates": res.TotalCandidates,
	})

	state.RetrievalMethod = res.Method
	state.MarkAgentUsed(a.Name())

	if len(res.Results) == 0 {
		state.ResearchAnalysis = res.Message
		a.emit(core.EventResult, core.StatusIdle, map[string]any{
			"analysis": res.Message,
			"method":   res.Method,
		})
		return state, nil
	}

	citations := make([]string, 0, len(res.Results))
	var sb strings.Builder
	for i, d := range res.Results {
		src := d.Source()
		if src == "" {
			src = fmt.Sprintf("Document %d", i+1)
		}
		citations = append(citations, src)
		fmt.Fprintf(&sb, "[%s]\n%s\n\n", src, d.Text)
	}

	analysis, ok := a.think(ctx, model.Request{
		SystemPrompt: researchSystemPrompt,
		Prompt:       fmt.Sprintf("Question: %s\n\nDocument excerpts:\n%s", state.Query, sb.String()),
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !ok {
		analysis = excerpts(res.Results, citations)
	}

	state.ResearchAnalysis = analysis
	state.AddCitations(citations...)

	a.emit(core.EventResult, core.StatusRecommending, map[string]any{
		"analysis":  analysis,
		"method":    res.Method,
		"citations": citations,
	})

	return state, nil
}

func excerpts(docs []retrieval.Document, sources []string) string {
	var sb strings.Builder
	sb.WriteString("Relevant passages from your documents:\n")
	for i, d := range docs {
		fmt.Fprintf(&sb, "- %s (%s)\n", search.Truncate(strings.TrimSpace(d.Text), excerptRunes), sources[i])
	}
	return strings.TrimRight(sb.String(), "\n")
}

package agent

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hupe1980/finmesh/core"
	"github.com/hupe1980/finmesh/finance"
	"github.com/hupe1980/finmesh/logging"
	"github.com/hupe1980/finmesh/model"
	"github.com/hupe1980/finmesh/search"
)

// DemoProvider labels shopping results built from demonstration prices.
const DemoProvider = "demo"

const (
	defaultSearchResults = 5
	maxSnippets          = 10
)

const productSystemPrompt = `Extract just the product name from the user's query. Reply with ONLY the product name, nothing else.`

const priceSystemPrompt = `Extract product prices from these search results.
Return a structured list in this exact format:
RETAILER: name
PRICE: number (in INR, numbers only)
RATING: number out of 5
URL: url

List each retailer on separate lines. If price is not found, write PRICE: N/A.
Only include real data found in the search results. Never fabricate prices.`

const recommendSystemPrompt = `You are the shopping intelligence agent.
Provide a concise, structured recommendation based on the observed prices.
Include the best value pick, a price comparison and the budget impact.
Never invent prices.`

// demoQuotes are shown when live search is unavailable or yields no prices.
var demoQuotes = []core.PriceQuote{
	{Retailer: "Amazon", Price: 72990, Rating: 4.6, URL: "https://www.amazon.in"},
	{Retailer: "Flipkart", Price: 73499, Rating: 4.5, URL: "https://www.flipkart.com"},
	{Retailer: "Croma", Price: 74000, Rating: 4.4, URL: "https://www.croma.com"},
}

var fillerWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "me": {}, "my": {}, "i": {}, "to": {}, "for": {}, "of": {}, "on": {}, "in": {},
	"find": {}, "search": {}, "buy": {}, "purchase": {}, "get": {}, "show": {}, "compare": {}, "want": {},
	"cheapest": {}, "cheap": {}, "best": {}, "lowest": {}, "price": {}, "prices": {}, "deal": {}, "deals": {},
	"under": {}, "within": {}, "budget": {}, "online": {}, "please": {}, "can": {}, "you": {}, "should": {},
}

// ShoppingAgent searches retailers for a product and picks the best offer.
// It sets PurchaseAmount to the cheapest quote for the budget check that
// follows it.
type ShoppingAgent struct {
	BaseAgent
	search  *search.Chain
	results int
}

// NewShoppingAgent creates a shopping agent. A nil or empty search chain
// switches the agent to demonstration prices.
func NewShoppingAgent(searcher *search.Chain, chain *model.Chain, logger logging.Logger) *ShoppingAgent {
	return &ShoppingAgent{
		BaseAgent: NewBaseAgent(ShoppingAgentName, "Compares retailer prices for a product", KindShopping, chain, logger),
		search:    searcher,
		results:   defaultSearchResults,
	}
}

// Execute writes Shopping, PurchaseAmount and PurchaseCategory.
func (a *ShoppingAgent) Execute(ctx context.Context, state *core.State) (*core.State, error) {
	product := a.extractProduct(ctx, state.Query)
	queries := ShoppingQueries(product)

	a.emit(core.EventPlan, core.StatusSearching, map[string]any{
		"message": "Searching retailers for " + product,
		"product": product,
		"steps":   []string{"search retailers", "extract prices", "compare offers", "recommend"},
		"queries": queries,
	})

	var (
		snippets []string
		provider string
	)

	live := a.search != nil && a.search.Configured()
	for _, q := range queries {
		a.emit(core.EventCallIssued, core.StatusSearching, map[string]any{
			"tool":  "web_search",
			"query": q,
		})

		if !live {
			a.emit(core.EventCallCompleted, core.StatusSearching, map[string]any{
				"tool":     "web_search",
				"query":    q,
				"provider": DemoProvider,
				"results":  0,
				"degraded": true,
			})
			continue
		}

		resp := a.search.Search(ctx, q, a.results)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if provider == "" && !resp.Degraded {
			provider = resp.Provider
		}
		for _, r := range resp.Results {
			snippets = append(snippets, fmt.Sprintf("[%s] %s: %s", r.URL, r.Title, r.Snippet))
		}

		a.emit(core.EventCallCompleted, core.StatusSearching, map[string]any{
			"tool":     "web_search",
			"query":    q,
			"provider": resp.Provider,
			"results":  len(resp.Results),
			"degraded": resp.Degraded,
		})
	}

	var quotes []core.PriceQuote
	if len(snippets) > 0 {
		quotes = a.extractPrices(ctx, product, snippets)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	result := &core.ShoppingResult{
		Product:  product,
		Queries:  queries,
		Quotes:   quotes,
		Provider: provider,
	}
	if len(quotes) == 0 {
		result.Quotes = append([]core.PriceQuote(nil), demoQuotes...)
		result.Provider = DemoProvider
		result.Demo = true
	}

	result.Recommendation = a.recommend(ctx, state.Query, result)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	best, _ := result.Cheapest()

	state.Shopping = result
	state.PurchaseAmount = best.Price
	state.PurchaseCategory = DefaultPurchaseCategory
	state.MarkAgentUsed(a.Name())

	a.emit(core.EventResult, core.StatusRecommending, map[string]any{
		"product":        product,
		"quotes":         len(result.Quotes),
		"best_retailer":  best.Retailer,
		"best_price":     best.Price,
		"demo":           result.Demo,
		"recommendation": result.Recommendation,
	})

	return state, nil
}

func (a *ShoppingAgent) extractProduct(ctx context.Context, query string) string {
	text, ok := a.think(ctx, model.Request{
		SystemPrompt: productSystemPrompt,
		Prompt:       query,
		Temperature:  0.1,
	})
	if ok {
		line, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
		if p := strings.Trim(strings.TrimSpace(line), `"'.`); p != "" {
			return p
		}
	}
	return ExtractProduct(query)
}

func (a *ShoppingAgent) extractPrices(ctx context.Context, product string, snippets []string) []core.PriceQuote {
	if len(snippets) > maxSnippets {
		snippets = snippets[:maxSnippets]
	}

	text, ok := a.think(ctx, model.Request{
		SystemPrompt: priceSystemPrompt,
		Prompt:       fmt.Sprintf("Product: %s\n\nSearch results:\n%s", product, strings.Join(snippets, "\n")),
		Temperature:  0.1,
	})
	if !ok {
		return nil
	}

	return ParsePriceList(text)
}

func (a *ShoppingAgent) recommend(ctx context.Context, query string, r *core.ShoppingResult) string {
	var sb strings.Builder
	for _, q := range r.Quotes {
		fmt.Fprintf(&sb, "- %s: %s (rating %.1f) %s\n", q.Retailer, finance.Rupees(q.Price), q.Rating, q.URL)
	}

	text, ok := a.think(ctx, model.Request{
		SystemPrompt: recommendSystemPrompt,
		Prompt:       fmt.Sprintf("Product: %s\nUser query: %s\n\nPrice data:\n%s", r.Product, query, sb.String()),
	})
	if ok {
		return text
	}

	best, _ := r.Cheapest()
	rec := fmt.Sprintf("Best value for %s: %s at %s", r.Product, best.Retailer, finance.Rupees(best.Price))
	if best.Rating > 0 {
		rec += fmt.Sprintf(" (rating %.1f/5)", best.Rating)
	}
	rec += ".\nPrices compared:\n" + strings.TrimRight(sb.String(), "\n")
	if r.Demo {
		rec += "\nPrices are indicative; live search is unavailable."
	}
	return rec
}

// ShoppingQueries returns the retailer queries issued for product.
func ShoppingQueries(product string) []string {
	return []string{
		product + " price Amazon India",
		product + " price Flipkart",
		product + " best deal India 2025",
	}
}

// ExtractProduct strips shopping verbs and filler words from query. It returns
// the trimmed query when nothing is left.
func ExtractProduct(query string) string {
	var kept []string
	for _, w := range strings.Fields(query) {
		clean := strings.ToLower(strings.Trim(w, ".,!?\"'"))
		if clean == "" {
			continue
		}
		if _, filler := fillerWords[clean]; filler {
			continue
		}
		kept = append(kept, strings.Trim(w, ".,!?\"'"))
	}
	if len(kept) == 0 {
		return strings.TrimSpace(query)
	}
	return strings.Join(kept, " ")
}

// firstNumber matches the first amount in a value, with Western or Indian
// digit grouping and an optional lakh or crore suffix.
var firstNumber = regexp.MustCompile(`(?i)(\d[\d,]*(?:\.\d+)?)(?:\s*(lakhs?|lacs?|crores?|cr)\b)?`)

var unitMultiplier = map[string]float64{
	"lakh": 1e5, "lakhs": 1e5, "lac": 1e5, "lacs": 1e5,
	"crore": 1e7, "crores": 1e7, "cr": 1e7,
}

// ParsePriceList parses RETAILER/PRICE/RATING/URL blocks. Quotes without a
// positive price are dropped.
func ParsePriceList(text string) []core.PriceQuote {
	var (
		out     []core.PriceQuote
		current *core.PriceQuote
	)

	flush := func() {
		if current != nil && current.Retailer != "" && current.Price > 0 {
			out = append(out, *current)
		}
		current = nil
	}

	for _, line := range strings.Split(text, "\n") {
		key, value, found := strings.Cut(strings.TrimSpace(line), ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.ToUpper(strings.TrimLeft(strings.TrimSpace(key), "-* ")) {
		case "RETAILER":
			flush()
			current = &core.PriceQuote{Retailer: value}
		case "PRICE":
			if current != nil {
				current.Price = parseNumber(value)
			}
		case "RATING":
			if current != nil {
				value, _, _ = strings.Cut(value, "/")
				value, _, _ = strings.Cut(value, "out")
				current.Rating = parseNumber(value)
			}
		case "URL":
			if current != nil {
				current.URL = value
			}
		}
	}
	flush()

	return out
}

// parseNumber reads the first amount in s. Ranges resolve to their lower
// bound; anything unparsable yields 0.
func parseNumber(s string) float64 {
	m := firstNumber.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0
	}
	if mul, ok := unitMultiplier[strings.ToLower(m[2])]; ok {
		v *= mul
	}
	return v
}

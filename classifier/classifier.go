// Package classifier maps a free-text query to the set of capabilities it
// needs. Classification is a deterministic, case-insensitive substring match
// against configurable trigger phrases; it performs no I/O and cannot fail.
package classifier

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/hupe1980/finmesh/core"
)

// Triggers maps each capability to the phrases that activate it.
type Triggers map[core.Capability][]string

// DefaultTriggers returns the built-in phrase table.
func DefaultTriggers() Triggers {
	return Triggers{
		core.CapabilityShopping: {
			"buy", "purchase", "price", "cost", "deal", "compare", "shop", "order",
			"find me", "cheapest", "best value", "how much",
		},
		core.CapabilityTransaction: {
			"transaction", "spending", "spent", "payment", "transfer", "expense",
			"income", "salary",
		},
		core.CapabilityBudget: {
			"afford", "save", "savings", "overspend", "financial health", "balance",
			"spending", "this month", "monthly budget", "budget status", "budget limit",
		},
		core.CapabilityCompliance: {
			"compliance", "regulation", "rule", "legal", "fraud", "suspicious",
			"aml", "kyc",
		},
		core.CapabilityDocumentResearch: {
			"policy", "document", "clause", "agreement", "terms", "conditions",
			"insurance", "loan", "contract",
		},
	}
}

// Classifier assigns capability tags to queries.
type Classifier struct {
	triggers Triggers
}

// New creates a classifier. Phrases are lower-cased; empty phrases and the
// General capability are ignored.
func New(triggers Triggers) *Classifier {
	normalized := make(Triggers, len(triggers))
	for c, phrases := range triggers {
		if c == core.CapabilityGeneral {
			continue
		}
		for _, p := range phrases {
			if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
				normalized[c] = append(normalized[c], p)
			}
		}
	}
	return &Classifier{triggers: normalized}
}

// Classify returns every capability with at least one trigger phrase
// contained in query. When nothing matches the result is exactly {general}.
func (c *Classifier) Classify(query string) core.CapabilitySet {
	q := strings.ToLower(query)
	tags := core.NewCapabilitySet()
	for capability, phrases := range c.triggers {
		for _, p := range phrases {
			if strings.Contains(q, p) {
				tags.Add(capability)
				break
			}
		}
	}
	if len(tags) == 0 {
		tags.Add(core.CapabilityGeneral)
	}
	return tags
}

// Triggers returns a copy of the active phrase table.
func (c *Classifier) Triggers() Triggers {
	out := make(Triggers, len(c.triggers))
	for k, v := range c.triggers {
		out[k] = slices.Clone(v)
	}
	return out
}

type triggerFile struct {
	// Replace drops the built-in table instead of extending it.
	Replace  bool                `toml:"replace"`
	Triggers map[string][]string `toml:"triggers"`
}

// LoadTriggers reads a TOML trigger table of the form
//
//	replace = false
//	[triggers]
//	budget = ["afford", "runway"]
//	document-research = ["warranty"]
//
// By default the file extends DefaultTriggers; set replace = true to use only
// the phrases in the file.
func LoadTriggers(path string) (Triggers, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trigger file: %w", err)
	}
	return ParseTriggers(data)
}

// ParseTriggers decodes a TOML trigger table. See LoadTriggers.
func ParseTriggers(data []byte) (Triggers, error) {
	var f triggerFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode trigger file: %w", err)
	}

	out := Triggers{}
	if !f.Replace {
		out = DefaultTriggers()
	}

	for _, name := range slices.Sorted(maps.Keys(f.Triggers)) {
		c, ok := core.ParseCapability(name)
		if !ok || c == core.CapabilityGeneral {
			return nil, fmt.Errorf("unknown capability %q in trigger file", name)
		}
		out[c] = append(out[c], f.Triggers[name]...)
	}
	return out, nil
}

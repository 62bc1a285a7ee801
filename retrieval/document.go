package retrieval

import (
	"encoding/json"
	"fmt"
	"os"
)

// FingerprintRunes is the prefix length used to deduplicate documents.
const FingerprintRunes = 100

// Lane names.
const (
	LaneVector = "vector"
	LaneBM25   = "bm25"
)

// Document is an indexed passage.
type Document struct {
	ID       string         `json:"id,omitempty"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`

	// Score is the lane specific relevance score.
	Score float64 `json:"score,omitempty"`
	// Lane names the lane that produced the document.
	Lane string `json:"lane,omitempty"`
	// RerankScore is set when a reranker ordered the document.
	RerankScore *float64 `json:"rerank_score,omitempty"`
}

// Fingerprint returns the first FingerprintRunes runes of the text. Two
// documents with the same fingerprint are considered duplicates.
func (d Document) Fingerprint() string {
	r := []rune(d.Text)
	if len(r) > FingerprintRunes {
		r = r[:FingerprintRunes]
	}
	return string(r)
}

// Source returns the "source" metadata entry, falling back to the ID.
func (d Document) Source() string {
	if s, ok := d.Metadata["source"].(string); ok && s != "" {
		return s
	}
	return d.ID
}

// LoadDocuments reads a JSON array of documents from path.
func LoadDocuments(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	var docs []Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("decode corpus %s: %w", path, err)
	}
	return docs, nil
}

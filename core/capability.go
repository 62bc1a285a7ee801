package core

import "strings"

// Capability is an intent tag the classifier can assign to a query. Each
// capability (except General) selects one specialized agent.
type Capability string

const (
	CapabilityTransaction      Capability = "transaction"
	CapabilityBudget           Capability = "budget"
	CapabilityCompliance       Capability = "compliance"
	CapabilityShopping         Capability = "shopping"
	CapabilityDocumentResearch Capability = "document-research"
	CapabilityGeneral          Capability = "general"
)

// Capabilities lists every capability in declared order. Iteration over a
// CapabilitySet always follows this order.
var Capabilities = []Capability{
	CapabilityTransaction,
	CapabilityBudget,
	CapabilityCompliance,
	CapabilityShopping,
	CapabilityDocumentResearch,
	CapabilityGeneral,
}

// ParseCapability resolves a capability name. It also accepts "rag" as an
// alias for document research.
func ParseCapability(s string) (Capability, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "rag" {
		return CapabilityDocumentResearch, true
	}
	for _, c := range Capabilities {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// CapabilitySet is an unordered set of capabilities.
type CapabilitySet map[Capability]struct{}

// NewCapabilitySet builds a set from caps.
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	s := make(CapabilitySet, len(caps))
	for _, c := range caps {
		s[c] = struct{}{}
	}
	return s
}

// Add inserts c.
func (s CapabilitySet) Add(c Capability) { s[c] = struct{}{} }

// Has reports whether c is in the set.
func (s CapabilitySet) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

// HasAny reports whether at least one of caps is in the set.
func (s CapabilitySet) HasAny(caps ...Capability) bool {
	for _, c := range caps {
		if s.Has(c) {
			return true
		}
	}
	return false
}

// Slice returns the members in declared order.
func (s CapabilitySet) Slice() []Capability {
	out := make([]Capability, 0, len(s))
	for _, c := range Capabilities {
		if s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// Strings returns the members as strings in declared order.
func (s CapabilitySet) Strings() []string {
	caps := s.Slice()
	out := make([]string, len(caps))
	for i, c := range caps {
		out[i] = string(c)
	}
	return out
}

func (s CapabilitySet) String() string { return strings.Join(s.Strings(), ",") }

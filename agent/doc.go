// Package agent contains the specialized financial agents orchestrated by the
// engine. The package focuses on three concerns:
//
//  1. Shared plumbing (BaseAgent): identity, the drainable event buffer and
//     generation through a model.Chain with graceful degradation
//  2. Specialists (transaction, budget, compliance, shopping, research)
//  3. Synthesis, which composes the final answer from specialist output
//
// Execution Model:
//   - Execute receives a *core.State, writes the fields it owns and returns it
//   - Agents never share a State concurrently; the engine hands each one a
//     clone and merges the fragments after the join
//   - Expected failures (no model, no search, empty corpus) degrade to
//     deterministic text; only context cancellation is returned as an error
//
// Agents carry a per-request event buffer, so a Suite must not be reused
// across concurrent requests. Build a fresh Suite per request with NewSuite.
package agent

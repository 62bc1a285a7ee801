// Package core provides the foundational domain types shared by finmesh
// components. It defines:
//
//   - Capabilities (the closed set of intent tags a query can be routed to)
//   - Events (immutable progress records streamed to clients)
//   - State (the typed per-request blackboard agents read and write)
//   - Event sinks (where the engine publishes the ordered event stream)
//
// The package keeps implementation concerns (generation backends, retrieval,
// orchestration) out of scope and only depends on the finance record types.
package core

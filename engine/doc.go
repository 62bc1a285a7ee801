// Package engine orchestrates the financial agents for one query.
//
// A run walks a fixed state machine:
//
//	Routing -> {Fanout | Sequential} -> ComplianceGate -> Finalize -> Done
//
// Routing classifies the query. Queries tagged shopping take the Sequential
// pipeline (Shopping, Budget, Compliance) because each stage reads what the
// previous one wrote. Every other query fans out the transaction, budget and
// document research agents concurrently, each over a private copy of the
// state, and merges their fragments in declared order after the join. A
// compliance pass follows the fan-out whenever money is in play, and the
// synthesis agent always runs last.
//
// Agent failures are isolated: they are logged, recorded as error events and
// excluded from the merge. Only a synthesis failure changes the answer, and
// then to GenericFailureMessage. Cancelling the context aborts the run and
// discards its partial result.
package engine

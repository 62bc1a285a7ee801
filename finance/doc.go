// Package finance holds the deterministic financial tools used by the agents:
// the user profile and transaction records, a budget calculator (affordability,
// summary and health score) and a rule based compliance validator.
//
// Nothing in this package performs I/O. Every function is safe to call from
// concurrent goroutines as long as the passed profile is not mutated.
package finance

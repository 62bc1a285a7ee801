// Package model defines the provider-agnostic text generation capability
// used by finmesh agents.
//
// Providers (Gemini, Groq, OpenAI, Anthropic) implement Generator in their
// own sub packages so agents stay decoupled from vendor SDKs. Chain composes
// generators into a priority ordered fallback chain that degrades instead of
// failing, and MockModel provides deterministic completions for tests.
package model

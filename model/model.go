package model

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Request captures a single prompt completion.
type Request struct {
	Prompt       string `json:"prompt"`
	SystemPrompt string `json:"system_prompt,omitempty"`
	// Temperature overrides the provider default when non-zero.
	Temperature float64 `json:"temperature,omitempty"`
	// MaxTokens overrides the provider default when non-zero.
	MaxTokens int64 `json:"max_tokens,omitempty"`
}

// Info contains metadata about a generator implementation.
type Info struct {
	Name     string `json:"name"`     // model id, e.g. "gpt-4o-mini"
	Provider string `json:"provider"` // "gemini", "groq", "openai", "anthropic", "mock"
}

// Generator is the minimal interface required by agents to drive generation.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)

	// Info returns information about the generator implementation.
	Info() Info
}

// ErrEmptyResponse is returned by adapters when the provider answered without text.
var ErrEmptyResponse = errors.New("empty model response")

// MockModel is a lightweight in-memory Generator useful for tests & examples.
type MockModel struct {
	info Info

	mu        sync.Mutex
	responses map[string]string
	fn        func(Request) (string, error)
	err       error
	calls     []Request
}

// NewMockModel constructs a MockModel.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: provider},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// SetFunc installs a function computing responses for prompts without a
// canned completion.
func (m *MockModel) SetFunc(fn func(Request) (string, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fn = fn
}

// SetError makes every call fail with err.
func (m *MockModel) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns the requests received so far.
func (m *MockModel) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.calls...)
}

// Generate implements Generator.
func (m *MockModel) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	m.calls = append(m.calls, req)
	resp, ok := m.responses[req.Prompt]
	fn, err := m.fn, m.err
	m.mu.Unlock()

	switch {
	case err != nil:
		return "", err
	case ok:
		return resp, nil
	case fn != nil:
		return fn(req)
	default:
		return fmt.Sprintf("Mock response to: %s", req.Prompt), nil
	}
}

// Info implements Generator.
func (m *MockModel) Info() Info { return m.info }

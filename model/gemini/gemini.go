// Package gemini provides a model.Generator backed by Google's Gemini API.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/hupe1980/finmesh/model"
)

// Options configures the Gemini adapter.
type Options struct {
	Model           string
	Temperature     float32
	MaxOutputTokens int32
	APIKey          string
	// ClientOptions are passed to genai.NewClient after the API key.
	ClientOptions []option.ClientOption
}

// Model wraps a genai client behind model.Generator.
type Model struct {
	client *genai.Client
	opts   Options
}

// NewModel creates a Gemini generator. The caller owns the returned model and
// must Close it.
func NewModel(ctx context.Context, optFns ...func(o *Options)) (*Model, error) {
	opts := Options{
		Model:           "gemini-2.0-flash",
		Temperature:     0.7,
		MaxOutputTokens: 2048,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	clientOpts := opts.ClientOptions
	if opts.APIKey != "" {
		clientOpts = append([]option.ClientOption{option.WithAPIKey(opts.APIKey)}, clientOpts...)
	}
	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Model{client: client, opts: opts}, nil
}

// Generate implements model.Generator. A GenerativeModel handle is created per
// call because its configuration fields are mutable.
func (m *Model) Generate(ctx context.Context, req model.Request) (string, error) {
	gm := m.client.GenerativeModel(m.opts.Model)

	temperature := m.opts.Temperature
	if req.Temperature != 0 {
		temperature = float32(req.Temperature)
	}
	maxTokens := m.opts.MaxOutputTokens
	if req.MaxTokens != 0 {
		maxTokens = int32(req.MaxTokens)
	}
	gm.SetTemperature(temperature)
	gm.SetMaxOutputTokens(maxTokens)
	if req.SystemPrompt != "" {
		gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.SystemPrompt)}}
	}

	resp, err := gm.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", fmt.Errorf("gemini api error: %w", err)
	}
	text := firstText(resp)
	if text == "" {
		return "", model.ErrEmptyResponse
	}
	return text, nil
}

// Info implements model.Generator.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.opts.Model, Provider: "gemini"}
}

// Close releases the underlying client.
func (m *Model) Close() error { return m.client.Close() }

func firstText(r *genai.GenerateContentResponse) string {
	if r == nil {
		return ""
	}
	for _, c := range r.Candidates {
		if c.Content == nil {
			continue
		}
		var sb strings.Builder
		for _, part := range c.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
		if sb.Len() > 0 {
			return sb.String()
		}
	}
	return ""
}

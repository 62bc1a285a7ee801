// Package config loads process configuration from the environment. A .env
// file in the working directory is read first when present; variables already
// set in the environment take precedence over it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	LLM        LLMConfig
	Search     SearchConfig
	Retrieval  RetrievalConfig
	Classifier ClassifierConfig
	Log        LogConfig
	Engine     EngineConfig
}

// LLMConfig lists generation providers. Providers without a key are skipped;
// the fallback order is Gemini, Groq, OpenAI, Anthropic.
type LLMConfig struct {
	GoogleAPIKey    string
	GeminiModel     string
	GroqAPIKey      string
	GroqModel       string
	OpenAIAPIKey    string
	OpenAIModel     string
	AnthropicAPIKey string
	AnthropicModel  string
	Temperature     float64
	MaxTokens       int
	Timeout         time.Duration
}

// SearchConfig lists web search providers, Tavily first.
type SearchConfig struct {
	TavilyAPIKey  string
	SerpAPIAPIKey string
	Results       int
	Timeout       time.Duration
}

type RetrievalConfig struct {
	// CorpusFile is a JSON array of documents indexed at startup.
	CorpusFile string
	// EmbeddingModel is used when OPENAI_API_KEY is set; otherwise documents
	// are embedded offline with feature hashing.
	EmbeddingModel string
	TopK           int
	Rerank         bool
	LaneTimeout    time.Duration
	CacheTTL       time.Duration
}

type ClassifierConfig struct {
	// TriggersFile is an optional TOML trigger table.
	TriggersFile string
}

type LogConfig struct {
	Level  string
	Format string
	File   string
}

type EngineConfig struct {
	AgentTimeout time.Duration
}

// Load reads files (default ".env") into the environment, ignoring missing
// files, and builds a Config from it.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	return FromEnv(), nil
}

// FromEnv builds a Config from the current environment.
func FromEnv() *Config {
	return &Config{
		LLM: LLMConfig{
			GoogleAPIKey:    getEnv("GOOGLE_API_KEY", ""),
			GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			GroqAPIKey:      getEnv("GROQ_API_KEY", ""),
			GroqModel:       getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
			OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
			OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
			AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),
			Temperature:     getEnvAsFloat("LLM_TEMPERATURE", 0.7),
			MaxTokens:       getEnvAsInt("LLM_MAX_TOKENS", 2048),
			Timeout:         getEnvAsDuration("LLM_TIMEOUT", 30*time.Second),
		},
		Search: SearchConfig{
			TavilyAPIKey:  getEnv("TAVILY_API_KEY", ""),
			SerpAPIAPIKey: getEnv("SERPAPI_API_KEY", ""),
			Results:       getEnvAsInt("SEARCH_RESULTS", 5),
			Timeout:       getEnvAsDuration("SEARCH_TIMEOUT", 15*time.Second),
		},
		Retrieval: RetrievalConfig{
			CorpusFile:     getEnv("CORPUS_FILE", ""),
			EmbeddingModel: getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
			TopK:           getEnvAsInt("RETRIEVAL_TOP_K", 5),
			Rerank:         getEnvAsBool("RERANK_ENABLED", true),
			LaneTimeout:    getEnvAsDuration("RETRIEVAL_TIMEOUT", 10*time.Second),
			CacheTTL:       getEnvAsDuration("EMBEDDING_CACHE_TTL", 10*time.Minute),
		},
		Classifier: ClassifierConfig{
			TriggersFile: getEnv("CLASSIFIER_TRIGGERS_FILE", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
			File:   getEnv("LOG_FILE", ""),
		},
		Engine: EngineConfig{
			AgentTimeout: getEnvAsDuration("AGENT_TIMEOUT", 60*time.Second),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("15s") and plain seconds ("15").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return fallback
}

package config

import (
	"fmt"
	"time"
)

// ServerConfig represents the intake transport configuration
type ServerConfig struct {
	FilterType      string
	ListenAddress   string
	Domain          string
	MaxMessageBytes int64
	MaxRecipients   int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ProcessTimeout  time.Duration
}

// ClassifierConfig holds the acceptance floor and tier weights
type ClassifierConfig struct {
	AcceptFloor     int
	DomainWeight    int
	SignatureWeight int
	WeakWeight      int
	RequiredMatches int
}

// PatternsConfig describes where vendor profiles come from
type PatternsConfig struct {
	Source string
	File   string
	TTL    time.Duration
	// Seed copies the profile file into the SQL table on start
	Seed bool
}

// StoreConfig selects the storage backend
type StoreConfig struct {
	Type       string
	SQLitePath string
	MySQLDSN   string
}

// CatalogConfig holds the per-source catalog confidence
type CatalogConfig struct {
	ExtractedConfidence int
	EnrichedConfidence  int
}

// LLMConfig represents the configuration for the review advisor provider
type LLMConfig struct {
	Provider string
	Timeout  time.Duration
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// GetServer returns the intake transport configuration
func (c *Config) GetServer() (ServerConfig, error) {
	read, err := c.GetDuration("server.read_timeout")
	if err != nil {
		return ServerConfig{}, fmt.Errorf("invalid server read timeout: %w", err)
	}
	write, err := c.GetDuration("server.write_timeout")
	if err != nil {
		return ServerConfig{}, fmt.Errorf("invalid server write timeout: %w", err)
	}
	process, err := c.GetDuration("server.process_timeout")
	if err != nil {
		return ServerConfig{}, fmt.Errorf("invalid server process timeout: %w", err)
	}

	return ServerConfig{
		FilterType:      c.GetString("server.filter_type"),
		ListenAddress:   c.GetString("server.listen_address"),
		Domain:          c.GetString("server.domain"),
		MaxMessageBytes: c.v.GetInt64("server.max_message_bytes"),
		MaxRecipients:   c.GetInt("server.max_recipients"),
		ReadTimeout:     read,
		WriteTimeout:    write,
		ProcessTimeout:  process,
	}, nil
}

// GetClassifier returns the classifier thresholds
func (c *Config) GetClassifier() ClassifierConfig {
	return ClassifierConfig{
		AcceptFloor:     c.GetInt("classifier.accept_floor"),
		DomainWeight:    c.GetInt("classifier.weights.domain"),
		SignatureWeight: c.GetInt("classifier.weights.signature"),
		WeakWeight:      c.GetInt("classifier.weights.weak"),
		RequiredMatches: c.GetInt("classifier.required_matches"),
	}
}

// GetPatterns returns the vendor profile source configuration
func (c *Config) GetPatterns() (PatternsConfig, error) {
	ttl, err := c.GetDuration("patterns.ttl")
	if err != nil {
		return PatternsConfig{}, fmt.Errorf("invalid patterns ttl: %w", err)
	}
	return PatternsConfig{
		Source: c.GetString("patterns.source"),
		File:   c.GetString("patterns.file"),
		TTL:    ttl,
		Seed:   c.GetBool("patterns.seed"),
	}, nil
}

// GetStore returns the storage configuration
func (c *Config) GetStore() StoreConfig {
	return StoreConfig{
		Type:       c.GetString("store.type"),
		SQLitePath: c.GetString("store.sqlite_path"),
		MySQLDSN:   c.GetString("store.mysql_dsn"),
	}
}

// GetCatalog returns the catalog confidence configuration
func (c *Config) GetCatalog() CatalogConfig {
	return CatalogConfig{
		ExtractedConfidence: c.GetInt("catalog.extracted_confidence"),
		EnrichedConfidence:  c.GetInt("catalog.enriched_confidence"),
	}
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	timeout, err := c.GetDuration("llm.timeout")
	if err != nil {
		timeout = 20 * time.Second
	}
	return LLMConfig{
		Provider: c.GetString("llm.provider"),
		Timeout:  timeout,
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
		MaxBodySize: c.GetInt("bedrock.max_body_size"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
		MaxBodySize: c.GetInt("gemini.max_body_size"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		BaseURL:     c.GetString("openai.base_url"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
		MaxBodySize: c.GetInt("openai.max_body_size"),
	}
}

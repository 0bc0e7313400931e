package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	pkgerrors "github.com/RitaRen1003/medical-rag-system/pkg/errors"
)

// DefaultPath is the config file location used when none is given.
const DefaultPath = "config/config.toml"

type Neo4jConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
}

type LLMConfig struct {
	Provider       string  `toml:"provider"`
	Model          string  `toml:"model"`
	EmbeddingModel string  `toml:"embedding_model"`
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"`
	Temperature    float32 `toml:"temperature"`
	MaxTokens      int     `toml:"max_tokens"`
}

type UMLSConfig struct {
	APIKey        string  `toml:"api_key"`
	BaseURL       string  `toml:"base_url"`
	Dictionary    string  `toml:"dictionary"`
	MinSimilarity float64 `toml:"min_similarity"`
}

type ImportConfig struct {
	CorpusPath    string `toml:"corpus_path"`
	MinTextLength int    `toml:"min_text_length"`
	MaxTextLength int    `toml:"max_text_length"`
}

type SearchConfig struct {
	MaxFacts int `toml:"max_facts"`
}

// RetryConfig controls retries of the answer generation call. Delays are in
// milliseconds. MaxAttempts of 1 disables retrying.
type RetryConfig struct {
	MaxAttempts    int     `toml:"max_attempts"`
	InitialDelayMS int     `toml:"initial_delay_ms"`
	MaxDelayMS     int     `toml:"max_delay_ms"`
	BackoffFactor  float64 `toml:"backoff_factor"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type LoggingConfig struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
	Path        string `toml:"path"`
	StatsPath   string `toml:"stats_path"`
}

type ConcurrencyConfig struct {
	ImportWorkers int `toml:"import_workers"`
	EnrichWorkers int `toml:"enrich_workers"`
}

type PromptsConfig struct {
	AnswerSystem        string `toml:"answer_system"`
	Answer              string `toml:"answer"`
	ExtractionEntities  string `toml:"extraction_entities"`
	ExtractionRelations string `toml:"extraction_relations"`
}

type Config struct {
	Neo4j       Neo4jConfig       `toml:"neo4j"`
	LLM         LLMConfig         `toml:"llm"`
	UMLS        UMLSConfig        `toml:"umls"`
	Import      ImportConfig      `toml:"import"`
	Search      SearchConfig      `toml:"search"`
	Retry       RetryConfig       `toml:"retry"`
	Server      ServerConfig      `toml:"server"`
	Logging     LoggingConfig     `toml:"logging"`
	Concurrency ConcurrencyConfig `toml:"concurrency"`
	Prompts     PromptsConfig     `toml:"prompts"`
}

// Default returns the built-in configuration. Values mirror the defaults
// the service ships with; a config file and environment variables override
// them field by field.
func Default() *Config {
	return &Config{
		Neo4j: Neo4jConfig{
			URI:  "bolt://localhost:7687",
			User: "neo4j",
		},
		LLM: LLMConfig{
			Provider:       "openai",
			Model:          "gpt-4o",
			EmbeddingModel: "text-embedding-3-small",
			Temperature:    0.2,
			MaxTokens:      1000,
		},
		UMLS: UMLSConfig{
			BaseURL:       "https://uts-ws.nlm.nih.gov/rest",
			MinSimilarity: 0.7,
		},
		Import: ImportConfig{
			CorpusPath:    "data/corpus.json",
			MinTextLength: 100,
			MaxTextLength: 4096,
		},
		Search: SearchConfig{
			MaxFacts: 10,
		},
		Retry: RetryConfig{
			MaxAttempts:    1,
			InitialDelayMS: 100,
			MaxDelayMS:     5000,
			BackoffFactor:  2.0,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Logging: LoggingConfig{
			Level:     "info",
			StatsPath: "logs/graph_stats.log",
		},
		Concurrency: ConcurrencyConfig{
			ImportWorkers: 4,
			EnrichWorkers: 4,
		},
		Prompts: PromptsConfig{
			AnswerSystem: "You are a helpful biomedical expert assistant.",
			Answer: "Answer the following medical question using the context retrieved from the knowledge graph.\n\n" +
				"Question: %s\n\n" +
				"Context:\n%s\n\n" +
				"Ground your answer in the context and cite the numbered facts you rely on. " +
				"If the context does not cover the question, say so before answering from general medical knowledge.",
			ExtractionEntities: "Extract the medical entities (diseases, drugs, organisms, genes, procedures, anatomy) " +
				"from the text below. Respond with JSON only, in the form " +
				"{\"entities\": [{\"name\": \"...\", \"type\": \"...\", \"summary\": \"one sentence\"}]}.\n\nText:\n%s",
			ExtractionRelations: "Given these entities:\n%s\n\nand this text:\n%s\n\n" +
				"Extract relations between the entities. Respond with JSON only, in the form " +
				"{\"relations\": [{\"source\": \"entity name\", \"target\": \"entity name\", " +
				"\"relation\": \"UPPER_SNAKE_CASE\", \"fact\": \"the supporting sentence\"}]}.",
		},
	}
}

// Load reads the TOML file at path over the defaults and then applies
// environment overrides. An empty path falls back to DefaultPath; a missing
// file at the fallback path is not an error so the service can run from
// environment alone.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, pkgerrors.NewConfigurationError(fmt.Sprintf("failed to parse config file '%s': %v", path, err))
		}
	case os.IsNotExist(err) && !explicit:
		// defaults plus environment only
	default:
		return nil, pkgerrors.NewConfigurationError(fmt.Sprintf("failed to read config file '%s': %v", path, err))
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Neo4j.URI, "NEO4J_URI")
	setString(&c.Neo4j.User, "NEO4J_USER")
	setString(&c.Neo4j.Password, "NEO4J_PASSWORD")
	setString(&c.Neo4j.Database, "NEO4J_DATABASE")

	setString(&c.LLM.Provider, "LLM_PROVIDER")
	setString(&c.LLM.Model, "LLM_MODEL")
	setString(&c.LLM.EmbeddingModel, "LLM_EMBEDDING_MODEL")
	setString(&c.LLM.APIKey, "LLM_API_KEY")
	setString(&c.LLM.BaseURL, "LLM_BASE_URL")
	if c.LLM.APIKey == "" {
		setString(&c.LLM.APIKey, "OPENAI_API_KEY")
	}

	setString(&c.UMLS.APIKey, "UMLS_API_KEY")
	setString(&c.UMLS.BaseURL, "UMLS_BASE_URL")
	setString(&c.UMLS.Dictionary, "UMLS_DICTIONARY")

	setString(&c.Import.CorpusPath, "CORPUS_PATH")
	setString(&c.Server.Addr, "MEDRAG_ADDR")
	setString(&c.Logging.Level, "LOG_LEVEL")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

var supportedProviders = map[string]bool{
	"openai": true,
	"claude": true,
	"gemini": true,
	"ollama": true,
}

// Validate checks the configuration before any collaborator is contacted.
// All problems are collected into a single configuration error so the
// operator sees the complete list at once.
func (c *Config) Validate() error {
	var problems []string

	if c.Neo4j.URI == "" {
		problems = append(problems, "neo4j.uri is required (NEO4J_URI)")
	}
	if c.Neo4j.User == "" {
		problems = append(problems, "neo4j.user is required (NEO4J_USER)")
	}
	if c.Neo4j.Password == "" {
		problems = append(problems, "neo4j.password is required (NEO4J_PASSWORD)")
	}

	provider := strings.ToLower(c.LLM.Provider)
	if !supportedProviders[provider] {
		problems = append(problems, fmt.Sprintf("llm.provider '%s' is not supported", c.LLM.Provider))
	}
	if c.LLM.APIKey == "" && provider != "ollama" {
		problems = append(problems, "llm.api_key is required (LLM_API_KEY or OPENAI_API_KEY)")
	}
	if c.LLM.Model == "" {
		problems = append(problems, "llm.model is required (LLM_MODEL)")
	}

	if c.Search.MaxFacts <= 0 {
		problems = append(problems, "search.max_facts must be positive")
	}
	if c.Import.MinTextLength < 0 || c.Import.MaxTextLength <= 0 || c.Import.MinTextLength >= c.Import.MaxTextLength {
		problems = append(problems, "import text length bounds must satisfy 0 <= min < max")
	}
	if c.Retry.MaxAttempts < 1 {
		problems = append(problems, "retry.max_attempts must be at least 1")
	}
	if c.UMLS.MinSimilarity < 0 || c.UMLS.MinSimilarity > 1 {
		problems = append(problems, "umls.min_similarity must be within [0, 1]")
	}

	if len(problems) > 0 {
		return pkgerrors.NewConfigurationError(strings.Join(problems, "; "))
	}
	return nil
}

// UMLSEnabled reports whether terminology annotation can run at all: the
// local dictionary is the minimum requirement, the API key only unlocks
// concept details.
func (c *Config) UMLSEnabled() bool {
	return c.UMLS.Dictionary != ""
}

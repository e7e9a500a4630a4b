package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the L2 triage engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, API keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8002"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL, shared by the assistant schema
	// and the operational read-model tables)
	Database DatabaseConfig `yaml:"database"`

	// Redis configuration (optional solution-page cache)
	Redis RedisConfig `yaml:"redis"`

	// Inference endpoint configuration
	AI AIConfig `yaml:"ai"`

	// Triage tuning knobs
	Triage TriageConfig `yaml:"triage"`

	// Scoring constants used by the ranking engine
	Scoring ScoringConfig `yaml:"scoring"`

	// FingerprintRulesPath optionally points to a YAML file with ordered
	// (pattern, tag) rules overriding the built-in fingerprint table.
	FingerprintRulesPath string `yaml:"fingerprint_rules_path" env:"FINGERPRINT_RULES_PATH" env-default:""`

	// MigrationsPath is the directory containing golang-migrate SQL files.
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"portnet"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"duty_officer_assistant"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// URL returns the connection URL for pgx.
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

// RedisConfig holds Redis configuration. Host left empty disables caching.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// AIConfig holds the inference endpoint configuration. When Endpoint or
// Model is empty the engine runs entirely on the deterministic fallback.
type AIConfig struct {
	// Provider selects the client implementation: "openai" (any
	// OpenAI-compatible endpoint, including Azure) or "anthropic".
	Provider string `yaml:"provider" env:"AI_PROVIDER" env-default:"openai"`
	Endpoint string `yaml:"endpoint" env:"AI_ENDPOINT" env-default:""`
	Model    string `yaml:"model" env:"AI_MODEL" env-default:""`
	APIKey   string `yaml:"-" env:"AI_API_KEY"` // Secret - not in YAML

	// TimeoutSeconds bounds every remote inference call.
	TimeoutSeconds int `yaml:"timeout_seconds" env:"AI_TIMEOUT_SECONDS" env-default:"30"`
}

// IsConfigured reports whether remote inference can be attempted at all.
func (c *AIConfig) IsConfigured() bool {
	return c.Endpoint != "" && c.Model != "" && c.APIKey != ""
}

// TriageConfig holds windowing and paging knobs for incident analysis.
type TriageConfig struct {
	// SearchWindowHours is the default RCA correlation window around the
	// incident start time.
	SearchWindowHours int `yaml:"search_window_hours" env:"TRIAGE_SEARCH_WINDOW_HOURS" env-default:"2"`
	// SolutionPageSize is the number of solutions returned per page from
	// the lazy-loading endpoint.
	SolutionPageSize int `yaml:"solution_page_size" env:"TRIAGE_SOLUTION_PAGE_SIZE" env-default:"15"`
	// CacheTTLMinutes is how long computed solution lists are kept in Redis.
	CacheTTLMinutes int `yaml:"cache_ttl_minutes" env:"TRIAGE_CACHE_TTL_MINUTES" env-default:"60"`
}

// ScoringConfig carries the ranking engine's empirically chosen constants.
// They are configuration on purpose: changing them changes observable
// ranking and is never done in code.
type ScoringConfig struct {
	// MinRelevance is the pre-boost cutoff for corpus retrieval.
	MinRelevance float64 `yaml:"min_relevance" env-default:"0.1"`
	// UsefulnessBoost is added to a retrieval score per usefulness mark.
	UsefulnessBoost float64 `yaml:"usefulness_boost" env-default:"0.05"`

	// Fused-score bases: training cases always outrank knowledge
	// templates at equal usefulness.
	KnowledgeBase      int `yaml:"knowledge_base_score" env-default:"50"`
	KnowledgeUseful    int `yaml:"knowledge_usefulness_weight" env-default:"5"`
	TrainingBase       int `yaml:"training_base_score" env-default:"100"`
	TrainingUseful     int `yaml:"training_usefulness_weight" env-default:"10"`
	KeywordBonusLong   int `yaml:"keyword_bonus_long" env-default:"50"`
	KeywordBonusMedium int `yaml:"keyword_bonus_medium" env-default:"30"`
	KeywordBonusShort  int `yaml:"keyword_bonus_short" env-default:"15"`
	TechTermBonus      int `yaml:"tech_term_bonus" env-default:"100"`
	ErrorPatternBonus  int `yaml:"error_pattern_bonus" env-default:"25"`

	// Similar-incident rescoring (RCA stage two).
	SimilarKeywordWeight  int `yaml:"similar_keyword_weight" env-default:"10"`
	SimilarTechWeight     int `yaml:"similar_tech_weight" env-default:"50"`
	SimilarErrorWeight    int `yaml:"similar_error_weight" env-default:"15"`
	SimilarCategoryWeight int `yaml:"similar_category_weight" env-default:"25"`
	SimilarUsefulWeight   int `yaml:"similar_useful_weight" env-default:"5"`
	SimilarLengthBonus    int `yaml:"similar_length_bonus" env-default:"20"`
	SimilarMinScore       int `yaml:"similar_min_score" env-default:"30"`

	// CascadeWindowSeconds groups API error events into one cascade.
	CascadeWindowSeconds int `yaml:"cascade_window_seconds" env-default:"10"`
	// RapidInsertSeconds is the window under which identical container
	// versions count as a race-condition duplicate.
	RapidInsertSeconds float64 `yaml:"rapid_insert_seconds" env-default:"5"`
}

// Load reads configuration from the given YAML file with environment
// variable overrides. The version parameter is injected at build time.
func Load(path, version string) (*Config, error) {
	cfg := &Config{Version: version}

	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if cfg.Triage.SolutionPageSize <= 0 {
		return nil, fmt.Errorf("solution_page_size must be positive, got %d", cfg.Triage.SolutionPageSize)
	}
	if cfg.AI.TimeoutSeconds <= 0 {
		return nil, fmt.Errorf("ai.timeout_seconds must be positive, got %d", cfg.AI.TimeoutSeconds)
	}

	return cfg, nil
}

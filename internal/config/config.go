package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Engines    EnginesConfig    `yaml:"engines"`
	Analysis   AnalysisConfig   `yaml:"analysis"`
	Cache      CacheConfig      `yaml:"cache"`
	History    HistoryConfig    `yaml:"history"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Upload     UploadConfig     `yaml:"upload"`
	Database   DatabaseConfig   `yaml:"database"`
	Slack      SlackConfig      `yaml:"slack"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	Port               int           `yaml:"port"`
	ReadTimeout        time.Duration `yaml:"readTimeout"`
	WriteTimeout       time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout    time.Duration `yaml:"shutdownTimeout"`
	MetricsPort        int           `yaml:"metricsPort"`
	CORSOrigins        []string      `yaml:"corsOrigins"`
	RateLimitPerMinute int           `yaml:"rateLimitPerMinute"`
}

// EnginesConfig selects the primary and secondary completion engines by name
// (gemini, groq, claude, ollama). An empty secondary disables the fallback.
type EnginesConfig struct {
	Primary         string        `yaml:"primary"`
	Secondary       string        `yaml:"secondary"`
	AttemptTimeout  time.Duration `yaml:"attemptTimeout"`
	PromptCharLimit int           `yaml:"promptCharLimit"`
	Temperature     float64       `yaml:"temperature"`
	Gemini          GeminiConfig  `yaml:"gemini"`
	Groq            OpenAIConfig  `yaml:"groq"`
	Claude          ClaudeConfig  `yaml:"claude"`
	Ollama          OllamaConfig  `yaml:"ollama"`
}

type GeminiConfig struct {
	APIKey  string        `yaml:"apiKey"`
	BaseURL string        `yaml:"baseURL"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// OpenAIConfig covers any OpenAI-compatible chat completion API.
type OpenAIConfig struct {
	APIKey  string        `yaml:"apiKey"`
	BaseURL string        `yaml:"baseURL"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

type ClaudeConfig struct {
	APIKey    string        `yaml:"apiKey"`
	BaseURL   string        `yaml:"baseURL"`
	Model     string        `yaml:"model"`
	MaxTokens int64         `yaml:"maxTokens"`
	Timeout   time.Duration `yaml:"timeout"`
}

type OllamaConfig struct {
	BaseURL  string        `yaml:"baseURL"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
	JSONMode bool          `yaml:"jsonMode"`
}

type AnalysisConfig struct {
	EngineVersion   string `yaml:"engineVersion"`
	FallbackSummary string `yaml:"fallbackSummary"`
	// ConfidenceSeed fixes the synthesized confidence sequence; 0 seeds from
	// the clock.
	ConfidenceSeed int64          `yaml:"confidenceSeed"`
	Defaults       DefaultsConfig `yaml:"defaults"`
}

type DefaultsConfig struct {
	ParameterName        string `yaml:"parameterName"`
	ParameterValue       string `yaml:"parameterValue"`
	ParameterUnit        string `yaml:"parameterUnit"`
	ParameterNormalRange string `yaml:"parameterNormalRange"`
	ParameterStatus      string `yaml:"parameterStatus"`
	ProfileName          string `yaml:"profileName"`
	ProfileAge           string `yaml:"profileAge"`
	ProfileGender        string `yaml:"profileGender"`
	Summary              string `yaml:"summary"`
}

type CacheConfig struct {
	Driver               string        `yaml:"driver"`
	SkipFallbackReports  bool          `yaml:"skipFallbackReports"`
	Redis                RedisConfig   `yaml:"redis"`
	LevelDB              LevelDBConfig `yaml:"leveldb"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

type LevelDBConfig struct {
	Path string `yaml:"path"`
}

type HistoryConfig struct {
	Capacity       int  `yaml:"capacity"`
	RestoreOnStart bool `yaml:"restoreOnStart"`
}

type ExtractionConfig struct {
	PDFToText     string        `yaml:"pdftotext"`
	PDFToPPM      string        `yaml:"pdftoppm"`
	Tesseract     string        `yaml:"tesseract"`
	Language      string        `yaml:"language"`
	DPI           int           `yaml:"dpi"`
	MaxPages      int           `yaml:"maxPages"`
	Timeout       time.Duration `yaml:"timeout"`
	MinTextLength int           `yaml:"minTextLength"`
}

type UploadConfig struct {
	Dir               string   `yaml:"dir"`
	MaxBytes          int64    `yaml:"maxBytes"`
	AllowedExtensions []string `yaml:"allowedExtensions"`
}

type DatabaseConfig struct {
	Driver   string         `yaml:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type SQLiteConfig struct {
	Path              string `yaml:"path"`
	MaxOpenConns      int    `yaml:"maxOpenConns"`
	PragmaJournalMode string `yaml:"pragmaJournalMode"`
	PragmaBusyTimeout int    `yaml:"pragmaBusyTimeout"`
}

type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"maxConns"`
	MinConns        int32         `yaml:"minConns"`
	MaxConnLifetime time.Duration `yaml:"maxConnLifetime"`
	MaxConnIdleTime time.Duration `yaml:"maxConnIdleTime"`
	DialTimeout     time.Duration `yaml:"dialTimeout"`
}

type SlackConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"botToken"`
	Channel  string `yaml:"channel"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads the YAML file at path over DefaultConfig, expanding ${VAR}
// references first.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a Config that runs locally with Gemini as the primary
// engine and Groq as the secondary.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:               5000,
			ReadTimeout:        30 * time.Second,
			WriteTimeout:       150 * time.Second,
			ShutdownTimeout:    15 * time.Second,
			MetricsPort:        9090,
			CORSOrigins:        []string{"*"},
			RateLimitPerMinute: 60,
		},
		Engines: EnginesConfig{
			Primary:         "gemini",
			Secondary:       "groq",
			AttemptTimeout:  60 * time.Second,
			PromptCharLimit: 12000,
			Temperature:     0.1,
			Gemini: GeminiConfig{
				BaseURL: "https://generativelanguage.googleapis.com/v1beta",
				Model:   "gemini-flash-latest",
			},
			Groq: OpenAIConfig{
				BaseURL: "https://api.groq.com/openai/v1",
				Model:   "llama-3.1-8b-instant",
			},
			Claude: ClaudeConfig{
				Model:     "claude-3-5-haiku-latest",
				MaxTokens: 4096,
			},
			Ollama: OllamaConfig{
				BaseURL:  "http://localhost:11434",
				Model:    "llama3:8b",
				JSONMode: true,
			},
		},
		Analysis: AnalysisConfig{
			EngineVersion:   "v5.0-prod",
			FallbackSummary: "Offline extraction used.",
			Defaults: DefaultsConfig{
				ParameterName:   "Unknown Parameter",
				ParameterStatus: "normal",
				ProfileName:     "Unknown",
				ProfileAge:      "N/A",
				ProfileGender:   "N/A",
				Summary:         "No summary available.",
			},
		},
		Cache: CacheConfig{
			Driver: "memory",
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "mediq:report:",
			},
			LevelDB: LevelDBConfig{Path: "./data/cache"},
		},
		History: HistoryConfig{
			Capacity:       15,
			RestoreOnStart: true,
		},
		Extraction: ExtractionConfig{
			PDFToText:     "pdftotext",
			PDFToPPM:      "pdftoppm",
			Tesseract:     "tesseract",
			Language:      "eng",
			DPI:           144,
			Timeout:       2 * time.Minute,
			MinTextLength: 10,
		},
		Upload: UploadConfig{
			Dir:               "./uploads",
			MaxBytes:          10 << 20,
			AllowedExtensions: []string{".pdf", ".png", ".jpg", ".jpeg", ".csv", ".xlsx"},
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{
				Path:              "./data/mediq.db",
				MaxOpenConns:      1,
				PragmaJournalMode: "wal",
				PragmaBusyTimeout: 5000,
			},
			Postgres: PostgresConfig{
				MaxConns:        10,
				MinConns:        1,
				MaxConnLifetime: 30 * time.Minute,
				MaxConnIdleTime: 5 * time.Minute,
				DialTimeout:     5 * time.Second,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment values.
// Unset variables without a default expand to the empty string.
func expandEnvVars(s string) string {
	return os.Expand(s, func(key string) string {
		name, def, hasDefault := strings.Cut(key, ":-")
		if val, ok := os.LookupEnv(name); ok && (val != "" || !hasDefault) {
			return val
		}
		return def
	})
}

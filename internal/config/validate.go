package config

import (
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"
)

var (
	validEngines      = sets.New("gemini", "groq", "claude", "ollama")
	validCacheDrivers = sets.New("memory", "redis", "leveldb")
	validDBDrivers    = sets.New("sqlite", "postgres")
	validStatuses     = sets.New("low", "normal", "high", "critical")
	validLogLevels    = sets.New("debug", "info", "warn", "error")
	validLogFormats   = sets.New("json", "text")
)

// Validate checks the config and reports every problem at once.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	if cfg.Server.MetricsPort < 0 || cfg.Server.MetricsPort > 65535 {
		errs = append(errs, "server.metricsPort must be between 0 and 65535")
	}
	if cfg.Server.MetricsPort != 0 && cfg.Server.MetricsPort == cfg.Server.Port {
		errs = append(errs, "server.metricsPort must differ from server.port")
	}

	errs = append(errs, validateEngines(&cfg.Engines)...)

	if cfg.Analysis.Defaults.ParameterStatus != "" && !validStatuses.Has(cfg.Analysis.Defaults.ParameterStatus) {
		errs = append(errs, fmt.Sprintf("analysis.defaults.parameterStatus must be one of %s (got %q)",
			strings.Join(sets.List(validStatuses), ", "), cfg.Analysis.Defaults.ParameterStatus))
	}

	if !validCacheDrivers.Has(cfg.Cache.Driver) {
		errs = append(errs, fmt.Sprintf("cache.driver must be memory, redis or leveldb (got %q)", cfg.Cache.Driver))
	}
	if cfg.Cache.Driver == "redis" && cfg.Cache.Redis.Addr == "" {
		errs = append(errs, "cache.redis.addr is required when driver is redis")
	}
	if cfg.Cache.Driver == "leveldb" && cfg.Cache.LevelDB.Path == "" {
		errs = append(errs, "cache.leveldb.path is required when driver is leveldb")
	}

	if cfg.History.Capacity <= 0 {
		errs = append(errs, "history.capacity must be positive")
	}
	if cfg.Extraction.MinTextLength <= 0 {
		errs = append(errs, "extraction.minTextLength must be positive")
	}
	if cfg.Upload.MaxBytes <= 0 {
		errs = append(errs, "upload.maxBytes must be positive")
	}
	if cfg.Upload.Dir == "" {
		errs = append(errs, "upload.dir is required")
	}

	if !validDBDrivers.Has(cfg.Database.Driver) {
		errs = append(errs, fmt.Sprintf("database.driver must be sqlite or postgres (got %q)", cfg.Database.Driver))
	}
	if cfg.Database.Driver == "sqlite" && cfg.Database.SQLite.Path == "" {
		errs = append(errs, "database.sqlite.path is required when driver is sqlite")
	}
	if cfg.Database.Driver == "postgres" && cfg.Database.Postgres.DSN == "" {
		errs = append(errs, "database.postgres.dsn is required when driver is postgres")
	}

	if cfg.Slack.Enabled {
		if cfg.Slack.BotToken == "" {
			errs = append(errs, "slack.botToken is required when slack is enabled")
		}
		if cfg.Slack.Channel == "" {
			errs = append(errs, "slack.channel is required when slack is enabled")
		}
	}

	if !validLogLevels.Has(strings.ToLower(cfg.Logging.Level)) {
		errs = append(errs, fmt.Sprintf("logging.level must be debug, info, warn or error (got %q)", cfg.Logging.Level))
	}
	if !validLogFormats.Has(cfg.Logging.Format) {
		errs = append(errs, fmt.Sprintf("logging.format must be json or text (got %q)", cfg.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

func validateEngines(e *EnginesConfig) []string {
	var errs []string

	if !validEngines.Has(e.Primary) {
		errs = append(errs, fmt.Sprintf("engines.primary must be one of gemini, groq, claude, ollama (got %q)", e.Primary))
	}
	if e.Secondary != "" {
		if !validEngines.Has(e.Secondary) {
			errs = append(errs, fmt.Sprintf("engines.secondary must be empty or one of gemini, groq, claude, ollama (got %q)", e.Secondary))
		}
		if e.Secondary == e.Primary {
			errs = append(errs, "engines.secondary must differ from engines.primary")
		}
	}
	if e.AttemptTimeout <= 0 {
		errs = append(errs, "engines.attemptTimeout must be positive")
	}
	if e.PromptCharLimit <= 0 {
		errs = append(errs, "engines.promptCharLimit must be positive")
	}

	for _, name := range []string{e.Primary, e.Secondary} {
		switch name {
		case "gemini":
			if e.Gemini.APIKey == "" {
				errs = append(errs, "engines.gemini.apiKey is required when gemini is selected")
			}
		case "groq":
			if e.Groq.APIKey == "" {
				errs = append(errs, "engines.groq.apiKey is required when groq is selected")
			}
		case "claude":
			if e.Claude.APIKey == "" {
				errs = append(errs, "engines.claude.apiKey is required when claude is selected")
			}
		case "ollama":
			if e.Ollama.BaseURL == "" {
				errs = append(errs, "engines.ollama.baseURL is required when ollama is selected")
			}
		}
	}
	return errs
}

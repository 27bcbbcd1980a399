package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jonny/mediq/internal/adapter/outbound/cache"
	"github.com/jonny/mediq/internal/adapter/outbound/llm/claude"
	"github.com/jonny/mediq/internal/adapter/outbound/llm/gemini"
	"github.com/jonny/mediq/internal/adapter/outbound/llm/ollama"
	"github.com/jonny/mediq/internal/adapter/outbound/llm/openaicompat"
	"github.com/jonny/mediq/internal/adapter/outbound/notification"
	slacknotifier "github.com/jonny/mediq/internal/adapter/outbound/notification/slack"
	"github.com/jonny/mediq/internal/adapter/outbound/persistence/postgres"
	"github.com/jonny/mediq/internal/adapter/outbound/persistence/sqlite"
	"github.com/jonny/mediq/internal/config"
	"github.com/jonny/mediq/internal/domain/model"
	"github.com/jonny/mediq/internal/domain/port/outbound"
	"github.com/jonny/mediq/internal/domain/service"
)

// buildLogger constructs a slog.Logger based on config.
func buildLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var out io.Writer = os.Stdout
	if cfg.Output == "stderr" {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(out, opts))
	}
	return slog.New(slog.NewJSONHandler(out, opts))
}

// buildEngine returns the completion engine registered under name, or nil
// for an empty name.
func buildEngine(name string, cfg config.EnginesConfig, systemPrompt string) (outbound.CompletionEngine, error) {
	switch name {
	case "":
		return nil, nil
	case gemini.EngineName:
		return gemini.NewClient(gemini.Config{
			BaseURL:     cfg.Gemini.BaseURL,
			APIKey:      cfg.Gemini.APIKey,
			Model:       cfg.Gemini.Model,
			Timeout:     cfg.Gemini.Timeout,
			Temperature: cfg.Temperature,
		}), nil
	case openaicompat.DefaultName:
		return openaicompat.NewClient(openaicompat.Config{
			Name:         openaicompat.DefaultName,
			BaseURL:      cfg.Groq.BaseURL,
			APIKey:       cfg.Groq.APIKey,
			Model:        cfg.Groq.Model,
			Timeout:      cfg.Groq.Timeout,
			Temperature:  cfg.Temperature,
			SystemPrompt: systemPrompt,
		}), nil
	case claude.EngineName:
		return claude.NewClient(claude.Config{
			APIKey:       cfg.Claude.APIKey,
			BaseURL:      cfg.Claude.BaseURL,
			Model:        cfg.Claude.Model,
			MaxTokens:    cfg.Claude.MaxTokens,
			Timeout:      cfg.Claude.Timeout,
			Temperature:  cfg.Temperature,
			SystemPrompt: systemPrompt,
		}), nil
	case ollama.EngineName:
		return ollama.NewClient(ollama.Config{
			BaseURL:      cfg.Ollama.BaseURL,
			Model:        cfg.Ollama.Model,
			Timeout:      cfg.Ollama.Timeout,
			SystemPrompt: systemPrompt,
			Temperature:  cfg.Temperature,
			JSONMode:     cfg.Ollama.JSONMode,
		}), nil
	}
	return nil, fmt.Errorf("unknown engine %q", name)
}

// reportCache is a cache backend plus its lifecycle hooks.
type reportCache struct {
	outbound.ReportCache
	ping  func(context.Context) error
	close func() error
}

func buildCache(cfg config.CacheConfig) (*reportCache, error) {
	switch cfg.Driver {
	case "redis":
		rc := cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			TTL:      cfg.Redis.TTL,
		}
		c := cache.NewRedisCache(cache.NewRedisClient(rc), rc)
		return &reportCache{ReportCache: c, ping: c.Ping, close: c.Close}, nil
	case "leveldb":
		c, err := cache.OpenLevelDB(cfg.LevelDB.Path)
		if err != nil {
			return nil, err
		}
		return &reportCache{ReportCache: c, ping: c.Ping, close: c.Close}, nil
	default:
		return &reportCache{
			ReportCache: service.NewMemoryCache(),
			ping:        func(context.Context) error { return nil },
			close:       func() error { return nil },
		}, nil
	}
}

// archive bundles the report and history repositories of one database.
type archive struct {
	reports outbound.ReportRepository
	history outbound.HistoryRepository
	ping    func(context.Context) error
	close   func() error
}

func openArchive(ctx context.Context, cfg config.DatabaseConfig) (*archive, error) {
	if cfg.Driver == "postgres" {
		store, err := postgres.NewStore(ctx, postgres.Config{
			DSN:             cfg.Postgres.DSN,
			MaxConns:        cfg.Postgres.MaxConns,
			MinConns:        cfg.Postgres.MinConns,
			MaxConnLifetime: cfg.Postgres.MaxConnLifetime,
			MaxConnIdleTime: cfg.Postgres.MaxConnIdleTime,
			DialTimeout:     cfg.Postgres.DialTimeout,
		})
		if err != nil {
			return nil, err
		}
		return &archive{
			reports: postgres.NewReportRepo(store),
			history: postgres.NewHistoryRepo(store),
			ping:    store.Ping,
			close:   store.Close,
		}, nil
	}

	store, err := sqlite.NewStore(sqlite.Config{
		Path:              cfg.SQLite.Path,
		MaxOpenConns:      cfg.SQLite.MaxOpenConns,
		PragmaJournalMode: cfg.SQLite.PragmaJournalMode,
		PragmaBusyTimeout: cfg.SQLite.PragmaBusyTimeout,
	})
	if err != nil {
		return nil, err
	}
	return &archive{
		reports: sqlite.NewReportRepo(store),
		history: sqlite.NewHistoryRepo(store),
		ping:    store.Ping,
		close:   store.Close,
	}, nil
}

func buildNotifier(cfg config.SlackConfig, logger *slog.Logger) outbound.Notifier {
	if cfg.Enabled {
		return slacknotifier.NewNotifier(slacknotifier.Config{BotToken: cfg.BotToken, Channel: cfg.Channel})
	}
	return notification.NewNoopNotifier(logger)
}

func buildDefaults(cfg config.DefaultsConfig) service.Defaults {
	d := service.DefaultDefaults()
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&d.ParameterName, cfg.ParameterName)
	set(&d.ParameterValue, cfg.ParameterValue)
	set(&d.ParameterUnit, cfg.ParameterUnit)
	set(&d.ParameterNormalRange, cfg.ParameterNormalRange)
	set(&d.ProfileName, cfg.ProfileName)
	set(&d.ProfileAge, cfg.ProfileAge)
	set(&d.ProfileGender, cfg.ProfileGender)
	set(&d.Summary, cfg.Summary)
	if cfg.ParameterStatus != "" {
		d.ParameterStatus = model.NormalizeStatus(cfg.ParameterStatus)
	}
	return d
}

func buildConfidence(seed int64) *service.ConfidenceHeuristic {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return service.NewSeededConfidenceHeuristic(seed)
}

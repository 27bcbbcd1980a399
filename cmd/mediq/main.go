package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/jonny/mediq/internal/adapter/inbound/httpapi"
	"github.com/jonny/mediq/internal/adapter/outbound/extract"
	"github.com/jonny/mediq/internal/adapter/outbound/llm/prompt"
	"github.com/jonny/mediq/internal/config"
	"github.com/jonny/mediq/internal/domain/port/outbound"
	"github.com/jonny/mediq/internal/domain/service"
	"github.com/jonny/mediq/pkg/health"
	"github.com/jonny/mediq/pkg/version"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	envFile := flag.String("env", ".env", "dotenv file loaded before the config")
	printVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *printVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to load dotenv file", "path", *envFile, "error", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = buildLogger(cfg.Logging)
	gin.SetMode(gin.ReleaseMode)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("mediq stopped")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Archive ---
	arch, err := openArchive(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening %s archive: %w", cfg.Database.Driver, err)
	}
	defer arch.close()

	// --- Cache ---
	reports, err := buildCache(cfg.Cache)
	if err != nil {
		return fmt.Errorf("opening %s cache: %w", cfg.Cache.Driver, err)
	}
	defer reports.close()

	// --- Engines ---
	prompts, err := prompt.NewBuilder(cfg.Engines.PromptCharLimit)
	if err != nil {
		return fmt.Errorf("loading prompt templates: %w", err)
	}
	systemPrompt, err := prompts.SystemPrompt()
	if err != nil {
		return fmt.Errorf("rendering system prompt: %w", err)
	}

	primary, err := buildEngine(cfg.Engines.Primary, cfg.Engines, systemPrompt)
	if err != nil {
		return err
	}
	secondary, err := buildEngine(cfg.Engines.Secondary, cfg.Engines, systemPrompt)
	if err != nil {
		return err
	}

	// --- Domain services ---
	schema, err := service.NewAdvisorySchema(logger)
	if err != nil {
		return fmt.Errorf("compiling response schema: %w", err)
	}
	selector := service.NewEngineSelector(primary, secondary, prompts, service.NewParser(schema),
		service.SelectorConfig{
			AttemptTimeout:  cfg.Engines.AttemptTimeout,
			FallbackSummary: cfg.Analysis.FallbackSummary,
		}, logger)

	normalizer := service.NewNormalizer(
		buildDefaults(cfg.Analysis.Defaults),
		buildConfidence(cfg.Analysis.ConfidenceSeed),
		cfg.Analysis.EngineVersion,
	)

	analyzer := service.NewAnalyzer(reports, selector, normalizer, logger,
		service.WithReportArchive(arch.reports),
		service.WithoutFallbackCaching(cfg.Cache.SkipFallbackReports),
	)

	extractor := extract.NewExtractor(extract.Config{
		PDFToText: cfg.Extraction.PDFToText,
		PDFToPPM:  cfg.Extraction.PDFToPPM,
		Tesseract: cfg.Extraction.Tesseract,
		Language:  cfg.Extraction.Language,
		DPI:       cfg.Extraction.DPI,
		MaxPages:  cfg.Extraction.MaxPages,
		Timeout:   cfg.Extraction.Timeout,
	}, logger)

	pipeline := service.NewUploadPipeline(
		extractor,
		analyzer,
		service.NewHistoryTracker(cfg.History.Capacity),
		service.NewMetrics(),
		arch.history,
		buildNotifier(cfg.Slack, logger),
		service.PipelineConfig{MinTextLength: cfg.Extraction.MinTextLength},
		logger,
	)
	if cfg.History.RestoreOnStart {
		if err := pipeline.Restore(ctx); err != nil {
			logger.Warn("history restore failed", "error", err)
		}
	}

	// --- HTTP API ---
	if err := os.MkdirAll(cfg.Upload.Dir, 0o750); err != nil {
		return fmt.Errorf("creating upload dir: %w", err)
	}
	handler := httpapi.NewHandler(pipeline, httpapi.HandlerConfig{
		UploadDir:         cfg.Upload.Dir,
		MaxUploadBytes:    cfg.Upload.MaxBytes,
		AllowedExtensions: cfg.Upload.AllowedExtensions,
	}, logger)
	apiServer := httpapi.NewServer(httpapi.ServerConfig{
		Port:               cfg.Server.Port,
		ReadTimeout:        cfg.Server.ReadTimeout,
		WriteTimeout:       cfg.Server.WriteTimeout,
		CORSOrigins:        cfg.Server.CORSOrigins,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
	}, handler, logger)

	// --- Health checker ---
	checker := health.NewChecker()
	checker.Register("database", arch.ping)
	checker.Register("cache", reports.ping)
	for _, engine := range []outbound.CompletionEngine{primary, secondary} {
		if engine != nil {
			checker.RegisterOptional("engine."+engine.Name(), engine.HealthCheck)
		}
	}

	metricsMux := http.NewServeMux()
	metricsMux.HandleFunc("/healthz", checker.LivenessHandler())
	metricsMux.HandleFunc("/readyz", checker.ReadinessHandler())
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: metricsMux,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return apiServer.Start(gCtx)
	})

	if cfg.Server.MetricsPort > 0 {
		g.Go(func() error {
			logger.Info("starting metrics server", "port", cfg.Server.MetricsPort)
			errCh := make(chan error, 1)
			go func() {
				if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()
			select {
			case <-gCtx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()
				return metricsServer.Shutdown(shutdownCtx)
			case err := <-errCh:
				return err
			}
		})
	}

	engineNames := []string{cfg.Engines.Primary}
	if cfg.Engines.Secondary != "" {
		engineNames = append(engineNames, cfg.Engines.Secondary)
	}
	logger.Info("mediq started",
		"version", version.String(),
		"engines", engineNames,
		"cache", cfg.Cache.Driver,
		"database", cfg.Database.Driver,
	)

	return g.Wait()
}

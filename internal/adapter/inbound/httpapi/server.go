package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/jonny/mediq/internal/adapter/inbound/httpapi/middleware"
)

// multipartOverhead is the body allowance on top of the file size limit.
const multipartOverhead = 1 << 20

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port               int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	CORSOrigins        []string
	RateLimitPerMinute int
}

// Server wraps the gin router with graceful shutdown support.
type Server struct {
	cfg     ServerConfig
	handler *Handler
	limiter *middleware.RateLimiter
	logger  *slog.Logger
	srv     *http.Server
}

func NewServer(cfg ServerConfig, handler *Handler, logger *slog.Logger) *Server {
	return &Server{
		cfg:     cfg,
		handler: handler,
		limiter: middleware.NewRateLimiter(cfg.RateLimitPerMinute),
		logger:  logger,
	}
}

// Router builds the gin engine.
//
//	GET  /                - banner
//	GET  /health          - service status
//	POST /upload          - analyze a document
//	GET  /history         - recent uploads and counters
//	GET  /history/export  - history as XLSX
func (s *Server) Router() *gin.Engine {
	origins := s.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestLogger(s.logger),
		middleware.SecurityHeaders(),
		cors.New(cors.Config{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
			MaxAge:       12 * time.Hour,
		}),
		s.limiter.Middleware(),
	)

	r.GET("/", s.handler.Root)
	r.GET("/health", s.handler.Health)
	r.POST("/upload", middleware.LimitBodySize(s.handler.cfg.MaxUploadBytes+multipartOverhead), s.handler.Upload)
	r.GET("/history", s.handler.History)
	r.GET("/history/export", s.handler.ExportHistory)
	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
	}

	done := make(chan struct{})
	defer close(done)
	go s.limiter.Run(done, 5*time.Minute, 10*time.Minute)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http.listening", "port", s.cfg.Port)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

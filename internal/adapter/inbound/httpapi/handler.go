package httpapi

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/jonny/mediq/internal/adapter/outbound/export"
	"github.com/jonny/mediq/internal/domain/model"
	"github.com/jonny/mediq/internal/domain/port/inbound"
	"github.com/jonny/mediq/internal/domain/port/outbound"
	"github.com/jonny/mediq/internal/domain/service"
	"github.com/jonny/mediq/pkg/apierror"
	"github.com/jonny/mediq/pkg/version"
)

const (
	DefaultMaxUploadBytes = 10 << 20
	formField             = "file"
	engineFailureMessage  = "Internal Processing Engine Failure"
	xlsxContentType       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var (
	errNoFile          = apierror.BadRequest("No file detected in request")
	errNoFilename      = apierror.BadRequest("No file selected")
	errTooLarge        = apierror.BadRequest("File too large. Max size is 10MB.")
	errExtraction      = apierror.Unprocessable("Extraction failed. The document appears empty or unreadable.")
	defaultAllowedExts = []string{".pdf", ".png", ".jpg", ".jpeg", ".csv", ".xlsx"}
)

// HandlerConfig controls upload validation and storage.
type HandlerConfig struct {
	UploadDir         string
	MaxUploadBytes    int64
	AllowedExtensions []string
}

// Handler serves the report API.
type Handler struct {
	svc     inbound.ReportService
	cfg     HandlerConfig
	allowed sets.Set[string]
	started time.Time
	logger  *slog.Logger
}

func NewHandler(svc inbound.ReportService, cfg HandlerConfig, logger *slog.Logger) *Handler {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = os.TempDir()
	}
	exts := cfg.AllowedExtensions
	if len(exts) == 0 {
		exts = defaultAllowedExts
	}
	allowed := sets.New[string]()
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		allowed.Insert(e)
	}
	return &Handler{svc: svc, cfg: cfg, allowed: allowed, started: time.Now(), logger: logger}
}

// Root answers GET /.
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "MediQ report analysis API",
		"docs":    "POST a document to /upload as multipart field 'file'",
		"status":  "online",
	})
}

// Health answers GET /health.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":            "healthy",
		"timestamp":         time.Now().UTC().Format(time.RFC3339),
		"version":           version.Version,
		"build":             version.Get(),
		"supported_formats": sets.List(h.allowed),
		"uptime":            time.Since(h.started).Round(time.Second).String(),
	})
}

// uploadResponse flattens the report next to the upload metadata.
type uploadResponse struct {
	*model.Report
	Meta        model.HistoryEntry   `json:"meta"`
	History     []model.HistoryEntry `json:"history"`
	Trend       model.Trend          `json:"trend"`
	SystemStats model.SystemMetrics  `json:"system_stats"`
}

// Upload answers POST /upload.
func (h *Handler) Upload(c *gin.Context) {
	sessionID := model.NewSessionID()
	log := h.logger.With("session_id", sessionID)

	fh, err := c.FormFile(formField)
	if err != nil {
		h.svc.RecordFailure()
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(c, errTooLarge.ForSession(sessionID))
			return
		}
		h.fail(c, errNoFile.ForSession(sessionID))
		return
	}
	if apiErr := h.validate(fh.Filename, fh.Size); apiErr != nil {
		h.svc.RecordFailure()
		h.fail(c, apiErr.ForSession(sessionID))
		return
	}

	name := filepath.Base(fh.Filename)
	dst := filepath.Join(h.cfg.UploadDir, strings.ReplaceAll(uuid.NewString(), "-", "")+"_"+name)
	if err := c.SaveUploadedFile(fh, dst); err != nil {
		h.svc.RecordFailure()
		log.Error("upload.save_failed", "error", err)
		h.fail(c, apierror.WithDetail(http.StatusInternalServerError, engineFailureMessage, err.Error()).ForSession(sessionID))
		return
	}
	defer func() {
		if err := os.Remove(dst); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn("upload.cleanup_failed", "path", dst, "error", err)
		}
	}()

	res, err := h.svc.ProcessUpload(c.Request.Context(), inbound.UploadRequest{
		SessionID: sessionID,
		Filename:  name,
		Path:      dst,
	})
	switch {
	case err == nil:
	case errors.Is(err, service.ErrExtractionFailed):
		h.fail(c, errExtraction.ForSession(sessionID))
		return
	case errors.Is(err, outbound.ErrUnsupportedFileType):
		h.svc.RecordFailure()
		h.fail(c, unsupported(filepath.Ext(name)).ForSession(sessionID))
		return
	default:
		h.svc.RecordFailure()
		log.Error("upload.failed", "error", err)
		h.fail(c, apierror.WithDetail(http.StatusInternalServerError, engineFailureMessage, err.Error()).ForSession(sessionID))
		return
	}

	c.JSON(http.StatusOK, uploadResponse{
		Report:      res.Report,
		Meta:        res.Entry,
		History:     res.History,
		Trend:       res.Trend,
		SystemStats: res.Metrics,
	})
}

func (h *Handler) validate(filename string, size int64) *apierror.Error {
	if strings.TrimSpace(filename) == "" {
		return errNoFilename
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !h.allowed.Has(ext) {
		return unsupported(ext)
	}
	if size > h.cfg.MaxUploadBytes {
		return errTooLarge
	}
	return nil
}

func unsupported(ext string) *apierror.Error {
	return apierror.BadRequest(fmt.Sprintf("Unsupported file type (%s). Upload PDF, Image, CSV or XLSX.", ext))
}

// History answers GET /history.
func (h *Handler) History(c *gin.Context) {
	entries := h.svc.History()
	c.JSON(http.StatusOK, gin.H{
		"count":   len(entries),
		"reports": entries,
		"metrics": h.svc.Metrics(),
		"trend":   h.svc.Trend(),
	})
}

// ExportHistory answers GET /history/export with an XLSX workbook.
func (h *Handler) ExportHistory(c *gin.Context) {
	data, err := export.HistoryXLSX(h.svc.History(), h.svc.Trend(), h.svc.Metrics())
	if err != nil {
		h.logger.Error("history.export_failed", "error", err)
		h.fail(c, apierror.Internal("history export failed"))
		return
	}
	filename := fmt.Sprintf("mediq-history-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

func (h *Handler) fail(c *gin.Context, e *apierror.Error) {
	c.AbortWithStatusJSON(e.Status, e)
}

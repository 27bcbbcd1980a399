package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jonny/mediq/internal/domain/port/outbound"
)

// Config names the external tools and OCR settings.
type Config struct {
	PDFToText string
	PDFToPPM  string
	Tesseract string
	Language  string
	DPI       int
	MaxPages  int
	Timeout   time.Duration
}

func (c Config) withDefaults() Config {
	if c.PDFToText == "" {
		c.PDFToText = "pdftotext"
	}
	if c.PDFToPPM == "" {
		c.PDFToPPM = "pdftoppm"
	}
	if c.Tesseract == "" {
		c.Tesseract = "tesseract"
	}
	if c.Language == "" {
		c.Language = "eng"
	}
	if c.DPI <= 0 {
		c.DPI = 144
	}
	if c.Timeout <= 0 {
		c.Timeout = 2 * time.Minute
	}
	return c
}

// Extractor implements outbound.TextExtractor. Read failures are logged and
// produce empty text; only unknown file types return an error.
type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

var _ outbound.TextExtractor = (*Extractor)(nil)

type Option func(*Extractor)

// WithRunner replaces the command runner.
func WithRunner(r Runner) Option {
	return func(e *Extractor) { e.runner = r }
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	e := &Extractor{cfg: cfg.withDefaults(), runner: ExecRunner{}, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Extractor) Extract(ctx context.Context, path string) (outbound.Extraction, error) {
	ft := DetectFileType(path)
	log := e.logger.With("path", filepath.Base(path), "file_type", ft)
	log.Debug("extract.detected")

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	out := outbound.Extraction{FileType: ft}
	var err error
	switch ft {
	case outbound.FileTypePDF:
		out.Text, out.OCRUsed, err = e.extractPDF(ctx, log, path)
	case outbound.FileTypeImage:
		out.OCRUsed = true
		out.Text, err = e.ocr(ctx, path)
	case outbound.FileTypeCSV:
		out.Text, err = extractCSV(path)
	case outbound.FileTypeXLSX:
		out.Text, err = extractXLSX(path)
	default:
		return out, fmt.Errorf("%s: %w", filepath.Ext(path), outbound.ErrUnsupportedFileType)
	}
	if err != nil {
		log.Warn("extract.failed", "error", err)
		out.Text = ""
	}
	out.Text = strings.TrimSpace(out.Text)
	return out, nil
}

// extractPDF reads the text layer and falls back to OCR of rasterized pages
// when it is empty.
func (e *Extractor) extractPDF(ctx context.Context, log *slog.Logger, path string) (string, bool, error) {
	args := []string{"-layout"}
	if e.cfg.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(e.cfg.MaxPages))
	}
	raw, err := e.runner.Run(ctx, e.cfg.PDFToText, append(args, path, "-")...)
	if err != nil {
		log.Warn("extract.pdf_text_failed", "error", err)
	}
	if text := strings.TrimSpace(string(raw)); text != "" {
		return text, false, nil
	}

	log.Info("extract.pdf_ocr_fallback")
	text, err := e.ocrPDF(ctx, path)
	return text, true, err
}

func (e *Extractor) ocrPDF(ctx context.Context, path string) (string, error) {
	dir, err := os.MkdirTemp("", "mediq-pages-*")
	if err != nil {
		return "", fmt.Errorf("creating page dir: %w", err)
	}
	defer os.RemoveAll(dir)

	args := []string{"-r", strconv.Itoa(e.cfg.DPI), "-png"}
	if e.cfg.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(e.cfg.MaxPages))
	}
	if _, err := e.runner.Run(ctx, e.cfg.PDFToPPM, append(args, path, filepath.Join(dir, "page"))...); err != nil {
		return "", fmt.Errorf("rasterizing pdf: %w", err)
	}

	pages, err := filepath.Glob(filepath.Join(dir, "page*.png"))
	if err != nil {
		return "", err
	}
	slices.Sort(pages)

	texts := make([]string, 0, len(pages))
	for _, page := range pages {
		text, err := e.ocr(ctx, page)
		if err != nil {
			return "", err
		}
		texts = append(texts, text)
	}
	return strings.Join(texts, "\n"), nil
}

func (e *Extractor) ocr(ctx context.Context, path string) (string, error) {
	out, err := e.runner.Run(ctx, e.cfg.Tesseract, path, "stdout", "-l", e.cfg.Language)
	if err != nil {
		return "", fmt.Errorf("ocr: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

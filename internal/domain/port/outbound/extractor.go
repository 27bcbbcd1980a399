package outbound

import (
	"context"
	"errors"
)

var ErrUnsupportedFileType = errors.New("unsupported file type")

type FileType string

const (
	FileTypePDF     FileType = "pdf"
	FileTypeImage   FileType = "image"
	FileTypeCSV     FileType = "csv"
	FileTypeXLSX    FileType = "xlsx"
	FileTypeUnknown FileType = "unknown"
)

// Extraction is the text pulled out of an uploaded document.
type Extraction struct {
	Text     string
	FileType FileType
	OCRUsed  bool
}

// TextExtractor turns a document on disk into plain text. Unreadable
// documents yield an empty Text rather than an error; only unsupported types
// fail with ErrUnsupportedFileType.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (Extraction, error)
}

package extract

import (
	"mime"
	"path/filepath"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/jonny/mediq/internal/domain/port/outbound"
)

var (
	pdfExtensions   = sets.New(".pdf")
	imageExtensions = sets.New(".png", ".jpg", ".jpeg")
	csvExtensions   = sets.New(".csv")
	xlsxExtensions  = sets.New(".xlsx")
)

// SupportedExtensions lists every extension DetectFileType recognizes
// directly, sorted.
func SupportedExtensions() []string {
	return sets.List(pdfExtensions.Union(imageExtensions).Union(csvExtensions).Union(xlsxExtensions))
}

// DetectFileType classifies path by extension, falling back to the MIME type
// registered for it.
func DetectFileType(path string) outbound.FileType {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case pdfExtensions.Has(ext):
		return outbound.FileTypePDF
	case imageExtensions.Has(ext):
		return outbound.FileTypeImage
	case csvExtensions.Has(ext):
		return outbound.FileTypeCSV
	case xlsxExtensions.Has(ext):
		return outbound.FileTypeXLSX
	}

	mt := mime.TypeByExtension(ext)
	switch {
	case mt == "":
		return outbound.FileTypeUnknown
	case strings.Contains(mt, "pdf"):
		return outbound.FileTypePDF
	case strings.HasPrefix(mt, "image/"):
		return outbound.FileTypeImage
	case strings.Contains(mt, "csv"):
		return outbound.FileTypeCSV
	case strings.Contains(mt, "spreadsheetml"):
		return outbound.FileTypeXLSX
	}
	return outbound.FileTypeUnknown
}

package service

import (
	"sync/atomic"

	"github.com/jonny/mediq/internal/domain/model"
)

// Metrics holds the process-wide scan counters. Counters only grow.
type Metrics struct {
	totalFiles atomic.Int64
	successful atomic.Int64
	failed     atomic.Int64
	ocr        atomic.Int64
}

func NewMetrics() *Metrics { return &Metrics{} }

// RecordSuccess counts one fully processed file.
func (m *Metrics) RecordSuccess() {
	m.totalFiles.Add(1)
	m.successful.Add(1)
}

func (m *Metrics) RecordFailure() { m.failed.Add(1) }

func (m *Metrics) RecordOCR() { m.ocr.Add(1) }

func (m *Metrics) Snapshot() model.SystemMetrics {
	return model.SystemMetrics{
		TotalFilesProcessed: m.totalFiles.Load(),
		SuccessfulScans:     m.successful.Load(),
		FailedScans:         m.failed.Load(),
		OCRExtractions:      m.ocr.Load(),
	}
}

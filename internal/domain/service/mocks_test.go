package service_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonny/mediq/internal/domain/model"
	"github.com/jonny/mediq/internal/domain/port/outbound"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- mock CompletionEngine ---

type mockEngine struct {
	name       string
	completion string
	err        error
	delay      time.Duration
	calls      atomic.Int32
}

func (m *mockEngine) Name() string { return m.name }

func (m *mockEngine) Complete(ctx context.Context, _ string) (string, error) {
	m.calls.Add(1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return m.completion, m.err
}

func (m *mockEngine) HealthCheck(_ context.Context) error { return nil }

func (m *mockEngine) ModelInfo(_ context.Context) (outbound.ModelInfo, error) {
	return outbound.ModelInfo{Provider: m.name, Model: "test-model"}, nil
}

var _ outbound.CompletionEngine = (*mockEngine)(nil)

// --- mock PromptBuilder ---

type mockPrompts struct {
	err error
}

func (m *mockPrompts) BuildAnalysisPrompt(text string) (string, error) {
	return "PROMPT:" + text, m.err
}

var _ outbound.PromptBuilder = (*mockPrompts)(nil)

// --- mock TextExtractor ---

type mockExtractor struct {
	extraction outbound.Extraction
	err        error
}

func (m *mockExtractor) Extract(_ context.Context, _ string) (outbound.Extraction, error) {
	return m.extraction, m.err
}

var _ outbound.TextExtractor = (*mockExtractor)(nil)

// --- mock Notifier ---

type mockNotifier struct {
	mu            sync.Mutex
	notifications []outbound.ReportNotification
	err           error
}

func (m *mockNotifier) NotifyReport(_ context.Context, n outbound.ReportNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, n)
	return m.err
}

func (m *mockNotifier) SendMessage(_ context.Context, _ string, _ outbound.NotificationLevel) error {
	return nil
}

var _ outbound.Notifier = (*mockNotifier)(nil)

// --- mock repositories ---

type mockReportRepo struct {
	mu    sync.Mutex
	saved map[string]*model.Report
}

func newMockReportRepo() *mockReportRepo {
	return &mockReportRepo{saved: make(map[string]*model.Report)}
}

func (m *mockReportRepo) Save(_ context.Context, fingerprint string, r *model.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[fingerprint] = r.Clone()
	return nil
}

func (m *mockReportRepo) GetByAnalysisID(_ context.Context, id string) (*model.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.saved {
		if r.Audit.AnalysisID == id {
			return r.Clone(), nil
		}
	}
	return nil, outbound.ErrNotFound
}

func (m *mockReportRepo) GetByFingerprint(_ context.Context, fingerprint string) (*model.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.saved[fingerprint]; ok {
		return r.Clone(), nil
	}
	return nil, outbound.ErrNotFound
}

func (m *mockReportRepo) List(_ context.Context, page outbound.PageRequest) (outbound.PageResult[model.Report], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]model.Report, 0, len(m.saved))
	for _, r := range m.saved {
		items = append(items, *r.Clone())
	}
	return outbound.PageResult[model.Report]{Items: items, TotalCount: int64(len(items)), Page: page.Page, Size: page.Size}, nil
}

var _ outbound.ReportRepository = (*mockReportRepo)(nil)

type mockHistoryRepo struct {
	mu      sync.Mutex
	entries []model.HistoryEntry
}

func (m *mockHistoryRepo) Append(_ context.Context, e model.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockHistoryRepo) Recent(_ context.Context, limit int) ([]model.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) <= limit {
		return append([]model.HistoryEntry(nil), m.entries...), nil
	}
	return append([]model.HistoryEntry(nil), m.entries[len(m.entries)-limit:]...), nil
}

func (m *mockHistoryRepo) Count(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.entries)), nil
}

var _ outbound.HistoryRepository = (*mockHistoryRepo)(nil)

const validCompletion = "```json\n" + `{
  "user_profile": {"name": "Jane Doe", "age": 42, "gender": "F"},
  "parameters": [
    {"name": "Potassium", "value": "6.8", "unit": "mmol/L", "normalRange": "3.5-5.1", "status": "CRITICAL", "confidence": 0.8},
    {"name": "Sodium", "value": 150, "unit": "mmol/L", "normalRange": "135-145", "status": "high", "confidence": 0.9},
    {"name": "Glucose", "value": "90", "unit": "mg/dL", "normalRange": "70-99", "status": "normal", "confidence": 0.95, "explanation": "Within range."}
  ],
  "recommendations": ["Repeat electrolytes"],
  "summary": "Hyperkalemia detected."
}` + "\n```"

package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonny/mediq/internal/domain/model"
	"github.com/jonny/mediq/internal/domain/port/inbound"
	"github.com/jonny/mediq/internal/domain/port/outbound"
	"github.com/jonny/mediq/internal/domain/service"
)

const criticalOnly = `{"user_profile": {"name": "Ravi"}, "parameters": [
	{"name": "Troponin", "value": "2.1", "status": "critical"},
	{"name": "CK-MB", "value": "40", "status": "critical"},
	{"name": "BNP", "value": "900", "status": "high"}
], "summary": "Cardiac markers elevated."}`

type pipelineFixture struct {
	pipeline  *service.UploadPipeline
	extractor *mockExtractor
	notifier  *mockNotifier
	archive   *mockHistoryRepo
	history   *service.HistoryTracker
}

func newPipelineFixture(completion string, ext outbound.Extraction) *pipelineFixture {
	selector := service.NewEngineSelector(&mockEngine{name: "gemini", completion: completion}, nil,
		&mockPrompts{}, service.NewParser(nil), service.SelectorConfig{AttemptTimeout: time.Second}, discardLogger())
	analyzer := service.NewAnalyzer(service.NewMemoryCache(), selector,
		service.NewNormalizer(service.DefaultDefaults(), service.NewSeededConfidenceHeuristic(1), ""), discardLogger())

	f := &pipelineFixture{
		extractor: &mockExtractor{extraction: ext},
		notifier:  &mockNotifier{},
		archive:   &mockHistoryRepo{},
		history:   service.NewHistoryTracker(15),
	}
	f.pipeline = service.NewUploadPipeline(f.extractor, analyzer, f.history, service.NewMetrics(), f.archive, f.notifier,
		service.PipelineConfig{}, discardLogger())
	return f
}

func upload(name string) inbound.UploadRequest {
	return inbound.UploadRequest{SessionID: "SES-TEST0001", Filename: name, Path: "/tmp/" + name}
}

func TestUploadPipeline_Success(t *testing.T) {
	f := newPipelineFixture(validCompletion, outbound.Extraction{Text: "Potassium 6.8 mmol/L ...", FileType: outbound.FileTypePDF})

	res, err := f.pipeline.ProcessUpload(context.Background(), upload("labs.pdf"))
	require.NoError(t, err)

	assert.Equal(t, 61, res.Report.RiskMetrics.HealthScore)
	assert.Equal(t, "SES-TEST0001", res.Entry.SessionID)
	assert.Equal(t, "PDF", res.Entry.FileType)
	assert.Equal(t, "labs.pdf", res.Entry.Filename)
	assert.Equal(t, 61, res.Entry.HealthScore)
	assert.Equal(t, res.Report.Audit.AnalysisID, res.Entry.AnalysisID)
	require.Len(t, res.History, 1)
	assert.Equal(t, model.TrendStable, res.Trend)
	assert.Equal(t, model.SystemMetrics{TotalFilesProcessed: 1, SuccessfulScans: 1}, res.Metrics)

	require.Len(t, f.archive.entries, 1)
	assert.Equal(t, res.Entry.ReportID, f.archive.entries[0].ReportID)

	require.Len(t, f.notifier.notifications, 1, "critical parameter should notify")
	n := f.notifier.notifications[0]
	assert.Equal(t, outbound.NotificationCritical, n.Level)
	require.Len(t, n.RedFlags, 1)
	assert.Equal(t, "Potassium", n.RedFlags[0].Name)
}

func TestUploadPipeline_HighRiskWithoutRedFlags(t *testing.T) {
	completion := `{"parameters": [
		{"status": "high"}, {"status": "high"}, {"status": "low"}, {"status": "low"}, {"status": "high"}
	]}`
	f := newPipelineFixture(completion, outbound.Extraction{Text: "a long enough document", FileType: outbound.FileTypeCSV})

	res, err := f.pipeline.ProcessUpload(context.Background(), upload("panel.csv"))
	require.NoError(t, err)
	assert.Equal(t, model.RiskHigh, res.Report.RiskMetrics.OverallRisk)
	require.Len(t, f.notifier.notifications, 1)
	assert.Equal(t, outbound.NotificationWarning, f.notifier.notifications[0].Level)
}

func TestUploadPipeline_NoNotificationForLowRisk(t *testing.T) {
	f := newPipelineFixture(`{"parameters": [{"status": "normal"}]}`, outbound.Extraction{Text: "plenty of text here"})

	_, err := f.pipeline.ProcessUpload(context.Background(), upload("ok.pdf"))
	require.NoError(t, err)
	assert.Empty(t, f.notifier.notifications)
}

func TestUploadPipeline_TrendAcrossUploads(t *testing.T) {
	f := newPipelineFixture(criticalOnly, outbound.Extraction{Text: "first document text"})
	ctx := context.Background()

	f.history.Append(model.HistoryEntry{ReportID: "REP-OLD", HealthScore: 90})
	res, err := f.pipeline.ProcessUpload(ctx, upload("cardiac.png"))
	require.NoError(t, err)

	assert.Equal(t, 100-25-25-12, res.Entry.HealthScore)
	assert.Equal(t, model.TrendDeclining, res.Trend)
	assert.Equal(t, "PNG", res.Entry.FileType)
	assert.Len(t, f.pipeline.History(), 2)
	assert.Equal(t, model.TrendDeclining, f.pipeline.Trend())
}

func TestUploadPipeline_ConcurrentUploadsReturnOneWindow(t *testing.T) {
	f := newPipelineFixture(validCompletion, outbound.Extraction{Text: "Potassium 6.8 mmol/L ..."})
	f.history.Append(model.HistoryEntry{ReportID: "REP-OLD", HealthScore: 90})

	const n = 20
	var wg sync.WaitGroup
	results := make([]inbound.UploadResult, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.pipeline.ProcessUpload(context.Background(), upload("labs.pdf"))
		}(i)
	}
	wg.Wait()

	for i, res := range results {
		require.NoError(t, errs[i])
		require.NotEmpty(t, res.History)
		assert.Equal(t, res.Entry.ReportID, res.History[len(res.History)-1].ReportID)
		assert.Equal(t, service.TrendOf(res.History), res.Trend)
	}
}

func TestUploadPipeline_ExtractionFailures(t *testing.T) {
	t.Run("too short", func(t *testing.T) {
		f := newPipelineFixture(validCompletion, outbound.Extraction{Text: "  abc \n"})
		_, err := f.pipeline.ProcessUpload(context.Background(), upload("blank.pdf"))
		assert.ErrorIs(t, err, service.ErrExtractionFailed)
		assert.Zero(t, f.pipeline.Metrics().SuccessfulScans)
		assert.Zero(t, f.history.Len())
	})

	t.Run("unsupported", func(t *testing.T) {
		f := newPipelineFixture(validCompletion, outbound.Extraction{})
		f.extractor.err = outbound.ErrUnsupportedFileType
		_, err := f.pipeline.ProcessUpload(context.Background(), upload("notes.docx"))
		assert.ErrorIs(t, err, outbound.ErrUnsupportedFileType)
	})

	t.Run("extractor error", func(t *testing.T) {
		f := newPipelineFixture(validCompletion, outbound.Extraction{})
		f.extractor.err = errors.New("disk gone")
		_, err := f.pipeline.ProcessUpload(context.Background(), upload("x.pdf"))
		require.Error(t, err)
		assert.NotErrorIs(t, err, service.ErrExtractionFailed)
	})
}

func TestUploadPipeline_CountsOCR(t *testing.T) {
	f := newPipelineFixture(validCompletion, outbound.Extraction{Text: "scanned text of report", FileType: outbound.FileTypeImage, OCRUsed: true})

	_, err := f.pipeline.ProcessUpload(context.Background(), upload("scan.jpg"))
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.pipeline.Metrics().OCRExtractions)

	f.pipeline.RecordFailure()
	assert.EqualValues(t, 1, f.pipeline.Metrics().FailedScans)
}

func TestUploadPipeline_NotifierErrorIsIgnored(t *testing.T) {
	f := newPipelineFixture(criticalOnly, outbound.Extraction{Text: "document body text"})
	f.notifier.err = errors.New("slack down")

	_, err := f.pipeline.ProcessUpload(context.Background(), upload("x.pdf"))
	assert.NoError(t, err)
}

func TestUploadPipeline_Restore(t *testing.T) {
	f := newPipelineFixture(validCompletion, outbound.Extraction{})
	for i, s := range []int{50, 70} {
		require.NoError(t, f.archive.Append(context.Background(), model.HistoryEntry{ReportID: string(rune('a' + i)), HealthScore: s}))
	}

	require.NoError(t, f.pipeline.Restore(context.Background()))
	assert.Len(t, f.pipeline.History(), 2)
	assert.Equal(t, model.TrendImproving, f.pipeline.Trend())
}

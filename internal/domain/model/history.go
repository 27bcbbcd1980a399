package model

import "time"

type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)

// HistoryEntry is the lightweight snapshot kept for every successful upload.
type HistoryEntry struct {
	ReportID       string    `json:"report_id"`
	SessionID      string    `json:"session_id"`
	Timestamp      time.Time `json:"timestamp"`
	Filename       string    `json:"filename"`
	FileType       string    `json:"file_type"`
	HealthScore    int       `json:"health_score"`
	OverallRisk    RiskTier  `json:"overall_risk"`
	ProcessingTime float64   `json:"processing_time"`
	AnalysisID     string    `json:"analysis_id,omitempty"`
}

func NewHistoryEntry(sessionID, filename, fileType string, report *Report, processingTime time.Duration) HistoryEntry {
	return HistoryEntry{
		ReportID:       NewReportID(),
		SessionID:      sessionID,
		Timestamp:      time.Now().UTC(),
		Filename:       filename,
		FileType:       fileType,
		HealthScore:    report.RiskMetrics.HealthScore,
		OverallRisk:    report.RiskMetrics.OverallRisk,
		ProcessingTime: roundSeconds(processingTime),
		AnalysisID:     report.Audit.AnalysisID,
	}
}

func roundSeconds(d time.Duration) float64 {
	return float64(d.Round(10*time.Millisecond).Milliseconds()) / 1000
}

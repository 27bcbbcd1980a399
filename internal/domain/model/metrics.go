package model

// SystemMetrics is a point-in-time view of the process-wide counters.
type SystemMetrics struct {
	TotalFilesProcessed int64 `json:"total_files_processed"`
	SuccessfulScans     int64 `json:"successful_scans"`
	FailedScans         int64 `json:"failed_scans"`
	OCRExtractions      int64 `json:"ocr_extractions"`
}

package model

import "time"

// Engine identifiers that are not backed by a completion engine.
const (
	EngineCache         = "cache"
	EngineErrorFallback = "error-fallback"
)

// CacheHitProcessingMs is the processing time reported for cache hits.
const CacheHitProcessingMs = 1

type UserProfile struct {
	Name   string `json:"name"`
	Age    string `json:"age"`
	Gender string `json:"gender"`
}

// AuditOrigin records the engine and timing of the computation that first
// produced a report. It is never overwritten by cache hits.
type AuditOrigin struct {
	AnalysisID       string    `json:"analysis_id"`
	Engine           string    `json:"engine"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	Timestamp        time.Time `json:"timestamp"`
}

type Audit struct {
	AnalysisID       string       `json:"analysis_id"`
	Timestamp        time.Time    `json:"timestamp"`
	Engine           string       `json:"engine"`
	EngineVersion    string       `json:"engine_version"`
	ProcessingTimeMs int64        `json:"processing_time_ms"`
	CacheHit         bool         `json:"cache_hit"`
	Origin           *AuditOrigin `json:"origin,omitempty"`
}

type Report struct {
	UserProfile     UserProfile `json:"user_profile"`
	Parameters      []Parameter `json:"parameters"`
	Summary         string      `json:"summary"`
	Recommendations []string    `json:"recommendations"`
	RiskMetrics     RiskMetrics `json:"risk_metrics"`
	Audit           Audit       `json:"audit"`
}

// Clone returns a deep copy of r.
func (r *Report) Clone() *Report {
	if r == nil {
		return nil
	}
	out := *r
	out.Parameters = append([]Parameter(nil), r.Parameters...)
	out.Recommendations = append([]string(nil), r.Recommendations...)
	if out.Parameters == nil {
		out.Parameters = []Parameter{}
	}
	if out.Recommendations == nil {
		out.Recommendations = []string{}
	}
	if r.Audit.Origin != nil {
		origin := *r.Audit.Origin
		out.Audit.Origin = &origin
	}
	return &out
}

// WithOrigin stamps the origin record from the current audit fields unless
// one is already present.
func (r *Report) WithOrigin() *Report {
	if r.Audit.Origin == nil {
		r.Audit.Origin = &AuditOrigin{
			AnalysisID:       r.Audit.AnalysisID,
			Engine:           r.Audit.Engine,
			ProcessingTimeMs: r.Audit.ProcessingTimeMs,
			Timestamp:        r.Audit.Timestamp,
		}
	}
	return r
}

// MarkCacheHit rewrites the audit block for a cache hit. The origin record is
// left untouched.
func (r *Report) MarkCacheHit() {
	r.WithOrigin()
	r.Audit.CacheHit = true
	r.Audit.Engine = EngineCache
	r.Audit.ProcessingTimeMs = CacheHitProcessingMs
}

// HasRedFlags reports whether any parameter is flagged critical.
func (r *Report) HasRedFlags() bool {
	for _, p := range r.Parameters {
		if p.RedFlag {
			return true
		}
	}
	return false
}

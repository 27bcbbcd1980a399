package service

import (
	"fmt"
	"time"

	"github.com/jonny/mediq/internal/domain/model"
)

// DefaultEngineVersion is stamped on every report unless configured otherwise.
const DefaultEngineVersion = "v5.0-prod"

// Defaults holds the value substituted for each field an engine omits.
type Defaults struct {
	ParameterName        string
	ParameterValue       string
	ParameterUnit        string
	ParameterNormalRange string
	ParameterStatus      model.Status
	ProfileName          string
	ProfileAge           string
	ProfileGender        string
	Summary              string
}

// DefaultDefaults returns the canonical field defaults.
func DefaultDefaults() Defaults {
	return Defaults{
		ParameterName:   "Unknown Parameter",
		ParameterStatus: model.StatusNormal,
		ProfileName:     "Unknown",
		ProfileAge:      "N/A",
		ProfileGender:   "N/A",
		Summary:         "No summary available.",
	}
}

// Normalizer maps a RawAnalysis onto the canonical Report. All default
// filling happens here.
type Normalizer struct {
	defaults      Defaults
	confidence    *ConfidenceHeuristic
	engineVersion string
	now           func() time.Time
	newID         func() string
}

type NormalizerOption func(*Normalizer)

// WithClock overrides the audit timestamp source.
func WithClock(now func() time.Time) NormalizerOption {
	return func(n *Normalizer) { n.now = now }
}

// WithIDGenerator overrides the analysis id source.
func WithIDGenerator(newID func() string) NormalizerOption {
	return func(n *Normalizer) { n.newID = newID }
}

func NewNormalizer(defaults Defaults, confidence *ConfidenceHeuristic, engineVersion string, opts ...NormalizerOption) *Normalizer {
	if defaults.ParameterStatus == "" {
		defaults.ParameterStatus = model.StatusNormal
	}
	if engineVersion == "" {
		engineVersion = DefaultEngineVersion
	}
	n := &Normalizer{
		defaults:      defaults,
		confidence:    confidence,
		engineVersion: engineVersion,
		now:           time.Now,
		newID:         model.NewAnalysisID,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize builds a Report from raw. Risk metrics are computed from the
// normalized parameters.
func (n *Normalizer) Normalize(raw RawAnalysis, engine string, elapsed time.Duration, cacheHit bool) *model.Report {
	params := make([]model.Parameter, 0, len(raw.Parameters))
	for _, rp := range raw.Parameters {
		params = append(params, n.normalizeParameter(rp))
	}

	var profile RawProfile
	if raw.UserProfile != nil {
		profile = *raw.UserProfile
	}

	recommendations := []string(raw.Recommendations)
	if recommendations == nil {
		recommendations = []string{}
	}

	return &model.Report{
		UserProfile: model.UserProfile{
			Name:   profile.Name.String(n.defaults.ProfileName),
			Age:    profile.Age.String(n.defaults.ProfileAge),
			Gender: profile.Gender.String(n.defaults.ProfileGender),
		},
		Parameters:      params,
		Summary:         raw.Summary.String(n.defaults.Summary),
		Recommendations: recommendations,
		RiskMetrics:     ScoreParameters(params),
		Audit: model.Audit{
			AnalysisID:       n.newID(),
			Timestamp:        n.now().UTC(),
			Engine:           engine,
			EngineVersion:    n.engineVersion,
			ProcessingTimeMs: elapsed.Milliseconds(),
			CacheHit:         cacheHit,
		},
	}
}

func (n *Normalizer) normalizeParameter(rp RawParameter) model.Parameter {
	name := rp.Name.String(n.defaults.ParameterName)

	status := n.defaults.ParameterStatus
	if rp.Status.Set {
		status = model.NormalizeStatus(rp.Status.Value)
	}

	// Zero counts as absent, matching engines that emit a 0.0 placeholder.
	var confidence float64
	if rp.Confidence.Set && rp.Confidence.Value > 0 {
		confidence = min(rp.Confidence.Value, 1)
	} else {
		confidence = n.confidence.For(status)
	}

	explanation := rp.Explanation.String(fmt.Sprintf("%s interpreted as %s.", name, status))

	return model.NewParameter(
		name,
		rp.Value.String(n.defaults.ParameterValue),
		rp.Unit.String(n.defaults.ParameterUnit),
		rp.NormalRange.String(n.defaults.ParameterNormalRange),
		status,
		confidence,
		explanation,
	)
}

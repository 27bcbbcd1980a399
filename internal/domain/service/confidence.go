package service

import (
	"math"
	"math/rand"
	"sync"

	"github.com/jonny/mediq/internal/domain/model"
)

type confidenceRange struct{ min, max float64 }

var confidenceRanges = map[model.Status]confidenceRange{
	model.StatusNormal:   {0.85, 0.98},
	model.StatusLow:      {0.75, 0.90},
	model.StatusHigh:     {0.75, 0.90},
	model.StatusCritical: {0.65, 0.85},
}

var defaultConfidenceRange = confidenceRange{0.60, 0.80}

// ConfidenceHeuristic synthesizes a plausible confidence for parameters whose
// engine omitted one. The value is a uniform draw from a per-status range and
// carries no real signal; it is a placeholder, not a calibrated model.
type ConfidenceHeuristic struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewConfidenceHeuristic returns a heuristic driven by src. A fixed seed gives
// a reproducible sequence.
func NewConfidenceHeuristic(src rand.Source) *ConfidenceHeuristic {
	return &ConfidenceHeuristic{rng: rand.New(src)}
}

// NewSeededConfidenceHeuristic is a shorthand for a math/rand source seeded with seed.
func NewSeededConfidenceHeuristic(seed int64) *ConfidenceHeuristic {
	return NewConfidenceHeuristic(rand.NewSource(seed))
}

// For returns a confidence in the range associated with status, rounded to
// two decimals.
func (h *ConfidenceHeuristic) For(status model.Status) float64 {
	r, ok := confidenceRanges[status]
	if !ok {
		r = defaultConfidenceRange
	}
	h.mu.Lock()
	u := h.rng.Float64()
	h.mu.Unlock()
	return round2(r.min + u*(r.max-r.min))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

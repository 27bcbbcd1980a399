package model

import "strings"

type Status string

const (
	StatusLow      Status = "low"
	StatusNormal   Status = "normal"
	StatusHigh     Status = "high"
	StatusCritical Status = "critical"
)

// NormalizeStatus lower-cases and trims s. Unknown values are kept as-is so the
// scorer can ignore them; an empty status becomes normal.
func NormalizeStatus(s string) Status {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return StatusNormal
	}
	return Status(s)
}

func (s Status) IsAbnormal() bool {
	return s == StatusLow || s == StatusHigh
}

// Parameter is one measured biomarker.
type Parameter struct {
	Name        string  `json:"name"`
	Value       string  `json:"value"`
	Unit        string  `json:"unit"`
	NormalRange string  `json:"normalRange"`
	Status      Status  `json:"status"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation"`
	RedFlag     bool    `json:"red_flag"`
}

func NewParameter(name, value, unit, normalRange string, status Status, confidence float64, explanation string) Parameter {
	return Parameter{
		Name:        name,
		Value:       value,
		Unit:        unit,
		NormalRange: normalRange,
		Status:      status,
		Confidence:  confidence,
		Explanation: explanation,
		RedFlag:     status == StatusCritical,
	}
}

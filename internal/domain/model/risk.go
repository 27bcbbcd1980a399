package model

type RiskTier string

const (
	RiskLow      RiskTier = "low-risk"
	RiskModerate RiskTier = "moderate-risk"
	RiskHigh     RiskTier = "high-risk"
)

const (
	MinHealthScore = 5
	MaxHealthScore = 100
)

// TierForScore maps a health score onto its risk tier.
func TierForScore(score int) RiskTier {
	switch {
	case score >= 75:
		return RiskLow
	case score >= 45:
		return RiskModerate
	default:
		return RiskHigh
	}
}

type RiskMetrics struct {
	HealthScore       int      `json:"health_score"`
	OverallRisk       RiskTier `json:"overall_risk"`
	CriticalCount     int      `json:"critical_count"`
	AbnormalCount     int      `json:"abnormal_count"`
	AverageConfidence float64  `json:"average_confidence"`
}

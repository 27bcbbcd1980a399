package service

import "github.com/jonny/mediq/internal/domain/model"

const (
	criticalPenalty = 25
	abnormalPenalty = 12
	normalPenalty   = 2
)

// ScoreParameters aggregates params into RiskMetrics. The result does not
// depend on parameter order.
func ScoreParameters(params []model.Parameter) model.RiskMetrics {
	score := model.MaxHealthScore
	var critical, abnormal int
	var confidenceSum float64

	for _, p := range params {
		confidenceSum += p.Confidence
		switch p.Status {
		case model.StatusCritical:
			score -= criticalPenalty
			critical++
		case model.StatusHigh, model.StatusLow:
			score -= abnormalPenalty
			abnormal++
		case model.StatusNormal:
			score -= normalPenalty
		}
	}

	score = max(model.MinHealthScore, min(model.MaxHealthScore, score))

	var avg float64
	if len(params) > 0 {
		avg = round2(confidenceSum / float64(len(params)))
	}

	return model.RiskMetrics{
		HealthScore:       score,
		OverallRisk:       model.TierForScore(score),
		CriticalCount:     critical,
		AbnormalCount:     abnormal,
		AverageConfidence: avg,
	}
}

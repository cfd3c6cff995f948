package health

import (
	"github.com/ryu111/stock-health-bot-sub001/internal/contracts"
)

// AnalysisScores derives the synthesizer inputs from a report
// The technical category is the one canonical technical score.
func AnalysisScores(r *contracts.HealthReport) contracts.AnalysisScores {
	return contracts.AnalysisScores{
		Technical: r.CategoryScore(contracts.CategoryTechnical),
		Fundamental: 0.4*r.CategoryScore(contracts.CategoryFundamentals) +
			0.3*r.CategoryScore(contracts.CategoryQuality) +
			0.3*r.CategoryScore(contracts.CategoryValuation),
		Risk: 100 - r.CategoryScore(contracts.CategoryRisk),
	}
}

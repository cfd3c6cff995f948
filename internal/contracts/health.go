package contracts

// Category is one of the seven health-score categories
type Category string

const (
	CategoryValuation    Category = "valuation"
	CategoryFundamentals Category = "fundamentals"
	CategoryGrowth       Category = "growth"
	CategoryQuality      Category = "quality"
	CategoryRisk         Category = "risk"
	CategoryTechnical    Category = "technical"
	CategoryLiquidity    Category = "liquidity"
)

// Categories returns the seven categories in report order
func Categories() []Category {
	return []Category{
		CategoryValuation,
		CategoryFundamentals,
		CategoryGrowth,
		CategoryQuality,
		CategoryRisk,
		CategoryTechnical,
		CategoryLiquidity,
	}
}

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Grade is the fixed-band grade of a 0~100 score
type Grade string

const (
	GradeExcellent    Grade = "EXCELLENT"
	GradeGood         Grade = "GOOD"
	GradeAverage      Grade = "AVERAGE"
	GradeBelowAverage Grade = "BELOW_AVERAGE"
	GradePoor         Grade = "POOR"
	GradeVeryPoor     Grade = "VERY_POOR"
)

// Suitability tags the kind of investor an instrument fits
type Suitability string

const (
	SuitabilityCoreHolding Suitability = "CORE_HOLDING"
	SuitabilityGrowth      Suitability = "GROWTH_CANDIDATE"
	SuitabilityIncome      Suitability = "INCOME"
	SuitabilitySpeculative Suitability = "SPECULATIVE"
	SuitabilityWatchlist   Suitability = "WATCHLIST"
)

// Factor is one metric's contribution inside a category
type Factor struct {
	Metric  MetricKey `json:"metric"`
	Value   *float64  `json:"value,omitempty"`
	Score   float64   `json:"score"`  // 0 ~ 100
	Weight  float64   `json:"weight"` // share inside the category
	Present bool      `json:"present"`
}

// CategoryScore is the score of one category
type CategoryScore struct {
	Category        Category `json:"category"`
	Score           float64  `json:"score"` // 0 ~ 100
	Grade           Grade    `json:"grade"`
	Weight          float64  `json:"weight"`         // 0.0 ~ 1.0
	WeightedScore   float64  `json:"weighted_score"` // Score * Weight
	Factors         []Factor `json:"factors"`
	Recommendations []string `json:"recommendations"`
}

// HealthReport aggregates all category scores for one symbol
// ⭐ SSOT: OverallScore = round(Σ WeightedScore)
type HealthReport struct {
	Symbol          string                     `json:"symbol"`
	Industry        string                     `json:"industry,omitempty"`
	Categories      map[Category]CategoryScore `json:"categories"`
	Weights         map[Category]float64       `json:"weights"`
	OverallScore    int                        `json:"overall_score"` // 0 ~ 100
	OverallGrade    Grade                      `json:"overall_grade"`
	RiskFactors     []string                   `json:"risk_factors"`
	Strengths       []Category                 `json:"strengths"`
	Weaknesses      []Category                 `json:"weaknesses"`
	Recommendations []string                   `json:"recommendations"`
	Suitability     Suitability                `json:"suitability"`
	Confidence      float64                    `json:"confidence"`   // 0.0 ~ 1.0
	DataQuality     float64                    `json:"data_quality"` // 0.0 ~ 1.0
}

// CategoryScore returns the score of a category, 50 (neutral) when missing
func (r *HealthReport) CategoryScore(c Category) float64 {
	if r == nil {
		return 50
	}
	if cs, ok := r.Categories[c]; ok {
		return cs.Score
	}
	return 50
}

// RankedReport is a report with its position in a comparison
type RankedReport struct {
	Rank   int           `json:"rank"`
	Symbol string        `json:"symbol"`
	Score  int           `json:"score"`
	Grade  Grade         `json:"grade"`
	Report *HealthReport `json:"-"`
}

// Comparison summarises several reports
type Comparison struct {
	Ranking           []RankedReport `json:"ranking"`
	TopPerformers     []RankedReport `json:"top_performers"`
	BottomPerformers  []RankedReport `json:"bottom_performers"`
	AverageScore      float64        `json:"average_score"`
	Industry          string         `json:"industry,omitempty"`
	IndustryBenchmark *float64       `json:"industry_benchmark,omitempty"`
}

package contracts

// Severity ranks a data-quality issue
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityError    Severity = "ERROR"
	SeverityWarning  Severity = "WARNING"
	SeverityInfo     Severity = "INFO"
)

// QualityLevel is the 6-step grade of a quality score
type QualityLevel string

const (
	QualityExcellent  QualityLevel = "EXCELLENT"
	QualityGood       QualityLevel = "GOOD"
	QualityFair       QualityLevel = "FAIR"
	QualityPoor       QualityLevel = "POOR"
	QualityVeryPoor   QualityLevel = "VERY_POOR"
	QualityUnreliable QualityLevel = "UNRELIABLE"
)

// DataQuality holds the component scores of one record
// ⭐ SSOT: S0 → valuation/health data quality hand-off
type DataQuality struct {
	OverallScore float64      `json:"overall_score"` // 0 ~ 100
	Level        QualityLevel `json:"level"`
	Completeness float64      `json:"completeness"` // 0.0 ~ 1.0
	Accuracy     float64      `json:"accuracy"`
	Timeliness   float64      `json:"timeliness"`
	Consistency  float64      `json:"consistency"`
	Validity     float64      `json:"validity"`
}

// ValidationIssue is a single finding of the validator
type ValidationIssue struct {
	Field    string   `json:"field"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// ValidationResult is the validator output
type ValidationResult struct {
	IsValid     bool              `json:"is_valid"`
	Quality     DataQuality       `json:"quality"`
	Errors      []ValidationIssue `json:"errors"`
	Warnings    []ValidationIssue `json:"warnings"`
	Suggestions []string          `json:"suggestions"`
}

// Score returns the overall score as a 0.0 ~ 1.0 fraction
func (r *ValidationResult) Score() float64 {
	if r == nil {
		return 0
	}
	return r.Quality.OverallScore / 100
}

// HasBlockingErrors reports whether any CRITICAL or ERROR issue exists
func (r *ValidationResult) HasBlockingErrors() bool {
	for _, e := range r.Errors {
		if e.Severity == SeverityCritical || e.Severity == SeverityError {
			return true
		}
	}
	return false
}

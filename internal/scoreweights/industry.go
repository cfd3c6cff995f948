package scoreweights

import (
	"strings"

	"github.com/ryu111/stock-health-bot-sub001/internal/contracts"
)

// Canonical industry names
const (
	IndustrySemiconductor = "semiconductor"
	IndustryBanking       = "banking"
	IndustryTechnology    = "technology"
	IndustryBiotech       = "biotech"
	IndustryUtilities     = "utilities"
)

var industryAliases = map[string]string{
	"semiconductor":          IndustrySemiconductor,
	"semiconductors":         IndustrySemiconductor,
	"semis":                  IndustrySemiconductor,
	"chips":                  IndustrySemiconductor,
	"半導體":                    IndustrySemiconductor,
	"banking":                IndustryBanking,
	"bank":                   IndustryBanking,
	"banks":                  IndustryBanking,
	"金融":                     IndustryBanking,
	"technology":             IndustryTechnology,
	"tech":                   IndustryTechnology,
	"information technology": IndustryTechnology,
	"software":               IndustryTechnology,
	"biotech":                IndustryBiotech,
	"biotechnology":          IndustryBiotech,
	"生技":                     IndustryBiotech,
	"utilities":              IndustryUtilities,
	"utility":                IndustryUtilities,
}

// NormalizeIndustry lowercases and resolves aliases
// Unrecognised names are returned lowercased and trimmed.
func NormalizeIndustry(industry string) string {
	key := strings.ToLower(strings.TrimSpace(industry))
	key = strings.Join(strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(key)), " ")
	if canonical, ok := industryAliases[key]; ok {
		return canonical
	}
	return key
}

// KnownIndustry reports whether industry resolves to a built-in adjustment
func KnownIndustry(industry string) bool {
	_, ok := DefaultAdjustments()[NormalizeIndustry(industry)]
	return ok
}

// DefaultAdjustments returns the built-in additive industry adjustments
func DefaultAdjustments() map[string]Weights {
	return map[string]Weights{
		IndustrySemiconductor: {
			contracts.CategoryQuality: 0.10,
			contracts.CategoryRisk:    -0.05,
		},
		IndustryBanking: {
			contracts.CategoryValuation: 0.05,
			contracts.CategoryRisk:      0.05,
			contracts.CategoryGrowth:    -0.05,
		},
		IndustryTechnology: {
			contracts.CategoryGrowth:    0.10,
			contracts.CategoryValuation: -0.05,
		},
		IndustryBiotech: {
			contracts.CategoryGrowth:       0.10,
			contracts.CategoryFundamentals: -0.05,
		},
		IndustryUtilities: {
			contracts.CategoryRisk:   0.05,
			contracts.CategoryGrowth: -0.05,
		},
	}
}

package scoreweights

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ryu111/stock-health-bot-sub001/internal/contracts"
)

// File is the on-disk weight configuration
//
//	weights:
//	  valuation: 0.20
//	  fundamentals: 0.20
//	industry_adjustments:
//	  semiconductor:
//	    quality: 0.10
//	    risk: -0.05
type File struct {
	Weights             map[string]float64            `yaml:"weights"`
	IndustryAdjustments map[string]map[string]float64 `yaml:"industry_adjustments"`
}

// ValidationError is a structural problem in a weight file
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning is a non-fatal finding; the value is healed on apply
type Warning struct {
	Code    string
	Message string
}

// Load reads a YAML weight file and returns a ready Config plus warnings
// KnownFields(true): 오타/미사용 필드 즉시 실패
func Load(path string) (*Config, []Warning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read weights file: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

// Parse decodes a weight file from r
func Parse(r io.Reader) (*Config, []Warning, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, nil, fmt.Errorf("decode weights file: %w", err)
	}

	warnings, err := Validate(&f)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := f.Apply()
	if err != nil {
		return nil, nil, err
	}
	return cfg, warnings, nil
}

// Validate rejects unknown categories and reports values that will be healed
func Validate(f *File) ([]Warning, error) {
	var warnings []Warning

	if len(f.Weights) > 0 {
		if _, err := toWeights("weights", f.Weights); err != nil {
			return nil, err
		}
		for name, v := range f.Weights {
			if v < 0 || v > 1 {
				warnings = append(warnings, Warning{
					Code:    "WEIGHT_OUT_OF_RANGE",
					Message: fmt.Sprintf("weights.%s=%.4f will be clamped to [0,1]", name, v),
				})
			}
		}
		if err := validateWeightsSum(f.Weights, 1.0, 1e-6); err != nil {
			warnings = append(warnings, Warning{
				Code:    "WEIGHTS_NOT_NORMALIZED",
				Message: err.Error() + "; weights will be renormalized",
			})
		}
	}

	for industry, adj := range f.IndustryAdjustments {
		if NormalizeIndustry(industry) == "" {
			return nil, ValidationError{"industry_adjustments", "industry name must not be empty"}
		}
		if _, err := toWeights("industry_adjustments."+industry, adj); err != nil {
			return nil, err
		}
	}

	return warnings, nil
}

// Apply builds a Config from the file; missing weights use DefaultWeights
func (f *File) Apply() (*Config, error) {
	var base Weights
	if len(f.Weights) > 0 {
		w, err := toWeights("weights", f.Weights)
		if err != nil {
			return nil, err
		}
		base = w
	}

	cfg := New(base)
	for industry, adj := range f.IndustryAdjustments {
		w, err := toWeights("industry_adjustments."+industry, adj)
		if err != nil {
			return nil, err
		}
		cfg.SetIndustryAdjustment(industry, w)
	}
	return cfg, nil
}

// Marshal renders the current configuration as a weight file
func Marshal(c *Config) ([]byte, error) {
	s := c.current.Load()
	f := File{
		Weights:             fromWeights(s.Base),
		IndustryAdjustments: make(map[string]map[string]float64, len(s.Adjustments)),
	}
	for industry, adj := range s.Adjustments {
		f.IndustryAdjustments[industry] = fromWeights(adj)
	}
	return yaml.Marshal(&f)
}

func toWeights(field string, raw map[string]float64) (Weights, error) {
	out := make(Weights, len(raw))
	for name, v := range raw {
		cat := contracts.Category(name)
		if !cat.Valid() {
			return nil, ValidationError{
				Field:   field + "." + name,
				Message: "unknown category",
			}
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, ValidationError{
				Field:   field + "." + name,
				Message: "must be a finite number",
			}
		}
		out[cat] = v
	}
	return out, nil
}

func fromWeights(w Weights) map[string]float64 {
	out := make(map[string]float64, len(w))
	for k, v := range w {
		out[string(k)] = v
	}
	return out
}

// validateWeightsSum checks that weights sum to expected within tolerance
func validateWeightsSum(weights map[string]float64, expected, tolerance float64) error {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if math.Abs(sum-expected) > tolerance {
		return fmt.Errorf("must sum to %.1f, got %.6f", expected, sum)
	}
	return nil
}

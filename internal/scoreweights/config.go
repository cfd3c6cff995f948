package scoreweights

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
	"sync/atomic"

	"github.com/ryu111/stock-health-bot-sub001/internal/contracts"
)

// Weights maps each category to its share of the health score
type Weights map[contracts.Category]float64

// Sum returns the total of all weights
func (w Weights) Sum() float64 {
	total := 0.0
	for _, v := range w {
		total += v
	}
	return total
}

// Clone returns an independent copy
func (w Weights) Clone() Weights {
	out := make(Weights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// DefaultWeights returns the base category weights
func DefaultWeights() Weights {
	return Weights{
		contracts.CategoryValuation:    0.20,
		contracts.CategoryFundamentals: 0.20,
		contracts.CategoryGrowth:       0.15,
		contracts.CategoryQuality:      0.15,
		contracts.CategoryRisk:         0.10,
		contracts.CategoryTechnical:    0.10,
		contracts.CategoryLiquidity:    0.10,
	}
}

// state is one immutable, normalized generation of the configuration
type state struct {
	Base        Weights            `json:"base"`
	Adjustments map[string]Weights `json:"adjustments"`
	version     uint64
}

// Config owns the category weights and industry adjustments
// ⭐ SSOT: 가중치 합 = 1.0 (모든 시점에서)
// Readers always see a fully normalized generation: every update builds
// a new state and swaps it in atomically.
type Config struct {
	current atomic.Pointer[state]
}

// New creates a Config from base weights (DefaultWeights when nil)
// and the built-in industry adjustments.
func New(base Weights) *Config {
	if base == nil {
		base = DefaultWeights()
	}
	c := &Config{}
	c.current.Store(&state{
		Base:        Normalize(base),
		Adjustments: DefaultAdjustments(),
		version:     1,
	})
	return c
}

// Weights returns a copy of the normalized base weights
func (c *Config) Weights() Weights {
	return c.current.Load().Base.Clone()
}

// Version increments on every successful swap
func (c *Config) Version() uint64 {
	return c.current.Load().version
}

// SetWeights replaces the base weights; missing categories become 0
func (c *Config) SetWeights(w Weights) {
	next := Normalize(w)
	c.swap(func(s *state) { s.Base = next })
}

// Update merges partial onto the current base weights and renormalizes
func (c *Config) Update(partial Weights) {
	c.swap(func(s *state) {
		merged := s.Base.Clone()
		for k, v := range partial {
			if k.Valid() {
				merged[k] = v
			}
		}
		s.Base = Normalize(merged)
	})
}

// SetIndustryAdjustment replaces the additive adjustment for one industry
func (c *Config) SetIndustryAdjustment(industry string, adj Weights) {
	key := NormalizeIndustry(industry)
	if key == "" {
		return
	}
	clean := make(Weights, len(adj))
	for k, v := range adj {
		if k.Valid() && !math.IsNaN(v) && !math.IsInf(v, 0) {
			clean[k] = v
		}
	}
	c.swap(func(s *state) { s.Adjustments[key] = clean })
}

// ReplaceFrom publishes other's weights and adjustments as the next generation
// Holders of c see the new values without re-wiring.
func (c *Config) ReplaceFrom(other *Config) {
	src := other.current.Load()
	c.swap(func(s *state) {
		s.Base = src.Base.Clone()
		s.Adjustments = make(map[string]Weights, len(src.Adjustments))
		for k, v := range src.Adjustments {
			s.Adjustments[k] = v.Clone()
		}
	})
}

// IndustryAdjustment returns the adjustment registered for industry, if any
func (c *Config) IndustryAdjustment(industry string) (Weights, bool) {
	adj, ok := c.current.Load().Adjustments[NormalizeIndustry(industry)]
	if !ok {
		return nil, false
	}
	return adj.Clone(), true
}

// EffectiveWeights applies the industry adjustment to the base and renormalizes
// Unknown or empty industries get the base weights.
func (c *Config) EffectiveWeights(industry string) map[contracts.Category]float64 {
	s := c.current.Load()

	adj, ok := s.Adjustments[NormalizeIndustry(industry)]
	if !ok {
		return s.Base.Clone()
	}

	adjusted := s.Base.Clone()
	for k, v := range adj {
		adjusted[k] += v
	}
	return Normalize(adjusted)
}

// Hash fingerprints the current generation for audit records
func (c *Config) Hash() string {
	s := c.current.Load()
	// encoding/json sorts map keys, so the output is canonical
	data, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// swap copies the current state, applies mutate and publishes it
func (c *Config) swap(mutate func(s *state)) {
	for {
		old := c.current.Load()
		next := &state{
			Base:        old.Base.Clone(),
			Adjustments: make(map[string]Weights, len(old.Adjustments)),
			version:     old.version + 1,
		}
		for k, v := range old.Adjustments {
			next.Adjustments[k] = v.Clone()
		}
		mutate(next)
		if c.current.CompareAndSwap(old, next) {
			return
		}
	}
}

// Normalize clamps every category to [0,1] and divides by the sum
// A zero sum falls back to equal weights. Unknown categories are dropped.
func Normalize(w Weights) Weights {
	out := make(Weights, len(contracts.Categories()))
	total := 0.0
	for _, cat := range contracts.Categories() {
		v := w[cat]
		if math.IsNaN(v) || v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		out[cat] = v
		total += v
	}

	if total == 0 {
		equal := 1.0 / float64(len(out))
		for cat := range out {
			out[cat] = equal
		}
		return out
	}

	for cat, v := range out {
		out[cat] = v / total
	}
	return out
}

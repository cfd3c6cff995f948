package recommendation

import (
	"fmt"
	"math"

	"github.com/ryu111/stock-health-bot-sub001/internal/contracts"
)

// PortfolioConfig defines portfolio-mode allocation parameters
type PortfolioConfig struct {
	DefaultTarget float64 // 기본 목표 비중 (0.0 ~ 1.0)
	MinAllocation float64 // 최소 비중
	MaxAllocation float64 // 최대 비중
	Deadband      float64 // |delta| <= Deadband → MAINTAIN
}

// DefaultPortfolioConfig returns the standard allocation rules
func DefaultPortfolioConfig() PortfolioConfig {
	return PortfolioConfig{
		DefaultTarget: 0.10,
		MinAllocation: 0.05,
		MaxAllocation: 0.25,
		Deadband:      0.02,
	}
}

// Rebalance adjusts the target allocation and classifies the delta
func (s *Synthesizer) Rebalance(health float64, signal contracts.Signal, pc contracts.PortfolioContext) *contracts.RebalanceSuggestion {
	cfg := s.portfolio
	if cfg.MaxAllocation <= 0 {
		cfg = DefaultPortfolioConfig()
	}

	target := cfg.DefaultTarget
	if pc.TargetAllocation != nil {
		target = *pc.TargetAllocation
	}
	reasons := []string{fmt.Sprintf("base target %.1f%%", target*100)}

	switch {
	case health >= 80:
		target *= 1.2
		reasons = append(reasons, "strong health: target +20%")
	case health < 60:
		target *= 0.8
		reasons = append(reasons, "weak health: target -20%")
	}

	switch signal {
	case contracts.SignalCheap:
		target *= 1.1
		reasons = append(reasons, "cheap valuation: target +10%")
	case contracts.SignalExpensive:
		target *= 0.9
		reasons = append(reasons, "expensive valuation: target -10%")
	}

	target = math.Max(cfg.MinAllocation, math.Min(cfg.MaxAllocation, target))
	delta := target - pc.CurrentAllocation

	action := contracts.RebalanceMaintain
	switch {
	case delta > cfg.Deadband:
		action = contracts.RebalanceIncrease
	case delta < -cfg.Deadband:
		action = contracts.RebalanceDecrease
	}
	reasons = append(reasons, fmt.Sprintf("current %.1f%% → target %.1f%%", pc.CurrentAllocation*100, target*100))

	return &contracts.RebalanceSuggestion{
		Action:            action,
		CurrentAllocation: pc.CurrentAllocation,
		TargetAllocation:  target,
		Delta:             delta,
		Reasoning:         reasons,
	}
}

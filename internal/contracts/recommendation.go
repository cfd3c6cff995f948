package contracts

// Action is the discrete investment decision
type Action string

const (
	ActionStrongBuy  Action = "STRONG_BUY"
	ActionBuy        Action = "BUY"
	ActionHold       Action = "HOLD"
	ActionSell       Action = "SELL"
	ActionStrongSell Action = "STRONG_SELL"
)

// Rank orders actions from most bearish (0) to most bullish (4)
func (a Action) Rank() int {
	switch a {
	case ActionStrongSell:
		return 0
	case ActionSell:
		return 1
	case ActionHold:
		return 2
	case ActionBuy:
		return 3
	case ActionStrongBuy:
		return 4
	default:
		return -1
	}
}

// RiskLevel is a coarse risk bucket
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// TimeHorizon is the suggested holding horizon
type TimeHorizon string

const (
	HorizonShort  TimeHorizon = "SHORT"
	HorizonMedium TimeHorizon = "MEDIUM"
	HorizonLong   TimeHorizon = "LONG"
)

// PositionSize is the suggested position size bucket
type PositionSize string

const (
	PositionSmall  PositionSize = "SMALL"
	PositionMedium PositionSize = "MEDIUM"
	PositionLarge  PositionSize = "LARGE"
)

// RebalanceAction is the portfolio-mode direction
type RebalanceAction string

const (
	RebalanceIncrease RebalanceAction = "INCREASE"
	RebalanceDecrease RebalanceAction = "DECREASE"
	RebalanceMaintain RebalanceAction = "MAINTAIN"
)

// AnalysisScores are the raw 0~100 scores the synthesizer consumes
// Risk is "higher = riskier".
type AnalysisScores struct {
	Technical   float64 `json:"technical"`
	Fundamental float64 `json:"fundamental"`
	Risk        float64 `json:"risk"`
}

// PortfolioContext describes the current holding for portfolio mode
type PortfolioContext struct {
	CurrentAllocation float64  `json:"current_allocation"`          // 0.0 ~ 1.0
	TargetAllocation  *float64 `json:"target_allocation,omitempty"` // default 0.10
}

// RebalanceSuggestion is the portfolio-mode output
type RebalanceSuggestion struct {
	Action            RebalanceAction `json:"action"`
	CurrentAllocation float64         `json:"current_allocation"`
	TargetAllocation  float64         `json:"target_allocation"`
	Delta             float64         `json:"delta"`
	Reasoning         []string        `json:"reasoning"`
}

// Recommendation is the synthesized investment decision
type Recommendation struct {
	Symbol         string               `json:"symbol"`
	Action         Action               `json:"action"`
	Confidence     float64              `json:"confidence"` // 0.0 ~ 1.0
	CompositeScore float64              `json:"composite_score"`
	Reasoning      []string             `json:"reasoning"`
	RiskLevel      RiskLevel            `json:"risk_level"`
	TimeHorizon    TimeHorizon          `json:"time_horizon"`
	PositionSize   PositionSize         `json:"position_size"`
	TargetPrice    *float64             `json:"target_price,omitempty"`
	StopLoss       *float64             `json:"stop_loss,omitempty"`
	Rebalance      *RebalanceSuggestion `json:"rebalance,omitempty"`
}

package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ryu111/stock-health-bot-sub001/internal/contracts"
	"github.com/ryu111/stock-health-bot-sub001/internal/scoreweights"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

func newTable(w io.Writer, title string) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.Style().Options.SeparateRows = false
	tw.Style().Format.Header = text.FormatDefault
	tw.Style().Format.Footer = text.FormatDefault
	if title != "" {
		tw.SetTitle(title)
	}
	return tw
}

func rightAligned(columns ...int) []table.ColumnConfig {
	cfgs := make([]table.ColumnConfig, len(columns))
	for i, n := range columns {
		cfgs[i] = table.ColumnConfig{Number: n, Align: text.AlignRight, AlignHeader: text.AlignRight}
	}
	return cfgs
}

// writeJSON prints v indented
func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func price(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func optPrice(v *float64) string {
	if v == nil {
		return "-"
	}
	return price(*v)
}

func percent(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}

func colorAction(a contracts.Action) string {
	switch a {
	case contracts.ActionStrongBuy, contracts.ActionBuy:
		return text.Colors{text.FgGreen}.Sprint(a)
	case contracts.ActionSell, contracts.ActionStrongSell:
		return text.Colors{text.FgRed}.Sprint(a)
	default:
		return string(a)
	}
}

func colorSignal(s contracts.Signal) string {
	switch s {
	case contracts.SignalCheap:
		return text.Colors{text.FgGreen}.Sprint(s)
	case contracts.SignalExpensive:
		return text.Colors{text.FgRed}.Sprint(s)
	default:
		return string(s)
	}
}

// renderEvaluation prints one evaluation as a set of tables
func renderEvaluation(w io.Writer, e *contracts.Evaluation) {
	summary := newTable(w, fmt.Sprintf("%s  (%s)", e.Symbol, e.MarketCondition))
	summary.AppendRow(table.Row{"Health", fmt.Sprintf("%d / %s", e.Health.OverallScore, e.Health.OverallGrade)})
	summary.AppendRow(table.Row{"Suitability", e.Health.Suitability})
	if e.Industry != "" {
		summary.AppendRow(table.Row{"Industry", e.Industry})
	}
	summary.AppendRow(table.Row{"Data quality", fmt.Sprintf("%.0f (%s)", e.Quality.Quality.OverallScore, e.Quality.Quality.Level)})
	summary.AppendRow(table.Row{"Price", price(e.Valuation.Price)})
	if e.Valuation.CompositeFair != nil {
		f := e.Valuation.CompositeFair
		summary.AppendRow(table.Row{"Fair value", fmt.Sprintf("%s ~ %s ~ %s", price(f.Low), price(f.Mid), price(f.High))})
		summary.AppendRow(table.Row{"Signal", colorSignal(e.Valuation.Signal)})
		summary.AppendRow(table.Row{"Suggested buy", optPrice(e.Valuation.SuggestedBuyPrice)})
	}
	r := e.Recommendation
	summary.AppendRow(table.Row{"Action", fmt.Sprintf("%s (confidence %s)", colorAction(r.Action), percent(r.Confidence))})
	summary.AppendRow(table.Row{"Risk / horizon", fmt.Sprintf("%s / %s", r.RiskLevel, r.TimeHorizon)})
	summary.AppendRow(table.Row{"Position size", r.PositionSize})
	summary.AppendRow(table.Row{"Target / stop", fmt.Sprintf("%s / %s", optPrice(r.TargetPrice), optPrice(r.StopLoss))})
	if r.Rebalance != nil {
		rb := r.Rebalance
		summary.AppendRow(table.Row{"Rebalance", fmt.Sprintf("%s %s → %s", rb.Action, percent(rb.CurrentAllocation), percent(rb.TargetAllocation))})
	}
	if e.InsufficientData {
		summary.AppendFooter(table.Row{"", text.Colors{text.FgYellow}.Sprint("insufficient data")})
	}
	summary.Render()

	renderCategories(w, e.Health)
	renderMethods(w, e.Valuation)

	if e.EntryPrice != nil {
		renderEntryPrice(w, e.EntryPrice)
	}

	if len(r.Reasoning) > 0 {
		fmt.Fprintln(w)
		for _, line := range r.Reasoning {
			fmt.Fprintf(w, "   • %s\n", line)
		}
	}
}

func renderCategories(w io.Writer, h *contracts.HealthReport) {
	tw := newTable(w, "Health categories")
	tw.AppendHeader(table.Row{"Category", "Score", "Grade", "Weight", "Weighted"})
	for _, c := range contracts.Categories() {
		cs, ok := h.Categories[c]
		if !ok {
			continue
		}
		tw.AppendRow(table.Row{c, fmt.Sprintf("%.1f", cs.Score), cs.Grade, percent(cs.Weight), fmt.Sprintf("%.1f", cs.WeightedScore)})
	}
	tw.AppendFooter(table.Row{"Overall", h.OverallScore, h.OverallGrade, "", ""})
	tw.SetColumnConfigs(rightAligned(2, 4, 5))
	tw.Render()
}

func renderMethods(w io.Writer, v *contracts.ValuationResult) {
	tw := newTable(w, "Valuation methods")
	tw.AppendHeader(table.Row{"Method", "Low", "Mid", "High", "Confidence"})
	for _, m := range v.Methods {
		tw.AppendRow(table.Row{m.Method, optPrice(m.FairLow), optPrice(m.FairMid), optPrice(m.FairHigh), percent(m.Confidence)})
	}
	tw.SetColumnConfigs(rightAligned(2, 3, 4, 5))
	tw.Render()
}

func renderEntryPrice(w io.Writer, ep *contracts.EntryPriceResult) {
	tw := newTable(w, fmt.Sprintf("Entry prices (%s risk, industry ×%.2f)", ep.RiskLevel, ep.IndustryMultiplier))
	tw.AppendHeader(table.Row{"", "Conservative", "Moderate", "Aggressive"})
	tiers := func(label string, p contracts.PriceTiers) table.Row {
		return table.Row{label, price(p.Conservative), price(p.Moderate), price(p.Aggressive)}
	}
	tw.AppendRow(tiers("Recommended", ep.RecommendedEntryPrice))
	tw.AppendRow(tiers("Risk adjusted", ep.RiskAdjustedPrice))
	tw.AppendRow(tiers("Market adjusted", ep.MarketAdjustedPrice))
	for _, mc := range []contracts.MarketCondition{contracts.MarketBullish, contracts.MarketNeutral, contracts.MarketBearish} {
		if p, ok := ep.RegimeVariants[mc]; ok {
			tw.AppendRow(tiers("  if "+strings.ToLower(string(mc)), p))
		}
	}
	tw.SetColumnConfigs(rightAligned(2, 3, 4))
	tw.Render()
}

// renderComparison prints the ranking of a batch evaluation
func renderComparison(w io.Writer, b *contracts.BatchEvaluation) {
	title := "Ranking"
	if b.Industry != "" {
		title += " · " + b.Industry
	}
	tw := newTable(w, title)
	tw.AppendHeader(table.Row{"#", "Symbol", "Score", "Grade", "Suitability", "Strengths", "Weaknesses"})
	for _, rr := range b.Comparison.Ranking {
		row := table.Row{rr.Rank, rr.Symbol, rr.Score, rr.Grade, "", "", ""}
		if rr.Report != nil {
			row[4] = rr.Report.Suitability
			row[5] = joinCategories(rr.Report.Strengths)
			row[6] = joinCategories(rr.Report.Weaknesses)
		}
		tw.AppendRow(row)
	}
	footer := table.Row{"", "average", fmt.Sprintf("%.1f", b.Comparison.AverageScore), "", "", "", ""}
	if b.Comparison.IndustryBenchmark != nil {
		footer[4] = fmt.Sprintf("benchmark %.1f", *b.Comparison.IndustryBenchmark)
	}
	tw.AppendFooter(footer)
	tw.SetColumnConfigs(rightAligned(1, 3))
	tw.Render()

	if len(b.Skipped) > 0 {
		fmt.Fprintf(w, "⚠️  skipped: %s\n", strings.Join(b.Skipped, ", "))
	}
}

func joinCategories(cs []contracts.Category) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = string(c)
	}
	return strings.Join(parts, ", ")
}

// renderWeights prints base and effective weights side by side
func renderWeights(w io.Writer, cfg *scoreweights.Config, industry string) {
	base := cfg.Weights()
	effective := cfg.EffectiveWeights(industry)

	title := fmt.Sprintf("Score weights (v%d, %s)", cfg.Version(), shortHash(cfg.Hash()))
	tw := newTable(w, title)
	header := table.Row{"Category", "Base"}
	if industry != "" {
		header = append(header, "Effective · "+scoreweights.NormalizeIndustry(industry))
	}
	tw.AppendHeader(header)

	for _, c := range contracts.Categories() {
		row := table.Row{c, percent(base[c])}
		if industry != "" {
			row = append(row, percent(effective[c]))
		}
		tw.AppendRow(row)
	}
	tw.SetColumnConfigs(rightAligned(2, 3))
	tw.Render()

	if industry != "" && !scoreweights.KnownIndustry(industry) {
		fmt.Fprintf(w, "⚠️  no adjustment for industry %q, base weights apply\n", industry)
	}
}

// renderEvaluations prints stored evaluations, newest first
func renderEvaluations(w io.Writer, list []*contracts.Evaluation) {
	tw := newTable(w, "Evaluations")
	tw.AppendHeader(table.Row{"Created", "Symbol", "Score", "Grade", "Signal", "Action", "ID"})
	for _, e := range list {
		row := table.Row{e.CreatedAt.Format("2006-01-02 15:04"), e.Symbol, "", "", "", "", e.ID}
		if e.Health != nil {
			row[2] = e.Health.OverallScore
			row[3] = e.Health.OverallGrade
		}
		if e.Valuation != nil {
			row[4] = colorSignal(e.Valuation.Signal)
		}
		if e.Recommendation != nil {
			row[5] = colorAction(e.Recommendation.Action)
		}
		tw.AppendRow(row)
	}
	tw.SetColumnConfigs(rightAligned(3))
	tw.Render()
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

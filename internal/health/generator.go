package health

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/ryu111/stock-health-bot-sub001/internal/contracts"
	"github.com/ryu111/stock-health-bot-sub001/internal/scoreweights"
	"github.com/ryu111/stock-health-bot-sub001/pkg/logger"
)

// performersCount is the size of the top/bottom lists
const performersCount = 3

// Subject is one input of a comparative run
type Subject struct {
	Snapshot    *contracts.Snapshot
	DataQuality float64
}

// Generator produces industry-adjusted single and comparative reports
type Generator struct {
	calc    *Calculator
	weights contracts.WeightSource
	logger  *logger.Logger
}

// NewGenerator creates a new Generator
func NewGenerator(calc *Calculator, weights contracts.WeightSource, log *logger.Logger) *Generator {
	if log == nil {
		log = logger.Nop()
	}
	if calc == nil {
		calc = NewCalculator(log)
	}
	if weights == nil {
		weights = scoreweights.New(nil)
	}
	return &Generator{
		calc:    calc,
		weights: weights,
		logger:  log,
	}
}

// Generate builds one report; industry overrides the snapshot's own
func (g *Generator) Generate(s *contracts.Snapshot, industry string, dataQuality float64) *contracts.HealthReport {
	ind := resolveIndustry(s, industry)
	report := g.calc.Calculate(s, g.weights.EffectiveWeights(ind), dataQuality)
	report.Industry = ind
	return report
}

// Compare builds one report per subject and ranks them
// Reports come back in input order; the comparison holds the ranking.
func (g *Generator) Compare(ctx context.Context, subjects []Subject, industry string) ([]*contracts.HealthReport, *contracts.Comparison, error) {
	reports := make([]*contracts.HealthReport, len(subjects))

	eg, ctx := errgroup.WithContext(ctx)
	for i, sub := range subjects {
		i, sub := i, sub
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if sub.Snapshot == nil {
				return fmt.Errorf("subject %d: nil snapshot", i)
			}
			reports[i] = g.Generate(sub.Snapshot, industry, sub.DataQuality)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, fmt.Errorf("compare reports: %w", err)
	}

	cmp := Rank(reports, scoreweights.NormalizeIndustry(industry))

	g.logger.WithFields(map[string]interface{}{
		"count":    len(reports),
		"industry": cmp.Industry,
		"average":  cmp.AverageScore,
	}).Info("comparative health report generated")

	return reports, cmp, nil
}

// Rank orders reports by overall score (stable: ties keep input order)
func Rank(reports []*contracts.HealthReport, industry string) *contracts.Comparison {
	ranking := make([]contracts.RankedReport, 0, len(reports))
	scores := make([]float64, 0, len(reports))
	for _, r := range reports {
		if r == nil {
			continue
		}
		ranking = append(ranking, contracts.RankedReport{
			Symbol: r.Symbol,
			Score:  r.OverallScore,
			Grade:  r.OverallGrade,
			Report: r,
		})
		scores = append(scores, float64(r.OverallScore))
	}

	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].Score > ranking[j].Score
	})
	for i := range ranking {
		ranking[i].Rank = i + 1
	}

	cmp := &contracts.Comparison{
		Ranking:          ranking,
		TopPerformers:    []contracts.RankedReport{},
		BottomPerformers: []contracts.RankedReport{},
		Industry:         industry,
	}
	if len(ranking) == 0 {
		return cmp
	}

	k := performersCount
	if k > len(ranking) {
		k = len(ranking)
	}
	cmp.TopPerformers = append(cmp.TopPerformers, ranking[:k]...)
	cmp.BottomPerformers = append(cmp.BottomPerformers, ranking[len(ranking)-k:]...)
	cmp.AverageScore = stat.Mean(scores, nil)

	if industry != "" {
		benchmark := cmp.AverageScore
		cmp.IndustryBenchmark = &benchmark
	}
	return cmp
}

func resolveIndustry(s *contracts.Snapshot, industry string) string {
	if industry == "" && s != nil {
		industry = s.Industry
	}
	return scoreweights.NormalizeIndustry(industry)
}

package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryu111/stock-health-bot-sub001/internal/contracts"
)

const snapshotFixture = `
snapshots:
  - symbol: "2330"
    industry: semiconductor
    price: 500
    volume: 1000000
    market_cap: 5000000000000
    pe_ratio: 20
    roe: 0.25
    dividend_yield: 0.02
    last_updated: %[1]s
  - symbol: WEAK
    price: 5
    volatility: 80
    beta: 2.5
    last_updated: %[1]s
`

// setup points the CLI at a fixture file and an in-memory store
func setup(t *testing.T) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "snapshots.yaml")
	body := fmt.Sprintf(snapshotFixture, time.Now().UTC().Add(-time.Hour).Format(time.RFC3339))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	t.Setenv("SNAPSHOT_FILE", path)
	t.Setenv("SNAPSHOT_URL", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("WEIGHTS_FILE", "")
	t.Setenv("LOG_LEVEL", "error")
}

// resetFlags restores every flag variable to its default
func resetFlags() {
	weightsFile, snapshotFile, snapshotURL, jsonOutput = "", "", "", false
	evalMarket, evalIndustry, evalMethods = "neutral", "", nil
	evalAllocation, evalTarget, evalSave = -1, 0, false
	compareIndustry, compareAll, compareSave = "", false, false
	weightsIndustry = ""
	historyLimit, historySince = 20, 0
}

// run executes the root command with fresh flag state
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestEvaluateCommand(t *testing.T) {
	setup(t)

	out, err := run(t, "evaluate", "2330", "--json", "--market", "bullish", "--industry", "semis")
	require.NoError(t, err)

	var eval contracts.Evaluation
	require.NoError(t, json.Unmarshal([]byte(out), &eval))
	assert.Equal(t, "2330", eval.Symbol)
	assert.Equal(t, contracts.MarketBullish, eval.MarketCondition)
	assert.Equal(t, "semiconductor", eval.Industry)
	require.NotNil(t, eval.Health)
	require.NotNil(t, eval.Valuation.CompositeFair)
	require.NotNil(t, eval.EntryPrice)

	out, err = run(t, "evaluate", "2330", "--save")
	require.NoError(t, err)
	assert.Contains(t, out, "Health categories")
	assert.Contains(t, out, "Valuation methods")
	assert.Contains(t, out, "Entry prices")
}

func TestEvaluateCommand_Errors(t *testing.T) {
	setup(t)

	_, err := run(t, "evaluate", "NOPE")
	assert.ErrorIs(t, err, contracts.ErrSnapshotNotFound)

	_, err = run(t, "evaluate", "2330", "--market", "sideways")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown market condition")

	_, err = run(t, "evaluate", "2330", "--methods", "PE_BAND,TEA_LEAVES")
	assert.Error(t, err)

	_, err = run(t, "evaluate", "2330", "--allocation", "1.5")
	assert.Error(t, err)

	_, err = run(t, "evaluate")
	assert.Error(t, err)
}

func TestEvaluateRequest(t *testing.T) {
	resetFlags()
	evalMethods = []string{"pe_band", " dcf "}
	evalAllocation = 0.25
	evalTarget = 0.05

	req, err := evaluateRequest(" 2330 ")
	require.NoError(t, err)

	assert.Equal(t, "2330", req.Symbol)
	assert.Equal(t, contracts.MarketNeutral, req.MarketCondition)
	require.Len(t, req.Methods, 2)
	require.NotNil(t, req.Portfolio)
	assert.Equal(t, 0.25, req.Portfolio.CurrentAllocation)
	require.NotNil(t, req.Portfolio.TargetAllocation)
	assert.Equal(t, 0.05, *req.Portfolio.TargetAllocation)
}

func TestCompareCommand(t *testing.T) {
	setup(t)

	out, err := run(t, "compare", "WEAK", "2330", "MISSING", "--industry", "tech", "--json")
	require.NoError(t, err)

	var batch contracts.BatchEvaluation
	require.NoError(t, json.Unmarshal([]byte(out), &batch))
	assert.Equal(t, []string{"MISSING"}, batch.Skipped)
	require.Len(t, batch.Comparison.Ranking, 2)
	assert.Equal(t, "2330", batch.Comparison.Ranking[0].Symbol)

	out, err = run(t, "compare", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "2330")
	assert.Contains(t, out, "WEAK")

	_, err = run(t, "compare")
	assert.Error(t, err)
}

func TestWeightsCommands(t *testing.T) {
	setup(t)

	out, err := run(t, "weights", "show", "--industry", "banks")
	require.NoError(t, err)
	assert.Contains(t, out, "banking")
	assert.Contains(t, out, "valuation")

	out, err = run(t, "weights", "show", "--industry", "shipping")
	require.NoError(t, err)
	assert.Contains(t, out, "no adjustment")

	exported, err := run(t, "weights", "export")
	require.NoError(t, err)
	assert.Contains(t, exported, "industry_adjustments")

	path := filepath.Join(t.TempDir(), "weights.yaml")
	require.NoError(t, os.WriteFile(path, []byte(exported), 0o600))

	out, err = run(t, "weights", "check", path)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")

	// the exported file loads as the active configuration too
	_, err = run(t, "weights", "show", "--weights", path)
	require.NoError(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("weights:\n  vibes: 1\n"), 0o600))
	_, err = run(t, "weights", "check", bad)
	assert.Error(t, err)
}

func TestSnapshotsCommand(t *testing.T) {
	setup(t)

	out, err := run(t, "snapshots")
	require.NoError(t, err)
	assert.Contains(t, out, "2330")
	assert.Contains(t, out, "WEAK")

	out, err = run(t, "snapshots", "--json")
	require.NoError(t, err)
	var rows []snapshotRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 2)
	assert.NotNil(t, rows[0].Quality)
}

func TestHistoryCommand_MemoryStore(t *testing.T) {
	setup(t)

	out, err := run(t, "history", "2330")
	require.NoError(t, err)
	assert.Contains(t, out, "No evaluations stored")
}

func TestWorkerCommands(t *testing.T) {
	setup(t)
	t.Setenv("WATCHLIST", "2330,WEAK")
	t.Setenv("WATCHLIST_SCHEDULE", "0 18 * * 1-5")

	out, err := run(t, "worker", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "watchlist_evaluation")
	assert.NotContains(t, out, "evaluation_retention")

	out, err = run(t, "worker", "run", "watchlist_evaluation")
	require.NoError(t, err)
	assert.Contains(t, out, "watchlist_evaluation completed")

	out, err = run(t, "worker", "run", "evaluation_retention")
	require.NoError(t, err)
	assert.Contains(t, out, "completed")

	_, err = run(t, "worker", "run", "mystery_job")
	assert.Error(t, err)
}

func TestWorkerStart_NothingScheduled(t *testing.T) {
	setup(t)
	t.Setenv("WATCHLIST_SCHEDULE", "")
	t.Setenv("PURGE_SCHEDULE", "")

	_, err := run(t, "worker", "start")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no job scheduled")
}

package config_test

import (
	"fmt"
	"os"

	"github.com/ryu111/stock-health-bot-sub001/pkg/config"
)

// Example shows the analysis settings the pipeline is built from
func Example() {
	os.Setenv("MARGIN_OF_SAFETY", "0.25")
	os.Setenv("CHEAP_THRESHOLD", "0.85")
	defer os.Unsetenv("MARGIN_OF_SAFETY")
	defer os.Unsetenv("CHEAP_THRESHOLD")

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		return
	}

	a := cfg.Analysis
	fmt.Printf("margin of safety: %.0f%%\n", a.MarginOfSafety*100)
	fmt.Printf("cheap below %.2f × fair mid\n", a.CheapThreshold)
	fmt.Printf("expensive above %.2f × fair mid\n", a.ExpensiveThreshold)
	// Output:
	// margin of safety: 25%
	// cheap below 0.85 × fair mid
	// expensive above 1.10 × fair mid
}

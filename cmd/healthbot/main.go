package main

import (
	"os"

	"github.com/ryu111/stock-health-bot-sub001/cmd/healthbot/commands"
)

// main is the entry point for the healthbot CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/healthbot [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

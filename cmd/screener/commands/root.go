package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	strategyFile string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "screener",
	Short: "Options income screener - cash-secured puts & covered calls",
	Long: `Options Income Screener CLI

커버드콜 / 현금담보 풋 후보를 찾는 교육용 스크리너.
만기 버킷 선택 → 계약 스크리닝 → 랭킹 → 추천 판정 → 리포트.

Usage:
  go run ./cmd/screener [command]

Examples:
  go run ./cmd/screener screen
  go run ./cmd/screener screen --tickers SPY,QQQ --max-candidates 3
  go run ./cmd/screener config validate --strategy config/strategy.yaml
  go run ./cmd/screener api --schedule
  go run ./cmd/screener scheduler start`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&strategyFile, "strategy", "", "strategy YAML (default is $STRATEGY_CONFIG or built-in defaults)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

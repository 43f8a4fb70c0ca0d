package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/optincome/internal/strategyconfig"
	"github.com/wonny/optincome/pkg/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "전략 설정 관리",
	Long: `전략 YAML을 검증하거나 적용된 값을 출력합니다.

Subcommands:
  validate - 필수 제약 검증 + 권장 경고
  show     - 기본값이 병합된 최종 설정 + 해시

Example:
  go run ./cmd/screener config validate --strategy config/strategy.yaml
  go run ./cmd/screener config show`,
}

var (
	configValidateCmd = &cobra.Command{
		Use:   "validate",
		Short: "전략 설정 검증",
		RunE:  validateConfig,
	}

	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "최종 전략 설정 출력",
		RunE:  showConfig,
	}
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
}

func loadStrategy() (*strategyconfig.Config, string, error) {
	path := strategyFile
	if path == "" {
		env, err := config.Load()
		if err != nil {
			return nil, "", fmt.Errorf("load config: %w", err)
		}
		path = env.StrategyConfigPath
	}
	cfg, _, err := strategyconfig.LoadOrDefault(path)
	if err != nil {
		return nil, path, fmt.Errorf("load strategy config: %w", err)
	}
	return cfg, path, nil
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadStrategy()
	if err != nil {
		return err
	}
	if path == "" {
		path = "(built-in defaults)"
	}

	PrintHeader("Strategy Config Validation")
	PrintKeyValue("File", path, 10)
	PrintKeyValue("Strategy", cfg.Meta.StrategyID, 10)
	PrintSeparator()

	if err := strategyconfig.Validate(cfg); err != nil {
		var verr strategyconfig.ValidationError
		if errors.As(err, &verr) {
			PrintError(fmt.Sprintf("%s - %s", verr.Field, verr.Message))
		} else {
			PrintError(err.Error())
		}
		return err
	}
	PrintSuccess("All required constraints passed")

	warnings := strategyconfig.Warn(cfg)
	if len(warnings) == 0 {
		PrintInfo("No warnings")
		return nil
	}
	fmt.Println()
	for _, w := range warnings {
		fmt.Printf("⚠️  [%s] %s\n", w.Code, w.Message)
	}
	return nil
}

func showConfig(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadStrategy()
	if err != nil {
		return err
	}

	data, err := strategyconfig.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal strategy config: %w", err)
	}
	hash, err := strategyconfig.Hash(cfg)
	if err != nil {
		return fmt.Errorf("hash strategy config: %w", err)
	}

	fmt.Print(string(data))
	PrintSeparator()
	fmt.Printf("# config_hash: %s\n", hash)
	return nil
}

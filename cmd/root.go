package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/survey-geo/linkdata/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "linkdata",
	Short: "Link survey records to time-varying contextual data",
	Long:  "Links survey respondents to daily geographically indexed measurements (heat index, PM2.5, ozone) at arbitrary day lags, resolving each respondent's census tract from residential move history.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cinelog/review-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "review-cli",
	Short: "Film review blog ETL pipeline",
	Long:  "Crawls a film review blog, classifies and cleans posts via multi-model LLM reconciliation, links reviews to movies, enriches them from TMDB.",
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

package main

import (
	"github.com/spf13/cobra"
)

var runArchives []string

var runCmd = &cobra.Command{
	Use:     "run",
	Aliases: []string{"pipeline"},
	Short:   "Run the full pipeline: crawl, parse, classify, clean, link, sentiment, enrich",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initPipeline(ctx, "pipeline")
		if err != nil {
			return err
		}
		defer env.Close()

		archives := runArchives
		if len(archives) == 0 {
			archives = cfg.Crawl.Archives
		}
		return env.Pipeline.Run(ctx, archives)
	},
}

func init() {
	runCmd.Flags().StringArrayVar(&runArchives, "archive", nil, "archive page URL (repeatable, default from config)")
	rootCmd.AddCommand(runCmd)
}

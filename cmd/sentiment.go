package main

import (
	"github.com/spf13/cobra"
)

var sentimentCmd = &cobra.Command{
	Use:   "sentiment",
	Short: "Fill missing sentiment labels on promoted and approved reviews",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initPipeline(ctx, "pipeline")
		if err != nil {
			return err
		}
		defer env.Close()

		return env.Pipeline.Sentiment(ctx)
	},
}

func init() {
	rootCmd.AddCommand(sentimentCmd)
}

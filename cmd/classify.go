package main

import (
	"github.com/spf13/cobra"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify parsed pages as film reviews via multi-model voting",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initPipeline(ctx, "pipeline")
		if err != nil {
			return err
		}
		defer env.Close()

		return env.Pipeline.Classify(ctx)
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}

package main

import (
	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean promoted reviews and gate them through the judge model",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initPipeline(ctx, "pipeline")
		if err != nil {
			return err
		}
		defer env.Close()

		return env.Pipeline.Clean(ctx)
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}

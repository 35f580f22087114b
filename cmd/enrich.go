package main

import (
	"github.com/spf13/cobra"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Fetch movie metadata from TMDB for linked reviews",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initPipeline(ctx, "enrich")
		if err != nil {
			return err
		}
		defer env.Close()

		return env.Pipeline.Enrich(ctx)
	},
}

func init() {
	rootCmd.AddCommand(enrichCmd)
}

package main

import (
	"github.com/spf13/cobra"
)

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Link approved reviews to movie records",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initPipeline(ctx, "pipeline")
		if err != nil {
			return err
		}
		defer env.Close()

		return env.Pipeline.Link(ctx)
	},
}

func init() {
	rootCmd.AddCommand(linkCmd)
}

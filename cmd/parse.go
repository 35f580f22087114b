package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/cinelog/review-cli/internal/pipeline"
)

var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Extract title, short review, and body text from fetched posts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("status"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		p := pipeline.New(st, nil, nil, nil, nil, nil, pipeline.Options{
			BatchSize: cfg.Pipeline.BatchSize,
		})
		return p.Parse(ctx)
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
}

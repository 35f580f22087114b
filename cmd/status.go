package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/cinelog/review-cli/internal/model"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show page counts per pipeline status",
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

		counts, err := st.CountPagesByStatus(ctx)
		if err != nil {
			return err
		}
		if len(counts) == 0 {
			fmt.Println("no pages")
			return nil
		}

		statuses := make([]string, 0, len(counts))
		total := 0
		for status, n := range counts {
			statuses = append(statuses, string(status))
			total += n
		}
		sort.Strings(statuses)

		for _, status := range statuses {
			fmt.Printf("%-20s %d\n", status, counts[model.PageStatus(status)])
		}
		fmt.Printf("%-20s %d\n", "total", total)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

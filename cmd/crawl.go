package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/cinelog/review-cli/internal/fetcher"
	"github.com/cinelog/review-cli/internal/pipeline"
)

var crawlArchives []string

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Discover and fetch blog posts from archive pages",
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

		archives := crawlArchives
		if len(archives) == 0 {
			archives = cfg.Crawl.Archives
		}
		if len(archives) == 0 {
			return eris.New("no archive URLs: pass --archive or set crawl.archives")
		}

		httpFetcher := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent:         cfg.Crawl.UserAgent,
			Timeout:           time.Duration(cfg.Crawl.TimeoutSecs) * time.Second,
			MaxRetries:        cfg.Crawl.MaxRetries,
			RequestsPerSecond: cfg.Crawl.RequestsPerSecond,
		})

		p := pipeline.New(st, nil, nil, httpFetcher, nil, nil, pipeline.Options{
			Concurrency: cfg.Pipeline.Concurrency,
			ModelRate:   cfg.Pipeline.ModelRate,
			BatchSize:   cfg.Pipeline.BatchSize,
		})
		return p.Crawl(ctx, archives)
	},
}

func init() {
	crawlCmd.Flags().StringArrayVar(&crawlArchives, "archive", nil, "archive page URL (repeatable, default from config)")
	rootCmd.AddCommand(crawlCmd)
}

package pipeline

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cinelog/review-cli/internal/model"
)

// postURLPattern matches WordPress-style permalinks (/YYYY/MM/DD/slug/),
// which is how the blog publishes individual posts. Archive and tag pages
// don't match and are skipped.
var postURLPattern = regexp.MustCompile(`/\d{4}/\d{2}/\d{2}/[^/]+/?$`)

// Crawl fetches archive listing pages and inserts every discovered post URL
// as a pending page. Already-known URLs are ignored by the store, so crawling
// the same archives again is safe.
func (p *Pipeline) Crawl(ctx context.Context, archiveURLs []string) error {
	if p.fetcher == nil || len(archiveURLs) == 0 {
		zap.L().Info("crawl: no archives configured, skipping")
		return nil
	}

	seen := make(map[string]bool)
	var pages []model.ReviewPage
	for _, archiveURL := range archiveURLs {
		body, err := p.fetcher.Fetch(ctx, archiveURL)
		if err != nil {
			// A single dead archive page should not sink the whole crawl.
			zap.L().Warn("crawl: archive fetch failed",
				zap.String("url", archiveURL),
				zap.Error(err),
			)
			continue
		}

		links := extractPostLinks(archiveURL, string(body))
		for _, link := range links {
			if seen[link] {
				continue
			}
			seen[link] = true
			pages = append(pages, model.ReviewPage{URL: link})
		}
		zap.L().Info("crawl: archive scanned",
			zap.String("url", archiveURL),
			zap.Int("posts", len(links)),
		)
	}

	if len(pages) == 0 {
		return nil
	}
	if err := p.store.InsertPages(ctx, pages); err != nil {
		return eris.Wrap(err, "crawl: insert pages")
	}

	// Fetch each new pending post body so parse can work offline.
	pending, err := p.store.ListPagesByStatus(ctx, model.StatusPending, p.opts.BatchSize)
	if err != nil {
		return eris.Wrap(err, "crawl: list pending")
	}
	for _, page := range pending {
		if page.FullText != "" {
			continue
		}
		body, err := p.fetcher.Fetch(ctx, page.URL)
		if err != nil {
			zap.L().Warn("crawl: post fetch failed",
				zap.String("url", page.URL),
				zap.Error(err),
			)
			continue
		}
		if err := p.store.SetPageFullText(ctx, page.ID, string(body)); err != nil {
			zap.L().Warn("crawl: store post body failed",
				zap.String("url", page.URL),
				zap.Error(err),
			)
		}
	}

	zap.L().Info("crawl: complete", zap.Int("discovered", len(pages)))
	return nil
}

// extractPostLinks pulls same-host post permalinks out of an archive page.
func extractPostLinks(baseURL, html string) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var links []string
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		u, err := base.Parse(strings.TrimSpace(href))
		if err != nil || u.Host != base.Host {
			return
		}
		if !postURLPattern.MatchString(u.Path) {
			return
		}
		u.Fragment = ""
		u.RawQuery = ""
		abs := u.String()
		if !seen[abs] {
			seen[abs] = true
			links = append(links, abs)
		}
	})
	return links
}

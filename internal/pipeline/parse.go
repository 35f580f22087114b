package pipeline

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cinelog/review-cli/internal/model"
)

// Parse extracts title, short review, and review body text from pending pages
// and marks them parsed. Pages without a fetched body are left pending for
// the next crawl.
func (p *Pipeline) Parse(ctx context.Context) error {
	pages, err := p.store.ListPagesByStatus(ctx, model.StatusPending, p.opts.BatchSize)
	if err != nil {
		return eris.Wrap(err, "parse: list pending")
	}
	if len(pages) == 0 {
		zap.L().Info("parse: nothing pending")
		return nil
	}

	parsed := 0
	for _, page := range pages {
		if strings.TrimSpace(page.FullText) == "" {
			continue
		}
		title, short, body, err := parsePost(page.FullText)
		if err != nil {
			zap.L().Warn("parse: bad html",
				zap.String("url", page.URL),
				zap.Error(err),
			)
			continue
		}
		if title == "" && body == "" {
			zap.L().Warn("parse: page yielded no content", zap.String("url", page.URL))
			continue
		}

		page.Title = title
		page.ShortReview = short
		page.FullText = body
		if err := p.store.UpdateParsedPage(ctx, page); err != nil {
			zap.L().Warn("parse: update failed",
				zap.String("url", page.URL),
				zap.Error(err),
			)
			continue
		}
		parsed++
	}

	zap.L().Info("parse: complete",
		zap.Int("candidates", len(pages)),
		zap.Int("parsed", parsed),
	)
	return nil
}

// nonContentSelectors lists elements stripped from the post body before
// extracting text.
const nonContentSelectors = "script, style, nav, header, footer"

// parsePost pulls the post title, the short description, and the plain-text
// body out of a WordPress post page. The body is scoped to the entry-content
// node so comments, sidebars, and footers never reach the models.
func parsePost(rawHTML string) (title, short, body string, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return "", "", "", eris.Wrap(err, "parse: read html")
	}

	title = collapseWhitespace(doc.Find("h1.entry-title").First().Text())
	if title == "" {
		title = collapseWhitespace(doc.Find("title").First().Text())
		// Document titles carry the site name as a suffix.
		if idx := strings.LastIndex(title, " | "); idx > 0 {
			title = title[:idx]
		}
	}

	if desc, ok := doc.Find("meta[property='og:description']").Attr("content"); ok {
		short = strings.TrimSpace(desc)
	}

	content := doc.Find("div.entry-content").First()
	if content.Length() == 0 {
		content = doc.Find("body").First()
	}
	content.Find(nonContentSelectors).Remove()
	body = collapseWhitespace(content.Text())

	return title, short, body, nil
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

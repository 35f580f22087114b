package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cinelog/review-cli/internal/llm"
	"github.com/cinelog/review-cli/internal/model"
	"github.com/cinelog/review-cli/internal/reconcile"
)

const classifySystemPrompt = `### ROLE
You are an assistant to a film critic who primarily reviews Indian films, but occasionally covers Hollywood and world cinema. You are curating the critic's personal movie reviews from their blog.

### TASK
Many posts on the blog are not reviews. Determine whether a post is a film review by the critic of a single movie. Posts that are NOT reviews include reader submissions, guest reviews, interviews, Q&As, essays about actors or trends, and multi-film comparisons.

For posts that are film reviews, also infer the critic's sentiment toward the film (positive, negative, or mixed) from tone and word choice. If the post is not a film review, output "sentiment": "N/A".

### OUTPUT
Only return a JSON object with exactly this structure, no other text:
{
  "is_film_review": true | false | "maybe",
  "num_films": integer,
  "film_names": [list of strings],
  "sentiment": "positive" | "negative" | "mixed" | "N/A"
}

### MUST-FOLLOW RULES (ranked by importance)
1. Return nothing except the JSON object.
2. If the post is written by anyone other than the critic, mark "is_film_review": false.
3. If the post is an interview, reader submission, fan post, or announcement, mark "is_film_review": false.
4. If the post covers more than one film, even in comparison, mark "is_film_review": false.
5. If the post discusses a single film with analysis of plot, themes, acting, or direction, and is authored by the critic, mark "is_film_review": true.
6. If uncertain but the structure feels like a review (setup, analysis, opinion), mark "is_film_review": "maybe".`

const classifyUserPrompt = `Title: %s

Summary: %s

Full Text:
%s`

// maxClassifyChars truncates review bodies before prompting; long posts blow
// past context limits without changing the verdict.
const maxClassifyChars = 8000

// Classify fans out every parsed page to each model configured for the
// classify_page task, logs all results, then reconciles the latest accepted
// vote per model by majority and promotes or demotes the page.
func (p *Pipeline) Classify(ctx context.Context) error {
	pages, err := p.store.ListPagesByStatus(ctx, model.StatusParsed, p.opts.BatchSize)
	if err != nil {
		return eris.Wrap(err, "classify: list parsed")
	}
	if len(pages) == 0 {
		zap.L().Info("classify: nothing to classify")
		return nil
	}

	route := p.routes.For(model.TaskClassifyPage)
	zap.L().Info("classify: starting",
		zap.Int("pages", len(pages)),
		zap.Strings("models", route.Models),
	)

	// Phase 1: invoke every (page, model) pair and log all rows.
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)

	var mu sync.Mutex
	var logRows []model.LLMResultRow
	for _, page := range pages {
		userPrompt := fmt.Sprintf(classifyUserPrompt, page.Title, page.ShortReview, truncate(page.FullText, maxClassifyChars))
		for _, modelID := range route.Models {
			g.Go(func() error {
				row, err := p.invokeAndLog(gCtx, modelID, model.TaskClassifyPage, page.ID, classifySystemPrompt, userPrompt)
				if err != nil {
					return err
				}
				mu.Lock()
				logRows = append(logRows, row)
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "classify: invoke models")
	}
	if err := p.store.InsertLLMLogs(ctx, logRows); err != nil {
		return eris.Wrap(err, "classify: insert logs")
	}

	// Phase 2: reconcile each page from the persisted log and promote.
	writer := NewPromotionWriter(p.store, p.metrics)
	var decisions []Promotion
	for _, page := range pages {
		rows, err := p.store.LatestAcceptedResults(ctx, page.ID, model.TaskClassifyPage)
		if err != nil {
			return eris.Wrapf(err, "classify: load results for %s", page.ID)
		}

		votes := classificationVotes(rows, route.Models)
		result := reconcile.Classifications(votes, route.PriorityModel)
		p.metrics.ObserveReconciliation(result.Strategy)

		if result.Failed() {
			zap.L().Warn("classify: reconciliation failed",
				zap.String("page_id", page.ID),
				zap.String("error", result.Err),
			)
			decisions = append(decisions, Promotion{SourceID: page.ID, Status: model.StatusNotPromoted})
			continue
		}

		status := model.StatusNotPromoted
		if result.FinalClassification == "true" {
			status = model.StatusPromoted
		}
		decisions = append(decisions, Promotion{SourceID: page.ID, Status: status})
		zap.L().Info("classify: page reconciled",
			zap.String("page_id", page.ID),
			zap.String("classification", result.FinalClassification),
			zap.String("strategy", result.Strategy),
			zap.Int("votes", result.WinningVoteCount),
		)

		// The classify output carries a sentiment verdict; reconcile it the
		// same way and persist when the page was promoted.
		if status == model.StatusPromoted {
			if sentiment := reconcileSentiment(rows, route); sentiment != "" {
				if err := p.store.UpdatePageSentiment(ctx, page.ID, sentiment); err != nil {
					zap.L().Warn("classify: sentiment update failed",
						zap.String("page_id", page.ID),
						zap.Error(err),
					)
				}
			}
		}
	}

	if err := writer.Apply(ctx, decisions); err != nil {
		return eris.Wrap(err, "classify: apply promotions")
	}
	return nil
}

// classificationVotes builds the vote list for majority reconciliation,
// ordered by the route's model order so ties break deterministically.
// is_film_review values are normalized to lowercase strings ("true",
// "false", "maybe").
func classificationVotes(rows []model.LLMResultRow, modelOrder []string) []reconcile.Vote {
	byModel := make(map[string]model.LLMResultRow, len(rows))
	for _, row := range rows {
		byModel[row.ModelName] = row
	}

	var votes []reconcile.Vote
	for _, modelID := range modelOrder {
		row, ok := byModel[sanitizedKey(byModel, modelID)]
		if !ok {
			continue
		}
		fields := row.ParsedFields()
		if fields == nil {
			continue
		}
		votes = append(votes, reconcile.Vote{
			Model:          row.ModelName,
			Classification: normalizeFlag(fields["is_film_review"]),
		})
	}
	return votes
}

// sanitizedKey matches a configured model ID against the sanitized names
// stored on log rows.
func sanitizedKey(byModel map[string]model.LLMResultRow, modelID string) string {
	if _, ok := byModel[modelID]; ok {
		return modelID
	}
	for name := range byModel {
		if strings.EqualFold(name, modelID) {
			return name
		}
	}
	return modelID
}

// normalizeFlag renders an is_film_review value as a lowercase string vote.
// Booleans become "true"/"false"; "maybe" and other strings pass through
// lowercased; anything else is an empty (discarded) vote.
func normalizeFlag(v any) string {
	switch val := v.(type) {
	case bool:
		if val {
			return "true"
		}
		return "false"
	case string:
		s := strings.ToLower(strings.TrimSpace(val))
		switch s {
		case "yes":
			return "true"
		case "no":
			return "false"
		}
		return s
	default:
		return ""
	}
}

// reconcileSentiment majority-votes the sentiment field from classify rows.
// Non-verdict values ("N/A", missing) are dropped before voting; an empty
// return means the dedicated sentiment stage will fill the label later.
func reconcileSentiment(rows []model.LLMResultRow, route llm.TaskRoute) string {
	var votes []reconcile.Vote
	for _, row := range rows {
		fields := row.ParsedFields()
		if fields == nil {
			continue
		}
		s, _ := fields["sentiment"].(string)
		s = strings.ToLower(strings.TrimSpace(s))
		switch s {
		case "positive", "negative", "mixed":
			votes = append(votes, reconcile.Vote{Model: row.ModelName, Classification: s})
		}
	}
	result := reconcile.Classifications(votes, route.PriorityModel)
	if result.Failed() {
		return ""
	}
	return result.FinalClassification
}

// truncate cuts s to at most n bytes without splitting a UTF-8 rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

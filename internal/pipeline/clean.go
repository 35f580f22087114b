package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cinelog/review-cli/internal/model"
	"github.com/cinelog/review-cli/internal/reconcile"
)

const cleanSystemPrompt = `### ROLE
You are a film critic cleaning your own movie review titles and short summaries for publication.

### TASK
STEP 1: Clean the existing text. Remove unwanted elements such as:
- "You can read the rest of the review here:" and similar pointers
- Copyright notices and site boilerplate
- "Spoilers ahead" / "The rest of this review may contain spoilers."
- Trailer or video links
- Attribution text like "BR says" or "says <name>"

STEP 2: If there is not enough meaningful text after cleaning, generate new content in the critic's style and append "(auto-generated)" at the end.

### QUALITY CRITERIA
The title must be clear and informative (hinting at the film's quality or approach), free of boilerplate, professionally toned, between 5 and 100 words, and name the specific film rather than using "this movie" or "the film".
The short review must be substantive (plot plus assessment), cleanly formatted, balanced in tone, at least 20 words, and free of generic phrases.

### MUST-FOLLOW RULES
1. Only clean if necessary. Well-written content is returned unchanged.
2. Always clean before considering generation.
3. Never include attribution text.
4. Mark auto-generated content with "(auto-generated)".

### OUTPUT
Return only a JSON object with this exact structure:
{
  "cleaned_title": "string",
  "cleaned_short_review": "string"
}`

const cleanUserPrompt = `Clean this movie review content:

TITLE: %s
SHORT REVIEW: %s

FULL REVIEW (for context):
%s`

const judgeSystemPrompt = `### ROLE
You are a quality assessor for movie review content. Evaluate whether cleaned review titles and short summaries meet the required criteria for publication.

### TASK
TITLE CRITERIA: clear and informative (hints at the film's quality or approach, not just its name); free of unwanted text (no "spoilers ahead", copyright, attribution); professional tone; between 5 and 100 words; proper formatting; names the specific film rather than "this movie" or "the film".

SHORT REVIEW CRITERIA: substantive (plot plus assessment); clean formatting with no boilerplate or links; balanced tone; relevant detail (cast, director, or themes); at least 20 words; no generic phrases like "this movie", "the film", "this review".

VALIDATION LOGIC:
- is_title_valid: true ONLY if the title meets ALL title criteria.
- is_short_review_valid: true ONLY if the short review meets ALL short review criteria.
- Be strict: if any criterion is not met, mark it false.

### OUTPUT
Return only a JSON object with this exact structure:
{
  "is_title_valid": true/false,
  "is_short_review_valid": true/false
}`

const judgeUserPrompt = `Assess the quality of this cleaned movie review content:

CLEANED TITLE: %s
CLEANED SHORT REVIEW: %s

ORIGINAL TITLE: %s
ORIGINAL SHORT REVIEW: %s
ORIGINAL FULL REVIEW:
%s`

const maxCleanChars = 8000

// Clean runs the two-model quality pipeline over promoted pages: the primary
// model cleans every page first, then the judge model assesses the persisted
// primary output, then the judge gate decides approval. The phase barrier
// between primary and judge matters: the judge must see what was actually
// logged, not an in-flight value.
func (p *Pipeline) Clean(ctx context.Context) error {
	pages, err := p.store.ListPagesByStatus(ctx, model.StatusPromoted, p.opts.BatchSize)
	if err != nil {
		return eris.Wrap(err, "clean: list promoted")
	}
	if len(pages) == 0 {
		zap.L().Info("clean: nothing promoted")
		return nil
	}

	primaryModel := p.routes.Primary(model.TaskCleanReview)
	judgeModel := p.routes.Primary(model.TaskJudgeReview)
	zap.L().Info("clean: starting",
		zap.Int("pages", len(pages)),
		zap.String("primary", primaryModel),
		zap.String("judge", judgeModel),
	)

	// Phase 1: primary cleans every page.
	if err := p.runCleanPhase(ctx, pages, primaryModel); err != nil {
		return err
	}

	// Phase 2: judge assesses the persisted primary output.
	if err := p.runJudgePhase(ctx, pages, judgeModel); err != nil {
		return err
	}

	// Phase 3: pair, gate, and persist the decisions.
	records, err := p.pairRecords(ctx, pages)
	if err != nil {
		return err
	}
	approved, rejected, incomplete := reconcile.JudgeGate(records)
	approved, dropped := reconcile.ValidateApproved(approved)

	if len(approved) > 0 {
		reviews := make([]model.CleanedReview, 0, len(approved))
		ids := make([]string, 0, len(approved))
		for _, a := range approved {
			reviews = append(reviews, model.CleanedReview{
				SourceID:           a.SourceID,
				CleanedTitle:       a.CleanedTitle,
				CleanedShortReview: a.CleanedShortReview,
				IsTitleValid:       a.IsTitleValid,
				IsShortReviewValid: a.IsShortReviewValid,
				Status:             model.StatusApproved,
			})
			ids = append(ids, a.SourceID)
		}
		if err := p.store.InsertCleanReviews(ctx, reviews); err != nil {
			return eris.Wrap(err, "clean: insert clean reviews")
		}
		if err := p.store.UpdatePageStatuses(ctx, ids, model.StatusApproved); err != nil {
			return eris.Wrap(err, "clean: mark approved")
		}
	}

	rejectedIDs := make([]string, 0, len(rejected)+len(dropped))
	for _, r := range rejected {
		rejectedIDs = append(rejectedIDs, r.SourceID)
		zap.L().Info("clean: rejected",
			zap.String("source_id", r.SourceID),
			zap.Any("reasons", r.Reasons),
		)
	}
	rejectedIDs = append(rejectedIDs, dropped...)
	if len(rejectedIDs) > 0 {
		if err := p.store.UpdatePageStatuses(ctx, rejectedIDs, model.StatusRejected); err != nil {
			return eris.Wrap(err, "clean: mark rejected")
		}
	}

	zap.L().Info("clean: complete",
		zap.Int("approved", len(approved)),
		zap.Int("rejected", len(rejectedIDs)),
		zap.Int("incomplete", len(incomplete)),
	)
	return nil
}

func (p *Pipeline) runCleanPhase(ctx context.Context, pages []model.ReviewPage, primaryModel string) error {
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)

	var mu sync.Mutex
	var logRows []model.LLMResultRow
	for _, page := range pages {
		g.Go(func() error {
			userPrompt := fmt.Sprintf(cleanUserPrompt, page.Title, page.ShortReview, truncate(page.FullText, maxCleanChars))
			row, err := p.invokeAndLog(gCtx, primaryModel, model.TaskCleanReview, page.ID, cleanSystemPrompt, userPrompt)
			if err != nil {
				return err
			}
			mu.Lock()
			logRows = append(logRows, row)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "clean: primary phase")
	}
	return eris.Wrap(p.store.InsertLLMLogs(ctx, logRows), "clean: insert primary logs")
}

func (p *Pipeline) runJudgePhase(ctx context.Context, pages []model.ReviewPage, judgeModel string) error {
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)

	var mu sync.Mutex
	var logRows []model.LLMResultRow
	for _, page := range pages {
		g.Go(func() error {
			rows, err := p.store.LatestAcceptedResults(gCtx, page.ID, model.TaskCleanReview)
			if err != nil {
				return eris.Wrapf(err, "clean: load primary output for %s", page.ID)
			}
			if len(rows) == 0 {
				// No accepted primary output; the gate will report the pair
				// as incomplete.
				return nil
			}
			fields := rows[0].ParsedFields()
			cleanedTitle, _ := fields["cleaned_title"].(string)
			cleanedShort, _ := fields["cleaned_short_review"].(string)

			userPrompt := fmt.Sprintf(judgeUserPrompt,
				cleanedTitle, cleanedShort,
				page.Title, page.ShortReview, truncate(page.FullText, maxCleanChars),
			)
			row, err := p.invokeAndLog(gCtx, judgeModel, model.TaskJudgeReview, page.ID, judgeSystemPrompt, userPrompt)
			if err != nil {
				return err
			}
			mu.Lock()
			logRows = append(logRows, row)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "clean: judge phase")
	}
	return eris.Wrap(p.store.InsertLLMLogs(ctx, logRows), "clean: insert judge logs")
}

// pairRecords joins the latest accepted primary and judge rows per page.
func (p *Pipeline) pairRecords(ctx context.Context, pages []model.ReviewPage) ([]reconcile.PairedRecord, error) {
	records := make([]reconcile.PairedRecord, 0, len(pages))
	for _, page := range pages {
		rec := reconcile.PairedRecord{SourceID: page.ID}

		primaryRows, err := p.store.LatestAcceptedResults(ctx, page.ID, model.TaskCleanReview)
		if err != nil {
			return nil, eris.Wrapf(err, "clean: load clean rows for %s", page.ID)
		}
		if len(primaryRows) > 0 {
			rec.HasPrimary = true
			rec.Primary = primaryRows[0].ParsedFields()
		}

		judgeRows, err := p.store.LatestAcceptedResults(ctx, page.ID, model.TaskJudgeReview)
		if err != nil {
			return nil, eris.Wrapf(err, "clean: load judge rows for %s", page.ID)
		}
		if len(judgeRows) > 0 {
			rec.HasJudge = true
			rec.Judge = judgeRows[0].ParsedFields()
		}

		records = append(records, rec)
	}
	return records, nil
}

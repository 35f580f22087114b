package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cinelog/review-cli/internal/model"
)

const extractTitleSystemPrompt = `You extract the name of the film being reviewed from a movie review title.
Return only a JSON string containing the film's name exactly as it appears in the title, for example: "Jigarthanda DoubleX".
If no film name can be identified, return the JSON string "".`

const extractTitleUserPrompt = `Review title: %s

Short review: %s`

// Link resolves each approved review to a movie record: an LLM extracts the
// film name from the cleaned title, then the movie is found or created and
// the review linked to it. Pages whose film name cannot be determined stay
// approved and are retried on the next run.
func (p *Pipeline) Link(ctx context.Context) error {
	pages, err := p.store.ListPagesByStatus(ctx, model.StatusApproved, p.opts.BatchSize)
	if err != nil {
		return eris.Wrap(err, "link: list approved")
	}

	modelID := p.routes.Primary(model.TaskExtractMovieTitle)
	linked := 0
	var logRows []model.LLMResultRow
	for _, page := range pages {
		if page.MovieID != "" {
			continue
		}

		userPrompt := fmt.Sprintf(extractTitleUserPrompt, page.Title, page.ShortReview)
		row, err := p.invokeAndLog(ctx, modelID, model.TaskExtractMovieTitle, page.ID, extractTitleSystemPrompt, userPrompt)
		if err != nil {
			return eris.Wrap(err, "link: extract title")
		}
		logRows = append(logRows, row)
		if !row.Accepted {
			continue
		}

		title := extractedTitle(row)
		if title == "" {
			zap.L().Warn("link: no film name extracted", zap.String("page_id", page.ID))
			continue
		}

		movie, err := p.store.GetMovieByTitle(ctx, title)
		if err != nil {
			return eris.Wrapf(err, "link: lookup movie %q", title)
		}
		if movie == nil {
			movie, err = p.store.CreateMovie(ctx, title)
			if err != nil {
				return eris.Wrapf(err, "link: create movie %q", title)
			}
		}
		if err := p.store.LinkReviewToMovie(ctx, page.ID, movie.ID); err != nil {
			return eris.Wrapf(err, "link: link page %s", page.ID)
		}
		linked++
	}

	if err := p.store.InsertLLMLogs(ctx, logRows); err != nil {
		return eris.Wrap(err, "link: insert logs")
	}
	zap.L().Info("link: complete",
		zap.Int("candidates", len(pages)),
		zap.Int("linked", linked),
	)
	return nil
}

// extractedTitle reads the film name from an extract_movie_title row; the
// model answers with a bare JSON string, but some return {"film_name": ...}.
func extractedTitle(row model.LLMResultRow) string {
	if fields := row.ParsedFields(); fields != nil {
		s, _ := fields["film_name"].(string)
		return strings.TrimSpace(s)
	}
	var s string
	if err := json.Unmarshal(row.OutputParsed, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

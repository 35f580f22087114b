package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cinelog/review-cli/internal/model"
)

const sentimentSystemPrompt = `You classify a film critic's sentiment toward the film they are reviewing.
The critic rarely uses star ratings and often expresses nuanced opinions; infer sentiment from tone and word choice.
Return only a JSON string: "positive" if the critic praises the film overall, "negative" if they clearly dislike it or find it lacking, "mixed" if they balance praise and criticism without a clear lean.`

const sentimentUserPrompt = `Title: %s

Short review: %s

Full review:
%s`

// Sentiment fills missing sentiment labels on promoted or approved pages.
// Most pages get their label from the classify stage; this handles the rest.
func (p *Pipeline) Sentiment(ctx context.Context) error {
	pages, err := p.store.PagesMissingSentiment(ctx, p.opts.BatchSize)
	if err != nil {
		return eris.Wrap(err, "sentiment: list pages")
	}
	if len(pages) == 0 {
		zap.L().Info("sentiment: nothing missing")
		return nil
	}

	modelID := p.routes.Primary(model.TaskSentiment)
	labeled := 0
	var logRows []model.LLMResultRow
	for _, page := range pages {
		userPrompt := fmt.Sprintf(sentimentUserPrompt, page.Title, page.ShortReview, truncate(page.FullText, maxClassifyChars))
		row, err := p.invokeAndLog(ctx, modelID, model.TaskSentiment, page.ID, sentimentSystemPrompt, userPrompt)
		if err != nil {
			return eris.Wrap(err, "sentiment: invoke")
		}
		logRows = append(logRows, row)
		if !row.Accepted {
			continue
		}

		label := sentimentLabel(row)
		if label == "" {
			zap.L().Warn("sentiment: unusable label",
				zap.String("page_id", page.ID),
				zap.String("raw", row.OutputRaw),
			)
			continue
		}
		if err := p.store.UpdatePageSentiment(ctx, page.ID, label); err != nil {
			return eris.Wrapf(err, "sentiment: update %s", page.ID)
		}
		labeled++
	}

	if err := p.store.InsertLLMLogs(ctx, logRows); err != nil {
		return eris.Wrap(err, "sentiment: insert logs")
	}
	zap.L().Info("sentiment: complete",
		zap.Int("candidates", len(pages)),
		zap.Int("labeled", labeled),
	)
	return nil
}

func sentimentLabel(row model.LLMResultRow) string {
	var s string
	if fields := row.ParsedFields(); fields != nil {
		s, _ = fields["sentiment"].(string)
	} else {
		s = strings.Trim(string(row.OutputParsed), `"`)
	}
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "positive", "negative", "mixed":
		return s
	}
	return ""
}

package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cinelog/review-cli/internal/model"
	"github.com/cinelog/review-cli/internal/monitoring"
	"github.com/cinelog/review-cli/internal/store"
)

// Promotion is one reconciliation decision awaiting persistence.
type Promotion struct {
	SourceID string
	Status   model.PageStatus
}

// PromotionWriter applies reconciliation decisions to the store. Decisions
// are batched per target status for throughput, but a failed batch falls
// back to per-item writes so one bad row cannot silently block promotion of
// the rest.
type PromotionWriter struct {
	store   store.Store
	metrics *monitoring.Collector
}

// NewPromotionWriter creates a writer over the given store.
func NewPromotionWriter(st store.Store, metrics *monitoring.Collector) *PromotionWriter {
	return &PromotionWriter{store: st, metrics: metrics}
}

// Apply persists every decision. It returns an error only when individual
// fallback writes also failed, naming how many items could not be promoted.
func (w *PromotionWriter) Apply(ctx context.Context, decisions []Promotion) error {
	if len(decisions) == 0 {
		return nil
	}

	byStatus := make(map[model.PageStatus][]string)
	for _, d := range decisions {
		byStatus[d.Status] = append(byStatus[d.Status], d.SourceID)
	}

	failed := 0
	for status, ids := range byStatus {
		if err := w.store.UpdatePageStatuses(ctx, ids, status); err != nil {
			zap.L().Warn("promote: batch update failed, retrying per item",
				zap.String("status", string(status)),
				zap.Int("count", len(ids)),
				zap.Error(err),
			)
			for _, id := range ids {
				if err := w.store.UpdatePageStatuses(ctx, []string{id}, status); err != nil {
					failed++
					zap.L().Error("promote: item update failed",
						zap.String("source_id", id),
						zap.String("status", string(status)),
						zap.Error(err),
					)
					continue
				}
				w.metrics.ObservePromotion(string(status))
			}
			continue
		}
		for range ids {
			w.metrics.ObservePromotion(string(status))
		}
		zap.L().Info("promote: applied",
			zap.String("status", string(status)),
			zap.Int("count", len(ids)),
		)
	}

	if failed > 0 {
		return eris.Errorf("promote: %d of %d decisions not applied", failed, len(decisions))
	}
	return nil
}

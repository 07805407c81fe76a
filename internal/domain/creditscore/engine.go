package creditscore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"credit-engine/internal/infrastructure/monitoring"
	"credit-engine/internal/pkg/apperrors"
)

// HistorySource reads the loan-history aggregate the score is computed from.
// Implemented by the postgres loan repository.
type HistorySource interface {
	GetScoreHistory(ctx context.Context, customerID int64) (*History, error)
}

type Engine interface {
	// ComputeScore returns the customer's credit score, serving from the
	// cache when a valid entry exists. Cache unavailability never fails the
	// call; the engine falls back to direct computation.
	ComputeScore(ctx context.Context, customerID int64) (int, error)

	// InvalidateScore drops the cached score. Idempotent.
	InvalidateScore(ctx context.Context, customerID int64) error
}

var _ Engine = (*engine)(nil)

type engine struct {
	source HistorySource
	cache  Cache
	logger *slog.Logger
}

func NewEngine(source HistorySource, cache Cache, logger *slog.Logger) Engine {
	if source == nil {
		panic("history source cannot be nil")
	}
	if cache == nil {
		panic("score cache cannot be nil")
	}
	return &engine{
		source: source,
		cache:  cache,
		logger: logger.With(slog.String("component", "creditScoreEngine")),
	}
}

// ComputeScore is safe to call concurrently for the same customer: two
// callers may both miss and both compute, which is benign because the
// computation is a pure read-aggregate and both writes store the same value.
func (e *engine) ComputeScore(ctx context.Context, customerID int64) (int, error) {
	cached, lookup := e.cache.Get(ctx, customerID)
	monitoring.RecordScoreCacheLookup(lookup.String())

	switch lookup {
	case LookupHit:
		e.logger.DebugContext(ctx, "Score cache hit", "customer_id", customerID, "score", cached)
		return cached, nil
	case LookupUnavailable:
		e.logger.WarnContext(ctx, "Score cache unavailable, computing directly", "customer_id", customerID)
	}

	start := time.Now()
	history, err := e.source.GetScoreHistory(ctx, customerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return 0, fmt.Errorf("%w: customer %d", apperrors.ErrCustomerNotFound, customerID)
		}
		e.logger.ErrorContext(ctx, "Failed to read loan history for score", "customer_id", customerID, slog.Any("error", err))
		return 0, fmt.Errorf("failed to read loan history for customer %d: %w", customerID, err)
	}

	score := Compute(*history)
	monitoring.RecordScoreComputation(time.Since(start))

	if err := e.cache.Set(ctx, customerID, score); err != nil {
		// Write-back is best effort; a stale or absent entry only costs a
		// recomputation on the next call.
		e.logger.DebugContext(ctx, "Skipping score cache write-back", "customer_id", customerID, slog.Any("error", err))
	}

	e.logger.InfoContext(ctx, "Credit score computed", "customer_id", customerID, "score", score)
	return score, nil
}

func (e *engine) InvalidateScore(ctx context.Context, customerID int64) error {
	if err := e.cache.Delete(ctx, customerID); err != nil {
		e.logger.WarnContext(ctx, "Failed to invalidate cached score", "customer_id", customerID, slog.Any("error", err))
		return fmt.Errorf("%w: invalidate score for customer %d: %w", apperrors.ErrCacheUnavailable, customerID, err)
	}
	return nil
}

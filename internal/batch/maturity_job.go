package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"credit-engine/internal/domain/creditscore"
	"credit-engine/internal/domain/loan"
)

// LoanMaturityJob closes out approved loans whose tenure has fully elapsed
// with a complete on-time repayment record, then invalidates the cached
// credit score of every affected customer so the PAID volume is picked up
// on the next eligibility check.
type LoanMaturityJob struct {
	loanRepo    loan.Repository
	scoreEngine creditscore.Engine
	logger      *slog.Logger
	now         func() time.Time
}

func NewLoanMaturityJob(loanRepo loan.Repository, engine creditscore.Engine, logger *slog.Logger) *LoanMaturityJob {
	if loanRepo == nil || engine == nil || logger == nil {
		panic("LoanMaturityJob dependencies cannot be nil")
	}
	return &LoanMaturityJob{
		loanRepo:    loanRepo,
		scoreEngine: engine,
		logger:      logger.With("job", "LoanMaturity"),
		now:         time.Now,
	}
}

func (j *LoanMaturityJob) Run(ctx context.Context) error {
	startTime := j.now()
	j.logger.InfoContext(ctx, "Starting loan maturity job.")

	customerIDs, err := j.loanRepo.MarkMaturedLoansPaid(ctx, startTime)
	if err != nil {
		j.logger.ErrorContext(ctx, "Failed to mark matured loans, aborting job.", slog.Any("error", err))
		return fmt.Errorf("cannot run maturity job: %w", err)
	}

	if len(customerIDs) == 0 {
		j.logger.InfoContext(ctx, "No loans matured.", slog.Duration("duration", time.Since(startTime)))
		return nil
	}

	var invalidationErrors int
	for _, customerID := range customerIDs {
		if err := j.scoreEngine.InvalidateScore(ctx, customerID); err != nil {
			// Stale cached scores expire on their own TTL; log and move on.
			j.logger.WarnContext(ctx, "Failed to invalidate cached score",
				slog.Int64("customerID", customerID), slog.Any("error", err))
			invalidationErrors++
		}
	}

	j.logger.InfoContext(ctx, "Loan maturity job finished.",
		slog.Int("customers_affected", len(customerIDs)),
		slog.Int("invalidation_errors", invalidationErrors),
		slog.Duration("duration", time.Since(startTime)))
	return nil
}

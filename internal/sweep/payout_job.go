package sweep

import (
	"context"
	"fmt"

	"github.com/BilMam/soccer-spot-reserve-sub002/internal/payouts"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/logger"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/metrics"
)

type payoutRunner interface {
	RunDue(ctx context.Context) (payouts.SweepStats, error)
}

// PayoutJobParams configure the payout sweep job.
type PayoutJobParams struct {
	Logger  *logger.Logger
	Payouts payoutRunner
	Metrics *metrics.SweepJobMetrics
}

// NewPayoutJob builds the job executing due owner payouts.
func NewPayoutJob(params PayoutJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Payouts == nil {
		return nil, fmt.Errorf("payout service required")
	}
	return &payoutJob{
		logg:    params.Logger,
		payouts: params.Payouts,
		metrics: params.Metrics,
	}, nil
}

type payoutJob struct {
	logg    *logger.Logger
	payouts payoutRunner
	metrics *metrics.SweepJobMetrics
}

func (j *payoutJob) Name() string { return "payout-sweep" }

func (j *payoutJob) Run(ctx context.Context) error {
	stats, err := j.payouts.RunDue(ctx)
	if err != nil {
		return fmt.Errorf("payout sweep: %w", err)
	}

	j.metrics.AddProcessed(j.Name(), "succeeded", stats.Succeeded)
	j.metrics.AddProcessed(j.Name(), "failed", stats.Failed)

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"processed": stats.Processed,
		"succeeded": stats.Succeeded,
		"failed":    stats.Failed,
	})
	j.logg.Info(logCtx, "payout sweep complete")
	return nil
}

package sweep

import (
	"context"
	"fmt"

	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/logger"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/metrics"
)

type bookingCompleter interface {
	CompleteElapsed(ctx context.Context) (int64, error)
}

// CompletionJobParams configure the booking completion job.
type CompletionJobParams struct {
	Logger   *logger.Logger
	Bookings bookingCompleter
	Metrics  *metrics.SweepJobMetrics
}

// NewCompletionJob builds the job promoting elapsed confirmed bookings to
// completed. Advisory bookkeeping, not a safety-critical transition.
func NewCompletionJob(params CompletionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Bookings == nil {
		return nil, fmt.Errorf("booking service required")
	}
	return &completionJob{
		logg:     params.Logger,
		bookings: params.Bookings,
		metrics:  params.Metrics,
	}, nil
}

type completionJob struct {
	logg     *logger.Logger
	bookings bookingCompleter
	metrics  *metrics.SweepJobMetrics
}

func (j *completionJob) Name() string { return "booking-completion" }

func (j *completionJob) Run(ctx context.Context) error {
	promoted, err := j.bookings.CompleteElapsed(ctx)
	if err != nil {
		return fmt.Errorf("booking completion: %w", err)
	}

	j.metrics.AddProcessed(j.Name(), "succeeded", int(promoted))

	logCtx := j.logg.WithField(ctx, "promoted", promoted)
	j.logg.Info(logCtx, "booking completion sweep complete")
	return nil
}

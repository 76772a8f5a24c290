package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/BilMam/soccer-spot-reserve-sub002/internal/availability"
	"github.com/BilMam/soccer-spot-reserve-sub002/internal/bookings"
	"github.com/BilMam/soccer-spot-reserve-sub002/internal/payouts"
	"github.com/BilMam/soccer-spot-reserve-sub002/internal/sweep"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/cinetpay"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/config"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/db"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/logger"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/metrics"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/migrate"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "sweep-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "sweep-worker"

	logg = logger.New(logger.Options{
		ServiceName: "sweep-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	cinetpayClient, err := cinetpay.New(cfg.CinetPay)
	if err != nil {
		logg.Error(context.Background(), "failed to create cinetpay client", err)
		os.Exit(1)
	}

	conn := dbClient.DB()

	availabilityService, err := availability.NewService(availability.ServiceParams{
		Logger:      logg,
		Repo:        availability.NewRepository(conn),
		Granularity: cfg.Booking.SlotGranularityMinutes,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create availability service", err)
		os.Exit(1)
	}

	bookingService, err := bookings.NewService(bookings.ServiceParams{
		Logger:       logg,
		Repo:         bookings.NewRepository(conn),
		Availability: availabilityService,
		Tx:           dbClient,
		FeePercent:   cfg.Booking.PlatformFeePercent,
		Currency:     cfg.Booking.Currency,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create booking service", err)
		os.Exit(1)
	}

	payoutService, err := payouts.NewService(payouts.ServiceParams{
		Logger:    logg,
		Repo:      payouts.NewRepository(conn),
		Transfer:  cinetpayClient,
		Bookings:  bookingService,
		BatchSize: cfg.Sweep.PayoutBatchSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payout service", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewSweepJobMetrics(prometheus.DefaultRegisterer)

	payoutJob, err := sweep.NewPayoutJob(sweep.PayoutJobParams{
		Logger:  logg,
		Payouts: payoutService,
		Metrics: metricsCollector,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payout job", err)
		os.Exit(1)
	}

	completionJob, err := sweep.NewCompletionJob(sweep.CompletionJobParams{
		Logger:   logg,
		Bookings: bookingService,
		Metrics:  metricsCollector,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create completion job", err)
		os.Exit(1)
	}

	lock, err := sweep.NewRedisLock(redisClient, redisClient.LockKey("sweep-worker"), cfg.Sweep.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create sweep lock", err)
		os.Exit(1)
	}

	service, err := sweep.NewService(sweep.ServiceParams{
		Logger:   logg,
		Registry: sweep.NewRegistry(payoutJob, completionJob),
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Sweep.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sweep service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting sweep worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "sweep worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "sweep worker shutting down gracefully")
}

package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/BilMam/soccer-spot-reserve-sub002/api/routes"
	"github.com/BilMam/soccer-spot-reserve-sub002/internal/availability"
	"github.com/BilMam/soccer-spot-reserve-sub002/internal/bookings"
	"github.com/BilMam/soccer-spot-reserve-sub002/internal/patterns"
	"github.com/BilMam/soccer-spot-reserve-sub002/internal/payments"
	"github.com/BilMam/soccer-spot-reserve-sub002/internal/payouts"
	"github.com/BilMam/soccer-spot-reserve-sub002/internal/slots"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/cinetpay"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/config"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/db"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/logger"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/migrate"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	slotService, err := slots.NewService(slots.ServiceParams{
		Logger:      logg,
		Repo:        slots.NewRepository(conn),
		Tx:          dbClient,
		Granularity: cfg.Booking.SlotGranularityMinutes,
		HoldTTL:     cfg.Booking.HoldTTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create slot service", err)
		os.Exit(1)
	}

	patternService, err := patterns.NewService(patterns.ServiceParams{
		Logger:      logg,
		Repo:        patterns.NewRepository(conn),
		Tx:          dbClient,
		Granularity: cfg.Booking.SlotGranularityMinutes,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create pattern service", err)
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

	paymentService, err := payments.NewService(payments.ServiceParams{
		Logger:   logg,
		Repo:     payments.NewRepository(conn),
		Bookings: bookingService,
		Verifier: cinetpayClient,
		Payouts:  payoutService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg, logg, dbClient, redisClient,
			availabilityService, slotService, patternService,
			bookingService, paymentService, payoutService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

package bookings

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/BilMam/soccer-spot-reserve-sub002/internal/availability"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/db"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/db/models"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/enums"
	pkgerrors "github.com/BilMam/soccer-spot-reserve-sub002/pkg/errors"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/logger"
)

const testDate = "2025-05-10"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:bookings_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&models.Field{}, &models.AvailabilitySlot{}, &models.Booking{},
	))
	return conn
}

func newService(t *testing.T, conn *gorm.DB, now time.Time) *Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test"})
	resolver, err := availability.NewService(availability.ServiceParams{
		Logger:      logg,
		Repo:        availability.NewRepository(conn),
		Granularity: 30,
		Now:         func() time.Time { return now },
	})
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Logger:       logg,
		Repo:         NewRepository(conn),
		Availability: resolver,
		Tx:           db.NewWithConn(conn),
		FeePercent:   "5",
		Currency:     "XOF",
		Now:          func() time.Time { return now },
	})
	require.NoError(t, err)
	return svc
}

func seedField(t *testing.T, conn *gorm.DB, pricePerHour int64, active bool) uuid.UUID {
	t.Helper()
	phone := "+2250700000001"
	field := models.Field{
		OwnerID:      uuid.New(),
		Name:         "Stade Marcory",
		PricePerHour: pricePerHour,
		PayoutPhone:  &phone,
		Active:       active,
	}
	require.NoError(t, conn.Create(&field).Error)
	return field.ID
}

func seedSlots(t *testing.T, conn *gorm.DB, fieldID uuid.UUID, windows ...[2]string) {
	t.Helper()
	for _, window := range windows {
		require.NoError(t, conn.Create(&models.AvailabilitySlot{
			FieldID: fieldID, Date: testDate,
			StartTime: window[0], EndTime: window[1],
			IsAvailable: true,
		}).Error)
	}
}

func TestCreateAdmitsAndPrices(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	now := time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)
	svc := newService(t, conn, now)
	fieldID := seedField(t, conn, 10000, true)
	seedSlots(t, conn, fieldID, [2]string{"14:00", "14:30"}, [2]string{"14:30", "15:00"}, [2]string{"15:00", "15:30"})

	booking, err := svc.Create(context.Background(), CreateRequest{
		FieldID: fieldID, UserID: uuid.New(),
		Date: testDate, StartTime: "14:00", EndTime: "15:30",
	})
	require.NoError(t, err)

	// 90 minutes at 10000/h, 5% platform fee.
	assert.Equal(t, int64(15000), booking.AmountGross)
	assert.Equal(t, int64(750), booking.AmountFee)
	assert.Equal(t, int64(14250), booking.AmountOwner)
	assert.Equal(t, "XOF", booking.Currency)
	assert.Equal(t, enums.BookingStatusPending, booking.Status)
	assert.Equal(t, enums.PaymentStatusPending, booking.PaymentStatus)
	require.NotNil(t, booking.PaymentIntentID)
	assert.True(t, strings.HasPrefix(*booking.PaymentIntentID, "SSR-"))
}

func TestCreateRejectsOverlappingBooking(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	now := time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)
	svc := newService(t, conn, now)
	fieldID := seedField(t, conn, 10000, true)
	seedSlots(t, conn, fieldID, [2]string{"14:00", "14:30"}, [2]string{"14:30", "15:00"})
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateRequest{
		FieldID: fieldID, UserID: uuid.New(),
		Date: testDate, StartTime: "14:00", EndTime: "15:00",
	})
	require.NoError(t, err)

	// A second attempt over any part of the range is refused while the first
	// booking still occupies it.
	_, err = svc.Create(ctx, CreateRequest{
		FieldID: fieldID, UserID: uuid.New(),
		Date: testDate, StartTime: "14:30", EndTime: "15:00",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	var count int64
	require.NoError(t, conn.Model(&models.Booking{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateRejectsUnpublishedRange(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	now := time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)
	svc := newService(t, conn, now)
	fieldID := seedField(t, conn, 10000, true)

	_, err := svc.Create(context.Background(), CreateRequest{
		FieldID: fieldID, UserID: uuid.New(),
		Date: testDate, StartTime: "14:00", EndTime: "14:30",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestCreateRejectsInactiveField(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	now := time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)
	svc := newService(t, conn, now)
	fieldID := seedField(t, conn, 10000, false)
	seedSlots(t, conn, fieldID, [2]string{"14:00", "14:30"})

	_, err := svc.Create(context.Background(), CreateRequest{
		FieldID: fieldID, UserID: uuid.New(),
		Date: testDate, StartTime: "14:00", EndTime: "14:30",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePrecondition))
}

func TestApplyPaymentOutcomeIsGuarded(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	now := time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)
	svc := newService(t, conn, now)
	fieldID := seedField(t, conn, 10000, true)
	seedSlots(t, conn, fieldID, [2]string{"14:00", "14:30"})
	ctx := context.Background()

	booking, err := svc.Create(ctx, CreateRequest{
		FieldID: fieldID, UserID: uuid.New(),
		Date: testDate, StartTime: "14:00", EndTime: "14:30",
	})
	require.NoError(t, err)

	applied, err := svc.ApplyPaymentOutcome(ctx, booking.ID, enums.PaymentStatusPaid, enums.BookingStatusConfirmed, nil)
	require.NoError(t, err)
	assert.True(t, applied)

	// A late contradictory outcome is a no-op, not a downgrade.
	reason := "payment refused"
	applied, err = svc.ApplyPaymentOutcome(ctx, booking.ID, enums.PaymentStatusFailed, enums.BookingStatusCancelled, &reason)
	require.NoError(t, err)
	assert.False(t, applied)

	fresh, err := svc.GetByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, fresh.PaymentStatus)
	assert.Equal(t, enums.BookingStatusConfirmed, fresh.Status)
	assert.Nil(t, fresh.CancelReason)
}

func TestCancelOnlyFromPending(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	now := time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)
	svc := newService(t, conn, now)
	fieldID := seedField(t, conn, 10000, true)
	seedSlots(t, conn, fieldID, [2]string{"14:00", "14:30"}, [2]string{"15:00", "15:30"})
	ctx := context.Background()

	pending, err := svc.Create(ctx, CreateRequest{
		FieldID: fieldID, UserID: uuid.New(),
		Date: testDate, StartTime: "14:00", EndTime: "14:30",
	})
	require.NoError(t, err)
	require.NoError(t, svc.Cancel(ctx, pending.ID, "user changed plans"))

	fresh, err := svc.GetByID(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.BookingStatusCancelled, fresh.Status)
	require.NotNil(t, fresh.CancelReason)
	assert.Equal(t, "user changed plans", *fresh.CancelReason)

	confirmed, err := svc.Create(ctx, CreateRequest{
		FieldID: fieldID, UserID: uuid.New(),
		Date: testDate, StartTime: "15:00", EndTime: "15:30",
	})
	require.NoError(t, err)
	_, err = svc.ApplyPaymentOutcome(ctx, confirmed.ID, enums.PaymentStatusPaid, enums.BookingStatusConfirmed, nil)
	require.NoError(t, err)

	err = svc.Cancel(ctx, confirmed.ID, "too late")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestOwnerConfirmRequiresConfirmed(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	now := time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)
	svc := newService(t, conn, now)
	fieldID := seedField(t, conn, 10000, true)
	seedSlots(t, conn, fieldID, [2]string{"14:00", "14:30"})
	ctx := context.Background()

	booking, err := svc.Create(ctx, CreateRequest{
		FieldID: fieldID, UserID: uuid.New(),
		Date: testDate, StartTime: "14:00", EndTime: "14:30",
	})
	require.NoError(t, err)

	err = svc.OwnerConfirm(ctx, booking.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = svc.ApplyPaymentOutcome(ctx, booking.ID, enums.PaymentStatusPaid, enums.BookingStatusConfirmed, nil)
	require.NoError(t, err)
	require.NoError(t, svc.OwnerConfirm(ctx, booking.ID))

	fresh, err := svc.GetByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.BookingStatusOwnerConfirmed, fresh.Status)
}

func TestTransitionsFollowLifecycleTable(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	now := time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)
	svc := newService(t, conn, now)
	fieldID := seedField(t, conn, 10000, true)
	seedSlots(t, conn, fieldID, [2]string{"14:00", "14:30"})
	ctx := context.Background()

	booking, err := svc.Create(ctx, CreateRequest{
		FieldID: fieldID, UserID: uuid.New(),
		Date: testDate, StartTime: "14:00", EndTime: "14:30",
	})
	require.NoError(t, err)
	require.NoError(t, svc.Cancel(ctx, booking.ID, "user changed plans"))

	// Cancelled is terminal: no further move is legal.
	err = svc.Cancel(ctx, booking.ID, "again")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	err = svc.OwnerConfirm(ctx, booking.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	// Owner confirmation is not repeatable either.
	seedSlots(t, conn, fieldID, [2]string{"15:00", "15:30"})
	paid, err := svc.Create(ctx, CreateRequest{
		FieldID: fieldID, UserID: uuid.New(),
		Date: testDate, StartTime: "15:00", EndTime: "15:30",
	})
	require.NoError(t, err)
	_, err = svc.ApplyPaymentOutcome(ctx, paid.ID, enums.PaymentStatusPaid, enums.BookingStatusConfirmed, nil)
	require.NoError(t, err)
	require.NoError(t, svc.OwnerConfirm(ctx, paid.ID))

	err = svc.OwnerConfirm(ctx, paid.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	// An unknown booking reports not found, not a state conflict.
	err = svc.Cancel(ctx, uuid.New(), "ghost")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCompleteElapsedPromotesOnlyPastConfirmed(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	now := time.Date(2025, 5, 10, 16, 0, 0, 0, time.UTC)
	svc := newService(t, conn, now)
	fieldID := seedField(t, conn, 10000, true)
	ctx := context.Background()

	mk := func(date, start, end string, status enums.BookingStatus) uuid.UUID {
		booking := models.Booking{
			FieldID: fieldID, UserID: uuid.New(),
			Date: date, StartTime: start, EndTime: end,
			AmountGross: 5000, AmountOwner: 4750, AmountFee: 250, Currency: "XOF",
			Status: status, PaymentStatus: enums.PaymentStatusPaid,
		}
		require.NoError(t, conn.Create(&booking).Error)
		return booking.ID
	}

	pastConfirmed := mk(testDate, "14:00", "15:00", enums.BookingStatusConfirmed)
	pastOwner := mk("2025-05-09", "18:00", "19:00", enums.BookingStatusOwnerConfirmed)
	futureConfirmed := mk(testDate, "17:00", "18:00", enums.BookingStatusConfirmed)
	pastPending := mk(testDate, "13:00", "14:00", enums.BookingStatusPending)

	promoted, err := svc.CompleteElapsed(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), promoted)

	expect := map[uuid.UUID]enums.BookingStatus{
		pastConfirmed:   enums.BookingStatusCompleted,
		pastOwner:       enums.BookingStatusCompleted,
		futureConfirmed: enums.BookingStatusConfirmed,
		pastPending:     enums.BookingStatusPending,
	}
	for id, want := range expect {
		fresh, err := svc.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, fresh.Status)
	}

	// A second sweep finds nothing left to promote.
	promoted, err = svc.CompleteElapsed(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), promoted)
}

func TestConfirmPaidLoserStaysPending(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	now := time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)
	svc := newService(t, conn, now)
	fieldID := seedField(t, conn, 10000, true)
	seedSlots(t, conn, fieldID, [2]string{"14:00", "14:30"}, [2]string{"14:30", "15:00"})
	ctx := context.Background()

	winner, err := svc.Create(ctx, CreateRequest{
		FieldID: fieldID, UserID: uuid.New(),
		Date: testDate, StartTime: "14:00", EndTime: "15:00",
	})
	require.NoError(t, err)

	// A second pending booking that slipped in concurrently over part of the
	// same window, before the winner was confirmed.
	loserIntent := "SSR-LOSER"
	loser := models.Booking{
		FieldID: fieldID, UserID: uuid.New(),
		Date: testDate, StartTime: "14:30", EndTime: "15:00",
		AmountGross: 5000, AmountOwner: 4750, AmountFee: 250, Currency: "XOF",
		Status: enums.BookingStatusPending, PaymentStatus: enums.PaymentStatusPending,
		PaymentIntentID: &loserIntent,
	}
	require.NoError(t, conn.Create(&loser).Error)

	outcome, err := svc.ConfirmPaid(ctx, winner)
	require.NoError(t, err)
	assert.Equal(t, SettleApplied, outcome)

	outcome, err = svc.ConfirmPaid(ctx, &loser)
	require.NoError(t, err)
	assert.Equal(t, SettleLostRace, outcome)

	// The loser is never confirmed and never downgraded either: it stays
	// pending for manual refund.
	fresh, err := svc.GetByID(ctx, loser.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.BookingStatusPending, fresh.Status)
	assert.Equal(t, enums.PaymentStatusPending, fresh.PaymentStatus)

	// Replaying the winner's confirmation is a harmless duplicate.
	outcome, err = svc.ConfirmPaid(ctx, winner)
	require.NoError(t, err)
	assert.Equal(t, SettleDuplicate, outcome)
}

func TestFindByPaymentReference(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	now := time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)
	svc := newService(t, conn, now)
	fieldID := seedField(t, conn, 10000, true)
	seedSlots(t, conn, fieldID, [2]string{"14:00", "14:30"})
	ctx := context.Background()

	booking, err := svc.Create(ctx, CreateRequest{
		FieldID: fieldID, UserID: uuid.New(),
		Date: testDate, StartTime: "14:00", EndTime: "14:30",
	})
	require.NoError(t, err)

	found, err := svc.FindByPaymentReference(ctx, *booking.PaymentIntentID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, booking.ID, found.ID)

	missing, err := svc.FindByPaymentReference(ctx, "SSR-UNKNOWN")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

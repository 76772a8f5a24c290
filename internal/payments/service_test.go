package payments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/BilMam/soccer-spot-reserve-sub002/internal/availability"
	"github.com/BilMam/soccer-spot-reserve-sub002/internal/bookings"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/cinetpay"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/db"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/db/models"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/enums"
	pkgerrors "github.com/BilMam/soccer-spot-reserve-sub002/pkg/errors"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/logger"
)

const testDate = "2025-06-01"

type fakeVerifier struct {
	statuses map[string]cinetpay.Status
	err      error
	calls    int
}

func (f *fakeVerifier) CheckTransaction(_ context.Context, transactionID string) (cinetpay.Status, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	status, ok := f.statuses[transactionID]
	if !ok {
		return cinetpay.StatusPending, nil
	}
	return status, nil
}

type fakeScheduler struct {
	scheduled []uuid.UUID
	err       error
}

func (f *fakeScheduler) ScheduleOrRun(_ context.Context, booking *models.Booking) error {
	if f.err != nil {
		return f.err
	}
	f.scheduled = append(f.scheduled, booking.ID)
	return nil
}

type fixture struct {
	conn      *gorm.DB
	svc       *Service
	bookings  *bookings.Service
	verifier  *fakeVerifier
	scheduler *fakeScheduler
	fieldID   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := "file:payments_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&models.Field{}, &models.AvailabilitySlot{}, &models.Booking{}, &models.PaymentAnomaly{},
	))

	logg := logger.New(logger.Options{ServiceName: "test"})
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	resolver, err := availability.NewService(availability.ServiceParams{
		Logger:      logg,
		Repo:        availability.NewRepository(conn),
		Granularity: 30,
		Now:         func() time.Time { return now },
	})
	require.NoError(t, err)

	bookingSvc, err := bookings.NewService(bookings.ServiceParams{
		Logger:       logg,
		Repo:         bookings.NewRepository(conn),
		Availability: resolver,
		Tx:           db.NewWithConn(conn),
		FeePercent:   "5",
		Currency:     "XOF",
		Now:          func() time.Time { return now },
	})
	require.NoError(t, err)

	verifier := &fakeVerifier{statuses: map[string]cinetpay.Status{}}
	scheduler := &fakeScheduler{}

	svc, err := NewService(ServiceParams{
		Logger:   logg,
		Repo:     NewRepository(conn),
		Bookings: bookingSvc,
		Verifier: verifier,
		Payouts:  scheduler,
	})
	require.NoError(t, err)

	phone := "+2250700000002"
	field := models.Field{
		OwnerID: uuid.New(), Name: "Stade Yopougon",
		PricePerHour: 10000, PayoutPhone: &phone, Active: true,
	}
	require.NoError(t, conn.Create(&field).Error)

	return &fixture{
		conn: conn, svc: svc, bookings: bookingSvc,
		verifier: verifier, scheduler: scheduler, fieldID: field.ID,
	}
}

func (f *fixture) seedSlots(t *testing.T, windows ...[2]string) {
	t.Helper()
	for _, window := range windows {
		require.NoError(t, f.conn.Create(&models.AvailabilitySlot{
			FieldID: f.fieldID, Date: testDate,
			StartTime: window[0], EndTime: window[1],
			IsAvailable: true,
		}).Error)
	}
}

func (f *fixture) createBooking(t *testing.T, start, end string) *models.Booking {
	t.Helper()
	booking, err := f.bookings.Create(context.Background(), bookings.CreateRequest{
		FieldID: f.fieldID, UserID: uuid.New(),
		Date: testDate, StartTime: start, EndTime: end,
	})
	require.NoError(t, err)
	return booking
}

func (f *fixture) anomalyCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.conn.Model(&models.PaymentAnomaly{}).Count(&count).Error)
	return count
}

func webhookBody(transactionID string) []byte {
	return []byte(`{"cpm_trans_id":"` + transactionID + `","cpm_trans_status":"ACCEPTED"}`)
}

func TestHandleNotificationAcceptedConfirmsAndSchedulesPayout(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedSlots(t, [2]string{"14:00", "14:30"})
	booking := f.createBooking(t, "14:00", "14:30")
	f.verifier.statuses[*booking.PaymentIntentID] = cinetpay.StatusAccepted
	ctx := context.Background()

	result, err := f.svc.HandleNotification(ctx, "application/json", webhookBody(*booking.PaymentIntentID))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, result.Outcome)
	assert.True(t, result.PayoutQueued)
	require.NotNil(t, result.BookingID)
	assert.Equal(t, booking.ID, *result.BookingID)

	fresh, err := f.bookings.GetByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, fresh.PaymentStatus)
	assert.Equal(t, enums.BookingStatusConfirmed, fresh.Status)
	assert.Equal(t, []uuid.UUID{booking.ID}, f.scheduler.scheduled)
	assert.Equal(t, int64(0), f.anomalyCount(t))
}

func TestHandleNotificationDuplicateDeliveriesAreNoOps(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedSlots(t, [2]string{"14:00", "14:30"})
	booking := f.createBooking(t, "14:00", "14:30")
	f.verifier.statuses[*booking.PaymentIntentID] = cinetpay.StatusAccepted
	ctx := context.Background()
	body := webhookBody(*booking.PaymentIntentID)

	first, err := f.svc.HandleNotification(ctx, "application/json", body)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, first.Outcome)

	for i := 0; i < 3; i++ {
		repeat, err := f.svc.HandleNotification(ctx, "application/json", body)
		require.NoError(t, err)
		assert.Equal(t, OutcomeDuplicate, repeat.Outcome)
		assert.False(t, repeat.PayoutQueued)
	}

	// Exactly one payout trigger despite four deliveries.
	assert.Len(t, f.scheduler.scheduled, 1)

	fresh, err := f.bookings.GetByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, fresh.PaymentStatus)
}

func TestHandleNotificationReorderedRefusalAfterAccept(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedSlots(t, [2]string{"14:00", "14:30"})
	booking := f.createBooking(t, "14:00", "14:30")
	ctx := context.Background()

	f.verifier.statuses[*booking.PaymentIntentID] = cinetpay.StatusAccepted
	first, err := f.svc.HandleNotification(ctx, "application/json", webhookBody(*booking.PaymentIntentID))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, first.Outcome)

	// A stale refusal arriving late must not downgrade the settled booking.
	f.verifier.statuses[*booking.PaymentIntentID] = cinetpay.StatusRefused
	late, err := f.svc.HandleNotification(ctx, "application/json", webhookBody(*booking.PaymentIntentID))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, late.Outcome)

	fresh, err := f.bookings.GetByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, fresh.PaymentStatus)
	assert.Equal(t, enums.BookingStatusConfirmed, fresh.Status)
}

func TestHandleNotificationRefusedCancelsBooking(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedSlots(t, [2]string{"14:00", "14:30"})
	booking := f.createBooking(t, "14:00", "14:30")
	f.verifier.statuses[*booking.PaymentIntentID] = cinetpay.StatusRefused
	ctx := context.Background()

	result, err := f.svc.HandleNotification(ctx, "application/json", webhookBody(*booking.PaymentIntentID))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, result.Outcome)
	assert.False(t, result.PayoutQueued)

	fresh, err := f.bookings.GetByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusFailed, fresh.PaymentStatus)
	assert.Equal(t, enums.BookingStatusCancelled, fresh.Status)
	require.NotNil(t, fresh.CancelReason)
	assert.Empty(t, f.scheduler.scheduled)
}

func TestHandleNotificationUnmatchedTransactionIsAckedWithAnomaly(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.verifier.statuses["SSR-GHOST"] = cinetpay.StatusAccepted
	ctx := context.Background()

	result, err := f.svc.HandleNotification(ctx, "application/json", webhookBody("SSR-GHOST"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnmatched, result.Outcome)
	assert.Equal(t, int64(1), f.anomalyCount(t))

	var anomaly models.PaymentAnomaly
	require.NoError(t, f.conn.First(&anomaly).Error)
	require.NotNil(t, anomaly.TransactionID)
	assert.Equal(t, "SSR-GHOST", *anomaly.TransactionID)
	assert.Contains(t, anomaly.Payload, "SSR-GHOST")

	// No booking anywhere changed state.
	var count int64
	require.NoError(t, f.conn.Model(&models.Booking{}).
		Where("payment_status <> ?", enums.PaymentStatusPending).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestHandleNotificationVerificationFailureLeavesBookingUntouched(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedSlots(t, [2]string{"14:00", "14:30"})
	booking := f.createBooking(t, "14:00", "14:30")
	f.verifier.err = pkgerrors.New(pkgerrors.CodeVerification, "provider timeout")
	ctx := context.Background()

	result, err := f.svc.HandleNotification(ctx, "application/json", webhookBody(*booking.PaymentIntentID))
	require.NoError(t, err)
	assert.Equal(t, OutcomeVerificationFailed, result.Outcome)
	assert.Equal(t, int64(1), f.anomalyCount(t))

	fresh, err := f.bookings.GetByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPending, fresh.PaymentStatus)
	assert.Equal(t, enums.BookingStatusPending, fresh.Status)
}

func TestHandleNotificationStillPendingDoesNothing(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedSlots(t, [2]string{"14:00", "14:30"})
	booking := f.createBooking(t, "14:00", "14:30")
	// Verifier has no entry, so the check comes back pending.
	ctx := context.Background()

	result, err := f.svc.HandleNotification(ctx, "application/json", webhookBody(*booking.PaymentIntentID))
	require.NoError(t, err)
	assert.Equal(t, OutcomeStillPending, result.Outcome)
	assert.Equal(t, int64(0), f.anomalyCount(t))

	fresh, err := f.bookings.GetByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPending, fresh.PaymentStatus)
}

func TestHandleNotificationUnparseablePayloadIsRecorded(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	result, err := f.svc.HandleNotification(ctx, "application/json", []byte(`{"status":"ACCEPTED"}`))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnparseable, result.Outcome)
	assert.Equal(t, int64(1), f.anomalyCount(t))
	assert.Equal(t, 0, f.verifier.calls)
}

func TestHandleNotificationDoublePaymentLoserStaysPending(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedSlots(t, [2]string{"14:00", "14:30"}, [2]string{"14:30", "15:00"})
	winner := f.createBooking(t, "14:00", "15:00")
	ctx := context.Background()

	// A concurrent overlapping booking that also went to payment.
	loserIntent := "SSR-LOSER1"
	loser := models.Booking{
		FieldID: f.fieldID, UserID: uuid.New(),
		Date: testDate, StartTime: "14:30", EndTime: "15:00",
		AmountGross: 5000, AmountOwner: 4750, AmountFee: 250, Currency: "XOF",
		Status: enums.BookingStatusPending, PaymentStatus: enums.PaymentStatusPending,
		PaymentIntentID: &loserIntent,
	}
	require.NoError(t, f.conn.Create(&loser).Error)

	f.verifier.statuses[*winner.PaymentIntentID] = cinetpay.StatusAccepted
	f.verifier.statuses[loserIntent] = cinetpay.StatusAccepted

	first, err := f.svc.HandleNotification(ctx, "application/json", webhookBody(*winner.PaymentIntentID))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, first.Outcome)

	second, err := f.svc.HandleNotification(ctx, "application/json", webhookBody(loserIntent))
	require.NoError(t, err)
	assert.Equal(t, OutcomeLostRace, second.Outcome)
	assert.Equal(t, int64(1), f.anomalyCount(t))

	// The loser stays pending for manual refund; only the winner's payout
	// was ever scheduled.
	freshLoser, err := f.bookings.GetByID(ctx, loser.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.BookingStatusPending, freshLoser.Status)
	assert.Equal(t, enums.PaymentStatusPending, freshLoser.PaymentStatus)
	assert.Equal(t, []uuid.UUID{winner.ID}, f.scheduler.scheduled)
}

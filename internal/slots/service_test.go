package slots

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/db"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/db/models"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/enums"
	pkgerrors "github.com/BilMam/soccer-spot-reserve-sub002/pkg/errors"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/logger"
)

const testDate = "2025-04-05"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:slots_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.AvailabilitySlot{}, &models.Booking{}))
	return conn
}

func newService(t *testing.T, conn *gorm.DB, now time.Time) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Logger:      logger.New(logger.Options{ServiceName: "test"}),
		Repo:        NewRepository(conn),
		Tx:          db.NewWithConn(conn),
		Granularity: 30,
		HoldTTL:     10 * time.Minute,
		Now:         func() time.Time { return now },
	})
	require.NoError(t, err)
	return svc
}

func listWindows(t *testing.T, conn *gorm.DB, fieldID uuid.UUID) []models.AvailabilitySlot {
	t.Helper()
	var slots []models.AvailabilitySlot
	require.NoError(t, conn.
		Where("field_id = ?", fieldID).
		Order("date ASC, start_time ASC").
		Find(&slots).Error)
	return slots
}

func TestGenerateRangeIsIdempotent(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	now := time.Date(2025, 4, 5, 9, 0, 0, 0, time.UTC)
	svc := newService(t, conn, now)
	fieldID := uuid.New()
	ctx := context.Background()

	req := GenerateRequest{
		FieldID:   fieldID,
		StartDate: "2025-04-05",
		EndDate:   "2025-04-06",
		OpenTime:  "08:00",
		CloseTime: "10:00",
	}

	created, err := svc.GenerateRange(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, int64(8), created) // 2 dates x 4 half-hour windows

	created, err = svc.GenerateRange(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, int64(0), created)

	slots := listWindows(t, conn, fieldID)
	assert.Len(t, slots, 8)
}

func TestGenerateRangeExtendsExistingHorizon(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	now := time.Date(2025, 4, 5, 9, 0, 0, 0, time.UTC)
	svc := newService(t, conn, now)
	fieldID := uuid.New()
	ctx := context.Background()

	_, err := svc.GenerateRange(ctx, GenerateRequest{
		FieldID: fieldID, StartDate: "2025-04-05", EndDate: "2025-04-05",
		OpenTime: "08:00", CloseTime: "09:00",
	})
	require.NoError(t, err)

	created, err := svc.GenerateRange(ctx, GenerateRequest{
		FieldID: fieldID, StartDate: "2025-04-05", EndDate: "2025-04-05",
		OpenTime: "08:00", CloseTime: "10:00",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), created)
}

func TestGenerateRangeRejectsUnalignedHours(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newService(t, conn, time.Now())
	_, err := svc.GenerateRange(context.Background(), GenerateRequest{
		FieldID: uuid.New(), StartDate: "2025-04-05", EndDate: "2025-04-05",
		OpenTime: "08:10", CloseTime: "10:00",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSetUnavailableBlocksIntersectingSlots(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	now := time.Date(2025, 4, 5, 9, 0, 0, 0, time.UTC)
	svc := newService(t, conn, now)
	fieldID := uuid.New()
	ctx := context.Background()

	_, err := svc.GenerateRange(ctx, GenerateRequest{
		FieldID: fieldID, StartDate: testDate, EndDate: testDate,
		OpenTime: "14:00", CloseTime: "16:00",
	})
	require.NoError(t, err)

	updated, err := svc.SetUnavailable(ctx, BlockRequest{
		FieldID: fieldID, Date: testDate,
		StartTime: "14:30", EndTime: "15:30",
		Reason: "pitch resurfacing", IsMaintenance: true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	for _, slot := range listWindows(t, conn, fieldID) {
		if slot.StartTime == "14:30" || slot.StartTime == "15:00" {
			assert.False(t, slot.IsAvailable)
			require.NotNil(t, slot.UnavailabilityReason)
			assert.Equal(t, "pitch resurfacing", *slot.UnavailabilityReason)
			assert.True(t, slot.IsMaintenance)
		} else {
			assert.True(t, slot.IsAvailable, "slot %s should stay open", slot.StartTime)
		}
	}
}

func TestSetUnavailableRefusedWhenBookingOccupies(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	now := time.Date(2025, 4, 5, 9, 0, 0, 0, time.UTC)
	svc := newService(t, conn, now)
	fieldID := uuid.New()
	ctx := context.Background()

	_, err := svc.GenerateRange(ctx, GenerateRequest{
		FieldID: fieldID, StartDate: testDate, EndDate: testDate,
		OpenTime: "14:00", CloseTime: "16:00",
	})
	require.NoError(t, err)

	require.NoError(t, conn.Create(&models.Booking{
		FieldID: fieldID, UserID: uuid.New(),
		Date: testDate, StartTime: "15:00", EndTime: "15:30",
		AmountGross: 5000, AmountOwner: 4750, AmountFee: 250, Currency: "XOF",
		Status: enums.BookingStatusConfirmed, PaymentStatus: enums.PaymentStatusPaid,
	}).Error)

	_, err = svc.SetUnavailable(ctx, BlockRequest{
		FieldID: fieldID, Date: testDate,
		StartTime: "14:30", EndTime: "15:30",
		Reason: "private event",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	// Nothing was blocked.
	for _, slot := range listWindows(t, conn, fieldID) {
		assert.True(t, slot.IsAvailable)
	}
}

func TestSetAvailableClearsBlockAndPatternTag(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	now := time.Date(2025, 4, 5, 9, 0, 0, 0, time.UTC)
	svc := newService(t, conn, now)
	fieldID := uuid.New()
	patternID := uuid.New()
	reason := "weekly training"
	ctx := context.Background()

	require.NoError(t, conn.Create(&models.AvailabilitySlot{
		FieldID: fieldID, Date: testDate, StartTime: "14:00", EndTime: "14:30",
		IsAvailable: false, UnavailabilityReason: &reason, SourcePatternID: &patternID,
	}).Error)

	updated, err := svc.SetAvailable(ctx, fieldID, testDate, "14:00", "14:30")
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)

	slots := listWindows(t, conn, fieldID)
	require.Len(t, slots, 1)
	assert.True(t, slots[0].IsAvailable)
	assert.Nil(t, slots[0].UnavailabilityReason)
	assert.Nil(t, slots[0].SourcePatternID)
}

func TestPlaceHoldClaimsWholeRangeOrNothing(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	now := time.Date(2025, 4, 5, 9, 0, 0, 0, time.UTC)
	svc := newService(t, conn, now)
	fieldID := uuid.New()
	ctx := context.Background()

	_, err := svc.GenerateRange(ctx, GenerateRequest{
		FieldID: fieldID, StartDate: testDate, EndDate: testDate,
		OpenTime: "14:00", CloseTime: "16:00",
	})
	require.NoError(t, err)

	until, err := svc.PlaceHold(ctx, HoldRequest{
		FieldID: fieldID, Date: testDate,
		StartTime: "14:00", EndTime: "15:00", OwnerRef: "checkout-a",
	})
	require.NoError(t, err)
	assert.Equal(t, now.Add(10*time.Minute), until)

	// A competing hold over any part of the claimed range fails entirely.
	_, err = svc.PlaceHold(ctx, HoldRequest{
		FieldID: fieldID, Date: testDate,
		StartTime: "14:30", EndTime: "15:30", OwnerRef: "checkout-b",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	// The 15:00 slot outside checkout-a's range was not claimed by the
	// failed attempt.
	for _, slot := range listWindows(t, conn, fieldID) {
		if slot.StartTime >= "15:00" {
			assert.Nil(t, slot.HoldOwnerRef, "slot %s should be free", slot.StartTime)
		}
	}
}

func TestPlaceHoldReclaimsExpiredHold(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	now := time.Date(2025, 4, 5, 9, 0, 0, 0, time.UTC)
	svc := newService(t, conn, now)
	fieldID := uuid.New()
	ctx := context.Background()

	expired := now.Add(-time.Minute)
	staleRef := "checkout-stale"
	require.NoError(t, conn.Create(&models.AvailabilitySlot{
		FieldID: fieldID, Date: testDate, StartTime: "14:00", EndTime: "14:30",
		IsAvailable: true, HoldUntil: &expired, HoldOwnerRef: &staleRef,
	}).Error)

	_, err := svc.PlaceHold(ctx, HoldRequest{
		FieldID: fieldID, Date: testDate,
		StartTime: "14:00", EndTime: "14:30", OwnerRef: "checkout-fresh",
	})
	require.NoError(t, err)

	slots := listWindows(t, conn, fieldID)
	require.Len(t, slots, 1)
	require.NotNil(t, slots[0].HoldOwnerRef)
	assert.Equal(t, "checkout-fresh", *slots[0].HoldOwnerRef)
}

func TestPlaceHoldRefusedOverOccupyingBooking(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	now := time.Date(2025, 4, 5, 9, 0, 0, 0, time.UTC)
	svc := newService(t, conn, now)
	fieldID := uuid.New()
	ctx := context.Background()

	_, err := svc.GenerateRange(ctx, GenerateRequest{
		FieldID: fieldID, StartDate: testDate, EndDate: testDate,
		OpenTime: "14:00", CloseTime: "15:00",
	})
	require.NoError(t, err)

	require.NoError(t, conn.Create(&models.Booking{
		FieldID: fieldID, UserID: uuid.New(),
		Date: testDate, StartTime: "14:00", EndTime: "15:00",
		AmountGross: 10000, AmountOwner: 9500, AmountFee: 500, Currency: "XOF",
		Status: enums.BookingStatusPending, PaymentStatus: enums.PaymentStatusPending,
	}).Error)

	_, err = svc.PlaceHold(ctx, HoldRequest{
		FieldID: fieldID, Date: testDate,
		StartTime: "14:00", EndTime: "14:30", OwnerRef: "checkout-a",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestReleaseHoldOnlyClearsOwnHold(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	now := time.Date(2025, 4, 5, 9, 0, 0, 0, time.UTC)
	svc := newService(t, conn, now)
	fieldID := uuid.New()
	ctx := context.Background()

	_, err := svc.GenerateRange(ctx, GenerateRequest{
		FieldID: fieldID, StartDate: testDate, EndDate: testDate,
		OpenTime: "14:00", CloseTime: "15:00",
	})
	require.NoError(t, err)

	_, err = svc.PlaceHold(ctx, HoldRequest{
		FieldID: fieldID, Date: testDate,
		StartTime: "14:00", EndTime: "15:00", OwnerRef: "checkout-a",
	})
	require.NoError(t, err)

	// Wrong owner: nothing released.
	require.NoError(t, svc.ReleaseHold(ctx, fieldID, testDate, "14:00", "15:00", "checkout-b"))
	for _, slot := range listWindows(t, conn, fieldID) {
		require.NotNil(t, slot.HoldOwnerRef)
	}

	require.NoError(t, svc.ReleaseHold(ctx, fieldID, testDate, "14:00", "15:00", "checkout-a"))
	for _, slot := range listWindows(t, conn, fieldID) {
		assert.Nil(t, slot.HoldOwnerRef)
		assert.Nil(t, slot.HoldUntil)
	}
}

package slots

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/db/models"
	pkgerrors "github.com/BilMam/soccer-spot-reserve-sub002/pkg/errors"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/logger"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/timeslot"
)

// Repository is the slot persistence surface.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListSlots(ctx context.Context, fieldID uuid.UUID, fromDate, toDate string) ([]models.AvailabilitySlot, error)
	CreateIgnoreExisting(ctx context.Context, slots []models.AvailabilitySlot) (int64, error)
	CountOverlappingOccupying(ctx context.Context, fieldID uuid.UUID, date, startTime, endTime string) (int64, error)
	UpdateIntersecting(ctx context.Context, fieldID uuid.UUID, date, startTime, endTime string, updates map[string]any) (int64, error)
	PlaceHold(ctx context.Context, fieldID uuid.UUID, date, startTime, endTime, ownerRef string, until, now time.Time) (int64, error)
	ReleaseHold(ctx context.Context, fieldID uuid.UUID, date, startTime, endTime, ownerRef string) (int64, error)
}

// TxRunner executes fn inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams configure the slot store service.
type ServiceParams struct {
	Logger      *logger.Logger
	Repo        Repository
	Tx          TxRunner
	Granularity int
	HoldTTL     time.Duration
	Now         func() time.Time
}

// Service manages the slot inventory: bulk generation, manual blocking and
// unblocking, and short-lived checkout holds.
type Service struct {
	logg        *logger.Logger
	repo        Repository
	tx          TxRunner
	granularity int
	holdTTL     time.Duration
	now         func() time.Time
}

// NewService builds the slot store service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "slot repo required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "tx runner required")
	}
	granularity := params.Granularity
	if granularity <= 0 {
		granularity = 30
	}
	holdTTL := params.HoldTTL
	if holdTTL <= 0 {
		holdTTL = 10 * time.Minute
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		logg:        params.Logger,
		repo:        params.Repo,
		tx:          params.Tx,
		granularity: granularity,
		holdTTL:     holdTTL,
		now:         now,
	}, nil
}

// GetSlots lists the slot rows for a field between two dates inclusive.
func (s *Service) GetSlots(ctx context.Context, fieldID uuid.UUID, fromDate, toDate string) ([]models.AvailabilitySlot, error) {
	if _, err := timeslot.ParseDate(fromDate); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid from date")
	}
	if _, err := timeslot.ParseDate(toDate); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid to date")
	}
	slots, err := s.repo.ListSlots(ctx, fieldID, fromDate, toDate)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list slots")
	}
	return slots, nil
}

// GenerateRequest describes a bulk slot generation over a date horizon.
type GenerateRequest struct {
	FieldID   uuid.UUID
	StartDate string
	EndDate   string
	OpenTime  string
	CloseTime string
}

// GenerateRange creates granularity-sized slots for every date in the horizon.
// Windows that already exist are left untouched, so re-running the same
// request is a no-op. Returns the number of rows actually created.
func (s *Service) GenerateRange(ctx context.Context, req GenerateRequest) (int64, error) {
	dates, err := timeslot.DatesBetween(req.StartDate, req.EndDate)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid date horizon")
	}
	windows, err := timeslot.SplitWindows(req.OpenTime, req.CloseTime, s.granularity)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid opening hours")
	}

	rows := make([]models.AvailabilitySlot, 0, len(dates)*len(windows))
	for _, date := range dates {
		for _, window := range windows {
			rows = append(rows, models.AvailabilitySlot{
				FieldID:     req.FieldID,
				Date:        date,
				StartTime:   window.Start,
				EndTime:     window.End,
				IsAvailable: true,
			})
		}
	}

	created, err := s.repo.CreateIgnoreExisting(ctx, rows)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create slots")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"event":    "slots.generated",
		"field_id": req.FieldID,
		"dates":    len(dates),
		"created":  created,
	})
	s.logg.Info(logCtx, "slot horizon generated")
	return created, nil
}

// BlockRequest marks a window unavailable for manual or maintenance reasons.
type BlockRequest struct {
	FieldID       uuid.UUID
	Date          string
	StartTime     string
	EndTime       string
	Reason        string
	IsMaintenance bool
}

// SetUnavailable blocks every slot intersecting the range. The block is
// refused when an occupying booking overlaps the range; the check and the
// update run in one transaction.
func (s *Service) SetUnavailable(ctx context.Context, req BlockRequest) (int64, error) {
	if err := timeslot.ValidateRange(req.StartTime, req.EndTime, s.granularity); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid block range")
	}

	var updated int64
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		occupying, err := repo.CountOverlappingOccupying(ctx, req.FieldID, req.Date, req.StartTime, req.EndTime)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check bookings")
		}
		if occupying > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "range overlaps an occupying booking").
				WithDetails(map[string]any{
					"field_id": req.FieldID,
					"date":     req.Date,
					"window":   req.StartTime + "-" + req.EndTime,
				})
		}

		updates := map[string]any{
			"is_available":          false,
			"unavailability_reason": req.Reason,
			"is_maintenance":        req.IsMaintenance,
		}
		updated, err = repo.UpdateIntersecting(ctx, req.FieldID, req.Date, req.StartTime, req.EndTime, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "block slots")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"event":    "slots.blocked",
		"field_id": req.FieldID,
		"date":     req.Date,
		"window":   req.StartTime + "-" + req.EndTime,
		"updated":  updated,
	})
	s.logg.Info(logCtx, "slots marked unavailable")
	return updated, nil
}

// SetAvailable reopens every slot intersecting the range, clearing any block
// reason and pattern tag.
func (s *Service) SetAvailable(ctx context.Context, fieldID uuid.UUID, date, startTime, endTime string) (int64, error) {
	if err := timeslot.ValidateRange(startTime, endTime, s.granularity); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unblock range")
	}

	updates := map[string]any{
		"is_available":          true,
		"unavailability_reason": nil,
		"is_maintenance":        false,
		"source_pattern_id":     nil,
	}
	updated, err := s.repo.UpdateIntersecting(ctx, fieldID, date, startTime, endTime, updates)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unblock slots")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"event":    "slots.unblocked",
		"field_id": fieldID,
		"date":     date,
		"window":   startTime + "-" + endTime,
		"updated":  updated,
	})
	s.logg.Info(logCtx, "slots marked available")
	return updated, nil
}

// HoldRequest claims a range during checkout, ahead of payment confirmation.
type HoldRequest struct {
	FieldID   uuid.UUID
	Date      string
	StartTime string
	EndTime   string
	OwnerRef  string
}

// PlaceHold claims every slot in the range for OwnerRef until the hold TTL
// expires. The claim is a single guarded update: it only succeeds when every
// constituent slot is available and carries no live competing hold. A partial
// claim rolls back and reports a conflict.
func (s *Service) PlaceHold(ctx context.Context, req HoldRequest) (time.Time, error) {
	if req.OwnerRef == "" {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "hold owner reference required")
	}
	windows, err := timeslot.SplitWindows(req.StartTime, req.EndTime, s.granularity)
	if err != nil {
		return time.Time{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid hold range")
	}

	now := s.now().UTC()
	until := now.Add(s.holdTTL)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		occupying, err := repo.CountOverlappingOccupying(ctx, req.FieldID, req.Date, req.StartTime, req.EndTime)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check bookings")
		}
		if occupying > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "range overlaps an occupying booking")
		}

		claimed, err := repo.PlaceHold(ctx, req.FieldID, req.Date, req.StartTime, req.EndTime, req.OwnerRef, until, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "place hold")
		}
		if claimed != int64(len(windows)) {
			return pkgerrors.New(pkgerrors.CodeConflict, "range cannot be held").
				WithDetails(map[string]any{
					"field_id": req.FieldID,
					"date":     req.Date,
					"window":   req.StartTime + "-" + req.EndTime,
					"claimed":  claimed,
					"needed":   len(windows),
				})
		}
		return nil
	})
	if err != nil {
		return time.Time{}, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"event":     "slots.held",
		"field_id":  req.FieldID,
		"date":      req.Date,
		"window":    req.StartTime + "-" + req.EndTime,
		"owner_ref": req.OwnerRef,
	})
	s.logg.Info(logCtx, "hold placed")
	return until, nil
}

// ReleaseHold clears the hold owned by ownerRef on the range. Releasing a
// hold that no longer exists is a no-op.
func (s *Service) ReleaseHold(ctx context.Context, fieldID uuid.UUID, date, startTime, endTime, ownerRef string) error {
	if ownerRef == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "hold owner reference required")
	}
	released, err := s.repo.ReleaseHold(ctx, fieldID, date, startTime, endTime, ownerRef)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release hold")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"event":     "slots.hold_released",
		"field_id":  fieldID,
		"date":      date,
		"owner_ref": ownerRef,
		"released":  released,
	})
	s.logg.Info(logCtx, "hold released")
	return nil
}

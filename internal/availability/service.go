package availability

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/db/models"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/enums"
	pkgerrors "github.com/BilMam/soccer-spot-reserve-sub002/pkg/errors"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/logger"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/timeslot"
)

// Repository is the read surface the resolver consults. Reads go straight to
// the store; no caching layer sits between a slot mutation and the resolver.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindIntersectingSlots(ctx context.Context, fieldID uuid.UUID, date, startTime, endTime string) ([]models.AvailabilitySlot, error)
	FindOverlappingOccupying(ctx context.Context, fieldID uuid.UUID, date, startTime, endTime string) ([]models.Booking, error)
}

// ServiceParams configure the availability resolver.
type ServiceParams struct {
	Logger      *logger.Logger
	Repo        Repository
	Granularity int
	Now         func() time.Time
}

// Service resolves requested time ranges against slots, holds and occupying
// bookings.
type Service struct {
	logg        *logger.Logger
	repo        Repository
	granularity int
	now         func() time.Time
}

// NewService builds the availability resolver.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "availability repo required")
	}
	granularity := params.Granularity
	if granularity <= 0 {
		granularity = 30
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		logg:        params.Logger,
		repo:        params.Repo,
		granularity: granularity,
		now:         now,
	}, nil
}

// WithTx returns a resolver reading through the given transaction, so booking
// admission can be checked inside the same transaction that inserts.
func (s *Service) WithTx(tx *gorm.DB) *Service {
	clone := *s
	clone.repo = s.repo.WithTx(tx)
	return &clone
}

// ResolveStatus classifies the requested range in strict priority order:
// not_created, on_hold, booked, unavailable, available. First match wins.
func (s *Service) ResolveStatus(ctx context.Context, fieldID uuid.UUID, date, startTime, endTime string) (enums.SlotResolution, error) {
	if startTime >= endTime {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "end time must be after start time")
	}

	slots, err := s.repo.FindIntersectingSlots(ctx, fieldID, date, startTime, endTime)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load slots")
	}
	if len(slots) == 0 {
		return enums.SlotResolutionNotCreated, nil
	}

	now := s.now().UTC()
	for _, slot := range slots {
		if slot.HeldAt(now) {
			return enums.SlotResolutionOnHold, nil
		}
	}

	bookings, err := s.repo.FindOverlappingOccupying(ctx, fieldID, date, startTime, endTime)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bookings")
	}
	if len(bookings) > 0 {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"event":    "availability.conflict",
			"field_id": fieldID,
			"date":     date,
			"window":   startTime + "-" + endTime,
		})
		s.logg.Info(logCtx, "range conflicts with occupying booking")
		return enums.SlotResolutionBooked, nil
	}

	for _, slot := range slots {
		if !slot.IsAvailable {
			return enums.SlotResolutionUnavailable, nil
		}
	}
	if !coversRange(slots, startTime, endTime) {
		return enums.SlotResolutionNotCreated, nil
	}
	return enums.SlotResolutionAvailable, nil
}

// coversRange reports whether the slots, sorted by start time, tile the whole
// of [startTime, endTime) with no gap. A range that only intersects slots at
// its head is not published end to end and must not read as available.
func coversRange(slots []models.AvailabilitySlot, startTime, endTime string) bool {
	cursor := startTime
	for _, slot := range slots {
		if slot.StartTime > cursor {
			return false
		}
		if slot.EndTime > cursor {
			cursor = slot.EndTime
		}
	}
	return cursor >= endTime
}

// IsRangeBooked reports whether any occupying booking overlaps the range.
func (s *Service) IsRangeBooked(ctx context.Context, fieldID uuid.UUID, date, startTime, endTime string) (bool, error) {
	bookings, err := s.repo.FindOverlappingOccupying(ctx, fieldID, date, startTime, endTime)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bookings")
	}
	return len(bookings) > 0, nil
}

// AdmissionResult reports whether a composite range may be booked and, when it
// may not, the first sub-window that failed and why.
type AdmissionResult struct {
	Admissible    bool                 `json:"admissible"`
	FailedWindow  *timeslot.Window     `json:"failed_window,omitempty"`
	FailedStatus  enums.SlotResolution `json:"failed_status,omitempty"`
	WindowsNeeded int                  `json:"windows_needed"`
}

// CheckAdmissible decides composite admission: every constituent sub-window
// must independently resolve to available. Evaluation stops at the first
// failing sub-window.
func (s *Service) CheckAdmissible(ctx context.Context, fieldID uuid.UUID, date, startTime, endTime string) (AdmissionResult, error) {
	windows, err := timeslot.SplitWindows(startTime, endTime, s.granularity)
	if err != nil {
		return AdmissionResult{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid booking range")
	}

	for _, window := range windows {
		status, err := s.ResolveStatus(ctx, fieldID, date, window.Start, window.End)
		if err != nil {
			return AdmissionResult{}, err
		}
		if !status.IsBookable() {
			failed := window
			return AdmissionResult{
				Admissible:    false,
				FailedWindow:  &failed,
				FailedStatus:  status,
				WindowsNeeded: len(windows),
			}, nil
		}
	}
	return AdmissionResult{Admissible: true, WindowsNeeded: len(windows)}, nil
}

package patterns

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/db/models"
	pkgerrors "github.com/BilMam/soccer-spot-reserve-sub002/pkg/errors"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/logger"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/timeslot"
)

// Repository is the pattern persistence surface.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, pattern *models.RecurringPattern) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.RecurringPattern, error)
	ListByField(ctx context.Context, fieldID uuid.UUID, activeOnly bool) ([]models.RecurringPattern, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (int64, error)
	ClearDerived(ctx context.Context, patternID uuid.UUID, fromDate, toDate string) (int64, error)
	ClearDerivedAll(ctx context.Context, patternID uuid.UUID) (int64, error)
	MarkDerived(ctx context.Context, patternID, fieldID uuid.UUID, date, startTime, endTime, label string) (int64, error)
}

// TxRunner executes fn inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams configure the pattern resolver.
type ServiceParams struct {
	Logger      *logger.Logger
	Repo        Repository
	Tx          TxRunner
	Granularity int
}

// Service manages recurring blackout patterns and their projection onto the
// slot inventory. The pattern definition is authoritative; derived slot marks
// are a cache that every projection rebuilds.
type Service struct {
	logg        *logger.Logger
	repo        Repository
	tx          TxRunner
	granularity int
}

// NewService builds the pattern resolver.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "pattern repo required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "tx runner required")
	}
	granularity := params.Granularity
	if granularity <= 0 {
		granularity = 30
	}
	return &Service{
		logg:        params.Logger,
		repo:        params.Repo,
		tx:          params.Tx,
		granularity: granularity,
	}, nil
}

// CreateRequest defines a new weekly blackout window.
type CreateRequest struct {
	FieldID   uuid.UUID
	DayOfWeek int
	StartTime string
	EndTime   string
	StartDate string
	EndDate   *string
	Label     string
}

// Create validates and stores a recurring pattern. The pattern takes effect on
// the slot inventory only once projected.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.RecurringPattern, error) {
	if req.DayOfWeek < 0 || req.DayOfWeek > 6 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "day of week must be 0 through 6")
	}
	if req.Label == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pattern label required")
	}
	if err := timeslot.ValidateRange(req.StartTime, req.EndTime, s.granularity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid pattern window")
	}
	if _, err := timeslot.ParseDate(req.StartDate); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid start date")
	}
	if req.EndDate != nil {
		if _, err := timeslot.ParseDate(*req.EndDate); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid end date")
		}
		if *req.EndDate < req.StartDate {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "end date before start date")
		}
	}

	pattern := &models.RecurringPattern{
		FieldID:   req.FieldID,
		DayOfWeek: req.DayOfWeek,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Active:    true,
		Label:     req.Label,
	}
	if err := s.repo.Create(ctx, pattern); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create pattern")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"event":      "patterns.created",
		"pattern_id": pattern.ID,
		"field_id":   pattern.FieldID,
		"weekday":    pattern.DayOfWeek,
	})
	s.logg.Info(logCtx, "recurring pattern created")
	return pattern, nil
}

// ListByField returns the field's patterns, optionally only active ones.
func (s *Service) ListByField(ctx context.Context, fieldID uuid.UUID, activeOnly bool) ([]models.RecurringPattern, error) {
	patterns, err := s.repo.ListByField(ctx, fieldID, activeOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list patterns")
	}
	return patterns, nil
}

// ProjectionResult summarizes one projection run.
type ProjectionResult struct {
	DatesMatched int   `json:"dates_matched"`
	SlotsBlocked int64 `json:"slots_blocked"`
	SlotsCleared int64 `json:"slots_cleared"`
}

// Project materializes the pattern onto the slot inventory over [fromDate,
// toDate]. The run first clears every mark the pattern previously derived in
// the horizon, then re-blocks the slots the definition currently matches, so
// projecting twice leaves the same state as projecting once and edits to the
// pattern propagate on the next run.
func (s *Service) Project(ctx context.Context, patternID uuid.UUID, fromDate, toDate string) (ProjectionResult, error) {
	dates, err := timeslot.DatesBetween(fromDate, toDate)
	if err != nil {
		return ProjectionResult{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid projection horizon")
	}

	var result ProjectionResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		pattern, err := repo.FindByID(ctx, patternID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pattern")
		}
		if pattern == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "pattern not found")
		}

		cleared, err := repo.ClearDerived(ctx, patternID, fromDate, toDate)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear derived marks")
		}
		result.SlotsCleared = cleared

		if !pattern.Active {
			return nil
		}

		for _, date := range dates {
			weekday, err := timeslot.Weekday(date)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid horizon date")
			}
			if !pattern.AppliesTo(date, weekday) {
				continue
			}
			blocked, err := repo.MarkDerived(ctx, patternID, pattern.FieldID, date, pattern.StartTime, pattern.EndTime, pattern.Label)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark derived slots")
			}
			result.DatesMatched++
			result.SlotsBlocked += blocked
		}
		return nil
	})
	if err != nil {
		return ProjectionResult{}, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"event":         "patterns.projected",
		"pattern_id":    patternID,
		"horizon":       fromDate + ".." + toDate,
		"dates_matched": result.DatesMatched,
		"slots_blocked": result.SlotsBlocked,
		"slots_cleared": result.SlotsCleared,
	})
	s.logg.Info(logCtx, "pattern projected")
	return result, nil
}

// Deactivate turns the pattern off and reopens every slot it derived.
func (s *Service) Deactivate(ctx context.Context, patternID uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		updated, err := repo.SetActive(ctx, patternID, false)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate pattern")
		}
		if updated == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "pattern not found")
		}
		if _, err := repo.ClearDerivedAll(ctx, patternID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear derived marks")
		}
		return nil
	})
	if err != nil {
		return err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"event":      "patterns.deactivated",
		"pattern_id": patternID,
	})
	s.logg.Info(logCtx, "pattern deactivated and derived marks cleared")
	return nil
}

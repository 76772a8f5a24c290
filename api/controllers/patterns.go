package controllers

import (
	"net/http"
	"strings"

	"github.com/BilMam/soccer-spot-reserve-sub002/api/responses"
	"github.com/BilMam/soccer-spot-reserve-sub002/api/validators"
	"github.com/BilMam/soccer-spot-reserve-sub002/internal/patterns"
	pkgerrors "github.com/BilMam/soccer-spot-reserve-sub002/pkg/errors"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/logger"
)

type createPatternRequest struct {
	DayOfWeek int     `json:"day_of_week" validate:"min=0,max=6"`
	StartTime string  `json:"start_time" validate:"required,datetime=15:04"`
	EndTime   string  `json:"end_time" validate:"required,datetime=15:04"`
	StartDate string  `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   *string `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Label     string  `json:"label" validate:"required,min=1"`
}

// CreatePattern stores a weekly recurring unavailability rule for a field.
func CreatePattern(svc *patterns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pattern service unavailable"))
			return
		}

		fieldID, err := validators.URLParamUUID(r, "fieldId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createPatternRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pattern, err := svc.Create(r.Context(), patterns.CreateRequest{
			FieldID:   fieldID,
			DayOfWeek: payload.DayOfWeek,
			StartTime: payload.StartTime,
			EndTime:   payload.EndTime,
			StartDate: payload.StartDate,
			EndDate:   payload.EndDate,
			Label:     payload.Label,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, pattern)
	}
}

// ListPatterns returns a field's recurring patterns.
func ListPatterns(svc *patterns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pattern service unavailable"))
			return
		}

		fieldID, err := validators.URLParamUUID(r, "fieldId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		activeOnly := strings.EqualFold(r.URL.Query().Get("active"), "true")
		rows, err := svc.ListByField(r.Context(), fieldID, activeOnly)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, rows)
	}
}

type projectPatternRequest struct {
	FromDate string `json:"from_date" validate:"required,datetime=2006-01-02"`
	ToDate   string `json:"to_date" validate:"required,datetime=2006-01-02"`
}

// ProjectPattern re-applies a pattern onto the slot inventory over a horizon.
func ProjectPattern(svc *patterns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pattern service unavailable"))
			return
		}

		patternID, err := validators.URLParamUUID(r, "patternId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload projectPatternRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Project(r.Context(), patternID, payload.FromDate, payload.ToDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// DeactivatePattern retires a pattern and lifts its derived blocks.
func DeactivatePattern(svc *patterns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pattern service unavailable"))
			return
		}

		patternID, err := validators.URLParamUUID(r, "patternId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Deactivate(r.Context(), patternID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deactivated"})
	}
}

package controllers

import (
	"net/http"

	"github.com/BilMam/soccer-spot-reserve-sub002/api/responses"
	"github.com/BilMam/soccer-spot-reserve-sub002/api/validators"
	"github.com/BilMam/soccer-spot-reserve-sub002/internal/availability"
	pkgerrors "github.com/BilMam/soccer-spot-reserve-sub002/pkg/errors"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/logger"
)

// ResolveAvailability classifies a single requested window for a field.
func ResolveAvailability(svc *availability.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "availability service unavailable"))
			return
		}

		fieldID, err := validators.URLParamUUID(r, "fieldId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		date, err := validators.ParseQueryDate(r, "date")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		start := r.URL.Query().Get("start_time")
		end := r.URL.Query().Get("end_time")

		status, err := svc.ResolveStatus(r.Context(), fieldID, date, start, end)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"field_id":   fieldID,
			"date":       date,
			"start_time": start,
			"end_time":   end,
			"status":     status,
		})
	}
}

// CheckAdmissible reports whether a composite range can be booked right now.
func CheckAdmissible(svc *availability.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "availability service unavailable"))
			return
		}

		fieldID, err := validators.URLParamUUID(r, "fieldId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		date, err := validators.ParseQueryDate(r, "date")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CheckAdmissible(r.Context(), fieldID, date, r.URL.Query().Get("start_time"), r.URL.Query().Get("end_time"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

package controllers

import (
	"net/http"

	"github.com/BilMam/soccer-spot-reserve-sub002/api/responses"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/config"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/db"
	pkgerrors "github.com/BilMam/soccer-spot-reserve-sub002/pkg/errors"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/logger"
)

const envHeader = "X-SpotReserve-Env"

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP db.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		if dbP != nil {
			if err := dbP.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unreachable"))
				return
			}
		}
		if redisP != nil {
			if err := redisP.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unreachable"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}

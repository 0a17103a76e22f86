package controllers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/multierr"

	"github.com/urbankart/storefront-backend/api/responses"
	"github.com/urbankart/storefront-backend/pkg/db"
	pkgerrors "github.com/urbankart/storefront-backend/pkg/errors"
	"github.com/urbankart/storefront-backend/pkg/logger"
	pkgredis "github.com/urbankart/storefront-backend/pkg/redis"
)

const readinessTimeout = 2 * time.Second

func HealthLive() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when both backing stores answer a ping.
func HealthReady(database db.Pinger, cache pkgredis.Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		var unready error
		if database != nil {
			if err := database.Ping(ctx); err != nil {
				unready = multierr.Append(unready, fmt.Errorf("database: %w", err))
			}
		}
		if cache != nil {
			if err := cache.Ping(ctx); err != nil {
				unready = multierr.Append(unready, fmt.Errorf("redis: %w", err))
			}
		}
		if unready != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, unready, "backing stores unreachable"))
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}

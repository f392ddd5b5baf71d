// Copyright (c) 2026 Changas. All rights reserved.
// Author: dev@changas.app

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redislib "github.com/redis/go-redis/v9"

	"github.com/changas-app/changas/internal/platform/constants"
	"github.com/changas-app/changas/internal/platform/postgres"
	"github.com/changas-app/changas/internal/platform/redis"
	"github.com/changas-app/changas/internal/platform/respond"
)

// healthHandler serves the infrastructure probe endpoints.
type healthHandler struct {
	pool  *pgxpool.Pool
	redis *redislib.Client
}

/*
liveness reports that the process is up.

GET /healthz

Description: Always returns 200 while the process can serve HTTP. Used by
orchestrators to decide whether to restart the container.
*/
func (handler *healthHandler) liveness(writer http.ResponseWriter, _ *http.Request) {
	respond.JSON(writer, http.StatusOK, map[string]string{
		constants.FieldStatus:  "ok",
		constants.FieldApp:     constants.AppName,
		constants.FieldVersion: constants.AppVersion,
	})
}

/*
readiness reports whether the process can serve real traffic.

GET /readyz

Description: Pings Postgres and Redis with a short deadline. Returns 503 if
either dependency is unreachable, so load balancers stop routing here.
*/
func (handler *healthHandler) readiness(writer http.ResponseWriter, request *http.Request) {
	ctx, cancel := context.WithTimeout(request.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := postgres.Ping(ctx, handler.pool); err != nil {
		checks["postgres"] = err.Error()
		healthy = false
	} else {
		checks["postgres"] = "ok"
	}

	if err := redis.Ping(ctx, handler.redis); err != nil {
		checks["redis"] = err.Error()
		healthy = false
	} else {
		checks["redis"] = "ok"
	}

	status := http.StatusOK
	overall := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}

	respond.JSON(writer, status, map[string]any{
		constants.FieldStatus: overall,
		constants.FieldChecks: checks,
	})
}

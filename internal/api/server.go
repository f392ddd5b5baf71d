// Copyright (c) 2026 Changas. All rights reserved.
// Author: dev@changas.app

/*
Package api assembles the HTTP surface of the Changas marketplace API.

It owns the router composition: the cross-cutting middleware chain, the
versioned route groups, and the health endpoints. Domain packages contribute
sub-routers; this package decides where they are mounted.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/changas-app/changas/internal/platform/config"
	"github.com/changas-app/changas/internal/platform/constants"
	"github.com/changas-app/changas/internal/platform/middleware"
	"github.com/changas-app/changas/internal/users/account"
	"github.com/changas-app/changas/internal/users/auth"
)

// Dependencies bundles everything the router needs, injected from main.
type Dependencies struct {
	Config         *config.Config
	Logger         *slog.Logger
	Pool           *pgxpool.Pool
	Redis          *redis.Client
	TokenVerifier  middleware.TokenVerifier
	AuthHandler    *auth.Handler
	AccountHandler *account.Handler
}

// NewRouter builds the complete API router.
//
// # Middleware Order
//
// The order is deliberate: tracing first so every later log line carries the
// request ID, then logging, then the guards. Authenticate runs globally so
// any handler can inspect claims; RequireAuth is applied per route group.
func NewRouter(ctx context.Context, deps Dependencies) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID())
	router.Use(middleware.StructuredLogger(deps.Logger))
	router.Use(middleware.PanicRecovery(deps.Logger))
	router.Use(middleware.CORS(deps.Config))
	router.Use(middleware.RateLimit(ctx))
	router.Use(chimiddleware.Timeout(constants.GlobalRequestTimeout))
	router.Use(middleware.Authenticate(deps.TokenVerifier))

	// Health endpoints live outside the versioned prefix so infrastructure
	// probes don't depend on API versioning.
	health := &healthHandler{pool: deps.Pool, redis: deps.Redis}
	router.Get("/healthz", health.liveness)
	router.Get("/readyz", health.readiness)

	router.Route("/api/v1", func(v1 chi.Router) {
		v1.Mount("/auth", deps.AuthHandler.Routes())

		v1.Route("/users", func(users chi.Router) {
			users.Post("/register", deps.AuthHandler.Register)
			users.Mount("/", deps.AccountHandler.Routes())
		})
	})

	return router
}

// Package api is the serverless entry point. The platform invokes Handler
// per request; the application is assembled once and reused across
// invocations of the same instance.
package api

import (
	"context"
	"net/http"
	"sync"

	"collectrium-auth/app"
	"collectrium-auth/internal/config"
	"collectrium-auth/internal/web"
)

var (
	initOnce   sync.Once
	apiRuntime *app.Runtime
	initErr    error
)

func Handler(w http.ResponseWriter, r *http.Request) {
	initOnce.Do(func() {
		apiRuntime, initErr = app.Build(context.Background(), app.Options{
			LoadDotEnv:    false,
			RunMigrations: config.BoolFromEnv("RUN_MIGRATIONS_ON_STARTUP", false),
		})
	})

	if initErr != nil {
		web.Error(w, http.StatusInternalServerError, "application bootstrap failed")
		return
	}

	apiRuntime.Handler.ServeHTTP(w, r)
}

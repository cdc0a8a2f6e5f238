// internal/app/bootstrap/routes.go
package bootstrap

import (
	"errors"
	"net/http"

	auditlogfeature "github.com/dalemusser/sevadesk/internal/app/features/auditlog"
	containersfeature "github.com/dalemusser/sevadesk/internal/app/features/containers"
	cooldownsfeature "github.com/dalemusser/sevadesk/internal/app/features/cooldowns"
	healthfeature "github.com/dalemusser/sevadesk/internal/app/features/health"
	ledgerfeature "github.com/dalemusser/sevadesk/internal/app/features/ledger"
	sessionfeature "github.com/dalemusser/sevadesk/internal/app/features/session"
	"github.com/dalemusser/sevadesk/internal/app/system/apierr"
	"github.com/dalemusser/sevadesk/internal/app/system/auth"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed. The JSON API lives under /api behind the
// session middleware; /health and /metrics are unauthenticated.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	if svc == nil {
		return nil, errors.New("bootstrap: Startup has not run")
	}

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	r := chi.NewRouter()

	r.Mount("/health", healthfeature.Routes(healthfeature.NewHandler(deps.MongoClient, svc.engine.Clock, logger)))
	if appCfg.MetricsEnabled {
		r.Handle("/metrics", svc.metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		// Loads SessionUser into context if signed in; each feature decides
		// whether that is required.
		api.Use(sessionMgr.LoadSessionUser)
		if svc.writes != nil {
			api.Use(svc.writes.Writes(logger))
		}

		api.Mount("/session", sessionfeature.Routes(sessionfeature.NewHandler(sessionMgr, logger)))
		api.Mount("/containers", containersfeature.Routes(containersfeature.NewHandler(svc.engine, logger), sessionMgr))
		api.Mount("/cooldowns", cooldownsfeature.Routes(cooldownsfeature.NewHandler(svc.engine, logger), sessionMgr))
		api.Mount("/audit", auditlogfeature.Routes(auditlogfeature.NewHandler(deps.MongoDatabase, logger), sessionMgr))
		// Ledger routes span /customers/{id}/commits and /history.
		api.Mount("/", ledgerfeature.Routes(ledgerfeature.NewHandler(svc.engine, logger), sessionMgr))

		api.NotFound(func(w http.ResponseWriter, r *http.Request) {
			apierr.Write(w, logger, apierr.NotFound("NOT_FOUND", "no such endpoint"))
		})
	})

	return r, nil
}

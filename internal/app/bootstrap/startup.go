// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/sevadesk/internal/app/calendar"
	"github.com/dalemusser/sevadesk/internal/app/store/audit"
	"github.com/dalemusser/sevadesk/internal/app/system/auditlog"
	"github.com/dalemusser/sevadesk/internal/app/system/metrics"
	"github.com/dalemusser/sevadesk/internal/app/system/ratelimit"
	"github.com/dalemusser/sevadesk/internal/app/system/timeouts"
	"github.com/dalemusser/sevadesk/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// services is built once in Startup and shared by BuildHandler and
// Shutdown, which only receive the config and DB deps.
type services struct {
	engine  *calendar.Engine
	audit   *auditlog.Logger
	metrics *metrics.Prometheus
	reaper  *workers.LeaseReaper
	writes  *ratelimit.Limiter // nil when api_write_limit is 0
}

var svc *services

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It wires
// the calendar engine and starts the confirm lease reaper.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Ping:   appCfg.TimeoutPing,
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Long:   appCfg.TimeoutLong,
	})

	loc, err := time.LoadLocation(appCfg.CalendarTimezone)
	if err != nil {
		return fmt.Errorf("calendar timezone: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := metrics.NewPrometheus(reg, "sevadesk")

	auditLog := auditlog.New(audit.New(deps.MongoDatabase), logger, auditlog.Config{
		Calendar: appCfg.AuditLogCalendar,
		Admin:    appCfg.AuditLogAdmin,
	})

	engine, err := calendar.New(deps.MongoDatabase, calendar.Config{
		DefaultLimit:    appCfg.ContainerDefaultLimit,
		LeaseTTL:        appCfg.ConfirmLeaseTTL,
		CooldownMinutes: appCfg.CooldownMinutes,
		CooldownTTL:     appCfg.CooldownCacheTTL,
		EligibilityRule: appCfg.EligibilityRule,
		Location:        loc,
	}, auditLog, prom, logger)
	if err != nil {
		logger.Error("calendar engine init failed", zap.Error(err))
		return err
	}

	reaper := workers.NewLeaseReaper(engine.Assignments, auditLog, prom, logger, appCfg.LeaseReaperInterval)
	reaper.Start()

	svc = &services{engine: engine, audit: auditLog, metrics: prom, reaper: reaper}
	if appCfg.APIWriteLimit > 0 {
		svc.writes = ratelimit.New(appCfg.APIWriteLimit, time.Minute)
	}

	logger.Info("calendar ready",
		zap.String("timezone", loc.String()),
		zap.String("today", engine.Clock.Today()),
		zap.Int("default_limit", appCfg.ContainerDefaultLimit),
		zap.Int("cooldown_minutes", appCfg.CooldownMinutes),
		zap.Duration("lease_ttl", appCfg.ConfirmLeaseTTL))
	return nil
}

// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/sevadesk/internal/app/calendar"
	"github.com/dalemusser/sevadesk/internal/app/policy/eligibilitypolicy"
	"github.com/dalemusser/sevadesk/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for SevaDesk.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: SEVADESK_MONGO_URI, SEVADESK_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "sevadesk", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "sevadesk-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "12h", Desc: "Session cookie lifetime (e.g., 12h, 30m)"},

	// Calendar
	{Name: "calendar_timezone", Default: "Asia/Kolkata", Desc: "IANA time zone that defines today's date"},
	{Name: "container_default_limit", Default: models.DefaultContainerLimit, Desc: "Capacity of containers created on demand"},
	{Name: "cooldown_default_minutes", Default: 5, Desc: "Move cooldown in minutes for users without an override (0 disables)"},
	{Name: "cooldown_cache_ttl", Default: "30s", Desc: "How long cooldown overrides stay cached (0 disables caching)"},
	{Name: "confirm_lease_ttl", Default: "2m", Desc: "How long a confirm may hold a group in PROCESSING"},
	{Name: "lease_reaper_interval", Default: "30s", Desc: "How often expired confirm leases are released"},
	{Name: "diksha_eligibility_rule", Default: eligibilitypolicy.DefaultRule, Desc: "expr predicate deciding DIKSHA eligibility"},

	// Audit logging settings
	{Name: "audit_log_calendar", Default: "all", Desc: "Calendar event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	{Name: "metrics_enabled", Default: true, Desc: "Serve Prometheus metrics on /metrics"},
	{Name: "api_write_limit", Default: 120, Desc: "Mutating API requests per user per minute (0 disables)"},

	// Handler timeouts
	{Name: "timeout_ping", Default: "2s", Desc: "Deadline for health pings"},
	{Name: "timeout_short", Default: "5s", Desc: "Deadline for single-document reads"},
	{Name: "timeout_medium", Default: "10s", Desc: "Deadline for lists and simple writes"},
	{Name: "timeout_long", Default: "30s", Desc: "Deadline for calendar transitions"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, SEVADESK_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "SEVADESK", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),
		SessionMaxAge:    appValues.Duration("session_max_age", 12*time.Hour),

		// Calendar
		CalendarTimezone:      appValues.String("calendar_timezone"),
		ContainerDefaultLimit: appValues.Int("container_default_limit"),
		CooldownMinutes:       appValues.Int("cooldown_default_minutes"),
		CooldownCacheTTL:      appValues.Duration("cooldown_cache_ttl", calendar.DefaultCooldownTTL),
		ConfirmLeaseTTL:       appValues.Duration("confirm_lease_ttl", calendar.DefaultLeaseTTL),
		LeaseReaperInterval:   appValues.Duration("lease_reaper_interval", 30*time.Second),
		EligibilityRule:       appValues.String("diksha_eligibility_rule"),

		// Audit logging
		AuditLogCalendar: appValues.String("audit_log_calendar"),
		AuditLogAdmin:    appValues.String("audit_log_admin"),

		MetricsEnabled: appValues.Bool("metrics_enabled"),
		APIWriteLimit:  appValues.Int("api_write_limit"),

		// Timeouts
		TimeoutPing:   appValues.Duration("timeout_ping", 0),
		TimeoutShort:  appValues.Duration("timeout_short", 0),
		TimeoutMedium: appValues.Duration("timeout_medium", 0),
		TimeoutLong:   appValues.Duration("timeout_long", 0),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// The URI, the time zone and the eligibility rule are all checked here so a
// typo fails at boot rather than on the first request.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if _, err := time.LoadLocation(appCfg.CalendarTimezone); err != nil {
		return fmt.Errorf("invalid calendar_timezone %q: %w", appCfg.CalendarTimezone, err)
	}
	if _, err := eligibilitypolicy.New(appCfg.EligibilityRule); err != nil {
		return fmt.Errorf("invalid diksha_eligibility_rule: %w", err)
	}
	if appCfg.ContainerDefaultLimit <= 0 || appCfg.ContainerDefaultLimit > calendar.MaxContainerLimit {
		return fmt.Errorf("container_default_limit must be between 1 and %d", calendar.MaxContainerLimit)
	}
	if !models.ValidCooldownMinutes(appCfg.CooldownMinutes) {
		return fmt.Errorf("cooldown_default_minutes must be one of %v", models.CooldownOptions)
	}
	if appCfg.CooldownCacheTTL < 0 {
		return fmt.Errorf("cooldown_cache_ttl must not be negative")
	}
	if appCfg.ConfirmLeaseTTL <= 0 || appCfg.LeaseReaperInterval <= 0 || appCfg.SessionMaxAge <= 0 {
		return fmt.Errorf("confirm_lease_ttl, lease_reaper_interval and session_max_age must be positive")
	}
	if appCfg.APIWriteLimit < 0 {
		return fmt.Errorf("api_write_limit must not be negative")
	}
	for _, mode := range []string{appCfg.AuditLogCalendar, appCfg.AuditLogAdmin} {
		switch mode {
		case "all", "db", "log", "off":
		default:
			return fmt.Errorf("audit log mode %q must be all, db, log or off", mode)
		}
	}
	return nil
}

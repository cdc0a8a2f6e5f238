// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers the
// framework side (ports, TLS, logging, CORS, body limits); everything the
// calendar itself needs lives here and is passed to every lifecycle hook.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: sevadesk-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime

	// Calendar
	CalendarTimezone      string // IANA zone that defines "today" for date keys
	ContainerDefaultLimit int    // Limit applied to containers created on demand
	CooldownMinutes       int    // Move cooldown for users without an override
	CooldownCacheTTL      time.Duration
	ConfirmLeaseTTL       time.Duration // How long a confirm may hold a group in PROCESSING
	LeaseReaperInterval   time.Duration
	EligibilityRule       string // expr predicate deciding DIKSHA eligibility

	// Audit logging: "all", "db", "log" or "off"
	AuditLogCalendar string
	AuditLogAdmin    string

	MetricsEnabled bool

	// Mutating API requests allowed per user per minute; 0 disables.
	APIWriteLimit int

	// Handler I/O deadlines; zero keeps the built-in tier.
	TimeoutPing   time.Duration
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration
}

package bootstrap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func validConfig() AppConfig {
	return AppConfig{
		MongoURI:              "mongodb://localhost:27017",
		MongoDatabase:         "sevadesk",
		SessionMaxAge:         12 * time.Hour,
		CalendarTimezone:      "Asia/Kolkata",
		ContainerDefaultLimit: 20,
		CooldownMinutes:       5,
		CooldownCacheTTL:      30 * time.Second,
		ConfirmLeaseTTL:       2 * time.Minute,
		LeaseReaperInterval:   30 * time.Second,
		EligibilityRule:       "customer.DikshaEligible",
		AuditLogCalendar:      "all",
		AuditLogAdmin:         "db",
	}
}

func TestValidateConfig(t *testing.T) {
	require.NoError(t, ValidateConfig(nil, validConfig(), zap.NewNop()))

	tests := []struct {
		name   string
		mutate func(*AppConfig)
	}{
		{"empty uri", func(c *AppConfig) { c.MongoURI = "" }},
		{"unknown zone", func(c *AppConfig) { c.CalendarTimezone = "Mars/Olympus" }},
		{"rule does not compile", func(c *AppConfig) { c.EligibilityRule = "customer.Age >" }},
		{"zero limit", func(c *AppConfig) { c.ContainerDefaultLimit = 0 }},
		{"cooldown not an option", func(c *AppConfig) { c.CooldownMinutes = 7 }},
		{"zero lease ttl", func(c *AppConfig) { c.ConfirmLeaseTTL = 0 }},
		{"negative cache ttl", func(c *AppConfig) { c.CooldownCacheTTL = -time.Second }},
		{"unknown audit mode", func(c *AppConfig) { c.AuditLogAdmin = "everything" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			require.Error(t, ValidateConfig(nil, cfg, zap.NewNop()))
		})
	}
}

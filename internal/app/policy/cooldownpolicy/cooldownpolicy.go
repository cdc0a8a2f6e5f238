// internal/app/policy/cooldownpolicy/cooldownpolicy.go
package cooldownpolicy

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/dalemusser/sevadesk/internal/domain/models"
	"github.com/puzpuzpuz/xsync/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultMinutes applies when no override exists and none is configured.
const DefaultMinutes = 5

// SettingSource reads per-user overrides.
type SettingSource interface {
	Get(ctx context.Context, userID primitive.ObjectID) (models.CooldownSetting, bool, error)
}

// Status is the outcome of a cooldown check.
type Status struct {
	InCooldown   bool      `json:"inCooldown"`
	RemainingSec int       `json:"remainingSec"`
	ExpiresAt    time.Time `json:"expiresAt"`
	Minutes      int       `json:"minutes"`
}

type cached struct {
	minutes int
	loaded  time.Time
}

// Policy resolves a user's cooldown. Overrides are cached per user for
// ttl; writes through the admin API call Invalidate.
type Policy struct {
	settings       SettingSource
	defaultMinutes int
	ttl            time.Duration
	cache          *xsync.Map[primitive.ObjectID, cached]
	now            func() time.Time
}

// New builds a policy. defaultMinutes < 0 selects DefaultMinutes; ttl <= 0
// disables caching.
func New(settings SettingSource, defaultMinutes int, ttl time.Duration) *Policy {
	if defaultMinutes < 0 {
		defaultMinutes = DefaultMinutes
	}
	return &Policy{
		settings:       settings,
		defaultMinutes: defaultMinutes,
		ttl:            ttl,
		cache:          xsync.NewMap[primitive.ObjectID, cached](),
		now:            time.Now,
	}
}

// Default returns the minutes used when a user has no override.
func (p *Policy) Default() int { return p.defaultMinutes }

// Minutes returns the effective cooldown for userID.
func (p *Policy) Minutes(ctx context.Context, userID primitive.ObjectID) (int, error) {
	if p.ttl > 0 {
		if c, ok := p.cache.Load(userID); ok && p.now().Sub(c.loaded) < p.ttl {
			return c.minutes, nil
		}
	}

	minutes := p.defaultMinutes
	setting, ok, err := p.settings.Get(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("load cooldown override: %w", err)
	}
	if ok {
		minutes = setting.Minutes
	}

	if p.ttl > 0 {
		p.cache.Store(userID, cached{minutes: minutes, loaded: p.now()})
	}
	return minutes, nil
}

// Check evaluates the cooldown of a card last moved at lastMovedAt for
// the acting user.
func (p *Policy) Check(ctx context.Context, userID primitive.ObjectID, lastMovedAt *time.Time, now time.Time) (Status, error) {
	minutes, err := p.Minutes(ctx, userID)
	if err != nil {
		return Status{}, err
	}
	return Evaluate(lastMovedAt, minutes, now), nil
}

// Invalidate drops the cached override for userID.
func (p *Policy) Invalidate(userID primitive.ObjectID) {
	p.cache.Delete(userID)
}

// Evaluate is the pure cooldown rule: a card is cooling down while now is
// before lastMovedAt + minutes. Remaining time is rounded up to whole
// seconds.
func Evaluate(lastMovedAt *time.Time, minutes int, now time.Time) Status {
	st := Status{Minutes: minutes}
	if minutes <= 0 || lastMovedAt == nil || lastMovedAt.IsZero() {
		return st
	}
	expires := lastMovedAt.Add(time.Duration(minutes) * time.Minute)
	if !now.Before(expires) {
		return st
	}
	st.InCooldown = true
	st.ExpiresAt = expires
	st.RemainingSec = int(math.Ceil(expires.Sub(now).Seconds()))
	return st
}

// Latest returns the most recent move time among cards, or nil.
func Latest(cards []models.Assignment) *time.Time {
	var latest *time.Time
	for i := range cards {
		t := cards[i].LastMovedAt
		if t != nil && (latest == nil || t.After(*latest)) {
			latest = t
		}
	}
	return latest
}

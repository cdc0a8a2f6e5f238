// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"strconv"
	"time"

	"github.com/dalemusser/sevadesk/internal/app/store/audit"
	"github.com/dalemusser/sevadesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Calendar controls logging for card operations (approve, shift, change-date, confirm...).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Calendar string
	// Admin controls logging for container and cooldown administration.
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Admin string
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.ContainerID != nil {
		fields = append(fields, zap.String("container_id", event.ContainerID.Hex()))
	}
	if len(event.AssignmentIDs) > 0 {
		fields = append(fields, zap.Int("assignments", len(event.AssignmentIDs)))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryCalendar:
		setting = l.config.Calendar
	case audit.CategoryAdmin:
		setting = l.config.Admin
	default:
		setting = "all"
	}
	if setting == "" {
		setting = "all"
	}
	if setting == "off" {
		return
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}

	if setting == "all" || setting == "db" {
		if event.Timestamp.IsZero() {
			event.Timestamp = time.Now().UTC()
		}
		// The audit write must not fail the caller; a cancelled request
		// context still gets its event recorded.
		if err := l.store.Log(context.WithoutCancel(ctx), event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func actorEvent(category, eventType string, a models.Actor) audit.Event {
	ev := audit.Event{
		Category:   category,
		EventType:  eventType,
		ActorLabel: a.Label(),
		IP:         a.IP,
		UserAgent:  a.UserAgent,
		Success:    true,
	}
	if !a.ID.IsZero() {
		id := a.ID
		ev.ActorID = &id
	}
	return ev
}

// --- Calendar Events ---

// CardsChanged logs a successful calendar operation on a set of cards.
func (l *Logger) CardsChanged(ctx context.Context, a models.Actor, eventType string, containerID primitive.ObjectID, assignmentIDs, customerIDs []primitive.ObjectID, details map[string]string) {
	ev := actorEvent(audit.CategoryCalendar, eventType, a)
	ev.ContainerID = &containerID
	ev.AssignmentIDs = assignmentIDs
	ev.CustomerIDs = customerIDs
	ev.Details = details
	l.Log(ctx, ev)
}

// ConfirmContended logs a confirm that lost the processing lease to another actor.
func (l *Logger) ConfirmContended(ctx context.Context, a models.Actor, containerID primitive.ObjectID, assignmentIDs []primitive.ObjectID, matched, expected int) {
	ev := actorEvent(audit.CategoryCalendar, audit.EventConfirmContended, a)
	ev.ContainerID = &containerID
	ev.AssignmentIDs = assignmentIDs
	ev.Success = false
	ev.FailureReason = "already processing"
	ev.Details = map[string]string{
		"matched":  strconv.Itoa(matched),
		"expected": strconv.Itoa(expected),
	}
	l.Log(ctx, ev)
}

// --- Admin Events ---

// ContainerUnlocked logs an admin opening a temporary over-capacity window.
func (l *Logger) ContainerUnlocked(ctx context.Context, a models.Actor, containerID primitive.ObjectID, minutes int, until time.Time) {
	ev := actorEvent(audit.CategoryAdmin, audit.EventContainerUnlocked, a)
	ev.ContainerID = &containerID
	ev.Details = map[string]string{
		"minutes": strconv.Itoa(minutes),
		"until":   until.UTC().Format(time.RFC3339),
	}
	l.Log(ctx, ev)
}

// ContainerRelocked logs an admin closing the unlock window early.
func (l *Logger) ContainerRelocked(ctx context.Context, a models.Actor, containerID primitive.ObjectID) {
	ev := actorEvent(audit.CategoryAdmin, audit.EventContainerRelocked, a)
	ev.ContainerID = &containerID
	l.Log(ctx, ev)
}

// ContainerLimitChanged logs a slot limit change.
func (l *Logger) ContainerLimitChanged(ctx context.Context, a models.Actor, containerID primitive.ObjectID, from, to int) {
	ev := actorEvent(audit.CategoryAdmin, audit.EventContainerLimitChanged, a)
	ev.ContainerID = &containerID
	ev.Details = map[string]string{
		"from": strconv.Itoa(from),
		"to":   strconv.Itoa(to),
	}
	l.Log(ctx, ev)
}

// CooldownSet logs an admin setting a per-user cooldown override.
func (l *Logger) CooldownSet(ctx context.Context, a models.Actor, userID primitive.ObjectID, minutes int) {
	ev := actorEvent(audit.CategoryAdmin, audit.EventCooldownSet, a)
	ev.Details = map[string]string{
		"user_id": userID.Hex(),
		"minutes": strconv.Itoa(minutes),
	}
	l.Log(ctx, ev)
}

// CooldownCleared logs an admin removing a per-user cooldown override.
func (l *Logger) CooldownCleared(ctx context.Context, a models.Actor, userID primitive.ObjectID) {
	ev := actorEvent(audit.CategoryAdmin, audit.EventCooldownCleared, a)
	ev.Details = map[string]string{"user_id": userID.Hex()}
	l.Log(ctx, ev)
}

// LeasesReaped logs the background release of expired confirm leases.
func (l *Logger) LeasesReaped(ctx context.Context, n int) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventLeasesReaped,
		Success:   true,
		Details:   map[string]string{"count": strconv.Itoa(n)},
	})
}

// Package calendar is the container capacity and assignment state machine.
//
// Every operation follows the same order: input shape, then the caller,
// then loading and matching the container and card, then the qualified
// lock, cooldown and staleness guards, then date rules, then capacity,
// then a re-check of the group, and only then the writes. Writes for one
// operation run in a single transaction when the deployment supports it.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dalemusser/sevadesk/internal/app/policy/capacitypolicy"
	"github.com/dalemusser/sevadesk/internal/app/policy/cooldownpolicy"
	"github.com/dalemusser/sevadesk/internal/app/policy/eligibilitypolicy"
	assignmentstore "github.com/dalemusser/sevadesk/internal/app/store/assignments"
	commitstore "github.com/dalemusser/sevadesk/internal/app/store/commits"
	containerstore "github.com/dalemusser/sevadesk/internal/app/store/containers"
	cooldownstore "github.com/dalemusser/sevadesk/internal/app/store/cooldowns"
	customerstore "github.com/dalemusser/sevadesk/internal/app/store/customers"
	historystore "github.com/dalemusser/sevadesk/internal/app/store/history"
	"github.com/dalemusser/sevadesk/internal/app/system/apierr"
	"github.com/dalemusser/sevadesk/internal/app/system/auditlog"
	"github.com/dalemusser/sevadesk/internal/app/system/datekey"
	"github.com/dalemusser/sevadesk/internal/app/system/htmlsanitize"
	"github.com/dalemusser/sevadesk/internal/app/system/metrics"
	"github.com/dalemusser/sevadesk/internal/app/system/txn"
	"github.com/dalemusser/sevadesk/internal/domain/group"
	"github.com/dalemusser/sevadesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Calendar limits and defaults.
const (
	DefaultLeaseTTL      = 2 * time.Minute
	DefaultCooldownTTL   = 30 * time.Second
	StaleToleranceMillis = 1000
	MaxUnlockMinutes     = 1440
	MaxContainerLimit    = 500
)

// Config tunes the engine.
type Config struct {
	DefaultLimit int
	LeaseTTL     time.Duration
	// CooldownMinutes is the move cooldown for users without an override.
	// Zero disables it; a negative value selects the package default.
	CooldownMinutes int
	// CooldownTTL bounds how long an override stays cached. Zero disables
	// caching; a negative value selects DefaultCooldownTTL.
	CooldownTTL     time.Duration
	EligibilityRule string
	Location        *time.Location
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Engine runs calendar operations against MongoDB.
type Engine struct {
	DB          *mongo.Database
	Containers  *containerstore.Store
	Assignments *assignmentstore.Store
	Customers   *customerstore.Store
	Commits     *commitstore.Store
	History     *historystore.Store
	Cooldowns   *cooldownstore.Store

	Capacity    *capacitypolicy.Accountant
	Cooldown    *cooldownpolicy.Policy
	Eligibility *eligibilitypolicy.Policy

	Audit   *auditlog.Logger
	Metrics metrics.Collector
	Log     *zap.Logger
	Clock   datekey.Clock

	LeaseTTL     time.Duration
	DefaultLimit int
}

// New wires an engine over db. audit may be nil; a nil collector records
// nothing.
func New(db *mongo.Database, cfg Config, audit *auditlog.Logger, m metrics.Collector, logger *zap.Logger) (*Engine, error) {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = models.DefaultContainerLimit
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = DefaultLeaseTTL
	}
	if cfg.CooldownTTL < 0 {
		cfg.CooldownTTL = DefaultCooldownTTL
	}
	if m == nil {
		m = metrics.NewNop()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	elig, err := eligibilitypolicy.New(cfg.EligibilityRule)
	if err != nil {
		return nil, err
	}

	assignments := assignmentstore.New(db)
	cooldowns := cooldownstore.New(db)
	return &Engine{
		DB:           db,
		Containers:   containerstore.New(db),
		Assignments:  assignments,
		Customers:    customerstore.New(db),
		Commits:      commitstore.New(db),
		History:      historystore.New(db),
		Cooldowns:    cooldowns,
		Capacity:     capacitypolicy.New(assignments),
		Cooldown:     cooldownpolicy.New(cooldowns, cfg.CooldownMinutes, cfg.CooldownTTL),
		Eligibility:  elig,
		Audit:        audit,
		Metrics:      m,
		Log:          logger,
		Clock:        datekey.NewClockAt(cfg.Location, cfg.Now),
		LeaseTTL:     cfg.LeaseTTL,
		DefaultLimit: cfg.DefaultLimit,
	}, nil
}

// finish records the outcome of op and returns err unchanged.
func (e *Engine) finish(op string, start time.Time, err error) error {
	result := "ok"
	if err != nil {
		result = apierr.CodeOf(err)
		if ae, ok := apierr.As(err); ok && ae.Status < http.StatusInternalServerError {
			e.Metrics.RecordRejection(result)
			e.Log.Info("calendar operation rejected",
				zap.String("action", op), zap.String("code", result), zap.String("reason", ae.Message))
		} else {
			e.Log.Error("calendar operation failed", zap.String("action", op), zap.Error(err))
		}
	}
	e.Metrics.ObserveOperation(op, result, time.Since(start))
	return err
}

// Guard carries the caller's optimistic-concurrency expectation. Version
// is preferred; UpdatedAt is compared with a 1000 ms tolerance.
type Guard struct {
	ExpectedVersion   *int64     `json:"expectedVersion,omitempty"`
	ExpectedUpdatedAt *time.Time `json:"expectedUpdatedAt,omitempty"`
}

// cleanMessage sanitizes a commit message and enforces that it is present.
func cleanMessage(raw string) (string, error) {
	msg := htmlsanitize.PlainText(raw)
	if msg == "" {
		return "", errCommitMessage()
	}
	return msg, nil
}

func requireActor(a models.Actor) error {
	if a.ID.IsZero() {
		return apierr.Unauthorized("sign in required")
	}
	return nil
}

func parseDate(field, s string) error {
	if !datekey.Valid(s) {
		return errInvalidDate(field)
	}
	return nil
}

func parseMode(s string) (models.Mode, error) {
	m := models.Mode(s)
	if !m.Valid() {
		return "", apierr.BadRequest(CodeInvalidMode, "mode must be MEETING or DIKSHA")
	}
	return m, nil
}

// loadContainer fetches a container by id.
func (e *Engine) loadContainer(ctx context.Context, id primitive.ObjectID) (models.Container, error) {
	c, err := e.Containers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, containerstore.ErrNotFound) {
			return models.Container{}, errContainerNotFound()
		}
		return models.Container{}, fmt.Errorf("load container: %w", err)
	}
	return c, nil
}

// target resolves (date, mode) to a container, creating it on first use.
func (e *Engine) target(ctx context.Context, date string, mode models.Mode) (models.Container, error) {
	c, err := e.Containers.GetOrCreate(ctx, date, mode, e.DefaultLimit)
	if err != nil {
		e.Log.Error("get-or-create container failed",
			zap.String("date", date), zap.String("mode", string(mode)), zap.Error(err))
		return models.Container{}, errContainerCreate()
	}
	return c, nil
}

// cardScope is the loaded context of an operation on an existing card.
type cardScope struct {
	container models.Container
	anchor    models.Assignment
	group     group.Group
}

// loadCard loads the container and card, checks they match and that the
// card is live, then loads its group.
func (e *Engine) loadCard(ctx context.Context, containerID, assignmentID primitive.ObjectID) (cardScope, error) {
	c, err := e.loadContainer(ctx, containerID)
	if err != nil {
		return cardScope{}, err
	}
	a, err := e.Assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, assignmentstore.ErrNotFound) {
			return cardScope{}, errAssignmentNotFound()
		}
		return cardScope{}, fmt.Errorf("load assignment: %w", err)
	}
	if a.ContainerID != c.ID {
		return cardScope{}, apierr.Conflict(CodeContainerMismatch, "assignment is not in this container").
			With("containerId", a.ContainerID.Hex())
	}
	if !a.Live() {
		return cardScope{}, apierr.Conflict(CodeNotInContainer, "assignment is no longer in the container").
			With("status", a.Status)
	}
	g, err := e.loadGroup(ctx, a)
	if err != nil {
		return cardScope{}, err
	}
	return cardScope{container: c, anchor: a, group: g}, nil
}

func (e *Engine) loadGroup(ctx context.Context, a models.Assignment) (group.Group, error) {
	if !a.Grouped() {
		return group.New(a, nil), nil
	}
	members, err := e.Assignments.GroupMembers(ctx, a.ContainerID, *a.PairID)
	if err != nil {
		return group.Group{}, fmt.Errorf("load group: %w", err)
	}
	return group.New(a, members), nil
}

// recheck re-reads the group right before writing and fails with
// RACE_CONDITION if membership or any member version changed.
func (e *Engine) recheck(ctx context.Context, s cardScope) error {
	a, err := e.Assignments.GetByID(ctx, s.anchor.ID)
	if err != nil {
		if errors.Is(err, assignmentstore.ErrNotFound) {
			return errRace()
		}
		return fmt.Errorf("recheck assignment: %w", err)
	}
	if a.ContainerID != s.container.ID || !a.Live() {
		return errRace()
	}
	g, err := e.loadGroup(ctx, a)
	if err != nil {
		return err
	}
	if g.Size() != s.group.Size() {
		return errRace()
	}
	want := make(map[primitive.ObjectID]int64, s.group.Size())
	for _, m := range s.group.Members {
		want[m.ID] = m.Version
	}
	for _, m := range g.Members {
		v, ok := want[m.ID]
		if !ok || v != m.Version {
			return errRace()
		}
	}
	return nil
}

// lockGuards applies the qualified lock and rejects cards held by a confirm.
func lockGuards(g group.Group) error {
	if g.AnyQualified() {
		return errLockedQualified()
	}
	if g.AnyProcessing() {
		return errAlreadyProcessing()
	}
	return nil
}

// checkCooldown blocks a move while the group's most recent move is inside
// the actor's cooldown window.
func (e *Engine) checkCooldown(ctx context.Context, actor models.Actor, g group.Group) error {
	now := e.Clock.Now()
	st, err := e.Cooldown.Check(ctx, actor.ID, cooldownpolicy.Latest(g.Members), now)
	if err != nil {
		return err
	}
	if st.InCooldown {
		return apierr.New(http.StatusTooManyRequests, CodeCooldownActive, "card was moved recently; wait before moving it again").
			With("remainingSec", st.RemainingSec).
			With("expiresAt", st.ExpiresAt).
			With("cooldownMinutes", st.Minutes)
	}
	return nil
}

// checkStale compares the caller's view of the anchor with the stored card.
func checkStale(a models.Assignment, g Guard) error {
	if g.ExpectedVersion != nil {
		if *g.ExpectedVersion != a.Version {
			return apierr.Conflict(CodeStaleData, "card changed since it was loaded").
				With("version", a.Version)
		}
		return nil
	}
	if g.ExpectedUpdatedAt != nil {
		diff := a.UpdatedAt.Sub(*g.ExpectedUpdatedAt)
		if diff < 0 {
			diff = -diff
		}
		if diff > StaleToleranceMillis*time.Millisecond {
			return apierr.Conflict(CodeStaleData, "card changed since it was loaded").
				With("updatedAt", a.UpdatedAt)
		}
	}
	return nil
}

// checkFits applies the capacity rule, reporting code on failure.
func checkFits(u capacitypolicy.Usage, incoming int, code string, c models.Container) error {
	if err := u.Fits(incoming); err != nil {
		return apierr.Conflict(code, "not enough room in the container").
			With("leg", c.Mode).
			With("date", c.Date).
			With("mode", c.Mode).
			With("used", u.Used).
			With("limit", u.Limit).
			With("incoming", incoming)
	}
	return nil
}

// eligible checks the DIKSHA predicate over the group's customers.
func (e *Engine) eligible(cs []models.Customer) error {
	names, err := e.Eligibility.Ineligible(cs)
	if err != nil {
		return err
	}
	if len(names) > 0 {
		return apierr.BadRequest(CodeNotEligible, "not eligible for diksha").With("names", names)
	}
	return nil
}

// stateErr maps an illegal state transition to a 409.
func stateErr(err error) error {
	if errors.Is(err, models.ErrIllegalTransition) {
		return apierr.Conflict(CodeInvalidState, err.Error())
	}
	return err
}

// inTxn runs fn in a transaction where supported.
func (e *Engine) inTxn(ctx context.Context, fn func(ctx context.Context) error) error {
	return txn.Run(ctx, e.DB, e.Log, fn)
}

// writeVersioned updates every member under its loaded version. A miss
// means another write landed after the re-check.
func (e *Engine) writeVersioned(ctx context.Context, members []models.Assignment, ch func(models.Assignment) assignmentstore.Change) error {
	for _, m := range members {
		if err := e.Assignments.UpdateVersioned(ctx, m.ID, m.Version, ch(m)); err != nil {
			if errors.Is(err, assignmentstore.ErrConflict) {
				return errRace()
			}
			return err
		}
	}
	return nil
}

// commits builds one ledger record per member.
func commits(actor models.Actor, members []models.Assignment, msg, action string, meta map[string]any, at time.Time) []models.CommitRecord {
	out := make([]models.CommitRecord, len(members))
	for i, m := range members {
		out[i] = models.CommitRecord{
			ID:         primitive.NewObjectID(),
			CustomerID: m.CustomerID,
			UserID:     actor.ID,
			ActorLabel: actor.Label(),
			Message:    msg,
			Action:     action,
			Meta:       withAssignment(meta, m),
			CreatedAt:  at,
		}
	}
	return out
}

func withAssignment(meta map[string]any, m models.Assignment) map[string]any {
	out := make(map[string]any, len(meta)+1)
	for k, v := range meta {
		out[k] = v
	}
	out["assignmentId"] = m.ID.Hex()
	return out
}

// snapshots copies each member and its customer into the history archive.
func snapshots(actor models.Actor, c models.Container, members []models.Assignment, cs []models.Customer, status models.SnapshotStatus, msg string, at time.Time) []models.HistorySnapshot {
	byID := make(map[primitive.ObjectID]models.Customer, len(cs))
	for _, cu := range cs {
		byID[cu.ID] = cu
	}
	out := make([]models.HistorySnapshot, len(members))
	for i, m := range members {
		m.Lease = nil
		out[i] = models.HistorySnapshot{
			ID:            primitive.NewObjectID(),
			Assignment:    m,
			Customer:      byID[m.CustomerID],
			Status:        status,
			ContainerID:   c.ID,
			Date:          c.Date,
			Mode:          c.Mode,
			PairID:        m.PairID,
			ActorID:       actor.ID,
			ActorLabel:    actor.Label(),
			CommitMessage: msg,
			CreatedAt:     at,
		}
	}
	return out
}

func customerIDs(members []models.Assignment) []primitive.ObjectID {
	out := make([]primitive.ObjectID, len(members))
	for i, m := range members {
		out[i] = m.CustomerID
	}
	return out
}

package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	assignmentstore "github.com/dalemusser/sevadesk/internal/app/store/assignments"
	"github.com/dalemusser/sevadesk/internal/app/store/audit"
	customerstore "github.com/dalemusser/sevadesk/internal/app/store/customers"
	"github.com/dalemusser/sevadesk/internal/app/system/apierr"
	"github.com/dalemusser/sevadesk/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Confirm finishes a MEETING group. A normal card moves into the DIKSHA
// container it reserved; a bypass card returns its customer to the
// pending pool and the card is removed.
//
// The group is first leased: every member is switched from its expected
// decision to PROCESSING under one token. If any member was already taken
// the lease is given back and the call fails. Every later failure gives
// the lease back before returning.
func (e *Engine) Confirm(ctx context.Context, actor models.Actor, containerID, assignmentID primitive.ObjectID, req ConfirmRequest) (res Result, err error) {
	defer func(start time.Time) { err = e.finish("confirm", start, err) }(time.Now())

	msg, err := cleanMessage(req.CommitMessage)
	if err != nil {
		return Result{}, err
	}
	if err := requireActor(actor); err != nil {
		return Result{}, err
	}

	s, err := e.loadCard(ctx, containerID, assignmentID)
	if err != nil {
		return Result{}, err
	}
	c := s.container
	if c.Mode != models.ModeMeeting {
		return Result{}, apierr.BadRequest(CodeNotMeeting, "only MEETING cards are confirmed")
	}
	if s.group.AnyQualified() {
		return Result{}, errLockedQualified()
	}
	if err := checkStale(s.anchor, req.Guard); err != nil {
		return Result{}, err
	}

	now := e.Clock.Now()
	u, err := e.Capacity.Used(ctx, c, now)
	if err != nil {
		return Result{}, err
	}
	if u.Locked() {
		return Result{}, apierr.Locked(CodeContainerLocked, "container is locked").
			With("used", u.Used).With("limit", u.Limit)
	}

	bypass := s.anchor.Bypass
	expected := models.DecisionPending
	if bypass {
		expected = models.DecisionBypass
	}
	for _, m := range s.group.Members {
		switch m.MeetingDecision {
		case models.DecisionProcessing, models.DecisionConfirmed, models.DecisionBypassConfirmed:
			return Result{}, errAlreadyProcessing()
		}
		if _, err := m.BeginProcessing(expected); err != nil {
			return Result{}, stateErr(err)
		}
	}

	var dk models.Container
	if bypass {
		if err := e.checkNotPending(ctx, s.group.CustomerIDs()); err != nil {
			return Result{}, err
		}
	} else {
		if s.anchor.OccupiedContainerID == nil {
			return Result{}, apierr.BadRequest(CodeOccupyRequired, "card has no DIKSHA reservation")
		}
		if dk, err = e.loadContainer(ctx, *s.anchor.OccupiedContainerID); err != nil {
			return Result{}, err
		}
	}

	ids := s.group.IDs()
	n := s.group.Size()
	token := uuid.NewString()
	matched, err := e.Assignments.AcquireLease(ctx, ids, expected, models.Lease{
		Token:     token,
		ExpiresAt: now.Add(e.LeaseTTL),
		OwnerID:   actor.ID,
	})
	if err != nil {
		return Result{}, fmt.Errorf("acquire lease: %w", err)
	}
	if int(matched) < n {
		e.releaseLease(ctx, token)
		e.Metrics.RecordLeaseContention()
		e.Audit.ConfirmContended(ctx, actor, c.ID, ids, int(matched), n)
		return Result{}, errAlreadyProcessing()
	}
	defer func() {
		if err != nil {
			e.releaseLease(ctx, token)
		}
	}()

	cs, err := e.Customers.GetMany(ctx, models.LocationSitting, s.group.CustomerIDs())
	if err != nil {
		return Result{}, fmt.Errorf("load customers: %w", err)
	}

	final := make([]models.Assignment, n)
	for i, m := range s.group.Members {
		st, _ := m.BeginProcessing(expected)
		if st, err = st.Confirm(bypass); err != nil {
			return Result{}, stateErr(err)
		}
		m.AssignmentState = st
		m.UpdatedAt = now
		final[i] = m
	}

	if bypass {
		err = e.inTxn(ctx, func(ctx context.Context) error {
			return e.confirmBypass(ctx, actor, s, final, cs, token, msg, now)
		})
	} else {
		err = e.inTxn(ctx, func(ctx context.Context) error {
			return e.confirmToDiksha(ctx, actor, s, final, cs, dk, token, msg, now)
		})
	}
	if err != nil {
		return Result{}, err
	}

	e.Audit.CardsChanged(ctx, actor, audit.EventCardsConfirmed, c.ID, ids, s.group.CustomerIDs(), map[string]string{
		"bypass": fmt.Sprint(bypass),
	})
	if bypass {
		return Result{}, nil
	}
	return Result{ContainerID: dk.ID.Hex(), Date: dk.Date, Mode: dk.Mode}, nil
}

func (e *Engine) confirmToDiksha(ctx context.Context, actor models.Actor, s cardScope, final []models.Assignment, cs []models.Customer, dk models.Container, token, msg string, now time.Time) error {
	if err := e.History.Record(ctx, snapshots(actor, s.container, final, cs, models.SnapshotConfirmed, msg, now)...); err != nil {
		return fmt.Errorf("record snapshots: %w", err)
	}
	n, err := e.Assignments.UpdateMany(ctx, s.group.IDs(), assignmentstore.Leased(token), assignmentstore.Change{
		Set: bson.M{
			"container_id":     dk.ID,
			"date":             dk.Date,
			"mode":             models.ModeDiksha,
			"meeting_decision": models.DecisionConfirmed,
			"bypass":           false,
			"updated_at":       now,
		},
		Unset: append([]string{"lease"}, occupiedFields...),
	})
	if err != nil {
		return fmt.Errorf("confirm assignments: %w", err)
	}
	if int(n) != s.group.Size() {
		return errRace()
	}
	id := dk.ID
	if err := e.Customers.SetPlacement(ctx, s.group.CustomerIDs(), models.CustomerInEvent, &id); err != nil {
		return fmt.Errorf("place customers: %w", err)
	}
	return e.Commits.Add(ctx, commits(actor, final, msg, models.ActionConfirm, map[string]any{
		"meetingDate": s.container.Date,
		"dikshaDate":  dk.Date,
	}, now)...)
}

func (e *Engine) confirmBypass(ctx context.Context, actor models.Actor, s cardScope, final []models.Assignment, cs []models.Customer, token, msg string, now time.Time) error {
	if err := e.toPending(ctx, cs); err != nil {
		return err
	}
	if err := e.History.Record(ctx, snapshots(actor, s.container, final, cs, models.SnapshotBypassToPending, msg, now)...); err != nil {
		return fmt.Errorf("record snapshots: %w", err)
	}
	n, err := e.Assignments.DeleteMany(ctx, s.group.IDs(), assignmentstore.Leased(token))
	if err != nil {
		return fmt.Errorf("delete assignments: %w", err)
	}
	if int(n) != s.group.Size() {
		return errRace()
	}
	return e.Commits.Add(ctx, commits(actor, final, msg, models.ActionConfirmBypass, map[string]any{
		"meetingDate": s.container.Date,
	}, now)...)
}

// checkNotPending fails when any of the customers already has a record in
// the pending pool. Callers run it before their first write.
func (e *Engine) checkNotPending(ctx context.Context, customerIDs []primitive.ObjectID) error {
	n, err := e.Customers.CountIn(ctx, models.LocationPending, customerIDs)
	if err != nil {
		return fmt.Errorf("check pending pool: %w", err)
	}
	if n > 0 {
		return apierr.Conflict(CodeAlreadyInPending, "customer is already in the pending pool")
	}
	return nil
}

// toPending returns sitting customers to the eligible pending pool.
func (e *Engine) toPending(ctx context.Context, cs []models.Customer) error {
	if len(cs) == 0 {
		return nil
	}
	_, err := e.Customers.Relocate(ctx, models.LocationSitting, models.LocationPending, cs, func(cu *models.Customer) {
		cu.DikshaEligible = true
		cu.Status = models.CustomerActive
		cu.ActiveContainerID = nil
	})
	if errors.Is(err, customerstore.ErrDuplicate) {
		return apierr.Conflict(CodeAlreadyInPending, "customer is already in the pending pool")
	}
	if err != nil {
		return fmt.Errorf("relocate customers: %w", err)
	}
	return nil
}

// releaseLease restores every card still held under token. It runs even
// when the request context is gone.
func (e *Engine) releaseLease(ctx context.Context, token string) {
	if _, err := e.Assignments.ReleaseLease(context.WithoutCancel(ctx), token); err != nil {
		e.Log.Error("release confirm lease failed", zap.String("lease_token", token), zap.Error(err))
	}
}

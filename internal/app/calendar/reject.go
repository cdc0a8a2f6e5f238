package calendar

import (
	"context"
	"fmt"
	"time"

	assignmentstore "github.com/dalemusser/sevadesk/internal/app/store/assignments"
	"github.com/dalemusser/sevadesk/internal/app/store/audit"
	"github.com/dalemusser/sevadesk/internal/app/system/apierr"
	"github.com/dalemusser/sevadesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Reject removes a group from the calendar. TRASH keeps the cards in
// place marked rejected; PUSH_PENDING returns the customers to the
// pending pool and deletes the cards.
func (e *Engine) Reject(ctx context.Context, actor models.Actor, containerID, assignmentID primitive.ObjectID, req RejectRequest) (res Result, err error) {
	defer func(start time.Time) { err = e.finish("reject", start, err) }(time.Now())

	msg, err := cleanMessage(req.CommitMessage)
	if err != nil {
		return Result{}, err
	}
	if req.RejectAction != RejectTrash && req.RejectAction != RejectPushPending {
		return Result{}, apierr.BadRequest(CodeInvalidRejectAction, "rejectAction must be TRASH or PUSH_PENDING")
	}
	if err := requireActor(actor); err != nil {
		return Result{}, err
	}

	s, err := e.loadCard(ctx, containerID, assignmentID)
	if err != nil {
		return Result{}, err
	}
	if err := lockGuards(s.group); err != nil {
		return Result{}, err
	}
	if err := checkStale(s.anchor, req.Guard); err != nil {
		return Result{}, err
	}

	final := make([]models.Assignment, s.group.Size())
	for i, m := range s.group.Members {
		st, err := m.Trash()
		if err != nil {
			return Result{}, stateErr(err)
		}
		m.AssignmentState = st
		final[i] = m
	}

	custIDs := s.group.CustomerIDs()
	if req.RejectAction == RejectPushPending {
		if err := e.checkNotPending(ctx, custIDs); err != nil {
			return Result{}, err
		}
	}
	cs, err := e.Customers.GetMany(ctx, models.LocationSitting, custIDs)
	if err != nil {
		return Result{}, fmt.Errorf("load customers: %w", err)
	}

	if err := e.recheck(ctx, s); err != nil {
		return Result{}, err
	}

	now := e.Clock.Now()
	ids := s.group.IDs()
	err = e.inTxn(ctx, func(ctx context.Context) error {
		if req.RejectAction == RejectTrash {
			if err := e.History.Record(ctx, snapshots(actor, s.container, final, cs, models.SnapshotRejectedTrash, msg, now)...); err != nil {
				return fmt.Errorf("record snapshots: %w", err)
			}
			n, err := e.Assignments.UpdateMany(ctx, ids, assignmentstore.Movable(), assignmentstore.Change{Set: bson.M{
				"status":           models.StatusRejected,
				"card_status":      models.CardRejected,
				"meeting_decision": models.DecisionRejected,
				"updated_at":       now,
			}})
			if err != nil {
				return fmt.Errorf("reject assignments: %w", err)
			}
			if int(n) != len(ids) {
				return errRace()
			}
			if err := e.Customers.SetPlacement(ctx, custIDs, models.CustomerRejected, nil); err != nil {
				return fmt.Errorf("update customers: %w", err)
			}
			return e.Commits.Add(ctx, commits(actor, final, msg, models.ActionRejectTrash, nil, now)...)
		}

		if err := e.History.Record(ctx, snapshots(actor, s.container, final, cs, models.SnapshotRejectedToPending, msg, now)...); err != nil {
			return fmt.Errorf("record snapshots: %w", err)
		}
		if err := e.toPending(ctx, cs); err != nil {
			return err
		}
		n, err := e.Assignments.DeleteMany(ctx, ids, assignmentstore.Movable())
		if err != nil {
			return fmt.Errorf("delete assignments: %w", err)
		}
		if int(n) != len(ids) {
			return errRace()
		}
		return e.Commits.Add(ctx, commits(actor, final, msg, models.ActionRejectPushPending, nil, now)...)
	})
	if err != nil {
		return Result{}, err
	}

	e.Audit.CardsChanged(ctx, actor, audit.EventCardsRejected, s.container.ID, ids, custIDs, map[string]string{
		"reject_action": req.RejectAction,
	})
	return Result{}, nil
}

// Out takes a group out of its container and returns the customers to
// ACTIVE with no container.
func (e *Engine) Out(ctx context.Context, actor models.Actor, containerID, assignmentID primitive.ObjectID, req OutRequest) (res Result, err error) {
	defer func(start time.Time) { err = e.finish("out", start, err) }(time.Now())

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
	if err := lockGuards(s.group); err != nil {
		return Result{}, err
	}
	if err := checkStale(s.anchor, req.Guard); err != nil {
		return Result{}, err
	}
	for _, m := range s.group.Members {
		if _, err := m.TakeOut(); err != nil {
			return Result{}, stateErr(err)
		}
	}
	if err := e.recheck(ctx, s); err != nil {
		return Result{}, err
	}

	now := e.Clock.Now()
	ids := s.group.IDs()
	custIDs := s.group.CustomerIDs()
	err = e.inTxn(ctx, func(ctx context.Context) error {
		n, err := e.Assignments.UpdateMany(ctx, ids, assignmentstore.Movable(), assignmentstore.Change{Set: bson.M{
			"status":     models.StatusOut,
			"updated_at": now,
		}})
		if err != nil {
			return fmt.Errorf("take out assignments: %w", err)
		}
		if int(n) != len(ids) {
			return errRace()
		}
		if err := e.Customers.SetPlacement(ctx, custIDs, models.CustomerActive, nil); err != nil {
			return fmt.Errorf("update customers: %w", err)
		}
		return e.Commits.Add(ctx, commits(actor, s.group.Members, msg, models.ActionOut, map[string]any{
			"date": s.container.Date,
			"mode": string(s.container.Mode),
		}, now)...)
	})
	if err != nil {
		return Result{}, err
	}

	e.Audit.CardsChanged(ctx, actor, audit.EventCardsOut, s.container.ID, ids, custIDs, nil)
	return Result{}, nil
}

// Qualify marks a DIKSHA group done. Qualifying a group that is already
// qualified succeeds with Already set and writes nothing.
func (e *Engine) Qualify(ctx context.Context, actor models.Actor, containerID, assignmentID primitive.ObjectID, req QualifyRequest) (res Result, err error) {
	defer func(start time.Time) { err = e.finish("qualify", start, err) }(time.Now())

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
	if s.container.Mode != models.ModeDiksha {
		return Result{}, apierr.BadRequest(CodeNotDiksha, "only DIKSHA cards can be marked done")
	}
	if s.group.AnyProcessing() {
		return Result{}, errAlreadyProcessing()
	}

	var todo []models.Assignment
	for _, m := range s.group.Members {
		if m.Qualified() {
			continue
		}
		if _, err := m.Qualify(); err != nil {
			return Result{}, stateErr(err)
		}
		todo = append(todo, m)
	}
	if len(todo) == 0 {
		return Result{Already: true}, nil
	}

	now := e.Clock.Now()
	ids := make([]primitive.ObjectID, len(todo))
	for i, m := range todo {
		ids[i] = m.ID
	}
	custIDs := customerIDs(todo)
	err = e.inTxn(ctx, func(ctx context.Context) error {
		n, err := e.Assignments.UpdateMany(ctx, ids, assignmentstore.Movable(), assignmentstore.Change{Set: bson.M{
			"card_status": models.CardQualified,
			"updated_at":  now,
		}})
		if err != nil {
			return fmt.Errorf("qualify assignments: %w", err)
		}
		if int(n) != len(ids) {
			return errRace()
		}
		if err := e.Customers.MarkQualified(ctx, custIDs); err != nil {
			return fmt.Errorf("mark customers: %w", err)
		}
		return e.Commits.Add(ctx, commits(actor, todo, msg, models.ActionQualify, map[string]any{
			"date": s.container.Date,
		}, now)...)
	})
	if err != nil {
		return Result{}, err
	}

	e.Audit.CardsChanged(ctx, actor, audit.EventCardsQualified, s.container.ID, ids, custIDs, nil)
	return Result{}, nil
}

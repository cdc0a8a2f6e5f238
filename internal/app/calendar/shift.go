package calendar

import (
	"context"
	"fmt"
	"time"

	assignmentstore "github.com/dalemusser/sevadesk/internal/app/store/assignments"
	"github.com/dalemusser/sevadesk/internal/app/store/audit"
	"github.com/dalemusser/sevadesk/internal/app/system/apierr"
	"github.com/dalemusser/sevadesk/internal/app/system/datekey"
	"github.com/dalemusser/sevadesk/internal/app/system/inputval"
	"github.com/dalemusser/sevadesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var occupiedFields = []string{"occupied_date", "occupied_container_id", "occupied_mode"}

// Shift moves a whole group between MEETING and DIKSHA. Moving to DIKSHA
// approves the group directly; moving to MEETING takes a fresh DIKSHA
// reservation for occupyDate.
func (e *Engine) Shift(ctx context.Context, actor models.Actor, containerID, assignmentID primitive.ObjectID, req ShiftRequest) (res Result, err error) {
	defer func(start time.Time) { err = e.finish("shift", start, err) }(time.Now())

	msg, err := cleanMessage(req.CommitMessage)
	if err != nil {
		return Result{}, err
	}
	if err := inputval.Check(req); err != nil {
		return Result{}, err
	}
	mode, err := parseMode(req.ToMode)
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
	if err := e.checkCooldown(ctx, actor, s.group); err != nil {
		return Result{}, err
	}
	if err := checkStale(s.anchor, req.Guard); err != nil {
		return Result{}, err
	}

	toDate := req.ToDate
	if toDate == "" {
		toDate = s.container.Date
	}
	if toDate == s.container.Date && mode == s.container.Mode {
		return Result{}, apierr.Conflict(CodeSameDate, "card is already in that container")
	}
	today := e.Clock.Today()
	if datekey.Before(toDate, today) {
		return Result{}, errPastDate("toDate", toDate)
	}

	t, err := e.target(ctx, toDate, mode)
	if err != nil {
		return Result{}, err
	}

	now := e.Clock.Now()
	ids := s.group.IDs()
	n := s.group.Size()
	var (
		decision models.Decision
		occupied *models.Container
		action   string
	)
	if mode == models.ModeDiksha {
		cs, err := e.Customers.GetMany(ctx, models.LocationSitting, s.group.CustomerIDs())
		if err != nil {
			return Result{}, fmt.Errorf("load customers: %w", err)
		}
		if err := e.eligible(cs); err != nil {
			return Result{}, err
		}
		decision = models.DecisionApprovedFor
		action = models.ActionApproveForDiksha
	} else {
		dk, err := e.occupyTarget(ctx, toDate, req.OccupyDate, today)
		if err != nil {
			return Result{}, err
		}
		occupied = &dk
		decision = models.DecisionPending
		action = models.ActionAssignMeeting
	}

	u, err := e.Capacity.Used(ctx, t, now, ids...)
	if err != nil {
		return Result{}, err
	}
	if err := checkFits(u, n, CodeHousefull, t); err != nil {
		return Result{}, err
	}
	if occupied != nil {
		du, err := e.Capacity.Used(ctx, *occupied, now, ids...)
		if err != nil {
			return Result{}, err
		}
		if err := checkFits(du, n, CodeHousefull, *occupied); err != nil {
			return Result{}, err
		}
	}

	for _, m := range s.group.Members {
		if _, err := m.Decide(decision); err != nil {
			return Result{}, stateErr(err)
		}
	}
	if err := e.recheck(ctx, s); err != nil {
		return Result{}, err
	}

	err = e.inTxn(ctx, func(ctx context.Context) error {
		err := e.writeVersioned(ctx, s.group.Members, func(m models.Assignment) assignmentstore.Change {
			ch := assignmentstore.Change{
				Set: bson.M{
					"container_id":     t.ID,
					"date":             t.Date,
					"mode":             t.Mode,
					"meeting_decision": decision,
					"bypass":           false,
					"last_moved_at":    now,
					"updated_at":       now,
				},
				Move: &models.MoveEntry{
					FromDate:         m.Date,
					ToDate:           t.Date,
					FromOccupiedDate: m.OccupiedDate,
					MovedAt:          now,
					MovedBy:          actor.Label(),
					MovedByID:        actor.ID,
					Reason:           "shift to " + string(mode),
				},
			}
			if occupied != nil {
				ch.Set["occupied_date"] = occupied.Date
				ch.Set["occupied_container_id"] = occupied.ID
				ch.Set["occupied_mode"] = occupied.Mode
				ch.Move.ToOccupiedDate = occupied.Date
			} else {
				ch.Unset = occupiedFields
			}
			return ch
		})
		if err != nil {
			return err
		}
		id := t.ID
		if err := e.Customers.SetPlacement(ctx, s.group.CustomerIDs(), models.CustomerInEvent, &id); err != nil {
			return fmt.Errorf("place customers: %w", err)
		}
		meta := map[string]any{"fromDate": s.container.Date, "fromMode": string(s.container.Mode), "toDate": t.Date, "toMode": string(t.Mode)}
		if occupied != nil {
			meta["occupyDate"] = occupied.Date
		}
		return e.Commits.Add(ctx, commits(actor, s.group.Members, msg, action, meta, now)...)
	})
	if err != nil {
		return Result{}, err
	}

	e.Audit.CardsChanged(ctx, actor, audit.EventCardsShifted, t.ID, ids, s.group.CustomerIDs(), map[string]string{
		"from_container_id": s.container.ID.Hex(),
		"to_date":           t.Date,
		"to_mode":           string(t.Mode),
	})
	return Result{ContainerID: t.ID.Hex(), Date: t.Date, Mode: t.Mode}, nil
}

// SetBypass toggles the bypass flag of a MEETING group. Turning it on
// drops the DIKSHA reservation; turning it off takes one for occupyDate.
func (e *Engine) SetBypass(ctx context.Context, actor models.Actor, containerID, assignmentID primitive.ObjectID, req BypassRequest) (res Result, err error) {
	defer func(start time.Time) { err = e.finish("bypass", start, err) }(time.Now())

	msg, err := cleanMessage(req.CommitMessage)
	if err != nil {
		return Result{}, err
	}
	if err := inputval.Check(req); err != nil {
		return Result{}, err
	}
	if err := requireActor(actor); err != nil {
		return Result{}, err
	}

	s, err := e.loadCard(ctx, containerID, assignmentID)
	if err != nil {
		return Result{}, err
	}
	if s.container.Mode != models.ModeMeeting {
		return Result{}, apierr.BadRequest(CodeNotMeeting, "bypass applies to MEETING cards only")
	}
	if err := lockGuards(s.group); err != nil {
		return Result{}, err
	}
	if err := checkStale(s.anchor, req.Guard); err != nil {
		return Result{}, err
	}

	already := true
	for _, m := range s.group.Members {
		if m.MeetingDecision != models.DecisionPending && m.MeetingDecision != models.DecisionBypass {
			return Result{}, apierr.Conflict(CodeInvalidState, "bypass can only change on a pending card").
				With("meetingDecision", m.MeetingDecision)
		}
		if m.Bypass != req.Bypass {
			already = false
		}
	}
	if already {
		return Result{Already: true}, nil
	}

	now := e.Clock.Now()
	ids := s.group.IDs()
	decision := models.DecisionBypass
	action := models.ActionBypassOn
	var occupied *models.Container
	if !req.Bypass {
		dk, err := e.occupyTarget(ctx, s.container.Date, req.OccupyDate, e.Clock.Today())
		if err != nil {
			return Result{}, err
		}
		du, err := e.Capacity.Used(ctx, dk, now, ids...)
		if err != nil {
			return Result{}, err
		}
		if err := checkFits(du, s.group.Size(), CodeDikshaHousefull, dk); err != nil {
			return Result{}, err
		}
		occupied = &dk
		decision = models.DecisionPending
		action = models.ActionBypassOff
	}

	if err := e.recheck(ctx, s); err != nil {
		return Result{}, err
	}

	err = e.inTxn(ctx, func(ctx context.Context) error {
		err := e.writeVersioned(ctx, s.group.Members, func(m models.Assignment) assignmentstore.Change {
			ch := assignmentstore.Change{Set: bson.M{
				"meeting_decision": decision,
				"bypass":           req.Bypass,
				"updated_at":       now,
			}}
			if occupied != nil {
				ch.Set["occupied_date"] = occupied.Date
				ch.Set["occupied_container_id"] = occupied.ID
				ch.Set["occupied_mode"] = occupied.Mode
			} else {
				ch.Unset = occupiedFields
			}
			return ch
		})
		if err != nil {
			return err
		}
		meta := map[string]any{"bypass": req.Bypass}
		if occupied != nil {
			meta["occupyDate"] = occupied.Date
		}
		return e.Commits.Add(ctx, commits(actor, s.group.Members, msg, action, meta, now)...)
	})
	if err != nil {
		return Result{}, err
	}

	e.Audit.CardsChanged(ctx, actor, audit.EventBypassToggled, s.container.ID, ids, s.group.CustomerIDs(), map[string]string{
		"bypass": fmt.Sprint(req.Bypass),
	})
	return Result{}, nil
}

package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	assignmentstore "github.com/dalemusser/sevadesk/internal/app/store/assignments"
	"github.com/dalemusser/sevadesk/internal/app/store/audit"
	"github.com/dalemusser/sevadesk/internal/app/system/apierr"
	"github.com/dalemusser/sevadesk/internal/app/system/datekey"
	"github.com/dalemusser/sevadesk/internal/app/system/htmlsanitize"
	"github.com/dalemusser/sevadesk/internal/app/system/inputval"
	"github.com/dalemusser/sevadesk/internal/domain/group"
	"github.com/dalemusser/sevadesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChangeDate moves the selected members of a group to a new date, a new
// occupied date, or both. Members moved away from a group become SINGLE
// and the members left behind are regrouped.
func (e *Engine) ChangeDate(ctx context.Context, actor models.Actor, containerID, assignmentID primitive.ObjectID, req ChangeDateRequest) (res Result, err error) {
	defer func(start time.Time) { err = e.finish("change_date", start, err) }(time.Now())

	msg, err := cleanMessage(req.CommitMessage)
	if err != nil {
		return Result{}, err
	}
	if req.NewDate == "" && req.NewOccupiedDate == "" {
		return Result{}, apierr.BadRequest(CodeDateRequired, "newDate or newOccupiedDate is required")
	}
	if req.NewDate != "" {
		if err := parseDate("newDate", req.NewDate); err != nil {
			return Result{}, err
		}
	}
	if req.NewOccupiedDate != "" {
		if err := parseDate("newOccupiedDate", req.NewOccupiedDate); err != nil {
			return Result{}, err
		}
	}
	if err := inputval.Check(req); err != nil {
		return Result{}, err
	}
	var sel group.Selector
	if len(req.MoveMembers) > 0 {
		if err := json.Unmarshal(req.MoveMembers, &sel); err != nil {
			return Result{}, apierr.BadRequest(CodeInvalidMoveMembers, err.Error())
		}
	}
	reason := htmlsanitize.PlainText(req.MoveReason)
	if err := requireActor(actor); err != nil {
		return Result{}, err
	}

	s, err := e.loadCard(ctx, containerID, assignmentID)
	if err != nil {
		return Result{}, err
	}
	moving, err := s.group.Select(s.anchor.ID, sel)
	if err != nil {
		return Result{}, apierr.BadRequest(CodeInvalidMoveMembers, err.Error())
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

	c := s.container
	anchor := s.anchor
	reserving := c.Mode == models.ModeMeeting && !anchor.Bypass && anchor.OccupiedContainerID != nil
	if req.NewOccupiedDate != "" && !reserving {
		return Result{}, apierr.BadRequest(CodeOccupyNotApplicable, "card holds no DIKSHA reservation")
	}

	newDate := c.Date
	if req.NewDate != "" {
		newDate = req.NewDate
	}
	newOcc := anchor.OccupiedDate
	if req.NewOccupiedDate != "" {
		newOcc = req.NewOccupiedDate
	}
	dateChanged := newDate != c.Date
	occChanged := reserving && newOcc != anchor.OccupiedDate

	switch {
	case req.NewDate != "" && !dateChanged && !occChanged:
		return Result{}, apierr.Conflict(CodeSameDate, "card is already on that date")
	case req.NewDate == "" && !occChanged:
		return Result{}, apierr.Conflict(CodeSameOccupyDate, "card already reserves that date")
	}

	today := e.Clock.Today()
	if dateChanged && datekey.Before(newDate, today) {
		return Result{}, errPastDate("newDate", newDate)
	}
	if occChanged && datekey.Before(newOcc, today) {
		return Result{}, errPastDate("newOccupiedDate", newOcc)
	}
	if reserving && !datekey.Before(newDate, newOcc) {
		if req.NewOccupiedDate != "" {
			return Result{}, apierr.BadRequest(CodeOccupyBeforeMeeting, "occupy date must be after the meeting date").
				With("date", newDate).With("occupyDate", newOcc)
		}
		return Result{}, apierr.BadRequest(CodeDateCrossesOccupied, "new date must be before the occupied date").
			With("date", newDate).With("occupyDate", newOcc)
	}

	now := e.Clock.Now()
	movingIDs := group.IDsOf(moving)
	t := c
	if dateChanged {
		if t, err = e.target(ctx, newDate, c.Mode); err != nil {
			return Result{}, err
		}
		u, err := e.Capacity.Used(ctx, t, now)
		if err != nil {
			return Result{}, err
		}
		if u.Locked() {
			return Result{}, apierr.Locked(CodeTargetLocked, "target container is locked").
				With("date", t.Date).With("used", u.Used).With("limit", u.Limit)
		}
		if err := checkFits(u, len(moving), CodeTargetHousefull, t); err != nil {
			return Result{}, err
		}
	}
	var dk *models.Container
	if occChanged {
		d, err := e.target(ctx, newOcc, models.ModeDiksha)
		if err != nil {
			return Result{}, err
		}
		if anyReserves(moving) {
			du, err := e.Capacity.Used(ctx, d, now, movingIDs...)
			if err != nil {
				return Result{}, err
			}
			if err := checkFits(du, len(moving), CodeDikshaHousefull, d); err != nil {
				return Result{}, err
			}
		}
		dk = &d
	}

	if err := e.recheck(ctx, s); err != nil {
		return Result{}, err
	}

	moved, remaining, partial := s.group.Split(moving)
	action := models.ActionChangeDateSingle
	switch {
	case partial:
		action = models.ActionChangeDateDetach
	case s.group.Size() > 1:
		action = models.ActionChangeDateGroup
	}
	regroup := make(map[primitive.ObjectID]group.Regroup, len(moved)+len(remaining))
	for _, r := range moved {
		regroup[r.ID] = r
	}
	for _, r := range remaining {
		regroup[r.ID] = r
	}

	err = e.inTxn(ctx, func(ctx context.Context) error {
		err := e.writeVersioned(ctx, moving, func(m models.Assignment) assignmentstore.Change {
			ch := assignmentstore.Change{
				Set: bson.M{
					"container_id":  t.ID,
					"date":          t.Date,
					"last_moved_at": now,
					"updated_at":    now,
				},
				Move: &models.MoveEntry{
					FromDate:         m.Date,
					ToDate:           t.Date,
					FromOccupiedDate: m.OccupiedDate,
					ToOccupiedDate:   m.OccupiedDate,
					MovedAt:          now,
					MovedBy:          actor.Label(),
					MovedByID:        actor.ID,
					Reason:           reason,
				},
			}
			if dk != nil {
				ch.Set["occupied_date"] = dk.Date
				ch.Set["occupied_container_id"] = dk.ID
				ch.Set["occupied_mode"] = dk.Mode
				ch.Move.ToOccupiedDate = dk.Date
			}
			if r, ok := regroup[m.ID]; ok {
				applyRegroup(&ch, r)
			}
			return ch
		})
		if err != nil {
			return err
		}

		var staying []models.Assignment
		if partial {
			for _, m := range s.group.Members {
				if !contains(movingIDs, m.ID) {
					staying = append(staying, m)
				}
			}
		}
		err = e.writeVersioned(ctx, staying, func(m models.Assignment) assignmentstore.Change {
			ch := assignmentstore.Change{Set: bson.M{"updated_at": now}}
			applyRegroup(&ch, regroup[m.ID])
			return ch
		})
		if err != nil {
			return err
		}

		if dateChanged {
			id := t.ID
			if err := e.Customers.SetPlacement(ctx, customerIDs(moving), models.CustomerInEvent, &id); err != nil {
				return fmt.Errorf("place customers: %w", err)
			}
		}
		meta := map[string]any{
			"fromDate": c.Date,
			"toDate":   t.Date,
			"partial":  partial,
		}
		if reserving {
			meta["fromOccupiedDate"] = anchor.OccupiedDate
			meta["toOccupiedDate"] = newOcc
		}
		if reason != "" {
			meta["reason"] = reason
		}
		return e.Commits.Add(ctx, commits(actor, moving, msg, action, meta, now)...)
	})
	if err != nil {
		return Result{}, err
	}

	e.Audit.CardsChanged(ctx, actor, audit.EventDateChanged, c.ID, movingIDs, customerIDs(moving), map[string]string{
		"to_container_id":  t.ID.Hex(),
		"to_date":          t.Date,
		"to_occupied_date": newOcc,
		"action":           action,
	})
	return Result{Partial: partial, ContainerID: t.ID.Hex(), Date: t.Date, Mode: t.Mode}, nil
}

// applyRegroup writes the grouping a member has after a partial move.
func applyRegroup(ch *assignmentstore.Change, r group.Regroup) {
	ch.Set["kind"] = r.Kind
	if r.PairID == nil {
		ch.Unset = append(ch.Unset, "pair_id", "role_in_pair")
		return
	}
	ch.Set["pair_id"] = *r.PairID
	ch.Set["role_in_pair"] = r.RoleInPair
}

func anyReserves(as []models.Assignment) bool {
	for _, a := range as {
		if a.Reserves() {
			return true
		}
	}
	return false
}

func contains(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/sevadesk/internal/app/store/audit"
	customerstore "github.com/dalemusser/sevadesk/internal/app/store/customers"
	"github.com/dalemusser/sevadesk/internal/app/system/apierr"
	"github.com/dalemusser/sevadesk/internal/app/system/datekey"
	"github.com/dalemusser/sevadesk/internal/app/system/inputval"
	"github.com/dalemusser/sevadesk/internal/domain/group"
	"github.com/dalemusser/sevadesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// placed is a customer found in one of the intake locations.
type placed struct {
	customer models.Customer
	loc      models.Location
}

// Approve places customers into the container. One customer becomes a
// SINGLE card; two or more share a new pair id. A MEETING card without
// bypass reserves a slot in the DIKSHA container of occupyDate, and both
// legs must fit or nothing is written.
func (e *Engine) Approve(ctx context.Context, actor models.Actor, containerID primitive.ObjectID, req ApproveRequest) (res Result, err error) {
	defer func(start time.Time) { err = e.finish("approve", start, err) }(time.Now())

	msg, err := cleanMessage(req.CommitMessage)
	if err != nil {
		return Result{}, err
	}
	if len(req.CustomerIDs) == 0 {
		return Result{}, apierr.BadRequest(CodeCustomersRequired, "at least one customer is required")
	}
	if err := inputval.Check(req); err != nil {
		return Result{}, err
	}
	ids, err := uniqueIDs(req.CustomerIDs)
	if err != nil {
		return Result{}, err
	}
	if err := requireActor(actor); err != nil {
		return Result{}, err
	}

	c, err := e.loadContainer(ctx, containerID)
	if err != nil {
		return Result{}, err
	}
	today := e.Clock.Today()
	if datekey.Before(c.Date, today) {
		return Result{}, errPastDate("date", c.Date)
	}

	found, err := e.locate(ctx, ids)
	if err != nil {
		return Result{}, err
	}
	customers := make([]models.Customer, len(found))
	for i, p := range found {
		customers[i] = p.customer
	}

	now := e.Clock.Now()
	var (
		decision models.Decision
		occupied *models.Container
	)
	switch {
	case c.Mode == models.ModeDiksha:
		if err := e.eligible(customers); err != nil {
			return Result{}, err
		}
		decision = models.DecisionApprovedFor
	case req.Bypass:
		decision = models.DecisionBypass
	default:
		dk, err := e.occupyTarget(ctx, c.Date, req.OccupyDate, today)
		if err != nil {
			return Result{}, err
		}
		occupied = &dk
		decision = models.DecisionPending
	}

	u, err := e.Capacity.Used(ctx, c, now)
	if err != nil {
		return Result{}, err
	}
	if err := checkFits(u, len(ids), CodeHousefull, c); err != nil {
		return Result{}, err
	}
	if occupied != nil {
		du, err := e.Capacity.Used(ctx, *occupied, now)
		if err != nil {
			return Result{}, err
		}
		if err := checkFits(du, len(ids), CodeHousefull, *occupied); err != nil {
			return Result{}, err
		}
	}

	state, err := models.Placed(decision)
	if err != nil {
		return Result{}, stateErr(err)
	}
	cards := newCards(actor, c, customers, state, occupied, req.Bypass && c.Mode == models.ModeMeeting, now)

	err = e.inTxn(ctx, func(ctx context.Context) error {
		if err := e.Assignments.InsertMany(ctx, cards); err != nil {
			return fmt.Errorf("insert assignments: %w", err)
		}
		if err := e.seat(ctx, c.ID, found); err != nil {
			return err
		}
		return e.Commits.Add(ctx, commits(actor, cards, msg, models.ActionApprove, map[string]any{
			"date":       c.Date,
			"mode":       string(c.Mode),
			"occupyDate": req.OccupyDate,
			"bypass":     req.Bypass,
		}, now)...)
	})
	if err != nil {
		return Result{}, err
	}

	e.Audit.CardsChanged(ctx, actor, audit.EventCardsApproved, c.ID, group.IDsOf(cards), ids, map[string]string{
		"date":        c.Date,
		"mode":        string(c.Mode),
		"occupy_date": req.OccupyDate,
	})
	return Result{Assignments: cards, ContainerID: c.ID.Hex(), Date: c.Date, Mode: c.Mode}, nil
}

// occupyTarget validates a MEETING card's occupy date against the meeting
// date and today and resolves its DIKSHA container.
func (e *Engine) occupyTarget(ctx context.Context, meetingDate, occupyDate, today string) (models.Container, error) {
	if occupyDate == "" {
		return models.Container{}, apierr.BadRequest(CodeOccupyRequired, "a MEETING card needs an occupy date")
	}
	if !datekey.Valid(occupyDate) {
		return models.Container{}, errInvalidDate("occupyDate")
	}
	if !datekey.Before(today, occupyDate) {
		return models.Container{}, errPastDate("occupyDate", occupyDate)
	}
	if !datekey.Before(meetingDate, occupyDate) {
		return models.Container{}, apierr.BadRequest(CodeOccupyBeforeMeeting, "occupy date must be after the meeting date").
			With("date", meetingDate).With("occupyDate", occupyDate)
	}
	return e.target(ctx, occupyDate, models.ModeDiksha)
}

func uniqueIDs(raw []string) ([]primitive.ObjectID, error) {
	seen := make(map[primitive.ObjectID]bool, len(raw))
	out := make([]primitive.ObjectID, 0, len(raw))
	for _, h := range raw {
		id, err := primitive.ObjectIDFromHex(h)
		if err != nil {
			return nil, apierr.BadRequest("INVALID_INPUT", "invalid customer id").With("id", h)
		}
		if seen[id] {
			return nil, apierr.BadRequest("INVALID_INPUT", "customer listed twice").With("id", h)
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}

// locate finds each customer and refuses anyone already holding a card.
func (e *Engine) locate(ctx context.Context, ids []primitive.ObjectID) ([]placed, error) {
	out := make([]placed, 0, len(ids))
	for _, id := range ids {
		cu, loc, err := e.Customers.Locate(ctx, id)
		if err != nil {
			if errors.Is(err, customerstore.ErrNotFound) {
				return nil, apierr.NotFound(CodeCustomerNotFound, "customer not found").With("id", id.Hex())
			}
			return nil, fmt.Errorf("locate customer: %w", err)
		}
		if loc == models.LocationSitting && cu.ActiveContainerID != nil {
			return nil, apierr.Conflict(CodeAlreadyAssigned, "customer already has a card").
				With("name", cu.Name)
		}
		out = append(out, placed{customer: cu, loc: loc})
	}
	live, err := e.Assignments.CountLiveForCustomers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("count live cards: %w", err)
	}
	if live > 0 {
		return nil, apierr.Conflict(CodeAlreadyAssigned, "customer already has a card")
	}
	return out, nil
}

// newCards builds one card per customer. Two or more customers form a
// group in the given order.
func newCards(actor models.Actor, c models.Container, cs []models.Customer, state models.AssignmentState, occupied *models.Container, bypass bool, now time.Time) []models.Assignment {
	kind := models.KindForSize(len(cs))
	roles := group.Roles(len(cs))
	var pairID *primitive.ObjectID
	if kind != models.KindSingle {
		p := primitive.NewObjectID()
		pairID = &p
	}

	out := make([]models.Assignment, len(cs))
	for i, cu := range cs {
		a := models.Assignment{
			ID:              primitive.NewObjectID(),
			CustomerID:      cu.ID,
			CustomerName:    cu.Name,
			ContainerID:     c.ID,
			Date:            c.Date,
			Mode:            c.Mode,
			AssignmentState: state,
			Kind:            kind,
			PairID:          pairID,
			RoleInPair:      roles[i],
			Bypass:          bypass,
			Version:         1,
			AddedByID:       actor.ID,
			AddedByName:     actor.Label(),
			CreatedAt:       now.Add(time.Duration(i) * time.Millisecond),
			UpdatedAt:       now,
		}
		if occupied != nil {
			id := occupied.ID
			a.OccupiedContainerID = &id
			a.OccupiedDate = occupied.Date
			a.OccupiedMode = occupied.Mode
		}
		out[i] = a
	}
	return out
}

// seat moves intake customers to the sitting pool and points every one of
// them at the container.
func (e *Engine) seat(ctx context.Context, containerID primitive.ObjectID, found []placed) error {
	byLoc := map[models.Location][]models.Customer{}
	var sitting []primitive.ObjectID
	for _, p := range found {
		if p.loc == models.LocationSitting {
			sitting = append(sitting, p.customer.ID)
			continue
		}
		byLoc[p.loc] = append(byLoc[p.loc], p.customer)
	}
	for loc, cs := range byLoc {
		_, err := e.Customers.Relocate(ctx, loc, models.LocationSitting, cs, func(cu *models.Customer) {
			cu.Status = models.CustomerInEvent
			id := containerID
			cu.ActiveContainerID = &id
		})
		if errors.Is(err, customerstore.ErrDuplicate) {
			return apierr.Conflict(CodeAlreadyAssigned, "customer is already seated")
		}
		if err != nil {
			return fmt.Errorf("seat customers: %w", err)
		}
	}
	if len(sitting) > 0 {
		id := containerID
		if err := e.Customers.SetPlacement(ctx, sitting, models.CustomerInEvent, &id); err != nil {
			return fmt.Errorf("place customers: %w", err)
		}
	}
	return nil
}

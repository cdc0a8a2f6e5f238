package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/sevadesk/internal/app/system/apierr"
	"github.com/dalemusser/sevadesk/internal/app/system/datekey"
	"github.com/dalemusser/sevadesk/internal/app/system/inputval"
	"github.com/dalemusser/sevadesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// boardConcurrency bounds the parallel usage counts of Board.
const boardConcurrency = 8

// maxBoardDays bounds the date span Board will list. With one container
// per (date, mode) a board holds at most 2*(maxBoardDays+1) containers.
const maxBoardDays = 366

// GetOrCreate returns the container for (date, mode), creating it on first
// use.
func (e *Engine) GetOrCreate(ctx context.Context, req ContainerRequest) (ContainerView, error) {
	if err := inputval.Check(req); err != nil {
		return ContainerView{}, err
	}
	c, err := e.target(ctx, req.Date, models.Mode(req.Mode))
	if err != nil {
		return ContainerView{}, err
	}
	return e.view(ctx, c)
}

// Container returns one container with its usage.
func (e *Engine) Container(ctx context.Context, id primitive.ObjectID) (ContainerView, error) {
	c, err := e.loadContainer(ctx, id)
	if err != nil {
		return ContainerView{}, err
	}
	return e.view(ctx, c)
}

// ListAssignments returns the live cards of a container.
func (e *Engine) ListAssignments(ctx context.Context, id primitive.ObjectID) ([]models.Assignment, error) {
	if _, err := e.loadContainer(ctx, id); err != nil {
		return nil, err
	}
	as, err := e.Assignments.ListLive(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	for i := range as {
		as[i].Lease = nil
	}
	return as, nil
}

func (e *Engine) view(ctx context.Context, c models.Container) (ContainerView, error) {
	u, err := e.Capacity.Used(ctx, c, e.Clock.Now())
	if err != nil {
		return ContainerView{}, err
	}
	return ContainerView{Container: c, Usage: u, Locked: u.Locked()}, nil
}

// Board lists the containers between from and to (inclusive) with their
// usage. An empty mode lists both modes.
func (e *Engine) Board(ctx context.Context, from, to, mode string) ([]ContainerView, error) {
	if err := parseDate("from", from); err != nil {
		return nil, err
	}
	if err := parseDate("to", to); err != nil {
		return nil, err
	}
	if datekey.Before(to, from) {
		return nil, apierr.BadRequest(CodeInvalidDate, "to is before from").With("field", "to")
	}
	f, _ := datekey.Parse(from)
	t, _ := datekey.Parse(to)
	if t.Sub(f) > maxBoardDays*24*time.Hour {
		return nil, apierr.BadRequest(CodeInvalidDate, "date range is too long").With("maxDays", maxBoardDays)
	}
	var m models.Mode
	if mode != "" {
		var err error
		if m, err = parseMode(mode); err != nil {
			return nil, err
		}
	}

	cs, err := e.Containers.ListRange(ctx, from, to, m)
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}

	out := make([]ContainerView, len(cs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(boardConcurrency)
	for i, c := range cs {
		i, c := i, c
		g.Go(func() error {
			v, err := e.view(gctx, c)
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Unlock opens an admin window in which the container accepts cards over
// its limit.
func (e *Engine) Unlock(ctx context.Context, actor models.Actor, id primitive.ObjectID, req UnlockRequest) (view ContainerView, err error) {
	defer func(start time.Time) { err = e.finish("unlock", start, err) }(time.Now())

	if err := requireAdmin(actor); err != nil {
		return ContainerView{}, err
	}
	if req.Minutes < 1 || req.Minutes > MaxUnlockMinutes {
		return ContainerView{}, apierr.BadRequest(CodeInvalidMinutes, "minutes must be between 1 and 1440")
	}
	if _, err := e.loadContainer(ctx, id); err != nil {
		return ContainerView{}, err
	}
	until := e.Clock.Now().Add(time.Duration(req.Minutes) * time.Minute)
	c, err := e.Containers.SetUnlock(ctx, id, &until, actor.ID)
	if err != nil {
		return ContainerView{}, fmt.Errorf("unlock container: %w", err)
	}
	e.Audit.ContainerUnlocked(ctx, actor, id, req.Minutes, until)
	return e.view(ctx, c)
}

// Relock closes the unlock window early.
func (e *Engine) Relock(ctx context.Context, actor models.Actor, id primitive.ObjectID) (view ContainerView, err error) {
	defer func(start time.Time) { err = e.finish("relock", start, err) }(time.Now())

	if err := requireAdmin(actor); err != nil {
		return ContainerView{}, err
	}
	if _, err := e.loadContainer(ctx, id); err != nil {
		return ContainerView{}, err
	}
	c, err := e.Containers.SetUnlock(ctx, id, nil, actor.ID)
	if err != nil {
		return ContainerView{}, fmt.Errorf("relock container: %w", err)
	}
	e.Audit.ContainerRelocked(ctx, actor, id)
	return e.view(ctx, c)
}

// SetLimit changes the slot limit. The limit may not drop below the slots
// already used unless the container is unlocked.
func (e *Engine) SetLimit(ctx context.Context, actor models.Actor, id primitive.ObjectID, req LimitRequest) (view ContainerView, err error) {
	defer func(start time.Time) { err = e.finish("set_limit", start, err) }(time.Now())

	if err := requireAdmin(actor); err != nil {
		return ContainerView{}, err
	}
	if req.Limit < 1 || req.Limit > MaxContainerLimit {
		return ContainerView{}, apierr.BadRequest(CodeInvalidLimit, "limit must be between 1 and 500")
	}
	c, err := e.loadContainer(ctx, id)
	if err != nil {
		return ContainerView{}, err
	}
	u, err := e.Capacity.Used(ctx, c, e.Clock.Now())
	if err != nil {
		return ContainerView{}, err
	}
	if req.Limit < u.Used && !u.Unlocked {
		return ContainerView{}, apierr.Conflict(CodeLimitBelowUsed, "limit is below the slots already used").
			With("used", u.Used)
	}
	updated, err := e.Containers.SetLimit(ctx, id, req.Limit)
	if err != nil {
		return ContainerView{}, fmt.Errorf("set limit: %w", err)
	}
	e.Audit.ContainerLimitChanged(ctx, actor, id, c.Limit, req.Limit)
	return e.view(ctx, updated)
}

func requireAdmin(a models.Actor) error {
	if err := requireActor(a); err != nil {
		return err
	}
	if !a.IsAdmin() {
		return apierr.Forbidden("admin only")
	}
	return nil
}

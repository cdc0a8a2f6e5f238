// internal/app/policy/capacitypolicy/capacitypolicy.go
package capacitypolicy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/sevadesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrHousefull is returned by Check when the incoming cards do not fit.
var ErrHousefull = errors.New("container is housefull")

// Counter reports the derived occupancy of a container.
type Counter interface {
	CountLive(ctx context.Context, containerID primitive.ObjectID, exclude []primitive.ObjectID) (int64, error)
	CountReserved(ctx context.Context, containerID primitive.ObjectID, exclude []primitive.ObjectID) (int64, error)
}

// Usage is a container's occupancy at one instant.
type Usage struct {
	In       int  `json:"in"`
	Reserved int  `json:"reserved"`
	Used     int  `json:"used"`
	Limit    int  `json:"limit"`
	Unlocked bool `json:"unlocked"`
}

// Free returns the slots left before the limit, never negative.
func (u Usage) Free() int {
	if u.Used >= u.Limit {
		return 0
	}
	return u.Limit - u.Used
}

// Locked reports whether the container is closed to new cards.
func (u Usage) Locked() bool { return Locked(u.Used, u.Limit, u.Unlocked) }

// Fits checks whether incoming more cards may enter.
func (u Usage) Fits(incoming int) error { return Check(u.Used, incoming, u.Limit, u.Unlocked) }

// Accountant computes used slots. Capacity is never stored; each call
// counts the assignments that reference the container.
type Accountant struct {
	counter Counter
}

func New(counter Counter) *Accountant {
	return &Accountant{counter: counter}
}

// Used counts the container's occupancy at now. Cards in exclude are not
// counted, so a group re-targeting a slot it already holds does not count
// against itself. DIKSHA containers add the reservations held by pending
// MEETING cards.
func (a *Accountant) Used(ctx context.Context, c models.Container, now time.Time, exclude ...primitive.ObjectID) (Usage, error) {
	in, err := a.counter.CountLive(ctx, c.ID, exclude)
	if err != nil {
		return Usage{}, fmt.Errorf("count live cards: %w", err)
	}
	u := Usage{In: int(in), Limit: c.Limit, Unlocked: c.IsUnlocked(now)}
	if c.Mode == models.ModeDiksha {
		reserved, err := a.counter.CountReserved(ctx, c.ID, exclude)
		if err != nil {
			return Usage{}, fmt.Errorf("count reservations: %w", err)
		}
		u.Reserved = int(reserved)
	}
	u.Used = u.In + u.Reserved
	return u, nil
}

// Check fails with ErrHousefull when used+incoming exceeds limit and the
// container is not unlocked.
func Check(used, incoming, limit int, unlocked bool) error {
	if unlocked {
		return nil
	}
	if used+incoming > limit {
		return fmt.Errorf("%w: %d used + %d incoming > %d", ErrHousefull, used, incoming, limit)
	}
	return nil
}

// Locked reports whether a container at used/limit refuses new cards.
func Locked(used, limit int, unlocked bool) bool {
	return !unlocked && used >= limit
}

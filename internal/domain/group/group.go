// Package group models COUPLE and FAMILY cards as one aggregate.
//
// Members are loaded fresh from the live assignments of a container that
// share a pair id, so concurrent membership changes are always seen. The
// operations here are pure: they decide which members move and what the
// members left behind become, and the caller writes the result.
package group

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dalemusser/sevadesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrInvalidSelection is returned when a member selector names no member
// or names an assignment outside the group.
var ErrInvalidSelection = errors.New("invalid member selection")

// Group is the set of live cards moved, confirmed or rejected together.
// A SINGLE card is a group of one.
type Group struct {
	PairID      *primitive.ObjectID
	ContainerID primitive.ObjectID
	Kind        models.Kind
	Members     []models.Assignment
}

// New builds the group anchored at anchor from the loaded members. When
// the anchor is not grouped, or members is empty, the group is the anchor
// alone.
func New(anchor models.Assignment, members []models.Assignment) Group {
	g := Group{
		PairID:      anchor.PairID,
		ContainerID: anchor.ContainerID,
		Kind:        anchor.Kind,
	}
	if !anchor.Grouped() || len(members) == 0 {
		g.PairID = nil
		g.Kind = models.KindSingle
		g.Members = []models.Assignment{anchor}
		return g
	}
	g.Members = members
	g.Kind = models.KindForSize(len(members))
	return g
}

// Size returns the number of members.
func (g Group) Size() int { return len(g.Members) }

// IDs returns the member assignment ids in member order.
func (g Group) IDs() []primitive.ObjectID {
	return IDsOf(g.Members)
}

// CustomerIDs returns the member customer ids in member order.
func (g Group) CustomerIDs() []primitive.ObjectID {
	out := make([]primitive.ObjectID, len(g.Members))
	for i, m := range g.Members {
		out[i] = m.CustomerID
	}
	return out
}

// AnyQualified reports whether any member carries the qualified lock.
func (g Group) AnyQualified() bool {
	for _, m := range g.Members {
		if m.Qualified() {
			return true
		}
	}
	return false
}

// AnyProcessing reports whether any member is held by a confirm.
func (g Group) AnyProcessing() bool {
	for _, m := range g.Members {
		if m.Processing() {
			return true
		}
	}
	return false
}

// Selector chooses which members of a group move.
//
// It decodes from JSON as the string "ALL", the string "SINGLE" or an
// array of assignment ids. The zero value selects all members.
type Selector struct {
	Single bool
	IDs    []primitive.ObjectID
}

// All reports whether s selects the whole group.
func (s Selector) All() bool { return !s.Single && len(s.IDs) == 0 }

// UnmarshalJSON implements json.Unmarshaler.
func (s *Selector) UnmarshalJSON(b []byte) error {
	*s = Selector{}
	if string(b) == "null" {
		return nil
	}

	var word string
	if err := json.Unmarshal(b, &word); err == nil {
		switch word {
		case "", "ALL":
			return nil
		case "SINGLE":
			s.Single = true
			return nil
		}
		return fmt.Errorf("%w: unknown selector %q", ErrInvalidSelection, word)
	}

	var raw []string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("%w: want \"ALL\", \"SINGLE\" or an id list", ErrInvalidSelection)
	}
	if len(raw) == 0 {
		return fmt.Errorf("%w: empty id list", ErrInvalidSelection)
	}
	for _, h := range raw {
		id, err := primitive.ObjectIDFromHex(h)
		if err != nil {
			return fmt.Errorf("%w: bad id %q", ErrInvalidSelection, h)
		}
		s.IDs = append(s.IDs, id)
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (s Selector) MarshalJSON() ([]byte, error) {
	switch {
	case s.Single:
		return json.Marshal("SINGLE")
	case len(s.IDs) == 0:
		return json.Marshal("ALL")
	}
	hex := make([]string, len(s.IDs))
	for i, id := range s.IDs {
		hex[i] = id.Hex()
	}
	return json.Marshal(hex)
}

// Select returns the members that move. SINGLE picks the anchor only.
func (g Group) Select(anchorID primitive.ObjectID, s Selector) ([]models.Assignment, error) {
	if s.All() {
		return g.Members, nil
	}
	if s.Single {
		for _, m := range g.Members {
			if m.ID == anchorID {
				return []models.Assignment{m}, nil
			}
		}
		return nil, fmt.Errorf("%w: anchor not in group", ErrInvalidSelection)
	}

	want := make(map[primitive.ObjectID]bool, len(s.IDs))
	for _, id := range s.IDs {
		want[id] = true
	}
	var out []models.Assignment
	for _, m := range g.Members {
		if want[m.ID] {
			out = append(out, m)
			delete(want, m.ID)
		}
	}
	if len(want) > 0 {
		return nil, fmt.Errorf("%w: %d id(s) not in group", ErrInvalidSelection, len(want))
	}
	return out, nil
}

// Regroup is the grouping a member ends up with after a split.
type Regroup struct {
	ID         primitive.ObjectID
	Kind       models.Kind
	PairID     *primitive.ObjectID
	RoleInPair string
}

// Split computes the grouping after moving the given members out of g.
//
// Moving every member is not partial and leaves grouping untouched. On a
// partial move each moved member becomes a SINGLE without a pair id, and
// the members left behind become a SINGLE (one left), a COUPLE (two left)
// or stay a FAMILY.
func (g Group) Split(moving []models.Assignment) (moved, remaining []Regroup, partial bool) {
	if len(moving) == 0 || len(moving) >= len(g.Members) {
		return nil, nil, false
	}

	isMoving := make(map[primitive.ObjectID]bool, len(moving))
	for _, m := range moving {
		isMoving[m.ID] = true
		moved = append(moved, Regroup{ID: m.ID, Kind: models.KindSingle})
	}

	var left []models.Assignment
	for _, m := range g.Members {
		if !isMoving[m.ID] {
			left = append(left, m)
		}
	}

	kind := models.KindForSize(len(left))
	for i, m := range left {
		r := Regroup{ID: m.ID, Kind: kind}
		if kind != models.KindSingle {
			r.PairID = g.PairID
			r.RoleInPair = roleAt(i, kind)
		}
		remaining = append(remaining, r)
	}
	return moved, remaining, true
}

// Roles assigns group roles for n new members in order.
func Roles(n int) []string {
	kind := models.KindForSize(n)
	out := make([]string, n)
	if kind == models.KindSingle {
		return out
	}
	for i := range out {
		out[i] = roleAt(i, kind)
	}
	return out
}

func roleAt(i int, kind models.Kind) string {
	switch {
	case i == 0:
		return models.RolePrimary
	case kind == models.KindCouple:
		return models.RolePartner
	default:
		return models.RoleMember
	}
}

// IDsOf returns the ids of the given assignments.
func IDsOf(as []models.Assignment) []primitive.ObjectID {
	out := make([]primitive.ObjectID, len(as))
	for i, a := range as {
		out[i] = a.ID
	}
	return out
}

package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/sevadesk/internal/domain/group"
	"github.com/dalemusser/sevadesk/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Repeated calls on the same request accumulate parameters.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateCustomer inserts a customer into loc.
func (f *Fixtures) CreateCustomer(ctx context.Context, loc models.Location, name string, eligible bool) models.Customer {
	f.t.Helper()

	now := time.Now().UTC()
	c := models.Customer{
		ID:             primitive.NewObjectID(),
		Name:           name,
		NameCI:         text.Fold(name),
		City:           "Test City",
		DikshaEligible: eligible,
		Status:         models.CustomerActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if loc == models.LocationSitting {
		c.Status = models.CustomerInEvent
	}

	if _, err := f.db.Collection("customers_"+string(loc)).InsertOne(ctx, c); err != nil {
		f.t.Fatalf("failed to create test customer: %v", err)
	}
	return c
}

// CreateContainer inserts a container for (date, mode) with the given limit.
func (f *Fixtures) CreateContainer(ctx context.Context, date string, mode models.Mode, limit int) models.Container {
	f.t.Helper()

	now := time.Now().UTC()
	c := models.Container{
		ID:        primitive.NewObjectID(),
		Date:      date,
		Mode:      mode,
		Limit:     limit,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("containers").InsertOne(ctx, c); err != nil {
		f.t.Fatalf("failed to create test container: %v", err)
	}
	return c
}

// CreateContainerRange inserts one container per mode for each of days
// consecutive days starting at from, in a single batch.
func (f *Fixtures) CreateContainerRange(ctx context.Context, from string, days int, limit int, modes ...models.Mode) []models.Container {
	f.t.Helper()

	start, err := time.Parse("2006-01-02", from)
	if err != nil {
		f.t.Fatalf("bad fixture date %q: %v", from, err)
	}
	now := time.Now().UTC()
	var cs []models.Container
	docs := make([]interface{}, 0, days*len(modes))
	for d := 0; d < days; d++ {
		date := start.AddDate(0, 0, d).Format("2006-01-02")
		for _, m := range modes {
			c := models.Container{ID: primitive.NewObjectID(), Date: date, Mode: m, Limit: limit, CreatedAt: now, UpdatedAt: now}
			cs = append(cs, c)
			docs = append(docs, c)
		}
	}
	if len(docs) == 0 {
		return nil
	}
	if _, err := f.db.Collection("containers").InsertMany(ctx, docs); err != nil {
		f.t.Fatalf("failed to create test containers: %v", err)
	}
	return cs
}

// CardOptions tunes CreateCards.
type CardOptions struct {
	Decision models.Decision
	// Occupied, when set, makes the cards reserve a slot in that container.
	Occupied *models.Container
	Bypass   bool
	// CardStatus overrides the card status (e.g. QUALIFIED).
	CardStatus models.CardStatus
	// LastMovedAt seeds the cooldown clock.
	LastMovedAt *time.Time
}

// CreateCards places one sitting customer per name into container c. Two or
// more names form a group sharing a pair id. It returns the cards in name
// order together with their customers.
func (f *Fixtures) CreateCards(ctx context.Context, c models.Container, opts CardOptions, names ...string) ([]models.Assignment, []models.Customer) {
	f.t.Helper()

	if opts.Decision == "" {
		switch {
		case c.Mode == models.ModeDiksha:
			opts.Decision = models.DecisionApprovedFor
		case opts.Bypass:
			opts.Decision = models.DecisionBypass
		default:
			opts.Decision = models.DecisionPending
		}
	}

	kind := models.KindForSize(len(names))
	roles := group.Roles(len(names))
	var pairID *primitive.ObjectID
	if kind != models.KindSingle {
		p := primitive.NewObjectID()
		pairID = &p
	}

	now := time.Now().UTC()
	cards := make([]models.Assignment, 0, len(names))
	customers := make([]models.Customer, 0, len(names))
	docs := make([]interface{}, 0, len(names))
	for i, name := range names {
		cust := f.CreateCustomer(ctx, models.LocationSitting, name, true)
		cid := c.ID
		if _, err := f.db.Collection("customers_sitting").UpdateByID(ctx, cust.ID,
			map[string]any{"$set": map[string]any{"active_container_id": cid}}); err != nil {
			f.t.Fatalf("failed to place test customer: %v", err)
		}
		cust.ActiveContainerID = &cid
		customers = append(customers, cust)

		a := models.Assignment{
			ID:           primitive.NewObjectID(),
			CustomerID:   cust.ID,
			CustomerName: name,
			ContainerID:  c.ID,
			Date:         c.Date,
			Mode:         c.Mode,
			AssignmentState: models.AssignmentState{
				Status:          models.StatusInContainer,
				CardStatus:      opts.CardStatus,
				MeetingDecision: opts.Decision,
			},
			Kind:        kind,
			PairID:      pairID,
			Bypass:      opts.Bypass,
			LastMovedAt: opts.LastMovedAt,
			Version:     1,
			AddedByName: "fixture",
			CreatedAt:   now.Add(time.Duration(i) * time.Millisecond),
			UpdatedAt:   now,
		}
		a.RoleInPair = roles[i]
		if opts.Occupied != nil {
			oid := opts.Occupied.ID
			a.OccupiedContainerID = &oid
			a.OccupiedDate = opts.Occupied.Date
			a.OccupiedMode = opts.Occupied.Mode
		}
		cards = append(cards, a)
		docs = append(docs, a)
	}

	if _, err := f.db.Collection("assignments").InsertMany(ctx, docs); err != nil {
		f.t.Fatalf("failed to create test assignments: %v", err)
	}
	return cards, customers
}

// Fill places n anonymous single cards into c, e.g. to bring it to capacity.
func (f *Fixtures) Fill(ctx context.Context, c models.Container, n int, opts CardOptions) {
	f.t.Helper()
	for i := 0; i < n; i++ {
		f.CreateCards(ctx, c, opts, "Filler "+primitive.NewObjectID().Hex()[18:])
	}
}

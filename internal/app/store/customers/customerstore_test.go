package customerstore_test

import (
	"errors"
	"testing"

	customerstore "github.com/dalemusser/sevadesk/internal/app/store/customers"
	"github.com/dalemusser/sevadesk/internal/domain/models"
	"github.com/dalemusser/sevadesk/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_CreateAndLocate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := customerstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.LocationToday, models.Customer{Name: "Ánanda Das", City: "Puri"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID.IsZero() || created.NameCI == "" || created.Status != models.CustomerActive {
		t.Errorf("unexpected customer: %+v", created)
	}

	got, loc, err := store.Locate(ctx, created.ID)
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if loc != models.LocationToday || got.Name != "Ánanda Das" {
		t.Errorf("Locate: got %q in %s", got.Name, loc)
	}

	if _, _, err := store.Locate(ctx, primitive.NewObjectID()); !errors.Is(err, customerstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_GetMany(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := customerstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := fixtures.CreateCustomer(ctx, models.LocationPending, "A", true)
	b := fixtures.CreateCustomer(ctx, models.LocationPending, "B", false)

	got, err := store.GetMany(ctx, models.LocationPending, []primitive.ObjectID{b.ID, a.ID})
	if err != nil {
		t.Fatalf("GetMany failed: %v", err)
	}
	if len(got) != 2 || got[0].ID != b.ID || got[1].ID != a.ID {
		t.Errorf("expected customers in id order, got %+v", got)
	}

	_, err = store.GetMany(ctx, models.LocationPending, []primitive.ObjectID{a.ID, primitive.NewObjectID()})
	if !errors.Is(err, customerstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_Relocate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := customerstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c := fixtures.CreateCustomer(ctx, models.LocationToday, "Moving", true)
	container := primitive.NewObjectID()

	moved, err := store.Relocate(ctx, models.LocationToday, models.LocationSitting, []models.Customer{c}, func(cu *models.Customer) {
		cu.Status = models.CustomerInEvent
		cu.ActiveContainerID = &container
	})
	if err != nil {
		t.Fatalf("Relocate failed: %v", err)
	}
	if moved[0].Status != models.CustomerInEvent {
		t.Errorf("mutate not applied: %+v", moved[0])
	}
	if n, _ := store.CountIn(ctx, models.LocationToday, []primitive.ObjectID{c.ID}); n != 0 {
		t.Errorf("customer still in today: %d", n)
	}
	got, err := store.Get(ctx, models.LocationSitting, c.ID)
	if err != nil || got.ActiveContainerID == nil || *got.ActiveContainerID != container {
		t.Errorf("sitting customer: %+v (%v)", got, err)
	}

	// A customer already at the destination is not duplicated.
	dup := fixtures.CreateCustomer(ctx, models.LocationToday, "Twice", true)
	if _, err := store.Relocate(ctx, models.LocationToday, models.LocationPending, []models.Customer{dup}, nil); err != nil {
		t.Fatalf("Relocate failed: %v", err)
	}
	_, err = store.Relocate(ctx, models.LocationToday, models.LocationPending, []models.Customer{dup}, nil)
	if !errors.Is(err, customerstore.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
}

func TestStore_SetPlacementAndQualify(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := customerstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c := fixtures.CreateCustomer(ctx, models.LocationSitting, "Seated", true)
	container := primitive.NewObjectID()

	if err := store.SetPlacement(ctx, []primitive.ObjectID{c.ID}, models.CustomerInEvent, &container); err != nil {
		t.Fatalf("SetPlacement failed: %v", err)
	}
	got, _ := store.Get(ctx, models.LocationSitting, c.ID)
	if got.ActiveContainerID == nil || *got.ActiveContainerID != container {
		t.Errorf("expected back-reference set, got %+v", got)
	}

	if err := store.SetPlacement(ctx, []primitive.ObjectID{c.ID}, models.CustomerActive, nil); err != nil {
		t.Fatalf("SetPlacement clear failed: %v", err)
	}
	got, _ = store.Get(ctx, models.LocationSitting, c.ID)
	if got.ActiveContainerID != nil || got.Status != models.CustomerActive {
		t.Errorf("expected back-reference cleared, got %+v", got)
	}

	if err := store.MarkQualified(ctx, []primitive.ObjectID{c.ID}); err != nil {
		t.Fatalf("MarkQualified failed: %v", err)
	}
	got, _ = store.Get(ctx, models.LocationSitting, c.ID)
	if !got.DikshaQualified {
		t.Error("expected customer qualified")
	}
}

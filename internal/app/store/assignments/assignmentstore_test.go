package assignmentstore_test

import (
	"errors"
	"testing"
	"time"

	assignmentstore "github.com/dalemusser/sevadesk/internal/app/store/assignments"
	"github.com/dalemusser/sevadesk/internal/domain/models"
	"github.com/dalemusser/sevadesk/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_UpdateVersioned(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := assignmentstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c := fixtures.CreateContainer(ctx, "2025-06-20", models.ModeMeeting, 20)
	cards, _ := fixtures.CreateCards(ctx, c, testutil.CardOptions{Bypass: true}, "Versioned")
	id := cards[0].ID

	move := &models.MoveEntry{FromDate: "2025-06-20", ToDate: "2025-06-21", MovedAt: time.Now().UTC(), MovedBy: "tester"}
	if err := store.UpdateVersioned(ctx, id, 1, assignmentstore.Change{
		Set:  bson.M{"date": "2025-06-21"},
		Move: move,
	}); err != nil {
		t.Fatalf("UpdateVersioned failed: %v", err)
	}

	got, err := store.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Version != 2 {
		t.Errorf("Version: got %d, want 2", got.Version)
	}
	if got.MoveCount != 1 || len(got.MoveHistory) != 1 {
		t.Errorf("move history not appended: count=%d len=%d", got.MoveCount, len(got.MoveHistory))
	}

	// Writing against the old version is rejected.
	err = store.UpdateVersioned(ctx, id, 1, assignmentstore.Change{Set: bson.M{"date": "2025-06-22"}})
	if !errors.Is(err, assignmentstore.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestStore_GetByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := assignmentstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.GetByID(ctx, primitive.NewObjectID())
	if !errors.Is(err, assignmentstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_GroupMembersAndCounts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := assignmentstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	meeting := fixtures.CreateContainer(ctx, "2025-06-20", models.ModeMeeting, 20)
	dk := fixtures.CreateContainer(ctx, "2025-06-25", models.ModeDiksha, 20)
	family, custs := fixtures.CreateCards(ctx, meeting, testutil.CardOptions{Occupied: &dk}, "A", "B", "C")
	fixtures.CreateCards(ctx, meeting, testutil.CardOptions{Bypass: true}, "Solo")
	fixtures.CreateCards(ctx, dk, testutil.CardOptions{}, "Sitting In Diksha")

	members, err := store.GroupMembers(ctx, meeting.ID, *family[0].PairID)
	if err != nil {
		t.Fatalf("GroupMembers failed: %v", err)
	}
	if len(members) != 3 || members[0].ID != family[0].ID || members[2].ID != family[2].ID {
		t.Errorf("expected 3 members in placement order, got %d", len(members))
	}

	live, err := store.CountLive(ctx, meeting.ID, nil)
	if err != nil || live != 4 {
		t.Errorf("CountLive: got %d (%v), want 4", live, err)
	}
	live, _ = store.CountLive(ctx, meeting.ID, []primitive.ObjectID{family[0].ID, family[1].ID})
	if live != 2 {
		t.Errorf("CountLive with exclude: got %d, want 2", live)
	}

	reserved, err := store.CountReserved(ctx, dk.ID, nil)
	if err != nil || reserved != 3 {
		t.Errorf("CountReserved: got %d (%v), want 3", reserved, err)
	}
	if n, _ := store.CountLive(ctx, dk.ID, nil); n != 1 {
		t.Errorf("diksha CountLive: got %d, want 1", n)
	}

	n, err := store.CountLiveForCustomers(ctx, []primitive.ObjectID{custs[0].ID, primitive.NewObjectID()})
	if err != nil || n != 1 {
		t.Errorf("CountLiveForCustomers: got %d (%v), want 1", n, err)
	}
}

func TestStore_LeaseLifecycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := assignmentstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	meeting := fixtures.CreateContainer(ctx, "2025-06-20", models.ModeMeeting, 20)
	dk := fixtures.CreateContainer(ctx, "2025-06-25", models.ModeDiksha, 20)
	couple, _ := fixtures.CreateCards(ctx, meeting, testutil.CardOptions{Occupied: &dk}, "L1", "L2")
	ids := []primitive.ObjectID{couple[0].ID, couple[1].ID}

	lease := models.Lease{Token: "first", ExpiresAt: time.Now().Add(time.Minute)}
	n, err := store.AcquireLease(ctx, ids, models.DecisionPending, lease)
	if err != nil || n != 2 {
		t.Fatalf("AcquireLease: got %d (%v), want 2", n, err)
	}

	// A second caller takes nothing.
	n, err = store.AcquireLease(ctx, ids, models.DecisionPending, models.Lease{Token: "second", ExpiresAt: time.Now().Add(time.Minute)})
	if err != nil || n != 0 {
		t.Errorf("second AcquireLease: got %d (%v), want 0", n, err)
	}

	// Held cards still reserve.
	if r, _ := store.CountReserved(ctx, dk.ID, nil); r != 2 {
		t.Errorf("CountReserved while leased: got %d, want 2", r)
	}

	got, _ := store.GetByID(ctx, couple[0].ID)
	if got.MeetingDecision != models.DecisionProcessing || got.Lease == nil || got.Lease.PriorDecision != models.DecisionPending {
		t.Errorf("leased card: %+v", got)
	}

	// Movable excludes leased cards.
	if n, _ := store.UpdateMany(ctx, ids, assignmentstore.Movable(), assignmentstore.Change{Set: bson.M{"bypass": true}}); n != 0 {
		t.Errorf("Movable matched %d leased cards", n)
	}

	released, err := store.ReleaseLease(ctx, "first")
	if err != nil || released != 2 {
		t.Fatalf("ReleaseLease: got %d (%v), want 2", released, err)
	}
	got, _ = store.GetByID(ctx, couple[0].ID)
	if got.MeetingDecision != models.DecisionPending || got.Lease != nil {
		t.Errorf("released card: %+v", got)
	}
	if got.Version != 3 {
		t.Errorf("Version after lease and release: got %d, want 3", got.Version)
	}
}

func TestStore_ReapExpiredLeases(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := assignmentstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	meeting := fixtures.CreateContainer(ctx, "2025-06-20", models.ModeMeeting, 20)
	stale, _ := fixtures.CreateCards(ctx, meeting, testutil.CardOptions{Bypass: true}, "Stale")
	fresh, _ := fixtures.CreateCards(ctx, meeting, testutil.CardOptions{Bypass: true}, "Fresh")

	now := time.Now().UTC()
	if _, err := store.AcquireLease(ctx, []primitive.ObjectID{stale[0].ID}, models.DecisionBypass,
		models.Lease{Token: "old", ExpiresAt: now.Add(-time.Second)}); err != nil {
		t.Fatalf("AcquireLease failed: %v", err)
	}
	if _, err := store.AcquireLease(ctx, []primitive.ObjectID{fresh[0].ID}, models.DecisionBypass,
		models.Lease{Token: "new", ExpiresAt: now.Add(time.Minute)}); err != nil {
		t.Fatalf("AcquireLease failed: %v", err)
	}

	n, err := store.ReapExpiredLeases(ctx, now)
	if err != nil || n != 1 {
		t.Fatalf("ReapExpiredLeases: got %d (%v), want 1", n, err)
	}
	if got, _ := store.GetByID(ctx, stale[0].ID); got.MeetingDecision != models.DecisionBypass {
		t.Errorf("stale card decision: got %s, want BYPASS", got.MeetingDecision)
	}
	if got, _ := store.GetByID(ctx, fresh[0].ID); got.MeetingDecision != models.DecisionProcessing {
		t.Errorf("fresh card decision: got %s, want PROCESSING", got.MeetingDecision)
	}
}

func TestStore_InsertManyRejectsIllegalState(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := assignmentstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	bad := models.Assignment{
		ID:          primitive.NewObjectID(),
		CustomerID:  primitive.NewObjectID(),
		ContainerID: primitive.NewObjectID(),
		AssignmentState: models.AssignmentState{
			Status:     models.StatusRejected,
			CardStatus: models.CardQualified,
		},
	}
	if err := store.InsertMany(ctx, []models.Assignment{bad}); !errors.Is(err, models.ErrIllegalTransition) {
		t.Errorf("expected ErrIllegalTransition, got %v", err)
	}
}

func TestStore_DeleteMany(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := assignmentstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c := fixtures.CreateContainer(ctx, "2025-06-20", models.ModeMeeting, 20)
	cards, _ := fixtures.CreateCards(ctx, c, testutil.CardOptions{Bypass: true}, "D1", "D2")

	n, err := store.DeleteMany(ctx, []primitive.ObjectID{cards[0].ID, cards[1].ID}, assignmentstore.Live())
	if err != nil || n != 2 {
		t.Fatalf("DeleteMany: got %d (%v), want 2", n, err)
	}
	if live, _ := store.ListLive(ctx, c.ID); len(live) != 0 {
		t.Errorf("expected no live cards, got %d", len(live))
	}
}

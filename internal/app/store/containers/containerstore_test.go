package containerstore_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	containerstore "github.com/dalemusser/sevadesk/internal/app/store/containers"
	"github.com/dalemusser/sevadesk/internal/domain/models"
	"github.com/dalemusser/sevadesk/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_GetOrCreate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := containerstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	first, err := store.GetOrCreate(ctx, "2025-06-20", models.ModeMeeting, 15)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if first.ID.IsZero() || first.Limit != 15 || first.CreatedAt.IsZero() {
		t.Errorf("unexpected container: %+v", first)
	}

	// The limit is only applied on insert.
	again, err := store.GetOrCreate(ctx, "2025-06-20", models.ModeMeeting, 40)
	if err != nil {
		t.Fatalf("second GetOrCreate failed: %v", err)
	}
	if again.ID != first.ID || again.Limit != 15 {
		t.Errorf("expected the same container with limit 15, got %+v", again)
	}

	other, err := store.GetOrCreate(ctx, "2025-06-20", models.ModeDiksha, 0)
	if err != nil {
		t.Fatalf("GetOrCreate diksha failed: %v", err)
	}
	if other.ID == first.ID || other.Limit != models.DefaultContainerLimit {
		t.Errorf("expected a distinct DIKSHA container with default limit, got %+v", other)
	}
}

func TestStore_GetOrCreate_Concurrent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := containerstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	const n = 8
	ids := make([]primitive.ObjectID, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := store.GetOrCreate(ctx, "2025-07-01", models.ModeMeeting, 20)
			ids[i], errs[i] = c.ID, err
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("GetOrCreate %d failed: %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Errorf("caller %d got container %s, want %s", i, ids[i].Hex(), ids[0].Hex())
		}
	}
}

func TestStore_UnlockAndLimit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := containerstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c := fixtures.CreateContainer(ctx, "2025-06-20", models.ModeMeeting, 20)
	admin := primitive.NewObjectID()
	until := time.Now().Add(10 * time.Minute)

	got, err := store.SetUnlock(ctx, c.ID, &until, admin)
	if err != nil {
		t.Fatalf("SetUnlock failed: %v", err)
	}
	if !got.IsUnlocked(time.Now()) || got.UnlockedByID == nil || *got.UnlockedByID != admin {
		t.Errorf("expected unlocked container, got %+v", got)
	}
	if got.IsUnlocked(until.Add(time.Second)) {
		t.Error("unlock window should end at its expiry")
	}

	got, err = store.SetUnlock(ctx, c.ID, nil, admin)
	if err != nil {
		t.Fatalf("relock failed: %v", err)
	}
	if got.UnlockExpiresAt != nil || got.UnlockedByID != nil {
		t.Errorf("expected unlock cleared, got %+v", got)
	}

	got, err = store.SetLimit(ctx, c.ID, 7)
	if err != nil || got.Limit != 7 {
		t.Errorf("SetLimit: got %+v (%v)", got, err)
	}

	if _, err := store.SetLimit(ctx, primitive.NewObjectID(), 7); !errors.Is(err, containerstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_ListRange(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := containerstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fixtures.CreateContainer(ctx, "2025-06-10", models.ModeMeeting, 20)
	fixtures.CreateContainer(ctx, "2025-06-12", models.ModeDiksha, 20)
	fixtures.CreateContainer(ctx, "2025-06-12", models.ModeMeeting, 20)
	fixtures.CreateContainer(ctx, "2025-06-30", models.ModeMeeting, 20)

	all, err := store.ListRange(ctx, "2025-06-10", "2025-06-12", "")
	if err != nil {
		t.Fatalf("ListRange failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 containers, got %d", len(all))
	}
	if all[0].Date != "2025-06-10" || all[1].Mode != models.ModeDiksha || all[2].Mode != models.ModeMeeting {
		t.Errorf("unexpected order: %v %v %v", all[0], all[1], all[2])
	}

	meetings, _ := store.ListRange(ctx, "", "", models.ModeMeeting)
	if len(meetings) != 3 {
		t.Errorf("expected 3 MEETING containers, got %d", len(meetings))
	}

	if _, err := store.Find(ctx, "2025-06-11", models.ModeMeeting); !errors.Is(err, containerstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_ListRange_FullYear(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := containerstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created := fixtures.CreateContainerRange(ctx, "2026-01-01", 365, 20, models.ModeMeeting, models.ModeDiksha)

	all, err := store.ListRange(ctx, "2026-01-01", "2026-12-31", "")
	if err != nil {
		t.Fatalf("ListRange failed: %v", err)
	}
	if len(all) != len(created) {
		t.Fatalf("expected %d containers, got %d", len(created), len(all))
	}
	if last := all[len(all)-1]; last.Date != "2026-12-31" || last.Mode != models.ModeMeeting {
		t.Errorf("last container = %s %s, want 2026-12-31 MEETING", last.Date, last.Mode)
	}
}

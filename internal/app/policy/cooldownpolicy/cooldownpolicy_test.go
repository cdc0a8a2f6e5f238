package cooldownpolicy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/sevadesk/internal/domain/models"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeSettings struct {
	byUser map[primitive.ObjectID]int
	calls  int
	err    error
}

func (f *fakeSettings) Get(_ context.Context, id primitive.ObjectID) (models.CooldownSetting, bool, error) {
	f.calls++
	if f.err != nil {
		return models.CooldownSetting{}, false, f.err
	}
	m, ok := f.byUser[id]
	if !ok {
		return models.CooldownSetting{}, false, nil
	}
	return models.CooldownSetting{UserID: id, Minutes: m, Active: true}, true, nil
}

func TestEvaluate(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	// m-1 minutes in: blocked with about a minute left.
	st := Evaluate(&t0, 5, t0.Add(4*time.Minute))
	require.True(t, st.InCooldown)
	require.Equal(t, 60, st.RemainingSec)
	require.Equal(t, t0.Add(5*time.Minute), st.ExpiresAt)

	// m+1 minutes in: free.
	st = Evaluate(&t0, 5, t0.Add(6*time.Minute))
	require.False(t, st.InCooldown)

	// Exactly at expiry: free.
	require.False(t, Evaluate(&t0, 5, t0.Add(5*time.Minute)).InCooldown)

	// Partial seconds round up.
	st = Evaluate(&t0, 2, t0.Add(119*time.Second+500*time.Millisecond))
	require.True(t, st.InCooldown)
	require.Equal(t, 1, st.RemainingSec)

	// Zero minutes or never moved: free.
	require.False(t, Evaluate(&t0, 0, t0).InCooldown)
	require.False(t, Evaluate(nil, 10, t0).InCooldown)
}

func TestMinutes_DefaultAndOverride(t *testing.T) {
	u1, u2 := primitive.NewObjectID(), primitive.NewObjectID()
	fs := &fakeSettings{byUser: map[primitive.ObjectID]int{u1: 10}}
	p := New(fs, 5, 0)

	m, err := p.Minutes(context.Background(), u1)
	require.NoError(t, err)
	require.Equal(t, 10, m)

	m, err = p.Minutes(context.Background(), u2)
	require.NoError(t, err)
	require.Equal(t, 5, m)
}

func TestMinutes_OverrideOfZeroDisables(t *testing.T) {
	u := primitive.NewObjectID()
	p := New(&fakeSettings{byUser: map[primitive.ObjectID]int{u: 0}}, 5, 0)

	t0 := time.Now()
	st, err := p.Check(context.Background(), u, &t0, t0.Add(time.Second))
	require.NoError(t, err)
	require.False(t, st.InCooldown)
}

func TestMinutes_CachesUntilTTLOrInvalidate(t *testing.T) {
	u := primitive.NewObjectID()
	fs := &fakeSettings{byUser: map[primitive.ObjectID]int{u: 2}}
	p := New(fs, 5, time.Minute)
	clock := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return clock }

	ctx := context.Background()
	_, _ = p.Minutes(ctx, u)
	_, _ = p.Minutes(ctx, u)
	require.Equal(t, 1, fs.calls)

	fs.byUser[u] = 10
	p.Invalidate(u)
	m, err := p.Minutes(ctx, u)
	require.NoError(t, err)
	require.Equal(t, 10, m)
	require.Equal(t, 2, fs.calls)

	clock = clock.Add(2 * time.Minute)
	_, _ = p.Minutes(ctx, u)
	require.Equal(t, 3, fs.calls)
}

func TestMinutes_Error(t *testing.T) {
	p := New(&fakeSettings{err: errors.New("down")}, 5, time.Minute)
	_, err := p.Minutes(context.Background(), primitive.NewObjectID())
	require.Error(t, err)
}

func TestNew_NegativeDefault(t *testing.T) {
	p := New(&fakeSettings{}, -1, 0)
	require.Equal(t, DefaultMinutes, p.Default())
}

func TestLatest(t *testing.T) {
	t0 := time.Now()
	t1 := t0.Add(time.Minute)
	cards := []models.Assignment{{LastMovedAt: &t0}, {}, {LastMovedAt: &t1}}
	require.Equal(t, &t1, Latest(cards))
	require.Nil(t, Latest([]models.Assignment{{}}))
}

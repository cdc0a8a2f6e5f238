package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/sevadesk/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLimiter_Window(t *testing.T) {
	l := New(2, time.Minute)
	defer l.Stop()
	now := time.Date(2025, 6, 20, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	require.True(t, l.Allow("a"))
	require.True(t, l.Allow("a"))
	require.False(t, l.Allow("a"))
	require.Equal(t, 0, l.Remaining("a"))
	require.True(t, l.Allow("b"), "keys are independent")

	now = now.Add(time.Minute + time.Second)
	require.Equal(t, 2, l.Remaining("a"))
	require.True(t, l.Allow("a"))

	l.Reset("b")
	require.Equal(t, 2, l.Remaining("b"))
}

func TestWrites(t *testing.T) {
	l := New(1, time.Minute)
	defer l.Stop()

	h := l.Writes(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	serve := func(req *http.Request) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	staff := testutil.StaffUser()
	require.Equal(t, http.StatusNoContent, serve(testutil.JSONRequest(t, http.MethodPost, "/x", nil, staff)).Code)

	rec := serve(testutil.JSONRequest(t, http.MethodPost, "/x", nil, staff))
	testutil.AssertError(t, rec, http.StatusTooManyRequests, CodeRateLimited)
	require.Equal(t, "60", rec.Header().Get("Retry-After"))

	// Reads are never limited; other users have their own budget.
	require.Equal(t, http.StatusNoContent, serve(testutil.JSONRequest(t, http.MethodGet, "/x", nil, staff)).Code)
	require.Equal(t, http.StatusNoContent, serve(testutil.JSONRequest(t, http.MethodPost, "/x", nil, testutil.AdminUser())).Code)

	anon := httptest.NewRequest(http.MethodPost, "/x", nil)
	anon.RemoteAddr = "10.0.0.7:5555"
	require.Equal(t, http.StatusNoContent, serve(anon).Code)
	require.Equal(t, http.StatusTooManyRequests, serve(anon).Code)
}

package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestWrite_CarriesCodeStatusAndFields(t *testing.T) {
	rec := httptest.NewRecorder()
	err := New(http.StatusTooManyRequests, "COOLDOWN_ACTIVE", "wait").With("remainingSec", 42)

	Write(rec, zap.NewNop(), fmt.Errorf("wrapped: %w", err))

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "COOLDOWN_ACTIVE" {
		t.Errorf("error = %v", body["error"])
	}
	if body["message"] != "wait" {
		t.Errorf("message = %v", body["message"])
	}
	if body["remainingSec"] != float64(42) {
		t.Errorf("remainingSec = %v", body["remainingSec"])
	}
}

func TestWrite_UnknownErrorIs500(t *testing.T) {
	rec := httptest.NewRecorder()
	Write(rec, zap.NewNop(), errors.New("boom"))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if CodeOf(errors.New("x")) != "INTERNAL" {
		t.Error("expected INTERNAL code for plain errors")
	}
}

func TestWith_DoesNotMutateOriginal(t *testing.T) {
	base := Conflict("HOUSEFULL", "full")
	_ = base.With("leg", "DIKSHA")
	if len(base.Fields) != 0 {
		t.Errorf("base fields mutated: %v", base.Fields)
	}
}

func TestOK(t *testing.T) {
	rec := httptest.NewRecorder()
	OK(rec, map[string]any{"already": true})

	var body map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body["ok"] != true || body["already"] != true {
		t.Errorf("unexpected body %v", body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

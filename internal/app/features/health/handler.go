package health

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/sevadesk/internal/app/system/datekey"
	"github.com/dalemusser/sevadesk/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Handler reports whether the service can reach Mongo and which calendar
// day it currently considers "today".
type Handler struct {
	Client *mongo.Client
	Clock  datekey.Clock
	Log    *zap.Logger
}

func NewHandler(client *mongo.Client, clock datekey.Clock, logger *zap.Logger) *Handler {
	return &Handler{Client: client, Clock: clock, Log: logger}
}

type report struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Today    string `json:"today"`
	Timezone string `json:"timezone"`
	Error    string `json:"error,omitempty"`
}

// Serve handles GET /health. It answers 503 when the primary cannot be
// pinged within the ping tier.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	rep := report{
		Status:   "ok",
		Database: "connected",
		Today:    h.Clock.Today(),
		Timezone: h.Clock.Location().String(),
	}
	code := http.StatusOK
	if err := h.Client.Ping(ctx, readpref.Primary()); err != nil {
		h.Log.Warn("health: mongo ping failed", zap.Error(err))
		code = http.StatusServiceUnavailable
		rep.Status, rep.Database, rep.Error = "unavailable", "disconnected", err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(rep)
}

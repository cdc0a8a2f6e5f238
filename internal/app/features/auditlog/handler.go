// internal/app/features/auditlog/handler.go
package auditlog

import (
	"github.com/dalemusser/sevadesk/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the admin audit feed.
type Handler struct {
	Store *audit.Store
	Log   *zap.Logger
}

// NewHandler constructs an audit feed handler bound to the given Mongo
// database and logger.
func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		Store: audit.New(db),
		Log:   logger,
	}
}

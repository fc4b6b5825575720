package handler

import (
	"go.uber.org/zap"

	"github.com/frotalog/registro/internal/apiserver/database"
	"github.com/frotalog/registro/internal/apiserver/sync"
	"github.com/frotalog/registro/internal/auth/jwt"
	"github.com/frotalog/registro/pkg/metrics"
)

// Handler bundles the dependencies shared by all HTTP handlers.
type Handler struct {
	db         database.Database
	jwtService *jwt.Service
	syncSvc    *sync.Service
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewHandler creates a new handler
func NewHandler(db database.Database, jwtService *jwt.Service, syncSvc *sync.Service, m *metrics.Metrics, logger *zap.Logger) *Handler {
	return &Handler{
		db:         db,
		jwtService: jwtService,
		syncSvc:    syncSvc,
		metrics:    m,
		logger:     logger.Named("handler"),
	}
}

package usecase

import (
	"github.com/ishiev/rtiles/internal/repository/access"
	"github.com/ishiev/rtiles/internal/repository/registry"
	"github.com/ishiev/rtiles/pkg/logger"
)

// AdminUseCase evicts cached state out of band, e.g. after permissions
// change in the authority or a model is republished.
type AdminUseCase struct {
	access   *access.Cache
	registry registry.Registry
	logger   logger.Logger
}

func NewAdminUseCase(a *access.Cache, r registry.Registry, l logger.Logger) *AdminUseCase {
	return &AdminUseCase{access: a, registry: r, logger: l}
}

func (uc *AdminUseCase) InvalidateModel(model string) {
	uc.access.InvalidateModel(model)
	uc.registry.Invalidate(model)
	uc.logger.Info("invalidated model", "model", model)
}

func (uc *AdminUseCase) InvalidateSession(sessionID string) {
	uc.access.InvalidateSession(sessionID)
	uc.logger.Info("invalidated session")
}

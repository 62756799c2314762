package usecase

import (
	"context"

	"github.com/ishiev/rtiles/internal/repository/access"
	"github.com/ishiev/rtiles/internal/stat"
)

// StatUseCase exposes usage metrics behind the same permission check as
// the tiles themselves. The server-wide total uses the empty model scope.
type StatUseCase struct {
	access *access.Cache
	stat   *stat.Stat
}

func NewStatUseCase(a *access.Cache, s *stat.Stat) *StatUseCase {
	return &StatUseCase{access: a, stat: s}
}

func (uc *StatUseCase) Get(ctx context.Context, session access.Session, model string) (stat.Metrics, error) {
	decision, err := uc.access.GetOrResolve(ctx, session, model)
	if err != nil {
		return stat.Metrics{}, err
	}
	if decision != access.Allowed {
		return stat.Metrics{}, ErrForbidden
	}

	m, _ := uc.stat.Get(stat.Key{Model: model})
	return m, nil
}

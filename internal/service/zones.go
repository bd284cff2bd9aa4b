package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/lalith-99/territorydesk/internal/apperr"
	"github.com/lalith-99/territorydesk/internal/models"
	"github.com/lalith-99/territorydesk/internal/repository"
	"go.uber.org/zap"
)

func (s *Service) CreateZone(ctx context.Context, name string) (*models.Zone, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("zone name is required")
	}
	z, err := s.store.Zones.Create(ctx, name)
	if err != nil {
		return nil, apperr.Store("create zone", err)
	}
	s.logger.Info("zone created", zap.String("zone_id", z.ID.String()), zap.String("name", z.Name))
	return z, nil
}

func (s *Service) GetZone(ctx context.Context, id uuid.UUID) (*models.Zone, error) {
	z, err := s.store.Zones.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Store("get zone", err)
	}
	if z == nil {
		return nil, apperr.NotFound("zone not found")
	}
	return z, nil
}

func (s *Service) ListZones(ctx context.Context) ([]models.Zone, error) {
	zones, err := s.store.Zones.List(ctx)
	if err != nil {
		return nil, apperr.Store("list zones", err)
	}
	return zones, nil
}

func (s *Service) RenameZone(ctx context.Context, id uuid.UUID, name string) (*models.Zone, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("zone name is required")
	}
	z, err := s.store.Zones.Rename(ctx, id, name)
	if err != nil {
		return nil, apperr.Store("rename zone", err)
	}
	if z == nil {
		return nil, apperr.NotFound("zone not found")
	}
	return z, nil
}

// DeleteZone refuses while any territory references the zone. Territories
// are never deleted or detached as a side effect.
func (s *Service) DeleteZone(ctx context.Context, id uuid.UUID) error {
	n, err := s.store.Zones.CountTerritories(ctx, id)
	if err != nil {
		return apperr.Store("delete zone", err)
	}
	if n > 0 {
		return apperr.Conflict("zone still has %d territories; move or delete them first", n)
	}

	deleted, err := s.store.Zones.Delete(ctx, id)
	if errors.Is(err, repository.ErrStillReferenced) {
		// A territory was added between the count and the delete.
		return apperr.Conflict("zone still has territories; move or delete them first")
	}
	if err != nil {
		return apperr.Store("delete zone", err)
	}
	if !deleted {
		return apperr.NotFound("zone not found")
	}
	s.logger.Info("zone deleted", zap.String("zone_id", id.String()))
	return nil
}

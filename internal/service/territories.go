package service

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/lalith-99/territorydesk/internal/apperr"
	"github.com/lalith-99/territorydesk/internal/lifecycle"
	"github.com/lalith-99/territorydesk/internal/models"
	"github.com/lalith-99/territorydesk/internal/repository"
	"go.uber.org/zap"
)

// TerritoryInput is the raw territory form. DangerLevel may be empty,
// which means none.
type TerritoryInput struct {
	Name        string
	ZoneID      *uuid.UUID
	MapURL      *string
	DangerLevel models.DangerLevel
	Warnings    *string
}

func (s *Service) normalizeTerritory(ctx context.Context, in TerritoryInput) (models.TerritoryInput, error) {
	out := models.TerritoryInput{
		Name:        strings.TrimSpace(in.Name),
		ZoneID:      in.ZoneID,
		MapURL:      models.OptionalText(in.MapURL),
		DangerLevel: models.DangerLevel(strings.ToLower(strings.TrimSpace(string(in.DangerLevel)))),
		Warnings:    models.OptionalText(in.Warnings),
	}
	if out.Name == "" {
		return out, apperr.Validation("territory name is required")
	}
	if out.DangerLevel == "" {
		out.DangerLevel = models.DangerNone
	}
	if !out.DangerLevel.Valid() {
		return out, apperr.Validation("unknown danger level %q", in.DangerLevel)
	}
	if out.MapURL != nil {
		u, err := url.Parse(*out.MapURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return out, apperr.Validation("map url must be an http(s) link")
		}
	}
	if out.ZoneID != nil {
		z, err := s.store.Zones.GetByID(ctx, *out.ZoneID)
		if err != nil {
			return out, apperr.Store("get zone", err)
		}
		if z == nil {
			return out, apperr.Validation("zone does not exist")
		}
	}
	return out, nil
}

func (s *Service) CreateTerritory(ctx context.Context, in TerritoryInput) (*TerritoryView, error) {
	norm, err := s.normalizeTerritory(ctx, in)
	if err != nil {
		return nil, err
	}
	t, err := s.store.Territories.Create(ctx, norm)
	if errors.Is(err, repository.ErrReferenceMissing) {
		return nil, apperr.Validation("zone does not exist")
	}
	if err != nil {
		return nil, apperr.Store("create territory", err)
	}
	s.logger.Info("territory created", zap.String("territory_id", t.ID.String()), zap.String("name", t.Name))
	v := territoryView(models.TerritoryWithAssignment{Territory: *t}, s.now())
	return &v, nil
}

// GetTerritory returns the territory with its derived status and, while it
// is held, the current assignment.
func (s *Service) GetTerritory(ctx context.Context, id uuid.UUID) (*TerritoryView, error) {
	row, err := s.store.Territories.GetWithLatest(ctx, id)
	if err != nil {
		return nil, apperr.Store("get territory", err)
	}
	if row == nil {
		return nil, apperr.NotFound("territory not found")
	}
	v := territoryView(*row, s.now())
	return &v, nil
}

func (s *Service) ListTerritories(ctx context.Context, filter models.TerritoryFilter) ([]TerritoryView, error) {
	rows, err := s.store.Territories.List(ctx, filter)
	if err != nil {
		return nil, apperr.Store("list territories", err)
	}
	now := s.now()
	out := make([]TerritoryView, 0, len(rows))
	for _, row := range rows {
		out = append(out, territoryView(row, now))
	}
	return out, nil
}

func (s *Service) UpdateTerritory(ctx context.Context, id uuid.UUID, in TerritoryInput) (*TerritoryView, error) {
	norm, err := s.normalizeTerritory(ctx, in)
	if err != nil {
		return nil, err
	}
	t, err := s.store.Territories.Update(ctx, id, norm)
	if errors.Is(err, repository.ErrReferenceMissing) {
		return nil, apperr.Validation("zone does not exist")
	}
	if err != nil {
		return nil, apperr.Store("update territory", err)
	}
	if t == nil {
		return nil, apperr.NotFound("territory not found")
	}
	return s.GetTerritory(ctx, t.ID)
}

// DeleteTerritory removes a territory and its assignment history. It is
// refused while the territory is held by an active assignment.
func (s *Service) DeleteTerritory(ctx context.Context, id uuid.UUID) error {
	row, err := s.store.Territories.GetWithLatest(ctx, id)
	if err != nil {
		return apperr.Store("delete territory", err)
	}
	if row == nil {
		return apperr.NotFound("territory not found")
	}
	if lifecycle.IsActive(row.Latest, s.now()) {
		return apperr.Conflict("territory is assigned; return it before deleting")
	}

	deleted, err := s.store.Territories.Delete(ctx, id)
	if err != nil {
		return apperr.Store("delete territory", err)
	}
	if !deleted {
		return apperr.NotFound("territory not found")
	}
	s.logger.Info("territory deleted", zap.String("territory_id", id.String()))
	return nil
}

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

func (s *Service) CreatePublisher(ctx context.Context, name string, roles []string) (*models.Publisher, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("publisher name is required")
	}
	p, err := s.store.Publishers.Create(ctx, name, models.NormalizeRoles(roles))
	if err != nil {
		return nil, apperr.Store("create publisher", err)
	}
	s.logger.Info("publisher created", zap.String("publisher_id", p.ID.String()))
	return p, nil
}

func (s *Service) GetPublisher(ctx context.Context, id uuid.UUID) (*models.Publisher, error) {
	p, err := s.store.Publishers.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Store("get publisher", err)
	}
	if p == nil {
		return nil, apperr.NotFound("publisher not found")
	}
	return p, nil
}

func (s *Service) ListPublishers(ctx context.Context) ([]models.Publisher, error) {
	pubs, err := s.store.Publishers.List(ctx)
	if err != nil {
		return nil, apperr.Store("list publishers", err)
	}
	return pubs, nil
}

// UpdatePublisher replaces the name and the whole role set.
func (s *Service) UpdatePublisher(ctx context.Context, id uuid.UUID, name string, roles []string) (*models.Publisher, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("publisher name is required")
	}
	p, err := s.store.Publishers.Update(ctx, id, name, models.NormalizeRoles(roles))
	if err != nil {
		return nil, apperr.Store("update publisher", err)
	}
	if p == nil {
		return nil, apperr.NotFound("publisher not found")
	}
	return p, nil
}

// DeletePublisher is refused while any assignment, current or historical,
// references the publisher.
func (s *Service) DeletePublisher(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.store.Publishers.Delete(ctx, id)
	if errors.Is(err, repository.ErrStillReferenced) {
		return apperr.Conflict("publisher has assignment history and cannot be deleted")
	}
	if err != nil {
		return apperr.Store("delete publisher", err)
	}
	if !deleted {
		return apperr.NotFound("publisher not found")
	}
	s.logger.Info("publisher deleted", zap.String("publisher_id", id.String()))
	return nil
}

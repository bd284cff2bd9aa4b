package service

import (
	"context"

	"github.com/lalith-99/territorydesk/internal/apperr"
	"github.com/lalith-99/territorydesk/internal/models"
	"go.uber.org/zap"
)

// GetSettings returns the global settings, falling back to the defaults
// when the row has never been written.
func (s *Service) GetSettings(ctx context.Context) (models.AppSettings, error) {
	st, err := s.store.Settings.Get(ctx)
	if err != nil {
		return models.AppSettings{}, apperr.Store("get settings", err)
	}
	if st == nil || st.TerritoryLinkDays <= 0 {
		return models.AppSettings{TerritoryLinkDays: models.DefaultTerritoryLinkDays}, nil
	}
	return *st, nil
}

// UpdateSettings overwrites the settings row. Concurrent writers race and
// the last one wins.
func (s *Service) UpdateSettings(ctx context.Context, linkDays int) (models.AppSettings, error) {
	if linkDays <= 0 {
		return models.AppSettings{}, apperr.Validation("territory_link_days must be a positive integer")
	}
	st, err := s.store.Settings.Update(ctx, linkDays, s.now())
	if err != nil {
		return models.AppSettings{}, apperr.Store("update settings", err)
	}
	s.logger.Info("settings updated", zap.Int("territory_link_days", st.TerritoryLinkDays))
	return *st, nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/territorydesk/internal/models"
)

type SettingsStore struct {
	pool *pgxpool.Pool
}

func NewSettingsStore(pool *pgxpool.Pool) *SettingsStore {
	return &SettingsStore{pool: pool}
}

func (s *SettingsStore) Get(ctx context.Context) (*models.AppSettings, error) {
	var st models.AppSettings
	err := s.pool.QueryRow(ctx,
		`SELECT territory_link_days, updated_at FROM app_settings WHERE id = 1`,
	).Scan(&st.TerritoryLinkDays, &st.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return &st, nil
}

// Update upserts the single row. Concurrent writers simply overwrite each
// other.
func (s *SettingsStore) Update(ctx context.Context, linkDays int, at time.Time) (*models.AppSettings, error) {
	query := `
		INSERT INTO app_settings (id, territory_link_days, updated_at)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE
		SET territory_link_days = EXCLUDED.territory_link_days, updated_at = EXCLUDED.updated_at
		RETURNING territory_link_days, updated_at`

	var st models.AppSettings
	if err := s.pool.QueryRow(ctx, query, linkDays, at).Scan(&st.TerritoryLinkDays, &st.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}
	return &st, nil
}

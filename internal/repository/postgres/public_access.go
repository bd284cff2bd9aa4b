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

type PublicAccessStore struct {
	pool *pgxpool.Pool
}

func NewPublicAccessStore(pool *pgxpool.Pool) *PublicAccessStore {
	return &PublicAccessStore{pool: pool}
}

func (s *PublicAccessStore) GetByToken(ctx context.Context, token string) (*models.PublicAccess, error) {
	query := `
		SELECT token, assignment_id, territory_id, territory_name, map_url, danger_level, warnings,
		       publisher_id, publisher_name, assigned_at, expires_at, returned_at, is_expired, refreshed_at
		FROM public_territory_access
		WHERE token = $1`

	var (
		pa     models.PublicAccess
		danger string
	)
	err := s.pool.QueryRow(ctx, query, token).Scan(
		&pa.Token,
		&pa.AssignmentID,
		&pa.TerritoryID,
		&pa.TerritoryName,
		&pa.MapURL,
		&danger,
		&pa.Warnings,
		&pa.PublisherID,
		&pa.PublisherName,
		&pa.AssignedAt,
		&pa.ExpiresAt,
		&pa.ReturnedAt,
		&pa.IsExpired,
		&pa.RefreshedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get public access: %w", err)
	}
	pa.DangerLevel = models.DangerLevel(danger)
	pa.MapURL = models.OptionalText(pa.MapURL)
	pa.Warnings = models.OptionalText(pa.Warnings)
	return &pa, nil
}

// MarkExpired and MarkUnexpired only touch rows still holding the wrong
// flag, so a retry after a partial failure redoes just the remainder.

func (s *PublicAccessStore) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE public_territory_access
		SET is_expired = true
		WHERE expires_at < $1 AND is_expired = false`,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("mark snapshots expired: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PublicAccessStore) MarkUnexpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE public_territory_access
		SET is_expired = false
		WHERE expires_at >= $1 AND is_expired = true`,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("mark snapshots unexpired: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Refresh rebuilds the projection from the authoritative tables in a
// single statement. The IS DISTINCT FROM guard keeps unchanged rows from
// being rewritten, so RowsAffected counts real changes only.
func (s *PublicAccessStore) Refresh(ctx context.Context, now time.Time) (int64, error) {
	query := `
		INSERT INTO public_territory_access AS pa (
			token, assignment_id, territory_id, territory_name, map_url, danger_level, warnings,
			publisher_id, publisher_name, assigned_at, expires_at, returned_at, is_expired, refreshed_at)
		SELECT a.token, a.id, t.id, t.name, t.map_url, t.danger_level, t.warnings,
		       p.id, p.name, a.assigned_at, a.expires_at, a.returned_at,
		       (a.status = 'expired' OR (a.expires_at IS NOT NULL AND a.expires_at < $1)),
		       $1
		FROM assigned_territories a
		JOIN territories t ON t.id = a.territory_id
		JOIN publishers p ON p.id = a.publisher_id
		ON CONFLICT (token) DO UPDATE SET
			assignment_id  = EXCLUDED.assignment_id,
			territory_id   = EXCLUDED.territory_id,
			territory_name = EXCLUDED.territory_name,
			map_url        = EXCLUDED.map_url,
			danger_level   = EXCLUDED.danger_level,
			warnings       = EXCLUDED.warnings,
			publisher_id   = EXCLUDED.publisher_id,
			publisher_name = EXCLUDED.publisher_name,
			assigned_at    = EXCLUDED.assigned_at,
			expires_at     = EXCLUDED.expires_at,
			returned_at    = EXCLUDED.returned_at,
			is_expired     = EXCLUDED.is_expired,
			refreshed_at   = EXCLUDED.refreshed_at
		WHERE (pa.assignment_id, pa.territory_id, pa.territory_name, pa.map_url, pa.danger_level,
		       pa.warnings, pa.publisher_id, pa.publisher_name, pa.assigned_at, pa.expires_at,
		       pa.returned_at, pa.is_expired)
		IS DISTINCT FROM
		      (EXCLUDED.assignment_id, EXCLUDED.territory_id, EXCLUDED.territory_name, EXCLUDED.map_url,
		       EXCLUDED.danger_level, EXCLUDED.warnings, EXCLUDED.publisher_id, EXCLUDED.publisher_name,
		       EXCLUDED.assigned_at, EXCLUDED.expires_at, EXCLUDED.returned_at, EXCLUDED.is_expired)`

	tag, err := s.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("refresh public access: %w", err)
	}
	return tag.RowsAffected(), nil
}

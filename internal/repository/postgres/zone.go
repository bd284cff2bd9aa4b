package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/territorydesk/internal/models"
)

type ZoneStore struct {
	pool *pgxpool.Pool
}

func NewZoneStore(pool *pgxpool.Pool) *ZoneStore {
	return &ZoneStore{pool: pool}
}

func (s *ZoneStore) Create(ctx context.Context, name string) (*models.Zone, error) {
	query := `
		INSERT INTO zones (name, created_at)
		VALUES ($1, now())
		RETURNING id, name, created_at`

	var z models.Zone
	err := s.pool.QueryRow(ctx, query, name).Scan(&z.ID, &z.Name, &z.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert zone: %w", err)
	}
	return &z, nil
}

func (s *ZoneStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Zone, error) {
	query := `
		SELECT id, name, created_at
		FROM zones
		WHERE id = $1`

	var z models.Zone
	err := s.pool.QueryRow(ctx, query, id).Scan(&z.ID, &z.Name, &z.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get zone: %w", err)
	}
	return &z, nil
}

func (s *ZoneStore) List(ctx context.Context) ([]models.Zone, error) {
	query := `
		SELECT id, name, created_at
		FROM zones
		ORDER BY lower(name), id`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list zones: %w", err)
	}
	defer rows.Close()

	zones := make([]models.Zone, 0)
	for rows.Next() {
		var z models.Zone
		if err := rows.Scan(&z.ID, &z.Name, &z.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan zone: %w", err)
		}
		zones = append(zones, z)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate zones: %w", err)
	}
	return zones, nil
}

func (s *ZoneStore) Rename(ctx context.Context, id uuid.UUID, name string) (*models.Zone, error) {
	query := `
		UPDATE zones SET name = $2
		WHERE id = $1
		RETURNING id, name, created_at`

	var z models.Zone
	err := s.pool.QueryRow(ctx, query, id, name).Scan(&z.ID, &z.Name, &z.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("rename zone: %w", err)
	}
	return &z, nil
}

// Delete relies on the RESTRICT foreign key from territories: a zone that
// is still referenced fails with ErrStillReferenced and nothing is removed.
func (s *ZoneStore) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM zones WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete zone: %w", mapDeleteError(err))
	}
	return tag.RowsAffected() > 0, nil
}

func (s *ZoneStore) CountTerritories(ctx context.Context, id uuid.UUID) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM territories WHERE zone_id = $1`, id).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count zone territories: %w", err)
	}
	return n, nil
}

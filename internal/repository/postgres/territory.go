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

type TerritoryStore struct {
	pool *pgxpool.Pool
}

func NewTerritoryStore(pool *pgxpool.Pool) *TerritoryStore {
	return &TerritoryStore{pool: pool}
}

const territoryColumns = `t.id, t.name, t.zone_id, t.map_url, t.danger_level, t.warnings, t.created_at, t.updated_at`

// territoryWithLatestSelect joins each territory with its newest assignment
// and that assignment's publisher. The lateral subquery uses the
// (territory_id, assigned_at DESC) index.
const territoryWithLatestSelect = `
	SELECT ` + territoryColumns + `,
		a.id, a.territory_id, a.publisher_id, a.assigned_at, a.expires_at, a.status, a.returned_at, a.token,
		p.name
	FROM territories t
	LEFT JOIN LATERAL (
		SELECT *
		FROM assigned_territories
		WHERE territory_id = t.id
		ORDER BY assigned_at DESC
		LIMIT 1
	) a ON true
	LEFT JOIN publishers p ON p.id = a.publisher_id`

func scanTerritory(row scanner) (*models.Territory, error) {
	var t models.Territory
	var danger string
	if err := row.Scan(
		&t.ID,
		&t.Name,
		&t.ZoneID,
		&t.MapURL,
		&danger,
		&t.Warnings,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	t.DangerLevel = models.DangerLevel(danger)
	t.MapURL = models.OptionalText(t.MapURL)
	t.Warnings = models.OptionalText(t.Warnings)
	return &t, nil
}

func scanTerritoryWithLatest(row scanner) (*models.TerritoryWithAssignment, error) {
	var (
		out    models.TerritoryWithAssignment
		danger string
		latest nullableAssignment
	)
	if err := row.Scan(
		&out.ID,
		&out.Name,
		&out.ZoneID,
		&out.MapURL,
		&danger,
		&out.Warnings,
		&out.CreatedAt,
		&out.UpdatedAt,
		&latest.ID,
		&latest.TerritoryID,
		&latest.PublisherID,
		&latest.AssignedAt,
		&latest.ExpiresAt,
		&latest.Status,
		&latest.ReturnedAt,
		&latest.Token,
		&out.PublisherName,
	); err != nil {
		return nil, err
	}
	out.DangerLevel = models.DangerLevel(danger)
	out.MapURL = models.OptionalText(out.MapURL)
	out.Warnings = models.OptionalText(out.Warnings)
	out.Latest = latest.toModel()
	return &out, nil
}

func (s *TerritoryStore) Create(ctx context.Context, in models.TerritoryInput) (*models.Territory, error) {
	query := `
		INSERT INTO territories AS t (name, zone_id, map_url, danger_level, warnings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING ` + territoryColumns

	row := s.pool.QueryRow(ctx, query, in.Name, in.ZoneID, in.MapURL, string(in.DangerLevel), in.Warnings)
	t, err := scanTerritory(row)
	if err != nil {
		return nil, fmt.Errorf("insert territory: %w", mapWriteError(err))
	}
	return t, nil
}

func (s *TerritoryStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Territory, error) {
	query := `SELECT ` + territoryColumns + ` FROM territories t WHERE t.id = $1`

	t, err := scanTerritory(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get territory: %w", err)
	}
	return t, nil
}

func (s *TerritoryStore) GetWithLatest(ctx context.Context, id uuid.UUID) (*models.TerritoryWithAssignment, error) {
	query := territoryWithLatestSelect + ` WHERE t.id = $1`

	t, err := scanTerritoryWithLatest(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get territory with assignment: %w", err)
	}
	return t, nil
}

func (s *TerritoryStore) List(ctx context.Context, filter models.TerritoryFilter) ([]models.TerritoryWithAssignment, error) {
	query := territoryWithLatestSelect + `
		WHERE ($1::uuid IS NULL OR t.zone_id = $1)
		ORDER BY lower(t.name), t.id`

	rows, err := s.pool.Query(ctx, query, filter.ZoneID)
	if err != nil {
		return nil, fmt.Errorf("list territories: %w", err)
	}
	defer rows.Close()

	territories := make([]models.TerritoryWithAssignment, 0)
	for rows.Next() {
		t, err := scanTerritoryWithLatest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan territory: %w", err)
		}
		territories = append(territories, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate territories: %w", err)
	}
	return territories, nil
}

func (s *TerritoryStore) Update(ctx context.Context, id uuid.UUID, in models.TerritoryInput) (*models.Territory, error) {
	query := `
		UPDATE territories AS t
		SET name = $2, zone_id = $3, map_url = $4, danger_level = $5, warnings = $6, updated_at = now()
		WHERE t.id = $1
		RETURNING ` + territoryColumns

	row := s.pool.QueryRow(ctx, query, id, in.Name, in.ZoneID, in.MapURL, string(in.DangerLevel), in.Warnings)
	t, err := scanTerritory(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("update territory: %w", mapWriteError(err))
	}
	return t, nil
}

// Delete cascades to assigned_territories and, through the token foreign
// key, to public_territory_access.
func (s *TerritoryStore) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM territories WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete territory: %w", mapDeleteError(err))
	}
	return tag.RowsAffected() > 0, nil
}

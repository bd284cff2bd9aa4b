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

type PublisherStore struct {
	pool *pgxpool.Pool
}

func NewPublisherStore(pool *pgxpool.Pool) *PublisherStore {
	return &PublisherStore{pool: pool}
}

// publisherSelect folds publisher_roles into a sorted text[]; publishers
// without roles get an empty array rather than NULL.
const publisherSelect = `
	SELECT p.id, p.name, p.created_at,
		COALESCE(array_agg(r.role ORDER BY r.role) FILTER (WHERE r.role IS NOT NULL), '{}')
	FROM publishers p
	LEFT JOIN publisher_roles r ON r.publisher_id = p.id`

func scanPublisher(row scanner) (*models.Publisher, error) {
	var p models.Publisher
	if err := row.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.Roles); err != nil {
		return nil, err
	}
	if p.Roles == nil {
		p.Roles = []string{}
	}
	return &p, nil
}

// Create inserts the publisher and its roles in one transaction.
func (s *PublisherStore) Create(ctx context.Context, name string, roles []string) (*models.Publisher, error) {
	var id uuid.UUID
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO publishers (name, created_at) VALUES ($1, now()) RETURNING id`,
			name,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert publisher: %w", err)
		}
		return replaceRoles(ctx, tx, id, roles)
	})
	if err != nil {
		return nil, err
	}

	p, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("publisher %s vanished after insert", id)
	}
	return p, nil
}

func (s *PublisherStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Publisher, error) {
	query := publisherSelect + `
		WHERE p.id = $1
		GROUP BY p.id`

	p, err := scanPublisher(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get publisher: %w", err)
	}
	return p, nil
}

func (s *PublisherStore) List(ctx context.Context) ([]models.Publisher, error) {
	query := publisherSelect + `
		GROUP BY p.id
		ORDER BY lower(p.name), p.id`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list publishers: %w", err)
	}
	defer rows.Close()

	publishers := make([]models.Publisher, 0)
	for rows.Next() {
		p, err := scanPublisher(rows)
		if err != nil {
			return nil, fmt.Errorf("scan publisher: %w", err)
		}
		publishers = append(publishers, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate publishers: %w", err)
	}
	return publishers, nil
}

func (s *PublisherStore) Update(ctx context.Context, id uuid.UUID, name string, roles []string) (*models.Publisher, error) {
	found := true
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE publishers SET name = $2 WHERE id = $1`, id, name)
		if err != nil {
			return fmt.Errorf("update publisher: %w", err)
		}
		if tag.RowsAffected() == 0 {
			found = false
			return nil
		}
		return replaceRoles(ctx, tx, id, roles)
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return s.GetByID(ctx, id)
}

// Delete relies on the RESTRICT foreign key from assigned_territories.
func (s *PublisherStore) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM publishers WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete publisher: %w", mapDeleteError(err))
	}
	return tag.RowsAffected() > 0, nil
}

func replaceRoles(ctx context.Context, tx pgx.Tx, id uuid.UUID, roles []string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM publisher_roles WHERE publisher_id = $1`, id); err != nil {
		return fmt.Errorf("clear publisher roles: %w", err)
	}
	if len(roles) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO publisher_roles (publisher_id, role)
		SELECT $1, unnest($2::text[])
		ON CONFLICT DO NOTHING`,
		id, roles,
	)
	if err != nil {
		return fmt.Errorf("insert publisher roles: %w", err)
	}
	return nil
}

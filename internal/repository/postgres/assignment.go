package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/territorydesk/internal/models"
)

type AssignmentStore struct {
	pool *pgxpool.Pool
}

func NewAssignmentStore(pool *pgxpool.Pool) *AssignmentStore {
	return &AssignmentStore{pool: pool}
}

const assignmentColumns = `a.id, a.territory_id, a.publisher_id, a.assigned_at, a.expires_at, a.status, a.returned_at, a.token`

const assignmentDetailSelect = `
	SELECT ` + assignmentColumns + `, t.name, p.name
	FROM assigned_territories a
	JOIN territories t ON t.id = a.territory_id
	JOIN publishers p ON p.id = a.publisher_id`

func scanAssignment(row scanner) (*models.Assignment, error) {
	var a models.Assignment
	var status string
	if err := row.Scan(
		&a.ID,
		&a.TerritoryID,
		&a.PublisherID,
		&a.AssignedAt,
		&a.ExpiresAt,
		&status,
		&a.ReturnedAt,
		&a.Token,
	); err != nil {
		return nil, err
	}
	a.Status = models.AssignmentStatus(status)
	return &a, nil
}

func scanAssignmentDetail(row scanner) (*models.AssignmentDetail, error) {
	var d models.AssignmentDetail
	var status string
	if err := row.Scan(
		&d.ID,
		&d.TerritoryID,
		&d.PublisherID,
		&d.AssignedAt,
		&d.ExpiresAt,
		&status,
		&d.ReturnedAt,
		&d.Token,
		&d.TerritoryName,
		&d.PublisherName,
	); err != nil {
		return nil, err
	}
	d.Status = models.AssignmentStatus(status)
	return &d, nil
}

// nullableAssignment receives the columns of a LEFT JOINed assignment,
// which are all NULL when the territory was never assigned.
type nullableAssignment struct {
	ID          *uuid.UUID
	TerritoryID *uuid.UUID
	PublisherID *uuid.UUID
	AssignedAt  *time.Time
	ExpiresAt   *time.Time
	Status      *string
	ReturnedAt  *time.Time
	Token       *string
}

func (n nullableAssignment) toModel() *models.Assignment {
	if n.ID == nil {
		return nil
	}
	a := &models.Assignment{
		ID:         *n.ID,
		ExpiresAt:  n.ExpiresAt,
		ReturnedAt: n.ReturnedAt,
	}
	if n.TerritoryID != nil {
		a.TerritoryID = *n.TerritoryID
	}
	if n.PublisherID != nil {
		a.PublisherID = *n.PublisherID
	}
	if n.AssignedAt != nil {
		a.AssignedAt = *n.AssignedAt
	}
	if n.Status != nil {
		a.Status = models.AssignmentStatus(*n.Status)
	}
	if n.Token != nil {
		a.Token = *n.Token
	}
	return a
}

func (s *AssignmentStore) Create(ctx context.Context, in models.NewAssignment) (*models.Assignment, error) {
	query := `
		INSERT INTO assigned_territories AS a (territory_id, publisher_id, assigned_at, expires_at, status, token)
		VALUES ($1, $2, $3, $4, 'assigned', $5)
		RETURNING ` + assignmentColumns

	row := s.pool.QueryRow(ctx, query, in.TerritoryID, in.PublisherID, in.AssignedAt, in.ExpiresAt, in.Token)
	a, err := scanAssignment(row)
	if err != nil {
		return nil, fmt.Errorf("insert assignment: %w", mapWriteError(err))
	}
	return a, nil
}

// Reassign closes the territory's expired open rows and inserts the new one
// in a single transaction. A holder that is still active keeps its row, so
// the INSERT trips the one-active index and the close-out rolls back too.
func (s *AssignmentStore) Reassign(ctx context.Context, in models.NewAssignment, now time.Time) (*models.Assignment, []uuid.UUID, error) {
	closeQuery := `
		UPDATE assigned_territories
		SET status = 'returned', returned_at = $2
		WHERE territory_id = $1
		  AND returned_at IS NULL
		  AND (status = 'expired' OR (status = 'assigned' AND expires_at < $2))
		RETURNING id`

	insertQuery := `
		INSERT INTO assigned_territories AS a (territory_id, publisher_id, assigned_at, expires_at, status, token)
		VALUES ($1, $2, $3, $4, 'assigned', $5)
		RETURNING ` + assignmentColumns

	var (
		a      *models.Assignment
		closed []uuid.UUID
	)
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, closeQuery, in.TerritoryID, now)
		if err != nil {
			return fmt.Errorf("close expired assignments: %w", err)
		}
		closed, err = pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
		if err != nil {
			return fmt.Errorf("close expired assignments: %w", err)
		}

		row := tx.QueryRow(ctx, insertQuery, in.TerritoryID, in.PublisherID, in.AssignedAt, in.ExpiresAt, in.Token)
		a, err = scanAssignment(row)
		if err != nil {
			return fmt.Errorf("insert assignment: %w", mapWriteError(err))
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return a, closed, nil
}

func (s *AssignmentStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assigned_territories a WHERE a.id = $1`

	a, err := scanAssignment(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	return a, nil
}

func (s *AssignmentStore) GetByToken(ctx context.Context, token string) (*models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assigned_territories a WHERE a.token = $1`

	a, err := scanAssignment(s.pool.QueryRow(ctx, query, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get assignment by token: %w", err)
	}
	return a, nil
}

func (s *AssignmentStore) List(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, error) {
	query := assignmentDetailSelect + `
		WHERE ($1::uuid IS NULL OR a.territory_id = $1)
		  AND ($2::uuid IS NULL OR a.publisher_id = $2)
		  AND (NOT $3 OR (a.returned_at IS NULL AND a.status <> 'returned'))
		ORDER BY a.assigned_at DESC`

	return s.listDetails(ctx, "list assignments", query, filter.TerritoryID, filter.PublisherID, filter.OpenOnly)
}

func (s *AssignmentStore) ListActiveByPublisher(ctx context.Context, publisherID uuid.UUID, now time.Time) ([]models.AssignmentDetail, error) {
	query := assignmentDetailSelect + `
		WHERE a.publisher_id = $1
		  AND a.status = 'assigned'
		  AND a.returned_at IS NULL
		  AND (a.expires_at IS NULL OR a.expires_at >= $2)
		ORDER BY a.assigned_at DESC`

	return s.listDetails(ctx, "list active assignments", query, publisherID, now)
}

func (s *AssignmentStore) listDetails(ctx context.Context, op, query string, args ...any) ([]models.AssignmentDetail, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := make([]models.AssignmentDetail, 0)
	for rows.Next() {
		d, err := scanAssignmentDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignments: %w", err)
	}
	return out, nil
}

// MarkReturned is a conditional update keyed on returned_at IS NULL, so a
// retried or concurrent return never overwrites the first returned_at.
func (s *AssignmentStore) MarkReturned(ctx context.Context, id uuid.UUID, at time.Time) (*models.Assignment, bool, error) {
	query := `
		UPDATE assigned_territories AS a
		SET status = 'returned', returned_at = $2
		WHERE a.id = $1 AND a.returned_at IS NULL
		RETURNING ` + assignmentColumns

	return s.conditionalUpdate(ctx, "return assignment", id, query, id, at)
}

func (s *AssignmentStore) MarkExpired(ctx context.Context, id uuid.UUID, at time.Time) (*models.Assignment, bool, error) {
	query := `
		UPDATE assigned_territories AS a
		SET status = 'expired',
		    expires_at = CASE WHEN a.expires_at IS NULL OR a.expires_at > $2 THEN $2 ELSE a.expires_at END
		WHERE a.id = $1 AND a.status = 'assigned' AND a.returned_at IS NULL
		RETURNING ` + assignmentColumns

	return s.conditionalUpdate(ctx, "expire assignment", id, query, id, at)
}

// conditionalUpdate runs an UPDATE ... RETURNING that may match no row. In
// that case the current row is read back so callers always see the state
// they raced against.
func (s *AssignmentStore) conditionalUpdate(ctx context.Context, op string, id uuid.UUID, query string, args ...any) (*models.Assignment, bool, error) {
	a, err := scanAssignment(s.pool.QueryRow(ctx, query, args...))
	if err == nil {
		return a, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return current, false, nil
}

func (s *AssignmentStore) ReturnStale(ctx context.Context, cutoff, at time.Time) (int64, error) {
	query := `
		UPDATE assigned_territories
		SET status = 'returned', returned_at = $2
		WHERE status IN ('assigned', 'expired')
		  AND returned_at IS NULL
		  AND expires_at < $1`

	tag, err := s.pool.Exec(ctx, query, cutoff, at)
	if err != nil {
		return 0, fmt.Errorf("return stale assignments: %w", err)
	}
	return tag.RowsAffected(), nil
}

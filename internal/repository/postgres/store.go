package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/territorydesk/internal/repository"
)

// New returns every repository backed by the same pool. The pool is
// goroutine-safe, so sharing it is fine.
func New(pool *pgxpool.Pool) repository.Store {
	return repository.Store{
		Zones:        NewZoneStore(pool),
		Territories:  NewTerritoryStore(pool),
		Publishers:   NewPublisherStore(pool),
		Assignments:  NewAssignmentStore(pool),
		Settings:     NewSettingsStore(pool),
		PublicAccess: NewPublicAccessStore(pool),
	}
}

// Constraint names from the migrations that callers need to tell apart.
const (
	constraintOneActive = "assigned_territories_one_active_idx"
	constraintToken     = "assigned_territories_token_key"
)

// Postgres SQLSTATE codes.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// scanner is satisfied by pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// mapWriteError turns constraint violations from an INSERT or UPDATE into
// repository sentinels. Anything else is returned unchanged.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeUniqueViolation:
		switch pgErr.ConstraintName {
		case constraintOneActive:
			return repository.ErrActiveAssignmentExists
		case constraintToken:
			return repository.ErrTokenTaken
		}
	case codeForeignKeyViolation:
		return repository.ErrReferenceMissing
	}
	return err
}

// mapDeleteError turns a foreign key violation on DELETE into
// ErrStillReferenced.
func mapDeleteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == codeForeignKeyViolation {
		return repository.ErrStillReferenced
	}
	return err
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/territorydesk/internal/models"
)

// Conventions shared by every implementation:
//
//   - context.Context comes first on every method. The store is remote, so
//     every call can be cancelled or time out.
//   - Point lookups return nil, nil when the row does not exist. A missing
//     row is a normal answer, not a failure.
//   - List methods return an empty slice (not nil) so JSON renders [].
//   - Conditional updates report whether they changed anything, which is
//     what makes the command handlers and jobs idempotent.

// Store-level failures the command layer needs to tell apart from
// generic I/O errors.
var (
	// ErrActiveAssignmentExists is returned by AssignmentRepository.Create
	// when the territory already has an open assignment with status
	// "assigned" (the one-active partial unique index fired).
	ErrActiveAssignmentExists = errors.New("territory already has an active assignment")

	// ErrTokenTaken is returned by AssignmentRepository.Create when the
	// generated token collides with a historical one.
	ErrTokenTaken = errors.New("assignment token already used")

	// ErrReferenceMissing is returned when a foreign key points at a row
	// that does not exist.
	ErrReferenceMissing = errors.New("referenced row does not exist")

	// ErrStillReferenced is returned when deleting a row that other rows
	// still point at.
	ErrStillReferenced = errors.New("row is still referenced")
)

// ZoneRepository stores zones.
type ZoneRepository interface {
	Create(ctx context.Context, name string) (*models.Zone, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Zone, error)
	// List returns zones ordered by name.
	List(ctx context.Context) ([]models.Zone, error)
	// Rename returns nil, nil when the zone does not exist.
	Rename(ctx context.Context, id uuid.UUID, name string) (*models.Zone, error)
	// Delete reports whether a row was removed.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	CountTerritories(ctx context.Context, id uuid.UUID) (int, error)
}

// TerritoryRepository stores territories.
type TerritoryRepository interface {
	Create(ctx context.Context, in models.TerritoryInput) (*models.Territory, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Territory, error)
	// GetWithLatest returns the territory joined with its most recent
	// assignment, or nil, nil when the territory does not exist.
	GetWithLatest(ctx context.Context, id uuid.UUID) (*models.TerritoryWithAssignment, error)
	// List returns territories ordered by name, each with its most recent
	// assignment.
	List(ctx context.Context, filter models.TerritoryFilter) ([]models.TerritoryWithAssignment, error)
	// Update replaces all writable fields and bumps updated_at. Returns
	// nil, nil when the territory does not exist.
	Update(ctx context.Context, id uuid.UUID, in models.TerritoryInput) (*models.Territory, error)
	// Delete removes the territory together with its assignment history.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// PublisherRepository stores publishers and their roles.
type PublisherRepository interface {
	Create(ctx context.Context, name string, roles []string) (*models.Publisher, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Publisher, error)
	List(ctx context.Context) ([]models.Publisher, error)
	// Update replaces the name and the full role set. Returns nil, nil
	// when the publisher does not exist.
	Update(ctx context.Context, id uuid.UUID, name string, roles []string) (*models.Publisher, error)
	// Delete fails with ErrStillReferenced while assignments point at the
	// publisher.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// AssignmentRepository stores assignments (assigned_territories).
type AssignmentRepository interface {
	// Create inserts a new assignment with status "assigned". It fails with
	// ErrActiveAssignmentExists or ErrTokenTaken as described above.
	Create(ctx context.Context, in models.NewAssignment) (*models.Assignment, error)
	// Reassign returns every open assignment of in.TerritoryID that no
	// longer holds it at now (returned_at = now) and inserts in, as one
	// unit. If any step fails nothing is written: a still-active holder
	// yields ErrActiveAssignmentExists and the closed rows stay open.
	Reassign(ctx context.Context, in models.NewAssignment, now time.Time) (a *models.Assignment, closed []uuid.UUID, err error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Assignment, error)
	GetByToken(ctx context.Context, token string) (*models.Assignment, error)
	// List returns matching assignments joined with names, newest first.
	List(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, error)
	// ListActiveByPublisher returns the publisher's assignments that are
	// stored as assigned, not returned, and not past expiration at now.
	ListActiveByPublisher(ctx context.Context, publisherID uuid.UUID, now time.Time) ([]models.AssignmentDetail, error)
	// MarkReturned sets status "returned" and returned_at = at, only if the
	// row is not returned yet. changed is false when nothing was written;
	// the returned row is the current state either way (nil if missing).
	MarkReturned(ctx context.Context, id uuid.UUID, at time.Time) (a *models.Assignment, changed bool, err error)
	// MarkExpired sets status "expired" and pulls expires_at back to at if
	// it was later, only for rows stored as "assigned" and not returned.
	MarkExpired(ctx context.Context, id uuid.UUID, at time.Time) (a *models.Assignment, changed bool, err error)
	// ReturnStale returns every open assignment (status assigned or
	// expired, returned_at null) whose expires_at is before cutoff, stamping
	// returned_at = at. It returns the number of rows changed.
	ReturnStale(ctx context.Context, cutoff, at time.Time) (int64, error)
}

// SettingsRepository stores the single app_settings row.
type SettingsRepository interface {
	// Get returns nil, nil when the row was never written.
	Get(ctx context.Context) (*models.AppSettings, error)
	Update(ctx context.Context, linkDays int, at time.Time) (*models.AppSettings, error)
}

// PublicAccessRepository maintains the public_territory_access projection.
type PublicAccessRepository interface {
	GetByToken(ctx context.Context, token string) (*models.PublicAccess, error)
	// MarkExpired flips is_expired false->true where expires_at < now.
	MarkExpired(ctx context.Context, now time.Time) (int64, error)
	// MarkUnexpired flips is_expired true->false where expires_at >= now.
	MarkUnexpired(ctx context.Context, now time.Time) (int64, error)
	// Refresh upserts one row per assignment from the authoritative tables,
	// rewriting only rows whose content differs. Returns rows written.
	Refresh(ctx context.Context, now time.Time) (int64, error)
}

// Store bundles every repository one backend provides.
type Store struct {
	Zones        ZoneRepository
	Territories  TerritoryRepository
	Publishers   PublisherRepository
	Assignments  AssignmentRepository
	Settings     SettingsRepository
	PublicAccess PublicAccessRepository
}

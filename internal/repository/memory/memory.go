// Package memory is an in-process implementation of the repository
// interfaces. It enforces the same constraints as the Postgres schema
// (foreign keys, unique tokens, one open "assigned" row per territory) so
// the command layer behaves identically against either backend.
package memory

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/territorydesk/internal/lifecycle"
	"github.com/lalith-99/territorydesk/internal/models"
	"github.com/lalith-99/territorydesk/internal/repository"
)

// DB holds every table behind one lock.
type DB struct {
	mu          sync.RWMutex
	now         func() time.Time
	zones       map[uuid.UUID]models.Zone
	territories map[uuid.UUID]models.Territory
	publishers  map[uuid.UUID]models.Publisher
	assignments map[uuid.UUID]models.Assignment
	settings    *models.AppSettings
	access      map[string]models.PublicAccess
}

// New returns an empty database. Row timestamps (created_at, updated_at)
// come from time.Now unless SetClock is used.
func New() *DB {
	return &DB{
		now:         time.Now,
		zones:       make(map[uuid.UUID]models.Zone),
		territories: make(map[uuid.UUID]models.Territory),
		publishers:  make(map[uuid.UUID]models.Publisher),
		assignments: make(map[uuid.UUID]models.Assignment),
		access:      make(map[string]models.PublicAccess),
	}
}

// SetClock replaces the clock used for row timestamps.
func (db *DB) SetClock(now func() time.Time) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.now = now
}

// Store returns the repositories backed by db.
func (db *DB) Store() repository.Store {
	return repository.Store{
		Zones:        &ZoneStore{db: db},
		Territories:  &TerritoryStore{db: db},
		Publishers:   &PublisherStore{db: db},
		Assignments:  &AssignmentStore{db: db},
		Settings:     &SettingsStore{db: db},
		PublicAccess: &PublicAccessStore{db: db},
	}
}

// PutPublicAccess writes a projection row as-is. Tests use it to stage
// stale snapshots.
func (db *DB) PutPublicAccess(row models.PublicAccess) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.access[row.Token] = clonePublicAccess(row)
}

// PutAssignment writes an assignment row as-is, bypassing Create's checks.
// Tests use it to stage legacy or historical rows.
func (db *DB) PutAssignment(a models.Assignment) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.assignments[a.ID] = cloneAssignment(a)
}

// latestFor returns the newest assignment of a territory. Caller holds mu.
func (db *DB) latestFor(territoryID uuid.UUID) *models.Assignment {
	var history []models.Assignment
	for _, a := range db.assignments {
		if a.TerritoryID == territoryID {
			history = append(history, a)
		}
	}
	latest := lifecycle.Latest(history)
	if latest == nil {
		return nil
	}
	out := cloneAssignment(*latest)
	return &out
}

func (db *DB) detail(a models.Assignment) models.AssignmentDetail {
	return models.AssignmentDetail{
		Assignment:    cloneAssignment(a),
		TerritoryName: db.territories[a.TerritoryID].Name,
		PublisherName: db.publishers[a.PublisherID].Name,
	}
}

func sortDetailsNewestFirst(out []models.AssignmentDetail) {
	slices.SortFunc(out, func(a, b models.AssignmentDetail) int {
		return b.AssignedAt.Compare(a.AssignedAt)
	})
}

func byName(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func cloneAssignment(a models.Assignment) models.Assignment {
	a.ExpiresAt = cloneTime(a.ExpiresAt)
	a.ReturnedAt = cloneTime(a.ReturnedAt)
	return a
}

func cloneTerritory(t models.Territory) models.Territory {
	t.ZoneID = cloneUUID(t.ZoneID)
	t.MapURL = cloneString(t.MapURL)
	t.Warnings = cloneString(t.Warnings)
	return t
}

func clonePublisher(p models.Publisher) models.Publisher {
	p.Roles = slices.Clone(p.Roles)
	if p.Roles == nil {
		p.Roles = []string{}
	}
	return p
}

func clonePublicAccess(p models.PublicAccess) models.PublicAccess {
	p.MapURL = cloneString(p.MapURL)
	p.Warnings = cloneString(p.Warnings)
	p.ExpiresAt = cloneTime(p.ExpiresAt)
	p.ReturnedAt = cloneTime(p.ReturnedAt)
	return p
}

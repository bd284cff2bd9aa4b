package memory

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/territorydesk/internal/models"
	"github.com/lalith-99/territorydesk/internal/repository"
)

type ZoneStore struct{ db *DB }

func (s *ZoneStore) Create(_ context.Context, name string) (*models.Zone, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	z := models.Zone{ID: uuid.New(), Name: name, CreatedAt: s.db.now()}
	s.db.zones[z.ID] = z
	return &z, nil
}

func (s *ZoneStore) GetByID(_ context.Context, id uuid.UUID) (*models.Zone, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	z, ok := s.db.zones[id]
	if !ok {
		return nil, nil
	}
	return &z, nil
}

func (s *ZoneStore) List(_ context.Context) ([]models.Zone, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	zones := make([]models.Zone, 0, len(s.db.zones))
	for _, z := range s.db.zones {
		zones = append(zones, z)
	}
	slices.SortFunc(zones, func(a, b models.Zone) int { return byName(a.Name, b.Name) })
	return zones, nil
}

func (s *ZoneStore) Rename(_ context.Context, id uuid.UUID, name string) (*models.Zone, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	z, ok := s.db.zones[id]
	if !ok {
		return nil, nil
	}
	z.Name = name
	s.db.zones[id] = z
	return &z, nil
}

func (s *ZoneStore) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.zones[id]; !ok {
		return false, nil
	}
	for _, t := range s.db.territories {
		if t.ZoneID != nil && *t.ZoneID == id {
			return false, repository.ErrStillReferenced
		}
	}
	delete(s.db.zones, id)
	return true, nil
}

func (s *ZoneStore) CountTerritories(_ context.Context, id uuid.UUID) (int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	n := 0
	for _, t := range s.db.territories {
		if t.ZoneID != nil && *t.ZoneID == id {
			n++
		}
	}
	return n, nil
}

type TerritoryStore struct{ db *DB }

func (s *TerritoryStore) Create(_ context.Context, in models.TerritoryInput) (*models.Territory, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if in.ZoneID != nil {
		if _, ok := s.db.zones[*in.ZoneID]; !ok {
			return nil, repository.ErrReferenceMissing
		}
	}
	now := s.db.now()
	t := cloneTerritory(models.Territory{
		ID:          uuid.New(),
		Name:        in.Name,
		ZoneID:      in.ZoneID,
		MapURL:      in.MapURL,
		DangerLevel: in.DangerLevel,
		Warnings:    in.Warnings,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	s.db.territories[t.ID] = t
	out := cloneTerritory(t)
	return &out, nil
}

func (s *TerritoryStore) GetByID(_ context.Context, id uuid.UUID) (*models.Territory, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	t, ok := s.db.territories[id]
	if !ok {
		return nil, nil
	}
	out := cloneTerritory(t)
	return &out, nil
}

func (s *TerritoryStore) GetWithLatest(_ context.Context, id uuid.UUID) (*models.TerritoryWithAssignment, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	t, ok := s.db.territories[id]
	if !ok {
		return nil, nil
	}
	row := s.withLatest(t)
	return &row, nil
}

func (s *TerritoryStore) List(_ context.Context, filter models.TerritoryFilter) ([]models.TerritoryWithAssignment, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	out := make([]models.TerritoryWithAssignment, 0, len(s.db.territories))
	for _, t := range s.db.territories {
		if filter.ZoneID != nil && (t.ZoneID == nil || *t.ZoneID != *filter.ZoneID) {
			continue
		}
		out = append(out, s.withLatest(t))
	}
	slices.SortFunc(out, func(a, b models.TerritoryWithAssignment) int { return byName(a.Name, b.Name) })
	return out, nil
}

// withLatest joins t with its newest assignment. Caller holds mu.
func (s *TerritoryStore) withLatest(t models.Territory) models.TerritoryWithAssignment {
	row := models.TerritoryWithAssignment{Territory: cloneTerritory(t)}
	if latest := s.db.latestFor(t.ID); latest != nil {
		row.Latest = latest
		if p, ok := s.db.publishers[latest.PublisherID]; ok {
			name := p.Name
			row.PublisherName = &name
		}
	}
	return row
}

func (s *TerritoryStore) Update(_ context.Context, id uuid.UUID, in models.TerritoryInput) (*models.Territory, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	t, ok := s.db.territories[id]
	if !ok {
		return nil, nil
	}
	if in.ZoneID != nil {
		if _, ok := s.db.zones[*in.ZoneID]; !ok {
			return nil, repository.ErrReferenceMissing
		}
	}
	t.Name = in.Name
	t.ZoneID = in.ZoneID
	t.MapURL = in.MapURL
	t.DangerLevel = in.DangerLevel
	t.Warnings = in.Warnings
	t.UpdatedAt = s.db.now()
	t = cloneTerritory(t)
	s.db.territories[id] = t
	out := cloneTerritory(t)
	return &out, nil
}

func (s *TerritoryStore) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.territories[id]; !ok {
		return false, nil
	}
	for aid, a := range s.db.assignments {
		if a.TerritoryID == id {
			delete(s.db.access, a.Token)
			delete(s.db.assignments, aid)
		}
	}
	delete(s.db.territories, id)
	return true, nil
}

type PublisherStore struct{ db *DB }

func (s *PublisherStore) Create(_ context.Context, name string, roles []string) (*models.Publisher, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	p := clonePublisher(models.Publisher{ID: uuid.New(), Name: name, Roles: roles, CreatedAt: s.db.now()})
	s.db.publishers[p.ID] = p
	out := clonePublisher(p)
	return &out, nil
}

func (s *PublisherStore) GetByID(_ context.Context, id uuid.UUID) (*models.Publisher, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	p, ok := s.db.publishers[id]
	if !ok {
		return nil, nil
	}
	out := clonePublisher(p)
	return &out, nil
}

func (s *PublisherStore) List(_ context.Context) ([]models.Publisher, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	out := make([]models.Publisher, 0, len(s.db.publishers))
	for _, p := range s.db.publishers {
		out = append(out, clonePublisher(p))
	}
	slices.SortFunc(out, func(a, b models.Publisher) int { return byName(a.Name, b.Name) })
	return out, nil
}

func (s *PublisherStore) Update(_ context.Context, id uuid.UUID, name string, roles []string) (*models.Publisher, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	p, ok := s.db.publishers[id]
	if !ok {
		return nil, nil
	}
	p.Name = name
	p.Roles = roles
	p = clonePublisher(p)
	s.db.publishers[id] = p
	out := clonePublisher(p)
	return &out, nil
}

func (s *PublisherStore) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.publishers[id]; !ok {
		return false, nil
	}
	for _, a := range s.db.assignments {
		if a.PublisherID == id {
			return false, repository.ErrStillReferenced
		}
	}
	delete(s.db.publishers, id)
	return true, nil
}

type SettingsStore struct{ db *DB }

func (s *SettingsStore) Get(_ context.Context) (*models.AppSettings, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	if s.db.settings == nil {
		return nil, nil
	}
	out := *s.db.settings
	return &out, nil
}

func (s *SettingsStore) Update(_ context.Context, linkDays int, at time.Time) (*models.AppSettings, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	s.db.settings = &models.AppSettings{TerritoryLinkDays: linkDays, UpdatedAt: at}
	out := *s.db.settings
	return &out, nil
}

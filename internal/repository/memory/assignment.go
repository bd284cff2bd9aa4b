package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/territorydesk/internal/lifecycle"
	"github.com/lalith-99/territorydesk/internal/models"
	"github.com/lalith-99/territorydesk/internal/repository"
)

type AssignmentStore struct{ db *DB }

func (s *AssignmentStore) Create(_ context.Context, in models.NewAssignment) (*models.Assignment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if err := s.db.checkInsert(in, nil); err != nil {
		return nil, err
	}
	return s.db.insertAssignment(in), nil
}

func (s *AssignmentStore) Reassign(_ context.Context, in models.NewAssignment, now time.Time) (*models.Assignment, []uuid.UUID, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	closing := make(map[uuid.UUID]bool)
	for id, a := range s.db.assignments {
		if a.TerritoryID == in.TerritoryID && lifecycle.IsOpen(&a) && !lifecycle.IsActive(&a, now) {
			closing[id] = true
		}
	}
	// Every check runs before the first write.
	if err := s.db.checkInsert(in, closing); err != nil {
		return nil, nil, err
	}

	closed := make([]uuid.UUID, 0, len(closing))
	for id := range closing {
		a := s.db.assignments[id]
		a.Status = models.StatusReturned
		returnedAt := now
		a.ReturnedAt = &returnedAt
		s.db.assignments[id] = a
		closed = append(closed, id)
	}
	slices.SortFunc(closed, func(x, y uuid.UUID) int { return strings.Compare(x.String(), y.String()) })
	return s.db.insertAssignment(in), closed, nil
}

// checkInsert applies the table constraints to a new row, treating rows in
// closing as already returned. Caller holds mu.
func (db *DB) checkInsert(in models.NewAssignment, closing map[uuid.UUID]bool) error {
	if _, ok := db.territories[in.TerritoryID]; !ok {
		return repository.ErrReferenceMissing
	}
	if _, ok := db.publishers[in.PublisherID]; !ok {
		return repository.ErrReferenceMissing
	}
	for id, a := range db.assignments {
		if a.Token == in.Token {
			return repository.ErrTokenTaken
		}
		// Mirrors the partial unique index on
		// (territory_id) WHERE status = 'assigned' AND returned_at IS NULL.
		if a.TerritoryID == in.TerritoryID && a.Status == models.StatusAssigned && a.ReturnedAt == nil && !closing[id] {
			return repository.ErrActiveAssignmentExists
		}
	}
	return nil
}

// insertAssignment stores a checked row. Caller holds mu.
func (db *DB) insertAssignment(in models.NewAssignment) *models.Assignment {
	a := cloneAssignment(models.Assignment{
		ID:          uuid.New(),
		TerritoryID: in.TerritoryID,
		PublisherID: in.PublisherID,
		AssignedAt:  in.AssignedAt,
		ExpiresAt:   in.ExpiresAt,
		Status:      models.StatusAssigned,
		Token:       in.Token,
	})
	db.assignments[a.ID] = a
	out := cloneAssignment(a)
	return &out
}

func (s *AssignmentStore) GetByID(_ context.Context, id uuid.UUID) (*models.Assignment, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	a, ok := s.db.assignments[id]
	if !ok {
		return nil, nil
	}
	out := cloneAssignment(a)
	return &out, nil
}

func (s *AssignmentStore) GetByToken(_ context.Context, token string) (*models.Assignment, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	for _, a := range s.db.assignments {
		if a.Token == token {
			out := cloneAssignment(a)
			return &out, nil
		}
	}
	return nil, nil
}

func (s *AssignmentStore) List(_ context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	out := make([]models.AssignmentDetail, 0)
	for _, a := range s.db.assignments {
		if filter.TerritoryID != nil && a.TerritoryID != *filter.TerritoryID {
			continue
		}
		if filter.PublisherID != nil && a.PublisherID != *filter.PublisherID {
			continue
		}
		if filter.OpenOnly && !lifecycle.IsOpen(&a) {
			continue
		}
		out = append(out, s.db.detail(a))
	}
	sortDetailsNewestFirst(out)
	return out, nil
}

func (s *AssignmentStore) ListActiveByPublisher(_ context.Context, publisherID uuid.UUID, now time.Time) ([]models.AssignmentDetail, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	out := make([]models.AssignmentDetail, 0)
	for _, a := range s.db.assignments {
		if a.PublisherID == publisherID && lifecycle.IsActive(&a, now) {
			out = append(out, s.db.detail(a))
		}
	}
	sortDetailsNewestFirst(out)
	return out, nil
}

func (s *AssignmentStore) MarkReturned(_ context.Context, id uuid.UUID, at time.Time) (*models.Assignment, bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	a, ok := s.db.assignments[id]
	if !ok {
		return nil, false, nil
	}
	changed := false
	if a.ReturnedAt == nil {
		a.Status = models.StatusReturned
		a.ReturnedAt = &at
		s.db.assignments[id] = cloneAssignment(a)
		changed = true
	}
	out := cloneAssignment(a)
	return &out, changed, nil
}

func (s *AssignmentStore) MarkExpired(_ context.Context, id uuid.UUID, at time.Time) (*models.Assignment, bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	a, ok := s.db.assignments[id]
	if !ok {
		return nil, false, nil
	}
	changed := false
	if a.Status == models.StatusAssigned && a.ReturnedAt == nil {
		a.Status = models.StatusExpired
		if a.ExpiresAt == nil || a.ExpiresAt.After(at) {
			a.ExpiresAt = &at
		}
		s.db.assignments[id] = cloneAssignment(a)
		changed = true
	}
	out := cloneAssignment(a)
	return &out, changed, nil
}

func (s *AssignmentStore) ReturnStale(_ context.Context, cutoff, at time.Time) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var n int64
	for id, a := range s.db.assignments {
		if a.ReturnedAt != nil || a.ExpiresAt == nil || !a.ExpiresAt.Before(cutoff) {
			continue
		}
		if a.Status != models.StatusAssigned && a.Status != models.StatusExpired {
			continue
		}
		a.Status = models.StatusReturned
		returnedAt := at
		a.ReturnedAt = &returnedAt
		s.db.assignments[id] = a
		n++
	}
	return n, nil
}

type PublicAccessStore struct{ db *DB }

func (s *PublicAccessStore) GetByToken(_ context.Context, token string) (*models.PublicAccess, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	row, ok := s.db.access[token]
	if !ok {
		return nil, nil
	}
	out := clonePublicAccess(row)
	return &out, nil
}

func (s *PublicAccessStore) MarkExpired(_ context.Context, now time.Time) (int64, error) {
	return s.flip(now, true), nil
}

func (s *PublicAccessStore) MarkUnexpired(_ context.Context, now time.Time) (int64, error) {
	return s.flip(now, false), nil
}

// flip sets is_expired = to on rows currently holding the opposite value
// whose expires_at says they should hold to.
func (s *PublicAccessStore) flip(now time.Time, to bool) int64 {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var n int64
	for token, row := range s.db.access {
		if row.ExpiresAt == nil || row.IsExpired == to {
			continue
		}
		if lifecycle.PastExpiry(row.ExpiresAt, now) != to {
			continue
		}
		row.IsExpired = to
		s.db.access[token] = row
		n++
	}
	return n
}

func (s *PublicAccessStore) Refresh(_ context.Context, now time.Time) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var n int64
	for _, a := range s.db.assignments {
		t := s.db.territories[a.TerritoryID]
		p := s.db.publishers[a.PublisherID]
		next := models.PublicAccess{
			Token:         a.Token,
			AssignmentID:  a.ID,
			TerritoryID:   t.ID,
			TerritoryName: t.Name,
			MapURL:        cloneString(t.MapURL),
			DangerLevel:   t.DangerLevel,
			Warnings:      cloneString(t.Warnings),
			PublisherID:   p.ID,
			PublisherName: p.Name,
			AssignedAt:    a.AssignedAt,
			ExpiresAt:     cloneTime(a.ExpiresAt),
			ReturnedAt:    cloneTime(a.ReturnedAt),
			IsExpired:     a.Status == models.StatusExpired || lifecycle.PastExpiry(a.ExpiresAt, now),
			RefreshedAt:   now,
		}
		if cur, ok := s.db.access[a.Token]; ok && sameSnapshot(cur, next) {
			continue
		}
		s.db.access[a.Token] = next
		n++
	}
	return n, nil
}

func sameSnapshot(a, b models.PublicAccess) bool {
	return a.Token == b.Token &&
		a.AssignmentID == b.AssignmentID &&
		a.TerritoryID == b.TerritoryID &&
		a.TerritoryName == b.TerritoryName &&
		equalPtr(a.MapURL, b.MapURL) &&
		a.DangerLevel == b.DangerLevel &&
		equalPtr(a.Warnings, b.Warnings) &&
		a.PublisherID == b.PublisherID &&
		a.PublisherName == b.PublisherName &&
		a.AssignedAt.Equal(b.AssignedAt) &&
		equalTime(a.ExpiresAt, b.ExpiresAt) &&
		equalTime(a.ReturnedAt, b.ReturnedAt) &&
		a.IsExpired == b.IsExpired
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/territorydesk/internal/apperr"
	"github.com/lalith-99/territorydesk/internal/lifecycle"
	"github.com/lalith-99/territorydesk/internal/models"
	"github.com/lalith-99/territorydesk/internal/repository"
	"go.uber.org/zap"
)

// tokenAttempts bounds how often CreateAssignment draws a new token after
// a collision. With 122 random bits a second attempt is already unheard of.
const tokenAttempts = 3

// CreateAssignmentInput selects the territory and publisher. LinkDays
// overrides the configured duration for this one assignment.
type CreateAssignmentInput struct {
	TerritoryID uuid.UUID
	PublisherID uuid.UUID
	LinkDays    *int
}

// CreateAssignment hands a territory to a publisher until now plus the
// link duration taken from settings (or the caller's override).
//
// A territory that is still actively held is a conflict. Assignments that
// are open but already expired are returned in the same store write as the
// insert, which is how an expired territory gets reassigned. A failed
// insert leaves them open.
func (s *Service) CreateAssignment(ctx context.Context, in CreateAssignmentInput, settings models.AppSettings) (*models.Assignment, error) {
	if in.PublisherID == uuid.Nil {
		return nil, apperr.Validation("a publisher must be selected")
	}
	if in.TerritoryID == uuid.Nil {
		return nil, apperr.Validation("a territory must be selected")
	}
	linkDays := settings.TerritoryLinkDays
	if in.LinkDays != nil {
		if *in.LinkDays <= 0 {
			return nil, apperr.Validation("link days must be a positive integer")
		}
		linkDays = *in.LinkDays
	}
	if linkDays <= 0 {
		linkDays = models.DefaultTerritoryLinkDays
	}

	terr, err := s.store.Territories.GetByID(ctx, in.TerritoryID)
	if err != nil {
		return nil, apperr.Store("get territory", err)
	}
	if terr == nil {
		return nil, apperr.NotFound("territory not found")
	}
	pub, err := s.store.Publishers.GetByID(ctx, in.PublisherID)
	if err != nil {
		return nil, apperr.Store("get publisher", err)
	}
	if pub == nil {
		return nil, apperr.NotFound("publisher not found")
	}

	now := s.now()
	if err := s.checkNotHeld(ctx, in.TerritoryID, now); err != nil {
		return nil, err
	}

	expiresAt := lifecycle.ExpiresAt(now, linkDays)
	for attempt := 1; ; attempt++ {
		a, closed, err := s.store.Assignments.Reassign(ctx, models.NewAssignment{
			TerritoryID: in.TerritoryID,
			PublisherID: in.PublisherID,
			AssignedAt:  now,
			ExpiresAt:   &expiresAt,
			Token:       s.newToken(),
		}, now)
		switch {
		case err == nil:
			for _, id := range closed {
				s.logger.Info("expired assignment closed for reassignment",
					zap.String("assignment_id", id.String()),
					zap.String("territory_id", in.TerritoryID.String()),
				)
			}
			s.logger.Info("territory assigned",
				zap.String("assignment_id", a.ID.String()),
				zap.String("territory_id", a.TerritoryID.String()),
				zap.String("publisher_id", a.PublisherID.String()),
				zap.Time("expires_at", expiresAt),
			)
			return a, nil
		case errors.Is(err, repository.ErrTokenTaken) && attempt < tokenAttempts:
			s.logger.Warn("assignment token collision, retrying", zap.Int("attempt", attempt))
			continue
		case errors.Is(err, repository.ErrActiveAssignmentExists):
			return nil, apperr.Conflict("territory %q is already assigned", terr.Name)
		case errors.Is(err, repository.ErrReferenceMissing):
			return nil, apperr.NotFound("territory or publisher no longer exists")
		default:
			return nil, apperr.Store("create assignment", err)
		}
	}
}

// checkNotHeld reports a conflict naming the current holder when an open
// assignment still holds the territory. Expired holders are closed by
// Reassign together with the insert.
func (s *Service) checkNotHeld(ctx context.Context, territoryID uuid.UUID, now time.Time) error {
	open, err := s.store.Assignments.List(ctx, models.AssignmentFilter{TerritoryID: &territoryID, OpenOnly: true})
	if err != nil {
		return apperr.Store("list assignments", err)
	}
	for _, d := range open {
		if lifecycle.IsActive(&d.Assignment, now) {
			return apperr.Conflict("territory %q is already assigned to %s", d.TerritoryName, d.PublisherName)
		}
	}
	return nil
}

// ReturnAssignment releases the territory. Returning an assignment that is
// already returned succeeds and leaves returned_at untouched.
func (s *Service) ReturnAssignment(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	a, changed, err := s.store.Assignments.MarkReturned(ctx, id, s.now())
	if err != nil {
		return nil, apperr.Store("return assignment", err)
	}
	if a == nil {
		return nil, apperr.NotFound("assignment not found")
	}
	if changed {
		s.logger.Info("territory returned",
			zap.String("assignment_id", a.ID.String()),
			zap.String("territory_id", a.TerritoryID.String()),
		)
	}
	return a, nil
}

// ExpireAssignment ends an assignment early without releasing the
// territory: the public link shows it as expired and the territory can be
// reassigned. Expiring an already expired assignment is a no-op.
func (s *Service) ExpireAssignment(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	a, changed, err := s.store.Assignments.MarkExpired(ctx, id, s.now())
	if err != nil {
		return nil, apperr.Store("expire assignment", err)
	}
	if a == nil {
		return nil, apperr.NotFound("assignment not found")
	}
	if !changed && !lifecycle.IsOpen(a) {
		return nil, apperr.Conflict("assignment was already returned")
	}
	if changed {
		s.logger.Info("assignment expired",
			zap.String("assignment_id", a.ID.String()),
			zap.String("territory_id", a.TerritoryID.String()),
		)
	}
	return a, nil
}

// ListAssignments returns assignment history, newest first.
func (s *Service) ListAssignments(ctx context.Context, filter models.AssignmentFilter) ([]AssignmentView, error) {
	rows, err := s.store.Assignments.List(ctx, filter)
	if err != nil {
		return nil, apperr.Store("list assignments", err)
	}
	now := s.now()
	out := make([]AssignmentView, 0, len(rows))
	for _, d := range rows {
		out = append(out, assignmentView(d, now))
	}
	return out, nil
}

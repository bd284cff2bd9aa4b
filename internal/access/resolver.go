// Package access resolves public link tokens to a read-only view of one
// assignment.
package access

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/territorydesk/internal/apperr"
	"github.com/lalith-99/territorydesk/internal/lifecycle"
	"github.com/lalith-99/territorydesk/internal/models"
	"github.com/lalith-99/territorydesk/internal/repository"
	"go.uber.org/zap"
)

// Where a PublicView was read from.
const (
	SourceSnapshot = "snapshot"
	SourceLive     = "live"
)

// PublicView is what an unauthenticated holder of a token may see.
type PublicView struct {
	Token         string             `json:"token"`
	TerritoryID   uuid.UUID          `json:"territory_id"`
	TerritoryName string             `json:"territory_name"`
	MapURL        *string            `json:"map_url"`
	DangerLevel   models.DangerLevel `json:"danger_level"`
	Warnings      *string            `json:"warnings"`
	PublisherName string             `json:"publisher_name"`
	AssignedAt    time.Time          `json:"assigned_at"`
	ExpiresAt     *time.Time         `json:"expires_at"`
	ReturnedAt    *time.Time         `json:"returned_at"`
	Status        lifecycle.Status   `json:"status"`
	IsExpired     bool               `json:"is_expired"`
	DaysRemaining *int               `json:"days_remaining"`
	// OtherAssignments lists the publisher's currently valid links. It is
	// only filled when this assignment has expired.
	OtherAssignments []Link `json:"other_assignments"`
	Source           string `json:"source"`

	publisherID uuid.UUID
}

// Link points at another active assignment of the same publisher.
type Link struct {
	Token         string     `json:"token"`
	TerritoryName string     `json:"territory_name"`
	ExpiresAt     *time.Time `json:"expires_at"`
	DaysRemaining *int       `json:"days_remaining"`
}

type Resolver struct {
	store  repository.Store
	logger *zap.Logger
	now    func() time.Time
}

type Option func(*Resolver)

func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

func NewResolver(store repository.Store, logger *zap.Logger, opts ...Option) *Resolver {
	r := &Resolver{store: store, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve maps token to its public view. The projection is read first for
// the display fields; when it has no row yet the view is computed from the
// assignment itself. Either way status and expiry come from the assignment
// row when there is one, judged against now.
//
// An unknown token is apperr.ErrNotFound. Expired and returned assignments
// resolve normally.
func (r *Resolver) Resolve(ctx context.Context, token string) (*PublicView, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperr.NotFound("link not found")
	}
	now := r.now()

	view, err := r.fromSnapshot(ctx, token, now)
	if err != nil {
		return nil, err
	}
	if view == nil {
		view, err = r.live(ctx, token, now)
		if err != nil {
			return nil, err
		}
	}
	if view == nil {
		return nil, apperr.NotFound("link not found")
	}

	view.OtherAssignments = []Link{}
	if view.Status == lifecycle.StatusExpired {
		others, err := r.store.Assignments.ListActiveByPublisher(ctx, view.publisherID, now)
		if err != nil {
			return nil, apperr.Store("list active assignments", err)
		}
		for _, o := range others {
			if o.Token == token {
				continue
			}
			view.OtherAssignments = append(view.OtherAssignments, Link{
				Token:         o.Token,
				TerritoryName: o.TerritoryName,
				ExpiresAt:     o.ExpiresAt,
				DaysRemaining: lifecycle.DaysRemaining(o.ExpiresAt, now),
			})
		}
	}
	return view, nil
}

func (r *Resolver) fromSnapshot(ctx context.Context, token string, now time.Time) (*PublicView, error) {
	snap, err := r.store.PublicAccess.GetByToken(ctx, token)
	if err != nil {
		return nil, apperr.Store("get public link", err)
	}
	if snap == nil {
		return nil, nil
	}

	status := snapshotStatus(snap, now)
	expiresAt, returnedAt := snap.ExpiresAt, snap.ReturnedAt

	// Returns and early expiry reach the projection only on the next sync,
	// so the assignment row decides the lifecycle fields when it exists.
	a, err := r.store.Assignments.GetByToken(ctx, token)
	if err != nil {
		return nil, apperr.Store("get assignment", err)
	}
	if a != nil {
		live := lifecycle.AssignmentState(a, now)
		if live != status {
			r.logger.Debug("public link snapshot is stale",
				zap.String("assignment_id", a.ID.String()),
				zap.String("snapshot_status", string(status)),
				zap.String("status", string(live)),
			)
		}
		status, expiresAt, returnedAt = live, a.ExpiresAt, a.ReturnedAt
	}

	return &PublicView{
		Token:         snap.Token,
		TerritoryID:   snap.TerritoryID,
		TerritoryName: snap.TerritoryName,
		MapURL:        snap.MapURL,
		DangerLevel:   snap.DangerLevel,
		Warnings:      snap.Warnings,
		PublisherName: snap.PublisherName,
		AssignedAt:    snap.AssignedAt,
		ExpiresAt:     expiresAt,
		ReturnedAt:    returnedAt,
		Status:        status,
		IsExpired:     status == lifecycle.StatusExpired,
		DaysRemaining: daysRemaining(status, expiresAt, now),
		Source:        SourceSnapshot,
		publisherID:   snap.PublisherID,
	}, nil
}

// snapshotStatus judges a projection row on its own. The cached flag only
// counts for rows without an expiration.
func snapshotStatus(snap *models.PublicAccess, now time.Time) lifecycle.Status {
	switch {
	case snap.ReturnedAt != nil:
		return lifecycle.StatusReturned
	case snap.ExpiresAt != nil:
		if lifecycle.PastExpiry(snap.ExpiresAt, now) {
			return lifecycle.StatusExpired
		}
		return lifecycle.StatusAssigned
	case snap.IsExpired:
		return lifecycle.StatusExpired
	}
	return lifecycle.StatusAssigned
}

func (r *Resolver) live(ctx context.Context, token string, now time.Time) (*PublicView, error) {
	a, err := r.store.Assignments.GetByToken(ctx, token)
	if err != nil {
		return nil, apperr.Store("get assignment", err)
	}
	if a == nil {
		return nil, nil
	}
	terr, err := r.store.Territories.GetByID(ctx, a.TerritoryID)
	if err != nil {
		return nil, apperr.Store("get territory", err)
	}
	pub, err := r.store.Publishers.GetByID(ctx, a.PublisherID)
	if err != nil {
		return nil, apperr.Store("get publisher", err)
	}
	// Assignments cascade with their territory and block publisher
	// deletion, so both exist unless the delete raced this read.
	if terr == nil || pub == nil {
		return nil, nil
	}

	status := lifecycle.AssignmentState(a, now)
	return &PublicView{
		Token:         a.Token,
		TerritoryID:   terr.ID,
		TerritoryName: terr.Name,
		MapURL:        terr.MapURL,
		DangerLevel:   terr.DangerLevel,
		Warnings:      terr.Warnings,
		PublisherName: pub.Name,
		AssignedAt:    a.AssignedAt,
		ExpiresAt:     a.ExpiresAt,
		ReturnedAt:    a.ReturnedAt,
		Status:        status,
		IsExpired:     status == lifecycle.StatusExpired,
		DaysRemaining: daysRemaining(status, a.ExpiresAt, now),
		Source:        SourceLive,
		publisherID:   pub.ID,
	}, nil
}

func daysRemaining(status lifecycle.Status, expiresAt *time.Time, now time.Time) *int {
	if status == lifecycle.StatusReturned {
		return nil
	}
	return lifecycle.DaysRemaining(expiresAt, now)
}

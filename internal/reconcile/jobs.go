// Package reconcile holds the scheduled jobs that repair denormalized state
// and close out abandoned assignments, plus the runner that executes them.
//
// Every job is a set of conditional updates that re-derive their candidate
// rows from current state. Running a job twice, concurrently, or again
// after a partial failure only rewrites rows that are still wrong.
package reconcile

import (
	"context"
	"time"

	"github.com/lalith-99/territorydesk/internal/apperr"
	"github.com/lalith-99/territorydesk/internal/lifecycle"
	"github.com/lalith-99/territorydesk/internal/repository"
)

// DefaultGraceDays is how long an expired assignment stays open before it
// is returned automatically.
const DefaultGraceDays = 5

// Job names. They double as the HTTP endpoint names and metric labels.
const (
	SyncExpirationJob = "sync-territory-expiration"
	AutoReturnJob     = "auto-return-expired-territories"
	SyncSnapshotsJob  = "sync-public-access"
)

// FlagSync counts the rows SyncExpirationFlag flipped in each direction.
type FlagSync struct {
	MarkedExpired   int64 `json:"marked_expired"`
	MarkedUnexpired int64 `json:"marked_unexpired"`
}

// SyncExpirationFlag brings the cached is_expired flag of the public access
// projection in line with expires_at. Assignments are not touched.
//
// The two sweeps are independent; if the second fails the first stays
// applied and the counts so far are returned with the error.
func SyncExpirationFlag(ctx context.Context, access repository.PublicAccessRepository, now time.Time) (FlagSync, error) {
	var res FlagSync

	n, err := access.MarkExpired(ctx, now)
	if err != nil {
		return res, apperr.Store("mark expired links", err)
	}
	res.MarkedExpired = n

	n, err = access.MarkUnexpired(ctx, now)
	if err != nil {
		return res, apperr.Store("mark unexpired links", err)
	}
	res.MarkedUnexpired = n
	return res, nil
}

// AutoReturnStaleAssignments returns every open assignment whose expiration
// is more than graceDays before now. Returned rows are excluded by the
// store predicate, so an assignment is never returned twice.
func AutoReturnStaleAssignments(ctx context.Context, assignments repository.AssignmentRepository, now time.Time, graceDays int) (int64, error) {
	if graceDays < 0 {
		return 0, apperr.Validation("grace days must not be negative")
	}
	n, err := assignments.ReturnStale(ctx, lifecycle.StaleCutoff(now, graceDays), now)
	if err != nil {
		return 0, apperr.Store("return stale assignments", err)
	}
	return n, nil
}

// SyncPublicSnapshots rebuilds the public access projection from the
// authoritative tables so new assignments, returns and territory edits
// show up through the snapshot path.
func SyncPublicSnapshots(ctx context.Context, access repository.PublicAccessRepository, now time.Time) (int64, error) {
	n, err := access.Refresh(ctx, now)
	if err != nil {
		return 0, apperr.Store("refresh public access", err)
	}
	return n, nil
}

// Result is what a job run reports back.
type Result struct {
	Rows    int64            `json:"rows"`
	Details map[string]int64 `json:"details,omitempty"`
}

// Job is a named unit the Runner can execute.
type Job struct {
	Name string
	Run  func(ctx context.Context, now time.Time) (Result, error)
}

// Jobs returns the reconciliation jobs bound to store, keyed by name.
func Jobs(store repository.Store, graceDays int) map[string]Job {
	return map[string]Job{
		SyncExpirationJob: {
			Name: SyncExpirationJob,
			Run: func(ctx context.Context, now time.Time) (Result, error) {
				res, err := SyncExpirationFlag(ctx, store.PublicAccess, now)
				return Result{
					Rows: res.MarkedExpired + res.MarkedUnexpired,
					Details: map[string]int64{
						"marked_expired":   res.MarkedExpired,
						"marked_unexpired": res.MarkedUnexpired,
					},
				}, err
			},
		},
		AutoReturnJob: {
			Name: AutoReturnJob,
			Run: func(ctx context.Context, now time.Time) (Result, error) {
				n, err := AutoReturnStaleAssignments(ctx, store.Assignments, now, graceDays)
				return Result{Rows: n, Details: map[string]int64{"returned": n}}, err
			},
		},
		SyncSnapshotsJob: {
			Name: SyncSnapshotsJob,
			Run: func(ctx context.Context, now time.Time) (Result, error) {
				n, err := SyncPublicSnapshots(ctx, store.PublicAccess, now)
				return Result{Rows: n, Details: map[string]int64{"refreshed": n}}, err
			},
		},
	}
}

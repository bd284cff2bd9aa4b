// Package lifecycle derives the effective state of territories and
// assignments from stored timestamps.
//
// Every function takes "now" explicitly. Nothing in this package reads the
// wall clock.
package lifecycle

import (
	"math"
	"time"

	"github.com/lalith-99/territorydesk/internal/models"
)

// Status is the derived state shown for a territory or an assignment.
type Status string

const (
	StatusAvailable Status = "available"
	StatusAssigned  Status = "assigned"
	StatusExpired   Status = "expired"
	// StatusReturned only describes a single assignment. A territory whose
	// latest assignment was returned is available.
	StatusReturned Status = "returned"
)

const day = 24 * time.Hour

// DeriveStatus computes the status of a territory from its most recent
// assignment. A nil assignment means the territory was never assigned.
//
// An assignment is still assigned at the exact instant it expires; it is
// expired only once now is strictly after ExpiresAt. A stored "expired"
// status wins over the timestamps.
func DeriveStatus(a *models.Assignment, now time.Time) Status {
	if a == nil || a.ReturnedAt != nil || a.Status == models.StatusReturned {
		return StatusAvailable
	}
	if a.Status == models.StatusExpired {
		return StatusExpired
	}
	if PastExpiry(a.ExpiresAt, now) {
		return StatusExpired
	}
	return StatusAssigned
}

// AssignmentState is DeriveStatus seen from the assignment rather than the
// territory: a returned assignment reports returned instead of available.
func AssignmentState(a *models.Assignment, now time.Time) Status {
	if a != nil && !IsOpen(a) {
		return StatusReturned
	}
	return DeriveStatus(a, now)
}

// PastExpiry reports whether expiresAt is set and strictly before now.
func PastExpiry(expiresAt *time.Time, now time.Time) bool {
	return expiresAt != nil && expiresAt.Before(now)
}

// IsActive reports whether a holds its territory right now: stored as
// assigned, not returned, and not past its expiration.
func IsActive(a *models.Assignment, now time.Time) bool {
	return a != nil &&
		a.Status == models.StatusAssigned &&
		a.ReturnedAt == nil &&
		!PastExpiry(a.ExpiresAt, now)
}

// IsOpen reports whether a has not been returned yet, regardless of expiry.
func IsOpen(a *models.Assignment) bool {
	return a != nil && a.ReturnedAt == nil && a.Status != models.StatusReturned
}

// DaysRemaining returns the whole days left until expiresAt, rounding a
// partial day up. It returns nil when there is no expiration and 0 when
// the expiration is now or already past.
func DaysRemaining(expiresAt *time.Time, now time.Time) *int {
	if expiresAt == nil {
		return nil
	}
	left := expiresAt.Sub(now)
	days := 0
	if left > 0 {
		days = int(math.Ceil(float64(left) / float64(day)))
	}
	return &days
}

// ExpiresAt returns the expiration of an assignment created at assignedAt
// lasting linkDays.
func ExpiresAt(assignedAt time.Time, linkDays int) time.Time {
	return assignedAt.Add(time.Duration(linkDays) * day)
}

// StaleCutoff is the instant before which an open assignment's expiration
// must fall for it to be auto-returned.
func StaleCutoff(now time.Time, graceDays int) time.Time {
	return now.Add(-time.Duration(graceDays) * day)
}

// Latest returns the most recently assigned entry of history, or nil.
func Latest(history []models.Assignment) *models.Assignment {
	var latest *models.Assignment
	for i := range history {
		if latest == nil || history[i].AssignedAt.After(latest.AssignedAt) {
			latest = &history[i]
		}
	}
	return latest
}

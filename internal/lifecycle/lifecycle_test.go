package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lalith-99/territorydesk/internal/models"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func assigned(expiresAt *time.Time) *models.Assignment {
	return &models.Assignment{
		Status:     models.StatusAssigned,
		AssignedAt: now.Add(-10 * day),
		ExpiresAt:  expiresAt,
		Token:      "tok",
	}
}

func TestDeriveStatusNeverAssigned(t *testing.T) {
	assert.Equal(t, StatusAvailable, DeriveStatus(nil, now))
}

func TestDeriveStatusReturnedIsAlwaysAvailable(t *testing.T) {
	a := assigned(ptr(now.Add(-40 * day)))
	a.Status = models.StatusReturned
	a.ReturnedAt = ptr(now.Add(-30 * day))

	for _, at := range []time.Time{now.Add(-100 * day), now, now.Add(100 * day)} {
		assert.Equal(t, StatusAvailable, DeriveStatus(a, at))
	}

	// returned_at set but status left as assigned by legacy data
	legacy := assigned(ptr(now.Add(day)))
	legacy.ReturnedAt = ptr(now)
	assert.Equal(t, StatusAvailable, DeriveStatus(legacy, now))
}

func TestDeriveStatusWithoutExpirationIsAssigned(t *testing.T) {
	a := assigned(nil)
	for _, at := range []time.Time{now, now.Add(10000 * day)} {
		assert.Equal(t, StatusAssigned, DeriveStatus(a, at))
	}
}

func TestDeriveStatusExpiryBoundary(t *testing.T) {
	expires := now
	a := assigned(&expires)

	assert.Equal(t, StatusAssigned, DeriveStatus(a, now.Add(-time.Nanosecond)))
	assert.Equal(t, StatusAssigned, DeriveStatus(a, now), "expiring instant is still assigned")
	assert.Equal(t, StatusExpired, DeriveStatus(a, now.Add(time.Nanosecond)))
}

func TestDeriveStatusStoredExpiredShortCircuits(t *testing.T) {
	a := assigned(ptr(now.Add(20 * day)))
	a.Status = models.StatusExpired

	assert.Equal(t, StatusExpired, DeriveStatus(a, now))
	assert.False(t, IsActive(a, now))
	assert.True(t, IsOpen(a))
}

func TestIsActive(t *testing.T) {
	assert.False(t, IsActive(nil, now))
	assert.True(t, IsActive(assigned(nil), now))
	assert.True(t, IsActive(assigned(ptr(now)), now))
	assert.False(t, IsActive(assigned(ptr(now.Add(-time.Second))), now))

	returned := assigned(nil)
	returned.ReturnedAt = ptr(now)
	returned.Status = models.StatusReturned
	assert.False(t, IsActive(returned, now))
	assert.False(t, IsOpen(returned))
}

func TestDaysRemaining(t *testing.T) {
	assert.Nil(t, DaysRemaining(nil, now))

	cases := []struct {
		name      string
		expiresAt time.Time
		want      int
	}{
		{"expires now", now, 0},
		{"three days", now.Add(3 * day), 3},
		{"partial day rounds up", now.Add(2*day + time.Hour), 3},
		{"one minute left", now.Add(time.Minute), 1},
		{"past clamps to zero", now.Add(-5 * day), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DaysRemaining(&tc.expiresAt, now)
			require.NotNil(t, got)
			assert.Equal(t, tc.want, *got)
			assert.GreaterOrEqual(t, *got, 0)
		})
	}
}

func TestExpiresAtAndStaleCutoff(t *testing.T) {
	assert.Equal(t, now.Add(30*day), ExpiresAt(now, 30))
	assert.Equal(t, now.Add(-5*day), StaleCutoff(now, 5))
}

func TestLatest(t *testing.T) {
	assert.Nil(t, Latest(nil))

	history := []models.Assignment{
		{Token: "old", AssignedAt: now.Add(-60 * day)},
		{Token: "new", AssignedAt: now.Add(-1 * day)},
		{Token: "mid", AssignedAt: now.Add(-30 * day)},
	}
	got := Latest(history)
	require.NotNil(t, got)
	assert.Equal(t, "new", got.Token)
}

func TestAssignmentState(t *testing.T) {
	a := assigned(ptr(now.Add(-day)))
	assert.Equal(t, StatusExpired, AssignmentState(a, now))

	a.Status = models.StatusReturned
	a.ReturnedAt = ptr(now)
	assert.Equal(t, StatusReturned, AssignmentState(a, now))
	assert.Equal(t, StatusAvailable, DeriveStatus(a, now))
}

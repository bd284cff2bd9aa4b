package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lalith-99/territorydesk/internal/apperr"
	"github.com/lalith-99/territorydesk/internal/lock"
	"github.com/lalith-99/territorydesk/internal/models"
	"github.com/lalith-99/territorydesk/internal/observ"
	"github.com/lalith-99/territorydesk/internal/repository"
	"github.com/lalith-99/territorydesk/internal/repository/memory"
)

var now = time.Date(2026, 4, 20, 6, 0, 0, 0, time.UTC)

const day = 24 * time.Hour

type fixture struct {
	db        *memory.DB
	store     repository.Store
	territory *models.Territory
	publisher *models.Publisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db := memory.New()
	db.SetClock(func() time.Time { return now })
	store := db.Store()

	terr, err := store.Territories.Create(ctx, models.TerritoryInput{Name: "T1", DangerLevel: models.DangerNone})
	require.NoError(t, err)
	pub, err := store.Publishers.Create(ctx, "P1", []string{})
	require.NoError(t, err)
	return &fixture{db: db, store: store, territory: terr, publisher: pub}
}

// stage writes an assignment of the fixture territory that expired at
// expiresAt, bypassing the one-active check so several can coexist.
func (f *fixture) stage(expiresAt time.Time, status models.AssignmentStatus) models.Assignment {
	a := models.Assignment{
		ID:          uuid.New(),
		TerritoryID: f.territory.ID,
		PublisherID: f.publisher.ID,
		AssignedAt:  expiresAt.Add(-30 * day),
		ExpiresAt:   &expiresAt,
		Status:      status,
		Token:       uuid.NewString(),
	}
	f.db.PutAssignment(a)
	return a
}

func TestAutoReturnGraceWindow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	abandoned := f.stage(now.Add(-6*day), models.StatusAssigned)
	recent := f.stage(now.Add(-3*day), models.StatusAssigned)
	expiredEarly := f.stage(now.Add(-10*day), models.StatusExpired)

	n, err := AutoReturnStaleAssignments(ctx, f.store.Assignments, now, DefaultGraceDays)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := f.store.Assignments.GetByID(ctx, abandoned.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReturned, got.Status)
	require.NotNil(t, got.ReturnedAt)
	assert.Equal(t, now, *got.ReturnedAt)

	got, err = f.store.Assignments.GetByID(ctx, expiredEarly.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReturned, got.Status)

	got, err = f.store.Assignments.GetByID(ctx, recent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAssigned, got.Status)
	assert.Nil(t, got.ReturnedAt)

	// A second run finds nothing and leaves returned_at alone.
	n, err = AutoReturnStaleAssignments(ctx, f.store.Assignments, now.Add(time.Hour), DefaultGraceDays)
	require.NoError(t, err)
	assert.Zero(t, n)
	got, err = f.store.Assignments.GetByID(ctx, abandoned.ID)
	require.NoError(t, err)
	assert.Equal(t, now, *got.ReturnedAt)
}

func TestAutoReturnRejectsNegativeGrace(t *testing.T) {
	f := newFixture(t)
	_, err := AutoReturnStaleAssignments(context.Background(), f.store.Assignments, now, -1)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSyncExpirationFlagRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	past := now.Add(-time.Hour)
	future := now.Add(day)
	f.db.PutPublicAccess(models.PublicAccess{Token: "lapsed", ExpiresAt: &past, IsExpired: false})
	f.db.PutPublicAccess(models.PublicAccess{Token: "extended", ExpiresAt: &future, IsExpired: true})
	f.db.PutPublicAccess(models.PublicAccess{Token: "boundary", ExpiresAt: &now, IsExpired: true})
	f.db.PutPublicAccess(models.PublicAccess{Token: "open-ended", IsExpired: false})

	res, err := SyncExpirationFlag(ctx, f.store.PublicAccess, now)
	require.NoError(t, err)
	assert.Equal(t, FlagSync{MarkedExpired: 1, MarkedUnexpired: 2}, res)

	for token, want := range map[string]bool{"lapsed": true, "extended": false, "boundary": false, "open-ended": false} {
		row, err := f.store.PublicAccess.GetByToken(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, want, row.IsExpired, token)
	}

	res, err = SyncExpirationFlag(ctx, f.store.PublicAccess, now)
	require.NoError(t, err)
	assert.Equal(t, FlagSync{}, res)
}

func TestSyncPublicSnapshots(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.stage(now.Add(-time.Hour), models.StatusAssigned)

	n, err := SyncPublicSnapshots(ctx, f.store.PublicAccess, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	row, err := f.store.PublicAccess.GetByToken(ctx, a.Token)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.True(t, row.IsExpired)
	assert.Equal(t, "T1", row.TerritoryName)
	assert.Equal(t, "P1", row.PublisherName)

	n, err = SyncPublicSnapshots(ctx, f.store.PublicAccess, now)
	require.NoError(t, err)
	assert.Zero(t, n)
}

type failingAccess struct {
	repository.PublicAccessRepository
}

func (failingAccess) MarkExpired(context.Context, time.Time) (int64, error) { return 4, nil }

func (failingAccess) MarkUnexpired(context.Context, time.Time) (int64, error) {
	return 0, errors.New("connection reset")
}

func TestSyncExpirationFlagPartialFailure(t *testing.T) {
	res, err := SyncExpirationFlag(context.Background(), failingAccess{}, now)
	require.ErrorIs(t, err, apperr.ErrStore)
	assert.Equal(t, int64(4), res.MarkedExpired)
	assert.Equal(t, "mark unexpired links failed", apperr.Message(err))
}

func TestRunner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.stage(now.Add(-6*day), models.StatusAssigned)

	reg := prometheus.NewRegistry()
	metrics := observ.NewPrometheusJobMetrics(reg, "test")
	r := NewRunner(Jobs(f.store, DefaultGraceDays), zap.NewNop(),
		WithClock(func() time.Time { return now }),
		WithMetrics(metrics),
	)

	assert.Equal(t, []string{AutoReturnJob, SyncSnapshotsJob, SyncExpirationJob}, r.Names())

	report, err := r.Run(ctx, AutoReturnJob)
	require.NoError(t, err)
	assert.False(t, report.Skipped)
	assert.Equal(t, int64(1), report.Rows)
	assert.Equal(t, int64(1), report.Details["returned"])
	assert.Equal(t, now, report.StartedAt)

	_, err = r.Run(ctx, "no-such-job")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	count, err := testutil.GatherAndCount(reg, "test_jobs_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRunnerSkipsWhenLocked(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	locker := lock.NewRedisLocker(client, "jobs:")

	release, err := locker.Acquire(ctx, AutoReturnJob, time.Minute)
	require.NoError(t, err)

	r := NewRunner(Jobs(f.store, DefaultGraceDays), zap.NewNop(), WithLocker(locker))
	report, err := r.Run(ctx, AutoReturnJob)
	require.NoError(t, err)
	assert.True(t, report.Skipped)

	require.NoError(t, release(ctx))
	report, err = r.Run(ctx, AutoReturnJob)
	require.NoError(t, err)
	assert.False(t, report.Skipped)
	assert.False(t, mr.Exists("jobs:"+AutoReturnJob), "lock is released after the run")
}

func TestRunnerReportsFailure(t *testing.T) {
	jobs := map[string]Job{
		"broken": {
			Name: "broken",
			Run: func(context.Context, time.Time) (Result, error) {
				return Result{Rows: 2}, apperr.Store("do things", errors.New("boom"))
			},
		},
	}
	r := NewRunner(jobs, zap.NewNop(), WithTimeout(time.Second))
	report, err := r.Run(context.Background(), "broken")
	require.ErrorIs(t, err, apperr.ErrStore)
	assert.Equal(t, int64(2), report.Rows)
}

func TestRunnerAppliesTimeout(t *testing.T) {
	jobs := map[string]Job{
		"slow": {
			Name: "slow",
			Run: func(ctx context.Context, _ time.Time) (Result, error) {
				<-ctx.Done()
				return Result{}, ctx.Err()
			},
		},
	}
	r := NewRunner(jobs, zap.NewNop(), WithTimeout(20*time.Millisecond))
	_, err := r.Run(context.Background(), "slow")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

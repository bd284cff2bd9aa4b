package access

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lalith-99/territorydesk/internal/apperr"
	"github.com/lalith-99/territorydesk/internal/lifecycle"
	"github.com/lalith-99/territorydesk/internal/models"
	"github.com/lalith-99/territorydesk/internal/repository"
	"github.com/lalith-99/territorydesk/internal/repository/memory"
)

var now = time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)

const day = 24 * time.Hour

type fixture struct {
	db       *memory.DB
	store    repository.Store
	resolver *Resolver
	pub      *models.Publisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := memory.New()
	db.SetClock(func() time.Time { return now })
	store := db.Store()
	pub, err := store.Publishers.Create(context.Background(), "Ana", []string{})
	require.NoError(t, err)
	return &fixture{
		db:       db,
		store:    store,
		resolver: NewResolver(store, zap.NewNop(), WithClock(func() time.Time { return now })),
		pub:      pub,
	}
}

// assign creates a territory called name held by the fixture publisher
// until expiresAt.
func (f *fixture) assign(t *testing.T, name string, expiresAt time.Time) models.Assignment {
	t.Helper()
	ctx := context.Background()
	terr, err := f.store.Territories.Create(ctx, models.TerritoryInput{
		Name:        name,
		DangerLevel: models.DangerMedium,
		MapURL:      ptr("https://maps.example.com/" + name),
	})
	require.NoError(t, err)
	a, err := f.store.Assignments.Create(ctx, models.NewAssignment{
		TerritoryID: terr.ID,
		PublisherID: f.pub.ID,
		AssignedAt:  expiresAt.Add(-30 * day),
		ExpiresAt:   &expiresAt,
		Token:       uuid.NewString(),
	})
	require.NoError(t, err)
	return *a
}

func TestResolveUnknownToken(t *testing.T) {
	f := newFixture(t)
	for _, token := range []string{"", "   ", "nope"} {
		_, err := f.resolver.Resolve(context.Background(), token)
		assert.ErrorIs(t, err, apperr.ErrNotFound, token)
	}
}

func TestResolveLiveFallback(t *testing.T) {
	f := newFixture(t)
	a := f.assign(t, "T1", now.Add(3*day))

	view, err := f.resolver.Resolve(context.Background(), a.Token)
	require.NoError(t, err)
	assert.Equal(t, SourceLive, view.Source)
	assert.Equal(t, lifecycle.StatusAssigned, view.Status)
	assert.False(t, view.IsExpired)
	assert.Equal(t, "T1", view.TerritoryName)
	assert.Equal(t, "Ana", view.PublisherName)
	assert.Equal(t, models.DangerMedium, view.DangerLevel)
	require.NotNil(t, view.DaysRemaining)
	assert.Equal(t, 3, *view.DaysRemaining)
	assert.Empty(t, view.OtherAssignments)
}

func TestResolveSnapshotIgnoresStaleFlag(t *testing.T) {
	f := newFixture(t)
	a := f.assign(t, "T1", now.Add(-time.Hour))

	_, err := f.store.PublicAccess.Refresh(context.Background(), now.Add(-2*time.Hour))
	require.NoError(t, err)
	snap, err := f.store.PublicAccess.GetByToken(context.Background(), a.Token)
	require.NoError(t, err)
	require.False(t, snap.IsExpired, "snapshot taken before expiry")

	view, err := f.resolver.Resolve(context.Background(), a.Token)
	require.NoError(t, err)
	assert.Equal(t, SourceSnapshot, view.Source)
	assert.Equal(t, lifecycle.StatusExpired, view.Status)
	assert.True(t, view.IsExpired)
	assert.Equal(t, 0, *view.DaysRemaining)
}

func TestResolveSnapshotWithoutExpiryUsesFlag(t *testing.T) {
	f := newFixture(t)
	f.db.PutPublicAccess(models.PublicAccess{
		Token:         "legacy",
		TerritoryName: "Old",
		PublisherID:   f.pub.ID,
		PublisherName: "Ana",
		IsExpired:     true,
	})

	view, err := f.resolver.Resolve(context.Background(), "legacy")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusExpired, view.Status)
	assert.Nil(t, view.DaysRemaining)
}

func TestResolveExpiredOffersOtherLinks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	expired := f.assign(t, "Old", now.Add(-day))
	current := f.assign(t, "New", now.Add(10*day))
	f.assign(t, "AlsoOld", now.Add(-2*day))

	other, err := f.store.Publishers.Create(ctx, "Ben", []string{})
	require.NoError(t, err)
	terr, err := f.store.Territories.Create(ctx, models.TerritoryInput{Name: "Bens", DangerLevel: models.DangerNone})
	require.NoError(t, err)
	until := now.Add(5 * day)
	_, err = f.store.Assignments.Create(ctx, models.NewAssignment{
		TerritoryID: terr.ID, PublisherID: other.ID, AssignedAt: now, ExpiresAt: &until, Token: "bens-token",
	})
	require.NoError(t, err)

	view, err := f.resolver.Resolve(ctx, expired.Token)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusExpired, view.Status)
	require.Len(t, view.OtherAssignments, 1)
	assert.Equal(t, current.Token, view.OtherAssignments[0].Token)
	assert.Equal(t, "New", view.OtherAssignments[0].TerritoryName)
	assert.Equal(t, 10, *view.OtherAssignments[0].DaysRemaining)

	// An active link does not list the others.
	view, err = f.resolver.Resolve(ctx, current.Token)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusAssigned, view.Status)
	assert.Empty(t, view.OtherAssignments)
}

func TestResolveReturned(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.assign(t, "T1", now.Add(day))
	_, _, err := f.store.Assignments.MarkReturned(ctx, a.ID, now.Add(-time.Hour))
	require.NoError(t, err)

	view, err := f.resolver.Resolve(ctx, a.Token)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusReturned, view.Status)
	assert.False(t, view.IsExpired)
	assert.Nil(t, view.DaysRemaining)
	require.NotNil(t, view.ReturnedAt)

	_, err = f.store.PublicAccess.Refresh(ctx, now)
	require.NoError(t, err)
	view, err = f.resolver.Resolve(ctx, a.Token)
	require.NoError(t, err)
	assert.Equal(t, SourceSnapshot, view.Source)
	assert.Equal(t, lifecycle.StatusReturned, view.Status)
}

func TestResolveSnapshotDefersToAssignmentRow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	returned := f.assign(t, "T1", now.Add(20*day))
	ended := f.assign(t, "T2", now.Add(20*day))

	_, err := f.store.PublicAccess.Refresh(ctx, now)
	require.NoError(t, err)
	_, _, err = f.store.Assignments.MarkReturned(ctx, returned.ID, now)
	require.NoError(t, err)
	_, _, err = f.store.Assignments.MarkExpired(ctx, ended.ID, now.Add(-time.Minute))
	require.NoError(t, err)

	view, err := f.resolver.Resolve(ctx, returned.Token)
	require.NoError(t, err)
	assert.Equal(t, SourceSnapshot, view.Source)
	assert.Equal(t, lifecycle.StatusReturned, view.Status)
	assert.Nil(t, view.DaysRemaining)
	require.NotNil(t, view.ReturnedAt)
	assert.Equal(t, now, *view.ReturnedAt)

	view, err = f.resolver.Resolve(ctx, ended.Token)
	require.NoError(t, err)
	assert.Equal(t, SourceSnapshot, view.Source)
	assert.Equal(t, lifecycle.StatusExpired, view.Status)
	assert.True(t, view.IsExpired)
	assert.Equal(t, 0, *view.DaysRemaining)
	assert.Equal(t, now.Add(-time.Minute), *view.ExpiresAt)
}

func ptr[T any](v T) *T { return &v }

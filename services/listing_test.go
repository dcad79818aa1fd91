package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"listings-cms/internal/cache"
	"listings-cms/internal/store"
	"listings-cms/internal/store/storetest"
	"listings-cms/models"
)

type lookupCounter map[string]int

func (l lookupCounter) RecordCacheLookup(resource, outcome string) {
	l[resource+":"+outcome]++
}

func newProfileService(t *testing.T) (*ListingService[models.Profile], *storetest.MemoryRepository[models.Profile], *cache.MemoryCache, lookupCounter) {
	t.Helper()
	repo := storetest.NewMemoryRepository[models.Profile]()
	c := cache.NewMemoryCache(0)
	counter := lookupCounter{}
	svc := NewListingService[models.Profile]("profiles", repo, ListingOptions{
		Cache:    c,
		TTL:      time.Minute,
		StaleTTL: time.Hour,
		Observer: counter,
	})
	return svc, repo, c, counter
}

func profileCmd(heading string) models.CreateProfileRequest {
	return models.CreateProfileRequest{
		Heading:       heading,
		Description:   "d",
		Location:      "Jaipur",
		ContactNumber: "123",
		Images:        []string{"http://x/1.png"},
	}
}

func TestListingCreateThenGet(t *testing.T) {
	svc, _, _, _ := newProfileService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, profileCmd("A"))
	require.NoError(t, err)
	assert.False(t, created.ID.IsZero())
	assert.False(t, created.CreatedAt.IsZero())
	assert.False(t, created.UpdatedAt.IsZero())

	got, err := svc.Get(ctx, created.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, created.ProfileFields, got.ProfileFields)
}

func TestListingCreateDefaultsImages(t *testing.T) {
	svc, _, _, _ := newProfileService(t)
	cmd := profileCmd("A")
	cmd.Images = nil

	created, err := svc.Create(context.Background(), cmd)
	require.NoError(t, err)
	assert.NotNil(t, created.Images)
	assert.Empty(t, created.Images)
}

func TestListingListNewestFirst(t *testing.T) {
	svc, _, _, _ := newProfileService(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i, heading := range []string{"first", "second", "third"} {
		at := base.Add(time.Duration(i) * time.Minute)
		svc.now = func() time.Time { return at }
		_, err := svc.Create(ctx, profileCmd(heading))
		require.NoError(t, err)
	}
	svc.now = func() time.Time { return time.Now().UTC() }

	docs, status, err := svc.List(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, CacheMiss, status)
	require.Len(t, docs, 3)
	assert.Equal(t, "third", docs[0].Heading)
	assert.Equal(t, "second", docs[1].Heading)
	assert.Equal(t, "first", docs[2].Heading)
}

func TestListingListCacheHitAndInvalidation(t *testing.T) {
	svc, repo, _, counter := newProfileService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, profileCmd("A"))
	require.NoError(t, err)

	_, status, err := svc.List(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, CacheMiss, status)

	docs, status, err := svc.List(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, CacheHit, status)
	assert.Len(t, docs, 1)
	assert.Equal(t, 1, repo.Calls["find"])
	assert.Equal(t, 1, counter["profiles:hit"])

	_, err = svc.Create(ctx, profileCmd("B"))
	require.NoError(t, err)

	docs, status, err = svc.List(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, CacheMiss, status)
	assert.Len(t, docs, 2)
}

// pausingRepo blocks the first armed List after it has read from the store.
type pausingRepo struct {
	*storetest.MemoryRepository[models.Profile]
	armed   atomic.Bool
	read    chan struct{}
	release chan struct{}
}

func (r *pausingRepo) List(ctx context.Context, filter bson.M) ([]models.Profile, error) {
	docs, err := r.MemoryRepository.List(ctx, filter)
	if r.armed.CompareAndSwap(true, false) {
		r.read <- struct{}{}
		<-r.release
	}
	return docs, err
}

func TestListingDoesNotCacheSnapshotOlderThanWrite(t *testing.T) {
	repo := &pausingRepo{
		MemoryRepository: storetest.NewMemoryRepository[models.Profile](),
		read:             make(chan struct{}),
		release:          make(chan struct{}),
	}
	svc := NewListingService[models.Profile]("profiles", repo, ListingOptions{
		Cache: cache.NewMemoryCache(0), TTL: time.Minute, StaleTTL: time.Hour,
	})
	ctx := context.Background()

	repo.armed.Store(true)
	done := make(chan error, 1)
	go func() {
		docs, _, err := svc.List(ctx, nil)
		if err == nil && len(docs) != 0 {
			err = errors.New("expected the paused read to see an empty store")
		}
		done <- err
	}()

	<-repo.read
	_, err := svc.Create(ctx, profileCmd("A"))
	require.NoError(t, err)
	close(repo.release)
	require.NoError(t, <-done)

	docs, status, err := svc.List(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, CacheMiss, status)
	require.Len(t, docs, 1)
	assert.Equal(t, "A", docs[0].Heading)

	docs, status, err = svc.List(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, CacheHit, status)
	assert.Len(t, docs, 1)
}

func TestListingServesStaleSnapshotWhenStoreFails(t *testing.T) {
	svc, repo, _, counter := newProfileService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, profileCmd("A"))
	require.NoError(t, err)
	_, _, err = svc.List(ctx, nil)
	require.NoError(t, err)

	// Past the fresh window but inside the stale window.
	svc.now = func() time.Time { return time.Now().UTC().Add(10 * time.Minute) }
	repo.FailWith(errors.New("connection refused"))

	docs, status, err := svc.List(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, CacheStale, status)
	require.Len(t, docs, 1)
	assert.Equal(t, "A", docs[0].Heading)
	assert.Equal(t, 1, counter["profiles:stale"])
}

func TestListingFailsPastStaleWindow(t *testing.T) {
	svc, repo, _, _ := newProfileService(t)
	ctx := context.Background()

	_, _, err := svc.List(ctx, nil)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }
	repo.FailWith(errors.New("connection refused"))

	_, _, err = svc.List(ctx, nil)
	assert.Error(t, err)
}

func TestListingFailsWithoutSnapshot(t *testing.T) {
	svc, repo, _, _ := newProfileService(t)
	repo.FailWith(errors.New("connection refused"))

	_, _, err := svc.List(context.Background(), nil)
	assert.Error(t, err)
}

func TestListingFilterUsesSeparateCacheKey(t *testing.T) {
	repo := storetest.NewMemoryRepository[models.ExtraService]()
	svc := NewListingService[models.ExtraService]("extra_services", repo, ListingOptions{
		Cache: cache.NewMemoryCache(0), TTL: time.Minute, StaleTTL: time.Hour,
	})
	ctx := context.Background()

	for _, cat := range []string{"standard", "vip", "vip"} {
		_, err := svc.Create(ctx, models.CreateExtraServiceRequest{Name: "n", Rate: "1", Contact: "c", Category: cat})
		require.NoError(t, err)
	}

	vip, _, err := svc.List(ctx, map[string]string{"category": "vip"})
	require.NoError(t, err)
	assert.Len(t, vip, 2)

	all, status, err := svc.List(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, CacheMiss, status)
	assert.Len(t, all, 3)
}

func TestListingUpdate(t *testing.T) {
	svc, _, _, _ := newProfileService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, profileCmd("A"))
	require.NoError(t, err)

	location := "Udaipur"
	updated, err := svc.Update(ctx, created.ID.Hex(), models.UpdateProfileRequest{Location: &location})
	require.NoError(t, err)
	assert.Equal(t, "Udaipur", updated.Location)
	assert.Equal(t, "A", updated.Heading)
	assert.Equal(t, []string{"http://x/1.png"}, updated.Images)
}

func TestListingUpdateErrors(t *testing.T) {
	svc, repo, _, _ := newProfileService(t)
	ctx := context.Background()
	heading := "B"

	_, err := svc.Update(ctx, "not-an-id", models.UpdateProfileRequest{Heading: &heading})
	assert.ErrorIs(t, err, store.ErrInvalidID)

	_, err = svc.Update(ctx, "64b7f0c2a1b2c3d4e5f60718", models.UpdateProfileRequest{Heading: &heading})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = svc.Update(ctx, "64b7f0c2a1b2c3d4e5f60718", models.UpdateProfileRequest{})
	assert.ErrorIs(t, err, ErrNothingToUpdate)
	assert.Equal(t, 1, repo.Calls["update"])
}

func TestListingDelete(t *testing.T) {
	svc, _, _, _ := newProfileService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, profileCmd("A"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID.Hex()))
	assert.ErrorIs(t, svc.Delete(ctx, created.ID.Hex()), store.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "xyz"), store.ErrInvalidID)

	_, err = svc.Get(ctx, created.ID.Hex())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListingWarm(t *testing.T) {
	svc, repo, c, _ := newProfileService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, profileCmd("A"))
	require.NoError(t, err)
	require.NoError(t, svc.Warm(ctx))

	entry, ok, err := c.Get(ctx, "listing:profiles:0:all")
	require.NoError(t, err)
	require.True(t, ok)
	var docs []models.Profile
	require.NoError(t, entry.Decode(&docs))
	assert.Len(t, docs, 1)

	_, status, err := svc.List(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, CacheHit, status)
	assert.Equal(t, 1, repo.Calls["find"])
}

func TestListingWithoutCache(t *testing.T) {
	repo := storetest.NewMemoryRepository[models.Profile]()
	svc := NewListingService[models.Profile]("profiles", repo, ListingOptions{})
	ctx := context.Background()

	_, status, err := svc.List(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, CacheMiss, status)
	assert.NoError(t, svc.Warm(ctx))
}

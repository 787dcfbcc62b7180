package sweeper

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"emberlog/internal/cache"
	"emberlog/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePostRepo is an in-memory PostRepository covering what the sweeper
// touches: ListExpired and Delete. Everything else is unused here.
type fakePostRepo struct {
	mu    sync.Mutex
	posts map[uint]*models.Post
}

func newFakePostRepo(posts ...*models.Post) *fakePostRepo {
	m := make(map[uint]*models.Post, len(posts))
	for _, p := range posts {
		m[p.ID] = p
	}
	return &fakePostRepo{posts: m}
}

func (f *fakePostRepo) ListExpired(_ context.Context, cutoff time.Time, limit int) ([]*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Post
	for _, p := range f.posts {
		if !p.CreatedAt.After(cutoff) {
			out = append(out, p)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakePostRepo) Delete(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.posts, id)
	return nil
}

func (f *fakePostRepo) remaining() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.posts)
}

func (f *fakePostRepo) Create(context.Context, *models.Post) error { return nil }
func (f *fakePostRepo) GetByID(context.Context, uint, uint) (*models.Post, error) {
	return nil, nil
}
func (f *fakePostRepo) GetByUserID(context.Context, uint, int, int, uint) ([]*models.Post, error) {
	return nil, nil
}
func (f *fakePostRepo) GetByTagID(context.Context, uint, int, int, uint) ([]*models.Post, error) {
	return nil, nil
}
func (f *fakePostRepo) List(context.Context, int, int, uint) ([]*models.Post, error) {
	return nil, nil
}
func (f *fakePostRepo) Search(context.Context, string, int, int, uint) ([]*models.Post, error) {
	return nil, nil
}
func (f *fakePostRepo) Update(context.Context, *models.Post) error   { return nil }
func (f *fakePostRepo) IsLiked(context.Context, uint, uint) (bool, error) {
	return false, nil
}
func (f *fakePostRepo) Like(context.Context, uint, uint) error       { return nil }
func (f *fakePostRepo) Unlike(context.Context, uint, uint) error     { return nil }
func (f *fakePostRepo) CountLikes(context.Context, uint) (int64, error) {
	return 0, nil
}

type fakeStorage struct {
	mu      sync.Mutex
	deleted []string
	failOn  map[string]error
}

func (f *fakeStorage) Upload(_ context.Context, _ string, _ io.Reader, _ string) (string, error) {
	return "", nil
}

func (f *fakeStorage) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failOn[key]; ok {
		return err
	}
	f.deleted = append(f.deleted, key)
	return nil
}

func noopLease() *cache.Lease {
	return cache.NewLease(nil, LeaseKey, time.Minute)
}

func TestSweeper_RunOnce_PurgesExpired(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	repo := newFakePostRepo(
		&models.Post{ID: 1, CreatedAt: now.Add(-25 * time.Hour), CoverImageKey: "covers/1.webp"},
		&models.Post{ID: 2, CreatedAt: now.Add(-24 * time.Hour)}, // exactly at the boundary
		&models.Post{ID: 3, CreatedAt: now.Add(-23 * time.Hour)}, // still alive
	)
	st := &fakeStorage{}
	s := New(repo, st, noopLease(), WithNow(func() time.Time { return now }))

	purged, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, purged)
	assert.Equal(t, 1, repo.remaining())
	assert.Equal(t, []string{"covers/1.webp"}, st.deleted)
}

func TestSweeper_RunOnce_Idempotent(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	repo := newFakePostRepo(
		&models.Post{ID: 1, CreatedAt: now.Add(-30 * time.Hour)},
		&models.Post{ID: 2, CreatedAt: now.Add(-26 * time.Hour)},
	)
	s := New(repo, nil, noopLease(), WithNow(func() time.Time { return now }))
	ctx := context.Background()

	purged, err := s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, purged)

	purged, err = s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, purged, "second run must purge nothing")
}

func TestSweeper_RunOnce_DrainsMultipleBatches(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	var posts []*models.Post
	for i := uint(1); i <= 7; i++ {
		posts = append(posts, &models.Post{ID: i, CreatedAt: now.Add(-48 * time.Hour)})
	}
	repo := newFakePostRepo(posts...)
	s := New(repo, nil, noopLease(),
		WithNow(func() time.Time { return now }),
		WithBatchSize(3),
	)

	purged, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, purged)
	assert.Equal(t, 0, repo.remaining())
}

func TestSweeper_RunOnce_AssetFailureDoesNotAbort(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	repo := newFakePostRepo(
		&models.Post{ID: 1, CreatedAt: now.Add(-25 * time.Hour), CoverImageKey: "covers/bad.webp"},
		&models.Post{ID: 2, CreatedAt: now.Add(-25 * time.Hour), CoverImageKey: "covers/good.webp"},
	)
	st := &fakeStorage{failOn: map[string]error{
		"covers/bad.webp": errors.New("bucket unavailable"),
	}}
	s := New(repo, st, noopLease(), WithNow(func() time.Time { return now }))

	purged, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, purged, "a failed asset delete must not block the purge")
	assert.Equal(t, 0, repo.remaining())
	assert.Equal(t, []string{"covers/good.webp"}, st.deleted)
}

func TestSweeper_RunOnce_LeaseHeldSkips(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	repo := newFakePostRepo(
		&models.Post{ID: 1, CreatedAt: now.Add(-25 * time.Hour)},
	)

	// Another instance holds the lease.
	holder := cache.NewLease(rdb, LeaseKey, time.Minute)
	require.NoError(t, holder.Acquire(context.Background()))

	s := New(repo, nil, cache.NewLease(rdb, LeaseKey, time.Minute),
		WithNow(func() time.Time { return now }))

	purged, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, purged)
	assert.Equal(t, 1, repo.remaining(), "a skipped sweep must have zero side effects")

	// After the holder releases, the sweep proceeds.
	require.NoError(t, holder.Release(context.Background()))
	purged, err = s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, purged)
}

func TestSweeper_RunOnce_TimeoutAborts(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	repo := newFakePostRepo(
		&models.Post{ID: 1, CreatedAt: now.Add(-25 * time.Hour)},
		&models.Post{ID: 2, CreatedAt: now.Add(-25 * time.Hour)},
	)
	s := New(repo, nil, noopLease(),
		WithNow(func() time.Time { return now }),
		WithTimeout(time.Nanosecond),
	)

	purged, err := s.RunOnce(context.Background())
	assert.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, purged)
}

package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"emberlog/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn      func(context.Context, *models.Post) error
	getByIDFn     func(context.Context, uint, uint) (*models.Post, error)
	getByUserIDFn func(context.Context, uint, int, int, uint) ([]*models.Post, error)
	getByTagIDFn  func(context.Context, uint, int, int, uint) ([]*models.Post, error)
	listFn        func(context.Context, int, int, uint) ([]*models.Post, error)
	searchFn      func(context.Context, string, int, int, uint) ([]*models.Post, error)
	updateFn      func(context.Context, *models.Post) error
	deleteFn      func(context.Context, uint) error
	listExpiredFn func(context.Context, time.Time, int) ([]*models.Post, error)
	isLikedFn     func(context.Context, uint, uint) (bool, error)
	likeFn        func(context.Context, uint, uint) error
	unlikeFn      func(context.Context, uint, uint) error
	countLikesFn  func(context.Context, uint) (int64, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id, currentUserID uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id, currentUserID)
}
func (s *postRepoStub) GetByUserID(ctx context.Context, userID uint, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	return s.getByUserIDFn(ctx, userID, limit, offset, currentUserID)
}
func (s *postRepoStub) GetByTagID(ctx context.Context, tagID uint, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	return s.getByTagIDFn(ctx, tagID, limit, offset, currentUserID)
}
func (s *postRepoStub) List(ctx context.Context, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	return s.listFn(ctx, limit, offset, currentUserID)
}
func (s *postRepoStub) Search(ctx context.Context, query string, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	return s.searchFn(ctx, query, limit, offset, currentUserID)
}
func (s *postRepoStub) Update(ctx context.Context, post *models.Post) error {
	return s.updateFn(ctx, post)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *postRepoStub) ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]*models.Post, error) {
	return s.listExpiredFn(ctx, cutoff, limit)
}
func (s *postRepoStub) IsLiked(ctx context.Context, userID, postID uint) (bool, error) {
	return s.isLikedFn(ctx, userID, postID)
}
func (s *postRepoStub) Like(ctx context.Context, userID, postID uint) error {
	return s.likeFn(ctx, userID, postID)
}
func (s *postRepoStub) Unlike(ctx context.Context, userID, postID uint) error {
	return s.unlikeFn(ctx, userID, postID)
}
func (s *postRepoStub) CountLikes(ctx context.Context, postID uint) (int64, error) {
	return s.countLikesFn(ctx, postID)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn:      func(_ context.Context, _ *models.Post) error { return nil },
		getByIDFn:     func(_ context.Context, _, _ uint) (*models.Post, error) { return &models.Post{}, nil },
		getByUserIDFn: func(_ context.Context, _ uint, _, _ int, _ uint) ([]*models.Post, error) { return nil, nil },
		getByTagIDFn:  func(_ context.Context, _ uint, _, _ int, _ uint) ([]*models.Post, error) { return nil, nil },
		listFn:        func(_ context.Context, _, _ int, _ uint) ([]*models.Post, error) { return nil, nil },
		searchFn:      func(_ context.Context, _ string, _, _ int, _ uint) ([]*models.Post, error) { return nil, nil },
		updateFn:      func(_ context.Context, _ *models.Post) error { return nil },
		deleteFn:      func(_ context.Context, _ uint) error { return nil },
		listExpiredFn: func(_ context.Context, _ time.Time, _ int) ([]*models.Post, error) { return nil, nil },
		isLikedFn:     func(_ context.Context, _, _ uint) (bool, error) { return false, nil },
		likeFn:        func(_ context.Context, _, _ uint) error { return nil },
		unlikeFn:      func(_ context.Context, _, _ uint) error { return nil },
		countLikesFn:  func(_ context.Context, _ uint) (int64, error) { return 0, nil },
	}
}

// tagRepoStub is a stub for repository.TagRepository.
type tagRepoStub struct {
	createFn    func(context.Context, *models.Tag) error
	getByIDFn   func(context.Context, uint) (*models.Tag, error)
	getBySlugFn func(context.Context, string) (*models.Tag, error)
	getByIDsFn  func(context.Context, []uint) ([]models.Tag, error)
	listFn      func(context.Context) ([]models.Tag, error)
	updateFn    func(context.Context, *models.Tag) error
	deleteFn    func(context.Context, uint) error
}

func (s *tagRepoStub) Create(ctx context.Context, tag *models.Tag) error { return s.createFn(ctx, tag) }
func (s *tagRepoStub) GetByID(ctx context.Context, id uint) (*models.Tag, error) {
	return s.getByIDFn(ctx, id)
}
func (s *tagRepoStub) GetBySlug(ctx context.Context, slug string) (*models.Tag, error) {
	return s.getBySlugFn(ctx, slug)
}
func (s *tagRepoStub) GetByIDs(ctx context.Context, ids []uint) ([]models.Tag, error) {
	return s.getByIDsFn(ctx, ids)
}
func (s *tagRepoStub) List(ctx context.Context) ([]models.Tag, error) { return s.listFn(ctx) }
func (s *tagRepoStub) Update(ctx context.Context, tag *models.Tag) error {
	return s.updateFn(ctx, tag)
}
func (s *tagRepoStub) Delete(ctx context.Context, id uint) error { return s.deleteFn(ctx, id) }

func noopTagRepo() *tagRepoStub {
	return &tagRepoStub{
		createFn:    func(_ context.Context, _ *models.Tag) error { return nil },
		getByIDFn:   func(_ context.Context, _ uint) (*models.Tag, error) { return &models.Tag{}, nil },
		getBySlugFn: func(_ context.Context, _ string) (*models.Tag, error) { return &models.Tag{}, nil },
		getByIDsFn: func(_ context.Context, ids []uint) ([]models.Tag, error) {
			tags := make([]models.Tag, len(ids))
			for i, id := range ids {
				tags[i] = models.Tag{ID: id}
			}
			return tags, nil
		},
		listFn:   func(_ context.Context) ([]models.Tag, error) { return nil, nil },
		updateFn: func(_ context.Context, _ *models.Tag) error { return nil },
		deleteFn: func(_ context.Context, _ uint) error { return nil },
	}
}

// storageStub is a stub for storage.ObjectStorage.
type storageStub struct {
	uploadFn func(context.Context, string, io.Reader, string) (string, error)
	deleteFn func(context.Context, string) error
}

func (s *storageStub) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	return s.uploadFn(ctx, key, body, contentType)
}
func (s *storageStub) Delete(ctx context.Context, key string) error { return s.deleteFn(ctx, key) }

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

// assertUnauthorizedError asserts that err is an AppError with code UNAUTHORIZED.
func assertUnauthorizedError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, "UNAUTHORIZED", appErr.Code)
}

func TestPostService_CreatePost_Validation(t *testing.T) {
	t.Parallel()

	svc := NewPostService(noopPostRepo(), noopTagRepo(), nil)
	ctx := context.Background()

	tests := []struct {
		name  string
		input CreatePostInput
	}{
		{
			name:  "empty title",
			input: CreatePostInput{UserID: 1, Content: "some content", TagIDs: []uint{1}},
		},
		{
			name:  "title too long",
			input: CreatePostInput{UserID: 1, Title: strings.Repeat("x", 301), Content: "c", TagIDs: []uint{1}},
		},
		{
			name:  "empty content",
			input: CreatePostInput{UserID: 1, Title: "T", TagIDs: []uint{1}},
		},
		{
			name:  "content too long",
			input: CreatePostInput{UserID: 1, Title: "T", Content: strings.Repeat("x", 50001), TagIDs: []uint{1}},
		},
		{
			name:  "no tags",
			input: CreatePostInput{UserID: 1, Title: "T", Content: "c"},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := svc.CreatePost(ctx, tc.input)
			assertValidationError(t, err)
		})
	}
}

func TestPostService_CreatePost_UnknownTagFailsClosed(t *testing.T) {
	t.Parallel()

	created := false
	pr := noopPostRepo()
	pr.createFn = func(_ context.Context, _ *models.Post) error {
		created = true
		return nil
	}
	tr := noopTagRepo()
	tr.getByIDsFn = func(_ context.Context, _ []uint) ([]models.Tag, error) {
		// only one of the two requested tags exists
		return []models.Tag{{ID: 1}}, nil
	}

	svc := NewPostService(pr, tr, nil)
	_, err := svc.CreatePost(context.Background(), CreatePostInput{
		UserID: 1, Title: "T", Content: "c", TagIDs: []uint{1, 2},
	})
	assertValidationError(t, err)
	assert.False(t, created, "post must not be created with a partial tag set")
}

func TestPostService_CreatePost_DeduplicatesTagIDs(t *testing.T) {
	t.Parallel()

	var requested []uint
	tr := noopTagRepo()
	tr.getByIDsFn = func(_ context.Context, ids []uint) ([]models.Tag, error) {
		requested = ids
		tags := make([]models.Tag, len(ids))
		for i, id := range ids {
			tags[i] = models.Tag{ID: id}
		}
		return tags, nil
	}

	svc := NewPostService(noopPostRepo(), tr, nil)
	_, err := svc.CreatePost(context.Background(), CreatePostInput{
		UserID: 1, Title: "T", Content: "c", TagIDs: []uint{3, 3, 7},
	})
	require.NoError(t, err)
	assert.Equal(t, []uint{3, 7}, requested)
}

func TestPostService_UpdatePost_Ownership(t *testing.T) {
	t.Parallel()

	t.Run("non-owner cannot update", func(t *testing.T) {
		t.Parallel()
		repo := noopPostRepo()
		repo.getByIDFn = func(_ context.Context, _, _ uint) (*models.Post, error) {
			return &models.Post{ID: 1, UserID: 10}, nil
		}
		svc := NewPostService(repo, noopTagRepo(), nil)
		_, err := svc.UpdatePost(context.Background(), UpdatePostInput{UserID: 1, PostID: 1, Title: "new"})
		assertUnauthorizedError(t, err)
	})

	t.Run("owner can update title", func(t *testing.T) {
		t.Parallel()
		repo := noopPostRepo()
		repo.getByIDFn = func(_ context.Context, _, _ uint) (*models.Post, error) {
			return &models.Post{ID: 1, UserID: 1, Title: "old"}, nil
		}
		svc := NewPostService(repo, noopTagRepo(), nil)
		post, err := svc.UpdatePost(context.Background(), UpdatePostInput{UserID: 1, PostID: 1, Title: "new"})
		require.NoError(t, err)
		assert.Equal(t, "new", post.Title)
	})
}

func TestPostService_DeletePost(t *testing.T) {
	t.Parallel()

	t.Run("non-owner cannot delete", func(t *testing.T) {
		t.Parallel()
		repo := noopPostRepo()
		repo.getByIDFn = func(_ context.Context, _, _ uint) (*models.Post, error) {
			return &models.Post{ID: 1, UserID: 10}, nil
		}
		svc := NewPostService(repo, noopTagRepo(), nil)
		err := svc.DeletePost(context.Background(), DeletePostInput{UserID: 1, PostID: 1})
		assertUnauthorizedError(t, err)
	})

	t.Run("owner delete removes cover asset", func(t *testing.T) {
		t.Parallel()
		repo := noopPostRepo()
		repo.getByIDFn = func(_ context.Context, _, _ uint) (*models.Post, error) {
			return &models.Post{ID: 1, UserID: 1, CoverImageKey: "covers/1.webp"}, nil
		}
		var deletedKey string
		st := &storageStub{
			uploadFn: func(_ context.Context, _ string, _ io.Reader, _ string) (string, error) { return "", nil },
			deleteFn: func(_ context.Context, key string) error {
				deletedKey = key
				return nil
			},
		}
		svc := NewPostService(repo, noopTagRepo(), st)
		err := svc.DeletePost(context.Background(), DeletePostInput{UserID: 1, PostID: 1})
		require.NoError(t, err)
		assert.Equal(t, "covers/1.webp", deletedKey)
	})
}

func TestPostService_ToggleLike(t *testing.T) {
	t.Parallel()

	t.Run("like then unlike converges", func(t *testing.T) {
		t.Parallel()
		liked := false
		var count int64
		repo := noopPostRepo()
		repo.isLikedFn = func(_ context.Context, _, _ uint) (bool, error) { return liked, nil }
		repo.likeFn = func(_ context.Context, _, _ uint) error {
			liked = true
			count = 1
			return nil
		}
		repo.unlikeFn = func(_ context.Context, _, _ uint) error {
			liked = false
			count = 0
			return nil
		}
		repo.countLikesFn = func(_ context.Context, _ uint) (int64, error) { return count, nil }

		svc := NewPostService(repo, noopTagRepo(), nil)
		ctx := context.Background()

		res, err := svc.ToggleLike(ctx, 1, 2)
		require.NoError(t, err)
		assert.True(t, res.Liked)
		assert.Equal(t, int64(1), res.LikesCount)

		res, err = svc.ToggleLike(ctx, 1, 2)
		require.NoError(t, err)
		assert.False(t, res.Liked)
		assert.Equal(t, int64(0), res.LikesCount)
	})

	t.Run("missing post surfaces NotFound", func(t *testing.T) {
		t.Parallel()
		repo := noopPostRepo()
		repo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
			return nil, models.NewNotFoundError("Post", id)
		}
		svc := NewPostService(repo, noopTagRepo(), nil)
		_, err := svc.ToggleLike(context.Background(), 1, 99)
		var appErr *models.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, "NOT_FOUND", appErr.Code)
	})
}

func TestPostService_SearchPosts_EmptyQuery(t *testing.T) {
	t.Parallel()
	svc := NewPostService(noopPostRepo(), noopTagRepo(), nil)
	_, err := svc.SearchPosts(context.Background(), "", 10, 0, 0)
	assertValidationError(t, err)
}

func TestPostService_RemoveCoverImage(t *testing.T) {
	t.Parallel()

	repo := noopPostRepo()
	repo.getByIDFn = func(_ context.Context, _, _ uint) (*models.Post, error) {
		return &models.Post{ID: 1, UserID: 1, CoverImageKey: "covers/old.webp", CoverImageURL: "https://cdn/covers/old.webp"}, nil
	}
	var deletedKey string
	st := &storageStub{
		uploadFn: func(_ context.Context, _ string, _ io.Reader, _ string) (string, error) { return "", nil },
		deleteFn: func(_ context.Context, key string) error {
			deletedKey = key
			return nil
		},
	}
	svc := NewPostService(repo, noopTagRepo(), st)

	post, err := svc.RemoveCoverImage(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, "covers/old.webp", deletedKey)
	assert.Empty(t, post.CoverImageKey)
	assert.Empty(t, post.CoverImageURL)
}

func TestPostService_SetCoverImage_ReplacesOldAsset(t *testing.T) {
	t.Parallel()

	repo := noopPostRepo()
	repo.getByIDFn = func(_ context.Context, _, _ uint) (*models.Post, error) {
		return &models.Post{ID: 1, UserID: 1, CoverImageKey: "covers/old.webp"}, nil
	}
	var deletedKey string
	st := &storageStub{
		uploadFn: func(_ context.Context, _ string, _ io.Reader, _ string) (string, error) { return "", nil },
		deleteFn: func(_ context.Context, key string) error {
			deletedKey = key
			return nil
		},
	}
	svc := NewPostService(repo, noopTagRepo(), st)

	post, err := svc.SetCoverImage(context.Background(), 1, 1, "covers/new.webp", "https://cdn/covers/new.webp")
	require.NoError(t, err)
	assert.Equal(t, "covers/old.webp", deletedKey)
	assert.Equal(t, "covers/new.webp", post.CoverImageKey)
}

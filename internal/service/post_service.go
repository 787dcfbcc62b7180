// Package service contains the application's business logic, sitting between
// the HTTP handlers and the repositories.
package service

import (
	"context"

	"emberlog/internal/cache"
	"emberlog/internal/models"
	"emberlog/internal/repository"
	"emberlog/internal/storage"
)

type PostService struct {
	postRepo repository.PostRepository
	tagRepo  repository.TagRepository
	storage  storage.ObjectStorage
}

type CreatePostInput struct {
	UserID  uint
	Title   string
	Content string
	Excerpt string
	TagIDs  []uint
}

type UpdatePostInput struct {
	UserID  uint
	PostID  uint
	Title   string
	Content string
	Excerpt string
	TagIDs  []uint
}

type DeletePostInput struct {
	UserID uint
	PostID uint
}

// LikeResult is the outcome of a like toggle: the new edge state and a
// fresh count read after the write.
type LikeResult struct {
	Liked      bool  `json:"liked"`
	LikesCount int64 `json:"likes_count"`
}

func NewPostService(
	postRepo repository.PostRepository,
	tagRepo repository.TagRepository,
	objectStorage storage.ObjectStorage,
) *PostService {
	return &PostService{
		postRepo: postRepo,
		tagRepo:  tagRepo,
		storage:  objectStorage,
	}
}

const (
	maxTitleLen   = 300
	maxContentLen = 50000
	maxExcerptLen = 500
)

// resolveTags loads the requested tags and fails closed when any ID is
// unknown: a post is never created with a partial tag set.
func (s *PostService) resolveTags(ctx context.Context, tagIDs []uint) ([]models.Tag, error) {
	if len(tagIDs) == 0 {
		return nil, models.NewValidationError("At least one tag is required")
	}

	seen := make(map[uint]struct{}, len(tagIDs))
	unique := make([]uint, 0, len(tagIDs))
	for _, id := range tagIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	tags, err := s.tagRepo.GetByIDs(ctx, unique)
	if err != nil {
		return nil, err
	}
	if len(tags) != len(unique) {
		return nil, models.NewValidationError("One or more tags do not exist")
	}
	return tags, nil
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if in.Title == "" {
		return nil, models.NewValidationError("Title is required")
	}
	if len(in.Title) > maxTitleLen {
		return nil, models.NewValidationError("Title too long (max 300 characters)")
	}
	if in.Content == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if len(in.Content) > maxContentLen {
		return nil, models.NewValidationError("Content too long (max 50000 characters)")
	}
	if len(in.Excerpt) > maxExcerptLen {
		return nil, models.NewValidationError("Excerpt too long (max 500 characters)")
	}

	tags, err := s.resolveTags(ctx, in.TagIDs)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:   in.Title,
		Content: in.Content,
		Excerpt: in.Excerpt,
		UserID:  in.UserID,
		Tags:    tags,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}

	return s.postRepo.GetByID(ctx, post.ID, in.UserID)
}

func (s *PostService) GetPost(ctx context.Context, id uint, currentUserID uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, id, currentUserID)
}

func (s *PostService) ListPosts(ctx context.Context, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	return s.postRepo.List(ctx, limit, offset, currentUserID)
}

func (s *PostService) GetUserPosts(ctx context.Context, userID uint, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	return s.postRepo.GetByUserID(ctx, userID, limit, offset, currentUserID)
}

func (s *PostService) GetPostsByTag(ctx context.Context, tagSlug string, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	tag, err := s.tagRepo.GetBySlug(ctx, tagSlug)
	if err != nil {
		return nil, err
	}
	return s.postRepo.GetByTagID(ctx, tag.ID, limit, offset, currentUserID)
}

func (s *PostService) SearchPosts(ctx context.Context, query string, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	if query == "" {
		return nil, models.NewValidationError("Search query is required")
	}
	return s.postRepo.Search(ctx, query, limit, offset, currentUserID)
}

func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID, in.UserID)
	if err != nil {
		return nil, err
	}

	if post.UserID != in.UserID {
		return nil, models.NewUnauthorizedError("You can only update your own posts")
	}

	if in.Title != "" {
		if len(in.Title) > maxTitleLen {
			return nil, models.NewValidationError("Title too long (max 300 characters)")
		}
		post.Title = in.Title
	}
	if in.Content != "" {
		if len(in.Content) > maxContentLen {
			return nil, models.NewValidationError("Content too long (max 50000 characters)")
		}
		post.Content = in.Content
	}
	if in.Excerpt != "" {
		if len(in.Excerpt) > maxExcerptLen {
			return nil, models.NewValidationError("Excerpt too long (max 500 characters)")
		}
		post.Excerpt = in.Excerpt
	}
	if in.TagIDs != nil {
		tags, err := s.resolveTags(ctx, in.TagIDs)
		if err != nil {
			return nil, err
		}
		post.Tags = tags
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// DeletePost removes the author's post ahead of its expiration. The cover
// asset goes best-effort; losing it only strands an object in the bucket.
func (s *PostService) DeletePost(ctx context.Context, in DeletePostInput) error {
	post, err := s.postRepo.GetByID(ctx, in.PostID, in.UserID)
	if err != nil {
		return err
	}

	if post.UserID != in.UserID {
		return models.NewUnauthorizedError("You can only delete your own posts")
	}

	if post.CoverImageKey != "" && s.storage != nil {
		_ = s.storage.Delete(ctx, post.CoverImageKey)
	}

	return s.postRepo.Delete(ctx, in.PostID)
}

// SetCoverImage records a freshly uploaded cover asset on the post,
// replacing (and deleting) any previous one.
func (s *PostService) SetCoverImage(ctx context.Context, userID, postID uint, key, url string) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if post.UserID != userID {
		return nil, models.NewUnauthorizedError("You can only update your own posts")
	}

	if post.CoverImageKey != "" && post.CoverImageKey != key && s.storage != nil {
		_ = s.storage.Delete(ctx, post.CoverImageKey)
	}

	post.CoverImageKey = key
	post.CoverImageURL = url
	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// RemoveCoverImage detaches and deletes the post's cover asset, if any.
func (s *PostService) RemoveCoverImage(ctx context.Context, userID, postID uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if post.UserID != userID {
		return nil, models.NewUnauthorizedError("You can only update your own posts")
	}

	if post.CoverImageKey != "" && s.storage != nil {
		_ = s.storage.Delete(ctx, post.CoverImageKey)
	}

	post.CoverImageKey = ""
	post.CoverImageURL = ""
	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// ToggleLike flips the caller's like edge on the post and returns the new
// state with a count read after the write. Concurrent toggles converge on
// the repository's idempotent insert and delete.
func (s *PostService) ToggleLike(ctx context.Context, userID, postID uint) (*LikeResult, error) {
	// Existence check first so a missing post surfaces as NotFound,
	// not as a silently ignored like.
	if _, err := s.postRepo.GetByID(ctx, postID, userID); err != nil {
		return nil, err
	}

	isLiked, err := s.postRepo.IsLiked(ctx, userID, postID)
	if err != nil {
		return nil, err
	}

	if isLiked {
		if err := s.postRepo.Unlike(ctx, userID, postID); err != nil {
			return nil, err
		}
	} else {
		if err := s.postRepo.Like(ctx, userID, postID); err != nil {
			return nil, err
		}
	}

	count, err := s.postRepo.CountLikes(ctx, postID)
	if err != nil {
		return nil, err
	}

	cache.InvalidatePost(ctx, postID)
	return &LikeResult{Liked: !isLiked, LikesCount: count}, nil
}

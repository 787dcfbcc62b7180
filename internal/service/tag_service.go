package service

import (
	"context"

	"emberlog/internal/cache"
	"emberlog/internal/models"
	"emberlog/internal/repository"
)

type TagService struct {
	tagRepo repository.TagRepository
}

func NewTagService(tagRepo repository.TagRepository) *TagService {
	return &TagService{tagRepo: tagRepo}
}

const maxTagNameLen = 50

func validateTagName(name string) (slug string, err error) {
	if name == "" {
		return "", models.NewValidationError("Tag name is required")
	}
	if len(name) > maxTagNameLen {
		return "", models.NewValidationError("Tag name too long (max 50 characters)")
	}
	slug = models.Slugify(name)
	if slug == "" {
		return "", models.NewValidationError("Tag name must contain at least one letter or digit")
	}
	return slug, nil
}

func (s *TagService) ListTags(ctx context.Context) ([]models.Tag, error) {
	return s.tagRepo.List(ctx)
}

func (s *TagService) GetTagBySlug(ctx context.Context, slug string) (*models.Tag, error) {
	return s.tagRepo.GetBySlug(ctx, slug)
}

func (s *TagService) CreateTag(ctx context.Context, name string) (*models.Tag, error) {
	slug, err := validateTagName(name)
	if err != nil {
		return nil, err
	}

	tag := &models.Tag{Name: name, Slug: slug}
	if err := s.tagRepo.Create(ctx, tag); err != nil {
		return nil, err
	}
	return tag, nil
}

// RenameTag changes a tag's name and rederives its slug. The rename is
// visible on every post carrying the tag.
func (s *TagService) RenameTag(ctx context.Context, id uint, name string) (*models.Tag, error) {
	slug, err := validateTagName(name)
	if err != nil {
		return nil, err
	}

	tag, err := s.tagRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	oldSlug := tag.Slug
	tag.Name = name
	tag.Slug = slug
	if err := s.tagRepo.Update(ctx, tag); err != nil {
		return nil, err
	}
	if oldSlug != slug {
		// The cached entry under the old slug is now a dangling alias.
		cache.Invalidate(ctx, cache.TagKey(oldSlug))
	}
	return tag, nil
}

func (s *TagService) DeleteTag(ctx context.Context, id uint) error {
	if _, err := s.tagRepo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.tagRepo.Delete(ctx, id)
}

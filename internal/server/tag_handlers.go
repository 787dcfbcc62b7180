package server

import (
	"emberlog/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetTags handles GET /api/tags
func (s *Server) GetTags(c *fiber.Ctx) error {
	tags, err := s.tagService.ListTags(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tags)
}

// GetTag handles GET /api/tags/:slug
func (s *Server) GetTag(c *fiber.Ctx) error {
	tag, err := s.tagService.GetTagBySlug(c.UserContext(), c.Params("slug"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tag)
}

// GetTagPosts handles GET /api/tags/:slug/posts
func (s *Server) GetTagPosts(c *fiber.Ctx) error {
	ctx := c.UserContext()
	page := parsePagination(c, 20)
	userID, _ := s.optionalUserID(c)

	posts, err := s.postService.GetPostsByTag(ctx, c.Params("slug"), page.Limit, page.Offset, userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}

// CreateTag handles POST /api/tags
func (s *Server) CreateTag(c *fiber.Ctx) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	tag, err := s.tagService.CreateTag(c.UserContext(), req.Name)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(tag)
}

// RenameTag handles PUT /api/tags/:tagId
func (s *Server) RenameTag(c *fiber.Ctx) error {
	id, err := s.parseID(c, "tagId")
	if err != nil {
		return nil
	}

	var req struct {
		Name string `json:"name"`
	}
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	tag, renameErr := s.tagService.RenameTag(c.UserContext(), id, req.Name)
	if renameErr != nil {
		return respondError(c, renameErr)
	}

	return c.JSON(tag)
}

// DeleteTag handles DELETE /api/tags/:tagId
func (s *Server) DeleteTag(c *fiber.Ctx) error {
	id, err := s.parseID(c, "tagId")
	if err != nil {
		return nil
	}

	if delErr := s.tagService.DeleteTag(c.UserContext(), id); delErr != nil {
		return respondError(c, delErr)
	}

	return c.JSON(fiber.Map{"message": "Tag deleted"})
}

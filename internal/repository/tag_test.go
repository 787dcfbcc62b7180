package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"emberlog/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestTagRepository_Create_Conflict(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewTagRepository(db)
	ctx := context.Background()

	tag := &models.Tag{Name: "Go", Slug: "go"}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "tags"`)).
		WillReturnError(errors.New(`ERROR: duplicate key value violates unique constraint "idx_tags_slug" (SQLSTATE 23505)`))
	mock.ExpectRollback()

	err := repo.Create(ctx, tag)
	assert.Error(t, err)
	var appErr *models.AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, "CONFLICT", appErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	// The translated sentinel from a TranslateError connection.
	assert.True(t, isUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, isUniqueViolation(fmt.Errorf("save tag: %w", gorm.ErrDuplicatedKey)))
	// The raw driver message, as surfaced by raw SQL.
	assert.True(t, isUniqueViolation(errors.New(`ERROR: duplicate key value violates unique constraint "idx_tags_slug" (SQLSTATE 23505)`)))
	assert.False(t, isUniqueViolation(errors.New("connection refused")))
	assert.False(t, isUniqueViolation(nil))
}

func TestTagRepository_GetBySlug(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewTagRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "tags" WHERE slug = $1 ORDER BY "tags"."id" LIMIT $2`)).
		WithArgs("go", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug"}).AddRow(1, "Go", "go"))

	tag, err := repo.GetBySlug(ctx, "go")
	assert.NoError(t, err)
	assert.Equal(t, "Go", tag.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTagRepository_Delete_ClearsJoinRows(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewTagRepository(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM post_tags WHERE tag_id = $1`)).
		WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "tags" WHERE "tags"."id" = $1`)).
		WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assert.NoError(t, repo.Delete(ctx, 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTagRepository_GetByIDs_Empty(t *testing.T) {
	db, _ := setupMockDB(t)
	repo := NewTagRepository(db)

	tags, err := repo.GetByIDs(context.Background(), nil)
	assert.NoError(t, err)
	assert.Empty(t, tags)
}

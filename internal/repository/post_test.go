package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"emberlog/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestPostRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	post := &models.Post{Title: "Test Post", Content: "Content", UserID: 1}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "posts"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	err := repo.Create(ctx, post)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_GetByID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	tests := []struct {
		name          string
		postID        uint
		currentUserID uint
		mockBehavior  func()
		expectedTitle string
		expectedError bool
	}{
		{
			name:          "Success with Details",
			postID:        1,
			currentUserID: 2,
			mockBehavior: func() {
				// main query with count subqueries and liked EXISTS
				mock.ExpectQuery(`SELECT posts\.\*.*comments_count.*likes_count.*liked.*FROM "posts"`).
					WithArgs(2, 1, 1).
					WillReturnRows(sqlmock.NewRows([]string{"id", "title", "user_id", "created_at", "comments_count", "likes_count", "liked"}).
						AddRow(1, "Post 1", 10, time.Now().Add(-time.Hour), 5, 10, true))

				// preload Tags via join table; no rows means no tags query
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "post_tags" WHERE "post_tags"."post_id" = $1`)).
					WithArgs(1).
					WillReturnRows(sqlmock.NewRows([]string{"post_id", "tag_id"}))

				// preload User
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 AND "users"."deleted_at" IS NULL`)).
					WithArgs(10).
					WillReturnRows(sqlmock.NewRows([]string{"id", "username"}).AddRow(10, "user10"))
			},
			expectedTitle: "Post 1",
		},
		{
			name:          "Not Found",
			postID:        99,
			currentUserID: 2,
			mockBehavior: func() {
				mock.ExpectQuery(`SELECT posts\.\*.*FROM "posts"`).
					WithArgs(2, 99, 1).
					WillReturnRows(sqlmock.NewRows([]string{"id"}))
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockBehavior()
			post, err := repo.GetByID(ctx, tt.postID, tt.currentUserID)

			if tt.expectedError {
				assert.Error(t, err)
				var appErr *models.AppError
				assert.True(t, errors.As(err, &appErr))
				assert.Equal(t, "NOT_FOUND", appErr.Code)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedTitle, post.Title)
				assert.Equal(t, 5, post.CommentsCount)
				assert.Equal(t, 10, post.LikesCount)
				assert.True(t, post.Liked)
				assert.False(t, post.IsExpired)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostRepository_ListExpired(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	cutoff := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "posts" WHERE created_at <= $1 AND "posts"."deleted_at" IS NULL ORDER BY created_at ASC LIMIT $2`)).
		WithArgs(cutoff, 100).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "created_at"}).
			AddRow(1, "Old 1", cutoff.Add(-2*time.Hour)).
			AddRow(2, "Old 2", cutoff.Add(-time.Hour)))

	posts, err := repo.ListExpired(ctx, cutoff, 100)
	assert.NoError(t, err)
	assert.Len(t, posts, 2)
	// oldest first
	assert.Equal(t, uint(1), posts[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_Like_Idempotent(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	// First insert creates the row, second hits ON CONFLICT DO NOTHING.
	mock.ExpectExec(`INSERT INTO likes`).
		WithArgs(1, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO likes`).
		WithArgs(1, 2).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.Like(ctx, 1, 2))
	assert.NoError(t, repo.Like(ctx, 1, 2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_Unlike(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "likes" WHERE user_id = $1 AND post_id = $2`)).
		WithArgs(1, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assert.NoError(t, repo.Unlike(ctx, 1, 2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_CountLikes(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "likes" WHERE post_id = $1`)).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := repo.CountLikes(ctx, 5)
	assert.NoError(t, err)
	assert.Equal(t, int64(7), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

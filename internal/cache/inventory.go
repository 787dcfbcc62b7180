package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix = "user:%d"
	PostKeyPrefix = "post:%d"
	TagKeyPrefix  = "tag:%s"
	PostsListKey  = "posts:recent"
)

const (
	UserTTL = 5 * time.Minute
	TagTTL  = 10 * time.Minute
	// PostTTL is short: posts carry clock-derived lifecycle fields, so a
	// stale cached copy only skews seconds_remaining by at most this much.
	PostTTL = time.Minute
	ListTTL = 30 * time.Second
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

func TagKey(slug string) string {
	return fmt.Sprintf(TagKeyPrefix, slug)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidatePost(ctx context.Context, postID uint) {
	Invalidate(ctx, PostKey(postID))
}

func InvalidatePostsList(ctx context.Context) {
	Invalidate(ctx, PostsListKey)
}

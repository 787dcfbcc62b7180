package models

import (
	"time"

	"emberlog/internal/lifecycle"

	"gorm.io/gorm"
)

// Post represents an ephemeral post in the Emberlog application.
// Posts expire a fixed interval after creation; the expiration fields are
// computed from created_at on read and are never persisted.
type Post struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	Title         string `gorm:"not null" json:"title"`
	Content       string `gorm:"type:text;not null" json:"content"`
	Excerpt       string `json:"excerpt,omitempty"`
	CoverImageKey string `json:"-"`
	CoverImageURL string `json:"cover_image_url,omitempty"`
	UserID        uint   `gorm:"not null;index" json:"user_id"`
	User          User   `gorm:"foreignKey:UserID" json:"user"`
	Tags          []Tag  `gorm:"many2many:post_tags" json:"tags"`
	// LikesCount is not persisted; computed at query time
	LikesCount int `gorm:"->" json:"likes_count"`
	// CommentsCount is not persisted; computed at query time
	CommentsCount int `gorm:"->" json:"comments_count"`
	// Liked indicates whether the current requesting user liked this post (computed)
	Liked bool `gorm:"->" json:"liked"`
	// Lifecycle fields, derived from CreatedAt and the post TTL (computed)
	IsExpired        bool           `gorm:"-" json:"is_expired"`
	IsExpiringSoon   bool           `gorm:"-" json:"is_expiring_soon"`
	SecondsRemaining int64          `gorm:"-" json:"seconds_remaining"`
	Urgency          string         `gorm:"-" json:"urgency"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

// ApplyLifecycle fills the computed expiration fields relative to now.
func (p *Post) ApplyLifecycle(now time.Time) {
	state := lifecycle.Evaluate(p.CreatedAt, lifecycle.PostTTL, now)
	p.IsExpired = state.Expired
	p.IsExpiringSoon = state.ExpiringSoon
	p.SecondsRemaining = state.SecondsRemaining
	p.Urgency = string(state.Urgency)
}

// AfterFind computes the lifecycle fields whenever a post is loaded.
func (p *Post) AfterFind(_ *gorm.DB) error {
	p.ApplyLifecycle(time.Now())
	return nil
}

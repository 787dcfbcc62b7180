package models

import (
	"strings"
	"time"
	"unicode"
)

// Tag labels posts. Tags are global: any authenticated user may create,
// rename, or delete them. The slug is derived deterministically from the
// name at creation; a colliding slug is rejected, never auto-suffixed.
// Because the slug lowercases the name and carries a unique index, tag
// uniqueness is effectively case-insensitive even though the name column
// itself compares case-sensitively.
type Tag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"unique;not null" json:"name"`
	Slug      string    `gorm:"unique;not null;index" json:"slug"`
	Posts     []Post    `gorm:"many2many:post_tags" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Slugify derives the URL-safe slug for a tag name: lowercase, runs of
// non-alphanumeric characters collapsed to single hyphens, no leading or
// trailing hyphen. Deterministic for a given name.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true // suppress a leading hyphen
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		case !lastHyphen:
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

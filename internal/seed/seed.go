package seed

import (
	"fmt"
	"log"
	"time"

	"emberlog/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumPosts    int
	ShouldClean bool
	// MaxAge bounds the created_at spread for seeded posts. A value a few
	// hours past the post lifetime leaves some posts already expired.
	MaxAge     time.Duration
	SkipBcrypt bool
	DryRun     bool
}

var tagNames = []string{
	"Go", "Rust", "TypeScript", "Python", "Databases",
	"Distributed Systems", "DevOps", "Cloud", "Kubernetes", "Linux",
	"Frontend", "Backend", "Security", "Testing", "Performance",
	"Machine Learning", "Career", "Open Source", "Homelab", "Hot Takes",
}

// Seed populates the database with test data
func Seed(db *gorm.DB, opts Options) error {
	log.Printf("🌱 Starting database seeding with %d users and %d posts...", opts.NumUsers, opts.NumPosts)

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			log.Println("⚠️  Warning: Could not clear all existing data, but continuing anyway...")
		}
	}

	factory := NewFactory(db, opts)

	users, err := createUsers(factory, opts.NumUsers)
	if err != nil {
		return fmt.Errorf("failed to create users: %w", err)
	}
	log.Printf("✓ %d test users created", len(users))

	tags, err := createTags(factory)
	if err != nil {
		return fmt.Errorf("failed to create tags: %w", err)
	}
	log.Printf("✓ %d tags available", len(tags))

	posts, err := createPosts(factory, users, tags, opts.NumPosts)
	if err != nil {
		return fmt.Errorf("failed to create posts: %w", err)
	}
	log.Printf("✓ %d posts created", len(posts))

	if err := createEngagement(factory, users, posts); err != nil {
		return fmt.Errorf("failed to create comments and likes: %w", err)
	}

	log.Println("🎉 Database seeding completed successfully!")
	return nil
}

func clearData(db *gorm.DB) error {
	log.Println("🗑️  Clearing existing data...")
	sql := `TRUNCATE TABLE comments, likes, post_tags, posts, tags, users RESTART IDENTITY CASCADE;`
	return db.Exec(sql).Error
}

func createUsers(f *Factory, count int) ([]*models.User, error) {
	users := make([]*models.User, 0, count)

	// Always include a couple of fixed accounts so logins stay predictable
	// across reseeds.
	if count >= 2 {
		for _, name := range []string{"ember", "test"} {
			name := name
			user, err := f.CreateUser(func(u *models.User) {
				u.Username = name
				u.Email = fmt.Sprintf("%s@example.com", name)
				u.Bio = "One of the OGs."
				u.Avatar = fmt.Sprintf("https://i.pravatar.cc/150?u=%s", name)
			})
			if err != nil {
				log.Printf("Failed to create user %s: %v", name, err)
				continue
			}
			users = append(users, user)
		}
	}

	for i := len(users); i < count; i++ {
		user, err := f.CreateUser()
		if err != nil {
			log.Printf("Failed to create user: %v", err)
			continue
		}
		users = append(users, user)

		if i%100 == 0 && i > 0 {
			log.Printf("Created %d users...", i)
		}
	}

	return users, nil
}

func createTags(f *Factory) ([]models.Tag, error) {
	tags := make([]models.Tag, 0, len(tagNames))
	for _, name := range tagNames {
		tag, err := f.CreateTag(name)
		if err != nil {
			return nil, err
		}
		tags = append(tags, *tag)
	}
	return tags, nil
}

func createPosts(f *Factory, users []*models.User, tags []models.Tag, count int) ([]*models.Post, error) {
	if len(users) == 0 {
		return nil, fmt.Errorf("no users to author posts")
	}

	posts := make([]*models.Post, 0, count)
	for i := 0; i < count; i++ {
		user := users[f.rng.Intn(len(users))]

		// one to three tags per post
		numTags := 1 + f.rng.Intn(3)
		picked := make([]models.Tag, 0, numTags)
		seen := make(map[uint]bool, numTags)
		for len(picked) < numTags {
			t := tags[f.rng.Intn(len(tags))]
			if seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			picked = append(picked, t)
		}

		posts = append(posts, f.BuildPost(user, picked))
	}

	// chunked batch insert
	const chunk = 100
	for start := 0; start < len(posts); start += chunk {
		end := start + chunk
		if end > len(posts) {
			end = len(posts)
		}
		if err := f.CreatePostsBatch(posts[start:end]); err != nil {
			return nil, err
		}
		log.Printf("Created %d posts...", end)
	}

	return posts, nil
}

func createEngagement(f *Factory, users []*models.User, posts []*models.Post) error {
	commentCount := 0
	likeCount := 0

	for _, post := range posts {
		// 0 to 4 comments per post
		for i := 0; i < f.rng.Intn(5); i++ {
			user := users[f.rng.Intn(len(users))]
			if _, err := f.CreateComment(user, post); err != nil {
				log.Printf("Failed to create comment on post %d: %v", post.ID, err)
				continue
			}
			commentCount++
		}

		// a random subset of users likes each post
		for _, user := range users {
			if f.rng.Float32() >= 0.15 {
				continue
			}
			if err := f.CreateLike(user, post); err != nil {
				continue
			}
			likeCount++
		}
	}

	log.Printf("✓ %d comments and %d likes created", commentCount, likeCount)
	return nil
}

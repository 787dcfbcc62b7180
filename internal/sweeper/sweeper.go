// Package sweeper purges posts whose lifetime has elapsed, along with their
// cover-image assets. Runs are cluster-wide single flight: a Redis lease
// ensures only one instance sweeps at a time.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"emberlog/internal/cache"
	"emberlog/internal/lifecycle"
	"emberlog/internal/middleware"
	"emberlog/internal/repository"
	"emberlog/internal/storage"
)

const (
	// LeaseKey is the Redis key guarding sweep mutual exclusion.
	LeaseKey = "sweep:posts:lease"

	DefaultBatchSize = 100
	DefaultTimeout   = 10 * time.Minute
)

type Sweeper struct {
	posts     repository.PostRepository
	storage   storage.ObjectStorage
	lease     *cache.Lease
	logger    *slog.Logger
	batchSize int
	timeout   time.Duration
	now       func() time.Time
}

// Option configures a Sweeper.
type Option func(*Sweeper)

func WithBatchSize(n int) Option {
	return func(s *Sweeper) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(s *Sweeper) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithNow overrides the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(s *Sweeper) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Sweeper) { s.logger = l }
}

func New(posts repository.PostRepository, objectStorage storage.ObjectStorage, lease *cache.Lease, opts ...Option) *Sweeper {
	s := &Sweeper{
		posts:     posts,
		storage:   objectStorage,
		lease:     lease,
		logger:    middleware.Logger,
		batchSize: DefaultBatchSize,
		timeout:   DefaultTimeout,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// RunOnce performs a single sweep and reports how many posts it purged.
// When another instance holds the lease it returns (0, nil) with no side
// effects. Safe to call from a ticker loop or an external scheduler.
func (s *Sweeper) RunOnce(ctx context.Context) (purged int, err error) {
	if err := s.lease.Acquire(ctx); err != nil {
		if errors.Is(err, cache.ErrLeaseHeld) {
			s.logger.InfoContext(ctx, "Sweep skipped, lease held by another instance")
			middleware.SweepRuns.WithLabelValues("skipped").Inc()
			return 0, nil
		}
		middleware.SweepRuns.WithLabelValues("failed").Inc()
		return 0, fmt.Errorf("acquiring sweep lease: %w", err)
	}
	defer func() {
		// Release under a fresh context so a deadline-exceeded sweep
		// still gives the lease back.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if relErr := s.lease.Release(releaseCtx); relErr != nil {
			s.logger.ErrorContext(ctx, "Failed to release sweep lease", slog.String("error", relErr.Error()))
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// The cutoff is evaluated once: posts crossing the boundary mid-sweep
	// wait for the next run.
	cutoff := s.now().Add(-lifecycle.PostTTL)
	start := s.now()

	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("sweep aborted after %d posts: %w", purged, ctxErr)
			break
		}

		batch, listErr := s.posts.ListExpired(ctx, cutoff, s.batchSize)
		if listErr != nil {
			err = fmt.Errorf("listing expired posts: %w", listErr)
			break
		}
		if len(batch) == 0 {
			break
		}

		for _, post := range batch {
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = fmt.Errorf("sweep aborted after %d posts: %w", purged, ctxErr)
				break
			}

			if post.CoverImageKey != "" && s.storage != nil {
				if delErr := s.storage.Delete(ctx, post.CoverImageKey); delErr != nil {
					// The post is still purged; the object stays
					// stranded in the bucket.
					s.logger.WarnContext(ctx, "Cover asset delete failed",
						slog.Uint64("post_id", uint64(post.ID)),
						slog.String("key", post.CoverImageKey),
						slog.String("error", delErr.Error()),
					)
					middleware.SweepAssetDeleteFailures.Inc()
				}
			}

			if delErr := s.posts.Delete(ctx, post.ID); delErr != nil {
				err = fmt.Errorf("purging post %d: %w", post.ID, delErr)
				break
			}
			purged++
		}
		if err != nil {
			break
		}

		if len(batch) < s.batchSize {
			break
		}
	}

	middleware.SweepPostsPurged.Add(float64(purged))
	if err != nil {
		middleware.SweepRuns.WithLabelValues("failed").Inc()
		s.logger.ErrorContext(ctx, "Expiration sweep failed",
			slog.Int("purged", purged),
			slog.String("error", err.Error()),
		)
		return purged, err
	}

	middleware.SweepRuns.WithLabelValues("completed").Inc()
	s.logger.InfoContext(ctx, "Expiration sweep completed",
		slog.Int("purged", purged),
		slog.Duration("elapsed", s.now().Sub(start)),
	)
	return purged, nil
}

// Run sweeps on the given interval until ctx is cancelled. The first sweep
// happens immediately.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Sweep run failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.ErrorContext(ctx, "Sweep run failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Command sweeper purges expired posts. It can run a single sweep for
// cron-style scheduling or loop on an interval as a long-lived worker.
// Concurrent instances coordinate through a Redis lease, so running it
// alongside other replicas is safe.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"emberlog/internal/cache"
	"emberlog/internal/config"
	"emberlog/internal/database"
	"emberlog/internal/repository"
	"emberlog/internal/storage"
	"emberlog/internal/sweeper"
)

func main() {
	once := flag.Bool("once", false, "Run a single sweep and exit")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	var objectStorage storage.ObjectStorage
	if cfg.AWSAccessKey != "" {
		objectStorage, err = storage.NewS3Client(cfg)
		if err != nil {
			log.Fatalf("Failed to init object storage: %v", err)
		}
	}

	// Lease TTL tracks the sweep timeout so a crashed holder cannot block
	// other instances for longer than one sweep could have run.
	lease := cache.NewLease(redisClient, sweeper.LeaseKey, cfg.SweepTimeout)

	sw := sweeper.New(
		repository.NewPostRepository(db),
		objectStorage,
		lease,
		sweeper.WithBatchSize(cfg.SweepBatchSize),
		sweeper.WithTimeout(cfg.SweepTimeout),
	)

	if *once {
		purged, err := sw.RunOnce(context.Background())
		if err != nil {
			log.Fatalf("Sweep failed: %v", err)
		}
		log.Printf("Sweep complete, %d posts purged", purged)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutting down sweeper...")
		cancel()
	}()

	log.Printf("Sweeper starting, interval %s", cfg.SweepInterval)
	sw.Run(ctx, cfg.SweepInterval)

	// Give the in-flight sweep a moment to release its lease.
	time.Sleep(100 * time.Millisecond)
	log.Println("Sweeper stopped")
}

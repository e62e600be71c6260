package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"campustrack/internal/config"
	"campustrack/internal/notify"
	"campustrack/internal/queue"
	"campustrack/internal/store"
)

// Worker consumes notification messages off the queue and persists them so
// users see them on their next read.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, cfg.NotifyQueueKey)
	}

	repo := notify.NewRepository(db.Client)

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	for msg := range messages {
		if msg.Type != notify.MessageType {
			continue
		}

		var p notify.Payload
		if err := json.Unmarshal(msg.Body, &p); err != nil {
			log.Printf("drop malformed notification: %v", err)
			continue
		}

		if err := repo.Insert(ctx, p); err != nil {
			log.Printf("persist notification for user %s failed: %v", p.UserID, err)
			continue
		}
		log.Printf("notification stored for user %s (%s)", p.UserID, p.Type)
	}

	log.Println("worker stopped")
}

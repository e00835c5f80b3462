package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/bk-ghauri/subscription-based-chat-app/internal/infrastructure/database"
	queueAdapter "github.com/bk-ghauri/subscription-based-chat-app/internal/infrastructure/queue/adapter"
	"github.com/bk-ghauri/subscription-based-chat-app/internal/pkg/chat/application/task"

	"github.com/joho/godotenv"
)

// The worker drains the chat queue: messages posted over HTTP are persisted
// here, off the request path.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	connectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	pool, err := database.NewPoolFromEnv(connectCtx)
	cancel()
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer pool.Close()

	srv, err := queueAdapter.NewAsynqServer()
	if err != nil {
		log.Fatalf("failed to create queue server: %v", err)
	}

	task.RegisterSendMessageTask(srv, pool)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Println("worker started")
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("worker stopped with error: %v", err)
	}
	log.Println("worker shut down")
}

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/bk-ghauri/subscription-based-chat-app/cmd/api/router/v1"
	"github.com/bk-ghauri/subscription-based-chat-app/internal/auth"
	cacheAdapter "github.com/bk-ghauri/subscription-based-chat-app/internal/infrastructure/cache/adapter"
	cacheport "github.com/bk-ghauri/subscription-based-chat-app/internal/infrastructure/cache/port"
	"github.com/bk-ghauri/subscription-based-chat-app/internal/infrastructure/database"
	queueAdapter "github.com/bk-ghauri/subscription-based-chat-app/internal/infrastructure/queue/adapter"
	"github.com/bk-ghauri/subscription-based-chat-app/internal/infrastructure/realtime"
	"github.com/bk-ghauri/subscription-based-chat-app/internal/pkg/chat/presentation/controller"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := database.NewPoolFromEnv(ctx)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer pool.Close()

	tokens, err := auth.NewTokenServiceFromEnv()
	if err != nil {
		log.Fatalf("failed to configure token service: %v", err)
	}

	// Cache is optional: without it membership denials just hit the store.
	var cache cacheport.Cache
	if redisCache, err := cacheAdapter.NewRedisAdapter(); err != nil {
		log.Printf("Warning: redis cache unavailable, denial caching disabled: %v", err)
	} else {
		cache = redisCache
		defer redisCache.Close()
	}

	queueClient, err := queueAdapter.NewAsynqClientFromEnv()
	if err != nil {
		log.Fatalf("failed to create queue client: %v", err)
	}
	defer queueClient.Close()

	rt := realtime.NewRouter()
	defer rt.Close()

	onOnline, onOffline := controller.PresenceBroadcasters(rt)
	presence := realtime.NewPresenceRegistry(presenceGraceFromEnv(), onOnline, onOffline)

	r := gin.Default()

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	v1.RegisterRoutes(r, pool, queueClient, rt, presence, tokens, cache)

	// Start HTTP server (blocks until shutdown)
	_ = r.Run()
}

// presenceGraceFromEnv reads PRESENCE_GRACE_SECONDS; the registry default
// applies when unset or invalid.
func presenceGraceFromEnv() time.Duration {
	v := os.Getenv("PRESENCE_GRACE_SECONDS")
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("Warning: invalid PRESENCE_GRACE_SECONDS=%q, using default", v)
		return 0
	}
	return time.Duration(n) * time.Second
}

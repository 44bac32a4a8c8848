package config

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// Redis is the optional cache client; nil when no REDIS_ADDR is set or
	// the server is unreachable. Callers must tolerate nil.
	Redis *redis.Client
)

// InitRedis connects the cache client when REDIS_ADDR is configured. The
// service runs fine without it; lookups just skip the cache.
func InitRedis() {
	addr := GetEnv("REDIS_ADDR", "")
	if addr == "" {
		log.Println("REDIS_ADDR not set – tier config cache disabled")
		return
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: GetEnv("REDIS_PASSWORD", ""),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("redis at %s unreachable (%v) – tier config cache disabled", addr, err)
		return
	}

	Redis = client
}

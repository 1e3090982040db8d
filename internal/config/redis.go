package config

import (
	"context"
	"crypto/tls"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient builds a client from REDIS_ADDR (or REDIS_HOST/REDIS_PORT),
// REDIS_PASSWORD, REDIS_DB and REDIS_TLS. It pings once with a short
// timeout and returns nil when the server is unreachable; the rate limiter
// and response cache both degrade to pass-through on a nil client, so the
// API keeps serving without Redis.
func NewRedisClient() *redis.Client {
	addr := envStr("REDIS_ADDR", "")
	if host := envStr("REDIS_HOST", ""); host != "" {
		addr = host + ":" + envStr("REDIS_PORT", "6379")
	}
	if addr == "" {
		addr = "localhost:6379"
	}

	opts := &redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       envInt("REDIS_DB", 0),
	}
	if envBool("REDIS_TLS", false) {
		opts.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil
	}
	return client
}

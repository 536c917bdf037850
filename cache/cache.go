// Package cache is an optional Redis layer in front of the post feed
// queries. When REDIS_ADDR is unset every operation is a no-op and the
// handlers fall through to MongoDB.
package cache

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

var rdb *redis.Client

// Init connects to Redis when REDIS_ADDR is set. A failed ping disables
// the cache rather than failing startup.
func Init() {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Redis unavailable, feed cache disabled: %v", err)
		return
	}

	rdb = client
	log.Println("Connected to Redis successfully")
}

func Enabled() bool {
	return rdb != nil
}

func Close() error {
	if rdb == nil {
		return nil
	}
	err := rdb.Close()
	rdb = nil
	return err
}

func SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if rdb == nil {
		return nil
	}
	valueJSON, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return rdb.Set(ctx, key, valueJSON, ttl).Err()
}

// GetJSON loads key into a value of type T. The second return value is
// false on a miss or when the cache is disabled.
func GetJSON[T any](ctx context.Context, key string) (*T, bool) {
	if rdb == nil {
		return nil, false
	}
	value, err := rdb.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("Redis get %s: %v", key, err)
		}
		return nil, false
	}

	var result T
	if err := json.Unmarshal([]byte(value), &result); err != nil {
		log.Printf("Redis decode %s: %v", key, err)
		return nil, false
	}
	return &result, true
}

func Del(ctx context.Context, keys ...string) {
	if rdb == nil || len(keys) == 0 {
		return
	}
	if err := rdb.Del(ctx, keys...).Err(); err != nil {
		log.Printf("Redis del: %v", err)
	}
}

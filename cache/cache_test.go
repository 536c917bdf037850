package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

// useTestRedis points the cache at an in-process Redis for the duration
// of the test.
func useTestRedis(t *testing.T) {
	t.Helper()
	mr := miniredis.RunT(t)
	t.Setenv("REDIS_ADDR", mr.Addr())
	Init()
	if !Enabled() {
		t.Fatal("cache should be enabled against the test server")
	}
	t.Cleanup(func() { Close() })
}

func TestSetGetJSONRoundTrip(t *testing.T) {
	useTestRedis(t)
	ctx := context.Background()

	type entry struct {
		Title string `json:"title"`
	}
	if err := SetJSON(ctx, FeedKey(), []entry{{Title: "hello"}}, FeedTTL*time.Second); err != nil {
		t.Fatalf("SetJSON: %v", err)
	}

	got, ok := GetJSON[[]entry](ctx, FeedKey())
	if !ok {
		t.Fatal("expected a cache hit")
	}
	if len(*got) != 1 || (*got)[0].Title != "hello" {
		t.Errorf("cached value = %+v", *got)
	}
}

func TestGetJSONMiss(t *testing.T) {
	useTestRedis(t)

	if _, ok := GetJSON[string](context.Background(), "no-such-key"); ok {
		t.Error("expected a miss for an unknown key")
	}
}

func TestDelRemovesFeedKeys(t *testing.T) {
	useTestRedis(t)
	ctx := context.Background()

	for _, key := range FeedKeys("free") {
		if err := SetJSON(ctx, key, "stale", FeedTTL*time.Second); err != nil {
			t.Fatalf("SetJSON %s: %v", key, err)
		}
	}

	Del(ctx, FeedKeys("free")...)

	for _, key := range FeedKeys("free") {
		if _, ok := GetJSON[string](ctx, key); ok {
			t.Errorf("key %s survived invalidation", key)
		}
	}
}

func TestDisabledCacheIsNoOp(t *testing.T) {
	ctx := context.Background()

	if Enabled() {
		t.Fatal("cache should start disabled without REDIS_ADDR")
	}
	if err := SetJSON(ctx, FeedKey(), "x", FeedTTL*time.Second); err != nil {
		t.Errorf("SetJSON on disabled cache: %v", err)
	}
	if _, ok := GetJSON[string](ctx, FeedKey()); ok {
		t.Error("disabled cache should always miss")
	}
	Del(ctx, FeedKey())
}

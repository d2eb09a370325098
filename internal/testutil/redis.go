// Package testutil holds shared helpers for integration-style tests.
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// SetupTestRedis returns a Redis client pointed at the test instance, or
// skips the test when none is reachable. Set CONSOLE_TEST_REDIS_ADDR to
// override the default address; set CONSOLE_TEST_REQUIRE_REDIS=1 to fail
// instead of skipping (CI).
func SetupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("CONSOLE_TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		if cerr := client.Close(); cerr != nil {
			t.Logf("close redis client after failed ping: %v", cerr)
		}
		if os.Getenv("CONSOLE_TEST_REQUIRE_REDIS") == "1" {
			t.Fatalf("Redis required but not reachable at %s: %v", addr, err)
		}
		t.Skipf("Redis not available at %s: %v", addr, err)
	}

	client.FlushDB(ctx)
	t.Cleanup(func() {
		if err := client.Close(); err != nil {
			t.Logf("close redis client: %v", err)
		}
	})
	return client
}

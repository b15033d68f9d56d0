package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	rdb "github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/janus/internal/cache"
)

// backends corre la misma batería contra memoria y Redis (miniredis).
func backends(t *testing.T) map[string]cache.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := rdb.NewClient(&rdb.Options{Addr: mr.Addr()})
	return map[string]cache.Client{
		"memory": cache.NewMemory(time.Minute),
		"redis":  cache.NewRedisWithClient(rc, "test:"),
	}
}

func TestGetSet(t *testing.T) {
	for name, c := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if _, err := c.Get(ctx, "missing"); !errors.Is(err, cache.ErrNotFound) {
				t.Fatalf("missing key: want ErrNotFound, got %v", err)
			}
			if err := c.Set(ctx, "k", "v", time.Minute); err != nil {
				t.Fatalf("set: %v", err)
			}
			v, err := c.Get(ctx, "k")
			if err != nil || v != "v" {
				t.Fatalf("get: %q %v", v, err)
			}
		})
	}
}

func TestAddIsSetNX(t *testing.T) {
	for name, c := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			fresh, err := c.Add(ctx, "once", "1", time.Minute)
			if err != nil || !fresh {
				t.Fatalf("first add: fresh=%v err=%v", fresh, err)
			}
			fresh, err = c.Add(ctx, "once", "2", time.Minute)
			if err != nil || fresh {
				t.Fatalf("second add must report existing: fresh=%v err=%v", fresh, err)
			}
			if v, _ := c.Get(ctx, "once"); v != "1" {
				t.Fatalf("add must not overwrite: %q", v)
			}
		})
	}
}

func TestIncr(t *testing.T) {
	for name, c := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			for want := int64(1); want <= 3; want++ {
				n, err := c.Incr(ctx, "hits", time.Minute)
				if err != nil || n != want {
					t.Fatalf("incr: n=%d want=%d err=%v", n, want, err)
				}
			}
		})
	}
}

func TestRedisExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := rdb.NewClient(&rdb.Options{Addr: mr.Addr()})
	c := cache.NewRedisWithClient(rc, "test:")
	ctx := context.Background()

	if err := c.Set(ctx, "ephemeral", "x", time.Second); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(2 * time.Second)
	if _, err := c.Get(ctx, "ephemeral"); !errors.Is(err, cache.ErrNotFound) {
		t.Fatalf("expired key: want ErrNotFound, got %v", err)
	}
}
